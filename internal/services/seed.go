package services

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/weatherlogger/apiserver/types"
)

// SeedSeries is an example series together with the range its random
// readings are drawn from.
type SeedSeries struct {
	Series types.Series
	Low    float64
	High   float64
}

// DefaultSeedSeries are the example cities loaded by Seeder.
var DefaultSeedSeries = []SeedSeries{
	{Series: types.Series{Name: "Warszawa", Color: "#3b82f6", MinValue: -30, MaxValue: 50}, Low: -5, High: 20},
	{Series: types.Series{Name: "Gdańsk", Color: "#10b981", MinValue: -30, MaxValue: 50}, Low: -3, High: 18},
	{Series: types.Series{Name: "Lublin", Color: "#a81cff", MinValue: -30, MaxValue: 50}, Low: 0, High: 25},
}

// SeedResult reports what Seeder created.
type SeedResult struct {
	AdminCreated bool
	Series       []types.Series
	Measurements int
}

// Seeder fills an installation with an admin account and example data.
// Rows that already exist are left alone.
type Seeder struct {
	users        *UserService
	series       SeriesRepository
	measurements MeasurementRepository
	tx           Transactor
	rand         *rand.Rand
	now          func() time.Time
}

func NewSeeder(users *UserService, series SeriesRepository, measurements MeasurementRepository, tx Transactor) *Seeder {
	return &Seeder{
		users:        users,
		series:       series,
		measurements: measurements,
		tx:           tx,
		rand:         rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		now:          time.Now,
	}
}

// Seed creates the admin user when adminPassword is set and missing, then
// each example series that does not exist yet with one reading per day,
// going back the given number of days.
func (s *Seeder) Seed(ctx context.Context, adminPassword string, days int) (SeedResult, error) {
	var result SeedResult

	if adminPassword != "" {
		exists, err := s.users.Exists(ctx, "admin")
		if err != nil {
			return result, err
		}
		if !exists {
			if _, err := s.users.Create(ctx, "admin", adminPassword, types.RoleAdmin); err != nil {
				return result, err
			}
			result.AdminCreated = true
		}
	}

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		existing, err := s.series.List(ctx)
		if err != nil {
			return err
		}
		names := make(map[string]bool, len(existing))
		for _, sr := range existing {
			names[sr.Name] = true
		}

		now := s.now().UTC()
		for _, example := range DefaultSeedSeries {
			if names[example.Series.Name] {
				continue
			}
			created, err := s.series.Create(ctx, example.Series)
			if err != nil {
				return err
			}
			result.Series = append(result.Series, created)

			for day := 0; day < days; day++ {
				value := example.Low + s.rand.Float64()*(example.High-example.Low)
				if _, err := s.measurements.Create(ctx, types.Measurement{
					SeriesID:  created.ID,
					Timestamp: now.AddDate(0, 0, -day),
					Value:     value,
				}); err != nil {
					return err
				}
				result.Measurements++
			}
		}
		return nil
	})
	return result, err
}
