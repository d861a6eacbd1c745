package services

import (
	"context"
	"errors"
	"time"

	"github.com/weatherlogger/apiserver/internal/store"
	"github.com/weatherlogger/apiserver/types"
)

// MeasurementRepository defines persistence operations for measurements.
type MeasurementRepository interface {
	Query(ctx context.Context, filter types.MeasurementFilter) ([]types.Measurement, error)
	Get(ctx context.Context, id int64) (types.Measurement, error)
	Create(ctx context.Context, m types.Measurement) (types.Measurement, error)
	Update(ctx context.Context, m types.Measurement) (types.Measurement, error)
	Delete(ctx context.Context, id int64) error
}

// SeriesBounds looks up a series and holds it stable for the rest of the
// surrounding transaction.
type SeriesBounds interface {
	GetForShare(ctx context.Context, id int) (types.Series, error)
}

// MeasurementService encapsulates measurement use-cases. Every write is
// checked against the owning series' bounds as they are at write time.
type MeasurementService struct {
	repo   MeasurementRepository
	series SeriesBounds
	tx     Transactor
	events EventPublisher
	now    func() time.Time
}

func NewMeasurementService(repo MeasurementRepository, series SeriesBounds, tx Transactor, events EventPublisher) *MeasurementService {
	return &MeasurementService{
		repo:   repo,
		series: series,
		tx:     tx,
		events: events,
		now:    time.Now,
	}
}

// Query returns the measurements matching filter ordered by timestamp.
// An empty series selection yields an empty result.
func (s *MeasurementService) Query(ctx context.Context, filter types.MeasurementFilter) ([]types.Measurement, error) {
	if len(filter.SeriesIDs) == 0 {
		return []types.Measurement{}, nil
	}
	return s.repo.Query(ctx, filter)
}

// Add stores m after checking its series exists and contains its value.
// A zero timestamp is replaced by the current time.
func (s *MeasurementService) Add(ctx context.Context, m types.Measurement) (types.Measurement, error) {
	if m.Timestamp.IsZero() {
		m.Timestamp = s.now()
	}
	m.Timestamp = m.Timestamp.UTC()

	var created types.Measurement
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		series, err := s.series.GetForShare(ctx, m.SeriesID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrSeriesNotFound
			}
			return err
		}
		if !series.Contains(m.Value) {
			return &OutOfRangeError{Value: m.Value}
		}

		created, err = s.repo.Create(ctx, m)
		if errors.Is(err, store.ErrForeignKey) {
			return ErrSeriesNotFound
		}
		return err
	})
	if err != nil {
		return types.Measurement{}, err
	}

	s.events.Publish(ctx, types.Event{
		Type:          types.EventMeasurementCreated,
		SeriesID:      created.SeriesID,
		MeasurementID: created.ID,
		Measurement:   &created,
	})
	return created, nil
}

// Update applies patch to measurement id. A new value is validated against
// the current bounds of the owning series.
func (s *MeasurementService) Update(ctx context.Context, id int64, patch types.MeasurementPatch) (types.Measurement, error) {
	var updated types.Measurement
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		current, err := s.repo.Get(ctx, id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrMeasurementNotFound
			}
			return err
		}

		next := patch.Apply(current)
		if patch.Value != nil {
			series, err := s.series.GetForShare(ctx, current.SeriesID)
			if err != nil {
				if errors.Is(err, store.ErrNotFound) {
					return ErrMeasurementNotFound
				}
				return err
			}
			if !series.Contains(next.Value) {
				return &OutOfRangeError{Value: next.Value}
			}
		}

		updated, err = s.repo.Update(ctx, next)
		if errors.Is(err, store.ErrNotFound) {
			return ErrMeasurementNotFound
		}
		return err
	})
	if err != nil {
		return types.Measurement{}, err
	}

	s.events.Publish(ctx, types.Event{
		Type:          types.EventMeasurementUpdated,
		SeriesID:      updated.SeriesID,
		MeasurementID: updated.ID,
		Measurement:   &updated,
	})
	return updated, nil
}

func (s *MeasurementService) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrMeasurementNotFound
		}
		return err
	}

	s.events.Publish(ctx, types.Event{Type: types.EventMeasurementDeleted, MeasurementID: id})
	return nil
}
