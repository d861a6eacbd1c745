package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"github.com/weatherlogger/apiserver/internal/db"
	"github.com/weatherlogger/apiserver/types"
)

// MeasurementRepository handles persistence for measurements.
type MeasurementRepository struct {
	db *sql.DB
}

func NewMeasurementRepository(db *sql.DB) *MeasurementRepository {
	return &MeasurementRepository{db: db}
}

// Query returns the measurements of the selected series, oldest first.
// An empty series selection returns an empty slice without querying.
func (r *MeasurementRepository) Query(ctx context.Context, filter types.MeasurementFilter) ([]types.Measurement, error) {
	measurements := make([]types.Measurement, 0)
	if len(filter.SeriesIDs) == 0 {
		return measurements, nil
	}

	ids := make([]int64, len(filter.SeriesIDs))
	for i, id := range filter.SeriesIDs {
		ids[i] = int64(id)
	}

	conditions := []string{"series_id = ANY($1)"}
	args := []any{pq.Array(ids)}
	if filter.From != nil {
		args = append(args, filter.From.UTC())
		conditions = append(conditions, fmt.Sprintf("timestamp >= $%d", len(args)))
	}
	if filter.To != nil {
		args = append(args, filter.To.UTC())
		conditions = append(conditions, fmt.Sprintf("timestamp <= $%d", len(args)))
	}

	query := `
		SELECT id, series_id, timestamp, value
		FROM measurements
		WHERE ` + strings.Join(conditions, " AND ") + `
		ORDER BY timestamp, id`
	rows, err := db.Conn(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var m types.Measurement
		if err := rows.Scan(&m.ID, &m.SeriesID, &m.Timestamp, &m.Value); err != nil {
			return nil, err
		}
		m.Timestamp = m.Timestamp.UTC()
		measurements = append(measurements, m)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return measurements, nil
}

func (r *MeasurementRepository) Get(ctx context.Context, id int64) (types.Measurement, error) {
	const query = `
		SELECT id, series_id, timestamp, value
		FROM measurements
		WHERE id = $1`
	var m types.Measurement
	err := db.Conn(ctx, r.db).QueryRowContext(ctx, query, id).Scan(&m.ID, &m.SeriesID, &m.Timestamp, &m.Value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Measurement{}, ErrNotFound
		}
		return types.Measurement{}, err
	}
	m.Timestamp = m.Timestamp.UTC()
	return m, nil
}

func (r *MeasurementRepository) Create(ctx context.Context, m types.Measurement) (types.Measurement, error) {
	m.Timestamp = m.Timestamp.UTC()

	const query = `
		INSERT INTO measurements (series_id, timestamp, value)
		VALUES ($1, $2, $3)
		RETURNING id`
	if err := db.Conn(ctx, r.db).QueryRowContext(ctx, query, m.SeriesID, m.Timestamp, m.Value).Scan(&m.ID); err != nil {
		return types.Measurement{}, mapError(err)
	}
	return m, nil
}

func (r *MeasurementRepository) Update(ctx context.Context, m types.Measurement) (types.Measurement, error) {
	m.Timestamp = m.Timestamp.UTC()

	const query = `
		UPDATE measurements
		SET timestamp = $1,
			value = $2
		WHERE id = $3`
	result, err := db.Conn(ctx, r.db).ExecContext(ctx, query, m.Timestamp, m.Value, m.ID)
	if err != nil {
		return types.Measurement{}, mapError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return types.Measurement{}, err
	}
	if affected == 0 {
		return types.Measurement{}, ErrNotFound
	}
	return m, nil
}

func (r *MeasurementRepository) Delete(ctx context.Context, id int64) error {
	const query = `DELETE FROM measurements WHERE id = $1`
	result, err := db.Conn(ctx, r.db).ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
