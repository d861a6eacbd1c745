package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/weatherlogger/apiserver/internal/db"
	"github.com/weatherlogger/apiserver/types"
)

// SeriesRepository handles persistence for series.
type SeriesRepository struct {
	db *sql.DB
}

func NewSeriesRepository(db *sql.DB) *SeriesRepository {
	return &SeriesRepository{db: db}
}

func (r *SeriesRepository) List(ctx context.Context) ([]types.Series, error) {
	const query = `
		SELECT id, name, color, min_value, max_value
		FROM series
		ORDER BY id`
	rows, err := db.Conn(ctx, r.db).QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	series := make([]types.Series, 0)
	for rows.Next() {
		var s types.Series
		if err := rows.Scan(&s.ID, &s.Name, &s.Color, &s.MinValue, &s.MaxValue); err != nil {
			return nil, err
		}
		series = append(series, s)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return series, nil
}

func (r *SeriesRepository) Get(ctx context.Context, id int) (types.Series, error) {
	const query = `
		SELECT id, name, color, min_value, max_value
		FROM series
		WHERE id = $1`
	return scanSeries(db.Conn(ctx, r.db).QueryRowContext(ctx, query, id))
}

// GetForShare reads a series and, inside a transaction, holds a share lock
// on it so the bounds cannot change or the row disappear until commit.
func (r *SeriesRepository) GetForShare(ctx context.Context, id int) (types.Series, error) {
	const query = `
		SELECT id, name, color, min_value, max_value
		FROM series
		WHERE id = $1
		FOR SHARE`
	return scanSeries(db.Conn(ctx, r.db).QueryRowContext(ctx, query, id))
}

// GetForUpdate reads a series and, inside a transaction, locks it against
// concurrent writers until commit.
func (r *SeriesRepository) GetForUpdate(ctx context.Context, id int) (types.Series, error) {
	const query = `
		SELECT id, name, color, min_value, max_value
		FROM series
		WHERE id = $1
		FOR UPDATE`
	return scanSeries(db.Conn(ctx, r.db).QueryRowContext(ctx, query, id))
}

func (r *SeriesRepository) Create(ctx context.Context, series types.Series) (types.Series, error) {
	const query = `
		INSERT INTO series (name, color, min_value, max_value)
		VALUES ($1, $2, $3, $4)
		RETURNING id`
	if err := db.Conn(ctx, r.db).QueryRowContext(
		ctx,
		query,
		series.Name,
		series.Color,
		series.MinValue,
		series.MaxValue,
	).Scan(&series.ID); err != nil {
		return types.Series{}, mapError(err)
	}
	return series, nil
}

func (r *SeriesRepository) Update(ctx context.Context, series types.Series) (types.Series, error) {
	const query = `
		UPDATE series
		SET name = $1,
			color = $2,
			min_value = $3,
			max_value = $4
		WHERE id = $5`
	result, err := db.Conn(ctx, r.db).ExecContext(
		ctx,
		query,
		series.Name,
		series.Color,
		series.MinValue,
		series.MaxValue,
		series.ID,
	)
	if err != nil {
		return types.Series{}, mapError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return types.Series{}, err
	}
	if affected == 0 {
		return types.Series{}, ErrNotFound
	}
	return series, nil
}

// Delete removes a series. Its measurements go with it through the
// ON DELETE CASCADE foreign key.
func (r *SeriesRepository) Delete(ctx context.Context, id int) error {
	const query = `DELETE FROM series WHERE id = $1`
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

func scanSeries(row *sql.Row) (types.Series, error) {
	var s types.Series
	err := row.Scan(&s.ID, &s.Name, &s.Color, &s.MinValue, &s.MaxValue)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Series{}, ErrNotFound
		}
		return types.Series{}, err
	}
	return s, nil
}
