package services

import (
	"context"
	"errors"
	"strings"

	"github.com/weatherlogger/apiserver/internal/store"
	"github.com/weatherlogger/apiserver/types"
)

// SeriesRepository defines persistence operations for series.
type SeriesRepository interface {
	List(ctx context.Context) ([]types.Series, error)
	Get(ctx context.Context, id int) (types.Series, error)
	GetForShare(ctx context.Context, id int) (types.Series, error)
	GetForUpdate(ctx context.Context, id int) (types.Series, error)
	Create(ctx context.Context, series types.Series) (types.Series, error)
	Update(ctx context.Context, series types.Series) (types.Series, error)
	Delete(ctx context.Context, id int) error
}

// SeriesService encapsulates series use-cases.
type SeriesService struct {
	repo   SeriesRepository
	tx     Transactor
	events EventPublisher
}

func NewSeriesService(repo SeriesRepository, tx Transactor, events EventPublisher) *SeriesService {
	return &SeriesService{repo: repo, tx: tx, events: events}
}

func (s *SeriesService) List(ctx context.Context) ([]types.Series, error) {
	return s.repo.List(ctx)
}

func (s *SeriesService) Get(ctx context.Context, id int) (types.Series, error) {
	series, err := s.repo.Get(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return types.Series{}, ErrSeriesNotFound
	}
	return series, err
}

// Create stores a new series. An empty color becomes DefaultSeriesColor.
func (s *SeriesService) Create(ctx context.Context, series types.Series) (types.Series, error) {
	if strings.TrimSpace(series.Color) == "" {
		series.Color = types.DefaultSeriesColor
	}
	if series.MinValue > series.MaxValue {
		return types.Series{}, ErrInvalidRange
	}

	created, err := s.repo.Create(ctx, series)
	if err != nil {
		return types.Series{}, err
	}

	s.events.Publish(ctx, types.Event{
		Type:     types.EventSeriesCreated,
		SeriesID: created.ID,
		Series:   &created,
	})
	return created, nil
}

// Update merges patch into the stored series. Existing measurements are
// not revalidated against new bounds.
func (s *SeriesService) Update(ctx context.Context, id int, patch types.SeriesPatch) (types.Series, error) {
	var updated types.Series
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		current, err := s.repo.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}

		next := patch.Apply(current)
		if next.MinValue > next.MaxValue {
			return ErrInvalidRange
		}

		updated, err = s.repo.Update(ctx, next)
		return err
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.Series{}, ErrSeriesNotFound
		}
		return types.Series{}, err
	}

	s.events.Publish(ctx, types.Event{
		Type:     types.EventSeriesUpdated,
		SeriesID: updated.ID,
		Series:   &updated,
	})
	return updated, nil
}

// Delete removes a series together with all of its measurements.
func (s *SeriesService) Delete(ctx context.Context, id int) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrSeriesNotFound
		}
		return err
	}

	s.events.Publish(ctx, types.Event{Type: types.EventSeriesDeleted, SeriesID: id})
	return nil
}
