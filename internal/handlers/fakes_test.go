package handlers

import (
	"context"
	"errors"

	"github.com/weatherlogger/apiserver/internal/services"
	"github.com/weatherlogger/apiserver/types"
)

type fakeSeries struct {
	items  map[int]types.Series
	nextID int
}

func newFakeSeries() *fakeSeries {
	return &fakeSeries{items: map[int]types.Series{}}
}

func (f *fakeSeries) List(context.Context) ([]types.Series, error) {
	out := make([]types.Series, 0, len(f.items))
	for id := 1; id <= f.nextID; id++ {
		if s, ok := f.items[id]; ok {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeSeries) Create(_ context.Context, s types.Series) (types.Series, error) {
	if s.Color == "" {
		s.Color = types.DefaultSeriesColor
	}
	if s.MinValue > s.MaxValue {
		return types.Series{}, services.ErrInvalidRange
	}
	f.nextID++
	s.ID = f.nextID
	f.items[s.ID] = s
	return s, nil
}

func (f *fakeSeries) Update(_ context.Context, id int, patch types.SeriesPatch) (types.Series, error) {
	current, ok := f.items[id]
	if !ok {
		return types.Series{}, services.ErrSeriesNotFound
	}
	next := patch.Apply(current)
	f.items[id] = next
	return next, nil
}

func (f *fakeSeries) Delete(_ context.Context, id int) error {
	if _, ok := f.items[id]; !ok {
		return services.ErrSeriesNotFound
	}
	delete(f.items, id)
	return nil
}

type fakeMeasurements struct {
	lastFilter *types.MeasurementFilter
	added      []types.Measurement
	patches    map[int64]types.MeasurementPatch
	result     []types.Measurement
	err        error
}

func (f *fakeMeasurements) Query(_ context.Context, filter types.MeasurementFilter) ([]types.Measurement, error) {
	f.lastFilter = &filter
	if f.result == nil {
		return []types.Measurement{}, nil
	}
	return f.result, nil
}

func (f *fakeMeasurements) Add(_ context.Context, m types.Measurement) (types.Measurement, error) {
	if f.err != nil {
		return types.Measurement{}, f.err
	}
	if m.SeriesID != 1 {
		return types.Measurement{}, services.ErrSeriesNotFound
	}
	if m.Value < -30 || m.Value > 50 {
		return types.Measurement{}, &services.OutOfRangeError{Value: m.Value}
	}
	m.ID = int64(len(f.added) + 1)
	f.added = append(f.added, m)
	return m, nil
}

func (f *fakeMeasurements) Update(_ context.Context, id int64, patch types.MeasurementPatch) (types.Measurement, error) {
	if f.err != nil {
		return types.Measurement{}, f.err
	}
	if id != 1 {
		return types.Measurement{}, services.ErrMeasurementNotFound
	}
	if f.patches == nil {
		f.patches = map[int64]types.MeasurementPatch{}
	}
	f.patches[id] = patch
	return types.Measurement{ID: id}, nil
}

func (f *fakeMeasurements) Delete(_ context.Context, id int64) error {
	if id != 1 {
		return services.ErrMeasurementNotFound
	}
	return nil
}

var errBoom = errors.New("boom")
