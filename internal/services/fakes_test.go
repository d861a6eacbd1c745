package services

import (
	"bytes"
	"context"
	"io"
	"sort"
	"sync"

	"github.com/weatherlogger/apiserver/internal/storage"
	"github.com/weatherlogger/apiserver/internal/store"
	"github.com/weatherlogger/apiserver/types"
)

type fakeTx struct {
	calls int
}

func (f *fakeTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	f.calls++
	return fn(ctx)
}

type recordingPublisher struct {
	events []types.Event
}

func (p *recordingPublisher) Publish(_ context.Context, ev types.Event) {
	p.events = append(p.events, ev)
}

func (p *recordingPublisher) eventTypes() []types.EventType {
	out := make([]types.EventType, len(p.events))
	for i, ev := range p.events {
		out[i] = ev.Type
	}
	return out
}

type fakeUsers struct {
	mu     sync.Mutex
	byID   map[int]types.User
	nextID int
}

func newFakeUsers(users ...types.User) *fakeUsers {
	f := &fakeUsers{byID: map[int]types.User{}}
	for _, u := range users {
		f.byID[u.ID] = u
		if u.ID > f.nextID {
			f.nextID = u.ID
		}
	}
	return f
}

func (f *fakeUsers) GetByID(_ context.Context, id int) (types.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return u, nil
}

func (f *fakeUsers) GetByUsername(_ context.Context, username string) (types.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		if u.Username == username {
			return u, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (f *fakeUsers) Create(_ context.Context, user types.User) (types.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		if u.Username == user.Username {
			return types.User{}, store.ErrConflict
		}
	}
	f.nextID++
	user.ID = f.nextID
	f.byID[user.ID] = user
	return user, nil
}

func (f *fakeUsers) UpdatePasswordHash(_ context.Context, id int, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return store.ErrNotFound
	}
	u.PasswordHash = hash
	f.byID[id] = u
	return nil
}

// fakeLedger backs both the series and the measurement repository so that
// deleting a series cascades like the real schema.
type fakeLedger struct {
	series       map[int]types.Series
	measurements map[int64]types.Measurement
	nextSeries   int
	nextMeas     int64
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		series:       map[int]types.Series{},
		measurements: map[int64]types.Measurement{},
	}
}

func (l *fakeLedger) seriesRepo() *fakeSeriesRepo { return &fakeSeriesRepo{l} }
func (l *fakeLedger) measurementRepo() *fakeMeasurementRepo { return &fakeMeasurementRepo{l} }

type fakeSeriesRepo struct{ l *fakeLedger }

func (r *fakeSeriesRepo) List(context.Context) ([]types.Series, error) {
	out := make([]types.Series, 0, len(r.l.series))
	for _, s := range r.l.series {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeSeriesRepo) Get(_ context.Context, id int) (types.Series, error) {
	s, ok := r.l.series[id]
	if !ok {
		return types.Series{}, store.ErrNotFound
	}
	return s, nil
}

func (r *fakeSeriesRepo) GetForShare(ctx context.Context, id int) (types.Series, error) {
	return r.Get(ctx, id)
}

func (r *fakeSeriesRepo) GetForUpdate(ctx context.Context, id int) (types.Series, error) {
	return r.Get(ctx, id)
}

func (r *fakeSeriesRepo) Create(_ context.Context, s types.Series) (types.Series, error) {
	r.l.nextSeries++
	s.ID = r.l.nextSeries
	r.l.series[s.ID] = s
	return s, nil
}

func (r *fakeSeriesRepo) Update(_ context.Context, s types.Series) (types.Series, error) {
	if _, ok := r.l.series[s.ID]; !ok {
		return types.Series{}, store.ErrNotFound
	}
	r.l.series[s.ID] = s
	return s, nil
}

func (r *fakeSeriesRepo) Delete(_ context.Context, id int) error {
	if _, ok := r.l.series[id]; !ok {
		return store.ErrNotFound
	}
	delete(r.l.series, id)
	for mid, m := range r.l.measurements {
		if m.SeriesID == id {
			delete(r.l.measurements, mid)
		}
	}
	return nil
}

type fakeMeasurementRepo struct{ l *fakeLedger }

func (r *fakeMeasurementRepo) Query(_ context.Context, filter types.MeasurementFilter) ([]types.Measurement, error) {
	wanted := map[int]bool{}
	for _, id := range filter.SeriesIDs {
		wanted[id] = true
	}
	out := []types.Measurement{}
	for _, m := range r.l.measurements {
		if !wanted[m.SeriesID] {
			continue
		}
		if filter.From != nil && m.Timestamp.Before(*filter.From) {
			continue
		}
		if filter.To != nil && m.Timestamp.After(*filter.To) {
			continue
		}
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].ID < out[j].ID
		}
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out, nil
}

func (r *fakeMeasurementRepo) Get(_ context.Context, id int64) (types.Measurement, error) {
	m, ok := r.l.measurements[id]
	if !ok {
		return types.Measurement{}, store.ErrNotFound
	}
	return m, nil
}

func (r *fakeMeasurementRepo) Create(_ context.Context, m types.Measurement) (types.Measurement, error) {
	if _, ok := r.l.series[m.SeriesID]; !ok {
		return types.Measurement{}, store.ErrForeignKey
	}
	r.l.nextMeas++
	m.ID = r.l.nextMeas
	r.l.measurements[m.ID] = m
	return m, nil
}

func (r *fakeMeasurementRepo) Update(_ context.Context, m types.Measurement) (types.Measurement, error) {
	if _, ok := r.l.measurements[m.ID]; !ok {
		return types.Measurement{}, store.ErrNotFound
	}
	r.l.measurements[m.ID] = m
	return m, nil
}

func (r *fakeMeasurementRepo) Delete(_ context.Context, id int64) error {
	if _, ok := r.l.measurements[id]; !ok {
		return store.ErrNotFound
	}
	delete(r.l.measurements, id)
	return nil
}

type memoryObjects struct {
	objects      map[string][]byte
	contentTypes map[string]string
}

func newMemoryObjects() *memoryObjects {
	return &memoryObjects{objects: map[string][]byte{}, contentTypes: map[string]string{}}
}

func (m *memoryObjects) EnsureBucket(context.Context) error { return nil }

func (m *memoryObjects) Put(_ context.Context, key string, r io.Reader, _ int64, contentType string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.objects[key] = data
	m.contentTypes[key] = contentType
	return nil
}

func (m *memoryObjects) Get(_ context.Context, key string) (io.ReadCloser, error) {
	data, ok := m.objects[key]
	if !ok {
		return nil, storage.ErrObjectNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *memoryObjects) Delete(_ context.Context, key string) error {
	if _, ok := m.objects[key]; !ok {
		return storage.ErrObjectNotFound
	}
	delete(m.objects, key)
	return nil
}

func (m *memoryObjects) Bucket() string { return "test" }
