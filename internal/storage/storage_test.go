package storage

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/weatherlogger/apiserver/config"
)

func TestOpenUnknownBackend(t *testing.T) {
	_, err := Open(context.Background(), config.StorageConfig{Backend: "s3"})
	assert.ErrorContains(t, err, `"s3"`)
}

func TestNewMinioClientValidatesConfig(t *testing.T) {
	cases := []struct {
		name string
		cfg  config.MinioConfig
		want string
	}{
		{"no endpoint", config.MinioConfig{}, "endpoint is required"},
		{"no credentials", config.MinioConfig{Endpoint: "localhost:9000", Bucket: "b"}, "secret key are required"},
		{"no bucket", config.MinioConfig{Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "s"}, "bucket is required"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewMinioClient(tc.cfg)
			assert.ErrorContains(t, err, tc.want)
		})
	}
}

func TestOpenDefaultsToMinio(t *testing.T) {
	backend, err := Open(context.Background(), config.StorageConfig{
		Minio: config.MinioConfig{
			Endpoint:  "localhost:9000",
			AccessKey: "minio",
			SecretKey: "minio123",
			Bucket:    "backups",
		},
	})
	require.NoError(t, err)
	assert.IsType(t, &MinioClient{}, backend)
	assert.Equal(t, "backups", backend.Bucket())
}

func TestNewGCSClientRequiresBucket(t *testing.T) {
	_, err := NewGCSClient(context.Background(), config.GCSConfig{})
	assert.ErrorContains(t, err, "gcs bucket is required")
}

// fakeS3 answers HEAD and DELETE for the keys it holds and records every
// request it sees.
type fakeS3 struct {
	mu       sync.Mutex
	objects  map[string]bool
	requests []string
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, r.Method+" "+r.URL.Path)

	key := strings.TrimPrefix(r.URL.Path, "/backups/")
	switch r.Method {
	case http.MethodHead:
		if !f.objects[key] {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Last-Modified", time.Now().UTC().Format(http.TimeFormat))
		w.Header().Set("ETag", `"d41d8cd98f00b204e9800998ecf8427e"`)
		w.Header().Set("Content-Length", "0")
		w.WriteHeader(http.StatusOK)
	case http.MethodDelete:
		delete(f.objects, key)
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusNotImplemented)
	}
}

func (f *fakeS3) seen() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.requests...)
}

func newFakeMinio(t *testing.T, keys ...string) (*MinioClient, *fakeS3) {
	t.Helper()
	fake := &fakeS3{objects: map[string]bool{}}
	for _, k := range keys {
		fake.objects[k] = true
	}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	client, err := minio.New(strings.TrimPrefix(srv.URL, "http://"), &minio.Options{
		Creds:  credentials.NewStaticV4("minio", "minio123", ""),
		Region: "us-east-1",
	})
	require.NoError(t, err)
	return &MinioClient{client: client, bucket: "backups"}, fake
}

func TestMinioDeleteMissingObject(t *testing.T) {
	m, fake := newFakeMinio(t)

	err := m.Delete(context.Background(), "backups/missing.json")
	assert.ErrorIs(t, err, ErrObjectNotFound)
	assert.Equal(t, []string{"HEAD /backups/backups/missing.json"}, fake.seen())
}

func TestMinioDeleteExistingObject(t *testing.T) {
	m, fake := newFakeMinio(t, "backups/2024.json")

	require.NoError(t, m.Delete(context.Background(), "backups/2024.json"))
	assert.Equal(t, []string{
		"HEAD /backups/backups/2024.json",
		"DELETE /backups/backups/2024.json",
	}, fake.seen())
	assert.Empty(t, fake.objects)
}

func TestMinioGetMissingObject(t *testing.T) {
	m, _ := newFakeMinio(t)

	_, err := m.Get(context.Background(), "backups/missing.json")
	assert.ErrorIs(t, err, ErrObjectNotFound)
}
