package gcs_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	storageConfig "github.com/tigerroll/weather-etl/pkg/batch/adapter/storage/config"
	"github.com/tigerroll/weather-etl/pkg/batch/adapter/storage/gcs"
)

// fakeGCS serves the bucket get/insert calls of the JSON API.
type fakeGCS struct {
	mu      sync.Mutex
	buckets map[string]bool
	created []string
}

func (f *fakeGCS) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")

	switch {
	case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/storage/v1/b/"):
		name := strings.TrimPrefix(r.URL.Path, "/storage/v1/b/")
		if !f.buckets[name] {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":{"code":404,"message":"The specified bucket does not exist."}}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"name": name})
	case r.Method == http.MethodPost && r.URL.Path == "/storage/v1/b":
		var body struct {
			Name string `json:"name"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.buckets[body.Name] = true
		f.created = append(f.created, body.Name+"@"+r.URL.Query().Get("project"))
		_ = json.NewEncoder(w).Encode(map[string]string{"name": body.Name})
	default:
		w.WriteHeader(http.StatusNotImplemented)
	}
}

func newFake(t *testing.T) (*fakeGCS, string) {
	t.Helper()
	fake := &fakeGCS{buckets: map[string]bool{}}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	return fake, srv.URL + "/storage/v1/"
}

func TestEnsureBucketCreatesMissingBucket(t *testing.T) {
	fake, endpoint := newFake(t)
	conn, err := gcs.NewGCSAdapter(storageConfig.StorageConfig{Type: "gcs", Endpoint: endpoint, ProjectID: "weather-project"}, "archive")
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	require.NoError(t, conn.EnsureBucket(context.Background(), "weather-raw"))
	require.NoError(t, conn.EnsureBucket(context.Background(), "weather-raw"))

	fake.mu.Lock()
	defer fake.mu.Unlock()
	assert.Equal(t, []string{"weather-raw@weather-project"}, fake.created)
}

func TestEnsureBucketWithoutProject(t *testing.T) {
	_, endpoint := newFake(t)
	conn, err := gcs.NewGCSAdapter(storageConfig.StorageConfig{Type: "gcs", Endpoint: endpoint}, "archive")
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	err = conn.EnsureBucket(context.Background(), "weather-raw")
	assert.ErrorContains(t, err, "project_id is not configured")
}

func TestNewGCSAdapterBadCredentials(t *testing.T) {
	_, err := gcs.NewGCSAdapter(storageConfig.StorageConfig{Type: "gcs", CredentialsFile: "/nonexistent/key.json"}, "archive")
	assert.Error(t, err)
}
