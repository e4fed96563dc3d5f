package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/voxelgen/internal/chunkgen"
)

type fakeSource struct {
	mu    sync.Mutex
	calls []string
	blob  []byte
	err   error
}

func (f *fakeSource) Blob(_ context.Context, patchKey string, rng chunkgen.Range) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, patchKey+"/"+string(rng))
	return f.blob, f.err
}

func newServer(src ChunkSource) *RestServer {
	return NewRestServer(Config{
		Chunks:   src,
		Registry: prometheus.NewRegistry(),
		Stats: func() map[string]any {
			return map[string]any{"pool": map[string]int{"workers": 2}}
		},
	})
}

func do(rs *RestServer, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	rs.Router().ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	w := do(newServer(nil), httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
}

func TestStats(t *testing.T) {
	w := do(newServer(nil), httptest.NewRequest(http.MethodGet, "/api/stats", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Success bool                       `json:"success"`
		Data    map[string]json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Contains(t, resp.Data, "pool")
	assert.Contains(t, resp.Data, "server")
	assert.Contains(t, resp.Data, "memory_details")
}

func TestChunksBlobAndETag(t *testing.T) {
	src := &fakeSource{blob: []byte("blob-bytes")}
	rs := newServer(src)

	w := do(rs, httptest.NewRequest(http.MethodGet, "/api/chunks/1:-2?range=upper", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "blob-bytes", w.Body.String())
	assert.Equal(t, "application/octet-stream", w.Header().Get("Content-Type"))
	etag := w.Header().Get("ETag")
	assert.Equal(t, ETag([]byte("blob-bytes")), etag)

	req := httptest.NewRequest(http.MethodGet, "/api/chunks/1:-2", nil)
	req.Header.Set("If-None-Match", etag)
	w = do(rs, req)
	assert.Equal(t, http.StatusNotModified, w.Code)
	assert.Empty(t, w.Body.Bytes())

	assert.Equal(t, []string{"1:-2/upper", "1:-2/full"}, src.calls)
}

func TestChunksBadRequest(t *testing.T) {
	src := &fakeSource{}
	rs := newServer(src)

	w := do(rs, httptest.NewRequest(http.MethodGet, "/api/chunks/oops", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(rs, httptest.NewRequest(http.MethodGet, "/api/chunks/0:0?range=middle", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, src.calls)
}

func TestChunksGenerationError(t *testing.T) {
	rs := newServer(&fakeSource{err: errors.New("boom")})
	w := do(rs, httptest.NewRequest(http.MethodGet, "/api/chunks/0:0", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	rs = newServer(&fakeSource{err: context.Canceled})
	w = do(rs, httptest.NewRequest(http.MethodGet, "/api/chunks/0:0", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = do(newServer(nil), httptest.NewRequest(http.MethodGet, "/api/chunks/0:0", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	rs := newServer(nil)
	do(rs, httptest.NewRequest(http.MethodGet, "/health", nil))
	w := do(rs, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "voxelgen_http_request_duration_seconds")
}
