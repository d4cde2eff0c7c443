package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_RegistersWithNamespace(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New("loadermcp", reg)

	m.ObserveSearch("success", 20*time.Millisecond, 40)
	m.SearchDegraded()
	m.ObserveEmbedding("ollama", "success", time.Second)
	m.ObserveEmbedding("ollama", "error", time.Second)
	m.EmbeddingCache(true)
	m.SessionTransition("Uninitialized", "Negotiating")
	m.FrameEmitted("partial")
	m.InFlight(1)

	families, err := reg.Gather()
	require.NoError(t, err)

	names := map[string]bool{}
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["loadermcp_search_requests_total"])
	assert.True(t, names["loadermcp_search_degraded_total"])
	assert.True(t, names["loadermcp_embedding_requests_total"])
	assert.True(t, names["loadermcp_session_transitions_total"])
	assert.True(t, names["loadermcp_frames_emitted_total"])

	assert.Equal(t, 1.0, testutil.ToFloat64(m.SearchRequestsTotal.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EmbeddingRequestsTotal.WithLabelValues("ollama", "error")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.EmbeddingDuration))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SessionInFlight))
}

func TestNilMetrics_NoPanic(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.ObserveSearch("error", time.Second, 0)
		m.SearchDegraded()
		m.ObserveEmbedding("openai", "success", time.Second)
		m.EmbeddingCache(false)
		m.SessionTransition("a", "b")
		m.InFlight(-1)
		m.FrameEmitted("result")
	})

	h := m.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", http.NoBody))
	assert.Equal(t, http.StatusTeapot, rr.Code)
}

func TestMiddleware_RecordsRoutePattern(t *testing.T) {
	m := New("test", nil)

	r := chi.NewRouter()
	r.Use(m.Middleware())
	r.Post("/mcp", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	})
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	for _, req := range []*http.Request{
		httptest.NewRequest(http.MethodPost, "/mcp", http.NoBody),
		httptest.NewRequest(http.MethodGet, "/healthz", http.NoBody),
	} {
		r.ServeHTTP(httptest.NewRecorder(), req)
	}

	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("POST", "/mcp", "202")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/healthz", "200")))
}

func TestStatusWriter_Flush(t *testing.T) {
	rr := httptest.NewRecorder()
	w := &statusWriter{ResponseWriter: rr, status: http.StatusOK}

	_, _ = w.Write([]byte("x"))
	w.Flush()

	assert.True(t, rr.Flushed)
}
