package metrics

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScrapeIncludesGatewayCollectors(t *testing.T) {
	m := New(func() int { return 7 })
	m.Requests.WithLabelValues("/v1/chat", "200").Inc()
	m.AdmissionDenied.WithLabelValues("chat").Add(3)
	m.UpstreamErrors.WithLabelValues("timeout").Inc()
	m.StreamChunks.Add(42)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, `modelgate_requests_total{route="/v1/chat",status="200"} 1`)
	assert.Contains(t, body, `modelgate_admission_denied_total{class="chat"} 3`)
	assert.Contains(t, body, `modelgate_upstream_errors_total{kind="timeout"} 1`)
	assert.Contains(t, body, `modelgate_stream_chunks_total 42`)
	assert.Contains(t, body, `modelgate_ratelimit_buckets 7`)
}

func TestInstancesAreIndependent(t *testing.T) {
	a := New(nil)
	b := New(nil)
	a.StreamChunks.Inc()

	rec := httptest.NewRecorder()
	b.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	assert.Contains(t, rec.Body.String(), "modelgate_stream_chunks_total 0")
}
