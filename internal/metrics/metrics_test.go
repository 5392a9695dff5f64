package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics(t *testing.T) {
	m := New()

	m.ObserveGeneration("openai", "completed", 2*time.Second)
	m.ObserveGeneration("openai", "fallback", time.Second)
	m.ObserveGeneration("openai", "completed", time.Second)
	m.IncFallback("openai")
	m.IncExportError("claude")
	m.SetAppsStored(4)
	m.SetActive(true)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.GenerationsTotal.WithLabelValues("openai", "completed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FallbacksTotal.WithLabelValues("openai")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ExportErrors.WithLabelValues("claude")))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.AppsStored))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.GenerationActive))

	m.SetActive(false)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.GenerationActive))

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "nbyapp_generation_duration_seconds_count{service=\"openai\"} 3")
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveGeneration("openai", "completed", time.Second)
		m.IncFallback("openai")
		m.IncExportError("openai")
		m.SetActive(true)
		m.SetAppsStored(1)
	})
}
