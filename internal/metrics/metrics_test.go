package metrics

import (
	"context"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"offerpilot/pkg/model"
)

func TestObserveItem(t *testing.T) {
	m := New()

	m.ObserveItem(model.OutcomeEnrolled, 1, 2*time.Second)
	m.ObserveItem(model.OutcomeEnrolled, 2, time.Second)
	m.ObserveItem(model.OutcomeRejected, 1, time.Second)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ItemsTotal.WithLabelValues(string(model.OutcomeEnrolled))))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ItemsTotal.WithLabelValues(string(model.OutcomeRejected))))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.Attempts))
}

func TestObserveRound(t *testing.T) {
	m := New()

	m.ObserveRound(3)
	m.ObserveRound(5)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ScanRounds))
	assert.Equal(t, 5.0, testutil.ToFloat64(m.Discovered))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveItem(model.OutcomeTimeout, 1, time.Second)
		m.ObserveRound(1)
	})

	var s *Server
	assert.NoError(t, s.Shutdown(context.Background()))
}

func TestHandlerExposesCollectors(t *testing.T) {
	m := New()
	m.ObserveRound(1)

	rec := httptest.NewRecorder()
	promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{}).ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "offerpilot_scan_rounds_total 1")
	assert.Contains(t, string(body), "offerpilot_discovered_items 1")
}
