package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/propedge/internal/metrics"
)

type fakePinger struct{ err error }

func (f fakePinger) Ping(context.Context) error { return f.err }

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return l
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealthAndLive(t *testing.T) {
	s := NewServer(Config{ServiceName: "propedge", Version: "1.2.3", Logger: quietLogger()})
	h := s.Handler()

	rec := get(t, h, "/health")
	require.Equal(t, http.StatusOK, rec.Code)
	var body HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, "1.2.3", body.Version)

	assert.Equal(t, http.StatusOK, get(t, h, "/live").Code)
}

func TestReady(t *testing.T) {
	breakerOpen := false
	s := NewServer(Config{
		ServiceName: "propedge",
		Logger:      quietLogger(),
		DB:          fakePinger{},
		Checks: map[string]Check{
			"history_breaker": func(context.Context) error {
				if breakerOpen {
					return errors.New("circuit open")
				}
				return nil
			},
		},
	})
	h := s.Handler()

	assert.Equal(t, http.StatusServiceUnavailable, get(t, h, "/ready").Code)

	s.SetReady(true)
	rec := get(t, h, "/ready")
	require.Equal(t, http.StatusOK, rec.Code)
	var body ReadyResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body.Checks["database"])
	assert.Equal(t, "ok", body.Checks["history_breaker"])

	breakerOpen = true
	rec = get(t, h, "/ready")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "circuit open")
}

func TestReadyDatabaseDown(t *testing.T) {
	s := NewServer(Config{Logger: quietLogger(), DB: fakePinger{err: errors.New("connection refused")}})
	s.SetReady(true)
	rec := get(t, s.Handler(), "/ready")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "connection refused")
}

func TestMetricsEndpoint(t *testing.T) {
	metrics.RecordSkip("insufficient_data")

	s := NewServer(Config{Logger: quietLogger(), MetricsPath: "/metrics"})
	rec := get(t, s.Handler(), "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "propedge_skips_total"))

	s = NewServer(Config{Logger: quietLogger()})
	assert.Equal(t, http.StatusNotFound, get(t, s.Handler(), "/metrics").Code)
}
