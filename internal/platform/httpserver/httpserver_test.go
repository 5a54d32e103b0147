package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wires/internal/platform/middleware"
)

func serve(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
	return rr
}

func TestOpsRouter_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	promauto.With(reg).NewCounter(prometheus.CounterOpts{Name: "wires_test_total", Help: "test"}).Inc()

	rr := serve(t, NewOpsRouter(reg, nil), "/metrics")

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "wires_test_total 1")
}

func TestOpsRouter_Healthz(t *testing.T) {
	t.Run("all checks pass", func(t *testing.T) {
		checks := map[string]HealthCheck{
			"redis":    func(context.Context) error { return nil },
			"postgres": nil,
		}
		rr := serve(t, NewOpsRouter(prometheus.NewRegistry(), checks), "/healthz")

		assert.Equal(t, http.StatusOK, rr.Code)
		var body map[string]string
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
		assert.Equal(t, map[string]string{"redis": "ok"}, body)
	})

	t.Run("failing check reports unavailable", func(t *testing.T) {
		checks := map[string]HealthCheck{
			"redis": func(context.Context) error { return errors.New("connection refused") },
		}
		rr := serve(t, NewOpsRouter(prometheus.NewRegistry(), checks), "/healthz")

		assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
		assert.Contains(t, rr.Body.String(), "connection refused")
	})
}

func TestOpsRouter_RequestLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	h := NewOpsRouter(prometheus.NewRegistry(), nil,
		middleware.WithLogger(logger),
		middleware.WithQuietPaths("/metrics"),
	)

	serve(t, h, "/metrics")
	assert.Empty(t, buf.String())

	serve(t, h, "/healthz")
	assert.Contains(t, buf.String(), "path=/healthz")
	assert.Contains(t, buf.String(), "status=200")
}

func TestNew(t *testing.T) {
	srv := New(":0", http.NotFoundHandler())
	assert.Equal(t, ":0", srv.Addr)
	assert.NotZero(t, srv.ReadHeaderTimeout)
}
