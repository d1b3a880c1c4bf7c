// AngelaMos | 2026
// server_test.go

package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/carterperez-dev/voice-tutor/internal/config"
	"github.com/carterperez-dev/voice-tutor/internal/health"
)

type okPinger struct{}

func (okPinger) Ping(context.Context) error { return nil }

func newTestServer(mw ...func(http.Handler) http.Handler) *Server {
	return New(Config{
		ServerConfig:  config.ServerConfig{Host: "127.0.0.1", Port: 0, ShutdownTimeout: time.Second},
		HealthHandler: health.NewHandler(okPinger{}),
		Middlewares:   mw,
	})
}

func TestBuiltInRoutes(t *testing.T) {
	srv := newTestServer()

	for _, path := range []string{"/healthz", "/readyz", "/metrics"} {
		rec := httptest.NewRecorder()
		srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}

func TestMiddlewaresWrapLaterRoutes(t *testing.T) {
	tag := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Tagged", "yes")
			next.ServeHTTP(w, r)
		})
	}
	srv := newTestServer(tag)
	srv.Router().Get("/extra", func(w http.ResponseWriter, r *http.Request) {})

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/extra", nil))
	assert.Equal(t, "yes", rec.Header().Get("X-Tagged"))
}

func TestRecovererCatchesPanics(t *testing.T) {
	srv := newTestServer()
	srv.Router().Get("/boom", func(w http.ResponseWriter, r *http.Request) { panic("boom") })

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestShutdownMarksHealthDown(t *testing.T) {
	srv := newTestServer()

	assert.NoError(t, srv.Shutdown(context.Background(), 0))

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/livez", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
