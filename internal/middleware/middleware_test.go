// AngelaMos | 2026
// middleware_test.go

package middleware

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func TestRequestIDGeneratesAndPropagates(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.NotEmpty(t, seen)
	assert.Equal(t, seen, rec.Header().Get(RequestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", seen)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, strings.Repeat("x", 200))
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.Len(t, seen, 36)
}

func TestRequireURLSecret(t *testing.T) {
	r := chi.NewRouter()
	r.With(RequireURLSecret("secret", "s3cret")).Post("/hook/{secret}", okHandler)

	cases := map[string]int{
		"/hook/s3cret":  http.StatusOK,
		"/hook/s3cre":   http.StatusNotFound,
		"/hook/s3cretX": http.StatusNotFound,
	}
	for path, want := range cases {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, path, nil))
		assert.Equal(t, want, rec.Code, path)
	}
}

func TestRequireURLSecretEmptyExpected(t *testing.T) {
	r := chi.NewRouter()
	r.With(RequireURLSecret("secret", "")).Post("/hook/{secret}", okHandler)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/hook/anything", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRateLimiterLocalFallback(t *testing.T) {
	rl := NewRateLimiter(nil, RateLimitConfig{
		Limit:     Every(time.Minute, 2, 2),
		KeyPrefix: "test:",
	})
	h := rl.Handler(okHandler)

	send := func(ip string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.RemoteAddr = ip + ":4000"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusOK, send("10.0.0.1").Code)
	assert.Equal(t, http.StatusOK, send("10.0.0.1").Code)

	limited := send("10.0.0.1")
	assert.Equal(t, http.StatusTooManyRequests, limited.Code)
	assert.NotEmpty(t, limited.Header().Get("Retry-After"))
	assert.Equal(t, "2", limited.Header().Get("X-RateLimit-Limit"))

	assert.Equal(t, http.StatusOK, send("10.0.0.2").Code, "keys are per client")
}

func TestRateLimiterInvalidLimit(t *testing.T) {
	t.Run("fail closed", func(t *testing.T) {
		h := NewRateLimiter(nil, RateLimitConfig{}).Handler(okHandler)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})

	t.Run("fail open", func(t *testing.T) {
		h := NewRateLimiter(nil, RateLimitConfig{FailOpen: true}).Handler(okHandler)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestRateLimiterConstantKeySharesBucket(t *testing.T) {
	rl := NewRateLimiter(nil, RateLimitConfig{
		Limit:     Every(time.Minute, 2, 2),
		KeyFunc:   KeyConstant("webhook"),
		KeyPrefix: "test:",
	})
	h := rl.Handler(okHandler)

	send := func(ip string) int {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.RemoteAddr = ip + ":443"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, send("149.154.160.1"))
	assert.Equal(t, http.StatusOK, send("91.108.4.1"))
	assert.Equal(t, http.StatusTooManyRequests, send("203.0.113.9"))
}

func TestKeyByIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.1:1234"
	assert.Equal(t, "ratelimit:ip:192.0.2.1", KeyByIP(req))

	req.Header.Set("X-Real-IP", "198.51.100.7")
	assert.Equal(t, "ratelimit:ip:198.51.100.7", KeyByIP(req))

	req.Header.Set("X-Forwarded-For", "203.0.113.5, 149.154.160.1")
	assert.Equal(t, "ratelimit:ip:149.154.160.1", KeyByIP(req))
}

func TestLoggerPassesThrough(t *testing.T) {
	h := Logger(discardLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusTeapot, rec.Code)
}

func TestLoggerRecordsRoutePatternNotSecret(t *testing.T) {
	var buf bytes.Buffer
	r := chi.NewRouter()
	r.Use(Logger(slog.New(slog.NewJSONHandler(&buf, nil))))
	r.With(RequireURLSecret("secret", "s3cret")).Post("/hook/{secret}", okHandler)

	for _, path := range []string{"/hook/s3cret", "/hook/s3cret/extra"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, path, nil))
	}

	out := buf.String()
	assert.Contains(t, out, `"route":"/hook/{secret}"`)
	assert.NotContains(t, out, "s3cret")
}

func TestRequireURLSecretLogsRoutePattern(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	r := chi.NewRouter()
	r.With(RequireURLSecret("secret", "s3cret")).Post("/hook/{secret}", okHandler)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/hook/s3cretguess", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)

	out := buf.String()
	assert.Contains(t, out, "rejected request with bad secret")
	assert.Contains(t, out, `"route":"/hook/{secret}"`)
	assert.NotContains(t, out, "s3cretguess")
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
