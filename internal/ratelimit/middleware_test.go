package ratelimit

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type failingLimiter struct{}

func (failingLimiter) Check(context.Context, string, int, time.Duration) (Result, error) {
	return Result{}, errors.New("redis down")
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestMiddleware_LimitsByClientIP(t *testing.T) {
	l, _ := newTestLimiter(t)
	h := Middleware(l, 2, time.Minute, nil)(okHandler())

	do := func(addr string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/email/unsubscribe/marketing/x", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusOK, do("192.0.2.1:1234").Code)
	rec := do("192.0.2.1:5678")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))

	rec = do("192.0.2.1:9999")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))

	assert.Equal(t, http.StatusOK, do("192.0.2.2:1234").Code)
}

func TestMiddleware_FailsOpen(t *testing.T) {
	h := Middleware(failingLimiter{}, 1, time.Minute, nil)(okHandler())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "203.0.113.5:4431"
	assert.Equal(t, "203.0.113.5", ClientIP(req))

	req.RemoteAddr = "203.0.113.5"
	assert.Equal(t, "203.0.113.5", ClientIP(req))
}
