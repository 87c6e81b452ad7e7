package ratelimit

import (
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/ignite/email-delivery/internal/pkg/httputil"
	"github.com/ignite/email-delivery/internal/pkg/logger"
)

// KeyFunc derives the limiter identifier from a request.
type KeyFunc func(r *http.Request) string

// ClientIP keys requests by remote address. Run chi's RealIP middleware
// first so proxies are honored.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// Middleware rejects requests over maxAttempts per window with 429. A
// limiter error fails open and is logged.
func Middleware(l Limiter, maxAttempts int, window time.Duration, key KeyFunc) func(http.Handler) http.Handler {
	if key == nil {
		key = ClientIP
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			res, err := l.Check(r.Context(), key(r), maxAttempts, window)
			if err != nil {
				logger.Warn("[RateLimiter] check failed, allowing request", "path", r.URL.Path, "error", err)
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(maxAttempts))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(res.ResetAt.Unix(), 10))
			if res.Limited {
				httputil.TooManyRequests(w, res.RetryAfter)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
