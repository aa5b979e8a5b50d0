package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/minhngoc/codepay-backend/internal/api/httpx"
)

// RateLimit is a process-wide token bucket: rps tokens per second, burst
// equal to rps. Zero or negative rps disables limiting. Webhook platforms
// retry rejected deliveries, so shedding under load is safe here.
func RateLimit(rps int) func(http.Handler) http.Handler {
	if rps <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}

	var (
		mu     sync.Mutex
		tokens = float64(rps)
		last   = time.Now()
	)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			mu.Lock()
			now := time.Now()
			tokens += now.Sub(last).Seconds() * float64(rps)
			if tokens > float64(rps) {
				tokens = float64(rps)
			}
			last = now
			allowed := tokens >= 1
			if allowed {
				tokens--
			}
			mu.Unlock()

			if !allowed {
				httpx.WriteError(w, http.StatusTooManyRequests, "rate_limited", "too many requests", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
