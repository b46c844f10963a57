package server

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/time/rate"
)

// RateLimitMiddleware applies one token bucket to every request it wraps.
// A zero limit disables it. Rejected requests get 429 with Retry-After.
func RateLimitMiddleware(limit rate.Limit, burst int) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if limit <= 0 {
			return next
		}
		limiter := rate.NewLimiter(limit, burst)
		limitHeader := strconv.FormatFloat(float64(limit), 'f', -1, 64)

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			now := time.Now()
			reservation := limiter.ReserveN(now, 1)
			if !reservation.OK() {
				reject(w, time.Second, limitHeader)
				return
			}
			if delay := reservation.DelayFrom(now); delay > 0 {
				reservation.CancelAt(now)
				reject(w, delay, limitHeader)
				return
			}

			w.Header().Set("X-RateLimit-Limit", limitHeader)
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(int(math.Max(0, limiter.TokensAt(now)))))
			next.ServeHTTP(w, r)
		})
	}
}

func reject(w http.ResponseWriter, retryAfter time.Duration, limitHeader string) {
	rateLimitRejects.Inc()
	seconds := int(math.Ceil(retryAfter.Seconds()))
	if seconds < 1 {
		seconds = 1
	}
	w.Header().Set("Retry-After", strconv.Itoa(seconds))
	w.Header().Set("X-RateLimit-Limit", limitHeader)
	w.Header().Set("X-RateLimit-Remaining", "0")
	writeErrorDetail(w, http.StatusTooManyRequests, errTypeRateLimited, "rate limit exceeded")
}
