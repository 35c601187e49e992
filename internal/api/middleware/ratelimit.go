package middleware

import (
	"math"
	"net/http"
	"strconv"

	"github.com/phrazzld/blogtube-api/internal/api/shared"
	"golang.org/x/time/rate"
)

// RateLimit rejects requests beyond limiter's rate with 429 and a
// Retry-After hint. The limiter is shared by every client.
func RateLimit(limiter *rate.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reservation := limiter.Reserve()
			if !reservation.OK() {
				shared.RespondWithError(w, r, http.StatusTooManyRequests, "Too many requests", "RATE_LIMITED")
				return
			}
			if delay := reservation.Delay(); delay > 0 {
				reservation.Cancel()
				w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(delay.Seconds()))))
				shared.RespondWithError(w, r, http.StatusTooManyRequests, "Too many requests", "RATE_LIMITED")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
