package controller

import (
	"context"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

// CallerLimiter is the slice of the rate limiter the middleware needs.
type CallerLimiter interface {
	Check(ctx context.Context, callerID string) (bool, error)
}

// RateLimit denies requests from callers over their window budget.
// Caller identity comes from the X-Caller-ID header the chat transport
// sets; without one the remote address stands in. A limiter store
// outage fails open so a cache blip cannot take the whole API down.
func RateLimit(limiter CallerLimiter, log *logrus.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			callerID := r.Header.Get("X-Caller-ID")
			if callerID == "" {
				callerID = r.RemoteAddr
			}

			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()

			allowed, err := limiter.Check(ctx, callerID)
			if err != nil {
				log.WithError(err).Warn("rate limiter unavailable, allowing request")
			} else if !allowed {
				writeJSON(w, http.StatusTooManyRequests, map[string]string{
					"error": "rate limit exceeded, try again later",
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
