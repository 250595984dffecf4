package server

import (
	"context"
	"net/http"
	"time"
)

// TimeoutMiddleware bounds a whole request, which for /v1/analyze spans
// up to three backend attempts plus their backoff delays. Expiry cancels
// the context; cancellation is cooperative, relying on the orchestrator's
// per-attempt contexts and backoff sleeps observing context.Done().
func TimeoutMiddleware(timeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
