package server

import (
	"context"
	"net/http"
)

// rateLimitContextKey is the context key for rate limit info
type rateLimitContextKey struct{}

// RateLimitInfo carries the limiter decision from the handler to the
// header-writing middleware.
type RateLimitInfo struct {
	Limit     int
	Remaining int
	// Reset is an RFC 3339 timestamp of when a blocked client may retry.
	Reset string
}

// SetRateLimits stores rate limit info in context for the middleware to write as headers.
func SetRateLimits(ctx context.Context, rl *RateLimitInfo) context.Context {
	return context.WithValue(ctx, rateLimitContextKey{}, rl)
}

// GetRateLimits retrieves rate limit info from context.
// Returns nil if no rate limits are set.
func GetRateLimits(ctx context.Context) *RateLimitInfo {
	if rl, ok := ctx.Value(rateLimitContextKey{}).(*RateLimitInfo); ok {
		return rl
	}
	return nil
}

// RateLimitHeaderMiddleware writes x-ratelimit-* headers to responses.
// It seeds the context with a mutable RateLimitInfo that the analyze
// handler fills after consulting the limiter, and writes the headers just
// before the first body or status write. Nothing is written when the
// handler leaves the info empty.
func RateLimitHeaderMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if GetRateLimits(r.Context()) == nil {
			r = r.WithContext(SetRateLimits(r.Context(), &RateLimitInfo{}))
		}
		wrapped := &rateLimitResponseWriter{
			ResponseWriter: w,
			request:        r,
		}
		next.ServeHTTP(wrapped, r)
	})
}

// rateLimitResponseWriter wraps ResponseWriter to write rate limit headers.
type rateLimitResponseWriter struct {
	http.ResponseWriter
	request      *http.Request
	wroteHeaders bool
}

func (rw *rateLimitResponseWriter) WriteHeader(code int) {
	if !rw.wroteHeaders {
		rw.writeRateLimitHeaders()
		rw.wroteHeaders = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *rateLimitResponseWriter) Write(b []byte) (int, error) {
	if !rw.wroteHeaders {
		rw.writeRateLimitHeaders()
		rw.wroteHeaders = true
	}
	return rw.ResponseWriter.Write(b)
}

func (rw *rateLimitResponseWriter) writeRateLimitHeaders() {
	rl, ok := rw.request.Context().Value(rateLimitContextKey{}).(*RateLimitInfo)
	if !ok || rl == nil {
		return
	}

	h := rw.Header()

	if rl.Limit > 0 {
		h.Set("x-ratelimit-limit-requests", itoa(rl.Limit))
		// 0 is a valid remaining value once the limit is known
		h.Set("x-ratelimit-remaining-requests", itoa(rl.Remaining))
	}
	if rl.Reset != "" {
		h.Set("x-ratelimit-reset-requests", rl.Reset)
	}
}

// itoa converts int to string without importing strconv
func itoa(i int) string {
	if i == 0 {
		return "0"
	}

	negative := i < 0
	if negative {
		i = -i
	}

	var buf [20]byte
	pos := len(buf)

	for i > 0 {
		pos--
		buf[pos] = byte('0' + i%10)
		i /= 10
	}

	if negative {
		pos--
		buf[pos] = '-'
	}

	return string(buf[pos:])
}

// Flush forwards Flush to the underlying ResponseWriter if it supports http.Flusher.
func (rw *rateLimitResponseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
