package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

type Middleware func(http.Handler) http.Handler

func Chain(h http.Handler, m ...Middleware) http.Handler {
	// Apply in reverse so Chain(h, a, b) becomes a(b(h)).
	for i := len(m) - 1; i >= 0; i-- {
		h = m[i](h)
	}
	return h
}

// WithBodyLimit caps request bodies at limitBytes. Requests that declare a
// larger Content-Length are refused with 413 before any handler runs; bodies
// of unknown length are cut off while being read.
func WithBodyLimit(limitBytes int64) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > limitBytes {
				WriteError(w, http.StatusRequestEntityTooLarge, "validation", "request body too large")
				return
			}
			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, limitBytes)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// timeoutGrace is how long a handler may overrun its context deadline
// before the response is cut off.
const timeoutGrace = time.Second

// WithTimeout gives every request a context deadline of d, so store calls
// abort and handlers report the timeout through their own error mapping.
// A handler that ignores its context is answered with a 503 JSON error once
// the grace period has also passed.
func WithTimeout(d time.Duration) Middleware {
	body, _ := json.Marshal(ErrorBody{Error: "request timed out", Kind: "timeout"})
	return func(next http.Handler) http.Handler {
		bounded := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
		return http.TimeoutHandler(bounded, d+timeoutGrace, string(body))
	}
}
