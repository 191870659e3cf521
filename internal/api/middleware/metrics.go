package middleware

import (
	"net/http"
	"sync/atomic"
)

// Counters feeds the process metrics endpoint: total requests served and
// responses that finished with a 4xx or 5xx status.
func Counters(requestCount, errorCount *atomic.Int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestCount.Add(1)

			rw := newResponseWriter(w)
			next.ServeHTTP(rw, r)

			if rw.statusCode >= http.StatusBadRequest {
				errorCount.Add(1)
			}
		})
	}
}
