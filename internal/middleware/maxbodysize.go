package middleware

import "net/http"

// NewMaxBodySizeHandler limits request bodies to limit bytes. A request that
// announces a larger Content-Length is rejected with 413 before the next
// handler runs; a body without a length is wrapped in http.MaxBytesReader so
// reading past the limit fails inside the handler.
func NewMaxBodySizeHandler(limit int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > limit {
				writeError(w, http.StatusRequestEntityTooLarge, "payload_too_large", "request body too large")
				return
			}
			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, limit)
			}
			next.ServeHTTP(w, r)
		})
	}
}
