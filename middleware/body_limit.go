package middleware

import (
	"net/http"

	"github.com/gorilla/mux"
)

// BodyLimit returns gorilla/mux middleware that caps the request body at
// maxBytes using http.MaxBytesReader. Reads past the limit fail, so JSON
// decoding of oversized payloads errors out instead of buffering them.
func BodyLimit(maxBytes int64) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}
