package middleware

import (
	"net/http"

	apperrors "nestbook/pkg/errors"
	httputil "nestbook/pkg/http"
)

// MaxRequestSize caps request bodies. Declared lengths over the limit are refused
// up front; undeclared ones fail on read, which the JSON decoders report as a bad request.
func MaxRequestSize(limit int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > limit {
				_ = httputil.WriteError(w, apperrors.PayloadTooLarge(limit))
				return
			}
			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, limit)
			}
			next.ServeHTTP(w, r)
		})
	}
}
