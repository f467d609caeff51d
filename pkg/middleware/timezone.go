package middleware

import (
	"net/http"

	apperrors "nestbook/pkg/errors"
	httputil "nestbook/pkg/http"
	"nestbook/pkg/locale"
	"nestbook/pkg/logger"
)

// Timezone stores the caller's X-Timezone in the context. "Today" for date checks
// is evaluated there.
func Timezone(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			name := r.Header.Get(locale.TimezoneHeader)
			if name == "" {
				next.ServeHTTP(w, r)
				return
			}

			loc, err := locale.LoadLocation(name)
			if err != nil {
				if writeErr := httputil.WriteError(w, apperrors.InvalidInput("invalid "+locale.TimezoneHeader+" header: "+name)); writeErr != nil {
					log.Error("failed to write error response", "handler", "Timezone", "operation", "WriteError", "error", writeErr)
				}
				return
			}

			next.ServeHTTP(w, r.WithContext(locale.WithLocation(r.Context(), loc)))
		})
	}
}
