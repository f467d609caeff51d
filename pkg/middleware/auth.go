package middleware

import (
	"net/http"

	"nestbook/pkg/auth"
	apperrors "nestbook/pkg/errors"
	httputil "nestbook/pkg/http"
	"nestbook/pkg/logger"
)

// Authenticate resolves the caller identity. Requests without credentials pass
// through anonymously; handlers that need a user reject them. A token that is
// present but invalid is always a 401.
//
// With a nil verifier the X-User-ID header is trusted instead.
func Authenticate(verifier *auth.Verifier, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if verifier == nil {
				if id := r.Header.Get(auth.HeaderUserID); id != "" {
					r = r.WithContext(auth.WithUserID(r.Context(), id))
				}
				next.ServeHTTP(w, r)
				return
			}

			token := auth.BearerToken(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			userID, err := verifier.Verify(token)
			if err != nil {
				log.Warn("Rejected access token",
					"request_id", RequestID(r.Context()),
					"path", r.URL.Path,
					"error", err,
				)
				if writeErr := httputil.WriteError(w, apperrors.Unauthorized("Invalid or expired token")); writeErr != nil {
					log.Error("failed to write error response", "handler", "Authenticate", "operation", "WriteError", "error", writeErr)
				}
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.WithUserID(r.Context(), userID)))
		})
	}
}
