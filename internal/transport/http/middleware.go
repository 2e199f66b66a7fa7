package http

import (
	"context"
	"net/http"
	"strings"

	"quiz-session-engine/internal/domain"
)

// Authenticator verifies a credential and identifies the caller.
type Authenticator interface {
	Verify(credential string) (domain.Identity, error)
}

type identityKey struct{}

// IdentityFromContext returns the identity stored by RequireIdentity.
func IdentityFromContext(ctx context.Context) (domain.Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(domain.Identity)
	return id, ok
}

// RequireIdentity authenticates the request before calling next. The credential
// comes from the Authorization header or, for browser websockets, the token query parameter.
func RequireIdentity(auth Authenticator, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		credential := strings.TrimSpace(strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer "))
		if credential == "" {
			credential = r.URL.Query().Get("token")
		}
		if credential == "" {
			writeJSONError(w, http.StatusUnauthorized, "missing access token")
			return
		}
		id, err := auth.Verify(credential)
		if err != nil {
			writeJSONError(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), identityKey{}, id)))
	})
}
