package middleware

import (
	"context"
	"net/http"
	"strings"
)

// IdentityHeader carries the authenticated user's email, set by the
// identity-aware proxy in front of this service. Account management and
// federation live outside this system.
const IdentityHeader = "X-User-Email"

type contextKey string

const userKey contextKey = "user"

// Identity extracts the caller's identity from the request header and
// stores it in the context. Requests without an identity pass through;
// handlers that need one use RequireUser.
func Identity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := strings.TrimSpace(r.Header.Get(IdentityHeader))
		if user != "" {
			r = r.WithContext(context.WithValue(r.Context(), userKey, user))
		}
		next.ServeHTTP(w, r)
	})
}

// UserFrom returns the identity stored by Identity, or "".
func UserFrom(ctx context.Context) string {
	user, _ := ctx.Value(userKey).(string)
	return user
}

// RequireUser returns the caller's identity, writing a 401 and returning
// false when the request carries none.
func RequireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	user := UserFrom(r.Context())
	if user == "" {
		WriteError(w, http.StatusUnauthorized, ErrUnauthorized, "Missing "+IdentityHeader+" header")
		return "", false
	}
	return user, true
}
