package auth

import (
	"net/http"
	"strings"
)

// Identity headers read by the service handlers.
const (
	HeaderUserID     = "X-User-Id"
	HeaderBusinessID = "X-Business-Id"
	HeaderRole       = "X-Role"
)

// RequireAuth verifies the bearer token and replaces any client supplied
// identity headers with the token's claims.
func RequireAuth(v *Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
			if !strings.HasPrefix(authHeader, "Bearer ") || token == "" {
				writeAuthError(w, http.StatusUnauthorized, "missing or invalid Authorization header")
				return
			}

			claims, err := v.Parse(r.Context(), token)
			if err != nil {
				writeAuthError(w, http.StatusUnauthorized, "invalid token")
				return
			}

			r.Header.Del(HeaderUserID)
			r.Header.Del(HeaderBusinessID)
			r.Header.Del(HeaderRole)
			r.Header.Set(HeaderUserID, claims.Subject)
			if claims.BusinessID != "" {
				r.Header.Set(HeaderBusinessID, claims.BusinessID)
			}
			r.Header.Set(HeaderRole, claims.Role)
			next.ServeHTTP(w, r)
		})
	}
}

func RequireRole(roles ...string) func(http.Handler) http.Handler {
	allowed := map[string]struct{}{}
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := allowed[r.Header.Get(HeaderRole)]; !ok {
				writeAuthError(w, http.StatusForbidden, "forbidden")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeAuthError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"error":"` + msg + `","kind":"unauthorized"}`))
}
