package middleware

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/iho/balanceledger/internal/domain"
	"github.com/iho/balanceledger/internal/infrastructure/auth"
)

const (
	// UserIDHeader and UserRoleHeader carry the caller identity when token
	// authentication is disabled, e.g. behind a trusted gateway.
	UserIDHeader   = "X-User-ID"
	UserRoleHeader = "X-User-Role"
)

// TokenVerifier validates bearer tokens.
type TokenVerifier interface {
	Verify(tokenString string) (*auth.Claims, error)
}

// AuthMiddleware authenticates the caller from a bearer token.
func AuthMiddleware(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeError(w, http.StatusUnauthorized, "missing authorization header")
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				writeError(w, http.StatusUnauthorized, "invalid authorization header format")
				return
			}

			claims, err := verifier.Verify(parts[1])
			if err != nil {
				writeError(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}

			user := claims.User()
			recordCaller(r, user)
			next.ServeHTTP(w, r.WithContext(domain.ContextWithUser(r.Context(), user)))
		})
	}
}

// HeaderIdentity takes the caller identity from request headers.
func HeaderIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := strings.TrimSpace(r.Header.Get(UserIDHeader))
		if userID == "" {
			writeError(w, http.StatusUnauthorized, "missing "+UserIDHeader+" header")
			return
		}

		role := domain.RoleUser
		if raw := r.Header.Get(UserRoleHeader); raw != "" {
			role = domain.Role(strings.ToLower(raw))
			if !role.IsValid() {
				writeError(w, http.StatusUnauthorized, "invalid "+UserRoleHeader+" header")
				return
			}
		}

		user := &domain.User{ID: userID, Role: role}
		recordCaller(r, user)
		next.ServeHTTP(w, r.WithContext(domain.ContextWithUser(r.Context(), user)))
	})
}

// RequireRole rejects callers without the given role.
func RequireRole(role domain.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := domain.UserFromContext(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			if role == domain.RoleAdmin && !user.Role.IsAdmin() {
				writeError(w, http.StatusForbidden, "insufficient permissions")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
