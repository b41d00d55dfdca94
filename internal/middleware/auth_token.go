package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"cashbox-api/internal/models"
)

type ctxKey string

const (
	TokenKey     ctxKey = "authToken"
	PrincipalKey ctxKey = "principal"
)

// ExtractToken middleware: reads Authorization OR ?token=
func ExtractToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := ""

		if auth := r.Header.Get("Authorization"); auth != "" {
			if strings.HasPrefix(strings.ToLower(auth), "bearer ") {
				auth = auth[7:]
			}
			token = strings.TrimSpace(auth)
		} else if q := r.URL.Query().Get("token"); q != "" {
			// legacy clients
			token = q
		}

		ctx := context.WithValue(r.Context(), TokenKey, token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func GetToken(r *http.Request) string {
	token, _ := r.Context().Value(TokenKey).(string)
	return token
}

// UserLookup resolves a bearer token to a user; nil means unknown.
type UserLookup interface {
	GetUserByToken(ctx context.Context, token string) (*models.User, error)
}

// RequirePrincipal rejects requests whose token does not resolve to a user and
// stores the caller's principal in the request context.
func RequirePrincipal(users UserLookup, log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := users.GetUserByToken(r.Context(), GetToken(r))
			if err != nil {
				log.Error("resolve token", zap.Error(err))
				deny(w, http.StatusInternalServerError, "internal error")
				return
			}
			if user == nil {
				deny(w, http.StatusUnauthorized, "invalid token")
				return
			}
			ctx := context.WithValue(r.Context(), PrincipalKey, user.Principal())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetPrincipal returns the caller set by RequirePrincipal.
func GetPrincipal(r *http.Request) (models.Principal, bool) {
	p, ok := r.Context().Value(PrincipalKey).(models.Principal)
	return p, ok
}

func deny(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"status": "error", "error": msg})
}
