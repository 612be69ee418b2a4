package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gestaozabele/videorelay/internal/auth"
)

type contextKey string

const ContextKeySubject contextKey = "subject"

// Auth valida o token de upload quando UPLOAD_JWT_SECRET está configurado.
// Formulários HTML simples não definem cabeçalhos, então o token também é aceito em ?access_token=.
func Auth(jwtManager *auth.JWTManager, scope string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if jwtManager == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				writeMessage(w, http.StatusUnauthorized, "Missing token")
				return
			}

			claims, err := jwtManager.ParseAndValidate(token)
			if err != nil {
				writeMessage(w, http.StatusUnauthorized, "Invalid token")
				return
			}
			if !claims.HasScope(scope) {
				writeMessage(w, http.StatusForbidden, "Token scope not allowed")
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeySubject, claims.Subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetSubject recupera subject do contexto.
func GetSubject(ctx context.Context) string {
	val, _ := ctx.Value(ContextKeySubject).(string)
	return val
}

func bearerToken(r *http.Request) string {
	parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return strings.TrimSpace(parts[1])
	}
	return strings.TrimSpace(r.URL.Query().Get("access_token"))
}
