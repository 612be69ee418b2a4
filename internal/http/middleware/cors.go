package middleware

import (
	"net/http"

	"github.com/rs/cors"
)

// CORS aplica a política de origens de ALLOW_ORIGINS. "*" libera qualquer origem,
// entradas como https://*.exemplo.com aceitam subdomínios.
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	allowAll := len(allowedOrigins) == 0
	for _, o := range allowedOrigins {
		if o == "*" {
			allowAll = true
		}
	}

	opts := cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type", "X-Upload-ID", "X-Requested-With", "Last-Event-ID"},
		ExposedHeaders: []string{"X-Upload-ID", "X-Request-Id"},
		MaxAge:         600,
	}
	if allowAll {
		opts.AllowedOrigins = []string{"*"}
	} else {
		opts.AllowCredentials = true
	}

	return cors.New(opts).Handler
}
