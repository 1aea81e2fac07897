package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

// localOrigins are the storefront dev servers.
var localOrigins = []string{
	"http://localhost:3000",
	"http://localhost:5173",
}

// CORS allows the local storefront origins plus any configured ones.
func CORS(origins ...string) func(http.Handler) http.Handler {
	allowed := make([]string, 0, len(localOrigins)+len(origins))
	allowed = append(allowed, localOrigins...)
	for _, o := range origins {
		if o != "" {
			allowed = append(allowed, o)
		}
	}
	return cors.Handler(cors.Options{
		AllowedOrigins: allowed,
		AllowedMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodPut,
			http.MethodPatch, http.MethodDelete, http.MethodOptions,
		},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", idempotencyHeader, requestIDHeader},
		ExposedHeaders:   []string{requestIDHeader},
		AllowCredentials: true,
		MaxAge:           600,
	})
}
