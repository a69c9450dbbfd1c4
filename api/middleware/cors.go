package middleware

import (
	"net/http"
	"slices"

	"github.com/go-chi/cors"
)

// CORS applies the storefront origin policy. Credentials are only allowed
// for an explicit origin list; a "*" entry turns them off.
func CORS(origins []string) func(http.Handler) http.Handler {
	wildcard := slices.Contains(origins, "*")
	return cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", IdempotencyKeyHeader, RequestIDHeader},
		ExposedHeaders:   []string{RequestIDHeader, ReplayedHeader, "Retry-After"},
		AllowCredentials: !wildcard,
		MaxAge:           300,
	})
}
