package middleware

import (
	"net/http"
	"strings"

	"github.com/go-chi/cors"

	"github.com/shashiranjanraj/tagcatalog/config"
)

// CORS allows browser clients from CORS_ORIGINS (comma separated, default *).
func CORS() func(http.Handler) http.Handler {
	origins := strings.Split(config.Get("CORS_ORIGINS", "*"), ",")
	for i := range origins {
		origins[i] = strings.TrimSpace(origins[i])
	}

	return cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	})
}
