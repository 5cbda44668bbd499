package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

var defaultCORSOrigins = []string{"http://localhost:3000"}

// CORS applies the allowed origin policy for the desk front end.
func CORS(origins []string) func(http.Handler) http.Handler {
	if len(origins) == 0 {
		origins = defaultCORSOrigins
	}
	return cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "Idempotency-Key", "X-Client-Id", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id", "X-LibraryDesk-Env"},
		AllowCredentials: false,
		MaxAge:           300,
	}).Handler
}
