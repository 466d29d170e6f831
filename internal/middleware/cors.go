package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

// CORS returns cors.Options for pages on other origins that embed the chat
// widget. With no origins configured every cross-origin request is refused.
// If "*" is present, AllowCredentials is set to false (browsers reject
// Access-Control-Allow-Credentials: true with a wildcard origin).
func CORS(allowedOrigins []string) cors.Options {
	opts := cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	}

	// An empty list means "allow all" to go-chi/cors.
	if len(allowedOrigins) == 0 {
		opts.AllowCredentials = false
		opts.AllowOriginFunc = func(*http.Request, string) bool { return false }
		return opts
	}

	for _, o := range allowedOrigins {
		if o == "*" {
			opts.AllowCredentials = false
			break
		}
	}
	return opts
}
