// Package api implements the myfview directory API using chi.
package api

import (
	"net/http"

	"github.com/go-chi/cors"
)

// CORS returns middleware allowing read-only cross-origin access from the
// given origins. An empty list allows any origin.
func CORS(origins []string) func(http.Handler) http.Handler {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodHead, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "Last-Event-ID"},
		MaxAge:         300,
	})
}
