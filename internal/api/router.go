package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/myfview/internal/myfileservice"
)

// NewRouter creates a chi router with all API routes mounted.
// sseHandler, if non-nil, is mounted at GET /events.
func NewRouter(svc *myfileservice.Service, corsOrigins []string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(CORS(corsOrigins))

	r.Get("/myfiles", h.ListMyfiles)
	r.Get("/myfiles/{name}", h.GetMyfile)
	r.Get("/search", h.Search)
	r.Get("/formats", h.Formats)

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
