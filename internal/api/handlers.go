package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/myfview/internal/myfileservice"
)

// Handler holds API route handlers.
type Handler struct {
	svc *myfileservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *myfileservice.Service) *Handler {
	return &Handler{svc: svc}
}

// ListMyfiles handles GET /api/myfiles.
//
//	@Summary		List indexed myfiles with pagination
//	@Tags			myfiles
//	@Produce		json
//	@Param			limit	query		int	false	"Page size"
//	@Param			offset	query		int	false	"Page offset"
//	@Success		200		{object}	MyfileListResponse
//	@Router			/myfiles [get]
func (h *Handler) ListMyfiles(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	items, total, err := h.svc.ListMyfiles(r.Context(), limit, offset)
	if err != nil {
		handleError(w, r, "list myfiles", err)
		return
	}
	if items == nil {
		items = []MyfileListItem{}
	}
	writeJSON(w, http.StatusOK, MyfileListResponse{Myfiles: items, Total: total})
}

// GetMyfile handles GET /api/myfiles/{name}.
//
//	@Summary		Get a single myfile with private fields removed
//	@Tags			myfiles
//	@Produce		json
//	@Param			name	path		string	true	"Identifier"
//	@Success		200		{object}	MyfileDetail
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Router			/myfiles/{name} [get]
func (h *Handler) GetMyfile(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	d, err := h.svc.GetMyfile(r.Context(), name)
	if err != nil {
		handleError(w, r, "get myfile", err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// Search handles GET /api/search.
//
//	@Summary		Full-text search across myfiles
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		writeError(w, r, http.StatusBadRequest, codeInvalidQuery, "query parameter 'q' is required")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.svc.Search(r.Context(), q, limit)
	if err != nil {
		handleError(w, r, "search", err)
		return
	}
	out := make([]SearchResult, len(results))
	for i, res := range results {
		out[i] = SearchResult{Name: res.Name, DisplayName: res.DisplayName, Snippet: res.Snippet}
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: out})
}

// Formats handles GET /api/formats.
//
//	@Summary		List output formats and the aliases that select them
//	@Tags			formats
//	@Produce		json
//	@Success		200	{object}	FormatsResponse
//	@Router			/formats [get]
func (h *Handler) Formats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, FormatsResponse{Formats: FormatAliases()})
}
