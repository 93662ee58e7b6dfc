package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/okvist/manifold/internal/repo"
	"github.com/okvist/manifold/internal/status"
)

// NewRouter creates a chi router with all API routes mounted.
// kinds is the set of record collections the API serves.
// sseHandler, if non-nil, is mounted at GET /events.
func NewRouter(store *repo.Store, statusDB *status.DB, kinds []string, sseHandler http.Handler) chi.Router {
	h := NewHandler(store, statusDB, kinds)

	r := chi.NewRouter()

	// Process status polling (used while long listings run).
	r.Get("/process/{name}", h.GetProcessStatus)

	// SSE record change events.
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	// Record CRUD per collection.
	r.Get("/{kind}", h.ListRecords)
	r.Get("/{kind}/*", h.GetRecord)
	r.Post("/{kind}/*", h.CreateRecord)
	r.Put("/{kind}/*", h.WriteRecord)
	r.Delete("/{kind}/*", h.DeleteRecord)

	return r
}
