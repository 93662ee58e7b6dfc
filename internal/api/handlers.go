// Package api implements the manifold REST API using chi.
package api

import (
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/okvist/manifold/internal/codec"
	"github.com/okvist/manifold/internal/document"
	"github.com/okvist/manifold/internal/format"
	"github.com/okvist/manifold/internal/repo"
	"github.com/okvist/manifold/internal/status"
)

const maxBodyBytes = 10 << 20

// Handler holds API route handlers.
type Handler struct {
	store  *repo.Store
	status *status.DB
	kinds  map[string]struct{}
}

// NewHandler creates a new Handler serving the given record collections.
func NewHandler(store *repo.Store, statusDB *status.DB, kinds []string) *Handler {
	set := make(map[string]struct{}, len(kinds))
	for _, k := range kinds {
		set[k] = struct{}{}
	}
	return &Handler{store: store, status: statusDB, kinds: set}
}

// kind extracts and validates the collection name from the URL.
func (h *Handler) kind(w http.ResponseWriter, r *http.Request) (string, bool) {
	kind := chi.URLParam(r, "kind")
	if _, ok := h.kinds[kind]; !ok {
		writeJSON(w, http.StatusNotFound, errorBody("unknown collection"))
		return "", false
	}
	return kind, true
}

// recordPath extracts the record path from the URL (everything after the
// collection segment). Supports encoded slashes from API clients.
func recordPath(r *http.Request) string {
	raw := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if raw == "" {
		return ""
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// actor returns the identity the change is attributed to in version control.
func actor(r *http.Request) string {
	return r.Header.Get("X-Actor")
}

// ListRecords handles GET /api/{kind}.
func (h *Handler) ListRecords(w http.ResponseWriter, r *http.Request) {
	kind, ok := h.kind(w, r)
	if !ok {
		return
	}
	records, err := h.store.List(r.Context(), kind)
	if err != nil {
		slog.Error("list records failed", slog.String("kind", kind), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"records": records,
		"total":   len(records),
	})
}

// GetRecord handles GET /api/{kind}/*. With ?format=info it returns format
// detection info instead of the decoded document.
func (h *Handler) GetRecord(w http.ResponseWriter, r *http.Request) {
	kind, ok := h.kind(w, r)
	if !ok {
		return
	}
	path := recordPath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}

	if r.URL.Query().Get("format") == "info" {
		info, err := h.store.FormatInfo(r.Context(), kind, path)
		if err != nil {
			slog.Error("format info failed", slog.String("kind", kind), slog.String("path", path), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
			return
		}
		writeJSON(w, http.StatusOK, info)
		return
	}

	doc, err := h.store.Read(r.Context(), kind, path)
	if err != nil {
		if errors.Is(err, repo.ErrDoesNotExist) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		} else {
			slog.Error("read record failed", slog.String("kind", kind), slog.String("path", path), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// CreateRecord handles POST /api/{kind}/*. The optional request body is raw
// YAML or plist content used as the initial document; with no body the
// collection's default skeleton is materialized.
func (h *Handler) CreateRecord(w http.ResponseWriter, r *http.Request) {
	kind, ok := h.kind(w, r)
	if !ok {
		return
	}
	path := recordPath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read body"))
		return
	}

	var initial *document.Document
	if len(strings.TrimSpace(string(body))) > 0 {
		res := codec.Decode(body, format.Detect(path, body))
		if res.Degraded {
			writeJSON(w, http.StatusBadRequest, errorBody("body parsed as neither YAML nor plist"))
			return
		}
		initial = res.Doc
	}

	content, err := h.store.Create(r.Context(), kind, path, actor(r), initial)
	if err != nil {
		if errors.Is(err, repo.ErrAlreadyExists) {
			writeJSON(w, http.StatusConflict, errorBody("record already exists"))
		} else {
			slog.Error("create record failed", slog.String("kind", kind), slog.String("path", path), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{
		"kind":    kind,
		"path":    path,
		"content": content,
	})
}

// WriteRecord handles PUT /api/{kind}/*. The request body is written
// verbatim: it is expected to be pre-serialized YAML or plist text.
func (h *Handler) WriteRecord(w http.ResponseWriter, r *http.Request) {
	kind, ok := h.kind(w, r)
	if !ok {
		return
	}
	path := recordPath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read body"))
		return
	}
	if len(body) == 0 {
		writeJSON(w, http.StatusBadRequest, errorBody("body is required"))
		return
	}

	if err := h.store.WriteText(r.Context(), kind, path, actor(r), string(body)); err != nil {
		slog.Error("write record failed", slog.String("kind", kind), slog.String("path", path), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"kind": kind,
		"path": path,
	})
}

// DeleteRecord handles DELETE /api/{kind}/*.
func (h *Handler) DeleteRecord(w http.ResponseWriter, r *http.Request) {
	kind, ok := h.kind(w, r)
	if !ok {
		return
	}
	path := recordPath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	if err := h.store.Delete(r.Context(), kind, path, actor(r)); err != nil {
		if errors.Is(err, repo.ErrDoesNotExist) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		} else {
			slog.Error("delete record failed", slog.String("kind", kind), slog.String("path", path), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetProcessStatus handles GET /api/process/{name}.
func (h *Handler) GetProcessStatus(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	row, err := h.status.Get(name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, errorBody("no status for process"))
		} else {
			slog.Error("process status failed", slog.String("name", name), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusOK, row)
}
