package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/clinic-booking-assistant/pkg/logging"
)

const maxUploadMemory = 32 << 20

// Builder rebuilds derived state after the library changes.
type Builder interface {
	Rebuild(ctx context.Context) (RebuildResult, error)
}

// Handler serves document upload, listing and removal.
type Handler struct {
	library *Library
	mirror  Mirror
	builder Builder
	logger  *logging.Logger
}

// NewHandler creates the documents handler. mirror may be nil.
func NewHandler(library *Library, mirror Mirror, builder Builder, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{library: library, mirror: mirror, builder: builder, logger: logger}
}

type documentsResponse struct {
	Documents []Document     `json:"documents"`
	Rebuild   *RebuildResult `json:"rebuild,omitempty"`
}

// List handles GET /documents.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	docs, err := h.library.List()
	if err != nil {
		h.logger.Error("failed to list documents", "error", err)
		http.Error(w, "Failed to list documents", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, http.StatusOK, documentsResponse{Documents: docs})
}

// Upload handles POST /documents with one or more multipart "files".
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		http.Error(w, "Invalid multipart form", http.StatusBadRequest)
		return
	}
	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		http.Error(w, "No files uploaded", http.StatusBadRequest)
		return
	}

	// Validate every name before storing anything.
	for _, fh := range files {
		if _, err := CleanName(fh.Filename); err != nil {
			http.Error(w, fh.Filename+": "+err.Error(), http.StatusBadRequest)
			return
		}
	}

	stored := make([]Document, 0, len(files))
	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			h.logger.Error("failed to open upload", "document", fh.Filename, "error", err)
			http.Error(w, "Failed to read upload", http.StatusBadRequest)
			return
		}
		doc, err := h.library.Save(fh.Filename, f)
		f.Close()
		if err != nil {
			h.logger.Error("failed to store upload", "document", fh.Filename, "error", err)
			http.Error(w, "Failed to store document", http.StatusInternalServerError)
			return
		}
		if h.mirror != nil {
			if err := h.mirror.Upload(r.Context(), h.library, doc.Name); err != nil {
				h.logger.Warn("failed to mirror document", "document", doc.Name, "error", err)
			}
		}
		stored = append(stored, doc)
	}

	result, ok := h.rebuild(w, r)
	if !ok {
		return
	}
	h.writeJSON(w, http.StatusCreated, documentsResponse{Documents: stored, Rebuild: &result})
}

// Remove handles DELETE /documents/{name}.
func (h *Handler) Remove(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := h.library.Remove(name); err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			http.Error(w, "Document not found", http.StatusNotFound)
		case errors.Is(err, ErrInvalidName), errors.Is(err, ErrUnsupportedFile):
			http.Error(w, err.Error(), http.StatusBadRequest)
		default:
			h.logger.Error("failed to remove document", "document", name, "error", err)
			http.Error(w, "Failed to remove document", http.StatusInternalServerError)
		}
		return
	}
	if h.mirror != nil {
		if err := h.mirror.Delete(r.Context(), name); err != nil {
			h.logger.Warn("failed to delete mirrored document", "document", name, "error", err)
		}
	}

	result, ok := h.rebuild(w, r)
	if !ok {
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

func (h *Handler) rebuild(w http.ResponseWriter, r *http.Request) (RebuildResult, bool) {
	result, err := h.builder.Rebuild(r.Context())
	if err != nil {
		h.logger.Error("failed to rebuild clinic directory", "error", err)
		http.Error(w, "Failed to process documents", http.StatusInternalServerError)
		return RebuildResult{}, false
	}
	return result, true
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to write JSON response", "error", err)
	}
}
