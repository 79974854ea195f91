package clinic

import (
	"encoding/json"
	"net/http"

	"github.com/wolfman30/clinic-booking-assistant/pkg/logging"
)

// Handler exposes the current clinic directory over HTTP.
type Handler struct {
	registry *Registry
	logger   *logging.Logger
}

// NewHandler creates a directory HTTP handler.
func NewHandler(registry *Registry, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		registry: registry,
		logger:   logger,
	}
}

// List returns the active snapshot.
// GET /clinics
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	snap := h.registry.Current().Snapshot()
	if snap.Clinics == nil {
		snap.Clinics = []Record{}
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(snap); err != nil {
		h.logger.Error("failed to encode clinic directory", "error", err)
	}
}
