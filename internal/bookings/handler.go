package bookings

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/wolfman30/clinic-booking-assistant/pkg/logging"
)

// Handler serves the admin bookings listing.
type Handler struct {
	service *Service
	logger  *logging.Logger
}

// NewHandler creates the admin bookings handler.
func NewHandler(service *Service, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, logger: logger}
}

type listResponse struct {
	Total    int       `json:"total"`
	Bookings []Booking `json:"bookings"`
}

// List returns bookings as JSON.
// GET /admin/bookings?clinic=&date=
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	rows, ok := h.load(w, r)
	if !ok {
		return
	}
	if rows == nil {
		rows = []Booking{}
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(listResponse{Total: len(rows), Bookings: rows}); err != nil {
		h.logger.Error("failed to encode bookings", "error", err)
	}
}

// ExportCSV streams bookings as a CSV download.
// GET /admin/bookings.csv?clinic=&date=
func (h *Handler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	rows, ok := h.load(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="bookings.csv"`)
	if err := WriteCSV(w, rows); err != nil {
		h.logger.Error("failed to write bookings csv", "error", err)
	}
}

func (h *Handler) load(w http.ResponseWriter, r *http.Request) ([]Booking, bool) {
	q := r.URL.Query()
	f := Filter{
		Clinic: strings.TrimSpace(q.Get("clinic")),
		Date:   strings.TrimSpace(q.Get("date")),
	}
	rows, err := h.service.List(r.Context(), f)
	if err != nil {
		h.logger.Error("failed to list bookings", "error", err)
		http.Error(w, `{"error": "internal server error"}`, http.StatusInternalServerError)
		return nil, false
	}
	return rows, true
}
