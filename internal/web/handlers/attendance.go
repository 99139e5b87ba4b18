package handlers

import (
	"log"
	"net/http"
	"time"

	"github.com/user-aditi/face-attendance-system/internal/attendance"
	"github.com/user-aditi/face-attendance-system/internal/database"
)

// AttendanceHandler serves the daily reset and the audit log.
type AttendanceHandler struct {
	service *attendance.Service
}

// NewAttendanceHandler creates an attendance handler.
func NewAttendanceHandler(service *attendance.Service) *AttendanceHandler {
	return &AttendanceHandler{service: service}
}

// Reset returns every student to Absent for a fresh day.
func (h *AttendanceHandler) Reset(w http.ResponseWriter, r *http.Request) {
	n, err := h.service.ResetDaily(r.Context())
	if err != nil {
		log.Printf("daily reset failed: %v", err)
		respondError(w, http.StatusInternalServerError, "reset failed")
		return
	}
	respondJSON(w, http.StatusOK, map[string]int64{"students_reset": n})
}

// Events lists the audit log for one calendar date (?date=YYYY-MM-DD,
// defaulting to today), newest first.
func (h *AttendanceHandler) Events(w http.ResponseWriter, r *http.Request) {
	date := time.Now()
	if raw := r.URL.Query().Get("date"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
			return
		}
		date = parsed
	}

	events, err := h.service.EventsByDate(r.Context(), date)
	if err != nil {
		log.Printf("listing attendance events failed: %v", err)
		respondError(w, http.StatusInternalServerError, "listing events failed")
		return
	}
	if events == nil {
		events = []database.AttendanceEvent{}
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"date":   date.Format("2006-01-02"),
		"events": events,
	})
}
