package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/user-aditi/face-attendance-system/internal/attendance"
	"github.com/user-aditi/face-attendance-system/internal/database"
)

// StudentsHandler serves roster CRUD and name search.
type StudentsHandler struct {
	service *attendance.Service
}

// NewStudentsHandler creates a students handler.
func NewStudentsHandler(service *attendance.Service) *StudentsHandler {
	return &StudentsHandler{service: service}
}

// List returns the roster, or a name search when ?name= is given. The search
// is diacritics- and case-insensitive.
func (h *StudentsHandler) List(w http.ResponseWriter, r *http.Request) {
	var (
		students []database.Student
		err      error
	)
	if name := r.URL.Query().Get("name"); name != "" {
		students, err = h.service.SearchStudents(r.Context(), name)
	} else {
		students, err = h.service.Students().List(r.Context())
	}
	if err != nil {
		log.Printf("listing students failed: %v", err)
		respondError(w, http.StatusInternalServerError, "listing students failed")
		return
	}
	if students == nil {
		students = []database.Student{}
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"students": students,
		"count":    len(students),
	})
}

// Get returns one student by id.
func (h *StudentsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	student, err := h.service.Students().Get(r.Context(), id)
	if err != nil {
		log.Printf("getting student %s failed: %v", sanitizeForLog(id), err)
		respondError(w, http.StatusInternalServerError, "getting student failed")
		return
	}
	if student == nil {
		respondError(w, http.StatusNotFound, "student not found")
		return
	}
	respondJSON(w, http.StatusOK, student)
}

// CreateStudentRequest is the registration payload.
type CreateStudentRequest struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Major   string `json:"major"`
	Section string `json:"section"`
	Year    int    `json:"year"`
}

// Create registers a new student with a clean daily state.
func (h *StudentsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateStudentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	if req.ID == "" || req.Name == "" {
		respondError(w, http.StatusBadRequest, "id and name are required")
		return
	}

	student := database.Student{
		ID:      req.ID,
		Name:    req.Name,
		Major:   req.Major,
		Section: req.Section,
		Year:    req.Year,
	}
	if err := h.service.Students().Create(r.Context(), &student); err != nil {
		log.Printf("creating student %s failed: %v", sanitizeForLog(req.ID), err)
		respondError(w, http.StatusInternalServerError, "creating student failed")
		return
	}
	respondJSON(w, http.StatusCreated, student)
}

// Delete removes a student; embeddings and history cascade away.
func (h *StudentsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.service.Students().Delete(r.Context(), id); err != nil {
		if errors.Is(err, database.ErrUnknownStudent) {
			respondError(w, http.StatusNotFound, "student not found")
			return
		}
		log.Printf("deleting student %s failed: %v", sanitizeForLog(id), err)
		respondError(w, http.StatusInternalServerError, "deleting student failed")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"deleted": id})
}
