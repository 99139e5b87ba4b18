package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/user-aditi/face-attendance-system/internal/database"
	"github.com/user-aditi/face-attendance-system/internal/ledger"
)

type studentsListResponse struct {
	Students []database.Student `json:"students"`
	Count    int                `json:"count"`
}

func TestStudentsList(t *testing.T) {
	svc, students := newTestService(t, nil, nil)
	students.Add(database.Student{ID: "S1", Name: "Jana Nováková", DailyStatus: ledger.StatusAbsent})
	students.Add(database.Student{ID: "S2", Name: "Petr Svoboda", DailyStatus: ledger.StatusAbsent})

	h := NewStudentsHandler(svc)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/students", nil)
	rec := httptest.NewRecorder()
	h.List(rec, req)

	assertStatusCode(t, rec, http.StatusOK)
	var resp studentsListResponse
	parseJSONResponse(t, rec, &resp)
	if resp.Count != 2 || len(resp.Students) != 2 {
		t.Errorf("expected 2 students, got %+v", resp)
	}
}

func TestStudentsSearchByName(t *testing.T) {
	svc, students := newTestService(t, nil, nil)
	students.Add(database.Student{ID: "S1", Name: "Jana Nováková", DailyStatus: ledger.StatusAbsent})
	students.Add(database.Student{ID: "S2", Name: "Petr Svoboda", DailyStatus: ledger.StatusAbsent})

	h := NewStudentsHandler(svc)
	// Diacritics-insensitive search.
	req := httptest.NewRequest(http.MethodGet, "/api/v1/students?name=novakova", nil)
	rec := httptest.NewRecorder()
	h.List(rec, req)

	assertStatusCode(t, rec, http.StatusOK)
	var resp studentsListResponse
	parseJSONResponse(t, rec, &resp)
	if resp.Count != 1 || resp.Students[0].ID != "S1" {
		t.Errorf("expected S1 only, got %+v", resp)
	}
}

func TestStudentsGet(t *testing.T) {
	svc, students := newTestService(t, nil, nil)
	students.Add(database.Student{ID: "S1", Name: "Jana", DailyStatus: ledger.StatusAbsent})

	h := NewStudentsHandler(svc)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/students/S1", nil)
	req = requestWithChiParams(req, map[string]string{"id": "S1"})
	rec := httptest.NewRecorder()
	h.Get(rec, req)

	assertStatusCode(t, rec, http.StatusOK)
	var got database.Student
	parseJSONResponse(t, rec, &got)
	if got.ID != "S1" || got.Name != "Jana" {
		t.Errorf("unexpected student: %+v", got)
	}
}

func TestStudentsGetNotFound(t *testing.T) {
	svc, _ := newTestService(t, nil, nil)

	h := NewStudentsHandler(svc)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/students/missing", nil)
	req = requestWithChiParams(req, map[string]string{"id": "missing"})
	rec := httptest.NewRecorder()
	h.Get(rec, req)

	assertStatusCode(t, rec, http.StatusNotFound)
	assertJSONError(t, rec, "student not found")
}

func TestStudentsCreate(t *testing.T) {
	svc, students := newTestService(t, nil, nil)

	h := NewStudentsHandler(svc)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/students",
		strings.NewReader(`{"id":"S1","name":"Jana","major":"CS","section":"A","year":2}`))
	rec := httptest.NewRecorder()
	h.Create(rec, req)

	assertStatusCode(t, rec, http.StatusCreated)
	got, err := students.Get(req.Context(), "S1")
	if err != nil || got == nil {
		t.Fatalf("student not persisted: %v", err)
	}
	if got.Major != "CS" || got.Year != 2 {
		t.Errorf("unexpected student: %+v", got)
	}
	if got.TotalPresent != 0 {
		t.Errorf("new student must start with zero total_present")
	}
}

func TestStudentsCreateValidation(t *testing.T) {
	svc, _ := newTestService(t, nil, nil)
	h := NewStudentsHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/students",
		strings.NewReader(`{"name":"No ID"}`))
	rec := httptest.NewRecorder()
	h.Create(rec, req)

	assertStatusCode(t, rec, http.StatusBadRequest)
	assertJSONError(t, rec, "id and name are required")
}

func TestStudentsDelete(t *testing.T) {
	svc, students := newTestService(t, nil, nil)
	students.Add(database.Student{ID: "S1", Name: "Jana", DailyStatus: ledger.StatusAbsent})

	h := NewStudentsHandler(svc)
	req := httptest.NewRequest(http.MethodDelete, "/api/v1/students/S1", nil)
	req = requestWithChiParams(req, map[string]string{"id": "S1"})
	rec := httptest.NewRecorder()
	h.Delete(rec, req)

	assertStatusCode(t, rec, http.StatusOK)
	if got, _ := students.Get(req.Context(), "S1"); got != nil {
		t.Error("student should be gone")
	}
}

func TestStudentsDeleteNotFound(t *testing.T) {
	svc, _ := newTestService(t, nil, nil)

	h := NewStudentsHandler(svc)
	req := httptest.NewRequest(http.MethodDelete, "/api/v1/students/missing", nil)
	req = requestWithChiParams(req, map[string]string{"id": "missing"})
	rec := httptest.NewRecorder()
	h.Delete(rec, req)

	assertStatusCode(t, rec, http.StatusNotFound)
	assertJSONError(t, rec, "student not found")
}
