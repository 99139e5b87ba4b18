package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/user-aditi/face-attendance-system/internal/database"
	"github.com/user-aditi/face-attendance-system/internal/ledger"
)

func TestAttendanceReset(t *testing.T) {
	svc, students := newTestService(t, map[string][]float32{"S1": {1, 0, 0}}, nil)
	students.Add(database.Student{ID: "S1", DailyStatus: ledger.StatusAbsent})
	students.Add(database.Student{ID: "S2", DailyStatus: ledger.StatusAbsent})

	if _, err := svc.Recognize(context.Background(), []float32{1, 0, 0}, ledger.ModeEntry); err != nil {
		t.Fatalf("seeding entry: %v", err)
	}

	h := NewAttendanceHandler(svc)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/attendance/reset", nil)
	rec := httptest.NewRecorder()
	h.Reset(rec, req)

	assertStatusCode(t, rec, http.StatusOK)
	var resp map[string]int64
	parseJSONResponse(t, rec, &resp)
	if resp["students_reset"] != 2 {
		t.Errorf("expected 2 students reset, got %d", resp["students_reset"])
	}

	got, _ := students.Get(context.Background(), "S1")
	if got.DailyStatus != ledger.StatusAbsent {
		t.Errorf("expected Absent after reset, got %s", got.DailyStatus)
	}
}

func TestAttendanceEventsForToday(t *testing.T) {
	svc, students := newTestService(t, map[string][]float32{"S1": {1, 0, 0}}, nil)
	students.Add(database.Student{ID: "S1", DailyStatus: ledger.StatusAbsent})

	if _, err := svc.Recognize(context.Background(), []float32{1, 0, 0}, ledger.ModeEntry); err != nil {
		t.Fatalf("seeding entry: %v", err)
	}

	h := NewAttendanceHandler(svc)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/attendance", nil)
	rec := httptest.NewRecorder()
	h.Events(rec, req)

	assertStatusCode(t, rec, http.StatusOK)
	var resp struct {
		Date   string                     `json:"date"`
		Events []database.AttendanceEvent `json:"events"`
	}
	parseJSONResponse(t, rec, &resp)
	if len(resp.Events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(resp.Events))
	}
	if resp.Events[0].StudentID != "S1" {
		t.Errorf("unexpected event: %+v", resp.Events[0])
	}
}

func TestAttendanceEventsExplicitDateEmpty(t *testing.T) {
	svc, _ := newTestService(t, nil, nil)
	h := NewAttendanceHandler(svc)

	yesterday := time.Now().AddDate(0, 0, -1).Format("2006-01-02")
	req := httptest.NewRequest(http.MethodGet, "/api/v1/attendance?date="+yesterday, nil)
	rec := httptest.NewRecorder()
	h.Events(rec, req)

	assertStatusCode(t, rec, http.StatusOK)
	var resp struct {
		Date   string                     `json:"date"`
		Events []database.AttendanceEvent `json:"events"`
	}
	parseJSONResponse(t, rec, &resp)
	if resp.Date != yesterday {
		t.Errorf("expected date %s echoed, got %s", yesterday, resp.Date)
	}
	if resp.Events == nil {
		t.Error("events must serialize as an array, not null")
	}
}

func TestAttendanceEventsBadDate(t *testing.T) {
	svc, _ := newTestService(t, nil, nil)
	h := NewAttendanceHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/attendance?date=02-03-2026", nil)
	rec := httptest.NewRecorder()
	h.Events(rec, req)

	assertStatusCode(t, rec, http.StatusBadRequest)
	assertJSONError(t, rec, "date must be YYYY-MM-DD")
}
