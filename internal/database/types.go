package database

import (
	"errors"
	"time"

	"github.com/user-aditi/face-attendance-system/internal/ledger"
)

// ErrUnknownStudent is returned when an operation references a student id
// absent from the students table. It is distinct from state-machine
// rejections: nothing was attempted, the id simply does not exist.
var ErrUnknownStudent = errors.New("unknown student")

// Student is the immutable reference record plus its mutable daily state.
// The id is a stable string key (the filename stem of reference images).
// A zero LastEntryTime means the student has never entered.
type Student struct {
	ID            string        `json:"id"`
	Name          string        `json:"name"`
	Major         string        `json:"major"`
	Section       string        `json:"section"`
	Year          int           `json:"year"`
	TotalPresent  int           `json:"total_present"`
	LastEntryTime time.Time     `json:"last_entry_time"`
	DailyStatus   ledger.Status `json:"daily_status"`
}

// LedgerState projects the fields the attendance state machine decides on.
func (s *Student) LedgerState() ledger.State {
	return ledger.State{
		Status:        s.DailyStatus,
		LastEntryTime: s.LastEntryTime,
		TotalPresent:  s.TotalPresent,
	}
}

// AttendanceEvent is one append-only row of the audit log. ExitTime stays nil
// until the matching exit is recorded; at most one open event exists per
// student per date.
type AttendanceEvent struct {
	ID        int64         `json:"id"`
	StudentID string        `json:"student_id"`
	Date      time.Time     `json:"date"`
	EntryTime time.Time     `json:"entry_time"`
	ExitTime  *time.Time    `json:"exit_time,omitempty"`
	Status    ledger.Status `json:"status"`
}

// RecordResult is what every ledger operation returns regardless of outcome:
// the decision plus the student's post-operation snapshot, so callers can
// render feedback even on rejections.
type RecordResult struct {
	Outcome ledger.Outcome
	Student Student
}
