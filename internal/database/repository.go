package database

import (
	"context"
	"time"
)

// StudentReader provides read-only access to the student roster.
type StudentReader interface {
	// Get retrieves a student by id, returns nil if not found.
	Get(ctx context.Context, id string) (*Student, error)
	// List returns all students ordered by id.
	List(ctx context.Context) ([]Student, error)
	// SearchByName returns students whose normalized name matches the
	// normalized query (lowercase, no diacritics, dashes as spaces).
	SearchByName(ctx context.Context, name string) ([]Student, error)
	// Count returns the number of registered students.
	Count(ctx context.Context) (int, error)
}

// StudentWriter provides write access to the student roster.
type StudentWriter interface {
	StudentReader

	// Create registers a new student. The daily fields start at their
	// zero values (Absent, never entered, zero total).
	Create(ctx context.Context, s *Student) error
	// Delete removes a student. Reference embeddings and attendance history
	// cascade away with the row.
	Delete(ctx context.Context, id string) error
}

// AttendanceRecorder applies ledger decisions atomically per student and
// reads back the audit log. RecordEntry and RecordExit are the sole
// serialization points for a student's daily state: each runs as one
// transaction that locks the student row, decides, and either applies every
// mutation or none. Both return ErrUnknownStudent for ids not on the roster.
type AttendanceRecorder interface {
	// RecordEntry attempts an entry at now, honoring the cooldown window.
	RecordEntry(ctx context.Context, studentID string, now time.Time, cooldown time.Duration) (*RecordResult, error)
	// RecordExit attempts an exit at now, closing the day's open event.
	RecordExit(ctx context.Context, studentID string, now time.Time) (*RecordResult, error)
	// ResetAll returns every student to Absent in a single transaction and
	// reports how many rows it touched. total_present, last_entry_time, and
	// event history are untouched. Idempotent.
	ResetAll(ctx context.Context) (int64, error)
	// EventsByDate lists the audit log for one calendar date, newest first.
	EventsByDate(ctx context.Context, date time.Time) ([]AttendanceEvent, error)
	// OpenEvent returns the student's open event for the date, nil if none.
	OpenEvent(ctx context.Context, studentID string, date time.Time) (*AttendanceEvent, error)
}
