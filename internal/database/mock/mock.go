// Package mock provides in-memory implementations of database interfaces for
// testing.
package mock

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/user-aditi/face-attendance-system/internal/database"
	"github.com/user-aditi/face-attendance-system/internal/ledger"
	"github.com/user-aditi/face-attendance-system/internal/names"
)

// StudentStore is an in-memory implementation of database.StudentWriter.
type StudentStore struct {
	mu       sync.RWMutex
	students map[string]*database.Student

	// Error injection
	GetError    error
	ListError   error
	CreateError error
}

// NewStudentStore creates an empty in-memory student store.
func NewStudentStore() *StudentStore {
	return &StudentStore{students: make(map[string]*database.Student)}
}

// Add seeds a student directly.
func (m *StudentStore) Add(s database.Student) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s.DailyStatus == "" {
		s.DailyStatus = ledger.StatusAbsent
	}
	m.students[s.ID] = &s
}

// Get retrieves a student by id, returns nil if not found.
func (m *StudentStore) Get(ctx context.Context, id string) (*database.Student, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.students[id]
	if !ok {
		return nil, nil
	}
	copied := *s
	return &copied, nil
}

// List returns all students ordered by id.
func (m *StudentStore) List(ctx context.Context) ([]database.Student, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []database.Student
	for _, s := range m.students {
		out = append(out, *s)
	}
	sortStudents(out)
	return out, nil
}

// SearchByName returns students whose normalized name contains the query.
func (m *StudentStore) SearchByName(ctx context.Context, name string) ([]database.Student, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	needle := names.Normalize(name)
	var out []database.Student
	for _, s := range m.students {
		if strings.Contains(names.Normalize(s.Name), needle) {
			out = append(out, *s)
		}
	}
	sortStudents(out)
	return out, nil
}

// Count returns the number of students.
func (m *StudentStore) Count(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.students), nil
}

// Create registers a new student.
func (m *StudentStore) Create(ctx context.Context, s *database.Student) error {
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *s
	if copied.DailyStatus == "" {
		copied.DailyStatus = ledger.StatusAbsent
	}
	m.students[s.ID] = &copied
	return nil
}

// Delete removes a student.
func (m *StudentStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.students[id]; !ok {
		return database.ErrUnknownStudent
	}
	delete(m.students, id)
	return nil
}

func sortStudents(students []database.Student) {
	for i := range len(students) - 1 {
		for j := i + 1; j < len(students); j++ {
			if students[j].ID < students[i].ID {
				students[i], students[j] = students[j], students[i]
			}
		}
	}
}

// Recorder is an in-memory implementation of database.AttendanceRecorder.
// It shares a StudentStore and applies the same ledger decisions the
// postgres repository applies, serialized by a single mutex.
type Recorder struct {
	mu       sync.Mutex
	students *StudentStore
	events   []database.AttendanceEvent
	nextID   int64

	// Error injection
	RecordError error
	ResetError  error
}

// NewRecorder creates a recorder over the given student store.
func NewRecorder(students *StudentStore) *Recorder {
	return &Recorder{students: students, nextID: 1}
}

// Events returns a copy of all recorded events.
func (m *Recorder) Events() []database.AttendanceEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]database.AttendanceEvent, len(m.events))
	copy(out, m.events)
	return out
}

// RecordEntry applies an entry attempt.
func (m *Recorder) RecordEntry(
	ctx context.Context, studentID string, now time.Time, cooldown time.Duration,
) (*database.RecordResult, error) {
	if m.RecordError != nil {
		return nil, m.RecordError
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.students.mu.Lock()
	defer m.students.mu.Unlock()

	s, ok := m.students.students[studentID]
	if !ok {
		return nil, database.ErrUnknownStudent
	}

	decision := ledger.DecideEntry(s.LedgerState(), now, cooldown)
	if !decision.Accepted() {
		return &database.RecordResult{Outcome: decision.Outcome, Student: *s}, nil
	}

	s.DailyStatus = decision.NewStatus
	s.LastEntryTime = decision.NewLastEntry
	s.TotalPresent++

	m.events = append(m.events, database.AttendanceEvent{
		ID:        m.nextID,
		StudentID: studentID,
		Date:      truncateToDate(now),
		EntryTime: now,
		Status:    ledger.StatusPresent,
	})
	m.nextID++

	return &database.RecordResult{Outcome: decision.Outcome, Student: *s}, nil
}

// RecordExit applies an exit attempt.
func (m *Recorder) RecordExit(
	ctx context.Context, studentID string, now time.Time,
) (*database.RecordResult, error) {
	if m.RecordError != nil {
		return nil, m.RecordError
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.students.mu.Lock()
	defer m.students.mu.Unlock()

	s, ok := m.students.students[studentID]
	if !ok {
		return nil, database.ErrUnknownStudent
	}

	decision := ledger.DecideExit(s.LedgerState())
	if !decision.Accepted() {
		return &database.RecordResult{Outcome: decision.Outcome, Student: *s}, nil
	}

	s.DailyStatus = decision.NewStatus

	// Close the most recent open event for today.
	date := truncateToDate(now)
	for i := len(m.events) - 1; i >= 0; i-- {
		e := &m.events[i]
		if e.StudentID == studentID && e.Date.Equal(date) && e.ExitTime == nil {
			t := now
			e.ExitTime = &t
			e.Status = ledger.StatusExited
			break
		}
	}

	return &database.RecordResult{Outcome: decision.Outcome, Student: *s}, nil
}

// ResetAll returns every student to Absent.
func (m *Recorder) ResetAll(ctx context.Context) (int64, error) {
	if m.ResetError != nil {
		return 0, m.ResetError
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.students.mu.Lock()
	defer m.students.mu.Unlock()

	var count int64
	for _, s := range m.students.students {
		s.DailyStatus = ledger.StatusAbsent
		count++
	}
	return count, nil
}

// EventsByDate lists events for one calendar date, newest first.
func (m *Recorder) EventsByDate(ctx context.Context, date time.Time) ([]database.AttendanceEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	day := truncateToDate(date)
	var out []database.AttendanceEvent
	for i := len(m.events) - 1; i >= 0; i-- {
		if m.events[i].Date.Equal(day) {
			out = append(out, m.events[i])
		}
	}
	return out, nil
}

// OpenEvent returns the student's open event for the date, nil if none.
func (m *Recorder) OpenEvent(ctx context.Context, studentID string, date time.Time) (*database.AttendanceEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	day := truncateToDate(date)
	for i := len(m.events) - 1; i >= 0; i-- {
		e := m.events[i]
		if e.StudentID == studentID && e.Date.Equal(day) && e.ExitTime == nil {
			return &e, nil
		}
	}
	return nil, nil
}

func truncateToDate(t time.Time) time.Time {
	y, mo, d := t.Date()
	return time.Date(y, mo, d, 0, 0, 0, 0, t.Location())
}
