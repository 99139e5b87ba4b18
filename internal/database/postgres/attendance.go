package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/user-aditi/face-attendance-system/internal/database"
	"github.com/user-aditi/face-attendance-system/internal/ledger"
)

// dateLayout renders timestamps as DATE column values.
const dateLayout = "2006-01-02"

// AttendanceRepository applies ledger decisions against PostgreSQL. Each
// record call is one transaction holding a row lock on the student, so
// concurrent recognitions of the same person (two cameras, burst frames)
// serialize here and the cooldown check cannot race.
type AttendanceRepository struct {
	pool *Pool
}

// NewAttendanceRepository creates a new PostgreSQL attendance repository.
func NewAttendanceRepository(pool *Pool) *AttendanceRepository {
	return &AttendanceRepository{pool: pool}
}

// lockStudent reads the student row FOR UPDATE inside tx. Returns
// ErrUnknownStudent if the id is not on the roster.
func lockStudent(ctx context.Context, tx *sql.Tx, studentID string) (*database.Student, error) {
	row := tx.QueryRowContext(ctx, `
		SELECT `+studentColumns+`
		FROM students
		WHERE student_id = $1
		FOR UPDATE
	`, studentID)

	s, err := scanStudent(row)
	if err == sql.ErrNoRows {
		return nil, database.ErrUnknownStudent
	}
	if err != nil {
		return nil, fmt.Errorf("lock student row: %w", err)
	}
	return s, nil
}

// RecordEntry attempts an entry: lock the row, run the state machine, and on
// acceptance update the student and append an open attendance event, all in
// one transaction. Rejections commit nothing.
func (r *AttendanceRepository) RecordEntry(
	ctx context.Context, studentID string, now time.Time, cooldown time.Duration,
) (*database.RecordResult, error) {
	tx, err := r.pool.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	student, err := lockStudent(ctx, tx, studentID)
	if err != nil {
		return nil, err
	}

	decision := ledger.DecideEntry(student.LedgerState(), now, cooldown)
	if !decision.Accepted() {
		return &database.RecordResult{Outcome: decision.Outcome, Student: *student}, nil
	}

	student.DailyStatus = decision.NewStatus
	student.LastEntryTime = decision.NewLastEntry
	student.TotalPresent++

	_, err = tx.ExecContext(ctx, `
		UPDATE students
		SET total_present = $2, last_entry_time = $3, daily_status = $4
		WHERE student_id = $1
	`, student.ID, student.TotalPresent, student.LastEntryTime, student.DailyStatus)
	if err != nil {
		return nil, fmt.Errorf("update student on entry: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO attendance_logs (student_id, date, entry_time, exit_time, status)
		VALUES ($1, $2, $3, NULL, $4)
	`, student.ID, now.Format(dateLayout), now, ledger.StatusPresent)
	if err != nil {
		return nil, fmt.Errorf("append attendance event: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit entry: %w", err)
	}
	return &database.RecordResult{Outcome: decision.Outcome, Student: *student}, nil
}

// RecordExit attempts an exit: only a Present student passes, and acceptance
// stamps exit_time on the day's open event rather than creating a new row.
func (r *AttendanceRepository) RecordExit(
	ctx context.Context, studentID string, now time.Time,
) (*database.RecordResult, error) {
	tx, err := r.pool.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	student, err := lockStudent(ctx, tx, studentID)
	if err != nil {
		return nil, err
	}

	decision := ledger.DecideExit(student.LedgerState())
	if !decision.Accepted() {
		return &database.RecordResult{Outcome: decision.Outcome, Student: *student}, nil
	}

	student.DailyStatus = decision.NewStatus

	_, err = tx.ExecContext(ctx, `
		UPDATE students SET daily_status = $2 WHERE student_id = $1
	`, student.ID, student.DailyStatus)
	if err != nil {
		return nil, fmt.Errorf("update student on exit: %w", err)
	}

	// Close the most recent open event for today.
	_, err = tx.ExecContext(ctx, `
		UPDATE attendance_logs
		SET exit_time = $3, status = $4
		WHERE id = (
			SELECT id FROM attendance_logs
			WHERE student_id = $1 AND date = $2 AND exit_time IS NULL
			ORDER BY id DESC
			LIMIT 1
		)
	`, student.ID, now.Format(dateLayout), now, ledger.StatusExited)
	if err != nil {
		return nil, fmt.Errorf("close attendance event: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit exit: %w", err)
	}
	return &database.RecordResult{Outcome: decision.Outcome, Student: *student}, nil
}

// ResetAll returns every student to Absent. One UPDATE statement, so
// observers never see a half-reset population; counters and history persist.
func (r *AttendanceRepository) ResetAll(ctx context.Context) (int64, error) {
	result, err := r.pool.Exec(ctx, `
		UPDATE students SET daily_status = $1
	`, ledger.StatusAbsent)
	if err != nil {
		return 0, fmt.Errorf("reset daily status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("reset rows affected: %w", err)
	}
	return affected, nil
}

// EventsByDate lists the audit log for one calendar date, newest first.
func (r *AttendanceRepository) EventsByDate(ctx context.Context, date time.Time) ([]database.AttendanceEvent, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, student_id, date, entry_time, exit_time, status
		FROM attendance_logs
		WHERE date = $1
		ORDER BY id DESC
	`, date.Format(dateLayout))
	if err != nil {
		return nil, fmt.Errorf("query attendance events: %w", err)
	}
	defer rows.Close()

	return collectEvents(rows)
}

// OpenEvent returns the student's open event for the date, nil if none.
func (r *AttendanceRepository) OpenEvent(ctx context.Context, studentID string, date time.Time) (*database.AttendanceEvent, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, student_id, date, entry_time, exit_time, status
		FROM attendance_logs
		WHERE student_id = $1 AND date = $2 AND exit_time IS NULL
		ORDER BY id DESC
		LIMIT 1
	`, studentID, date.Format(dateLayout))

	e, err := scanEvent(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query open event: %w", err)
	}
	return e, nil
}

// scanEvent scans one attendance_logs row.
func scanEvent(row interface{ Scan(...any) error }) (*database.AttendanceEvent, error) {
	var e database.AttendanceEvent
	var exit sql.NullTime
	if err := row.Scan(&e.ID, &e.StudentID, &e.Date, &e.EntryTime, &exit, &e.Status); err != nil {
		return nil, err
	}
	if exit.Valid {
		t := exit.Time
		e.ExitTime = &t
	}
	return &e, nil
}

// collectEvents drains rows into a slice.
func collectEvents(rows *sql.Rows) ([]database.AttendanceEvent, error) {
	var events []database.AttendanceEvent
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan attendance event: %w", err)
		}
		events = append(events, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attendance events: %w", err)
	}
	return events, nil
}
