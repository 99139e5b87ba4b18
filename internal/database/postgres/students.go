package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/user-aditi/face-attendance-system/internal/database"
	"github.com/user-aditi/face-attendance-system/internal/names"
)

// StudentRepository provides PostgreSQL-backed roster storage.
type StudentRepository struct {
	pool *Pool
}

// NewStudentRepository creates a new PostgreSQL student repository.
func NewStudentRepository(pool *Pool) *StudentRepository {
	return &StudentRepository{pool: pool}
}

const studentColumns = "student_id, name, major, section, year, total_present, last_entry_time, daily_status"

// scanStudent scans one student row, mapping a NULL last_entry_time to the
// zero time ("never entered").
func scanStudent(row interface{ Scan(...any) error }) (*database.Student, error) {
	var s database.Student
	var lastEntry sql.NullTime
	err := row.Scan(&s.ID, &s.Name, &s.Major, &s.Section, &s.Year,
		&s.TotalPresent, &lastEntry, &s.DailyStatus)
	if err != nil {
		return nil, err
	}
	if lastEntry.Valid {
		s.LastEntryTime = lastEntry.Time
	}
	return &s, nil
}

// Get retrieves a student by id, returns nil if not found.
func (r *StudentRepository) Get(ctx context.Context, id string) (*database.Student, error) {
	row := r.pool.QueryRow(ctx,
		"SELECT "+studentColumns+" FROM students WHERE student_id = $1", id)

	s, err := scanStudent(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get student: %w", err)
	}
	return s, nil
}

// List returns all students ordered by id.
func (r *StudentRepository) List(ctx context.Context) ([]database.Student, error) {
	rows, err := r.pool.Query(ctx,
		"SELECT "+studentColumns+" FROM students ORDER BY student_id")
	if err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	defer rows.Close()

	return collectStudents(rows)
}

// SearchByName returns students matching the normalized name. Normalization
// happens on both sides: in Go for the query, in SQL (LOWER + unaccent +
// REPLACE) for the column, so slugs match display names.
func (r *StudentRepository) SearchByName(ctx context.Context, name string) ([]database.Student, error) {
	normalized := names.Normalize(name)

	query := `
		SELECT ` + studentColumns + `
		FROM students
		WHERE LOWER(REPLACE(unaccent(name), '-', ' ')) LIKE '%' || $1 || '%'
		ORDER BY student_id
	`

	rows, err := r.pool.Query(ctx, query, normalized)
	if err != nil {
		return nil, fmt.Errorf("search students by name: %w", err)
	}
	defer rows.Close()

	return collectStudents(rows)
}

// Count returns the number of registered students.
func (r *StudentRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM students").Scan(&count); err != nil {
		return 0, fmt.Errorf("count students: %w", err)
	}
	return count, nil
}

// Create registers a new student with its daily fields at their zero values.
func (r *StudentRepository) Create(ctx context.Context, s *database.Student) error {
	query := `
		INSERT INTO students (student_id, name, major, section, year)
		VALUES ($1, $2, $3, $4, $5)
	`
	if _, err := r.pool.Exec(ctx, query, s.ID, s.Name, s.Major, s.Section, s.Year); err != nil {
		return fmt.Errorf("create student: %w", err)
	}
	return nil
}

// Delete removes a student; attendance logs, images, and reference
// embeddings cascade.
func (r *StudentRepository) Delete(ctx context.Context, id string) error {
	result, err := r.pool.Exec(ctx, "DELETE FROM students WHERE student_id = $1", id)
	if err != nil {
		return fmt.Errorf("delete student: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete student rows affected: %w", err)
	}
	if affected == 0 {
		return database.ErrUnknownStudent
	}
	// reference_embeddings carries no FK (rebuilt wholesale on encode), so
	// sweep it explicitly.
	if _, err := r.pool.Exec(ctx, "DELETE FROM reference_embeddings WHERE student_id = $1", id); err != nil {
		return fmt.Errorf("delete reference embeddings: %w", err)
	}
	return nil
}

// ReplaceImages records which reference images back a student's enrollment.
func (r *StudentRepository) ReplaceImages(ctx context.Context, studentID string, paths []string) error {
	tx, err := r.pool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM student_images WHERE student_id = $1", studentID); err != nil {
		return fmt.Errorf("clear student images: %w", err)
	}
	for _, path := range paths {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO student_images (student_id, image_path) VALUES ($1, $2)", studentID, path); err != nil {
			return fmt.Errorf("insert student image: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit student images: %w", err)
	}
	return nil
}

// collectStudents drains rows into a slice.
func collectStudents(rows *sql.Rows) ([]database.Student, error) {
	var students []database.Student
	for rows.Next() {
		s, err := scanStudent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan student: %w", err)
		}
		students = append(students, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate students: %w", err)
	}
	return students, nil
}
