package cmd

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/spf13/cobra"

	"github.com/user-aditi/face-attendance-system/internal/config"
	"github.com/user-aditi/face-attendance-system/internal/database/postgres"
)

var importLegacyCmd = &cobra.Command{
	Use:   "import-legacy",
	Short: "Import students and attendance history from the legacy MySQL database",
	Long: `One-off migration from the legacy MySQL deployment.
Copies the student roster (with attendance counters) and the attendance
log history into PostgreSQL. Existing students are left untouched, so the
import can be re-run safely.`,
	RunE: runImportLegacy,
}

func init() {
	rootCmd.AddCommand(importLegacyCmd)

	importLegacyCmd.Flags().String("mysql-dsn", "", "MySQL DSN (defaults to LEGACY_MYSQL_DSN)")
	importLegacyCmd.Flags().Bool("skip-logs", false, "Import only the roster, not the attendance history")
}

// withParseTime makes the MySQL driver return DATETIME columns as time.Time.
func withParseTime(dsn string) string {
	if strings.Contains(dsn, "parseTime=") {
		return dsn
	}
	if strings.Contains(dsn, "?") {
		return dsn + "&parseTime=true"
	}
	return dsn + "?parseTime=true"
}

func runImportLegacy(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	dsn := mustGetString(cmd, "mysql-dsn")
	if dsn == "" {
		dsn = cfg.Legacy.MySQLDSN
	}
	if dsn == "" {
		return errors.New("LEGACY_MYSQL_DSN environment variable or --mysql-dsn is required")
	}

	legacy, err := sql.Open("mysql", withParseTime(dsn))
	if err != nil {
		return fmt.Errorf("opening legacy MySQL: %w", err)
	}
	defer legacy.Close()
	if err := legacy.Ping(); err != nil {
		return fmt.Errorf("pinging legacy MySQL: %w", err)
	}

	pool, err := openPool(cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	ctx := cmd.Context()
	imported, err := importLegacyStudents(ctx, legacy, pool)
	if err != nil {
		return fmt.Errorf("importing students: %w", err)
	}
	fmt.Printf("Imported %d students\n", imported)

	if mustGetBool(cmd, "skip-logs") {
		return nil
	}
	imported, err = importLegacyLogs(ctx, legacy, pool)
	if err != nil {
		return fmt.Errorf("importing attendance logs: %w", err)
	}
	fmt.Printf("Imported %d attendance log rows\n", imported)
	return nil
}

// importLegacyStudents copies the roster. Already-present ids are skipped so
// re-runs never clobber live attendance state.
func importLegacyStudents(ctx context.Context, legacy *sql.DB, pool *postgres.Pool) (int, error) {
	rows, err := legacy.QueryContext(ctx, `
		SELECT student_id, name,
		       COALESCE(major, ''), COALESCE(section, ''), COALESCE(year, 0),
		       COALESCE(total_present, 0), last_entry_time,
		       COALESCE(daily_status, 'Absent')
		FROM students
	`)
	if err != nil {
		return 0, fmt.Errorf("querying legacy students: %w", err)
	}
	defer rows.Close()

	count := 0
	for rows.Next() {
		var (
			id, name, major, section, status string
			year, totalPresent               int
			lastEntry                        sql.NullTime
		)
		if err := rows.Scan(&id, &name, &major, &section, &year, &totalPresent, &lastEntry, &status); err != nil {
			return count, fmt.Errorf("scanning legacy student: %w", err)
		}

		var lastEntryVal any
		if lastEntry.Valid {
			lastEntryVal = lastEntry.Time
		}
		res, err := pool.Exec(ctx, `
			INSERT INTO students (student_id, name, major, section, year,
			                      total_present, last_entry_time, daily_status)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (student_id) DO NOTHING
		`, id, name, major, section, year, totalPresent, lastEntryVal, status)
		if err != nil {
			return count, fmt.Errorf("inserting student %s: %w", id, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			count++
		}
	}
	return count, rows.Err()
}

// importLegacyLogs copies the attendance history. The legacy table has no
// stable ids to dedupe on, so duplicates of an identical (student, date,
// entry) row are skipped via a pre-check.
func importLegacyLogs(ctx context.Context, legacy *sql.DB, pool *postgres.Pool) (int, error) {
	rows, err := legacy.QueryContext(ctx, `
		SELECT student_id, date, entry_time, exit_time, COALESCE(status, 'Present')
		FROM attendance_logs
		ORDER BY date, entry_time
	`)
	if err != nil {
		return 0, fmt.Errorf("querying legacy logs: %w", err)
	}
	defer rows.Close()

	count := 0
	for rows.Next() {
		var (
			id, status string
			date       time.Time
			entryTime  time.Time
			exitTime   sql.NullTime
		)
		if err := rows.Scan(&id, &date, &entryTime, &exitTime, &status); err != nil {
			return count, fmt.Errorf("scanning legacy log: %w", err)
		}

		var exists bool
		err := pool.QueryRow(ctx, `
			SELECT EXISTS (
				SELECT 1 FROM attendance_logs
				WHERE student_id = $1 AND date = $2 AND entry_time = $3
			)
		`, id, date, entryTime).Scan(&exists)
		if err != nil {
			return count, fmt.Errorf("checking log for %s: %w", id, err)
		}
		if exists {
			continue
		}

		var exitVal any
		if exitTime.Valid {
			exitVal = exitTime.Time
		}
		if _, err := pool.Exec(ctx, `
			INSERT INTO attendance_logs (student_id, date, entry_time, exit_time, status)
			VALUES ($1, $2, $3, $4, $5)
		`, id, date, entryTime, exitVal, status); err != nil {
			return count, fmt.Errorf("inserting log for %s: %w", id, err)
		}
		count++
	}
	return count, rows.Err()
}
