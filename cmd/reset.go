package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/user-aditi/face-attendance-system/internal/config"
	"github.com/user-aditi/face-attendance-system/internal/database/postgres"
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset daily attendance status",
	Long: `Return every student to Absent for a fresh day.
Attendance counters and the event history are preserved; only the daily
status field changes. Safe to run more than once.`,
	RunE: runReset,
}

func init() {
	rootCmd.AddCommand(resetCmd)
}

func runReset(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	pool, err := openPool(cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	n, err := postgres.NewAttendanceRepository(pool).ResetAll(cmd.Context())
	if err != nil {
		return fmt.Errorf("resetting attendance: %w", err)
	}
	fmt.Printf("Reset %d students to Absent\n", n)
	return nil
}
