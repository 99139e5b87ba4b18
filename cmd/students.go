package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/user-aditi/face-attendance-system/internal/config"
	"github.com/user-aditi/face-attendance-system/internal/database"
	"github.com/user-aditi/face-attendance-system/internal/database/postgres"
)

var studentsCmd = &cobra.Command{
	Use:   "students",
	Short: "Manage the student roster",
}

var studentsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered students",
	RunE:  runStudentsList,
}

var studentsAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Register a new student",
	Long: `Register a new student on the roster.
The id must match the filename stem of the student's reference image so
the encoder can bind embeddings to the record.`,
	RunE: runStudentsAdd,
}

func init() {
	rootCmd.AddCommand(studentsCmd)
	studentsCmd.AddCommand(studentsListCmd)
	studentsCmd.AddCommand(studentsAddCmd)

	studentsListCmd.Flags().String("name", "", "Filter by name (diacritics-insensitive)")

	studentsAddCmd.Flags().String("id", "", "Student id (required)")
	studentsAddCmd.Flags().String("name", "", "Full name (required)")
	studentsAddCmd.Flags().String("major", "", "Major")
	studentsAddCmd.Flags().String("section", "", "Section")
	studentsAddCmd.Flags().Int("year", 0, "Year of study")
	studentsAddCmd.MarkFlagRequired("id")
	studentsAddCmd.MarkFlagRequired("name")
}

func runStudentsList(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	pool, err := openPool(cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	repo := postgres.NewStudentRepository(pool)
	ctx := cmd.Context()

	var students []database.Student
	if name := mustGetString(cmd, "name"); name != "" {
		students, err = repo.SearchByName(ctx, name)
	} else {
		students, err = repo.List(ctx)
	}
	if err != nil {
		return fmt.Errorf("listing students: %w", err)
	}

	if len(students) == 0 {
		fmt.Println("No students registered")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tMAJOR\tSECTION\tYEAR\tSTATUS\tPRESENT\tLAST ENTRY")
	for _, s := range students {
		lastEntry := "never"
		if !s.LastEntryTime.IsZero() {
			lastEntry = s.LastEntryTime.Format("2006-01-02 15:04")
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\t%d\t%s\n",
			s.ID, s.Name, s.Major, s.Section, s.Year, s.DailyStatus, s.TotalPresent, lastEntry)
	}
	return w.Flush()
}

func runStudentsAdd(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	pool, err := openPool(cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	student := database.Student{
		ID:      mustGetString(cmd, "id"),
		Name:    mustGetString(cmd, "name"),
		Major:   mustGetString(cmd, "major"),
		Section: mustGetString(cmd, "section"),
		Year:    mustGetInt(cmd, "year"),
	}
	if err := postgres.NewStudentRepository(pool).Create(cmd.Context(), &student); err != nil {
		return fmt.Errorf("registering student: %w", err)
	}
	fmt.Printf("Registered %s (%s)\n", student.ID, student.Name)
	return nil
}
