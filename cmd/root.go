package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "face-attendance",
	Short: "Face-recognition attendance tracking",
	Long: `Face Attendance tracks classroom attendance from face embeddings.
Reference images are encoded into a gallery, live frames are matched
against it, and accepted matches drive a per-student attendance ledger
with entry/exit events and a daily audit log.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}
