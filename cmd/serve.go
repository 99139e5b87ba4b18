package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/user-aditi/face-attendance-system/internal/config"
	"github.com/user-aditi/face-attendance-system/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the attendance API server",
	Long: `Start the attendance HTTP API.
The server matches uploaded frames against the gallery, records entries
and exits in the attendance ledger, and serves roster and audit-log
endpoints for the admin panel.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 8080, "Port to listen on")
	serveCmd.Flags().String("host", "0.0.0.0", "Host to bind to")
}

// resolveServeHostPort resolves port and host from flags and environment variables.
func resolveServeHostPort(cmd *cobra.Command) (int, string) {
	port := mustGetInt(cmd, "port")
	host := mustGetString(cmd, "host")

	if envPort := os.Getenv("WEB_PORT"); envPort != "" {
		fmt.Sscanf(envPort, "%d", &port)
	}
	if envHost := os.Getenv("WEB_HOST"); envHost != "" {
		host = envHost
	}
	return port, host
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	fmt.Printf("Connecting to PostgreSQL database...\n")
	pool, err := openPool(cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	svc, client, err := newService(cfg, pool)
	if err != nil {
		return err
	}

	if err := svc.LoadGallery(cmd.Context()); err != nil {
		return fmt.Errorf("loading gallery snapshot: %w", err)
	}
	ix := svc.Gallery()
	if ix.Empty() {
		fmt.Println("Gallery is empty; run 'face-attendance encode' to enroll students")
	} else {
		fmt.Printf("Gallery loaded: %d embeddings, %d students, dim %d\n",
			ix.Len(), len(ix.StudentIDs()), ix.Dim())
	}

	port, host := resolveServeHostPort(cmd)
	server := web.NewServer(svc, client, cfg.Gallery.ImagesDir, host, port)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			fmt.Printf("Error during shutdown: %v\n", err)
		}
	}()

	fmt.Printf("Starting attendance API on http://%s:%d\n", host, port)
	fmt.Println("Press Ctrl+C to stop")

	if err := server.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	return nil
}
