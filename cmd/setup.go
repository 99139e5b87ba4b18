package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/user-aditi/face-attendance-system/internal/attendance"
	"github.com/user-aditi/face-attendance-system/internal/config"
	"github.com/user-aditi/face-attendance-system/internal/database/postgres"
	"github.com/user-aditi/face-attendance-system/internal/embedder"
	"github.com/user-aditi/face-attendance-system/internal/encoder"
	"github.com/user-aditi/face-attendance-system/internal/gallery"
)

// openPool connects to PostgreSQL and applies pending migrations.
func openPool(cfg *config.Config) (*postgres.Pool, error) {
	if cfg.Database.URL == "" {
		return nil, errors.New("DATABASE_URL environment variable is required")
	}
	pool, err := postgres.Initialize(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize PostgreSQL: %w", err)
	}
	return pool, nil
}

// newGalleryStore picks the snapshot backend from config.
func newGalleryStore(cfg *config.Config, pool *postgres.Pool) (gallery.Store, error) {
	switch cfg.Gallery.Backend {
	case "postgres":
		return postgres.NewGalleryRepository(pool), nil
	case "file":
		return gallery.NewFileStore(cfg.Gallery.Path), nil
	default:
		return nil, fmt.Errorf("unknown gallery backend %q (want file or postgres)", cfg.Gallery.Backend)
	}
}

// newService wires the attendance core from config: postgres repositories,
// the configured gallery store, and the encoding pipeline.
func newService(cfg *config.Config, pool *postgres.Pool) (*attendance.Service, *embedder.Client, error) {
	store, err := newGalleryStore(cfg, pool)
	if err != nil {
		return nil, nil, err
	}

	client := embedder.NewClient(cfg.Embedding.URL)
	svc := attendance.NewService(
		postgres.NewStudentRepository(pool),
		postgres.NewAttendanceRepository(pool),
		store,
		encoder.New(client),
		attendance.WithThreshold(cfg.Recognition.MatchThreshold),
		attendance.WithCooldown(time.Duration(cfg.Recognition.CooldownMinutes)*time.Minute),
	)
	return svc, client, nil
}
