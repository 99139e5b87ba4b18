package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/user-aditi/face-attendance-system/internal/config"
	"github.com/user-aditi/face-attendance-system/internal/database/postgres"
	"github.com/user-aditi/face-attendance-system/internal/embedder"
	"github.com/user-aditi/face-attendance-system/internal/encoder"
	"github.com/user-aditi/face-attendance-system/internal/gallery"
)

var encodeCmd = &cobra.Command{
	Use:   "encode",
	Short: "Encode reference images into the gallery",
	Long: `Encode every reference image in the images directory into the gallery.
Each filename stem becomes the student id for that embedding. Images that
yield no usable embedding are reported and can be moved aside with
--failed-dir for manual review.`,
	RunE: runEncode,
}

func init() {
	rootCmd.AddCommand(encodeCmd)

	encodeCmd.Flags().String("images", "", "Reference image directory (defaults to IMAGES_DIR)")
	encodeCmd.Flags().String("failed-dir", "", "Move unusable images into this directory")
	encodeCmd.Flags().Bool("skip-db", false, "Skip syncing student image rows to the database")
}

func runEncode(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	dir := mustGetString(cmd, "images")
	if dir == "" {
		dir = cfg.Gallery.ImagesDir
	}
	failedDir := mustGetString(cmd, "failed-dir")
	skipDB := mustGetBool(cmd, "skip-db")

	// The database is needed for the postgres gallery backend and for the
	// student image bookkeeping; a file-backed offline run can do without.
	var pool *postgres.Pool
	if cfg.Gallery.Backend == "postgres" || !skipDB {
		var err error
		pool, err = openPool(cfg)
		if err != nil {
			return err
		}
		defer pool.Close()
	}

	store, err := newGalleryStore(cfg, pool)
	if err != nil {
		return err
	}

	pipeline := encoder.New(embedder.NewClient(cfg.Embedding.URL))
	var bar *progressbar.ProgressBar
	pipeline.OnProgress(func(done, total int) {
		if bar == nil {
			bar = progressbar.NewOptions(total,
				progressbar.OptionSetDescription("Encoding faces"),
				progressbar.OptionShowCount(),
				progressbar.OptionShowIts(),
				progressbar.OptionSetItsString("images"),
				progressbar.OptionShowElapsedTimeOnFinish(),
				progressbar.OptionSetPredictTime(true),
				progressbar.OptionFullWidth(),
			)
		}
		bar.Add(1)
	})

	ctx := cmd.Context()
	ix, unusable, err := pipeline.Build(ctx, dir)
	if bar != nil {
		bar.Finish()
		fmt.Println()
	}
	if err != nil {
		return fmt.Errorf("encoding %s: %w", dir, err)
	}

	fmt.Printf("Encoded %d embeddings for %d students (dim %d)\n",
		ix.Len(), len(ix.StudentIDs()), ix.Dim())

	reportUnusable(unusable, failedDir)

	if err := store.Save(ctx, ix); err != nil {
		return fmt.Errorf("saving gallery: %w", err)
	}
	fmt.Println("Gallery snapshot saved")

	if pool != nil && !skipDB {
		if err := syncStudentImages(ctx, pool, dir, ix, unusable); err != nil {
			return fmt.Errorf("syncing student images: %w", err)
		}
		fmt.Println("Student image rows synced")
	}
	return nil
}

// reportUnusable prints skipped images and optionally moves them aside.
func reportUnusable(unusable []encoder.UnusableImage, failedDir string) {
	if len(unusable) == 0 {
		return
	}

	fmt.Printf("%d images were unusable:\n", len(unusable))
	for _, u := range unusable {
		fmt.Printf("  %s: %s\n", u.Path, u.Reason)
	}
	if failedDir == "" {
		return
	}

	if err := os.MkdirAll(failedDir, 0o755); err != nil {
		fmt.Printf("Warning: cannot create %s: %v\n", failedDir, err)
		return
	}
	for _, u := range unusable {
		dst := filepath.Join(failedDir, filepath.Base(u.Path))
		if err := os.Rename(u.Path, dst); err != nil {
			fmt.Printf("Warning: cannot move %s: %v\n", u.Path, err)
			continue
		}
		fmt.Printf("  moved %s -> %s\n", u.Path, dst)
	}
}

// syncStudentImages records which reference image backs each enrolled
// student, skipping students whose images all failed. Students missing from
// the roster are reported but do not abort the sync.
func syncStudentImages(ctx context.Context, pool *postgres.Pool, dir string, ix *gallery.Index, unusable []encoder.UnusableImage) error {
	failed := make(map[string]bool, len(unusable))
	for _, u := range unusable {
		failed[u.Path] = true
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("reading image directory: %w", err)
	}
	pathsByStudent := make(map[string][]string)
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		path := filepath.Join(dir, e.Name())
		if failed[path] {
			continue
		}
		stem := strings.TrimSuffix(e.Name(), filepath.Ext(e.Name()))
		pathsByStudent[stem] = append(pathsByStudent[stem], path)
	}

	students := postgres.NewStudentRepository(pool)
	for _, id := range ix.StudentIDs() {
		paths := pathsByStudent[id]
		if len(paths) == 0 {
			continue
		}
		known, err := students.Get(ctx, id)
		if err != nil {
			return err
		}
		if known == nil {
			fmt.Printf("Warning: %s is enrolled in the gallery but not registered\n", id)
			continue
		}
		if err := students.ReplaceImages(ctx, id, paths); err != nil {
			return err
		}
	}
	return nil
}
