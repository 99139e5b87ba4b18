// Package encoder turns a directory of per-student reference images into a
// gallery index via the external embedding service. It only classifies
// images as usable or unusable; moving failed files aside is the caller's
// business.
package encoder

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/user-aditi/face-attendance-system/internal/gallery"
)

// ErrNoUsableImages means the whole build produced nothing: either the
// directory held no candidate images, or every one of them failed.
var ErrNoUsableImages = errors.New("no usable images in directory")

// FaceEmbedder is the slice of the embedding client the pipeline needs.
type FaceEmbedder interface {
	EmbedFaces(ctx context.Context, imageData []byte) ([][]float32, error)
}

// UnusableImage records one reference image the pipeline had to skip.
type UnusableImage struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

// Progress is called after each processed image with running counts.
// Optional; used by the CLI to drive a progress bar.
type Progress func(done, total int)

// Pipeline builds gallery indexes from image directories.
type Pipeline struct {
	embedder FaceEmbedder
	progress Progress
}

// New creates an encoding pipeline over the given embedder.
func New(embedder FaceEmbedder) *Pipeline {
	return &Pipeline{embedder: embedder}
}

// OnProgress installs a progress callback.
func (p *Pipeline) OnProgress(fn Progress) {
	p.progress = fn
}

// imageExtensions are the reference image formats the pipeline accepts.
var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".bmp":  true,
}

// listImages returns candidate image paths in dir, sorted by name. The
// directory is flat: one image per student, filename stem = student id.
func listImages(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading image directory: %w", err)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if imageExtensions[strings.ToLower(filepath.Ext(e.Name()))] {
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	return paths, nil
}

// studentIDFromPath derives the student id from the image filename stem.
func studentIDFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Build processes every candidate image in dir: embed, take the first face
// vector, bind it to the student id from the filename. Per-image failures
// (unreadable file, no face found, transport error, dimension drift) are
// collected into the unusable list and never abort the batch. The build as a
// whole fails only when nothing was usable.
func (p *Pipeline) Build(ctx context.Context, dir string) (*gallery.Index, []UnusableImage, error) {
	paths, err := listImages(dir)
	if err != nil {
		return nil, nil, err
	}
	if len(paths) == 0 {
		return nil, nil, ErrNoUsableImages
	}

	ix := gallery.NewIndex()
	var unusable []UnusableImage

	for i, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}

		if reason := p.encodeOne(ctx, ix, path); reason != "" {
			unusable = append(unusable, UnusableImage{Path: path, Reason: reason})
		}

		if p.progress != nil {
			p.progress(i+1, len(paths))
		}
	}

	if ix.Empty() {
		return nil, unusable, ErrNoUsableImages
	}
	return ix, unusable, nil
}

// encodeOne embeds a single image into ix. Returns an empty string on
// success, otherwise the reason the image was unusable.
func (p *Pipeline) encodeOne(ctx context.Context, ix *gallery.Index, path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Sprintf("read failed: %v", err)
	}

	// Oversized reference photos are downscaled before upload; embedding
	// models work on small crops anyway and the upload gets much cheaper.
	prepared, err := prepareImage(data)
	if err != nil {
		return fmt.Sprintf("undecodable image: %v", err)
	}

	embeddings, err := p.embedder.EmbedFaces(ctx, prepared)
	if err != nil {
		return fmt.Sprintf("embedding failed: %v", err)
	}
	if len(embeddings) == 0 {
		return "no face found"
	}

	// Several faces in one reference image: the first is the subject, the
	// rest are photobombers.
	if err := ix.Add(studentIDFromPath(path), embeddings[0]); err != nil {
		return fmt.Sprintf("rejected by gallery: %v", err)
	}
	return ""
}
