package postgres

import (
	"context"
	"fmt"

	"github.com/pgvector/pgvector-go"
	"github.com/user-aditi/face-attendance-system/internal/gallery"
)

// GalleryRepository persists the gallery in the reference_embeddings table
// with a pgvector column. It implements gallery.Store: Save replaces the
// whole table in one transaction (the gallery is rebuilt wholesale, never
// merged), Load reads an ordered snapshot.
type GalleryRepository struct {
	pool *Pool
}

// NewGalleryRepository creates a new pgvector-backed gallery store.
func NewGalleryRepository(pool *Pool) *GalleryRepository {
	return &GalleryRepository{pool: pool}
}

// Load reads the gallery snapshot in insertion order. Rows with inconsistent
// vector lengths make the whole snapshot unusable, which loads as the
// explicit empty index.
func (r *GalleryRepository) Load(ctx context.Context) (*gallery.Index, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT student_id, embedding
		FROM reference_embeddings
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("query reference embeddings: %w", err)
	}
	defer rows.Close()

	ix := gallery.NewIndex()
	for rows.Next() {
		var studentID string
		var vec pgvector.Vector
		if err := rows.Scan(&studentID, &vec); err != nil {
			return nil, fmt.Errorf("scan reference embedding: %w", err)
		}
		if err := ix.Add(studentID, vec.Slice()); err != nil {
			return gallery.NewIndex(), nil
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reference embeddings: %w", err)
	}
	return ix, nil
}

// Save replaces the stored gallery with ix in one transaction. A failed save
// rolls back to the prior snapshot; readers holding an already-loaded index
// are unaffected either way.
func (r *GalleryRepository) Save(ctx context.Context, ix *gallery.Index) error {
	tx, err := r.pool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM reference_embeddings"); err != nil {
		return fmt.Errorf("clear reference embeddings: %w", err)
	}

	for _, e := range ix.Entries() {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO reference_embeddings (student_id, embedding, dim)
			VALUES ($1, $2, $3)
		`, e.StudentID, pgvector.NewVector(e.Vector), len(e.Vector))
		if err != nil {
			return fmt.Errorf("insert reference embedding: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit gallery save: %w", err)
	}
	return nil
}

// Nearest returns the ids of the stored embeddings closest to the query, in
// ascending distance order, using the pgvector L2 operator. Used for audit
// queries against the persisted gallery without loading a snapshot.
func (r *GalleryRepository) Nearest(ctx context.Context, query []float32, limit int) ([]string, []float64, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT student_id, embedding <-> $1::vector AS distance
		FROM reference_embeddings
		ORDER BY distance
		LIMIT $2
	`, pgvector.NewVector(query), limit)
	if err != nil {
		return nil, nil, fmt.Errorf("query nearest embeddings: %w", err)
	}
	defer rows.Close()

	var ids []string
	var distances []float64
	for rows.Next() {
		var id string
		var d float64
		if err := rows.Scan(&id, &d); err != nil {
			return nil, nil, fmt.Errorf("scan nearest embedding: %w", err)
		}
		ids = append(ids, id)
		distances = append(distances, d)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate nearest embeddings: %w", err)
	}
	return ids, distances, nil
}
