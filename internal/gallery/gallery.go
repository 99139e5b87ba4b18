// Package gallery holds the set of known (student, embedding) pairs used for
// face matching, plus the stores that persist it between sessions.
package gallery

import (
	"context"
	"errors"
	"fmt"
)

// ErrDimensionMismatch is returned when a vector's length disagrees with the
// gallery's established dimensionality.
var ErrDimensionMismatch = errors.New("embedding dimension mismatch")

// Entry binds one reference embedding to a student. A student may own several
// entries (one per reference image).
type Entry struct {
	StudentID string
	Vector    []float32
}

// Index is an ordered, read-only-after-build collection of gallery entries.
// All vectors share the same dimensionality, discovered from the first entry.
type Index struct {
	entries []Entry
	dim     int
}

// NewIndex creates an empty gallery index.
func NewIndex() *Index {
	return &Index{}
}

// Add appends an entry. The first vector fixes the index dimensionality;
// any later vector of a different length is a construction error.
func (ix *Index) Add(studentID string, vector []float32) error {
	if studentID == "" {
		return errors.New("student id is required")
	}
	if len(vector) == 0 {
		return errors.New("empty embedding vector")
	}
	if ix.dim == 0 {
		ix.dim = len(vector)
	} else if len(vector) != ix.dim {
		return fmt.Errorf("%w: index dim %d, vector dim %d", ErrDimensionMismatch, ix.dim, len(vector))
	}
	ix.entries = append(ix.entries, Entry{StudentID: studentID, Vector: vector})
	return nil
}

// Len returns the number of entries.
func (ix *Index) Len() int {
	return len(ix.entries)
}

// Dim returns the vector dimensionality, 0 for an empty index.
func (ix *Index) Dim() int {
	return ix.dim
}

// Empty reports whether the index holds no entries.
func (ix *Index) Empty() bool {
	return len(ix.entries) == 0
}

// At returns the entry at position i.
func (ix *Index) At(i int) Entry {
	return ix.entries[i]
}

// Entries returns the underlying entry slice. Callers must not mutate it;
// active matchers hold the index as a read-only snapshot.
func (ix *Index) Entries() []Entry {
	return ix.entries
}

// StudentIDs returns the distinct student ids present in the index,
// in first-appearance order.
func (ix *Index) StudentIDs() []string {
	seen := make(map[string]struct{}, len(ix.entries))
	var ids []string
	for _, e := range ix.entries {
		if _, ok := seen[e.StudentID]; ok {
			continue
		}
		seen[e.StudentID] = struct{}{}
		ids = append(ids, e.StudentID)
	}
	return ids
}

// Store persists a gallery index as one opaque snapshot. Load never fails on
// a missing or corrupt snapshot: it returns the explicit empty index instead,
// so a matcher over it simply never matches.
type Store interface {
	Load(ctx context.Context) (*Index, error)
	Save(ctx context.Context, ix *Index) error
}
