package gallery

import (
	"bytes"
	"context"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// blobVersion guards against decoding snapshots written by a future format.
const blobVersion = 1

// blob is the on-disk gob representation of a gallery snapshot.
type blob struct {
	Version int
	SavedAt time.Time
	Entries []Entry
}

// FileStore persists the gallery as a single gob blob on disk.
type FileStore struct {
	path string
}

// NewFileStore creates a file-backed gallery store at the given path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load reads the gallery snapshot. A missing file, an undecodable blob, or a
// blob with inconsistent vector lengths all yield the empty index rather than
// an error: recognition keeps running, it just matches nothing.
func (s *FileStore) Load(ctx context.Context) (*Index, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return NewIndex(), nil
	}

	var b blob
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&b); err != nil {
		return NewIndex(), nil
	}
	if b.Version != blobVersion {
		return NewIndex(), nil
	}

	ix := NewIndex()
	for _, e := range b.Entries {
		if err := ix.Add(e.StudentID, e.Vector); err != nil {
			// Inconsistent blob; treat the whole snapshot as unusable.
			return NewIndex(), nil
		}
	}
	return ix, nil
}

// Save writes the snapshot atomically: encode to a temp file in the same
// directory, then rename over the previous blob. A failed save leaves the
// prior snapshot untouched.
func (s *FileStore) Save(ctx context.Context, ix *Index) error {
	var buf bytes.Buffer
	b := blob{
		Version: blobVersion,
		SavedAt: time.Now().UTC(),
		Entries: ix.Entries(),
	}
	if err := gob.NewEncoder(&buf).Encode(&b); err != nil {
		return fmt.Errorf("encoding gallery blob: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".gallery-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp gallery file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing gallery blob: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing gallery blob: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing gallery blob: %w", err)
	}
	return nil
}
