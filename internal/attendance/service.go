// Package attendance wires matching and the ledger together: one recognized
// embedding in, one match-then-record outcome out. It also owns the live
// gallery snapshot and its rebuild lifecycle.
package attendance

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/user-aditi/face-attendance-system/internal/database"
	"github.com/user-aditi/face-attendance-system/internal/encoder"
	"github.com/user-aditi/face-attendance-system/internal/gallery"
	"github.com/user-aditi/face-attendance-system/internal/ledger"
	"github.com/user-aditi/face-attendance-system/internal/matcher"
)

// Outcome classifies one recognition attempt end to end. The ledger outcomes
// pass through unchanged; no_match is added by the matching stage.
type Outcome string

const (
	OutcomeNoMatch    Outcome = "no_match"
	OutcomeAccepted   Outcome = Outcome(ledger.OutcomeAccepted)
	OutcomeCooldown   Outcome = Outcome(ledger.OutcomeCooldown)
	OutcomeNotPresent Outcome = Outcome(ledger.OutcomeNotPresent)
)

// Recognition is the full result of one recognize call. Student is nil iff
// the embedding matched nobody; Distance is always the nearest gallery
// distance (+Inf semantics collapse to 0 for an empty gallery).
type Recognition struct {
	Outcome  Outcome           `json:"outcome"`
	Student  *database.Student `json:"student,omitempty"`
	Distance float64           `json:"distance"`
}

// RebuildReport summarizes one gallery rebuild.
type RebuildReport struct {
	Entries  int                     `json:"entries"`
	Students int                     `json:"students"`
	Dim      int                     `json:"dim"`
	Unusable []encoder.UnusableImage `json:"unusable,omitempty"`
}

// GalleryBuilder produces a fresh index from a directory of reference images.
type GalleryBuilder interface {
	Build(ctx context.Context, dir string) (*gallery.Index, []encoder.UnusableImage, error)
}

// Service is the application core behind both the HTTP API and the CLI.
type Service struct {
	students database.StudentWriter
	recorder database.AttendanceRecorder
	store    gallery.Store
	builder  GalleryBuilder

	threshold float64
	cooldown  time.Duration
	now       func() time.Time

	mu    sync.RWMutex
	index *gallery.Index
}

// Option tweaks a Service at construction time.
type Option func(*Service)

// WithThreshold overrides the match distance threshold.
func WithThreshold(t float64) Option {
	return func(s *Service) { s.threshold = t }
}

// WithCooldown overrides the entry cooldown window.
func WithCooldown(d time.Duration) Option {
	return func(s *Service) { s.cooldown = d }
}

// WithClock overrides the time source. Tests only.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService builds the core service. The gallery snapshot starts empty;
// call LoadGallery before serving recognitions.
func NewService(
	students database.StudentWriter,
	recorder database.AttendanceRecorder,
	store gallery.Store,
	builder GalleryBuilder,
	opts ...Option,
) *Service {
	s := &Service{
		students:  students,
		recorder:  recorder,
		store:     store,
		builder:   builder,
		threshold: matcher.DefaultThreshold,
		cooldown:  ledger.DefaultCooldown,
		now:       time.Now,
		index:     gallery.NewIndex(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// LoadGallery replaces the live snapshot with the persisted one. A missing
// snapshot loads as empty, which is a valid serving state.
func (s *Service) LoadGallery(ctx context.Context) error {
	ix, err := s.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("loading gallery: %w", err)
	}
	s.swap(ix)
	return nil
}

// Gallery returns the current snapshot. Treat it as read-only.
func (s *Service) Gallery() *gallery.Index {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index
}

func (s *Service) swap(ix *gallery.Index) {
	s.mu.Lock()
	s.index = ix
	s.mu.Unlock()
}

// Recognize runs the two-stage pipeline: match the embedding against the
// gallery, then apply the ledger for the matched student. A no-match is a
// normal outcome; an id that matched in the gallery but is missing from the
// roster surfaces as database.ErrUnknownStudent, since the gallery and
// roster have drifted apart and someone should know.
func (s *Service) Recognize(ctx context.Context, embedding []float32, mode ledger.Mode) (*Recognition, error) {
	if !ledger.ValidMode(mode) {
		return nil, fmt.Errorf("invalid mode %q", mode)
	}

	res, err := matcher.Match(embedding, s.Gallery(), s.threshold)
	if err != nil {
		return nil, err
	}
	if !res.Matched {
		return &Recognition{Outcome: OutcomeNoMatch, Distance: res.Distance}, nil
	}

	var rec *database.RecordResult
	if mode == ledger.ModeExit {
		rec, err = s.recorder.RecordExit(ctx, res.StudentID, s.now())
	} else {
		rec, err = s.recorder.RecordEntry(ctx, res.StudentID, s.now(), s.cooldown)
	}
	if err != nil {
		if errors.Is(err, database.ErrUnknownStudent) {
			return nil, fmt.Errorf("gallery references student %q missing from roster: %w", res.StudentID, err)
		}
		return nil, err
	}

	return &Recognition{
		Outcome:  Outcome(rec.Outcome),
		Student:  &rec.Student,
		Distance: res.Distance,
	}, nil
}

// RebuildGallery encodes the reference image directory into a fresh index,
// persists it, and atomically swaps it in. Recognitions keep serving the old
// snapshot until the swap. Per-image failures appear in the report; the
// rebuild fails outright only when nothing was usable, and in that case the
// previous snapshot stays live.
func (s *Service) RebuildGallery(ctx context.Context, dir string) (*RebuildReport, error) {
	ix, unusable, err := s.builder.Build(ctx, dir)
	if err != nil {
		return nil, err
	}

	if err := s.store.Save(ctx, ix); err != nil {
		return nil, fmt.Errorf("persisting gallery: %w", err)
	}
	s.swap(ix)

	return &RebuildReport{
		Entries:  ix.Len(),
		Students: len(ix.StudentIDs()),
		Dim:      ix.Dim(),
		Unusable: unusable,
	}, nil
}

// AuditGallery flags enrollment-quality problems in the live snapshot.
func (s *Service) AuditGallery() []gallery.Outlier {
	return gallery.Outliers(s.Gallery(), s.threshold)
}

// ResetDaily returns every student to Absent and reports how many rows
// changed. Counters and history are preserved.
func (s *Service) ResetDaily(ctx context.Context) (int64, error) {
	return s.recorder.ResetAll(ctx)
}

// EventsByDate exposes the audit log for one calendar date.
func (s *Service) EventsByDate(ctx context.Context, date time.Time) ([]database.AttendanceEvent, error) {
	return s.recorder.EventsByDate(ctx, date)
}

// Students exposes the roster repository for CRUD passthrough.
func (s *Service) Students() database.StudentWriter {
	return s.students
}

// SearchStudents finds students by normalized name.
func (s *Service) SearchStudents(ctx context.Context, name string) ([]database.Student, error) {
	return s.students.SearchByName(ctx, name)
}
