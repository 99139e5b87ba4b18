package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/user-aditi/face-attendance-system/internal/attendance"
	"github.com/user-aditi/face-attendance-system/internal/database/mock"
	"github.com/user-aditi/face-attendance-system/internal/encoder"
	"github.com/user-aditi/face-attendance-system/internal/gallery"
)

// fakeBuilder returns a canned gallery build result.
type fakeBuilder struct {
	ix       *gallery.Index
	unusable []encoder.UnusableImage
	err      error
}

func (f *fakeBuilder) Build(_ context.Context, _ string) (*gallery.Index, []encoder.UnusableImage, error) {
	return f.ix, f.unusable, f.err
}

// fakeEmbedder returns canned embeddings for uploaded frames.
type fakeEmbedder struct {
	embeddings [][]float32
	err        error
}

func (f *fakeEmbedder) EmbedFaces(_ context.Context, _ []byte) ([][]float32, error) {
	return f.embeddings, f.err
}

// newTestService builds a service over in-memory fakes. galleryEntries seeds
// the live snapshot; the builder is swapped per test where needed.
func newTestService(t *testing.T, galleryEntries map[string][]float32, builder attendance.GalleryBuilder) (*attendance.Service, *mock.StudentStore) {
	t.Helper()

	students := mock.NewStudentStore()
	recorder := mock.NewRecorder(students)
	store := gallery.NewFileStore(filepath.Join(t.TempDir(), "encodings.gob"))

	if len(galleryEntries) > 0 {
		ix := gallery.NewIndex()
		for id, vec := range galleryEntries {
			if err := ix.Add(id, vec); err != nil {
				t.Fatalf("seeding gallery: %v", err)
			}
		}
		if err := store.Save(context.Background(), ix); err != nil {
			t.Fatalf("saving seed gallery: %v", err)
		}
	}

	if builder == nil {
		builder = &fakeBuilder{ix: gallery.NewIndex()}
	}
	svc := attendance.NewService(students, recorder, store, builder)
	if err := svc.LoadGallery(context.Background()); err != nil {
		t.Fatalf("loading gallery: %v", err)
	}
	return svc, students
}

// requestWithChiParams creates a request with chi URL parameters
func requestWithChiParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// parseJSONResponse parses a JSON response body into the target type
func parseJSONResponse(t *testing.T, recorder *httptest.ResponseRecorder, target any) {
	t.Helper()
	if err := json.Unmarshal(recorder.Body.Bytes(), target); err != nil {
		t.Fatalf("failed to parse JSON response: %v\nBody: %s", err, recorder.Body.String())
	}
}

// assertStatusCode checks if the response has the expected status code
func assertStatusCode(t *testing.T, recorder *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if recorder.Code != expected {
		t.Errorf("expected status %d, got %d\nBody: %s", expected, recorder.Code, recorder.Body.String())
	}
}

// assertJSONError checks if the response is a JSON error with the expected message
func assertJSONError(t *testing.T, recorder *httptest.ResponseRecorder, expectedMessage string) {
	t.Helper()
	var result map[string]string
	if err := json.Unmarshal(recorder.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse error response: %v\nBody: %s", err, recorder.Body.String())
	}
	if result["error"] != expectedMessage {
		t.Errorf("expected error '%s', got '%s'", expectedMessage, result["error"])
	}
}
