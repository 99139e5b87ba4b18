package handlers

import (
	"bytes"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/user-aditi/face-attendance-system/internal/database"
	"github.com/user-aditi/face-attendance-system/internal/ledger"
)

func multipartFrame(t *testing.T, mode string) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", "frame.jpg")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := fw.Write([]byte("jpeg bytes")); err != nil {
		t.Fatal(err)
	}
	if mode != "" {
		if err := mw.WriteField("mode", mode); err != nil {
			t.Fatal(err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	return &body, mw.FormDataContentType()
}

func TestRecognizeJSONEntryAccepted(t *testing.T) {
	svc, students := newTestService(t, map[string][]float32{"S1": {1, 0, 0}}, nil)
	students.Add(database.Student{ID: "S1", Name: "Jana", DailyStatus: ledger.StatusAbsent})
	h := NewRecognizeHandler(svc, &fakeEmbedder{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/recognize",
		strings.NewReader(`{"embedding":[1,0,0],"mode":"entry"}`))
	rec := httptest.NewRecorder()
	h.Recognize(rec, req)

	assertStatusCode(t, rec, http.StatusOK)
	var resp RecognizeResponse
	parseJSONResponse(t, rec, &resp)
	if resp.Outcome != "accepted" {
		t.Errorf("expected accepted, got %s", resp.Outcome)
	}
	if resp.Student == nil || resp.Student.ID != "S1" {
		t.Errorf("expected student S1, got %+v", resp.Student)
	}
}

func TestRecognizeJSONDefaultsToEntryMode(t *testing.T) {
	svc, students := newTestService(t, map[string][]float32{"S1": {1, 0, 0}}, nil)
	students.Add(database.Student{ID: "S1", DailyStatus: ledger.StatusAbsent})
	h := NewRecognizeHandler(svc, &fakeEmbedder{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/recognize",
		strings.NewReader(`{"embedding":[1,0,0]}`))
	rec := httptest.NewRecorder()
	h.Recognize(rec, req)

	assertStatusCode(t, rec, http.StatusOK)
	var resp RecognizeResponse
	parseJSONResponse(t, rec, &resp)
	if resp.Outcome != "accepted" {
		t.Errorf("expected accepted via default entry mode, got %s", resp.Outcome)
	}
}

func TestRecognizeJSONMissingEmbedding(t *testing.T) {
	svc, _ := newTestService(t, nil, nil)
	h := NewRecognizeHandler(svc, &fakeEmbedder{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/recognize",
		strings.NewReader(`{"mode":"entry"}`))
	rec := httptest.NewRecorder()
	h.Recognize(rec, req)

	assertStatusCode(t, rec, http.StatusBadRequest)
	assertJSONError(t, rec, "embedding is required")
}

func TestRecognizeJSONInvalidBody(t *testing.T) {
	svc, _ := newTestService(t, nil, nil)
	h := NewRecognizeHandler(svc, &fakeEmbedder{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/recognize",
		strings.NewReader(`{not json`))
	rec := httptest.NewRecorder()
	h.Recognize(rec, req)

	assertStatusCode(t, rec, http.StatusBadRequest)
	assertJSONError(t, rec, errInvalidRequestBody)
}

func TestRecognizeDimensionMismatch(t *testing.T) {
	svc, students := newTestService(t, map[string][]float32{"S1": {1, 0, 0}}, nil)
	students.Add(database.Student{ID: "S1", DailyStatus: ledger.StatusAbsent})
	h := NewRecognizeHandler(svc, &fakeEmbedder{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/recognize",
		strings.NewReader(`{"embedding":[1,0],"mode":"entry"}`))
	rec := httptest.NewRecorder()
	h.Recognize(rec, req)

	assertStatusCode(t, rec, http.StatusBadRequest)
}

func TestRecognizeInvalidMode(t *testing.T) {
	svc, _ := newTestService(t, nil, nil)
	h := NewRecognizeHandler(svc, &fakeEmbedder{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/recognize",
		strings.NewReader(`{"embedding":[1,0,0],"mode":"sideways"}`))
	rec := httptest.NewRecorder()
	h.Recognize(rec, req)

	assertStatusCode(t, rec, http.StatusBadRequest)
}

func TestRecognizeGalleryRosterDrift(t *testing.T) {
	// Gallery knows GHOST but the roster does not.
	svc, _ := newTestService(t, map[string][]float32{"GHOST": {1, 0, 0}}, nil)
	h := NewRecognizeHandler(svc, &fakeEmbedder{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/recognize",
		strings.NewReader(`{"embedding":[1,0,0],"mode":"entry"}`))
	rec := httptest.NewRecorder()
	h.Recognize(rec, req)

	assertStatusCode(t, rec, http.StatusConflict)
}

func TestRecognizeMultipartFrame(t *testing.T) {
	svc, students := newTestService(t, map[string][]float32{"S1": {1, 0, 0}}, nil)
	students.Add(database.Student{ID: "S1", DailyStatus: ledger.StatusAbsent})
	h := NewRecognizeHandler(svc, &fakeEmbedder{embeddings: [][]float32{{1, 0, 0}}})

	body, contentType := multipartFrame(t, "entry")
	req := httptest.NewRequest(http.MethodPost, "/api/v1/recognize", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	h.Recognize(rec, req)

	assertStatusCode(t, rec, http.StatusOK)
	var resp RecognizeResponse
	parseJSONResponse(t, rec, &resp)
	if resp.Outcome != "accepted" {
		t.Errorf("expected accepted, got %s", resp.Outcome)
	}
}

func TestRecognizeMultipartNoFace(t *testing.T) {
	svc, _ := newTestService(t, map[string][]float32{"S1": {1, 0, 0}}, nil)
	h := NewRecognizeHandler(svc, &fakeEmbedder{embeddings: nil})

	body, contentType := multipartFrame(t, "entry")
	req := httptest.NewRequest(http.MethodPost, "/api/v1/recognize", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	h.Recognize(rec, req)

	assertStatusCode(t, rec, http.StatusOK)
	var resp RecognizeResponse
	parseJSONResponse(t, rec, &resp)
	if resp.Outcome != "no_face" {
		t.Errorf("expected no_face, got %s", resp.Outcome)
	}
}

func TestRecognizeMultipartEmbedderDown(t *testing.T) {
	svc, _ := newTestService(t, nil, nil)
	h := NewRecognizeHandler(svc, &fakeEmbedder{err: errors.New("connection refused")})

	body, contentType := multipartFrame(t, "entry")
	req := httptest.NewRequest(http.MethodPost, "/api/v1/recognize", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	h.Recognize(rec, req)

	assertStatusCode(t, rec, http.StatusBadGateway)
	assertJSONError(t, rec, "embedding service unavailable")
}

func TestRecognizeMultipartMissingFile(t *testing.T) {
	svc, _ := newTestService(t, nil, nil)
	h := NewRecognizeHandler(svc, &fakeEmbedder{})

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if err := mw.WriteField("mode", "entry"); err != nil {
		t.Fatal(err)
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/recognize", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	h.Recognize(rec, req)

	assertStatusCode(t, rec, http.StatusBadRequest)
	assertJSONError(t, rec, "file field is required")
}
