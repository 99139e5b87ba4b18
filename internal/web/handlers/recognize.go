package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/user-aditi/face-attendance-system/internal/attendance"
	"github.com/user-aditi/face-attendance-system/internal/database"
	"github.com/user-aditi/face-attendance-system/internal/gallery"
	"github.com/user-aditi/face-attendance-system/internal/ledger"
)

// maxUploadSize caps recognize frame uploads at 10 MB.
const maxUploadSize = 10 << 20

// FaceEmbedder turns an uploaded frame into face embeddings.
type FaceEmbedder interface {
	EmbedFaces(ctx context.Context, imageData []byte) ([][]float32, error)
}

// RecognizeHandler handles live recognition requests.
type RecognizeHandler struct {
	service  *attendance.Service
	embedder FaceEmbedder
}

// NewRecognizeHandler creates a recognition handler.
func NewRecognizeHandler(service *attendance.Service, embedder FaceEmbedder) *RecognizeHandler {
	return &RecognizeHandler{service: service, embedder: embedder}
}

// RecognizeRequest is the JSON form of a recognize call: the caller already
// holds an embedding (e.g. an edge device running the model locally).
type RecognizeRequest struct {
	Embedding []float32 `json:"embedding"`
	Mode      string    `json:"mode"`
}

// RecognizeResponse adds the no_face outcome for frames where the embedding
// service found nobody; everything else passes through from the service.
type RecognizeResponse struct {
	Outcome  string            `json:"outcome"`
	Student  *database.Student `json:"student,omitempty"`
	Distance float64           `json:"distance,omitempty"`
}

// Recognize accepts either a JSON embedding or a multipart image frame
// (field "file" plus form value "mode") and runs it through match-then-record.
func (h *RecognizeHandler) Recognize(w http.ResponseWriter, r *http.Request) {
	var (
		embedding []float32
		mode      string
		err       error
	)

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		var status int
		embedding, mode, status, err = h.embeddingFromUpload(r)
		if err != nil {
			respondError(w, status, err.Error())
			return
		}
		if embedding == nil {
			// Nobody in the frame. A normal outcome for a live camera feed.
			respondJSON(w, http.StatusOK, RecognizeResponse{Outcome: "no_face"})
			return
		}
	} else {
		var req RecognizeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, errInvalidRequestBody)
			return
		}
		embedding, mode = req.Embedding, req.Mode
		if len(embedding) == 0 {
			respondError(w, http.StatusBadRequest, "embedding is required")
			return
		}
	}

	if mode == "" {
		mode = string(ledger.ModeEntry)
	}

	rec, err := h.service.Recognize(r.Context(), embedding, ledger.Mode(mode))
	if err != nil {
		switch {
		case errors.Is(err, gallery.ErrDimensionMismatch):
			respondError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, database.ErrUnknownStudent):
			// Gallery and roster drifted apart; rebuild the gallery.
			respondError(w, http.StatusConflict, err.Error())
		case strings.Contains(err.Error(), "invalid mode"):
			respondError(w, http.StatusBadRequest, err.Error())
		default:
			log.Printf("recognize failed: %v", err)
			respondError(w, http.StatusInternalServerError, "recognition failed")
		}
		return
	}

	respondJSON(w, http.StatusOK, RecognizeResponse{
		Outcome:  string(rec.Outcome),
		Student:  rec.Student,
		Distance: rec.Distance,
	})
}

// embeddingFromUpload extracts the first face embedding from a multipart
// frame. A nil embedding with nil error means no face was found.
func (h *RecognizeHandler) embeddingFromUpload(r *http.Request) ([]float32, string, int, error) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		return nil, "", http.StatusBadRequest, errors.New("invalid multipart form")
	}
	mode := r.FormValue("mode")

	file, _, err := r.FormFile("file")
	if err != nil {
		return nil, "", http.StatusBadRequest, errors.New("file field is required")
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxUploadSize))
	if err != nil {
		return nil, "", http.StatusBadRequest, errors.New("reading upload failed")
	}

	embeddings, err := h.embedder.EmbedFaces(r.Context(), data)
	if err != nil {
		log.Printf("embedding service failed: %v", err)
		return nil, "", http.StatusBadGateway, errors.New("embedding service unavailable")
	}
	if len(embeddings) == 0 {
		return nil, mode, 0, nil
	}
	// Several faces in one frame: the closest to the camera comes first.
	return embeddings[0], mode, 0, nil
}
