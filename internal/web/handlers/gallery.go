package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/user-aditi/face-attendance-system/internal/attendance"
	"github.com/user-aditi/face-attendance-system/internal/gallery"
)

// rebuildTimeout bounds one background gallery rebuild.
const rebuildTimeout = 10 * time.Minute

// GalleryHandler serves gallery inspection and rebuild endpoints.
type GalleryHandler struct {
	service    *attendance.Service
	jobManager *JobManager
	imageDir   string
}

// NewGalleryHandler creates a gallery handler. imageDir is the default
// reference image directory used when a rebuild request names none.
func NewGalleryHandler(service *attendance.Service, jobManager *JobManager, imageDir string) *GalleryHandler {
	return &GalleryHandler{service: service, jobManager: jobManager, imageDir: imageDir}
}

// GalleryStats describes the live gallery snapshot.
type GalleryStats struct {
	Entries  int               `json:"entries"`
	Students int               `json:"students"`
	Dim      int               `json:"dim"`
	Outliers []gallery.Outlier `json:"outliers"`
}

// Get returns stats about the live snapshot plus the enrollment audit.
func (h *GalleryHandler) Get(w http.ResponseWriter, r *http.Request) {
	ix := h.service.Gallery()
	outliers := h.service.AuditGallery()
	if outliers == nil {
		outliers = []gallery.Outlier{}
	}

	respondJSON(w, http.StatusOK, GalleryStats{
		Entries:  ix.Len(),
		Students: len(ix.StudentIDs()),
		Dim:      ix.Dim(),
		Outliers: outliers,
	})
}

// RebuildRequest optionally overrides the reference image directory.
type RebuildRequest struct {
	ImageDir string `json:"image_dir"`
}

// Rebuild starts an async gallery rebuild and returns the job id.
func (h *GalleryHandler) Rebuild(w http.ResponseWriter, r *http.Request) {
	var req RebuildRequest
	if r.Body != nil && r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, errInvalidRequestBody)
			return
		}
	}

	dir := req.ImageDir
	if dir == "" {
		dir = h.imageDir
	}
	if dir == "" {
		respondError(w, http.StatusBadRequest, "image_dir is required")
		return
	}

	job := h.jobManager.CreateJob(dir)
	go h.runRebuild(job)

	respondJSON(w, http.StatusAccepted, job.Snapshot())
}

func (h *GalleryHandler) runRebuild(job *RebuildJob) {
	ctx, cancel := context.WithTimeout(context.Background(), rebuildTimeout)
	defer cancel()

	job.setRunning()
	log.Printf("gallery rebuild %s started (dir %s)", job.ID, sanitizeForLog(job.ImageDir))

	report, err := h.service.RebuildGallery(ctx, job.ImageDir)
	job.finish(report, err)

	if err != nil {
		log.Printf("gallery rebuild %s failed: %v", job.ID, err)
		return
	}
	log.Printf("gallery rebuild %s done: %d entries, %d students, %d unusable",
		job.ID, report.Entries, report.Students, len(report.Unusable))
}

// RebuildStatus returns the state of one rebuild job.
func (h *GalleryHandler) RebuildStatus(w http.ResponseWriter, r *http.Request) {
	job := h.jobManager.GetJob(chi.URLParam(r, "jobId"))
	if job == nil {
		respondError(w, http.StatusNotFound, "job not found")
		return
	}
	respondJSON(w, http.StatusOK, job.Snapshot())
}
