package handlers

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/user-aditi/face-attendance-system/internal/attendance"
)

// JobStatus represents the status of an async job.
type JobStatus string

// JobStatus constants define the lifecycle states of an async job.
const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// RebuildJob tracks one async gallery rebuild.
type RebuildJob struct {
	mu sync.RWMutex

	ID          string                    `json:"id"`
	ImageDir    string                    `json:"image_dir"`
	Status      JobStatus                 `json:"status"`
	Error       string                    `json:"error,omitempty"`
	StartedAt   time.Time                 `json:"started_at"`
	CompletedAt *time.Time                `json:"completed_at,omitempty"`
	Report      *attendance.RebuildReport `json:"report,omitempty"`
}

// Snapshot returns a copy of the job safe to serialize while it runs.
func (j *RebuildJob) Snapshot() RebuildJob {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return RebuildJob{
		ID:          j.ID,
		ImageDir:    j.ImageDir,
		Status:      j.Status,
		Error:       j.Error,
		StartedAt:   j.StartedAt,
		CompletedAt: j.CompletedAt,
		Report:      j.Report,
	}
}

func (j *RebuildJob) setRunning() {
	j.mu.Lock()
	j.Status = JobStatusRunning
	j.mu.Unlock()
}

func (j *RebuildJob) finish(report *attendance.RebuildReport, err error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	now := time.Now()
	j.CompletedAt = &now
	if err != nil {
		j.Status = JobStatusFailed
		j.Error = err.Error()
		return
	}
	j.Status = JobStatusCompleted
	j.Report = report
}

// JobManager manages async rebuild jobs.
type JobManager struct {
	jobs map[string]*RebuildJob
	mu   sync.RWMutex
}

// NewJobManager creates a new job manager.
func NewJobManager() *JobManager {
	return &JobManager{
		jobs: make(map[string]*RebuildJob),
	}
}

// CreateJob registers a new pending rebuild job with a fresh id.
func (m *JobManager) CreateJob(imageDir string) *RebuildJob {
	job := &RebuildJob{
		ID:        uuid.NewString(),
		ImageDir:  imageDir,
		Status:    JobStatusPending,
		StartedAt: time.Now(),
	}

	m.mu.Lock()
	m.jobs[job.ID] = job
	m.mu.Unlock()

	return job
}

// GetJob retrieves a job by ID.
func (m *JobManager) GetJob(id string) *RebuildJob {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.jobs[id]
}
