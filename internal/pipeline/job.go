package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/kozaktomas/face-match/internal/constants"
)

// JobStatus represents the status of an async bulk job.
type JobStatus string

// JobStatus constants define the lifecycle states of a bulk job.
const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
)

// JobEvent represents an event emitted by a running job.
type JobEvent struct {
	Type    string `json:"type"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// EventBroadcaster provides listener management and event broadcasting for
// async jobs. Embed this in job structs to get AddListener, RemoveListener,
// and SendEvent methods.
type EventBroadcaster struct {
	cancel    context.CancelFunc
	listeners []chan JobEvent
	mu        sync.RWMutex
}

// AddListener adds an event listener.
func (b *EventBroadcaster) AddListener() chan JobEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan JobEvent, constants.EventChannelBuffer)
	b.listeners = append(b.listeners, ch)
	return ch
}

// RemoveListener removes an event listener.
func (b *EventBroadcaster) RemoveListener(ch chan JobEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, listener := range b.listeners {
		if listener == ch {
			b.listeners = append(b.listeners[:i], b.listeners[i+1:]...)
			close(ch)
			return
		}
	}
}

// SendEvent sends an event to all listeners.
func (b *EventBroadcaster) SendEvent(event JobEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, listener := range b.listeners {
		select {
		case listener <- event:
		default:
			// Listener buffer full, skip.
		}
	}
}

// BulkJob is a batch submission being processed with per-item failure
// isolation. Groups is indexed by submission position; entries fill in as
// images complete, so the visible ordering always matches the input
// regardless of worker completion order.
type BulkJob struct {
	EventBroadcaster

	ID              string     `json:"id"`
	Status          JobStatus  `json:"status"`
	TotalImages     int        `json:"total_images"`
	ProcessedImages int        `json:"processed_images"`
	Error           string     `json:"error,omitempty"`
	StartedAt       time.Time  `json:"started_at"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`

	groups []Group
	filled []bool
}

// GetStatus returns the current job status (implements SSEJob semantics).
func (j *BulkJob) GetStatus() JobStatus {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.Status
}

// Cancel cancels the job. Images already dispatched run to completion; no
// new images are dispatched once cancellation is observed.
func (j *BulkJob) Cancel() {
	if j.cancel != nil {
		j.cancel()
	}
	j.mu.Lock()
	if j.Status == JobStatusPending || j.Status == JobStatusRunning {
		j.Status = JobStatusCancelled
	}
	j.mu.Unlock()
	j.SendEvent(JobEvent{Type: "cancelled", Message: "Job cancelled by user"})
}

// Groups returns the result groups completed so far, in submission order.
func (j *BulkJob) Groups() []Group {
	j.mu.RLock()
	defer j.mu.RUnlock()
	groups := make([]Group, 0, len(j.groups))
	for i, done := range j.filled {
		if done {
			groups = append(groups, j.groups[i])
		}
	}
	return groups
}

// setGroup records the finished group for one submission position.
func (j *BulkJob) setGroup(index int, group Group) {
	j.mu.Lock()
	j.groups[index] = group
	j.filled[index] = true
	j.ProcessedImages++
	j.mu.Unlock()
}

// Progress returns processed and total image counts.
func (j *BulkJob) Progress() (processed, total int) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.ProcessedImages, j.TotalImages
}

func (j *BulkJob) setStatus(status JobStatus) {
	j.mu.Lock()
	j.Status = status
	j.mu.Unlock()
}

// finish marks the job terminal unless it was already cancelled.
func (j *BulkJob) finish(status JobStatus, errMsg string) {
	now := time.Now()
	j.mu.Lock()
	if j.Status != JobStatusCancelled {
		j.Status = status
	}
	j.Error = errMsg
	j.CompletedAt = &now
	final := j.Status
	j.mu.Unlock()
	j.SendEvent(JobEvent{Type: string(final)})
}

// JobManager tracks bulk jobs by id.
type JobManager struct {
	jobs map[string]*BulkJob
	mu   sync.RWMutex
}

// NewJobManager creates a new job manager.
func NewJobManager() *JobManager {
	return &JobManager{
		jobs: make(map[string]*BulkJob),
	}
}

// CreateJob registers a new pending bulk job.
func (m *JobManager) CreateJob(id string, totalImages int, cancel context.CancelFunc) *BulkJob {
	job := &BulkJob{
		ID:          id,
		Status:      JobStatusPending,
		TotalImages: totalImages,
		StartedAt:   time.Now(),
		groups:      make([]Group, totalImages),
		filled:      make([]bool, totalImages),
	}
	job.cancel = cancel

	m.mu.Lock()
	m.jobs[id] = job
	m.mu.Unlock()

	return job
}

// GetJob retrieves a job by ID.
func (m *JobManager) GetJob(id string) *BulkJob {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.jobs[id]
}

// DeleteJob removes a job.
func (m *JobManager) DeleteJob(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.jobs, id)
}

// ListJobs returns all known jobs.
func (m *JobManager) ListJobs() []*BulkJob {
	m.mu.RLock()
	defer m.mu.RUnlock()
	jobs := make([]*BulkJob, 0, len(m.jobs))
	for _, job := range m.jobs {
		jobs = append(jobs, job)
	}
	return jobs
}
