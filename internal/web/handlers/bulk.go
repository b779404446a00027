package handlers

import (
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/face-match/internal/constants"
	"github.com/kozaktomas/face-match/internal/pipeline"
)

// BulkHandler handles asynchronous batch recognition jobs.
type BulkHandler struct {
	bulk *pipeline.Bulk
	jobs *pipeline.JobManager
}

// NewBulkHandler creates a new bulk handler.
func NewBulkHandler(bulk *pipeline.Bulk, jobs *pipeline.JobManager) *BulkHandler {
	return &BulkHandler{
		bulk: bulk,
		jobs: jobs,
	}
}

// Submit accepts a batch of images as multipart field "images" and starts
// an asynchronous job. It responds 202 with the job id immediately; the
// client follows progress via the status or events endpoints.
func (h *BulkHandler) Submit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(constants.MaxUploadSize); err != nil {
		respondError(w, http.StatusBadRequest, "failed to parse multipart form")
		return
	}

	files := r.MultipartForm.File["images"]
	if len(files) == 0 {
		respondError(w, http.StatusBadRequest, "no images provided")
		return
	}
	if len(files) > constants.MaxBulkImages {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("too many images: %d (max %d)", len(files), constants.MaxBulkImages))
		return
	}

	refs := make([]pipeline.ImageRef, 0, len(files))
	for _, fileHeader := range files {
		if !isAllowedImage(fileHeader.Filename) {
			respondError(w, http.StatusBadRequest, fmt.Sprintf("unsupported image format: %s", sanitizeForLog(fileHeader.Filename)))
			return
		}

		file, err := fileHeader.Open()
		if err != nil {
			respondError(w, http.StatusInternalServerError, "failed to open uploaded file")
			return
		}
		data, err := io.ReadAll(file)
		file.Close()
		if err != nil {
			respondError(w, http.StatusInternalServerError, "failed to read uploaded file")
			return
		}

		refs = append(refs, pipeline.ImageRef{
			Name: fileHeader.Filename,
			Data: data,
		})
	}

	job, err := h.bulk.Submit(r.Context(), refs)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusAccepted, map[string]any{
		"job_id":       job.ID,
		"total_images": len(refs),
	})
}

// Status returns the job state and the result groups completed so far, in
// submission order.
func (h *BulkHandler) Status(w http.ResponseWriter, r *http.Request) {
	job := h.lookupJob(w, r)
	if job == nil {
		return
	}

	processed, total := job.Progress()
	respondJSON(w, http.StatusOK, map[string]any{
		"job_id":           job.ID,
		"status":           job.GetStatus(),
		"processed_images": processed,
		"total_images":     total,
		"groups":           job.Groups(),
	})
}

// Cancel stops dispatching new images for the job. Images already being
// processed run to completion.
func (h *BulkHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	job := h.lookupJob(w, r)
	if job == nil {
		return
	}

	job.Cancel()
	respondJSON(w, http.StatusOK, map[string]any{
		"job_id": job.ID,
		"status": job.GetStatus(),
	})
}

// Events streams job progress via Server-Sent Events.
func (h *BulkHandler) Events(w http.ResponseWriter, r *http.Request) {
	streamSSEEvents(w, r, func(id string) *pipeline.BulkJob {
		return h.jobs.GetJob(id)
	})
}

// lookupJob resolves the jobId URL parameter, writing an error response on
// failure.
func (h *BulkHandler) lookupJob(w http.ResponseWriter, r *http.Request) *pipeline.BulkJob {
	jobID := chi.URLParam(r, "jobId")
	if jobID == "" {
		respondError(w, http.StatusBadRequest, "missing job ID")
		return nil
	}
	job := h.jobs.GetJob(jobID)
	if job == nil {
		respondError(w, http.StatusNotFound, "job not found")
		return nil
	}
	return job
}
