package pipeline

import (
	"context"
	"errors"
	"log"
	"os"
	"sync"

	"github.com/google/uuid"
)

// Persister receives each image's finalized result group for durable
// storage. Implemented by the results package stores.
type Persister interface {
	Persist(ctx context.Context, namespace, imageID string, results []Result) error
}

// BulkNamespace keys bulk-job records in the result store, kept separate
// from the single-image intake path to prevent identifier collisions.
const BulkNamespace = "bulk"

// ImageRef references one image in a bulk submission. Either Data or Path
// is set; Path is read lazily by the worker that picks the image up.
type ImageRef struct {
	ID   string
	Name string
	Data []byte
	Path string
}

// Bulk processes batches of images concurrently over a bounded worker
// pool. Individual image failures are recorded and never abort the batch.
type Bulk struct {
	single    *Single
	persister Persister
	jobs      *JobManager
	poolSize  int

	// onImageDone is a test hook invoked after each image finalizes.
	onImageDone func(index int)
}

// NewBulk creates a bulk pipeline dispatching to poolSize workers.
func NewBulk(single *Single, persister Persister, jobs *JobManager, poolSize int) *Bulk {
	if poolSize <= 0 {
		poolSize = 1
	}
	return &Bulk{
		single:    single,
		persister: persister,
		jobs:      jobs,
		poolSize:  poolSize,
	}
}

// Submit starts asynchronous processing of the batch and returns the job.
// Refs without an ID get one assigned; the final persisted sequence always
// preserves submission order.
func (b *Bulk) Submit(ctx context.Context, refs []ImageRef) (*BulkJob, error) {
	if len(refs) == 0 {
		return nil, errors.New("no images submitted")
	}

	for i := range refs {
		if refs[i].ID == "" {
			refs[i].ID = uuid.New().String()
		}
	}

	jobCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	job := b.jobs.CreateJob(uuid.New().String(), len(refs), cancel)

	go b.run(jobCtx, job, refs)

	return job, nil
}

// run drives one job to a terminal state. Every image produces at least
// one result (error placeholders included) before the job completes.
func (b *Bulk) run(ctx context.Context, job *BulkJob, refs []ImageRef) {
	job.setStatus(JobStatusRunning)
	job.SendEvent(JobEvent{Type: "started", Data: map[string]int{"total_images": len(refs)}})

	sem := make(chan struct{}, b.poolSize)
	var wg sync.WaitGroup
	var persistErr error
	var persistMu sync.Mutex

	for i, ref := range refs {
		if ctx.Err() != nil {
			break
		}

		wg.Add(1)
		go func(idx int, ref ImageRef) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				return
			}
			defer func() { <-sem }()

			if ctx.Err() != nil {
				return
			}

			// Dispatched images run to completion even if the job is
			// cancelled mid-flight, so the group is never torn.
			group := b.processImage(context.WithoutCancel(ctx), ref)
			job.setGroup(idx, group)

			if err := b.persister.Persist(context.WithoutCancel(ctx), BulkNamespace, job.ID+"/"+ref.ID, group.Results); err != nil {
				log.Printf("bulk job %s: failed to persist results for image %s: %v", job.ID, ref.ID, err)
				persistMu.Lock()
				persistErr = err
				persistMu.Unlock()
			}

			processed, total := job.Progress()
			job.SendEvent(JobEvent{Type: "image_done", Data: map[string]any{
				"image_id":  ref.ID,
				"index":     idx,
				"processed": processed,
				"total":     total,
			}})

			if b.onImageDone != nil {
				b.onImageDone(idx)
			}
		}(i, ref)
	}

	wg.Wait()

	persistMu.Lock()
	defer persistMu.Unlock()
	if persistErr != nil {
		job.finish(JobStatusFailed, "failed to persist results: "+persistErr.Error())
		return
	}
	job.finish(JobStatusCompleted, "")
}

// processImage loads and recognizes one image, mapping every failure mode
// to a recorded result group so nothing is silently dropped.
func (b *Bulk) processImage(ctx context.Context, ref ImageRef) Group {
	data := ref.Data
	if data == nil {
		var err error
		data, err = os.ReadFile(ref.Path)
		if err != nil {
			return errorGroup(ref.ID, ref.Name, ErrUnreadableImage.Error()+": "+err.Error())
		}
	}

	results, err := b.single.Process(ctx, ref.ID, data)
	if err != nil {
		return errorGroup(ref.ID, ref.Name, err.Error())
	}

	return Group{ImageID: ref.ID, Name: ref.Name, Results: results}
}
