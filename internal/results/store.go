// Package results persists per-image recognition outcomes so they survive
// process restarts and can be fetched after a bulk job is gone.
package results

import (
	"context"
	"errors"

	"github.com/kozaktomas/face-match/internal/pipeline"
)

// Namespaces separate the two intake paths. A bulk image and a single
// upload may share an image id without clobbering each other.
const (
	NamespaceSingle = "single"
	NamespaceBulk   = "bulk"
)

// ErrNotFound is returned when no record exists for the given key.
var ErrNotFound = errors.New("result not found")

// Store persists and retrieves recognition result groups. Persist is an
// upsert keyed by (namespace, imageID); a reprocessed image replaces its
// previous record.
type Store interface {
	Persist(ctx context.Context, namespace, imageID string, results []pipeline.Result) error
	Load(ctx context.Context, namespace, imageID string) ([]pipeline.Result, error)
	List(ctx context.Context, namespace string) ([]string, error)
	Delete(ctx context.Context, namespace, imageID string) error
}
