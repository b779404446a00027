// Package constants provides shared constants used across the codebase.
// Centralizing these values ensures consistency and makes them easier to modify.
package constants

// Embedding constants
const (
	// DefaultEmbeddingDim is the default embedding vector dimension.
	// Matches the dlib face encoder the embedding server wraps.
	DefaultEmbeddingDim = 128

	// DefaultEmbeddingModel is the default embedding model identifier
	DefaultEmbeddingModel = "dlib"
)

// Matching constants
const (
	// DefaultDistanceThreshold is the default maximum Euclidean distance
	// for a match to be accepted. Lower values = stricter matching.
	DefaultDistanceThreshold = 0.4

	// HNSWMinReferences is the gallery reference count above which the
	// matcher shortlists candidates through the HNSW index instead of
	// scanning every reference
	HNSWMinReferences = 1000

	// HNSWShortlistSize is the number of nearest references fetched from
	// the HNSW index per query
	HNSWShortlistSize = 32

	// HNSWMaxNeighbors is the M parameter of the HNSW graph
	HNSWMaxNeighbors = 16
)

// Processing constants
const (
	// WorkerPoolSize is the default number of parallel workers for bulk
	// recognition. The embedding server's native routines are CPU heavy,
	// so the pool must stay bounded.
	WorkerPoolSize = 4

	// MaxImageSize is the maximum dimension (width or height) an image is
	// downscaled to before being sent to the embedding server
	MaxImageSize = 1920
)

// Event channel constants
const (
	// EventChannelBuffer is the buffer size for job event channels
	EventChannelBuffer = 100
)

// File upload constants
const (
	// MaxUploadSize is the maximum upload size for a single request in bytes (100MB)
	MaxUploadSize = 100 << 20

	// MaxBulkImages is the maximum number of images accepted in one bulk submission
	MaxBulkImages = 500
)
