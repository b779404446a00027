// Package gallery holds the known identities available for matching. Each
// identity carries an append-only set of reference embeddings; matching an
// identity through its closest reference tolerates pose and lighting
// variance across the reference set.
package gallery

import (
	"context"
	"errors"
	"iter"
)

var (
	// ErrNotFound is returned when an identity does not exist
	ErrNotFound = errors.New("identity not found")

	// ErrInvalidEmbedding is returned when an embedding's length does not
	// match the gallery's configured dimension
	ErrInvalidEmbedding = errors.New("embedding dimension mismatch")

	// ErrEmptyIdentity is returned when an identity id normalizes to an empty string
	ErrEmptyIdentity = errors.New("identity id is empty")
)

// Identity is a registered person: a stable identifier plus one or more
// reference embeddings in registration order. Identities with zero
// references never exist; registration creates the identity together with
// its first reference.
type Identity struct {
	ID         string
	References [][]float32
}

// Store is the gallery contract. Writers never block readers from seeing a
// fully-formed prior state: Snapshot returns an immutable view.
type Store interface {
	// Register appends a reference embedding, creating the identity if
	// absent. Fails with ErrInvalidEmbedding on dimension mismatch.
	Register(ctx context.Context, identityID string, embedding []float32) error

	// Remove deletes an identity. Fails with ErrNotFound if absent;
	// repeated calls after success fail the same way.
	Remove(ctx context.Context, identityID string) error

	// Snapshot returns an immutable view of the gallery preserving
	// first-registration order.
	Snapshot(ctx context.Context) (*Snapshot, error)

	// Count returns the number of registered identities.
	Count(ctx context.Context) (int, error)
}

// RefHit is a nearest-reference result from the ANN index.
type RefHit struct {
	IdentityID string
	Distance   float64
}

// Snapshot is an immutable gallery view. Safe for concurrent use.
type Snapshot struct {
	identities []Identity
	byID       map[string]int
	refCount   int
	dim        int
	index      *RefIndex // nil when ANN acceleration is unavailable
}

// All yields identities in first-registration order. The sequence is lazy
// and restartable.
func (s *Snapshot) All() iter.Seq[Identity] {
	return func(yield func(Identity) bool) {
		for _, id := range s.identities {
			if !yield(id) {
				return
			}
		}
	}
}

// Get returns the identity with the given (already normalized) id.
func (s *Snapshot) Get(identityID string) (Identity, bool) {
	i, ok := s.byID[identityID]
	if !ok {
		return Identity{}, false
	}
	return s.identities[i], true
}

// Len returns the number of identities in the snapshot.
func (s *Snapshot) Len() int {
	return len(s.identities)
}

// ReferenceCount returns the total number of reference embeddings.
func (s *Snapshot) ReferenceCount() int {
	return s.refCount
}

// Dim returns the embedding dimension the gallery was configured with.
func (s *Snapshot) Dim() int {
	return s.dim
}

// Nearest shortlists the k nearest references via the ANN index. The second
// return is false when no index is available and the caller must scan.
// Hits may reference identities removed after the index entry was added;
// callers verify against the snapshot.
func (s *Snapshot) Nearest(query []float32, k int) ([]RefHit, bool) {
	if s.index == nil {
		return nil, false
	}
	hits, err := s.index.Search(query, k)
	if err != nil {
		return nil, false
	}
	return hits, true
}
