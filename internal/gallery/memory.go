package gallery

import (
	"context"
	"fmt"
	"slices"
	"sync"
)

// MemoryStore is an in-process gallery with copy-on-write snapshots.
// Registrations clone the affected state and swap a pointer, so readers
// holding a snapshot never observe a torn embedding or a half-registered
// identity. Writes to the same identity serialize on the store mutex.
type MemoryStore struct {
	mu      sync.Mutex // serializes writers
	current *Snapshot  // swapped atomically under mu, read via snapMu
	snapMu  sync.RWMutex
	index   *RefIndex
	dim     int
}

// NewMemoryStore creates an empty gallery for embeddings of the given dimension.
func NewMemoryStore(dim int) *MemoryStore {
	return &MemoryStore{
		current: &Snapshot{byID: make(map[string]int), dim: dim},
		index:   NewRefIndex(),
		dim:     dim,
	}
}

func (s *MemoryStore) snapshot() *Snapshot {
	s.snapMu.RLock()
	defer s.snapMu.RUnlock()
	return s.current
}

func (s *MemoryStore) swap(snap *Snapshot) {
	s.snapMu.Lock()
	s.current = snap
	s.snapMu.Unlock()
}

// Register appends a reference embedding, creating the identity if absent.
func (s *MemoryStore) Register(ctx context.Context, identityID string, embedding []float32) error {
	id := NormalizeID(identityID)
	if id == "" {
		return ErrEmptyIdentity
	}
	if len(embedding) != s.dim {
		return fmt.Errorf("%w: got %d, want %d", ErrInvalidEmbedding, len(embedding), s.dim)
	}

	// Own a copy so later caller mutations cannot reach the snapshot.
	ref := slices.Clone(embedding)

	s.mu.Lock()
	defer s.mu.Unlock()

	old := s.snapshot()
	identities := slices.Clone(old.identities)
	byID := make(map[string]int, len(old.byID)+1)
	for k, v := range old.byID {
		byID[k] = v
	}

	if i, ok := byID[id]; ok {
		updated := identities[i]
		updated.References = append(slices.Clone(updated.References), ref)
		identities[i] = updated
	} else {
		identities = append(identities, Identity{ID: id, References: [][]float32{ref}})
		byID[id] = len(identities) - 1
	}

	s.index.Add(id, ref)

	s.swap(&Snapshot{
		identities: identities,
		byID:       byID,
		refCount:   old.refCount + 1,
		dim:        s.dim,
		index:      s.index,
	})
	return nil
}

// Remove deletes an identity and all its references.
func (s *MemoryStore) Remove(ctx context.Context, identityID string) error {
	id := NormalizeID(identityID)
	if id == "" {
		return ErrEmptyIdentity
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	old := s.snapshot()
	i, ok := old.byID[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	removed := old.identities[i]
	identities := slices.Delete(slices.Clone(old.identities), i, i+1)
	byID := make(map[string]int, len(identities))
	for j, ident := range identities {
		byID[ident.ID] = j
	}

	s.index.Forget(id)

	s.swap(&Snapshot{
		identities: identities,
		byID:       byID,
		refCount:   old.refCount - len(removed.References),
		dim:        s.dim,
		index:      s.index,
	})
	return nil
}

// Snapshot returns the current immutable view.
func (s *MemoryStore) Snapshot(ctx context.Context) (*Snapshot, error) {
	return s.snapshot(), nil
}

// Count returns the number of registered identities.
func (s *MemoryStore) Count(ctx context.Context) (int, error) {
	return s.snapshot().Len(), nil
}
