package gallery

import (
	"errors"
	"sync"

	"github.com/coder/hnsw"

	"github.com/kozaktomas/face-match/internal/constants"
)

// RefIndex wraps an HNSW graph over individual reference embeddings for
// approximate nearest-neighbor shortlisting in large galleries. Exact
// distances are always re-verified by the matcher against the snapshot.
type RefIndex struct {
	graph   *hnsw.Graph[int64]
	idToRef map[int64]string // HNSW node ID -> identity id
	nextID  int64
	mu      sync.RWMutex
}

// NewRefIndex creates a new empty reference index.
func NewRefIndex() *RefIndex {
	return &RefIndex{
		idToRef: make(map[int64]string),
	}
}

func newGraph() *hnsw.Graph[int64] {
	g := hnsw.NewGraph[int64]()
	g.M = constants.HNSWMaxNeighbors
	g.Ml = 1.0 / float64(constants.HNSWMaxNeighbors) // Standard HNSW formula
	g.Distance = hnsw.EuclideanDistance
	return g
}

// Add inserts a single reference embedding for an identity.
func (x *RefIndex) Add(identityID string, embedding []float32) {
	if len(embedding) == 0 {
		return
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	if x.graph == nil {
		x.graph = newGraph()
	}

	x.nextID++
	x.graph.Add(hnsw.MakeNode(x.nextID, embedding))
	x.idToRef[x.nextID] = identityID
}

// Forget drops the identity mapping for all of an identity's references.
// HNSW does not support true deletion; orphaned nodes stay in the graph but
// no longer resolve to an identity and are skipped on search.
func (x *RefIndex) Forget(identityID string) {
	x.mu.Lock()
	defer x.mu.Unlock()
	for id, ref := range x.idToRef {
		if ref == identityID {
			delete(x.idToRef, id)
		}
	}
}

// Search finds the k nearest references to the query embedding.
func (x *RefIndex) Search(query []float32, k int) ([]RefHit, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	if x.graph == nil {
		return nil, errors.New("index not initialized")
	}

	neighbors := x.graph.Search(query, k)

	hits := make([]RefHit, 0, len(neighbors))
	for _, n := range neighbors {
		identityID, ok := x.idToRef[n.Key]
		if !ok {
			continue // orphaned by Forget
		}
		hits = append(hits, RefHit{
			IdentityID: identityID,
			Distance:   float64(hnsw.EuclideanDistance(query, n.Value)),
		})
	}

	return hits, nil
}

// Len returns the number of live references in the index.
func (x *RefIndex) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.idToRef)
}
