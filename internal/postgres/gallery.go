package postgres

import (
	"context"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/kozaktomas/face-match/internal/gallery"
)

// GalleryStore is a database-backed gallery. PostgreSQL is the durable
// record; all reads are served from an in-memory view that is rebuilt
// from the database at startup and kept in sync on every write. Snapshot
// semantics (immutability, registration order) come from the wrapped
// in-memory store.
type GalleryStore struct {
	pool *pgxpool.Pool
	mem  *gallery.MemoryStore
	dim  int
	mu   sync.Mutex // serializes writers across db and memory
}

// NewGalleryStore loads all registered identities from the database into
// memory and returns a store ready for matching.
func NewGalleryStore(ctx context.Context, pool *pgxpool.Pool, dim int) (*GalleryStore, error) {
	s := &GalleryStore{
		pool: pool,
		mem:  gallery.NewMemoryStore(dim),
		dim:  dim,
	}
	if err := s.load(ctx); err != nil {
		return nil, fmt.Errorf("failed to load gallery: %w", err)
	}
	return s, nil
}

// load replays all stored references in registration order. Identity order
// follows the identities sequence, reference order the embedding row id.
func (s *GalleryStore) load(ctx context.Context) error {
	rows, err := s.pool.Query(ctx, `
		SELECT r.identity_id, r.embedding
		FROM reference_embeddings r
		JOIN identities i ON i.id = r.identity_id
		ORDER BY i.seq, r.id
	`)
	if err != nil {
		return fmt.Errorf("query reference embeddings: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var identityID string
		var vec pgvector.Vector
		if err := rows.Scan(&identityID, &vec); err != nil {
			return fmt.Errorf("scan reference embedding: %w", err)
		}
		if err := s.mem.Register(ctx, identityID, vec.Slice()); err != nil {
			return fmt.Errorf("replay reference for %s: %w", identityID, err)
		}
	}
	return rows.Err()
}

// Register appends a reference embedding, creating the identity if absent.
// The database write commits before the in-memory view updates, so a crash
// between the two loses nothing on restart.
func (s *GalleryStore) Register(ctx context.Context, identityID string, embedding []float32) error {
	id := gallery.NormalizeID(identityID)
	if id == "" {
		return gallery.ErrEmptyIdentity
	}
	if len(embedding) != s.dim {
		return fmt.Errorf("%w: got %d, want %d", gallery.ErrInvalidEmbedding, len(embedding), s.dim)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin register transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx,
		"INSERT INTO identities (id) VALUES ($1) ON CONFLICT (id) DO NOTHING", id); err != nil {
		return fmt.Errorf("insert identity: %w", err)
	}
	if _, err := tx.Exec(ctx,
		"INSERT INTO reference_embeddings (identity_id, embedding) VALUES ($1, $2)",
		id, pgvector.NewVector(embedding)); err != nil {
		return fmt.Errorf("insert reference embedding: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit register transaction: %w", err)
	}

	return s.mem.Register(ctx, id, embedding)
}

// Remove deletes an identity and all its references.
func (s *GalleryStore) Remove(ctx context.Context, identityID string) error {
	id := gallery.NormalizeID(identityID)
	if id == "" {
		return gallery.ErrEmptyIdentity
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tag, err := s.pool.Exec(ctx, "DELETE FROM identities WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete identity: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", gallery.ErrNotFound, id)
	}

	return s.mem.Remove(ctx, id)
}

// Snapshot returns the current immutable in-memory view.
func (s *GalleryStore) Snapshot(ctx context.Context) (*gallery.Snapshot, error) {
	return s.mem.Snapshot(ctx)
}

// Count returns the number of registered identities.
func (s *GalleryStore) Count(ctx context.Context) (int, error) {
	return s.mem.Count(ctx)
}
