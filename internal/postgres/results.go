package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kozaktomas/face-match/internal/pipeline"
	"github.com/kozaktomas/face-match/internal/results"
)

// ResultStore keeps recognition results as JSONB rows keyed by
// (namespace, image id). Persist is an atomic upsert, so a reprocessed
// image replaces its record in one statement.
type ResultStore struct {
	pool *pgxpool.Pool
}

// NewResultStore creates a database-backed result store.
func NewResultStore(pool *pgxpool.Pool) *ResultStore {
	return &ResultStore{pool: pool}
}

var _ results.Store = (*ResultStore)(nil)

// Persist writes the result group for one image, replacing any previous
// record for the same key.
func (s *ResultStore) Persist(ctx context.Context, namespace, imageID string, res []pipeline.Result) error {
	data, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO recognition_results (namespace, image_id, results)
		VALUES ($1, $2, $3)
		ON CONFLICT (namespace, image_id)
		DO UPDATE SET results = EXCLUDED.results, updated_at = NOW()
	`, namespace, imageID, data)
	if err != nil {
		return fmt.Errorf("failed to persist results: %w", err)
	}
	return nil
}

// Load retrieves the result group for one image.
func (s *ResultStore) Load(ctx context.Context, namespace, imageID string) ([]pipeline.Result, error) {
	var data []byte
	err := s.pool.QueryRow(ctx,
		"SELECT results FROM recognition_results WHERE namespace = $1 AND image_id = $2",
		namespace, imageID).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, results.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query results: %w", err)
	}

	var res []pipeline.Result
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, fmt.Errorf("failed to parse results for %s/%s: %w", namespace, imageID, err)
	}
	return res, nil
}

// List returns all image keys recorded under a namespace, sorted.
func (s *ResultStore) List(ctx context.Context, namespace string) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		"SELECT image_id FROM recognition_results WHERE namespace = $1 ORDER BY image_id",
		namespace)
	if err != nil {
		return nil, fmt.Errorf("failed to list results: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("failed to scan result key: %w", err)
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

// Delete removes the record for one image. Deleting a missing record
// returns results.ErrNotFound.
func (s *ResultStore) Delete(ctx context.Context, namespace, imageID string) error {
	tag, err := s.pool.Exec(ctx,
		"DELETE FROM recognition_results WHERE namespace = $1 AND image_id = $2",
		namespace, imageID)
	if err != nil {
		return fmt.Errorf("failed to delete results: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return results.ErrNotFound
	}
	return nil
}
