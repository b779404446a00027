package postgres

import (
	"context"
	"embed"
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Migrate applies all pending migrations, then ensures the embeddings
// table exists for the configured vector dimension. The dimension is part
// of the column type, so it cannot live in a static migration file.
func Migrate(ctx context.Context, pool *pgxpool.Pool, embeddingDim int) error {
	applied, err := appliedMigrations(ctx, pool)
	if err != nil {
		return err
	}

	files, err := pendingMigrationFiles(applied)
	if err != nil {
		return err
	}

	for _, file := range files {
		content, err := migrationsFS.ReadFile("migrations/" + file)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", file, err)
		}

		tx, err := pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin transaction for %s: %w", file, err)
		}

		if _, err := tx.Exec(ctx, string(content)); err != nil {
			_ = tx.Rollback(ctx)
			return fmt.Errorf("execute migration %s: %w", file, err)
		}
		if _, err := tx.Exec(ctx, "INSERT INTO schema_migrations (version) VALUES ($1)", file); err != nil {
			_ = tx.Rollback(ctx)
			return fmt.Errorf("record migration %s: %w", file, err)
		}
		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("commit migration %s: %w", file, err)
		}

		log.Printf("applied migration: %s", file)
	}

	return ensureEmbeddingsTable(ctx, pool, embeddingDim)
}

// appliedMigrations returns the set of already-applied migration versions.
func appliedMigrations(ctx context.Context, pool *pgxpool.Pool) (map[string]bool, error) {
	_, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version VARCHAR(255) PRIMARY KEY,
			applied_at TIMESTAMPTZ DEFAULT NOW()
		)
	`)
	if err != nil {
		return nil, fmt.Errorf("create migrations table: %w", err)
	}

	applied := make(map[string]bool)
	rows, err := pool.Query(ctx, "SELECT version FROM schema_migrations")
	if err != nil {
		return nil, fmt.Errorf("query applied migrations: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan migration version: %w", err)
		}
		applied[v] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate applied migrations: %w", err)
	}
	return applied, nil
}

// pendingMigrationFiles returns sorted SQL migration filenames not yet applied.
func pendingMigrationFiles(applied map[string]bool) ([]string, error) {
	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return nil, fmt.Errorf("read migrations directory: %w", err)
	}

	var files []string
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".sql") && !applied[e.Name()] {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)
	return files, nil
}

// ensureEmbeddingsTable creates the reference_embeddings table with the
// configured vector dimension.
func ensureEmbeddingsTable(ctx context.Context, pool *pgxpool.Pool, dim int) error {
	if dim <= 0 {
		return fmt.Errorf("invalid embedding dimension %d", dim)
	}

	createTable := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS reference_embeddings (
			id          BIGSERIAL PRIMARY KEY,
			identity_id TEXT NOT NULL REFERENCES identities(id) ON DELETE CASCADE,
			embedding   vector(%d) NOT NULL,
			created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`, dim)
	if _, err := pool.Exec(ctx, createTable); err != nil {
		return fmt.Errorf("create reference_embeddings table: %w", err)
	}

	if _, err := pool.Exec(ctx, `
		CREATE INDEX IF NOT EXISTS idx_reference_embeddings_identity
		ON reference_embeddings (identity_id)
	`); err != nil {
		return fmt.Errorf("create reference_embeddings index: %w", err)
	}
	return nil
}
