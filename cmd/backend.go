package cmd

import (
	"context"
	"fmt"

	"github.com/kozaktomas/face-match/internal/config"
	"github.com/kozaktomas/face-match/internal/embedding"
	"github.com/kozaktomas/face-match/internal/gallery"
	"github.com/kozaktomas/face-match/internal/matcher"
	"github.com/kozaktomas/face-match/internal/pipeline"
	"github.com/kozaktomas/face-match/internal/postgres"
	"github.com/kozaktomas/face-match/internal/results"
)

// backend bundles the storage-dependent components a command needs.
type backend struct {
	provider embedding.Provider
	gallery  gallery.Store
	results  results.Store
	close    func()
}

// newBackend selects storage from the config: PostgreSQL when DATABASE_URL
// is set, otherwise a per-process in-memory gallery with filesystem
// results under DATA_DIR.
func newBackend(ctx context.Context, cfg *config.Config) (*backend, error) {
	provider := embedding.NewClient(cfg.Embedding.URL, cfg.Embedding.Model)

	if cfg.Storage.DatabaseURL != "" {
		fmt.Println("Connecting to PostgreSQL database...")
		pool, err := postgres.Connect(ctx, &cfg.Storage)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
		}
		if err := postgres.Migrate(ctx, pool, cfg.Embedding.Dim); err != nil {
			pool.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		store, err := postgres.NewGalleryStore(ctx, pool, cfg.Embedding.Dim)
		if err != nil {
			pool.Close()
			return nil, err
		}
		fmt.Println("Using PostgreSQL backend")
		return &backend{
			provider: provider,
			gallery:  store,
			results:  postgres.NewResultStore(pool),
			close:    pool.Close,
		}, nil
	}

	resultStore, err := results.NewFilesystemStore(cfg.Storage.DataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create result store: %w", err)
	}
	fmt.Println("Using in-memory gallery with filesystem results")
	return &backend{
		provider: provider,
		gallery:  gallery.NewMemoryStore(cfg.Embedding.Dim),
		results:  resultStore,
		close:    func() {},
	}, nil
}

// newSingle builds the single-image pipeline over a backend.
func (b *backend) newSingle(cfg *config.Config, threshold float64) *pipeline.Single {
	if threshold <= 0 {
		threshold = cfg.Match.Threshold
	}
	return pipeline.NewSingle(b.provider, b.gallery, matcher.New(threshold))
}
