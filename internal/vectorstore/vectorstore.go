// Package vectorstore selects the backend that persists embedded chunks.
package vectorstore

import (
	"context"
	"fmt"

	"catalog-rag/internal/chromemdb"
	"catalog-rag/internal/config"
	"catalog-rag/internal/db"
	"catalog-rag/internal/models"
)

// Store persists (content, page, vector) rows and answers nearest-neighbour queries.
// CreateSchema is destructive. BuildIndex is the last step of a rebuild.
type Store interface {
	CreateSchema(ctx context.Context) error
	Insert(ctx context.Context, content string, pageNumber int, embedding []float32) (int64, error)
	BuildIndex(ctx context.Context) error
	Search(ctx context.Context, query []float32, k int) ([]models.SearchHit, error)
	Count(ctx context.Context) (int, error)
	Close() error
}

var (
	_ Store = (*db.Store)(nil)
	_ Store = (*chromemdb.Store)(nil)
)

// Open returns the store named by cfg.Database.Driver.
func Open(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.Database.Driver {
	case "postgres", "pq":
		s, err := db.Open(ctx, &cfg.Database)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "chromem":
		s, err := chromemdb.Open(&cfg.Chromem, cfg.Database.Table, cfg.Database.Dimension)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("%w: unknown database driver %q", models.ErrStore, cfg.Database.Driver)
	}
}
