package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	_ "github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
	"github.com/rs/zerolog/log"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"

	"catalog-rag/internal/config"
	"catalog-rag/internal/models"
)

// Record is one row of the embeddings table. The table name comes from config, so
// every query sets it through ModelTableExpr.
type Record struct {
	bun.BaseModel `bun:"alias:r"`
	ID            int64           `bun:"id,pk,autoincrement"`
	Content       string          `bun:"content,notnull"`
	PageNumber    int             `bun:"page_number"`
	Embedding     pgvector.Vector `bun:"embedding"`
	Distance      float64         `bun:"distance,scanonly"`
}

// Store is the Postgres/pgvector vector store.
type Store struct {
	db        *bun.DB
	table     string
	index     string
	dimension int
}

func NewDB(sqldb *sql.DB, debug bool) *bun.DB {
	db := bun.NewDB(sqldb, pgdialect.New())
	if debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}
	return db
}

// ConnectDB opens the database with bun's pgdriver, or with lib/pq when the driver is "pq".
func ConnectDB(dbConfig *config.DatabaseConfig) (*sql.DB, error) {
	if dbConfig.DSN == "" {
		return nil, errors.New("database dsn is required")
	}
	if dbConfig.Driver == "pq" {
		return sql.Open("postgres", dbConfig.DSN)
	}
	opts := []pgdriver.Option{pgdriver.WithDSN(dbConfig.DSN)}
	if dbConfig.Password != "" {
		opts = append(opts, pgdriver.WithPassword(dbConfig.Password))
	}
	return sql.OpenDB(pgdriver.NewConnector(opts...)), nil
}

// Open connects and pings the database.
func Open(ctx context.Context, dbConfig *config.DatabaseConfig) (*Store, error) {
	sqldb, err := ConnectDB(dbConfig)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrStore, err)
	}
	if err := sqldb.PingContext(ctx); err != nil {
		sqldb.Close()
		return nil, fmt.Errorf("%w: ping: %w", models.ErrStore, err)
	}
	return NewStore(NewDB(sqldb, dbConfig.Debug), dbConfig), nil
}

func NewStore(db *bun.DB, dbConfig *config.DatabaseConfig) *Store {
	return &Store{
		db:        db,
		table:     dbConfig.Table,
		index:     dbConfig.Index,
		dimension: dbConfig.Dimension,
	}
}

// CreateSchema drops the index and the table, then recreates the table. Existing rows are lost.
func (s *Store) CreateSchema(ctx context.Context) error {
	stmts := []struct {
		query string
		args  []interface{}
	}{
		{"CREATE EXTENSION IF NOT EXISTS vector", nil},
		{"DROP INDEX IF EXISTS ?", []interface{}{bun.Ident(s.index)}},
		{"DROP TABLE IF EXISTS ?", []interface{}{bun.Ident(s.table)}},
		{
			"CREATE TABLE ? (id BIGSERIAL PRIMARY KEY, content TEXT NOT NULL, page_number INTEGER, embedding vector(?))",
			[]interface{}{bun.Ident(s.table), bun.Safe(strconv.Itoa(s.dimension))},
		},
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt.query, stmt.args...); err != nil {
			return fmt.Errorf("%w: create schema: %w", models.ErrStore, err)
		}
	}
	log.Info().Str("table", s.table).Int("dimension", s.dimension).Msg("Schema recreated")
	return nil
}

// Insert appends one row and returns its id.
func (s *Store) Insert(ctx context.Context, content string, pageNumber int, embedding []float32) (int64, error) {
	if len(embedding) != s.dimension {
		return 0, fmt.Errorf("%w: embedding has %d dimensions, want %d", models.ErrStore, len(embedding), s.dimension)
	}
	rec := &Record{
		Content:    content,
		PageNumber: pageNumber,
		Embedding:  pgvector.NewVector(embedding),
	}
	if _, err := s.db.NewInsert().Model(rec).ModelTableExpr("? AS r", bun.Ident(s.table)).Exec(ctx); err != nil {
		return 0, fmt.Errorf("%w: insert: %w", models.ErrStore, err)
	}
	return rec.ID, nil
}

// BuildIndex creates the HNSW cosine index. It runs once all rows are loaded.
func (s *Store) BuildIndex(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx,
		"CREATE INDEX IF NOT EXISTS ? ON ? USING hnsw (embedding vector_cosine_ops)",
		bun.Ident(s.index), bun.Ident(s.table))
	if err != nil {
		return fmt.Errorf("%w: build index: %w", models.ErrStore, err)
	}
	log.Info().Str("index", s.index).Msg("Vector index built")
	return nil
}

func (s *Store) searchQuery(query []float32, k int, dest *[]Record) *bun.SelectQuery {
	return s.db.NewSelect().
		Model(dest).
		ModelTableExpr("? AS r", bun.Ident(s.table)).
		Column("id", "content", "page_number").
		ColumnExpr("r.embedding <=> ? AS distance", pgvector.NewVector(query)).
		OrderExpr("distance ASC").
		Limit(k)
}

// Search returns the k rows closest to query by cosine distance.
func (s *Store) Search(ctx context.Context, query []float32, k int) ([]models.SearchHit, error) {
	if k <= 0 {
		return []models.SearchHit{}, nil
	}
	var rows []Record
	if err := s.searchQuery(query, k, &rows).Scan(ctx); err != nil {
		return nil, fmt.Errorf("%w: search: %w", models.ErrStore, err)
	}
	hits := make([]models.SearchHit, 0, len(rows))
	for _, r := range rows {
		hits = append(hits, models.SearchHit{
			ID:         r.ID,
			Content:    r.Content,
			PageNumber: r.PageNumber,
			Distance:   r.Distance,
		})
	}
	return hits, nil
}

func (s *Store) Count(ctx context.Context) (int, error) {
	n, err := s.db.NewSelect().Model((*Record)(nil)).ModelTableExpr("? AS r", bun.Ident(s.table)).Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: count: %w", models.ErrStore, err)
	}
	return n, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
