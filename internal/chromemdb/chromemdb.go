package chromemdb

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"sync"

	"github.com/philippgille/chromem-go"
	"github.com/rs/zerolog/log"

	"catalog-rag/internal/config"
	"catalog-rag/internal/models"
)

const pageNumberKey = "page_number"

// Store is the embedded chromem-go vector store. Search is exhaustive, so there is no
// index to build; BuildIndex writes a snapshot instead when an export path is set.
type Store struct {
	mu            sync.Mutex
	db            *chromem.DB
	collection    *chromem.Collection
	name          string
	dimension     int
	nextID        int64
	compress      bool
	encryptionKey string
	exportPath    string
}

// Open creates an in-memory or persistent database holding one collection. An in-memory
// store is seeded from the export snapshot when one exists.
func Open(chromemConfig *config.ChromemConfig, collectionName string, dimension int) (*Store, error) {
	var db *chromem.DB
	var err error
	if chromemConfig.InMemory {
		db = chromem.NewDB()
	} else {
		db, err = chromem.NewPersistentDB(chromemConfig.Path, chromemConfig.Compress)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to create database: %w", models.ErrStore, err)
		}
	}

	s := &Store{
		db:            db,
		name:          collectionName,
		dimension:     dimension,
		compress:      chromemConfig.Compress,
		encryptionKey: chromemConfig.EncryptionKey,
		exportPath:    chromemConfig.ExportPath,
	}
	if chromemConfig.InMemory && s.exportPath != "" {
		if _, err := os.Stat(s.exportPath); err == nil {
			if err := s.Import(context.Background()); err != nil {
				return nil, err
			}
			return s, nil
		}
	}
	if _, err := s.GetOrCreateCollection(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) GetOrCreateCollection() (*chromem.Collection, error) {
	c, err := s.db.GetOrCreateCollection(s.name, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create/get collection: %w", models.ErrStore, err)
	}
	s.collection = c
	s.nextID = int64(c.Count())
	return c, nil
}

// CreateSchema drops the collection and starts an empty one.
func (s *Store) CreateSchema(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.db.DeleteCollection(s.name); err != nil {
		return fmt.Errorf("%w: failed to drop collection: %w", models.ErrStore, err)
	}
	c, err := s.db.CreateCollection(s.name, nil, nil)
	if err != nil {
		return fmt.Errorf("%w: failed to create collection: %w", models.ErrStore, err)
	}
	s.collection = c
	s.nextID = 0
	return nil
}

func (s *Store) Insert(ctx context.Context, content string, pageNumber int, embedding []float32) (int64, error) {
	if s.dimension > 0 && len(embedding) != s.dimension {
		return 0, fmt.Errorf("%w: embedding has %d dimensions, want %d", models.ErrStore, len(embedding), s.dimension)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID + 1
	doc := chromem.Document{
		ID:        strconv.FormatInt(id, 10),
		Content:   content,
		Metadata:  map[string]string{pageNumberKey: strconv.Itoa(pageNumber)},
		Embedding: embedding,
	}
	if err := s.collection.AddDocument(ctx, doc); err != nil {
		return 0, fmt.Errorf("%w: failed to add document: %w", models.ErrStore, err)
	}
	s.nextID = id
	return id, nil
}

// BuildIndex exports the collection when an export path is configured.
func (s *Store) BuildIndex(ctx context.Context) error {
	if s.exportPath == "" {
		return nil
	}
	return s.Export(ctx)
}

// Search returns up to k documents ordered by ascending cosine distance.
func (s *Store) Search(ctx context.Context, query []float32, k int) ([]models.SearchHit, error) {
	s.mu.Lock()
	collection := s.collection
	s.mu.Unlock()

	n := collection.Count()
	if k > n {
		k = n
	}
	if k <= 0 {
		return []models.SearchHit{}, nil
	}

	results, err := collection.QueryEmbedding(ctx, query, k, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query by similarity: %w", models.ErrStore, err)
	}
	hits := make([]models.SearchHit, 0, len(results))
	for _, r := range results {
		id, _ := strconv.ParseInt(r.ID, 10, 64)
		page, _ := strconv.Atoi(r.Metadata[pageNumberKey])
		hits = append(hits, models.SearchHit{
			ID:         id,
			Content:    r.Content,
			PageNumber: page,
			Distance:   1 - float64(r.Similarity),
		})
	}
	return hits, nil
}

func (s *Store) Count(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.collection.Count(), nil
}

// Export writes the collection to the export path, encrypted when a key is set.
func (s *Store) Export(_ context.Context) error {
	if s.exportPath == "" {
		return errors.New("export path is required")
	}
	log.Debug().
		Str("collection", s.name).
		Str("file", s.exportPath).
		Bool("compress", s.compress).
		Bool("encrypted", s.encryptionKey != "").
		Msg("Exporting collection")
	if err := s.db.ExportToFile(s.exportPath, s.compress, s.encryptionKey, s.name); err != nil {
		return fmt.Errorf("%w: failed to export database: %w", models.ErrStore, err)
	}
	return nil
}

// Import replaces the collection with the export snapshot.
func (s *Store) Import(_ context.Context) error {
	if s.exportPath == "" {
		return errors.New("export path is required")
	}
	if err := s.db.ImportFromFile(s.exportPath, s.encryptionKey, s.name); err != nil {
		return fmt.Errorf("%w: failed to import database: %w", models.ErrStore, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.GetOrCreateCollection(); err != nil {
		return err
	}
	log.Debug().Str("collection", s.name).Int("documents", s.collection.Count()).Msg("Imported collection")
	return nil
}

func (s *Store) Close() error {
	return nil
}
