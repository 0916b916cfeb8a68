package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"catalog-rag/internal/chromemdb"
	"catalog-rag/internal/chunker"
	"catalog-rag/internal/config"
	"catalog-rag/internal/layout"
	"catalog-rag/internal/models"
	"catalog-rag/internal/parser"
	"catalog-rag/internal/vectorstore"
)

type fakeSource struct {
	pages  []parser.Page
	failAt int
}

func (s *fakeSource) NumPages() int { return len(s.pages) }

func (s *fakeSource) Page(n int) (parser.Page, error) {
	if n == s.failAt {
		return parser.Page{}, fmt.Errorf("%w: corrupt xref", models.ErrSourceRead)
	}
	return s.pages[n-1], nil
}

func (s *fakeSource) Close() error { return nil }

// keywordEmbedder fails on "FALLA" and returns a 3-wide vector on "CORTO".
type keywordEmbedder struct{ calls []string }

func (e *keywordEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	e.calls = append(e.calls, text)
	switch {
	case strings.Contains(text, "FALLA"):
		return nil, fmt.Errorf("%w: 500 internal", models.ErrEmbeddingProvider)
	case strings.Contains(text, "CORTO"):
		return []float32{1, 0, 0}, nil
	}
	return []float32{1, 0}, nil
}

type failingSchemaStore struct{ vectorstore.Store }

func (failingSchemaStore) CreateSchema(context.Context) error {
	return fmt.Errorf("%w: permission denied", models.ErrStore)
}

// recordingStore logs the order of the rebuild calls it receives.
type recordingStore struct {
	vectorstore.Store
	calls     []string
	schemaErr error
}

func (r *recordingStore) CreateSchema(ctx context.Context) error {
	r.calls = append(r.calls, "schema")
	if r.schemaErr != nil {
		return r.schemaErr
	}
	return r.Store.CreateSchema(ctx)
}

func (r *recordingStore) Insert(ctx context.Context, content string, pageNumber int, embedding []float32) (int64, error) {
	r.calls = append(r.calls, "insert")
	return r.Store.Insert(ctx, content, pageNumber, embedding)
}

func (r *recordingStore) BuildIndex(ctx context.Context) error {
	r.calls = append(r.calls, "index")
	return r.Store.BuildIndex(ctx)
}

func frag(text string, x, y, w float64) models.PositionedFragment {
	return models.PositionedFragment{Text: text, X: x, Y: y, Width: w, Height: 10}
}

func catalogSource() *fakeSource {
	return &fakeSource{pages: []parser.Page{
		{Number: 1, Fragments: []models.PositionedFragment{
			frag("Empacadura", 10, 700, 60),
			frag("recuperable", 80, 700, 60),
			frag("modelo R-3", 150, 700, 50),
		}},
		{Number: 2, Fragments: []models.PositionedFragment{}},
		{Number: 3, Text: "FALLA proveedor catalogo completo"},
	}}
}

func newStore(t *testing.T) vectorstore.Store {
	t.Helper()
	s, err := chromemdb.Open(&config.ChromemConfig{InMemory: true}, "ingest_test", 2)
	require.NoError(t, err)
	return s
}

func newIngestor(t *testing.T, embedder Embedder, store vectorstore.Store) *Ingestor {
	t.Helper()
	cfg := config.Default()
	c, err := chunker.New(&cfg.RAG)
	require.NoError(t, err)
	return New(layout.NewReconstructor(&cfg.Layout), c, embedder, store)
}

func TestRun_PartialFailure(t *testing.T) {
	store := newStore(t)
	embedder := &keywordEmbedder{}
	report, err := newIngestor(t, embedder, store).Run(context.Background(), catalogSource())
	require.NoError(t, err)

	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, 2, report.Pages)
	assert.Equal(t, 2, report.Chunks)
	assert.Equal(t, 1, report.Stored)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, Failure{Page: 3, Chunk: 1, Stage: StageEmbed, Message: report.Failures[0].Message}, report.Failures[0])
	assert.Contains(t, report.Failures[0].Message, "500 internal")
	assert.Equal(t, []string{"Empacadura recuperable modelo R-3", "FALLA proveedor catalogo completo"}, embedder.calls)

	hits, err := store.Search(context.Background(), []float32{1, 0}, 5)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, 1, hits[0].PageNumber)
	assert.Equal(t, "Empacadura recuperable modelo R-3", hits[0].Content)
}

func TestRun_InsertFailureIsSkipped(t *testing.T) {
	src := catalogSource()
	src.pages[2].Text = "CORTO proveedor catalogo completo"

	report, err := newIngestor(t, &keywordEmbedder{}, newStore(t)).Run(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Stored)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, StageInsert, report.Failures[0].Stage)
	assert.Equal(t, 3, report.Failures[0].Page)
}

func TestRun_SourceErrorKeepsStore(t *testing.T) {
	store := newStore(t)
	_, err := store.Insert(context.Background(), "previo", 1, []float32{1, 0})
	require.NoError(t, err)

	src := catalogSource()
	src.failAt = 3
	embedder := &keywordEmbedder{}
	_, err = newIngestor(t, embedder, store).Run(context.Background(), src)
	assert.True(t, errors.Is(err, models.ErrSourceRead))
	assert.Empty(t, embedder.calls)

	n, err := store.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestRun_SchemaErrorAborts(t *testing.T) {
	embedder := &keywordEmbedder{}
	_, err := newIngestor(t, embedder, failingSchemaStore{newStore(t)}).Run(context.Background(), catalogSource())
	assert.True(t, errors.Is(err, models.ErrStore))
	assert.Empty(t, embedder.calls)
}

func TestRun_BuildsIndexLast(t *testing.T) {
	src := catalogSource()
	src.pages[2].Text = "Tapones puente catalogo completo"
	store := &recordingStore{Store: newStore(t)}

	report, err := newIngestor(t, &keywordEmbedder{}, store).Run(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Stored)
	assert.Equal(t, []string{"schema", "insert", "insert", "index"}, store.calls)
}

func TestRun_SchemaErrorSkipsIndex(t *testing.T) {
	store := &recordingStore{Store: newStore(t), schemaErr: fmt.Errorf("%w: permission denied", models.ErrStore)}

	_, err := newIngestor(t, &keywordEmbedder{}, store).Run(context.Background(), catalogSource())
	assert.ErrorIs(t, err, models.ErrStore)
	assert.Equal(t, []string{"schema"}, store.calls)
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	embedder := &keywordEmbedder{}
	_, err := newIngestor(t, embedder, newStore(t)).Run(ctx, catalogSource())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, embedder.calls)
}

func TestRun_RequiresCollaborators(t *testing.T) {
	_, err := newIngestor(t, nil, nil).Run(context.Background(), catalogSource())
	assert.Error(t, err)
}

func TestPlan_WindowPolicy(t *testing.T) {
	cfg := config.Default()
	in := New(layout.NewReconstructor(&cfg.Layout), chunker.NewWindowPolicy(40, 10, 5), nil, nil)

	chunks, err := in.Plan(catalogSource())
	require.NoError(t, err)
	require.Len(t, chunks, 3)
	assert.Equal(t, 1, chunks[0].PageNumber)
	assert.Equal(t, "Empacadura recuperable modelo R-3\nFALLA", chunks[0].Content)
	assert.Equal(t, 1, chunks[1].PageNumber)
	assert.Equal(t, 2, chunks[2].PageNumber)
}
