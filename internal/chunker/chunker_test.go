package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"catalog-rag/internal/config"
	"catalog-rag/internal/models"
)

func TestNew(t *testing.T) {
	c, err := New(&config.RAGConfig{Policy: "window", ChunkSize: 100, ChunkOverlap: 10})
	require.NoError(t, err)
	assert.IsType(t, WindowPolicy{}, c)

	c, err = New(nil)
	require.NoError(t, err)
	assert.IsType(t, PagePolicy{}, c)

	_, err = New(&config.RAGConfig{Policy: "sentences"})
	assert.Error(t, err)
}

func TestPagePolicy_KeepsTruePageNumbers(t *testing.T) {
	chunks := PagePolicy{}.Chunk([]models.PageText{
		{PageNumber: 2, Text: "Empacadura recuperable de alta presión"},
		{PageNumber: 9, Text: "Colgador de liner hidráulico"},
	})
	require.Len(t, chunks, 2)
	assert.Equal(t, 2, chunks[0].PageNumber)
	assert.Equal(t, 9, chunks[1].PageNumber)
	assert.Equal(t, "Colgador de liner hidráulico", chunks[1].Content)
}

func TestWindowPolicy_MinLengthFilter(t *testing.T) {
	w := NewWindowPolicy(1000, 100, 50)

	assert.Empty(t, w.ChunkText(strings.Repeat("a", 49)))
	assert.Empty(t, w.ChunkText("   "+strings.Repeat("b", 49)+"  "))

	chunks := w.ChunkText(strings.Repeat("c", 51))
	require.Len(t, chunks, 1)
	assert.Equal(t, 51, len(chunks[0].Content))
}

func TestWindowPolicy_StepsAndSynthesizedPages(t *testing.T) {
	w := NewWindowPolicy(1000, 100, 50)
	text := strings.Repeat("x", 2500)

	chunks := w.ChunkText(text)
	// starts at 0, 900, 1800; the window at 2700 is past the end.
	require.Len(t, chunks, 3)
	assert.Equal(t, 1000, len(chunks[0].Content))
	assert.Equal(t, 1000, len(chunks[1].Content))
	assert.Equal(t, 700, len(chunks[2].Content))

	assert.Equal(t, 1, chunks[0].PageNumber) // floor(0/1000)+1
	assert.Equal(t, 1, chunks[1].PageNumber) // floor(900/1000)+1
	assert.Equal(t, 2, chunks[2].PageNumber) // floor(1800/1000)+1
	assert.Equal(t, []int{1, 2, 3}, []int{chunks[0].ChunkID, chunks[1].ChunkID, chunks[2].ChunkID})
}

func TestWindowPolicy_OverlapSharesText(t *testing.T) {
	w := NewWindowPolicy(100, 20, 10)
	var b strings.Builder
	for i := 0; i < 200; i++ {
		b.WriteByte(byte('a' + i%26))
	}
	chunks := w.ChunkText(b.String())
	require.GreaterOrEqual(t, len(chunks), 2)
	assert.Equal(t, chunks[0].Content[80:], chunks[1].Content[:20])
}

func TestWindowPolicy_DoesNotSplitRunes(t *testing.T) {
	w := NewWindowPolicy(60, 0, 10)
	chunks := w.ChunkText(strings.Repeat("ñ", 130))
	require.Len(t, chunks, 2)
	assert.Equal(t, strings.Repeat("ñ", 60), chunks[0].Content)
}

func TestWindowPolicy_JoinsPages(t *testing.T) {
	w := NewWindowPolicy(1000, 100, 50)
	chunks := w.Chunk([]models.PageText{
		{PageNumber: 1, Text: strings.Repeat("uno ", 10)},
		{PageNumber: 4, Text: strings.Repeat("dos ", 10)},
	})
	require.Len(t, chunks, 1)
	assert.Contains(t, chunks[0].Content, "uno \ndos")
	assert.Equal(t, 1, chunks[0].PageNumber)
}

func TestNewWindowPolicy_Sanitizes(t *testing.T) {
	w := NewWindowPolicy(0, 5000, 0)
	assert.Equal(t, defaultChunkSize, w.size)
	assert.Equal(t, defaultChunkSize/2, w.overlap)
	assert.Equal(t, defaultMinChars, w.minChars)
}
