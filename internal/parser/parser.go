package parser

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"catalog-rag/internal/models"
)

// Page is one page of a source. PDF pages carry positioned fragments; other formats
// carry plain text only.
type Page struct {
	Number    int
	Fragments []models.PositionedFragment
	Text      string
}

// Positioned reports whether the page needs layout reconstruction.
func (p Page) Positioned() bool {
	return p.Fragments != nil
}

// Source is a document opened for reading, page by page.
type Source interface {
	NumPages() int
	// Page returns page n, 1-based.
	Page(n int) (Page, error)
	Close() error
}

// Open picks a reader by file extension. Failures wrap models.ErrSourceRead.
func Open(filePath string) (Source, error) {
	if _, err := os.Stat(filePath); err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrSourceRead, err)
	}
	var (
		src Source
		err error
	)
	ext := strings.ToLower(filepath.Ext(filePath))
	switch ext {
	case ".pdf":
		src, err = openPDF(filePath)
	case ".docx":
		src, err = openDOCX(filePath)
	case ".xlsx":
		src, err = openXLSX(filePath)
	case ".pptx":
		src, err = openPPTX(filePath)
	case ".md", ".markdown":
		src, err = openMarkdown(filePath)
	case ".txt":
		src, err = openText(filePath)
	default:
		return nil, fmt.Errorf("%w: unsupported file format: %s", models.ErrSourceRead, ext)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", models.ErrSourceRead, filePath, err)
	}
	return src, nil
}

// textSource serves pre-extracted text pages.
type textSource struct {
	pages []string
}

func (s *textSource) NumPages() int { return len(s.pages) }

func (s *textSource) Page(n int) (Page, error) {
	if n < 1 || n > len(s.pages) {
		return Page{}, fmt.Errorf("%w: page %d out of range", models.ErrSourceRead, n)
	}
	return Page{Number: n, Text: s.pages[n-1]}, nil
}

func (s *textSource) Close() error { return nil }

func openText(filePath string) (Source, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}
	return &textSource{pages: []string{string(data)}}, nil
}
