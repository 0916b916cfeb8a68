package parser

import (
	"fmt"
	"math"
	"os"

	"github.com/ledongthuc/pdf"

	"catalog-rag/internal/models"
)

const (
	// glyphs closer than this to the previous glyph's end continue the same run
	runJoinGap      = 0.5
	baselineEpsilon = 0.01
)

type pdfSource struct {
	f      *os.File
	reader *pdf.Reader
}

func openPDF(filePath string) (Source, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	stat, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	reader, err := pdf.NewReader(f, stat.Size())
	if err != nil {
		f.Close()
		return nil, err
	}
	return &pdfSource{f: f, reader: reader}, nil
}

func (s *pdfSource) NumPages() int {
	return s.reader.NumPage()
}

// Page decodes the page content stream. The pdf package panics on some malformed
// streams; that is reported as ErrSourceRead.
func (s *pdfSource) Page(n int) (page Page, err error) {
	if n < 1 || n > s.reader.NumPage() {
		return Page{}, fmt.Errorf("%w: page %d out of range", models.ErrSourceRead, n)
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: page %d: %v", models.ErrSourceRead, n, r)
		}
	}()
	p := s.reader.Page(n)
	if p.V.IsNull() {
		return Page{Number: n, Fragments: []models.PositionedFragment{}}, nil
	}
	return Page{Number: n, Fragments: mergeGlyphs(p.Content().Text)}, nil
}

func (s *pdfSource) Close() error {
	return s.f.Close()
}

// mergeGlyphs folds the per-glyph output of the pdf package into text runs: a glyph
// extends the previous run when it sits on the same baseline, uses the same font and
// starts where the run ends.
func mergeGlyphs(glyphs []pdf.Text) []models.PositionedFragment {
	fragments := make([]models.PositionedFragment, 0, len(glyphs))
	var lastFont string
	var lastSize float64
	for _, g := range glyphs {
		if g.S == "" {
			continue
		}
		if n := len(fragments); n > 0 {
			last := &fragments[n-1]
			if g.Font == lastFont && g.FontSize == lastSize &&
				math.Abs(g.Y-last.Y) < baselineEpsilon &&
				math.Abs(g.X-(last.X+last.Width)) <= runJoinGap {
				last.Text += g.S
				last.Width = g.X + g.W - last.X
				continue
			}
		}
		fragments = append(fragments, models.PositionedFragment{
			Text:   g.S,
			X:      g.X,
			Y:      g.Y,
			Width:  g.W,
			Height: g.FontSize,
		})
		lastFont, lastSize = g.Font, g.FontSize
	}
	return fragments
}
