// Package layout rebuilds reading order from the positioned text runs of a page.
package layout

import (
	"math"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"catalog-rag/internal/config"
	"catalog-rag/internal/models"
)

const (
	defaultShadowDistance = 1.5
	defaultLineTolerance  = 5
	defaultSpaceGap       = 5
	defaultMinPageChars   = 20
)

// Reconstructor turns a page's unordered fragments into one line-ordered PageText.
// It holds no state between pages and is safe for concurrent use.
type Reconstructor struct {
	shadowDistance float64
	lineTolerance  float64
	spaceGap       float64
	minPageChars   int
}

func NewReconstructor(cfg *config.LayoutConfig) *Reconstructor {
	r := &Reconstructor{
		shadowDistance: defaultShadowDistance,
		lineTolerance:  defaultLineTolerance,
		spaceGap:       defaultSpaceGap,
		minPageChars:   defaultMinPageChars,
	}
	if cfg == nil {
		return r
	}
	if cfg.ShadowDistance > 0 {
		r.shadowDistance = cfg.ShadowDistance
	}
	if cfg.LineTolerance > 0 {
		r.lineTolerance = cfg.LineTolerance
	}
	if cfg.SpaceGap > 0 {
		r.spaceGap = cfg.SpaceGap
	}
	if cfg.MinPageChars > 0 {
		r.minPageChars = cfg.MinPageChars
	}
	return r
}

// Reconstruct returns the cleaned text of the page. ok is false when the page carries
// no more than minPageChars characters and should be treated as non-content.
func (r *Reconstructor) Reconstruct(pageNumber int, fragments []models.PositionedFragment) (models.PageText, bool) {
	unique := r.dedupe(fragments)
	lines := r.groupLines(unique)

	var raw strings.Builder
	for _, line := range lines {
		raw.WriteString(r.joinLine(line))
		raw.WriteByte('\n')
	}
	return r.finish(pageNumber, raw.String())
}

// ReconstructText applies only the cleanup and length filter, for sources without positions.
func (r *Reconstructor) ReconstructText(pageNumber int, text string) (models.PageText, bool) {
	return r.finish(pageNumber, text)
}

func (r *Reconstructor) finish(pageNumber int, raw string) (models.PageText, bool) {
	text := CleanText(raw)
	if utf8.RuneCountInString(text) <= r.minPageChars {
		return models.PageText{}, false
	}
	return models.PageText{PageNumber: pageNumber, Text: text}, true
}

// dedupe drops shadow renderings: a later fragment with the same text lying within
// shadowDistance of an earlier kept one. Input order decides the survivor.
func (r *Reconstructor) dedupe(fragments []models.PositionedFragment) []models.PositionedFragment {
	used := make([]bool, len(fragments))
	unique := make([]models.PositionedFragment, 0, len(fragments))
	for i := range fragments {
		if used[i] {
			continue
		}
		used[i] = true
		a := fragments[i]
		unique = append(unique, a)
		for j := i + 1; j < len(fragments); j++ {
			if used[j] {
				continue
			}
			b := fragments[j]
			if a.Text == b.Text && math.Hypot(a.X-b.X, a.Y-b.Y) < r.shadowDistance {
				used[j] = true
			}
		}
	}
	return unique
}

// groupLines sweeps top to bottom. A line's anchor is its first fragment; a fragment
// joins while |y - anchor| < lineTolerance.
func (r *Reconstructor) groupLines(fragments []models.PositionedFragment) [][]models.PositionedFragment {
	sorted := make([]models.PositionedFragment, len(fragments))
	copy(sorted, fragments)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Y > sorted[j].Y })

	var lines [][]models.PositionedFragment
	var current []models.PositionedFragment
	var anchor float64
	for _, f := range sorted {
		if len(current) == 0 {
			current = append(current, f)
			anchor = f.Y
			continue
		}
		if math.Abs(f.Y-anchor) < r.lineTolerance {
			current = append(current, f)
			continue
		}
		lines = append(lines, current)
		current = []models.PositionedFragment{f}
		anchor = f.Y
	}
	if len(current) > 0 {
		lines = append(lines, current)
	}
	return lines
}

func (r *Reconstructor) joinLine(line []models.PositionedFragment) string {
	sort.SliceStable(line, func(i, j int) bool { return line[i].X < line[j].X })

	var b strings.Builder
	for i, f := range line {
		if i > 0 {
			prev := line[i-1]
			gap := f.X - (prev.X + prev.Width)
			if gap > r.spaceGap || (gap > 0 && startsUpper(f.Text)) {
				b.WriteByte(' ')
			}
		}
		b.WriteString(f.Text)
	}
	return b.String()
}

func startsUpper(s string) bool {
	c, _ := utf8.DecodeRuneInString(s)
	return c != utf8.RuneError && unicode.IsUpper(c)
}
