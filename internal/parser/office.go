package parser

import (
	"bytes"
	"os"
	"strings"

	"github.com/nguyenthenguyen/docx"
	"github.com/xuri/excelize/v2"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// DOCX has no pages; the whole body is page 1.
func openDOCX(filePath string) (Source, error) {
	r, err := docx.ReadDocxFile(filePath)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	content := extractTextFromXML(r.Editable().GetContent())
	return &textSource{pages: []string{content}}, nil
}

// One page per sheet, cells separated by tabs.
func openXLSX(filePath string) (Source, error) {
	f, err := excelize.OpenFile(filePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var pages []string
	for _, sheetName := range f.GetSheetList() {
		rows, err := f.GetRows(sheetName)
		if err != nil {
			return nil, err
		}
		var b strings.Builder
		b.WriteString(sheetName + "\n")
		for _, row := range rows {
			b.WriteString(strings.Join(row, "\t"))
			b.WriteString("\n")
		}
		pages = append(pages, b.String())
	}
	return &textSource{pages: pages}, nil
}

func openMarkdown(filePath string) (Source, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}
	return &textSource{pages: []string{markdownText(data)}}, nil
}

// markdownText drops markup and keeps the text of every block, one block per line.
func markdownText(src []byte) string {
	doc := goldmark.New().Parser().Parse(text.NewReader(src))
	var b bytes.Buffer
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			if n.Type() == ast.TypeBlock && n.Kind() != ast.KindDocument {
				b.WriteByte('\n')
			}
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.Text:
			b.Write(node.Segment.Value(src))
			if node.SoftLineBreak() || node.HardLineBreak() {
				b.WriteByte(' ')
			}
		case *ast.CodeBlock, *ast.FencedCodeBlock:
			lines := n.Lines()
			for i := 0; i < lines.Len(); i++ {
				seg := lines.At(i)
				b.Write(seg.Value(src))
			}
		}
		return ast.WalkContinue, nil
	})
	return b.String()
}

// extractTextFromXML pulls the text runs from WordprocessingML, one line per paragraph.
func extractTextFromXML(xmlContent string) string {
	return extractRuns(xmlContent, "w")
}

// extractRuns collects <ns:t> runs, ending a line at every </ns:p>.
func extractRuns(xmlContent, ns string) string {
	paraEnd, runOpen, runClose := "</"+ns+":p>", "<"+ns+":t", "</"+ns+":t>"
	var b strings.Builder
	for _, para := range strings.Split(xmlContent, paraEnd) {
		var line strings.Builder
		parts := strings.Split(para, runOpen)
		for i, part := range parts {
			if i == 0 {
				continue
			}
			// skip attributes of <w:t ...> and reject <w:tab/>, <w:tbl> and friends
			start := strings.Index(part, ">")
			if start < 0 || (part[0] != '>' && part[0] != ' ') || strings.HasSuffix(part[:start], "/") {
				continue
			}
			end := strings.Index(part, runClose)
			if end < start {
				continue
			}
			line.WriteString(unescapeXML(part[start+1 : end]))
		}
		if line.Len() > 0 {
			b.WriteString(line.String())
			b.WriteString("\n")
		}
	}
	return b.String()
}

var xmlEntities = strings.NewReplacer("&amp;", "&", "&lt;", "<", "&gt;", ">", "&quot;", `"`, "&apos;", "'")

func unescapeXML(s string) string {
	return xmlEntities.Replace(s)
}
