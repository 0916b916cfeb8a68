package parser

import (
	"archive/zip"
	"io"
	"regexp"
	"sort"
	"strconv"
)

var slidePath = regexp.MustCompile(`^ppt/slides/slide(\d+)\.xml$`)

// openPPTX serves one page per slide, in slide order.
func openPPTX(filePath string) (Source, error) {
	r, err := zip.OpenReader(filePath)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	type slide struct {
		num  int
		text string
	}
	var slides []slide
	for _, file := range r.File {
		m := slidePath.FindStringSubmatch(file.Name)
		if m == nil {
			continue
		}
		num, _ := strconv.Atoi(m[1])
		rc, err := file.Open()
		if err != nil {
			return nil, err
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, err
		}
		slides = append(slides, slide{num: num, text: extractRuns(string(data), "a")})
	}
	sort.Slice(slides, func(i, j int) bool { return slides[i].num < slides[j].num })

	pages := make([]string, len(slides))
	for i, s := range slides {
		pages[i] = s.text
	}
	return &textSource{pages: pages}, nil
}
