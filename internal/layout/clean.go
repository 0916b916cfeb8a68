package layout

import (
	"strings"
	"unicode"
)

// CleanText repairs letter-spaced words ("T I T U L O" -> "TITULO") and collapses
// whitespace runs to a single space.
func CleanText(text string) string {
	if text == "" {
		return ""
	}
	return strings.Join(strings.Fields(despace(text)), " ")
}

// despace drops the whitespace after a letter when the next two runes are another
// letter and whitespace, or another letter that ends the input. Scanning resumes
// after the dropped rune, so a run of spaced letters collapses in one pass.
func despace(text string) string {
	runes := []rune(text)
	n := len(runes)
	out := make([]rune, 0, n)
	for i := 0; i < n; i++ {
		c := runes[i]
		out = append(out, c)
		if !unicode.IsLetter(c) || i+2 >= n || !unicode.IsSpace(runes[i+1]) || !unicode.IsLetter(runes[i+2]) {
			continue
		}
		if i+3 == n || unicode.IsSpace(runes[i+3]) {
			i++
		}
	}
	return string(out)
}
