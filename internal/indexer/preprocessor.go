package indexer

import (
	"strings"
	"unicode"
)

// Preprocess normalizes extracted text before chunking: line endings become
// "\n", runs of other whitespace collapse to one space, lines are trimmed and
// runs of blank lines collapse to one. Paragraph breaks survive so the
// chunker can cut on them.
func Preprocess(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	blank := false
	for _, line := range lines {
		line = collapseSpaces(line)
		if line == "" {
			if len(out) > 0 && !blank {
				out = append(out, "")
			}
			blank = true
			continue
		}
		out = append(out, line)
		blank = false
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}

func collapseSpaces(line string) string {
	var b strings.Builder
	wasSpace := false
	for _, r := range strings.TrimSpace(line) {
		if unicode.IsSpace(r) {
			if !wasSpace {
				b.WriteRune(' ')
				wasSpace = true
			}
		} else {
			b.WriteRune(r)
			wasSpace = false
		}
	}
	return b.String()
}
