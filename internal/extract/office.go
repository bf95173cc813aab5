package extract

import (
	"fmt"
	"strings"

	"github.com/lu4p/cat"
)

// extractOffice handles ODT and RTF. DOCX has its own extractor because cat
// drops paragraphs that carry attributes.
func extractOffice(content []byte, ext string) (string, error) {
	text, err := cat.FromBytes(content)
	if err != nil {
		return "", fmt.Errorf("extract %s: %w", strings.TrimPrefix(ext, "."), err)
	}
	return strings.TrimSpace(text), nil
}
