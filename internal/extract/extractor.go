// Package extract turns uploaded documents into plain text for indexing.
package extract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// supported lists the extensions with a dedicated extractor.
var supported = map[string]bool{
	".txt": true, ".md": true, ".rst": true,
	".pdf": true, ".docx": true, ".odt": true, ".rtf": true,
	".xlsx": true, ".csv": true,
}

// Supported reports whether ext (with leading dot, any case) has a dedicated extractor.
func Supported(ext string) bool {
	return supported[strings.ToLower(ext)]
}

// Extractor extracts plain text from document files.
type Extractor struct{}

// NewExtractor returns a new Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract reads the file at path and returns its text content.
func (e *Extractor) Extract(path string) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read file: %w", err)
	}
	return e.ExtractFile(filepath.Base(path), content)
}

// ExtractFile extracts content named name, choosing the format by extension.
// Table summaries mention the name.
func (e *Extractor) ExtractFile(name string, content []byte) (string, error) {
	return extract(content, strings.ToLower(filepath.Ext(name)), name)
}

// ExtractBytes extracts text from content based on the given extension.
// ext should include the leading dot (e.g. ".pdf"). Unknown extensions are
// read as plain text.
func (e *Extractor) ExtractBytes(content []byte, ext string) (string, error) {
	return extract(content, strings.ToLower(ext), "")
}

func extract(content []byte, ext, name string) (string, error) {
	switch ext {
	case ".pdf":
		return extractPDF(content)
	case ".docx":
		return extractDOCX(content)
	case ".odt", ".rtf":
		return extractOffice(content, ext)
	case ".xlsx":
		return extractExcel(content, name)
	case ".csv":
		return extractCSV(content, name)
	default:
		return extractPlain(content)
	}
}
