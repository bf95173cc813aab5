package e2e

import (
	"archive/zip"
	"bytes"
	"html"

	"github.com/xuri/excelize/v2"
)

// FixtureExtensions are the file types the file-based tests write. PDF is
// covered by the extract package; a PDF with extractable text is not built here.
var FixtureExtensions = []string{".txt", ".md", ".rst", ".docx", ".xlsx"}

// Fixture returns the bytes of a minimal file of type ext holding text.
func Fixture(ext, text string) ([]byte, error) {
	switch ext {
	case ".docx":
		return minimalDocx(text)
	case ".xlsx":
		return minimalXlsx(text)
	case ".md":
		return []byte("# Handbook\n\n" + text + "\n"), nil
	default:
		return []byte(text), nil
	}
}

func minimalDocx(text string) ([]byte, error) {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	fw, err := w.Create("word/document.xml")
	if err != nil {
		return nil, err
	}
	doc := `<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body><w:p><w:r><w:t>` +
		html.EscapeString(text) + `</w:t></w:r></w:p></w:body></w:document>`
	if _, err := fw.Write([]byte(doc)); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func minimalXlsx(text string) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetCellValue("Sheet1", "A1", text); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
