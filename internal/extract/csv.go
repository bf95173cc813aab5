package extract

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"
)

// extractCSV summarizes comma-separated data; the first record is the header.
func extractCSV(content []byte, name string) (string, error) {
	r := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(content, []byte("\xef\xbb\xbf"))))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	records, err := r.ReadAll()
	if err != nil {
		return "", fmt.Errorf("parse CSV: %w", err)
	}
	if len(records) == 0 {
		return "", nil
	}
	header := make([]string, len(records[0]))
	for i, h := range records[0] {
		header[i] = strings.TrimSpace(h)
	}
	title := "CSV Data"
	if name != "" {
		title += " from " + name
	}
	return summarizeTable(title, header, records[1:]), nil
}
