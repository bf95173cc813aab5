package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// extractExcel summarizes every non-empty sheet like a CSV file, treating the
// first row of each sheet as its header.
func extractExcel(content []byte, name string) (string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return "", fmt.Errorf("open Excel: %w", err)
	}
	defer f.Close()

	var sheets []string
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return "", fmt.Errorf("get rows for sheet %q: %w", sheet, err)
		}
		if len(rows) == 0 {
			continue
		}
		title := "Sheet " + sheet
		if name != "" {
			title += " of " + name
		}
		sheets = append(sheets, summarizeTable(title, rows[0], rows[1:]))
	}
	return strings.Join(sheets, "\n\n"), nil
}
