package extract

import (
	"math"
	"strconv"
	"strings"
)

// sampleRows is how many data rows a table summary quotes verbatim.
const sampleRows = 10

// summarizeTable renders a header row plus data rows as retrievable prose:
// the column list, the row count, the first rows, and count/mean/min/max
// for every column whose non-empty cells are all numeric.
func summarizeTable(title string, header []string, rows [][]string) string {
	var b strings.Builder
	b.WriteString(title)
	b.WriteString(":\n\n")
	b.WriteString("Columns: ")
	b.WriteString(strings.Join(header, ", "))
	b.WriteString("\n\nTotal rows: ")
	b.WriteString(strconv.Itoa(len(rows)))
	b.WriteString("\n\nSample data:\n")
	b.WriteString(strings.Join(header, "\t"))
	for i, row := range rows {
		if i == sampleRows {
			break
		}
		b.WriteByte('\n')
		b.WriteString(strings.Join(row, "\t"))
	}

	var stats []string
	for col, name := range header {
		if s, ok := columnStats(rows, col); ok {
			stats = append(stats, name+": "+s)
		}
	}
	if len(stats) > 0 {
		b.WriteString("\n\nSummary Statistics:\n")
		b.WriteString(strings.Join(stats, "\n"))
	}
	return b.String()
}

func columnStats(rows [][]string, col int) (string, bool) {
	var count int
	var sum float64
	minV, maxV := math.Inf(1), math.Inf(-1)
	for _, row := range rows {
		if col >= len(row) {
			continue
		}
		cell := strings.TrimSpace(row[col])
		if cell == "" {
			continue
		}
		v, err := strconv.ParseFloat(cell, 64)
		if err != nil {
			return "", false
		}
		count++
		sum += v
		minV = math.Min(minV, v)
		maxV = math.Max(maxV, v)
	}
	if count == 0 {
		return "", false
	}
	return "count=" + strconv.Itoa(count) +
		" mean=" + formatNumber(sum/float64(count)) +
		" min=" + formatNumber(minV) +
		" max=" + formatNumber(maxV), true
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
