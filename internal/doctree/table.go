package doctree

import (
	"strings"

	"github.com/obaidtambo/doc-struct/internal/ocr"
)

// RenderTable renders table cells as a Markdown pipe table. The first row
// is the header. Spanned cells only fill their top-left slot.
func RenderTable(t ocr.Table) string {
	rows, cols := t.RowCount, t.ColumnCount
	for _, c := range t.Cells {
		rows = max(rows, c.RowIndex+1)
		cols = max(cols, c.ColumnIndex+1)
	}
	if rows == 0 || cols == 0 {
		return ""
	}

	grid := make([][]string, rows)
	for i := range grid {
		grid[i] = make([]string, cols)
	}
	for _, c := range t.Cells {
		if c.RowIndex < 0 || c.ColumnIndex < 0 {
			continue
		}
		grid[c.RowIndex][c.ColumnIndex] = escapeCell(c.Content)
	}

	var sb strings.Builder
	writeRow := func(cells []string) {
		sb.WriteString("|")
		for _, c := range cells {
			sb.WriteString(" ")
			sb.WriteString(c)
			sb.WriteString(" |")
		}
		sb.WriteString("\n")
	}
	writeRow(grid[0])
	sep := make([]string, cols)
	for i := range sep {
		sep[i] = "---"
	}
	writeRow(sep)
	for _, row := range grid[1:] {
		writeRow(row)
	}
	return strings.TrimRight(sb.String(), "\n")
}

func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	s = strings.ReplaceAll(s, "\r\n", " ")
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.TrimSpace(s)
}
