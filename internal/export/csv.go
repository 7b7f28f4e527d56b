package export

import (
	"encoding/csv"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/obaidtambo/doc-struct/internal/docstate"
)

// CSV writes one row per paragraph under a header row. The enrichment
// column holds the enrichment object as JSON.
func CSV(w io.Writer, s *docstate.DocumentState) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return err
	}
	for _, p := range s.Paragraphs {
		if err := cw.Write(row(p)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

const sheetName = "Paragraphs"

// XLSX writes the same table as CSV into a single worksheet.
func XLSX(w io.Writer, s *docstate.DocumentState) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return err
	}

	header := make([]any, len(Columns))
	for i, c := range Columns {
		header[i] = c
	}
	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return err
	}

	for i, p := range s.Paragraphs {
		cells := row(p)
		values := make([]any, len(cells))
		for j, c := range cells {
			values[j] = c
		}
		values[2] = p.Level
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheetName, cell, &values); err != nil {
			return err
		}
	}

	if err := f.SetPanes(sheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return err
	}
	_, err := f.WriteTo(w)
	return err
}
