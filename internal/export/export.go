// Package export renders a document state in the download formats the
// editor offers.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/obaidtambo/doc-struct/internal/docstate"
	"github.com/obaidtambo/doc-struct/internal/ocr"
)

// Format is an export file format.
type Format string

const (
	FormatJSON     Format = "json"
	FormatCSV      Format = "csv"
	FormatXLSX     Format = "xlsx"
	FormatMarkdown Format = "md"
	FormatHTML     Format = "html"
	FormatDOCX     Format = "docx"
)

// Formats lists every supported format.
var Formats = []Format{FormatJSON, FormatCSV, FormatXLSX, FormatMarkdown, FormatHTML, FormatDOCX}

// ParseFormat accepts a format name or a common alias.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), ".")) {
	case "", "json":
		return FormatJSON, nil
	case "csv":
		return FormatCSV, nil
	case "xlsx", "excel":
		return FormatXLSX, nil
	case "md", "markdown":
		return FormatMarkdown, nil
	case "html", "htm":
		return FormatHTML, nil
	case "docx", "word":
		return FormatDOCX, nil
	}
	return "", fmt.Errorf("unsupported export format %q", s)
}

// ContentType is the MIME type served for the format.
func (f Format) ContentType() string {
	switch f {
	case FormatCSV:
		return "text/csv; charset=utf-8"
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case FormatMarkdown:
		return "text/markdown; charset=utf-8"
	case FormatHTML:
		return "text/html; charset=utf-8"
	case FormatDOCX:
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	}
	return "application/json"
}

// Filename is the download name for a document id.
func (f Format) Filename(docID string) string {
	return docID + "." + string(f)
}

// Write renders s to w in format f.
func Write(w io.Writer, f Format, s *docstate.DocumentState) error {
	switch f {
	case FormatJSON:
		return JSON(w, s)
	case FormatCSV:
		return CSV(w, s)
	case FormatXLSX:
		return XLSX(w, s)
	case FormatMarkdown:
		_, err := io.WriteString(w, Markdown(s))
		return err
	case FormatHTML:
		return HTML(w, s)
	case FormatDOCX:
		return DOCX(w, s)
	}
	return fmt.Errorf("unsupported export format %q", f)
}

// JSON writes the paragraph list, indented.
func JSON(w io.Writer, s *docstate.DocumentState) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	paragraphs := s.Paragraphs
	if paragraphs == nil {
		paragraphs = []docstate.Paragraph{}
	}
	return enc.Encode(paragraphs)
}

// Columns are the tabular export columns.
var Columns = []string{"id", "parentId", "level", "role", "content", "enrichment"}

// row returns the tabular cells of p in Columns order.
func row(p docstate.Paragraph) []string {
	parent := ""
	if p.ParentID != nil {
		parent = *p.ParentID
	}
	enrichment := `""`
	if p.Enrichment != nil {
		if b, err := json.Marshal(p.Enrichment); err == nil {
			enrichment = string(b)
		}
	}
	return []string{p.ID, parent, fmt.Sprint(p.Level), p.Role, p.Content, enrichment}
}

// readable reports whether p belongs in a prose export. Page furniture and
// section records without a heading of their own are left out.
func readable(p docstate.Paragraph) bool {
	switch p.Role {
	case ocr.RolePageHeader, ocr.RolePageFooter, ocr.RolePageNumber:
		return false
	case docstate.RoleSectionHeading:
		return p.BoundingBox != nil || p.PageNumber != nil
	}
	return strings.TrimSpace(p.Content) != ""
}

func isHeading(p docstate.Paragraph) bool {
	switch p.Role {
	case docstate.RoleDocumentRoot, ocr.RoleTitle, docstate.RoleSectionHeading:
		return true
	}
	return false
}

// headingDepth maps a paragraph level to a 1-6 heading depth.
func headingDepth(p docstate.Paragraph) int {
	return min(max(p.Level+1, 1), 6)
}
