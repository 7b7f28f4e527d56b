package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/fumiama/go-docx"

	"github.com/obaidtambo/doc-struct/internal/docstate"
)

// Heading sizes in half-points, by heading depth.
var headingSizes = [...]string{"", "40", "32", "28", "26", "24", "24"}

// DOCX writes the readable paragraphs as a Word document. Headings are
// bold and sized by depth; every other line becomes its own paragraph.
func DOCX(w io.Writer, s *docstate.DocumentState) error {
	doc := docx.New().WithDefaultTheme()

	for _, p := range s.Paragraphs {
		if !readable(p) {
			continue
		}
		content := strings.TrimSpace(p.Content)
		switch {
		case isHeading(p):
			para := doc.AddParagraph()
			para.AddText(singleLine(content)).Bold().Size(headingSizes[headingDepth(p)])
		default:
			for _, line := range strings.Split(content, "\n") {
				doc.AddParagraph().AddText(line)
			}
		}
	}

	if _, err := doc.WriteTo(w); err != nil {
		return fmt.Errorf("write docx: %w", err)
	}
	return nil
}
