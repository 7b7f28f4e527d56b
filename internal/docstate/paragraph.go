package docstate

import (
	"fmt"

	"github.com/obaidtambo/doc-struct/internal/geometry"
)

// Roles assigned by the flattener.
const (
	RoleDocumentRoot   = "documentRoot"
	RoleSectionHeading = "sectionHeading"
	RoleParagraph      = "paragraph"

	RootID = "para-root"
)

// Paragraph is one record of the flat, UI-facing document.
type Paragraph struct {
	ID          string                `json:"id"`
	ParentID    *string               `json:"parentId"`
	Content     string                `json:"content"`
	Role        string                `json:"role"`
	Level       int                   `json:"level"`
	BoundingBox *geometry.BoundingBox `json:"boundingBox"`
	PageNumber  *int                  `json:"pageNumber"`
	Enrichment  *Enrichment           `json:"enrichment"`

	// Set only by user merges downstream.
	IsMerged  bool     `json:"isMerged"`
	SourceIDs []string `json:"sourceIds"`
}

// Enrichment is optional AI-generated metadata for a paragraph.
type Enrichment struct {
	Summary  *string  `json:"summary"`
	Keywords []string `json:"keywords"`
	Role     *string  `json:"role"`
}

type paragraphJSON Paragraph

func (p *Paragraph) UnmarshalJSON(data []byte) error {
	var v paragraphJSON
	if err := decodeAliased(data, paragraphAliases, &v); err != nil {
		return err
	}
	*p = Paragraph(v)
	return nil
}

func (p Paragraph) validate() error {
	if p.ID == "" {
		return fmt.Errorf("paragraph id is required")
	}
	if p.Level < 0 {
		return fmt.Errorf("paragraph %s: negative level %d", p.ID, p.Level)
	}
	return nil
}

// PageDimensions is the size of one page in the OCR provider's units.
type PageDimensions struct {
	PageNumber int     `json:"pageNumber"`
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
}

type pageDimensionsJSON PageDimensions

func (d *PageDimensions) UnmarshalJSON(data []byte) error {
	var v pageDimensionsJSON
	if err := decodeAliased(data, pageAliases, &v); err != nil {
		return err
	}
	*d = PageDimensions(v)
	return nil
}

// UIState is transient client view state saved alongside the document.
type UIState struct {
	CurrentView *string  `json:"currentView"`
	SelectedIDs []string `json:"selectedIds"`
}

type uiStateJSON UIState

func (u *UIState) UnmarshalJSON(data []byte) error {
	var v uiStateJSON
	if err := decodeAliased(data, uiStateAliases, &v); err != nil {
		return err
	}
	*u = UIState(v)
	return nil
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T { return &v }
