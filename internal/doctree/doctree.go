// Package doctree holds the section tree reconstructed from OCR layout output.
package doctree

import (
	"slices"

	"github.com/obaidtambo/doc-struct/internal/geometry"
	"github.com/obaidtambo/doc-struct/internal/ocr"
)

// Kind distinguishes the two content element sources.
type Kind string

const (
	KindParagraph Kind = "paragraph"
	KindTable     Kind = "table"
)

// Placement is one spatial occurrence of an element. Elements that span a
// page break have more than one.
type Placement struct {
	PageNumber  int                   `json:"pageNumber"`
	BoundingBox *geometry.BoundingBox `json:"boundingBox,omitempty"`
}

// ContentElement is a paragraph or table owned by a section. It is never
// modified after the builder creates it.
type ContentElement struct {
	Ref        string      `json:"ref"`
	Kind       Kind        `json:"kind"`
	Role       string      `json:"role,omitempty"`
	Content    string      `json:"content"`
	Placements []Placement `json:"placements,omitempty"`
}

// PageNumber reports the page of the first placement.
func (e ContentElement) PageNumber() (int, bool) {
	if len(e.Placements) == 0 {
		return 0, false
	}
	return e.Placements[0].PageNumber, true
}

// BoundingBox returns the box of the first placement, or nil.
func (e ContentElement) BoundingBox() *geometry.BoundingBox {
	if len(e.Placements) == 0 {
		return nil
	}
	return e.Placements[0].BoundingBox
}

// IsHeading reports whether the element is a title or section heading.
func (e ContentElement) IsHeading() bool {
	return e.Role == ocr.RoleTitle || e.Role == ocr.RoleSectionHeading
}

// SectionMetadata keeps the provider's raw section data for audit.
type SectionMetadata struct {
	Spans       []ocr.Span `json:"spans"`
	ElementRefs []string   `json:"element_refs"`
}

// SectionNode is an internal tree node. Content keeps provider emission
// order; reading-order sorting happens when the tree is flattened.
type SectionNode struct {
	ID       string           `json:"section_id"`
	Metadata SectionMetadata  `json:"metadata"`
	Content  []ContentElement `json:"content"`
	Children []*SectionNode   `json:"children"`

	// Set by the hierarchy corrector on nodes it moved.
	Promoted bool `json:"llm_corrected_promotion,omitempty"`
	Demoted  bool `json:"llm_corrected_demotion,omitempty"`
}

// Heading returns the first title or section-heading element.
func (n *SectionNode) Heading() (ContentElement, bool) {
	for _, el := range n.Content {
		if el.IsHeading() {
			return el, true
		}
	}
	return ContentElement{}, false
}

// DocumentTree is the root container. The synthetic document root is not
// part of it; the flattener adds one.
type DocumentTree struct {
	DocumentID string         `json:"document_id"`
	Structure  []*SectionNode `json:"document_structure"`
}

// Walk visits every node in pre-order. parent is nil for top-level nodes
// and depth is 0 for them.
func (t *DocumentTree) Walk(fn func(n, parent *SectionNode, depth int)) {
	if t == nil {
		return
	}
	var walk func(nodes []*SectionNode, parent *SectionNode, depth int)
	walk = func(nodes []*SectionNode, parent *SectionNode, depth int) {
		for _, n := range nodes {
			fn(n, parent, depth)
			walk(n.Children, n, depth+1)
		}
	}
	walk(t.Structure, nil, 0)
}

// Count returns the number of reachable section nodes.
func (t *DocumentTree) Count() int {
	n := 0
	t.Walk(func(*SectionNode, *SectionNode, int) { n++ })
	return n
}

// Find returns the node with the given id.
func (t *DocumentTree) Find(id string) *SectionNode {
	var found *SectionNode
	t.Walk(func(n, _ *SectionNode, _ int) {
		if found == nil && n.ID == id {
			found = n
		}
	})
	return found
}

// Clone returns a deep copy of the tree.
func (t *DocumentTree) Clone() *DocumentTree {
	if t == nil {
		return nil
	}
	return &DocumentTree{
		DocumentID: t.DocumentID,
		Structure:  cloneNodes(t.Structure),
	}
}

func cloneNodes(nodes []*SectionNode) []*SectionNode {
	if nodes == nil {
		return nil
	}
	out := make([]*SectionNode, len(nodes))
	for i, n := range nodes {
		c := *n
		c.Metadata.Spans = slices.Clone(n.Metadata.Spans)
		c.Metadata.ElementRefs = slices.Clone(n.Metadata.ElementRefs)
		c.Content = make([]ContentElement, len(n.Content))
		for j, el := range n.Content {
			el.Placements = slices.Clone(el.Placements)
			c.Content[j] = el
		}
		c.Children = cloneNodes(n.Children)
		out[i] = &c
	}
	return out
}
