// Package flatten turns a corrected section tree into the flat, ordered
// paragraph list the editor works with.
package flatten

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/obaidtambo/doc-struct/internal/docstate"
	"github.com/obaidtambo/doc-struct/internal/doctree"
)

// ErrNoStructure is returned when a tree has no top-level sections.
var ErrNoStructure = errors.New("document has no structure to flatten")

// Flatten emits one record for the synthetic document root, then walks the
// tree in pre-order emitting a section record followed by its content
// records for every node. Ids are para-1, para-2, ... in emission order and
// restart on every call.
func Flatten(tree *doctree.DocumentTree) []docstate.Paragraph {
	docID := ""
	var roots []*doctree.SectionNode
	if tree != nil {
		docID = tree.DocumentID
		roots = tree.Structure
	}

	f := &flattener{}
	f.out = append(f.out, docstate.Paragraph{
		ID:      docstate.RootID,
		Content: docID,
		Role:    docstate.RoleDocumentRoot,
		Level:   0,
	})
	for _, n := range roots {
		f.section(n, docstate.RootID, 1)
	}
	return f.out
}

// Document flattens the tree and wraps the result in a fresh document state.
func Document(tree *doctree.DocumentTree, pages []docstate.PageDimensions) (*docstate.DocumentState, error) {
	if tree == nil || len(tree.Structure) == 0 {
		return nil, ErrNoStructure
	}
	paragraphs := Flatten(tree)
	if err := docstate.VerifyOrder(paragraphs); err != nil {
		return nil, fmt.Errorf("flatten %s: %w", tree.DocumentID, err)
	}
	return docstate.Assemble(tree.DocumentID, pages, paragraphs), nil
}

type flattener struct {
	seq int
	out []docstate.Paragraph
}

func (f *flattener) nextID() string {
	f.seq++
	return fmt.Sprintf("para-%d", f.seq)
}

func (f *flattener) section(n *doctree.SectionNode, parentID string, level int) {
	id := f.nextID()
	rec := docstate.Paragraph{
		ID:       id,
		ParentID: docstate.Ptr(parentID),
		Content:  n.ID,
		Role:     docstate.RoleSectionHeading,
		Level:    level,
	}

	promoted := -1
	for i, el := range n.Content {
		if el.IsHeading() {
			promoted = i
			rec.Role = el.Role
			rec.Content = el.Content
			rec.BoundingBox = el.BoundingBox()
			if page, ok := el.PageNumber(); ok {
				rec.PageNumber = docstate.Ptr(page)
			}
			break
		}
	}
	f.out = append(f.out, rec)

	content := make([]doctree.ContentElement, 0, len(n.Content))
	for i, el := range n.Content {
		if i != promoted {
			content = append(content, el)
		}
	}
	slices.SortStableFunc(content, compareReadingOrder)

	for _, el := range content {
		p := docstate.Paragraph{
			ID:          f.nextID(),
			ParentID:    docstate.Ptr(id),
			Content:     el.Content,
			Role:        el.Role,
			Level:       level + 1,
			BoundingBox: el.BoundingBox(),
		}
		if p.Role == "" {
			p.Role = docstate.RoleParagraph
		}
		if page, ok := el.PageNumber(); ok {
			p.PageNumber = docstate.Ptr(page)
		}
		f.out = append(f.out, p)
	}

	for _, child := range n.Children {
		f.section(child, id, level+1)
	}
}

// compareReadingOrder orders by page, then top edge. A missing page counts
// as page 1 and a missing box sorts after every positioned element.
func compareReadingOrder(a, b doctree.ContentElement) int {
	pa, pb := pageOf(a), pageOf(b)
	if pa != pb {
		return pa - pb
	}
	ya, yb := topOf(a), topOf(b)
	switch {
	case ya < yb:
		return -1
	case ya > yb:
		return 1
	}
	return 0
}

func pageOf(el doctree.ContentElement) int {
	if p, ok := el.PageNumber(); ok {
		return p
	}
	return 1
}

func topOf(el doctree.ContentElement) float64 {
	if bb := el.BoundingBox(); bb != nil {
		return bb.Y
	}
	return math.Inf(1)
}
