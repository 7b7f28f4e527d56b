package doctree

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/obaidtambo/doc-struct/internal/geometry"
	"github.com/obaidtambo/doc-struct/internal/ocr"
)

const sectionRefPrefix = "/sections/"

// SectionID is the identifier given to the i-th provider section.
func SectionID(i int) string {
	return fmt.Sprintf("section-%d", i)
}

// Build reconstructs the section tree from a layout analysis. Sections never
// referenced by another section become top-level nodes. References to
// unknown elements are dropped. A section is attached to the first parent
// that references it; later references to it are ignored so the result is
// always a forest. A nil result yields an empty tree.
func Build(docID string, ar *ocr.AnalyzeResult) *DocumentTree {
	tree := &DocumentTree{DocumentID: docID, Structure: []*SectionNode{}}
	if ar == nil {
		return tree
	}

	elements := contentIndex(ar)

	nodes := make([]*SectionNode, len(ar.Sections))
	for i, sec := range ar.Sections {
		nodes[i] = &SectionNode{
			ID: SectionID(i),
			Metadata: SectionMetadata{
				Spans:       nonNil(sec.Spans),
				ElementRefs: nonNil(sec.Elements),
			},
			Content:  []ContentElement{},
			Children: []*SectionNode{},
		}
	}

	hasParent := make([]bool, len(nodes))
	for i, sec := range ar.Sections {
		node := nodes[i]
		for _, ref := range sec.Elements {
			if child, ok := sectionIndex(ref, len(nodes)); ok {
				if hasParent[child] {
					continue
				}
				hasParent[child] = true
				node.Children = append(node.Children, nodes[child])
				continue
			}
			if el, ok := elements[ref]; ok {
				node.Content = append(node.Content, el)
			}
		}
	}

	for i, n := range nodes {
		if !hasParent[i] {
			tree.Structure = append(tree.Structure, n)
		}
	}
	return tree
}

func sectionIndex(ref string, n int) (int, bool) {
	rest, ok := strings.CutPrefix(ref, sectionRefPrefix)
	if !ok {
		return 0, false
	}
	i, err := strconv.Atoi(rest)
	if err != nil || i < 0 || i >= n {
		return 0, false
	}
	return i, true
}

// contentIndex maps "/paragraphs/{i}" and "/tables/{i}" to elements with
// their geometry attached.
func contentIndex(ar *ocr.AnalyzeResult) map[string]ContentElement {
	idx := make(map[string]ContentElement, len(ar.Paragraphs)+len(ar.Tables))
	for i, p := range ar.Paragraphs {
		ref := fmt.Sprintf("/paragraphs/%d", i)
		role := p.Role
		if role == "" {
			role = ocr.RoleParagraph
		}
		idx[ref] = ContentElement{
			Ref:        ref,
			Kind:       KindParagraph,
			Role:       role,
			Content:    p.Content,
			Placements: placements(p.BoundingRegions),
		}
	}
	for i, t := range ar.Tables {
		ref := fmt.Sprintf("/tables/%d", i)
		idx[ref] = ContentElement{
			Ref:        ref,
			Kind:       KindTable,
			Role:       string(KindTable),
			Content:    RenderTable(t),
			Placements: placements(t.BoundingRegions),
		}
	}
	return idx
}

func placements(regions []ocr.BoundingRegion) []Placement {
	if len(regions) == 0 {
		return nil
	}
	out := make([]Placement, 0, len(regions))
	for _, r := range regions {
		out = append(out, Placement{
			PageNumber:  r.PageNumber,
			BoundingBox: geometry.FromPolygon(r.Polygon),
		})
	}
	return out
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
