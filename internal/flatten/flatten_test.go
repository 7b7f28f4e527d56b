package flatten

import (
	"fmt"
	"math"
	"testing"

	"github.com/obaidtambo/doc-struct/internal/docstate"
	"github.com/obaidtambo/doc-struct/internal/doctree"
	"github.com/obaidtambo/doc-struct/internal/geometry"
	"github.com/obaidtambo/doc-struct/internal/ocr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func el(ref, role, content string, page int, y float64) doctree.ContentElement {
	e := doctree.ContentElement{Ref: ref, Kind: doctree.KindParagraph, Role: role, Content: content}
	if page > 0 {
		p := doctree.Placement{PageNumber: page}
		if !math.IsNaN(y) {
			p.BoundingBox = &geometry.BoundingBox{X: 1, Y: y, Width: 2, Height: 0.5}
		}
		e.Placements = []doctree.Placement{p}
	}
	return e
}

func TestFlattenEmptyTreeYieldsRootOnly(t *testing.T) {
	out := Flatten(&doctree.DocumentTree{DocumentID: "doc_1", Structure: []*doctree.SectionNode{}})
	require.Len(t, out, 1)
	assert.Equal(t, docstate.Paragraph{
		ID:      docstate.RootID,
		Content: "doc_1",
		Role:    docstate.RoleDocumentRoot,
		Level:   0,
	}, out[0])

	assert.Len(t, Flatten(nil), 1)
}

func TestFlattenSectionWithTitleAndSubsection(t *testing.T) {
	tree := &doctree.DocumentTree{
		DocumentID: "doc",
		Structure: []*doctree.SectionNode{{
			ID: "section-0",
			Content: []doctree.ContentElement{
				el("/paragraphs/1", "", "Body text", 1, 300),
				el("/paragraphs/0", ocr.RoleTitle, "Annual Report", 1, 50),
			},
			Children: []*doctree.SectionNode{{
				ID:      "section-1",
				Content: []doctree.ContentElement{el("/paragraphs/2", "", "Nested", 2, 10)},
			}},
		}},
	}

	out := Flatten(tree)
	require.Len(t, out, 5)

	ids := make([]string, len(out))
	for i, p := range out {
		ids[i] = p.ID
	}
	assert.Equal(t, []string{"para-root", "para-1", "para-2", "para-3", "para-4"}, ids)

	section := out[1]
	assert.Equal(t, "Annual Report", section.Content)
	assert.Equal(t, ocr.RoleTitle, section.Role)
	assert.Equal(t, 1, section.Level)
	assert.Equal(t, docstate.RootID, *section.ParentID)
	require.NotNil(t, section.PageNumber)
	assert.Equal(t, 1, *section.PageNumber)
	assert.Equal(t, 50.0, section.BoundingBox.Y)

	body := out[2]
	assert.Equal(t, "Body text", body.Content)
	assert.Equal(t, docstate.RoleParagraph, body.Role)
	assert.Equal(t, 2, body.Level)
	assert.Equal(t, "para-1", *body.ParentID)

	sub := out[3]
	assert.Equal(t, "section-1", sub.Content)
	assert.Equal(t, docstate.RoleSectionHeading, sub.Role)
	assert.Equal(t, 2, sub.Level)
	assert.Equal(t, "para-1", *sub.ParentID)
	assert.Nil(t, sub.PageNumber)
	assert.Nil(t, sub.BoundingBox)

	nested := out[4]
	assert.Equal(t, 3, nested.Level)
	assert.Equal(t, "para-3", *nested.ParentID)
}

func TestOnlyFirstHeadingIsPromoted(t *testing.T) {
	tree := &doctree.DocumentTree{DocumentID: "d", Structure: []*doctree.SectionNode{{
		ID: "section-0",
		Content: []doctree.ContentElement{
			el("/paragraphs/0", ocr.RoleSectionHeading, "First", 1, 10),
			el("/paragraphs/1", ocr.RoleSectionHeading, "Second", 1, 20),
		},
	}}}
	out := Flatten(tree)
	require.Len(t, out, 3)
	assert.Equal(t, "First", out[1].Content)
	assert.Equal(t, "Second", out[2].Content)
	assert.Equal(t, ocr.RoleSectionHeading, out[2].Role)
}

func TestContentSortedByReadingOrder(t *testing.T) {
	nan := math.NaN()
	tree := &doctree.DocumentTree{DocumentID: "d", Structure: []*doctree.SectionNode{{
		ID: "section-0",
		Content: []doctree.ContentElement{
			el("a", "", "page2-top", 2, 1),
			el("b", "", "page1-nobox", 1, nan),
			el("c", "", "page1-low", 1, 9),
			el("d", "", "nopage", 0, 0),
			el("e", "", "page1-high", 1, 2),
			el("f", "", "page1-nobox-later", 1, nan),
		},
	}}}

	out := Flatten(tree)
	var got []string
	for _, p := range out[2:] {
		got = append(got, p.Content)
	}
	// The element without a page is treated as page 1 with no box.
	assert.Equal(t, []string{"page1-high", "page1-low", "page1-nobox", "nopage", "page1-nobox-later", "page2-top"}, got)
}

func TestFlattenInvariants(t *testing.T) {
	tree := randomTree(4, 3)
	out := Flatten(tree)

	require.NoError(t, docstate.VerifyOrder(out))

	// Ids are gapless.
	for i, p := range out[1:] {
		assert.Equal(t, fmt.Sprintf("para-%d", i+1), p.ID)
	}

	// A child is exactly one level below its parent.
	levels := map[string]int{}
	for _, p := range out {
		if p.ParentID != nil {
			assert.Equal(t, levels[*p.ParentID]+1, p.Level, p.ID)
		}
		levels[p.ID] = p.Level
	}

	// Content records of one section are non-decreasing in reading order.
	byParent := map[string][]docstate.Paragraph{}
	for _, p := range out {
		if p.ParentID != nil && p.Role == docstate.RoleParagraph {
			byParent[*p.ParentID] = append(byParent[*p.ParentID], p)
		}
	}
	for parent, recs := range byParent {
		for i := 1; i < len(recs); i++ {
			prev, cur := recs[i-1], recs[i]
			assert.LessOrEqual(t, *prev.PageNumber, *cur.PageNumber, parent)
			if *prev.PageNumber == *cur.PageNumber {
				assert.LessOrEqual(t, prev.BoundingBox.Y, cur.BoundingBox.Y, parent)
			}
		}
	}
}

func TestFlattenIsRepeatable(t *testing.T) {
	tree := randomTree(3, 3)
	assert.Equal(t, Flatten(tree), Flatten(tree))
}

func TestDocument(t *testing.T) {
	_, err := Document(&doctree.DocumentTree{DocumentID: "d"}, nil)
	assert.ErrorIs(t, err, ErrNoStructure)
	_, err = Document(nil, nil)
	assert.ErrorIs(t, err, ErrNoStructure)

	pages := []docstate.PageDimensions{{PageNumber: 1, Width: 8.5, Height: 11}}
	s, err := Document(randomTree(2, 2), pages)
	require.NoError(t, err)
	assert.Equal(t, "tree", s.DocumentID)
	assert.Equal(t, pages, s.PageDimensions)
	assert.Empty(t, s.History)
	assert.Empty(t, s.UIState.SelectedIDs)
	assert.Equal(t, docstate.RootID, s.Paragraphs[0].ID)
	require.NoError(t, s.Validate())
}

// randomTree builds a deterministic tree with the given fan-out and depth.
// Content is emitted in reverse reading order so sorting is exercised.
func randomTree(fanout, depth int) *doctree.DocumentTree {
	n := 0
	var build func(d int) []*doctree.SectionNode
	build = func(d int) []*doctree.SectionNode {
		if d == 0 {
			return nil
		}
		nodes := make([]*doctree.SectionNode, fanout)
		for i := range nodes {
			n++
			node := &doctree.SectionNode{ID: doctree.SectionID(n)}
			if i%2 == 0 {
				node.Content = append(node.Content, el(fmt.Sprintf("h%d", n), ocr.RoleSectionHeading, fmt.Sprintf("Heading %d", n), 1, 0))
			}
			for k := 3; k > 0; k-- {
				node.Content = append(node.Content, el(fmt.Sprintf("p%d-%d", n, k), "", fmt.Sprintf("text %d.%d", n, k), 1+k%2, float64(k*10)))
			}
			node.Children = build(d - 1)
			nodes[i] = node
		}
		return nodes
	}
	return &doctree.DocumentTree{DocumentID: "tree", Structure: build(depth)}
}
