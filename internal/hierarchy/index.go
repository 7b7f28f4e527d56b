package hierarchy

import (
	"slices"

	"github.com/obaidtambo/doc-struct/internal/doctree"
)

// topLevel is the parent id of nodes in the document's top-level list.
const topLevel = ""

// index is the live lookup state consulted while the tree is mutated.
// Level membership is captured once, before any mutation.
type index struct {
	tree   *doctree.DocumentTree
	nodes  map[string]*doctree.SectionNode
	parent map[string]string
	levels [][]string
}

func newIndex(tree *doctree.DocumentTree) *index {
	ix := &index{
		tree:   tree,
		nodes:  make(map[string]*doctree.SectionNode),
		parent: make(map[string]string),
	}
	tree.Walk(func(n, p *doctree.SectionNode, depth int) {
		if n.ID == "" {
			return
		}
		if _, dup := ix.nodes[n.ID]; dup {
			return
		}
		ix.nodes[n.ID] = n
		ix.parent[n.ID] = topLevel
		if p != nil {
			ix.parent[n.ID] = p.ID
		}
		for len(ix.levels) <= depth {
			ix.levels = append(ix.levels, nil)
		}
		ix.levels[depth] = append(ix.levels[depth], n.ID)
	})
	return ix
}

// children returns the live child list of the given parent id.
func (ix *index) children(parentID string) *[]*doctree.SectionNode {
	if parentID == topLevel {
		return &ix.tree.Structure
	}
	return &ix.nodes[parentID].Children
}

func (ix *index) has(id string) bool {
	_, ok := ix.nodes[id]
	return ok
}

func position(list []*doctree.SectionNode, id string) int {
	return slices.IndexFunc(list, func(n *doctree.SectionNode) bool { return n.ID == id })
}

func detach(list *[]*doctree.SectionNode, i int) *doctree.SectionNode {
	n := (*list)[i]
	*list = slices.Delete(*list, i, i+1)
	return n
}

func attach(list *[]*doctree.SectionNode, i int, n *doctree.SectionNode) {
	*list = slices.Insert(*list, clampIndex(i, len(*list)), n)
}
