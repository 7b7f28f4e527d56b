package doctree

import (
	"testing"

	"github.com/obaidtambo/doc-struct/internal/ocr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCloneIsDeep(t *testing.T) {
	tree := Build("doc", sampleAnalysis())
	c := tree.Clone()
	require.Equal(t, tree, c)

	c.Structure[0].Children = c.Structure[0].Children[:1]
	c.Structure[0].Content[0].Content = "changed"
	c.Structure[0].Promoted = true

	assert.Len(t, tree.Structure[0].Children, 2)
	assert.Equal(t, "Report", tree.Structure[0].Content[0].Content)
	assert.False(t, tree.Structure[0].Promoted)
}

func TestWalkDepths(t *testing.T) {
	tree := Build("doc", sampleAnalysis())
	depths := map[string]int{}
	parents := map[string]string{}
	tree.Walk(func(n, parent *SectionNode, depth int) {
		depths[n.ID] = depth
		if parent != nil {
			parents[n.ID] = parent.ID
		}
	})
	assert.Equal(t, map[string]int{"section-0": 0, "section-1": 1, "section-2": 1, "section-3": 0}, depths)
	assert.Equal(t, map[string]string{"section-1": "section-0", "section-2": "section-0"}, parents)
}

func TestHeading(t *testing.T) {
	tree := Build("doc", sampleAnalysis())

	h, ok := tree.Find("section-1").Heading()
	require.True(t, ok)
	assert.Equal(t, "Intro", h.Content)

	_, ok = tree.Find("section-2").Heading()
	assert.False(t, ok)
}

func TestRenderTable(t *testing.T) {
	tests := []struct {
		name  string
		table ocr.Table
		want  string
	}{
		{"empty", ocr.Table{}, ""},
		{
			"escapes pipes and newlines",
			ocr.Table{RowCount: 1, ColumnCount: 2, Cells: []ocr.TableCell{
				{RowIndex: 0, ColumnIndex: 0, Content: "a|b"},
				{RowIndex: 0, ColumnIndex: 1, Content: "line\nbreak"},
			}},
			"| a\\|b | line break |\n| --- | --- |",
		},
		{
			"grid grows to fit cells",
			ocr.Table{Cells: []ocr.TableCell{
				{RowIndex: 1, ColumnIndex: 1, Content: "x"},
			}},
			"|  |  |\n| --- | --- |\n|  | x |",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RenderTable(tt.table))
		})
	}
}
