package hierarchy

import (
	"strings"
	"testing"

	"github.com/obaidtambo/doc-struct/internal/doctree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarize(t *testing.T) {
	long := strings.Repeat("é", 250)
	tests := []struct {
		name string
		node *doctree.SectionNode
		want string
	}{
		{"missing", nil, notFound},
		{"heading wins over earlier paragraph", &doctree.SectionNode{Content: []doctree.ContentElement{
			{Kind: doctree.KindParagraph, Content: "intro"},
			{Kind: doctree.KindParagraph, Role: "title", Content: "Title"},
		}}, "'Title'"},
		{"first plain paragraph truncated", &doctree.SectionNode{Content: []doctree.ContentElement{
			{Kind: doctree.KindParagraph, Role: "pageHeader", Content: "header"},
			{Kind: doctree.KindParagraph, Content: long},
		}}, "'" + strings.Repeat("é", 200) + "...'"},
		{"tables only", &doctree.SectionNode{Content: []doctree.ContentElement{
			{Kind: doctree.KindTable, Role: "table", Content: "| a |"},
		}}, noContent},
		{"empty", &doctree.SectionNode{}, noContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, summarize(tt.node))
		})
	}
}

func TestDefaultPromptsRender(t *testing.T) {
	p := DefaultPrompts()

	promo, err := render(p.Promotion, promptData{
		Context: nodeView{Summary: documentTop},
		Parent:  nodeView{ID: "section-1", Summary: "'Results'"},
		Node:    nodeView{ID: "section-4", Summary: "'Appendix'"},
	})
	require.NoError(t, err)
	assert.Contains(t, promo, "Parent section section-1: 'Results'")
	assert.Contains(t, promo, "Child section section-4: 'Appendix'")
	assert.Contains(t, promo, documentTop)
	assert.Contains(t, promo, `"decision"`)

	demo, err := render(p.Demotion, promptData{
		Context: nodeView{ID: "section-0", Summary: "'Report'"},
		Node:    nodeView{ID: "section-2", Summary: "'Methods'"},
		Next:    nodeView{ID: "section-3", Summary: "'Sampling'"},
	})
	require.NoError(t, err)
	assert.Contains(t, demo, "Section A section-2: 'Methods'")
	assert.Contains(t, demo, "Section B section-3: 'Sampling'")
	assert.Contains(t, demo, `"relationship"`)
}

func TestLoadPromptsErrors(t *testing.T) {
	_, err := LoadPrompts([]byte("promotion: [unclosed"))
	assert.Error(t, err)

	_, err = LoadPrompts([]byte("promotion: hi\n"))
	assert.Error(t, err)

	_, err = LoadPrompts([]byte("promotion: '{{.Nope'\ndemotion: ok\n"))
	assert.Error(t, err)

	p, err := LoadPrompts([]byte("promotion: 'P {{.Node.ID}}'\ndemotion: 'D {{.Next.ID}}'\n"))
	require.NoError(t, err)
	out, err := render(p.Promotion, promptData{Node: nodeView{ID: "n"}})
	require.NoError(t, err)
	assert.Equal(t, "P n", out)
}

func TestPolicies(t *testing.T) {
	assert.Equal(t, 5, DefaultPolicy{}.PromoteIndex(5, 1, true))
	assert.Equal(t, 2, DefaultPolicy{}.PromoteIndex(5, 1, false))
	assert.Equal(t, 5, DefaultPolicy{}.PromoteIndex(5, -1, false))
	assert.Equal(t, 3, DefaultPolicy{}.DemoteIndex(3))

	assert.Equal(t, 2, AdjacentPolicy{}.PromoteIndex(5, 1, true))
	assert.Equal(t, 5, AdjacentPolicy{}.PromoteIndex(5, -1, true))
}
