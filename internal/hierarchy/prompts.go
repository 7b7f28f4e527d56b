package hierarchy

import (
	_ "embed"
	"fmt"
	"strings"
	"text/template"
	"unicode/utf8"

	"github.com/obaidtambo/doc-struct/internal/doctree"
	"github.com/obaidtambo/doc-struct/internal/ocr"
	"gopkg.in/yaml.v3"
)

//go:embed prompts.yaml
var defaultPromptsYAML []byte

const (
	notFound       = "[Node Not Found]"
	noContent      = "[No Relevant Content Found]"
	documentTop    = "[Top Level Of The Document]"
	summaryMaxRune = 200
)

// Prompts holds the two oracle prompt templates.
type Prompts struct {
	Promotion *template.Template
	Demotion  *template.Template
}

type promptFile struct {
	Promotion string `yaml:"promotion"`
	Demotion  string `yaml:"demotion"`
}

// LoadPrompts parses a YAML document with "promotion" and "demotion"
// template strings.
func LoadPrompts(data []byte) (*Prompts, error) {
	var pf promptFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return nil, fmt.Errorf("parse prompts: %w", err)
	}
	if strings.TrimSpace(pf.Promotion) == "" || strings.TrimSpace(pf.Demotion) == "" {
		return nil, fmt.Errorf("prompts: promotion and demotion templates are required")
	}
	promo, err := template.New("promotion").Option("missingkey=error").Parse(pf.Promotion)
	if err != nil {
		return nil, fmt.Errorf("parse promotion template: %w", err)
	}
	demo, err := template.New("demotion").Option("missingkey=error").Parse(pf.Demotion)
	if err != nil {
		return nil, fmt.Errorf("parse demotion template: %w", err)
	}
	return &Prompts{Promotion: promo, Demotion: demo}, nil
}

// DefaultPrompts returns the embedded templates.
func DefaultPrompts() *Prompts {
	p, err := LoadPrompts(defaultPromptsYAML)
	if err != nil {
		panic(err)
	}
	return p
}

// nodeView is what a template sees of one section.
type nodeView struct {
	ID      string
	Summary string
}

type promptData struct {
	Context nodeView
	Parent  nodeView
	Node    nodeView
	Next    nodeView
}

func render(t *template.Template, data promptData) (string, error) {
	var sb strings.Builder
	if err := t.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("render %s prompt: %w", t.Name(), err)
	}
	return sb.String(), nil
}

// summarize describes a node by its heading, else the start of its first
// plain paragraph.
func summarize(n *doctree.SectionNode) string {
	if n == nil {
		return notFound
	}
	if h, ok := n.Heading(); ok {
		return quote(h.Content)
	}
	for _, el := range n.Content {
		if el.Kind == doctree.KindParagraph && (el.Role == "" || el.Role == ocr.RoleParagraph) {
			return quote(truncateRunes(el.Content, summaryMaxRune) + "...")
		}
	}
	return noContent
}

func quote(s string) string {
	return "'" + s + "'"
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}
