package export

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/obaidtambo/doc-struct/internal/docstate"
)

// Markdown renders the readable paragraphs with headings nested by level.
// Table content is already a pipe table and is emitted unchanged.
func Markdown(s *docstate.DocumentState) string {
	var b strings.Builder
	for _, p := range s.Paragraphs {
		if !readable(p) {
			continue
		}
		content := strings.TrimSpace(p.Content)
		switch {
		case isHeading(p):
			fmt.Fprintf(&b, "%s %s\n\n", strings.Repeat("#", headingDepth(p)), singleLine(content))
		default:
			b.WriteString(content)
			b.WriteString("\n\n")
		}
	}
	return b.String()
}

func singleLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

var (
	markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))
	policy   = bluemonday.UGCPolicy()
)

// HTML renders the Markdown export to a sanitized, standalone HTML page.
func HTML(w io.Writer, s *docstate.DocumentState) error {
	var body bytes.Buffer
	if err := markdown.Convert([]byte(Markdown(s)), &body); err != nil {
		return fmt.Errorf("render markdown: %w", err)
	}
	clean := policy.SanitizeReader(&body)

	page := newPage(s.DocumentID)
	bodyNode := findElement(page, atom.Body)
	nodes, err := html.ParseFragment(clean, bodyNode)
	if err != nil {
		return fmt.Errorf("parse rendered html: %w", err)
	}
	for _, n := range nodes {
		bodyNode.AppendChild(n)
	}
	return html.Render(w, page)
}

func newPage(title string) *html.Node {
	doc := &html.Node{Type: html.DocumentNode}
	doc.AppendChild(&html.Node{Type: html.DoctypeNode, Data: "html"})

	root := element(atom.Html)
	root.Attr = []html.Attribute{{Key: "lang", Val: "en"}}
	doc.AppendChild(root)

	head := element(atom.Head)
	meta := element(atom.Meta)
	meta.Attr = []html.Attribute{{Key: "charset", Val: "utf-8"}}
	head.AppendChild(meta)
	t := element(atom.Title)
	t.AppendChild(&html.Node{Type: html.TextNode, Data: title})
	head.AppendChild(t)
	root.AppendChild(head)
	root.AppendChild(element(atom.Body))
	return doc
}

func element(a atom.Atom) *html.Node {
	return &html.Node{Type: html.ElementNode, DataAtom: a, Data: a.String()}
}

func findElement(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, a); found != nil {
			return found
		}
	}
	return nil
}
