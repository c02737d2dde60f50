package extract

import (
	"io"

	"github.com/andybalholm/cascadia"
	"github.com/antchfx/htmlquery"
	"github.com/bcampbell/htmlutil"
	"golang.org/x/net/html"
)

// Node is an element in a parsed page. It exposes only the queries the
// Extractor needs, so tests and other parsers can stand in for the html one.
type Node interface {
	// Query returns the elements matching an XPath expression, in document order.
	Query(expr string) ([]Node, error)
	// Select returns the elements matching a CSS selector, in document order.
	Select(sel string) ([]Node, error)
	// Attr returns the value of an attribute, and whether it was present at all.
	Attr(name string) (string, bool)
	// Tail returns the text immediately following the element, up to the
	// next element. ok is false if the element isn't followed by text.
	Tail() (string, bool)
	// Text returns the concatenated text content of the element.
	Text() string
}

// Parse reads an html document and returns its root.
func Parse(r io.Reader) (Node, error) {
	root, err := htmlquery.Parse(r)
	if err != nil {
		return nil, err
	}
	return Wrap(root), nil
}

// Wrap exposes an already-parsed html node as a Node.
func Wrap(n *html.Node) Node {
	return htmlNode{n}
}

type htmlNode struct {
	n *html.Node
}

func wrapAll(nodes []*html.Node) []Node {
	out := make([]Node, len(nodes))
	for i, n := range nodes {
		out[i] = htmlNode{n}
	}
	return out
}

func (h htmlNode) Query(expr string) ([]Node, error) {
	found, err := htmlquery.QueryAll(h.n, expr)
	if err != nil {
		return nil, err
	}
	return wrapAll(found), nil
}

func (h htmlNode) Select(sel string) ([]Node, error) {
	s, err := cascadia.Compile(sel)
	if err != nil {
		return nil, err
	}
	return wrapAll(s.MatchAll(h.n)), nil
}

func (h htmlNode) Attr(name string) (string, bool) {
	for _, a := range h.n.Attr {
		if a.Key == name {
			return a.Val, true
		}
	}
	return "", false
}

func (h htmlNode) Tail() (string, bool) {
	sib := h.n.NextSibling
	if sib == nil || sib.Type != html.TextNode {
		return "", false
	}
	return sib.Data, true
}

func (h htmlNode) Text() string {
	return htmlutil.TextContent(h.n)
}
