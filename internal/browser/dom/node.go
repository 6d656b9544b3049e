// internal/browser/dom/node.go
package dom

import (
	"strings"

	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"
)

// Node is a handle on one element of a Snapshot. A nil *Node means not found,
// which is distinct from a found element that has no attributes.
type Node struct {
	n *html.Node
}

// NewNode wraps n. It returns nil for a nil node.
func NewNode(n *html.Node) *Node {
	if n == nil {
		return nil
	}
	return &Node{n: n}
}

// Raw returns the underlying parsed node.
func (n *Node) Raw() *html.Node { return n.n }

// Tag returns the lowercase element name.
func (n *Node) Tag() string { return strings.ToLower(n.n.Data) }

// Attr looks up an attribute. ok is false when the attribute is absent.
func (n *Node) Attr(name string) (value string, ok bool) {
	for _, a := range n.n.Attr {
		if a.Key == name {
			return a.Val, true
		}
	}
	return "", false
}

// Attrs copies all attributes into a map.
func (n *Node) Attrs() map[string]string {
	attrs := make(map[string]string, len(n.n.Attr))
	for _, a := range n.n.Attr {
		attrs[a.Key] = a.Val
	}
	return attrs
}

// Text returns the concatenated inner text.
func (n *Node) Text() string { return htmlquery.InnerText(n.n) }

// XPath returns the absolute structural path of the element.
func (n *Node) XPath() string { return AbsoluteXPath(n.n) }

// HTML renders the element including its own tag.
func (n *Node) HTML() string { return htmlquery.OutputHTML(n.n, true) }
