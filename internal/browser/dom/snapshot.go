// internal/browser/dom/snapshot.go
package dom

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"
)

// Snapshot is one parsed copy of a page. It is never mutated after Parse;
// a newer page means a new Snapshot.
type Snapshot struct {
	root *html.Node
	// doc wraps the same root for CSS queries.
	doc *goquery.Document
}

// Parse reads markup from r and builds a Snapshot. The HTML parser itself
// accepts anything, so input is first run through the tokenizer: empty input
// and markup that ends inside a tag are rejected with a *ParseError instead of
// silently producing an empty document.
//
// Only those two cases are rejected. Truncations the tokenizer still emits as
// whole tokens are accepted: an unclosed doctype ("<!DOCTYPE html") or
// comment, and a dangling "</" read as text (as in "a </"). They parse to the
// same tree a browser would build.
func Parse(r io.Reader) (*Snapshot, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, newParseError("could not read markup", -1, err)
	}
	if err := validateMarkup(data); err != nil {
		return nil, err
	}

	root, err := htmlquery.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, newParseError("malformed markup", -1, err)
	}
	return &Snapshot{root: root, doc: goquery.NewDocumentFromNode(root)}, nil
}

// ParseString is Parse over an in-memory string.
func ParseString(content string) (*Snapshot, error) {
	return Parse(bytes.NewBufferString(content))
}

// validateMarkup walks the token stream. Tokens are contiguous, so any bytes
// left over once the tokenizer reaches EOF belong to a tag it had to drop.
func validateMarkup(data []byte) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return newParseError("empty document", 0, nil)
	}

	z := html.NewTokenizer(bytes.NewReader(data))
	consumed := 0
	for {
		if z.Next() == html.ErrorToken {
			if err := z.Err(); !errors.Is(err, io.EOF) {
				return newParseError("tokenizer failed", consumed, err)
			}
			break
		}
		consumed += len(z.Raw())
	}
	if consumed < len(data) {
		return newParseError("markup ends inside an unterminated tag", consumed, nil)
	}
	return nil
}

// Root returns the document node.
func (s *Snapshot) Root() *html.Node {
	return s.root
}

// QueryXPath returns the first element matching expr in document order, or
// nil when nothing matches. Only element nodes count as matches.
func (s *Snapshot) QueryXPath(expr string) (*html.Node, error) {
	nodes, err := s.QueryAllXPath(expr)
	if err != nil || len(nodes) == 0 {
		return nil, err
	}
	return nodes[0], nil
}

// QueryAllXPath returns every element matching expr in document order.
func (s *Snapshot) QueryAllXPath(expr string) ([]*html.Node, error) {
	found, err := htmlquery.QueryAll(s.root, expr)
	if err != nil {
		return nil, fmt.Errorf("invalid xpath %q: %w", expr, err)
	}
	return elementsOnly(found), nil
}

// QueryCSS returns the first element matching the CSS selector, or nil.
func (s *Snapshot) QueryCSS(selector string) (*html.Node, error) {
	nodes, err := s.QueryAllCSS(selector)
	if err != nil || len(nodes) == 0 {
		return nil, err
	}
	return nodes[0], nil
}

// QueryAllCSS returns every element matching the CSS selector in document order.
func (s *Snapshot) QueryAllCSS(selector string) ([]*html.Node, error) {
	matcher, err := cascadia.Compile(selector)
	if err != nil {
		return nil, fmt.Errorf("invalid css selector %q: %w", selector, err)
	}
	return s.doc.FindMatcher(matcher).Nodes, nil
}

// IsUniqueAttr reports whether node carries a non-empty attr whose value
// selects node and nothing else in the whole document. Two nodes sharing the
// value make it non-unique for both, the first one included.
func (s *Snapshot) IsUniqueAttr(node *html.Node, attr string) bool {
	if node == nil {
		return false
	}
	value := htmlquery.SelectAttr(node, attr)
	if value == "" {
		return false
	}
	matches, err := s.QueryAllXPath(AttributeXPath(attr, value, ""))
	if err != nil {
		return false
	}
	return len(matches) == 1 && matches[0] == node
}

// elementsOnly drops non-element results. Attribute selections come back from
// htmlquery as detached synthetic elements, so a node must also have a parent.
func elementsOnly(nodes []*html.Node) []*html.Node {
	out := make([]*html.Node, 0, len(nodes))
	for _, n := range nodes {
		if n != nil && n.Type == html.ElementNode && n.Parent != nil {
			out = append(out, n)
		}
	}
	return out
}
