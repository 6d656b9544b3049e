// internal/browser/dom/xpath.go
package dom

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

// AbsoluteXPath generates the absolute structural XPath of an element,
// e.g. /html[1]/body[1]/div[2]/p[1]. Every step carries its 1-based
// position among same-tag siblings, so the path re-finds exactly this node
// in the document it was built from.
func AbsoluteXPath(node *html.Node) string {
	if node == nil {
		return ""
	}

	var path []string
	// Traverse up the tree from the node to the root.
	for n := node; n != nil && n.Type != html.DocumentNode; n = n.Parent {
		if n.Type != html.ElementNode {
			continue
		}

		// Use lowercase for tag names as is conventional in HTML XPath.
		tag := strings.ToLower(n.Data)
		if tag == "" {
			continue
		}

		path = append(path, xpathStep(tag, siblingIndex(n, tag)))
	}

	if len(path) == 0 {
		return "/"
	}

	// Reverse the path to go from root to the node.
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return "/" + strings.Join(path, "/")
}

// xpathName matches tag names an XPath step can spell out directly.
var xpathName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9._-]*$`)

// xpathStep renders one path step. Tags such as o:p or fb:like would be read
// as prefixed names, so they are matched through name() instead.
func xpathStep(tag string, index int) string {
	if xpathName.MatchString(tag) {
		return fmt.Sprintf("%s[%d]", tag, index)
	}
	return fmt.Sprintf("*[name()=%s][%d]", Literal(tag), index)
}

// siblingIndex counts n's position among preceding element siblings with the same tag.
// XPath indices are 1-based.
func siblingIndex(n *html.Node, tag string) int {
	index := 1
	for prev := n.PrevSibling; prev != nil; prev = prev.PrevSibling {
		if prev.Type == html.ElementNode && strings.ToLower(prev.Data) == tag {
			index++
		}
	}
	return index
}

// Literal quotes s as an XPath 1.0 string literal. XPath has no escape
// sequences, so a value holding both quote kinds is assembled with concat().
func Literal(s string) string {
	if !strings.Contains(s, "'") {
		return "'" + s + "'"
	}
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}

	parts := strings.Split(s, "'")
	args := make([]string, 0, 2*len(parts)-1)
	for i, p := range parts {
		if i > 0 {
			args = append(args, `"'"`)
		}
		if p != "" {
			args = append(args, "'"+p+"'")
		}
	}
	return "concat(" + strings.Join(args, ", ") + ")"
}

// AttributeXPath builds //*[@attr=value], optionally narrowed by a value predicate.
func AttributeXPath(attr, value, filter string) string {
	expr := fmt.Sprintf("//*[@%s=%s]", attr, Literal(value))
	if filter != "" {
		expr += fmt.Sprintf("[@value=%s]", Literal(filter))
	}
	return expr
}
