// internal/browser/dom/css.go
package dom

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"
)

// cssIdent matches ids that can be written as #id without escaping.
var cssIdent = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_-]*$`)

// CSSPath builds a structural CSS selector for node out of nth-of-type steps.
// The path is anchored on the nearest ancestor (or the node itself) whose id
// is unique in the snapshot, which keeps it short and stable.
// The result is verified against the snapshot; ok is false when the selector
// does not select exactly node, in which case callers fall back to AbsoluteXPath.
func (s *Snapshot) CSSPath(node *html.Node) (path string, ok bool) {
	if node == nil || node.Type != html.ElementNode {
		return "", false
	}

	var steps []string
	for n := node; n != nil && n.Type != html.DocumentNode; n = n.Parent {
		if n.Type != html.ElementNode {
			continue
		}
		tag := strings.ToLower(n.Data)
		if tag == "" {
			continue
		}

		if id := htmlquery.SelectAttr(n, "id"); cssIdent.MatchString(id) && s.IsUniqueAttr(n, "id") {
			steps = append(steps, "#"+id)
			break
		}
		steps = append(steps, fmt.Sprintf("%s:nth-of-type(%d)", tag, siblingIndex(n, tag)))
	}
	if len(steps) == 0 {
		return "", false
	}

	for i, j := 0, len(steps)-1; i < j; i, j = i+1, j-1 {
		steps[i], steps[j] = steps[j], steps[i]
	}
	path = strings.Join(steps, " > ")

	matches, err := s.QueryAllCSS(path)
	if err != nil || len(matches) != 1 || matches[0] != node {
		return "", false
	}
	return path, true
}
