// internal/study/resolve.go
package study

import (
	"fmt"
	"strings"

	"github.com/antchfx/htmlquery"
	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/xkilldash9x/pagestudy/internal/browser/dom"
	"github.com/xkilldash9x/pagestudy/internal/locator"
)

// Find looks up the element a locator refers to in the studied page.
// It returns (nil, false) when the cache is not clean, when nothing matches,
// and for dom= locators, which need a live page. None of these are errors.
func (c *Cache) Find(raw string) (*dom.Node, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.cleanLocked() {
		c.logger.Debug("Skipping cached lookup on stale page.", zap.String("locator", raw))
		return nil, false
	}
	node := c.findLocked(locator.Parse(raw))
	if node == nil {
		return nil, false
	}
	return dom.NewNode(node), true
}

// Simplify is SimplifyLocator with CSS fallback allowed.
func (c *Cache) Simplify(raw string) string {
	return c.SimplifyLocator(raw, true)
}

// SimplifyLocator rewrites raw into the simplest locator that re-finds the
// same element: id=, then name=, then a structural path. Only an attribute
// value that selects this element and no other is used.
// raw is returned verbatim when the cache is not clean or nothing matches, so
// the caller's live query reports the miss.
func (c *Cache) SimplifyLocator(raw string, allowCSS bool) string {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.cleanLocked() {
		return raw
	}
	node := c.findLocked(locator.Parse(raw))
	if node == nil {
		return raw
	}
	simplified := c.simplifyNode(node, allowCSS)
	c.logger.Debug("Locator simplified.", zap.String("locator", raw), zap.String("simplified", simplified))
	return simplified
}

func (c *Cache) simplifyNode(node *html.Node, allowCSS bool) string {
	if c.usableAttr(node, "id") {
		return locator.ID(htmlquery.SelectAttr(node, "id")).String()
	}
	if c.usableAttr(node, "name") {
		return locator.Name(htmlquery.SelectAttr(node, "name")).String()
	}
	if allowCSS && c.cssPaths {
		if path, ok := c.page.CSSPath(node); ok {
			return locator.CSS(path).String()
		}
	}
	return locator.XPath(dom.AbsoluteXPath(node)).String()
}

// usableAttr reports whether attr is unique to node and can be written as a
// locator body. Whitespace would be read back as a value filter.
func (c *Cache) usableAttr(node *html.Node, attr string) bool {
	if strings.ContainsAny(htmlquery.SelectAttr(node, attr), " \t\n\r\f") {
		return false
	}
	return c.page.IsUniqueAttr(node, attr)
}

// findLocked resolves a classified locator against the current page.
// The caller has checked that the cache is clean.
func (c *Cache) findLocked(l locator.Locator) *html.Node {
	switch l.Kind {
	case locator.KindID:
		return c.queryXPath(dom.AttributeXPath("id", l.Value, l.Filter))
	case locator.KindName:
		return c.queryXPath(dom.AttributeXPath("name", l.Value, l.Filter))
	case locator.KindImplicit:
		if n := c.queryXPath(dom.AttributeXPath("id", l.Value, l.Filter)); n != nil {
			return n
		}
		return c.queryXPath(dom.AttributeXPath("name", l.Value, l.Filter))
	case locator.KindLink:
		return c.findLink(l.Value)
	case locator.KindCSS:
		n, err := c.page.QueryCSS(l.Value)
		if err != nil {
			c.logger.Debug("CSS lookup failed.", zap.Error(err))
		}
		return n
	case locator.KindXPath:
		return c.queryXPath(l.Value)
	case locator.KindDOM:
		c.logger.Debug("dom= locators need a live page.", zap.String("expression", l.Value))
		return nil
	default:
		c.logger.Warn("Unhandled locator kind.", zap.Stringer("kind", l.Kind))
		return nil
	}
}

// findLink locates an anchor by its visible text, falling back to an exact
// match on its text content.
func (c *Cache) findLink(text string) *html.Node {
	lit := dom.Literal(text)
	if n := c.queryXPath(fmt.Sprintf("//a[normalize-space(.)=%s]", lit)); n != nil {
		return n
	}
	return c.queryXPath(fmt.Sprintf("//a[.=%s]", lit))
}

func (c *Cache) queryXPath(expr string) *html.Node {
	n, err := c.page.QueryXPath(expr)
	if err != nil {
		c.logger.Debug("XPath lookup failed.", zap.Error(err))
	}
	return n
}
