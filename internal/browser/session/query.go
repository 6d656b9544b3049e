// internal/browser/session/query.go
package session

import (
	"fmt"

	"github.com/chromedp/chromedp"

	"github.com/xkilldash9x/pagestudy/internal/browser/dom"
	"github.com/xkilldash9x/pagestudy/internal/locator"
)

// queryMode says how a selector is handed to the browser.
type queryMode int

const (
	// modeSearch runs DOM.performSearch, which accepts XPath.
	modeSearch queryMode = iota
	// modeQuery runs querySelectorAll.
	modeQuery
	// modeScript evaluates a JavaScript expression yielding an element.
	modeScript
)

func (m queryMode) String() string {
	switch m {
	case modeSearch:
		return "search"
	case modeQuery:
		return "query"
	case modeScript:
		return "script"
	default:
		return fmt.Sprintf("queryMode(%d)", int(m))
	}
}

// candidate is one selector to try in the live page.
type candidate struct {
	mode     queryMode
	selector string
}

// option maps the mode onto the chromedp query option.
func (c candidate) option() chromedp.QueryOption {
	if c.mode == modeQuery {
		return chromedp.ByQuery
	}
	return chromedp.BySearch
}

// queryPlan lists the selectors a locator expands to, in the order they are
// tried. Implicit locators try id before name, like the cached lookup.
func queryPlan(l locator.Locator) []candidate {
	switch l.Kind {
	case locator.KindID:
		return []candidate{{modeSearch, dom.AttributeXPath("id", l.Value, l.Filter)}}
	case locator.KindName:
		return []candidate{{modeSearch, dom.AttributeXPath("name", l.Value, l.Filter)}}
	case locator.KindImplicit:
		return []candidate{
			{modeSearch, dom.AttributeXPath("id", l.Value, l.Filter)},
			{modeSearch, dom.AttributeXPath("name", l.Value, l.Filter)},
		}
	case locator.KindLink:
		lit := dom.Literal(l.Value)
		return []candidate{
			{modeSearch, fmt.Sprintf("//a[normalize-space(.)=%s]", lit)},
			{modeSearch, fmt.Sprintf("//a[.=%s]", lit)},
		}
	case locator.KindCSS:
		return []candidate{{modeQuery, l.Value}}
	case locator.KindXPath:
		return []candidate{{modeSearch, l.Value}}
	case locator.KindDOM:
		return []candidate{{modeScript, l.Value}}
	default:
		return nil
	}
}

// visibilityScript wraps a dom= expression in a check that it evaluates to
// an element occupying layout space.
func visibilityScript(expr string) string {
	return fmt.Sprintf(`(function() {
	var e;
	try { e = (%s); } catch (err) { return false; }
	if (!e || e.nodeType !== 1) { return false; }
	var s = window.getComputedStyle(e);
	if (s.visibility === "hidden" || s.display === "none") { return false; }
	return !!(e.offsetWidth || e.offsetHeight || e.getClientRects().length);
})()`, expr)
}

// presenceScript wraps a dom= expression in a check that it evaluates to an
// element at all.
func presenceScript(expr string) string {
	return fmt.Sprintf(`(function() {
	try { var e = (%s); return !!e && e.nodeType === 1; } catch (err) { return false; }
})()`, expr)
}
