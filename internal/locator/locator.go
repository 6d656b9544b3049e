// internal/locator/locator.go
package locator

import (
	"strings"
)

// Kind identifies which addressing strategy a locator uses.
type Kind int

const (
	// KindImplicit has no recognized prefix; it is tried as an id, then as a name.
	KindImplicit Kind = iota
	KindID
	KindName
	KindCSS
	KindXPath
	KindLink
	// KindDOM locators need live script evaluation and never match a snapshot.
	KindDOM
)

// String returns the prefix name of the kind.
func (k Kind) String() string {
	switch k {
	case KindID:
		return "id"
	case KindName:
		return "name"
	case KindCSS:
		return "css"
	case KindXPath:
		return "xpath"
	case KindLink:
		return "link"
	case KindDOM:
		return "dom"
	default:
		return "implicit"
	}
}

const (
	prefixCSS        = "css="
	prefixXPath      = "xpath="
	prefixLink       = "link="
	prefixDOM        = "dom="
	prefixName       = "name="
	prefixID         = "id="
	prefixIdentifier = "identifier="
	prefixValue      = "value="

	bareXPath = "//"
	bareDOM   = "document."
)

// Locator is a classified locator string.
type Locator struct {
	Kind Kind
	// Value is the locator body with the recognized prefix removed.
	Value string
	// Filter is an optional value predicate carried by id, name and implicit
	// locators ("name=q value=go" has Value "q" and Filter "go").
	Filter string
	// Raw is the input exactly as given.
	Raw string
}

// Parse classifies raw by prefix. Classification is purely syntactic and never fails.
func Parse(raw string) Locator {
	l := Locator{Raw: raw}

	switch {
	case strings.HasPrefix(raw, prefixCSS):
		l.Kind, l.Value = KindCSS, raw[len(prefixCSS):]
	case strings.HasPrefix(raw, prefixXPath):
		l.Kind, l.Value = KindXPath, raw[len(prefixXPath):]
	case strings.HasPrefix(raw, bareXPath):
		l.Kind, l.Value = KindXPath, raw
	case strings.HasPrefix(raw, prefixLink):
		l.Kind, l.Value = KindLink, raw[len(prefixLink):]
	case strings.HasPrefix(raw, prefixDOM):
		l.Kind, l.Value = KindDOM, raw[len(prefixDOM):]
	case strings.HasPrefix(raw, bareDOM):
		l.Kind, l.Value = KindDOM, raw
	case strings.HasPrefix(raw, prefixName):
		l.Kind = KindName
		l.Value, l.Filter = splitFilter(raw[len(prefixName):])
	case strings.HasPrefix(raw, prefixID):
		l.Kind = KindID
		l.Value, l.Filter = splitFilter(raw[len(prefixID):])
	case strings.HasPrefix(raw, prefixIdentifier):
		l.Kind = KindImplicit
		l.Value, l.Filter = splitFilter(raw[len(prefixIdentifier):])
	default:
		l.Kind = KindImplicit
		l.Value, l.Filter = splitFilter(raw)
	}
	return l
}

// splitFilter separates an attribute value from a trailing value predicate.
// Both "foo value=bar" and "foo bar" yield ("foo", "bar").
func splitFilter(body string) (value, filter string) {
	i := strings.IndexAny(body, " \t")
	if i < 0 {
		return body, ""
	}
	value = body[:i]
	filter = strings.TrimLeft(body[i:], " \t")
	filter = strings.TrimPrefix(filter, prefixValue)
	return value, filter
}

// String renders the canonical form of the locator. Bare xpath and dom
// expressions gain their explicit prefix; implicit locators stay bare.
func (l Locator) String() string {
	var s string
	switch l.Kind {
	case KindID:
		s = prefixID + l.Value
	case KindName:
		s = prefixName + l.Value
	case KindCSS:
		return prefixCSS + l.Value
	case KindXPath:
		return prefixXPath + l.Value
	case KindLink:
		return prefixLink + l.Value
	case KindDOM:
		return prefixDOM + l.Value
	default:
		s = l.Value
	}
	if l.Filter != "" {
		s += " " + prefixValue + l.Filter
	}
	return s
}

// ID builds an id locator.
func ID(value string) Locator {
	return Locator{Kind: KindID, Value: value, Raw: prefixID + value}
}

// Name builds a name locator.
func Name(value string) Locator {
	return Locator{Kind: KindName, Value: value, Raw: prefixName + value}
}

// XPath builds an xpath locator.
func XPath(expr string) Locator {
	return Locator{Kind: KindXPath, Value: expr, Raw: prefixXPath + expr}
}

// CSS builds a css locator.
func CSS(selector string) Locator {
	return Locator{Kind: KindCSS, Value: selector, Raw: prefixCSS + selector}
}
