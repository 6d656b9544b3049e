// internal/browser/dom/config.go
package dom

import (
	"context"
	"io"
)

// PagePrimitives is the minimal surface of a live browser page that the
// studied-page cache relies on. The browser Session provides it.
// Locators use the same mini-language the cache understands.
type PagePrimitives interface {
	// GetDOMSnapshot fetches the current page markup for studying.
	GetDOMSnapshot(ctx context.Context) (io.Reader, error)
	// IsVisible reports whether the locator currently matches a visible element.
	IsVisible(ctx context.Context, locator string) bool
}
