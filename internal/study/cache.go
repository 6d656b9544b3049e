// internal/study/cache.go
package study

import (
	"bytes"
	"io"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/pagestudy/internal/browser/dom"
)

// pageState distinguishes "no page was ever studied (or the last study
// failed)" from "a page is studied and its dirtiness is being counted".
type pageState int

const (
	stateNoPage pageState = iota
	stateTracked
)

// Cache is the studied-page cache. It keeps one parsed snapshot of a page and
// tracks how far the live page may have drifted from it since it was taken.
// Cached queries are only answered while the cache is clean.
//
// A Cache models the single page a test believes it is looking at. All
// methods are safe for concurrent use but callers normally own it exclusively.
type Cache struct {
	id     string
	logger *zap.Logger

	mu        sync.Mutex
	page      *dom.Snapshot
	state     pageState
	dirties   int
	keepClean bool
	// sections holds the keepClean flag in force before each open section.
	sections []bool

	cssPaths bool
}

// Option configures a Cache.
type Option func(*Cache)

// WithCSSPaths makes Simplify emit css= structural paths instead of xpath=
// when a locator has no unique id or name and CSS fallback is allowed.
func WithCSSPaths(enabled bool) Option {
	return func(c *Cache) { c.cssPaths = enabled }
}

// New creates an empty cache. Until the first successful Study it is never clean.
func New(logger *zap.Logger, opts ...Option) *Cache {
	if logger == nil {
		logger = zap.NewNop()
	}
	id := uuid.New().String()
	c := &Cache{
		id:     id,
		logger: logger.Named("study").With(zap.String("cache_id", id)),
		state:  stateNoPage,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ID returns the identifier used in this cache's log entries.
func (c *Cache) ID() string { return c.id }

// Study parses r into a fresh snapshot. On success the cache is clean,
// keepClean is set to keep and any open sections are abandoned. On failure
// the cache has no page, is never clean until the next successful Study, and
// the *dom.ParseError is returned.
func (c *Cache) Study(r io.Reader, keep bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.studyLocked(r, keep)
}

// StudyHTML is Study over an in-memory string.
func (c *Cache) StudyHTML(content string, keep bool) error {
	return c.Study(bytes.NewBufferString(content), keep)
}

func (c *Cache) studyLocked(r io.Reader, keep bool) error {
	page, err := dom.Parse(r)
	if err != nil {
		c.page = nil
		c.state = stateNoPage
		c.dirties = 0
		c.keepClean = false
		c.logger.Debug("Study failed; cache holds no page.", zap.Error(err))
		return err
	}

	c.page = page
	c.state = stateTracked
	c.dirties = 0
	c.keepClean = keep
	if len(c.sections) > 0 {
		c.logger.Debug("Study abandons open sections.", zap.Int("depth", len(c.sections)))
	}
	c.sections = c.sections[:0]
	c.logger.Debug("Page studied.", zap.Bool("keep_clean", keep))
	return nil
}

// Dirty records that the live page may have changed. It is a no-op while
// keeping clean.
func (c *Cache) Dirty() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dirtyLocked()
}

func (c *Cache) dirtyLocked() {
	if c.keepClean || c.state == stateNoPage {
		return
	}
	c.dirties++
}

// UndoLastDirty retracts one Dirty call. The count never goes below zero.
func (c *Cache) UndoLastDirty() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == stateTracked && c.dirties > 0 {
		c.dirties--
	}
}

// UndoAllDirties makes the cache clean again. It reports false, and changes
// nothing, when there is no studied page to trust.
func (c *Cache) UndoAllDirties() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.undoAllDirtiesLocked()
}

func (c *Cache) undoAllDirtiesLocked() bool {
	if c.state == stateNoPage || c.page == nil {
		return false
	}
	c.dirties = 0
	return true
}

// Clean reports whether cached queries may be trusted.
func (c *Cache) Clean() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cleanLocked()
}

func (c *Cache) cleanLocked() bool {
	return c.state == stateTracked && c.dirties == 0
}

// KeepClean switches keep-clean mode. Turning it on first undoes all dirties
// and fails (returning false) when there is no page. Turning it off counts as
// a dirtying event and always succeeds.
func (c *Cache) KeepClean(on bool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.keepCleanLocked(on)
}

func (c *Cache) keepCleanLocked(on bool) bool {
	if on {
		if !c.undoAllDirtiesLocked() {
			c.keepClean = false
			return false
		}
		c.keepClean = true
		return true
	}
	c.keepClean = false
	c.dirtyLocked()
	return true
}

// KeepingClean reports whether keep-clean mode is on.
func (c *Cache) KeepingClean() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.keepClean
}

// DirtyCount returns the number of outstanding dirties. loaded is false when
// no page is studied, in which case the count is meaningless.
func (c *Cache) DirtyCount() (count int, loaded bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == stateNoPage {
		return 0, false
	}
	return c.dirties, true
}
