// internal/study/section.go
package study

import (
	"fmt"
	"io"

	"go.uber.org/zap"
)

// RefreshFunc fetches the current live markup, typically
// dom.PagePrimitives.GetDOMSnapshot bound to a context.
type RefreshFunc func() (io.Reader, error)

// BeginSection opens a region in which the cache keeps clean. If the cache is
// already clean the current snapshot is reused; otherwise refresh is called
// and the result studied with keep-clean on. Re-studying abandons every
// section opened earlier, so the stack only holds this section afterwards.
// On error nothing is pushed and the cache state reflects the failed study.
func (c *Cache) BeginSection(refresh RefreshFunc) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	prior := c.keepClean
	if c.cleanLocked() {
		c.sections = append(c.sections, prior)
		c.keepClean = true
		c.logger.Debug("Section opened on clean page.", zap.Int("depth", len(c.sections)))
		return nil
	}

	if refresh == nil {
		return fmt.Errorf("cannot open section on a stale page without a refresh function")
	}
	content, err := refresh()
	if err != nil {
		return fmt.Errorf("failed to refresh page for section: %w", err)
	}
	if err := c.studyLocked(content, true); err != nil {
		return fmt.Errorf("failed to study refreshed page: %w", err)
	}
	c.sections = append(c.sections, prior)
	c.logger.Debug("Section opened on refreshed page.", zap.Int("depth", len(c.sections)))
	return nil
}

// EndSection closes the innermost section and restores the keep-clean mode in
// force when it was opened. Unmatched calls behave like KeepClean(false).
// It always returns true.
func (c *Cache) EndSection() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	prior := false
	if n := len(c.sections); n > 0 {
		prior = c.sections[n-1]
		c.sections = c.sections[:n-1]
	} else {
		c.logger.Debug("EndSection without matching BeginSection.")
	}

	c.keepCleanLocked(prior)
	return true
}

// SectionDepth returns the number of open sections.
func (c *Cache) SectionDepth() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sections)
}
