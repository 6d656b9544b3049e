// internal/study/section_test.go
package study

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingRefresh serves fixed markup and counts how often it was asked.
type countingRefresh struct {
	content string
	err     error
	calls   int
}

func (r *countingRefresh) fetch() (io.Reader, error) {
	r.calls++
	if r.err != nil {
		return nil, r.err
	}
	return strings.NewReader(r.content), nil
}

func TestBeginSectionOnCleanPage(t *testing.T) {
	c := newStudiedCache(t)
	refresh := &countingRefresh{content: signupPage}

	require.NoError(t, c.BeginSection(refresh.fetch))
	assert.Equal(t, 0, refresh.calls, "a clean page is reused")
	assert.Equal(t, 1, c.SectionDepth())
	assert.True(t, c.KeepingClean())

	c.Dirty()
	assert.True(t, c.Clean(), "dirty is ignored inside a section")

	assert.True(t, c.EndSection())
	assert.Equal(t, 0, c.SectionDepth())
	assert.False(t, c.KeepingClean())
	assert.False(t, c.Clean(), "leaving a section that was not keeping clean dirties the page")
	assert.Equal(t, 1, dirtyCount(t, c))
}

func TestBeginSectionOnDirtyPage(t *testing.T) {
	c := newStudiedCache(t)
	c.Dirty()
	refresh := &countingRefresh{content: `<html><body><input id="fresh"></body></html>`}

	require.NoError(t, c.BeginSection(refresh.fetch))
	assert.Equal(t, 1, refresh.calls)
	assert.True(t, c.Clean())
	assert.True(t, c.KeepingClean())
	assert.Equal(t, 1, c.SectionDepth())

	_, ok := c.Find("id=fresh")
	assert.True(t, ok, "the refreshed page is the one studied")
	_, ok = c.Find("id=first_name")
	assert.False(t, ok)

	c.EndSection()
	assert.False(t, c.KeepingClean())
	assert.False(t, c.Clean())
}

func TestBeginSectionWithoutPage(t *testing.T) {
	c := newTestCache(t)
	refresh := &countingRefresh{content: signupPage}

	require.NoError(t, c.BeginSection(refresh.fetch))
	assert.Equal(t, 1, refresh.calls)
	assert.True(t, c.Clean())
}

func TestRestudyAbandonsOpenSections(t *testing.T) {
	c := newStudiedCache(t)
	refresh := &countingRefresh{content: signupPage}

	require.NoError(t, c.BeginSection(refresh.fetch))
	require.NoError(t, c.BeginSection(refresh.fetch))
	require.Equal(t, 2, c.SectionDepth())

	// An explicit study drops the bookkeeping of both sections.
	require.NoError(t, c.StudyHTML(signupPage, false))
	assert.Equal(t, 0, c.SectionDepth())

	// A section opened on a dirty page re-studies and keeps only itself.
	require.NoError(t, c.BeginSection(refresh.fetch))
	require.NoError(t, c.BeginSection(refresh.fetch))
	c.KeepClean(false)
	require.False(t, c.Clean())
	require.NoError(t, c.BeginSection(refresh.fetch))
	assert.Equal(t, 1, refresh.calls)
	assert.Equal(t, 1, c.SectionDepth())
}

func TestBeginSectionErrors(t *testing.T) {
	t.Run("Refresh failure", func(t *testing.T) {
		c := newStudiedCache(t)
		c.Dirty()
		boom := errors.New("browser went away")
		refresh := &countingRefresh{err: boom}

		err := c.BeginSection(refresh.fetch)
		require.Error(t, err)
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, 0, c.SectionDepth())
		assert.Equal(t, 1, dirtyCount(t, c), "state is untouched when nothing could be fetched")
	})

	t.Run("Unparseable refresh", func(t *testing.T) {
		c := newStudiedCache(t)
		c.Dirty()
		refresh := &countingRefresh{content: "<div"}

		require.Error(t, c.BeginSection(refresh.fetch))
		assert.Equal(t, 0, c.SectionDepth())
		assert.False(t, c.Clean())
		assert.False(t, c.UndoAllDirties())
	})

	t.Run("Missing refresh on stale page", func(t *testing.T) {
		c := newStudiedCache(t)
		c.Dirty()
		require.Error(t, c.BeginSection(nil))
		assert.Equal(t, 0, c.SectionDepth())
	})
}

// TestSectionsAreBalanced checks that after N well-nested pairs keep-clean
// mode is whatever it was before the first BeginSection.
func TestSectionsAreBalanced(t *testing.T) {
	for _, keep := range []bool{false, true} {
		for depth := 1; depth <= 5; depth++ {
			c := newStudiedCache(t)
			if keep {
				require.True(t, c.KeepClean(true))
			}
			before := c.KeepingClean()
			refresh := &countingRefresh{content: signupPage}

			for i := 0; i < depth; i++ {
				require.NoError(t, c.BeginSection(refresh.fetch))
			}
			for i := 0; i < depth; i++ {
				require.True(t, c.EndSection())
			}

			assert.Equal(t, before, c.KeepingClean(), "keep=%v depth=%d", keep, depth)
			assert.Equal(t, 0, c.SectionDepth())
			assert.Equal(t, 0, refresh.calls)
		}
	}
}

// TestExtraEndSectionMatchesKeepCleanOff compares an unmatched EndSection with
// KeepClean(false) from identical starting states.
func TestExtraEndSectionMatchesKeepCleanOff(t *testing.T) {
	setups := map[string]func(*Cache){
		"clean":         func(*Cache) {},
		"dirty":         func(c *Cache) { c.Dirty(); c.Dirty() },
		"keeping clean": func(c *Cache) { c.KeepClean(true) },
	}

	for name, setup := range setups {
		t.Run(name, func(t *testing.T) {
			a, b := newStudiedCache(t), newStudiedCache(t)
			setup(a)
			setup(b)

			assert.True(t, a.EndSection())
			assert.True(t, b.KeepClean(false))

			assert.Equal(t, b.KeepingClean(), a.KeepingClean())
			assert.Equal(t, b.Clean(), a.Clean())
			assert.Equal(t, dirtyCount(t, b), dirtyCount(t, a))
		})
	}

	t.Run("no page", func(t *testing.T) {
		c := newTestCache(t)
		assert.True(t, c.EndSection())
		assert.False(t, c.Clean())
		assert.False(t, c.KeepingClean())
	})
}
