// internal/study/helpers_test.go
package study

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const signupPage = `<html><head><title>Signup</title></head><body>
<form id="signup" action="/submit">
	<input id="first_name" name="fname" type="text">
	<input name="lname" type="text">
	<input name="color" value="red" type="radio">
	<input name="color" value="blue" type="radio">
	<input id="q" type="search">
	<input name="q" type="hidden">
	<input name="full name" type="text">
</form>
<a name="x" href="/one">One</a>
<a name="x" href="/two">Two</a>
<a id="signin" href="/login">  Sign
	in </a>
<a href="/padded"> padded</a>
<p>plain paragraph</p>
</body></html>`

// newTestCache returns a cache with a zaptest logger and nothing studied.
func newTestCache(t *testing.T, opts ...Option) *Cache {
	t.Helper()
	return New(zaptest.NewLogger(t), opts...)
}

// newStudiedCache returns a clean cache holding signupPage.
func newStudiedCache(t *testing.T, opts ...Option) *Cache {
	t.Helper()
	c := newTestCache(t, opts...)
	require.NoError(t, c.StudyHTML(signupPage, false))
	require.True(t, c.Clean())
	return c
}

func dirtyCount(t *testing.T, c *Cache) int {
	t.Helper()
	count, loaded := c.DirtyCount()
	require.True(t, loaded, "expected a studied page")
	return count
}
