// internal/browser/session/context_utils.go
package session

import (
	"context"
)

// CombineContext returns a context carrying the values of primary that is
// canceled when either primary or secondary is done. Browser actions need the
// tab's values from the session context and the deadline of the caller's.
func CombineContext(primary, secondary context.Context) (context.Context, context.CancelFunc) {
	combined, cancel := context.WithCancel(primary)
	if secondary == nil {
		return combined, cancel
	}

	stop := context.AfterFunc(secondary, cancel)
	return combined, func() {
		stop()
		cancel()
	}
}
