// internal/browser/dom/errors.go
package dom

import "fmt"

// ParseError reports markup that could not be turned into a snapshot.
// Callers classify it with errors.As; a study that fails with a ParseError
// leaves no snapshot behind.
type ParseError struct {
	Reason string
	// Offset is the byte offset where parsing gave up, or -1 when unknown.
	Offset int
	Err    error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	msg := "failed to parse page: " + e.Reason
	if e.Offset >= 0 {
		msg = fmt.Sprintf("%s (at byte %d)", msg, e.Offset)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap provides the underlying error for use with errors.Is/As.
func (e *ParseError) Unwrap() error {
	return e.Err
}

func newParseError(reason string, offset int, err error) *ParseError {
	return &ParseError{Reason: reason, Offset: offset, Err: err}
}
