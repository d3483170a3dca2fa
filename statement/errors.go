package statement

import "fmt"

// ParseError reports malformed input. Offset is the number of statements
// decoded before the failure.
type ParseError struct {
	Offset int
	err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse statement %d: %v", e.Offset+1, e.err)
}

func (e *ParseError) Unwrap() error {
	return e.err
}

// NewParseError wraps a syntax error as a ParseError.
func NewParseError(offset int, err error) error {
	return &ParseError{Offset: offset, err: err}
}
