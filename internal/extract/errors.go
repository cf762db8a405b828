package extract

import "fmt"

// ParseError reports HTML that could not be turned into a document tree.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string { return fmt.Sprintf("parse html: %v", e.Err) }

func (e *ParseError) Unwrap() error { return e.Err }
