package imdb

import (
	"errors"
	"fmt"
)

var (
	// ErrFieldCount indicates a row whose field count differs from the header.
	ErrFieldCount = errors.New("unexpected field count")

	// ErrMissingColumn indicates a header without a required column.
	ErrMissingColumn = errors.New("missing column")

	// ErrDuplicateID indicates an identifier seen twice in a keyed relation.
	ErrDuplicateID = errors.New("duplicate id")
)

// ParseError locates a malformed value in a source file.
type ParseError struct {
	File   string
	Line   int    // 1-based, header is line 1
	Column string // empty when the whole row is at fault
	Err    error
}

func (e *ParseError) Error() string {
	if e.Column == "" {
		return fmt.Sprintf("%s:%d: %v", e.File, e.Line, e.Err)
	}
	return fmt.Sprintf("%s:%d: column %s: %v", e.File, e.Line, e.Column, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }
