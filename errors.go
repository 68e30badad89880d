package forcelog

import (
	"errors"
	"fmt"
)

var (
	ErrMissingHeader = errors.New("missing header row")
	ErrUnknownTable  = errors.New("unknown table code")
	ErrTooManyRows   = errors.New("row limit exceeded")
)

// DecodeError indicates the input bytes are not valid UTF-8 text
type DecodeError struct {
	Offset int
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode: invalid utf-8 at byte %d", e.Offset)
}

// ParseError indicates the decoded text is not a usable rig log. Line is
// 1-based and counts the header; zero when the error is not tied to a line.
type ParseError struct {
	Line   int
	Column string
	Err    error
}

func (e *ParseError) Error() string {
	switch {
	case e.Line > 0 && e.Column != "":
		return fmt.Sprintf("parse: line %d: column %q: %s", e.Line, e.Column, e.Err)
	case e.Line > 0:
		return fmt.Sprintf("parse: line %d: %s", e.Line, e.Err)
	case e.Column != "":
		return fmt.Sprintf("parse: column %q: %s", e.Column, e.Err)
	}
	return fmt.Sprintf("parse: %s", e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
