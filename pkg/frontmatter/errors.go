package frontmatter

import (
	"errors"
	"fmt"
)

// ErrMalformedHeader matches every header parse failure via errors.Is.
var ErrMalformedHeader = errors.New("malformed front matter header")

// MalformedHeaderError describes why a header could not be read. Line is
// 1-based and zero when the decoder did not report a position.
type MalformedHeaderError struct {
	Line   int
	Reason string
	Err    error
}

func (e *MalformedHeaderError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s: line %d: %s", ErrMalformedHeader, e.Line, e.Reason)
	}
	return fmt.Sprintf("%s: %s", ErrMalformedHeader, e.Reason)
}

func (e *MalformedHeaderError) Is(target error) bool {
	return target == ErrMalformedHeader
}

func (e *MalformedHeaderError) Unwrap() error {
	return e.Err
}

func malformed(err error) error {
	var mh *MalformedHeaderError
	if errors.As(err, &mh) {
		return err
	}
	return &MalformedHeaderError{Reason: err.Error(), Err: err}
}
