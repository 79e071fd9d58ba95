package obj

import (
	"errors"
	"fmt"
	"unicode/utf8"
)

// ErrDecode is returned (wrapped in a *DecodeError) when geometry bytes are
// not valid UTF-8 text
var ErrDecode = errors.New("obj: geometry is not valid UTF-8")

// DecodeError reports the byte offset of the first invalid UTF-8 sequence
type DecodeError struct {
	Offset int
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("obj: invalid UTF-8 at byte %d", e.Offset)
}

func (e *DecodeError) Unwrap() error {
	return ErrDecode
}

// MalformedReference describes a face token whose leading index is not a
// decimal integer. The token is copied to the output unchanged.
type MalformedReference struct {
	Line  int // 1-based line number in the source
	Token string
}

func (m MalformedReference) String() string {
	return fmt.Sprintf("line %d: malformed vertex reference %q", m.Line, m.Token)
}

// decode validates src as UTF-8 and returns it as a string
func decode(src []byte) (string, error) {
	if utf8.Valid(src) {
		return string(src), nil
	}

	offset := 0
	for offset < len(src) {
		r, size := utf8.DecodeRune(src[offset:])
		if r == utf8.RuneError && size <= 1 {
			break
		}
		offset += size
	}
	return "", &DecodeError{Offset: offset}
}
