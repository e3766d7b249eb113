package entab

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies an Error into one of a small set of categories
// callers can match against with errors.Is.
type ErrorKind string

// Error implements error so an ErrorKind can be compared with errors.Is.
func (k ErrorKind) Error() string { return string(k) }

// Defined error kinds.
var (
	KindIncomplete  = ErrorKind("incomplete")  // more input needed; never escapes a Reader's public API
	KindMalformed   = ErrorKind("malformed")   // header/record structure fails a length or magic check
	KindDomain      = ErrorKind("domain")      // a value violates a format's domain constraint
	KindUnsupported = ErrorKind("unsupported") // recognized but unimplemented feature or version
	KindEncoding    = ErrorKind("encoding")    // invalid text encoding where valid text was required
	KindIO          = ErrorKind("io")          // the underlying reader returned a non-EOF error
)

// Error is the error domain type for this module.
type Error struct {
	Inner   error
	Kind    ErrorKind
	Message string
	Op      string

	// Offset is the absolute byte position in the input the error occurred at.
	Offset int64
	// RecordIndex is the number of records successfully produced before this error.
	RecordIndex int64

	// incomplete marks this error as a request for more buffered input.
	// It is cleared by clearIncomplete before the error is returned from
	// a Reader's public Next method.
	incomplete bool

	// context is the hex+ASCII dump captured by addContext, rendered lazily in Error().
	context    []byte
	contextPos int
}

var (
	_ error                       = (*Error)(nil)
	_ interface{ Is(error) bool } = (*Error)(nil)
	_ interface{ Unwrap() error } = (*Error)(nil)
)

// newError builds a plain Error wrapping msg (and, optionally, cause).
func newError(op string, kind ErrorKind, msg string, cause error) *Error {
	return &Error{Op: op, Kind: kind, Message: msg, Inner: cause}
}

// incompleteErr marks e as recoverable by refilling the buffer further.
func incompleteErr(msg string) *Error {
	e := newError("", KindIncomplete, msg, nil)
	e.incomplete = true
	return e
}

// Incomplete builds an error format decoders return from Parse to request
// more buffered input; it is only ever fatal if EOF has already been reached.
func Incomplete(msg string) error { return incompleteErr(msg) }

// Malformed builds a KindMalformed error for structural problems (bad magic,
// out-of-range length fields, trailer pointers into the wrong region).
func Malformed(msg string) error { return newError("", KindMalformed, msg, nil) }

// Domain builds a KindDomain error for values that are structurally valid
// but violate a format's domain constraint.
func Domain(msg string) error { return newError("", KindDomain, msg, nil) }

// Unsupported builds a KindUnsupported error for a recognized but
// unimplemented feature or version.
func Unsupported(msg string) error { return newError("", KindUnsupported, msg, nil) }

// Encoding builds a KindEncoding error for invalid text where valid text
// was required.
func Encoding(msg string) error { return newError("", KindEncoding, msg, nil) }

// Incomplete reports whether this error is a request for more buffered input.
func (e *Error) Incomplete() bool { return e != nil && e.incomplete }

// clearIncomplete strips the incomplete sentinel before an error crosses a
// public API boundary; only the buffer refill loop should ever observe it set.
func (e *Error) clearIncomplete() *Error {
	if e == nil {
		return nil
	}
	e.incomplete = false
	return e
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(" ")
	}
	b.WriteString("[")
	switch e.Kind {
	case KindMalformed, KindDomain, KindUnsupported, KindEncoding, KindIO, KindIncomplete:
		b.WriteString(string(e.Kind))
	default:
		b.WriteString("???")
	}
	b.WriteString("]: ")
	if e.Message != "" {
		b.WriteString(e.Message)
	}
	if e.Message != "" && e.Inner != nil {
		b.WriteString(": ")
	}
	if e.Inner != nil {
		b.WriteString(e.Inner.Error())
	}
	if len(e.context) > 0 {
		b.WriteString("\n")
		b.WriteString(renderContext(e.context, e.contextPos, e.Offset))
	}
	return b.String()
}

func (e *Error) Is(kind error) bool {
	return errors.Is(e.Kind, kind)
}

func (e *Error) Unwrap() error { return e.Inner }

// addContext fills the positional fields from a ReadBuffer's current state,
// capturing a 32-byte hex+ASCII window around the failure offset.
func (e *Error) addContext(buf []byte, consumed int, recordPos, readerPos int64) *Error {
	bufLen := len(buf)
	var context []byte
	var contextPos int
	switch {
	case consumed < 16 && bufLen < consumed+16:
		context, contextPos = buf, consumed
	case consumed < 16:
		context, contextPos = buf[:consumed+16], consumed
	case bufLen < consumed+16:
		if consumed < bufLen {
			context, contextPos = buf[consumed-16:], 16
		}
	default:
		context, contextPos = buf[consumed-16:consumed+16], 16
	}
	e.context = append([]byte(nil), context...)
	e.contextPos = contextPos
	e.RecordIndex = recordPos
	e.Offset = readerPos + int64(consumed)
	return e
}

// renderContext reproduces the hex-line/ASCII-line/caret-line dump used by
// the original decoder's error messages.
func renderContext(context []byte, contextPos int, offset int64) string {
	var hex, ascii strings.Builder
	for _, c := range context {
		fmt.Fprintf(&hex, "%02X", c)
		if c > 31 && c < 127 {
			fmt.Fprintf(&ascii, " %c", c)
		} else {
			ascii.WriteString("  ")
		}
	}
	return fmt.Sprintf("%s\n%s\n%*s %d\n", hex.String(), ascii.String(), 2*contextPos+2, "^^", offset)
}
