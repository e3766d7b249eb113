package entab

import (
	"context"
	"io"

	"github.com/quay/zlog"

	"github.com/bovee/entab/internal/extract"
)

// DefaultBufferSize is the initial allocation for a reader-backed ReadBuffer.
const DefaultBufferSize = 10_000

// ReadBuffer owns a growable byte window fed from an underlying io.Reader (or
// a borrowed in-memory slice) and tracks the bookkeeping parsers need to
// locate record boundaries and report positional errors.
type ReadBuffer struct {
	reader io.Reader
	buf    []byte

	// ReaderPos is the total amount of data read before byte 0 of buf.
	ReaderPos int64
	// RecordPos is the total number of records consumed so far.
	RecordPos int64
	// Consumed is the amount of buf that's been claimed by a completed Parse.
	Consumed int
	// EOF reports whether the underlying reader is exhausted.
	EOF bool
	// end is set once the parser has had one chance to run past EOF.
	end bool
}

// NewReadBufferFromSlice borrows buf directly; EOF is true immediately since
// there is nothing further to read.
func NewReadBufferFromSlice(buf []byte) *ReadBuffer {
	return &ReadBuffer{buf: buf, EOF: true}
}

// NewReadBuffer performs one initial read from r into a buffer of bufSize
// bytes (DefaultBufferSize if bufSize <= 0).
func NewReadBuffer(r io.Reader, bufSize int) (*ReadBuffer, error) {
	if bufSize <= 0 {
		bufSize = DefaultBufferSize
	}
	buf := make([]byte, bufSize)
	n, err := r.Read(buf)
	rb := &ReadBuffer{reader: r, buf: buf[:n]}
	if err == io.EOF {
		rb.EOF = true
		return rb, nil
	}
	if err != nil {
		return nil, newError("entab.NewReadBuffer", KindIO, err.Error(), err)
	}
	return rb, nil
}

// Bytes returns the full retained buffer (consumed and unconsumed bytes).
func (rb *ReadBuffer) Bytes() []byte { return rb.buf }

// Unconsumed returns the portion of buf not yet claimed by Consumed.
func (rb *ReadBuffer) Unconsumed() []byte { return rb.buf[rb.Consumed:] }

// Refill compacts the unconsumed tail to the front of the buffer (doubling
// capacity if nothing was consumed since the last refill) and reads more
// data from the underlying reader. It returns the new unconsumed slice, or
// nil if no more data will ever be available.
func (rb *ReadBuffer) Refill() ([]byte, error) {
	if rb.end {
		return nil, nil
	}
	if rb.EOF {
		rb.end = true
	}

	rb.ReaderPos += int64(rb.Consumed)
	tail := rb.buf[rb.Consumed:]
	n := len(tail)

	capacity := cap(rb.buf)
	if rb.Consumed == 0 {
		capacity *= 2
	}
	newBuf := make([]byte, capacity)
	copy(newBuf, tail)

	if rb.reader != nil {
		read, err := rb.reader.Read(newBuf[n:])
		if err != nil && err != io.EOF {
			zlog.Debug(context.Background()).Str("component", "entab.ReadBuffer.Refill").Err(err).Msg("underlying read failed")
			e := newError("entab.ReadBuffer.Refill", KindIO, err.Error(), err)
			return nil, e.addContext(rb.buf, rb.Consumed, rb.RecordPos, rb.ReaderPos)
		}
		n += read
		if read == 0 || err == io.EOF {
			rb.EOF = true
		}
	} else {
		rb.EOF = true
	}

	rb.buf = newBuf[:n]
	rb.Consumed = 0
	return rb.buf, nil
}

// ParseFunc decides whether one record of type R (sharing persistent state S)
// is fully present in buf, advancing *consumed past it on success.
type ParseFunc[S any] func(buf []byte, eof bool, consumed *int, state *S) (bool, error)

// GetFunc materializes rec's fields from the exact slice Parse claimed.
type GetFunc[S, R any] func(rec *R, buf []byte, state *S) error

// NextRecord drives the refill loop for one record of a format sharing
// persistent decoder state S, using the two-phase Parse/Get contract. It
// returns (nil, nil) at a clean end of stream.
func NextRecord[S, R any](rb *ReadBuffer, state *S, parse ParseFunc[S], get GetFunc[S, R]) (*R, error) {
	consumed := rb.Consumed
	for {
		ok, err := parse(rb.buf[consumed:], rb.EOF, &rb.Consumed, state)
		if err != nil {
			if IsIncomplete(err) && !rb.EOF {
				// fall through to refill below
			} else {
				return nil, toError(err, KindMalformed).addContext(rb.buf, consumed, rb.RecordPos, rb.ReaderPos)
			}
		} else if ok {
			rb.RecordPos++
			break
		} else {
			return nil, nil
		}
		next, err := rb.Refill()
		if err != nil {
			return nil, err
		}
		if next == nil {
			return nil, nil
		}
		consumed = 0
	}
	rec := new(R)
	if err := get(rec, rb.buf[consumed:rb.Consumed], state); err != nil {
		return nil, toError(err, KindMalformed).addContext(rb.buf, consumed, rb.RecordPos, rb.ReaderPos)
	}
	return rec, nil
}

// ReadHeader runs the same Parse/Get contract once with S as its own record
// type, for formats whose state parses and materializes itself at
// construction time (e.g. every fixed-layout binary header in this module).
func ReadHeader[S any](rb *ReadBuffer, state *S, parse ParseFunc[S], get GetFunc[S, S]) error {
	_, err := NextRecord(rb, state, parse, func(rec *S, buf []byte, st *S) error {
		if err := get(rec, buf, st); err != nil {
			return err
		}
		*st = *rec
		return nil
	})
	return err
}

// IsIncomplete reports whether err is a request for more buffered input,
// recognizing both the package's own *Error and the lower-level
// *extract.ErrIncomplete that format decoders build on.
func IsIncomplete(err error) bool {
	switch e := err.(type) {
	case *Error:
		return e.Incomplete()
	case *extract.ErrIncomplete:
		return e != nil
	default:
		return false
	}
}

// toError normalizes any error from a Parse/Get callback into *Error,
// defaulting to kind if it isn't already one.
func toError(err error, kind ErrorKind) *Error {
	if e, ok := err.(*Error); ok {
		if e.Kind == KindIncomplete {
			e.Kind = kind
		}
		return e.clearIncomplete()
	}
	// An *extract.ErrIncomplete reaching here means EOF arrived before the
	// record finished; that is a truncation, not a recoverable request for
	// more input, so it still surfaces under kind (typically KindMalformed).
	return newError("", kind, err.Error(), nil)
}
