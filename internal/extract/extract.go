// Package extract provides the small set of byte-slice primitive readers
// every format decoder in entab builds its Parse/Get pair out of: fixed
// width integers/floats of a chosen endianness, newline-terminated lines,
// pattern seeks, and byte skips.
package extract

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
)

// Endian selects which byte order fixed-width extraction uses.
type Endian int

const (
	Big Endian = iota
	Little
)

// ErrIncomplete is returned (wrapped with a message) by every extractor that
// needs more buffered bytes to make progress.
type ErrIncomplete struct{ Msg string }

func (e *ErrIncomplete) Error() string { return e.Msg }

func incomplete(format string, args ...any) error {
	return &ErrIncomplete{Msg: fmt.Sprintf(format, args...)}
}

// Uint16, Uint32, Uint64, Int16, Int32, Int64, Float32, Float64 read a
// fixed-width value from the front of buf in the given byte order. They
// return an incomplete error if buf is too short.

func Uint16(buf []byte, e Endian) (uint16, error) {
	if len(buf) < 2 {
		return 0, incomplete("could not read uint16")
	}
	if e == Big {
		return binary.BigEndian.Uint16(buf), nil
	}
	return binary.LittleEndian.Uint16(buf), nil
}

func Int16(buf []byte, e Endian) (int16, error) {
	v, err := Uint16(buf, e)
	return int16(v), err
}

func Uint32(buf []byte, e Endian) (uint32, error) {
	if len(buf) < 4 {
		return 0, incomplete("could not read uint32")
	}
	if e == Big {
		return binary.BigEndian.Uint32(buf), nil
	}
	return binary.LittleEndian.Uint32(buf), nil
}

func Int32(buf []byte, e Endian) (int32, error) {
	v, err := Uint32(buf, e)
	return int32(v), err
}

func Uint64(buf []byte, e Endian) (uint64, error) {
	if len(buf) < 8 {
		return 0, incomplete("could not read uint64")
	}
	if e == Big {
		return binary.BigEndian.Uint64(buf), nil
	}
	return binary.LittleEndian.Uint64(buf), nil
}

func Int64(buf []byte, e Endian) (int64, error) {
	v, err := Uint64(buf, e)
	return int64(v), err
}

func Float32(buf []byte, e Endian) (float32, error) {
	v, err := Uint32(buf, e)
	return math.Float32frombits(v), err
}

func Float64(buf []byte, e Endian) (float64, error) {
	v, err := Uint64(buf, e)
	return math.Float64frombits(v), err
}

// Slice requires at least n bytes and returns the leading n-byte slice
// (borrowed from buf, not copied).
func Slice(buf []byte, n int) ([]byte, error) {
	if len(buf) < n {
		return nil, incomplete("could not extract a slice of size %d", n)
	}
	return buf[:n], nil
}

// Line finds the next '\n'-terminated (optionally '\r'-preceded) line.
// It returns the line content (without the terminator) and the number of
// bytes consumed including the terminator. At eof with no trailing newline
// the whole remainder is returned as the line with ok=true; ok is false
// when buf is empty at eof (clean end of stream).
func Line(buf []byte, eof bool) (line []byte, consumed int, ok bool, err error) {
	if len(buf) == 0 {
		if eof {
			return nil, 0, false, nil
		}
		return nil, 0, false, incomplete("could not extract a new line")
	}
	idx := bytes.IndexByte(buf, '\n')
	if idx >= 0 {
		end := idx
		if end > 0 && buf[end-1] == '\r' {
			end--
		}
		return buf[:end], idx + 1, true, nil
	}
	if eof {
		return buf, len(buf), true, nil
	}
	return nil, 0, false, incomplete("could not extract a new line")
}

// SeekPattern advances past all bytes up to (not including) the next
// occurrence of pat, returning the number of bytes to skip and whether pat
// was found. found=false at eof means the pattern never appears.
func SeekPattern(buf []byte, pat []byte, eof bool) (skip int, found bool, err error) {
	idx := bytes.Index(buf, pat)
	if idx >= 0 {
		return idx, true, nil
	}
	if eof {
		return len(buf), false, nil
	}
	return 0, false, incomplete("could not find %q", pat)
}

// Skip requires n more bytes to exist in buf without interpreting them.
func Skip(buf []byte, n int) error {
	if len(buf) < n {
		return incomplete("buffer terminated before %d bytes could be skipped", n)
	}
	return nil
}
