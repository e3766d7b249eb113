// Package fastq decodes FASTQ sequence+quality records.
package fastq

import (
	"bytes"
	"io"

	"github.com/bovee/entab"
)

// Record is a single FASTQ sequence with its matching quality scores.
type Record struct {
	ID       string
	Sequence []byte
	Quality  []byte
}

// Header names the columns Record's fields map to, in order.
var Header = []string{"id", "sequence", "quality"}

type state struct {
	headerEnd int
	seq       [2]int
	qual      [2]int
}

// Reader decodes a stream of FASTQ records.
type Reader struct {
	rb    *entab.ReadBuffer
	state state
}

func NewReader(r io.Reader) (*Reader, error) {
	return NewReaderSize(r, 0)
}

// NewReaderSize is NewReader with an explicit initial buffer allocation
// (entab.DefaultBufferSize if bufSize <= 0).
func NewReaderSize(r io.Reader, bufSize int) (*Reader, error) {
	rb, err := entab.NewReadBuffer(r, bufSize)
	if err != nil {
		return nil, err
	}
	return &Reader{rb: rb}, nil
}

func NewReaderFromSlice(buf []byte) *Reader {
	return &Reader{rb: entab.NewReadBufferFromSlice(buf)}
}

func (r *Reader) Headers() []string        { return Header }
func (r *Reader) Metadata() entab.Metadata { return entab.Metadata{} }

func (r *Reader) Next() (*Record, error) {
	return entab.NextRecord(r.rb, &r.state, parse, get)
}

func parse(buf []byte, eof bool, consumed *int, st *state) (bool, error) {
	if len(buf) == 0 {
		if eof {
			return false, nil
		}
		return false, entab.Incomplete("no FASTQ record could be parsed")
	}
	if buf[0] != '@' {
		return false, entab.Malformed("valid FASTQ records start with '@'")
	}

	nl := bytes.IndexByte(buf, '\n')
	if nl < 0 {
		return false, entab.Incomplete("record ended prematurely in header")
	}
	if nl > 0 && buf[nl-1] == '\r' {
		st.headerEnd = nl - 1
	} else {
		st.headerEnd = nl
	}
	seqStart := nl + 1

	plus := bytes.IndexByte(buf[seqStart:], '+')
	if plus < 0 {
		return false, entab.Incomplete("record ended prematurely in sequence")
	}
	if plus == 0 || buf[seqStart+plus-1] != '\n' {
		return false, entab.Malformed("unexpected '+' found in sequence")
	}
	var seqEnd int
	if seqStart+plus > 2 && buf[seqStart+plus-2] == '\r' {
		seqEnd = seqStart + plus - 2
	} else {
		seqEnd = seqStart + plus - 1
	}
	st.seq = [2]int{seqStart, seqEnd}
	id2Start := seqStart + plus

	nl2 := bytes.IndexByte(buf[id2Start:], '\n')
	if nl2 < 0 {
		return false, entab.Incomplete("record ended prematurely in second header")
	}
	qualStart := id2Start + nl2 + 1

	qualEnd := qualStart + (st.seq[1] - st.seq[0])
	recEnd := qualEnd + (id2Start - st.seq[1])
	if recEnd > len(buf) && eof {
		recEnd -= id2Start - st.seq[1]
	}
	if recEnd > len(buf) {
		return false, entab.Incomplete("record ended prematurely in quality")
	}
	st.qual = [2]int{qualStart, qualEnd}

	*consumed += recEnd
	return true, nil
}

func get(rec *Record, buf []byte, st *state) error {
	rec.ID = string(buf[1:st.headerEnd])
	rec.Sequence = buf[st.seq[0]:st.seq[1]]
	rec.Quality = buf[st.qual[0]:st.qual[1]]
	return nil
}

// ToRow converts a Record into an entab.Row in Header order.
func ToRow(rec *Record) entab.Row {
	return entab.Row{entab.StringValue(rec.ID), entab.BytesValue(rec.Sequence), entab.BytesValue(rec.Quality)}
}
