// Package fasta decodes FASTA sequence records.
package fasta

import (
	"bytes"
	"io"

	"github.com/bovee/entab"
)

// Record is a single FASTA sequence.
type Record struct {
	ID       string
	Sequence []byte
}

// Header names the columns Record's fields map to, in order.
var Header = []string{"id", "sequence"}

type state struct {
	headerEnd int
	seqStart  int
	seqEnd    int
}

// Reader decodes a stream of FASTA records.
type Reader struct {
	rb    *entab.ReadBuffer
	state state
}

// NewReader wraps an io.Reader as a FASTA decoder.
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

// NewReaderFromSlice wraps an in-memory buffer as a FASTA decoder with no
// allocation for the borrowed input.
func NewReaderFromSlice(buf []byte) *Reader {
	return &Reader{rb: entab.NewReadBufferFromSlice(buf)}
}

// Headers reports the fixed column names for FASTA records.
func (r *Reader) Headers() []string { return Header }

// Metadata is empty for FASTA (the format carries no run-level properties).
func (r *Reader) Metadata() entab.Metadata { return entab.Metadata{} }

// Next returns the next record, or (nil, nil) at a clean end of stream.
func (r *Reader) Next() (*Record, error) {
	return entab.NextRecord(r.rb, &r.state, parse, get)
}

func parse(buf []byte, eof bool, consumed *int, st *state) (bool, error) {
	if !eof && len(buf) == 0 {
		return false, entab.Incomplete("no FASTA record could be parsed")
	}
	if eof && len(buf) == 0 {
		return false, nil
	}
	if buf[0] != '>' {
		return false, entab.Malformed("valid FASTA records start with '>'")
	}

	nl := bytes.IndexByte(buf, '\n')
	if nl < 0 {
		return false, entab.Incomplete("incomplete FASTA header")
	}
	var seqStart int
	if nl > 0 && buf[nl-1] == '\r' {
		st.headerEnd = nl - 1
	} else {
		st.headerEnd = nl
	}
	seqStart = nl + 1

	rest := buf[seqStart:]
	gt := bytes.IndexByte(rest, '>')
	switch {
	case gt >= 0:
		if gt == 0 || seqStart+gt-1 >= len(buf) || buf[seqStart+gt-1] != '\n' {
			return false, entab.Malformed("unexpected '>' found")
		}
		var seqEnd int
		if seqStart+gt-2 >= 0 && buf[seqStart+gt-2] == '\r' {
			seqEnd = seqStart + gt - 2
		} else {
			seqEnd = seqStart + gt - 1
		}
		st.seqStart, st.seqEnd = seqStart, seqEnd
		*consumed += seqStart + gt
	case eof:
		st.seqStart, st.seqEnd = seqStart, len(buf)
		*consumed += len(buf)
	default:
		return false, entab.Incomplete("sequence needs more data")
	}
	return true, nil
}

func get(rec *Record, buf []byte, st *state) error {
	rec.ID = string(buf[1:st.headerEnd])
	raw := buf[st.seqStart:st.seqEnd]
	if bytes.IndexByte(raw, '\n') < 0 {
		rec.Sequence = raw
		return nil
	}
	out := make([]byte, 0, len(raw))
	start := 0
	for {
		pos := bytes.IndexByte(raw[start:], '\n')
		if pos < 0 {
			out = append(out, raw[start:]...)
			break
		}
		pos += start
		end := pos
		if end >= 1 && raw[end-1] == '\r' {
			end--
		}
		out = append(out, raw[start:end]...)
		start = pos + 1
	}
	rec.Sequence = out
	return nil
}

// ToRow converts a Record into an entab.Row in Header order.
func ToRow(rec *Record) entab.Row {
	return entab.Row{entab.StringValue(rec.ID), entab.BytesValue(rec.Sequence)}
}
