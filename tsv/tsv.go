package tsv

import (
	"bytes"
	"io"

	"github.com/bovee/entab"
	"github.com/bovee/entab/internal/extract"
)

// Record is one row of delimiter-separated values, already coerced to
// their inferred column types.
type Record struct {
	Values entab.Row
}

// state carries the sniffed decode parameters plus the header row itself,
// both resolved once at construction time and held fixed for every row.
type state struct {
	delimChar       byte
	quoteChar       byte
	skipLines       int
	types           []fieldType
	headers         []string
	headerLineStart int
}

// Reader decodes a stream of delimiter-separated rows whose delimiter,
// quote character, leading comment lines, and column types were inferred
// from a buffered sample of the data.
type Reader struct {
	rb    *entab.ReadBuffer
	state state
}

// NewReader wraps an io.Reader as a TSV/CSV-family decoder, sniffing
// whatever of params is left unset from a sample of the stream.
func NewReader(r io.Reader, params Params) (*Reader, error) {
	return NewReaderSize(r, params, 0)
}

// NewReaderSize is NewReader with an explicit initial buffer allocation
// (entab.DefaultBufferSize if bufSize <= 0).
func NewReaderSize(r io.Reader, params Params, bufSize int) (*Reader, error) {
	rb, err := entab.NewReadBuffer(r, bufSize)
	if err != nil {
		return nil, err
	}
	if err := fillSample(rb); err != nil {
		return nil, err
	}

	sample := rb.Bytes()
	delimChar, quoteChar, skipLines := sniffParams(sample, params)
	types, err := sniffTypes(sample, delimChar, quoteChar, skipLines)
	if err != nil {
		return nil, err
	}

	st := &state{delimChar: delimChar, quoteChar: quoteChar, skipLines: skipLines, types: types}
	if err := entab.ReadHeader(rb, st, headerParse, headerGet); err != nil {
		return nil, err
	}
	return &Reader{rb: rb, state: *st}, nil
}

// fillSample grows rb's buffer until it holds at least sampleSize bytes or
// the underlying reader is exhausted, so the delimiter/quote/type sniffing
// passes see a representative slice of the file up front.
func fillSample(rb *entab.ReadBuffer) error {
	for !rb.EOF && len(rb.Bytes()) < sampleSize {
		next, err := rb.Refill()
		if err != nil {
			return err
		}
		if next == nil {
			break
		}
	}
	return nil
}

// Headers reports the column names read from the (possibly comment-line
// prefixed) header row.
func (r *Reader) Headers() []string { return r.state.headers }

// Metadata is empty for TSV (the format carries no run-level properties).
func (r *Reader) Metadata() entab.Metadata { return entab.Metadata{} }

// Next returns the next record, or (nil, nil) at a clean end of stream.
func (r *Reader) Next() (*Record, error) {
	return entab.NextRecord(r.rb, &r.state, recordParse, recordGet)
}

// headerParse skips st.skipLines leading comment lines, then claims the
// header row itself.
func headerParse(buf []byte, eof bool, consumed *int, st *state) (bool, error) {
	con := 0
	for i := 0; i < st.skipLines; i++ {
		_, n, ok, err := extract.Line(buf[con:], eof)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, entab.Malformed("could not read headers from TSV")
		}
		con += n
	}
	_, n, ok, err := extract.Line(buf[con:], eof)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, entab.Malformed("could not read headers from TSV")
	}
	st.headerLineStart = con
	con += n
	*consumed += con
	return true, nil
}

func headerGet(rec *state, buf []byte, st *state) error {
	*rec = *st
	line := bytes.TrimRight(buf[st.headerLineStart:], "\r\n")
	fields, err := splitLine(line, st.delimChar, st.quoteChar)
	if err != nil {
		return err
	}
	rec.headers = fields
	return nil
}

func recordParse(buf []byte, eof bool, consumed *int, st *state) (bool, error) {
	_, n, ok, err := extract.Line(buf, eof)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}
	*consumed += n
	return true, nil
}

func recordGet(rec *Record, buf []byte, st *state) error {
	line := bytes.TrimRight(buf, "\r\n")
	fields, err := splitLine(line, st.delimChar, st.quoteChar)
	if err != nil {
		return err
	}
	if len(fields) != len(st.headers) {
		return entab.Malformed("line had a bad number of records")
	}
	rec.Values = make(entab.Row, len(fields))
	for i, f := range fields {
		var ty fieldType
		if i < len(st.types) {
			ty = st.types[i]
		}
		rec.Values[i] = ty.coerce(f)
	}
	return nil
}

// ToRow returns rec's already-coerced values.
func (r *Record) ToRow() entab.Row { return r.Values }
