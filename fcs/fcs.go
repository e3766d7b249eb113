package fcs

import (
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/bovee/entab"
	"github.com/bovee/entab/internal/extract"
)

// Record is a single flow cytometry event: one value per parameter
// declared in the current segment's TEXT header.
type Record struct {
	Values entab.Row
}

// ToRow returns rec's already-typed values.
func (r *Record) ToRow() entab.Row { return r.Values }

// state is built once per TEXT segment (the first one at construction
// time, and again transparently whenever $NEXTDATA chains to another).
type state struct {
	params      []fcsParam
	endian      extract.Endian
	dataType    byte
	nextData    int // 0 means no further segment
	nEventsLeft int
	metadata    entab.Metadata
}

// Reader decodes a stream of FCS events, following $NEXTDATA-linked
// segments transparently.
type Reader struct {
	rb    *entab.ReadBuffer
	state state
}

// NewReader wraps an io.Reader as an FCS decoder.
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
	st := &state{}
	if err := entab.ReadHeader(rb, st, headerParse, headerGet); err != nil {
		return nil, err
	}
	return &Reader{rb: rb, state: *st}, nil
}

// Headers reports the short names of the current segment's parameters;
// this can change after a $NEXTDATA chain switches to a new segment.
func (r *Reader) Headers() []string {
	headers := make([]string, len(r.state.params))
	for i, p := range r.state.params {
		headers[i] = p.shortName
	}
	return headers
}

// Metadata reports the current segment's run-level properties.
func (r *Reader) Metadata() entab.Metadata { return r.state.metadata }

// Next returns the next event, or (nil, nil) once the file (and any
// $NEXTDATA-linked segments) is exhausted.
func (r *Reader) Next() (*Record, error) {
	return entab.NextRecord(r.rb, &r.state, recordParse, recordGet)
}

// headerParse reads the 58-byte offset preamble and scans the TEXT
// segment only far enough to resolve $BEGINDATA/$ENDDATA overrides,
// requiring the whole TEXT segment (and the start of the DATA segment)
// to be buffered before reporting success.
func headerParse(buf []byte, eof bool, consumed *int, _ *state) (bool, error) {
	if len(buf) < 58 {
		if eof {
			return false, entab.Malformed("FCS file has invalid header")
		}
		return false, entab.Incomplete("FCS preamble not fully buffered")
	}
	if string(buf[:3]) != "FCS" {
		return false, entab.Malformed("FCS file has invalid header")
	}

	textStart, err := parseAsciiUint(buf[10:18])
	if err != nil {
		return false, entab.Malformed("FCS file has invalid header")
	}
	textEnd, err := parseAsciiUint(buf[18:26])
	if err != nil {
		return false, entab.Malformed("FCS file has invalid header")
	}
	if textEnd < textStart {
		return false, entab.Malformed("invalid end from text segment")
	}
	dataStart, err := parseAsciiUint(buf[26:34])
	if err != nil {
		return false, entab.Malformed("FCS file has invalid header")
	}
	dataEnd, err := parseAsciiUint(buf[34:42])
	if err != nil {
		return false, entab.Malformed("FCS file has invalid header")
	}
	if textStart < 58 {
		return false, entab.Malformed("bad FCS text start offset")
	}

	con := 42 + 16 + int(textStart-58) // analysis_start/analysis_end, then padding to textStart
	if len(buf) < con+1 {
		if eof {
			return false, entab.Malformed("FCS file truncated before its TEXT segment")
		}
		return false, entab.Incomplete("FCS preamble not fully buffered")
	}
	delim := buf[con]
	con++
	if uint64(con) > textEnd {
		return false, entab.Malformed("FCS TEXT segment starts past its own end")
	}
	if uint64(len(buf)) < textEnd {
		if eof {
			return false, entab.Malformed("FCS file truncated within its TEXT segment")
		}
		return false, entab.Incomplete("FCS TEXT segment not fully buffered")
	}

	pos := con
	for {
		key, value, n, ok := nextKV(buf[pos:], delim, int(textEnd)-pos-1)
		if !ok {
			break
		}
		pos += n
		switch strings.ToUpper(key) {
		case "$BEGINDATA":
			if v, err := parseTrimmedUint(value); err == nil && v > 0 && dataStart == 0 {
				dataStart = v
			}
		case "$ENDDATA":
			if v, err := parseTrimmedUint(value); err == nil && v > 0 && dataEnd == 0 {
				dataEnd = v
			}
		}
	}
	con = pos

	if dataEnd < dataStart {
		return false, entab.Malformed("invalid end from data segment")
	}
	if dataStart < textEnd {
		return false, entab.Malformed("data segment can not start before text segment ends")
	}
	if dataStart < uint64(con) {
		return false, entab.Malformed("ran out of data before data segment started")
	}
	if uint64(len(buf)) < dataStart {
		if eof {
			return false, entab.Malformed("FCS file truncated before its DATA segment")
		}
		return false, entab.Incomplete("FCS DATA segment start not fully buffered")
	}

	*consumed += int(dataStart)
	return true, nil
}

func headerGet(rec *state, buf []byte, _ *state) error {
	textStart, _ := parseAsciiUint(buf[10:18])
	textEnd, _ := parseAsciiUint(buf[18:26])
	dataStart, _ := parseAsciiUint(buf[26:34])
	dataEnd, _ := parseAsciiUint(buf[34:42])

	con := 42 + 16 + int(textStart-58)
	delim := buf[con]
	con++

	var params []fcsParam
	endian := endianLittle
	dataType := byte('F')
	nextData := 0
	nEventsLeft := 0
	metadata := entab.Metadata{}
	dateVal := time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
	btim := ""

	pos := con
	for {
		key, value, n, ok := nextKV(buf[pos:], delim, int(textEnd)-pos-1)
		if !ok {
			break
		}
		pos += n
		key = strings.ToUpper(key)

		if idx, field, isParam := paramIndex(key); isParam {
			if idx >= len(params) {
				grown := make([]fcsParam, idx+1)
				copy(grown, params)
				params = grown
			}
			switch field {
			case 'B':
				if value == "*" {
					params[idx].size = -1
				} else if v, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
					params[idx].size = v
				}
			case 'N':
				params[idx].shortName = value
			case 'R':
				if v, err := strconv.ParseFloat(strings.TrimSpace(value), 64); err == nil {
					params[idx].rangeVal = uint64(v) // ceil: FCS ranges are whole
					if v != float64(uint64(v)) {
						params[idx].rangeVal++
					}
				}
			case 'S':
				params[idx].longName = value
			}
			continue
		}

		switch key {
		case "$BEGINDATA":
			if v, err := parseTrimmedUint(value); err == nil && v > 0 && dataStart == 0 {
				dataStart = v
			}
		case "$ENDDATA":
			if v, err := parseTrimmedUint(value); err == nil && v > 0 && dataEnd == 0 {
				dataEnd = v
			}
		case "$NEXTDATA":
			if v, err := strconv.Atoi(strings.TrimSpace(value)); err == nil && v > 0 {
				nextData = v
			}
		case "$BYTEORD":
			if value == "4,3,2,1" || value == "2,1" {
				endian = endianBig
			}
		case "$DATATYPE":
			switch value {
			case "A", "D", "F", "I":
				dataType = value[0]
			default:
				return entab.Malformed("unknown FCS $DATATYPE " + value)
			}
		case "$MODE":
			switch value {
			case "L":
			case "C", "U":
				return entab.Unsupported("FCS histograms not yet supported ($MODE=C/U)")
			default:
				return entab.Malformed("unknown FCS $MODE " + value)
			}
		case "$TOT":
			v, err := strconv.Atoi(strings.TrimSpace(value))
			if err != nil {
				return entab.Malformed("invalid FCS $TOT")
			}
			nEventsLeft = v
		case "$BTIM":
			btim = btimClock(value)
		case "$CELLS":
			metadata["specimen"] = entab.StringValue(value)
		case "$DATE":
			for _, layout := range dateLayouts {
				if d, err := time.Parse(layout, strings.TrimSpace(value)); err == nil {
					dateVal = d
					break
				}
			}
		case "$INST":
			metadata["instrument"] = entab.StringValue(value)
		case "$OP":
			metadata["operator"] = entab.StringValue(value)
		case "$PROJ":
			metadata["project"] = entab.StringValue(value)
		case "$SMNO":
			metadata["specimen_number"] = entab.StringValue(value)
		case "$SRC":
			metadata["specimen_source"] = entab.StringValue(value)
		case "$PAR":
			n, err := strconv.Atoi(strings.TrimSpace(value))
			if err != nil {
				return entab.Malformed("invalid FCS $PAR")
			}
			if n < len(params) {
				return entab.Malformed("declared number of params is less than the observed number of params")
			}
			if n != len(params) {
				grown := make([]fcsParam, n)
				copy(grown, params)
				params = grown
			}
		}
	}

	metadata["date"] = entab.TimeValue(combineDate(dateVal, btim))

	for _, p := range params {
		switch dataType {
		case 'D':
			if p.size != 64 {
				return entab.Malformed("param size must be 64 for $DATATYPE=D")
			}
		case 'F':
			if p.size != 32 {
				return entab.Malformed("param size must be 32 for $DATATYPE=F")
			}
		}
	}

	rec.params = params
	rec.endian = endian
	rec.dataType = dataType
	rec.nextData = nextData
	rec.nEventsLeft = nEventsLeft
	rec.metadata = metadata
	return nil
}

// eventSize returns the byte width of one event under st's current
// parameter table and data type.
func eventSize(st *state) (int, error) {
	size := 0
	for _, p := range st.params {
		switch {
		case st.dataType == 'A' && p.size > 0:
			size += p.size
		case st.dataType == 'A':
			return 0, entab.Unsupported("delimited-ASCII number datatypes are not yet supported")
		case st.dataType == 'D':
			size += 8
		case st.dataType == 'F':
			size += 4
		case st.dataType == 'I':
			if p.size%8 != 0 {
				return 0, entab.Malformed("unknown FCS param size")
			}
			size += p.size / 8
		}
	}
	return size, nil
}

// recordParse claims exactly one event's worth of bytes, transparently
// switching to the next $NEXTDATA-linked segment's header first if the
// current segment's event count has been exhausted.
func recordParse(buf []byte, eof bool, consumed *int, st *state) (bool, error) {
	if st.nEventsLeft == 0 {
		if st.nextData <= 0 {
			return false, nil
		}
		gap := st.nextData - *consumed
		if gap < 0 {
			return false, entab.Malformed("$NEXTDATA points backwards")
		}
		if err := extract.Skip(buf, gap); err != nil {
			return false, err
		}
		next := &state{}
		hdrConsumed := 0
		ok, err := headerParse(buf[gap:], eof, &hdrConsumed, next)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
		if err := headerGet(next, buf[gap:gap+hdrConsumed], next); err != nil {
			return false, err
		}
		*st = *next
		*consumed += gap + hdrConsumed
		buf = buf[gap+hdrConsumed:]
	}

	size, err := eventSize(st)
	if err != nil {
		return false, err
	}
	if size > len(buf) {
		return false, entab.Incomplete("FCS record was incomplete")
	}
	st.nEventsLeft--
	*consumed += size
	return true, nil
}

func recordGet(rec *Record, buf []byte, st *state) error {
	// After a $NEXTDATA switch the claimed slice also holds the gap and the
	// new segment's header; the event itself is always its last bytes.
	if size, err := eventSize(st); err == nil && size <= len(buf) {
		buf = buf[len(buf)-size:]
	}
	rec.Values = make(entab.Row, len(st.params))
	con := 0
	for i, p := range st.params {
		switch {
		case st.dataType == 'A' && p.size > 0:
			field, err := extract.Slice(buf[con:], p.size)
			if err != nil {
				return err
			}
			con += p.size
			v, err := strconv.ParseFloat(strings.TrimSpace(string(field)), 64)
			if err != nil {
				return entab.Malformed("invalid FCS ASCII numeric field")
			}
			rec.Values[i] = entab.FloatValue(v)
		case st.dataType == 'A':
			return entab.Unsupported("delimited-ASCII number datatypes are not yet supported")
		case st.dataType == 'D':
			v, err := extract.Float64(buf[con:], st.endian)
			if err != nil {
				return err
			}
			con += 8
			rec.Values[i] = entab.FloatValue(v)
		case st.dataType == 'F':
			v, err := extract.Float32(buf[con:], st.endian)
			if err != nil {
				return err
			}
			con += 4
			rec.Values[i] = entab.FloatValue(float64(v))
		case st.dataType == 'I':
			var value uint64
			switch p.size {
			case 8:
				if con >= len(buf) {
					return entab.Incomplete("FCS record was incomplete")
				}
				value = uint64(buf[con])
				con++
			case 16:
				v, err := extract.Uint16(buf[con:], st.endian)
				if err != nil {
					return err
				}
				con += 2
				value = uint64(v)
			case 32:
				v, err := extract.Uint32(buf[con:], st.endian)
				if err != nil {
					return err
				}
				con += 4
				value = uint64(v)
			case 64:
				v, err := extract.Uint64(buf[con:], st.endian)
				if err != nil {
					return err
				}
				con += 8
				value = v
			default:
				return entab.Malformed("unknown FCS param size")
			}
			if value > p.rangeVal && p.rangeVal > 0 {
				if p.rangeVal&(p.rangeVal-1) != 0 {
					return entab.Domain("only ranges of power 2 can mask values")
				}
				value &= p.rangeVal - 1
			}
			rec.Values[i] = entab.Uint64Value(value)
		}
	}
	return nil
}
