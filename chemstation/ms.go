package chemstation

import (
	"io"
	"math"

	"github.com/bovee/entab"
	"github.com/bovee/entab/internal/extract"
)

// MsRecord is a single time/mz/intensity triple from a mass spec trace.
type MsRecord struct {
	Time      float64
	Mz        float64
	Intensity float64
}

// MsHeader names the columns MsRecord's fields map to, in order.
var MsHeader = []string{"time", "mz", "intensity"}

type msState struct {
	nScansLeft int
	nMzsLeft   int
	curTime    float64
	curMz      float64
	curIntensi float64
	metadata   Metadata
}

// MsReader decodes an Agilent Chemstation mass spec trace.
type MsReader struct {
	rb    *entab.ReadBuffer
	state msState
}

func NewMsReader(r io.Reader) (*MsReader, error) {
	return NewMsReaderSize(r, 0)
}

// NewMsReaderSize is NewMsReader with an explicit initial buffer
// allocation (entab.DefaultBufferSize if bufSize <= 0).
func NewMsReaderSize(r io.Reader, bufSize int) (*MsReader, error) {
	rb, err := entab.NewReadBuffer(r, bufSize)
	if err != nil {
		return nil, err
	}
	rd := &MsReader{rb: rb}
	if err := entab.ReadHeader(rb, &rd.state, msHeaderParse, msHeaderGet); err != nil {
		return nil, err
	}
	return rd, nil
}

func (r *MsReader) Headers() []string        { return MsHeader }
func (r *MsReader) Metadata() entab.Metadata { return metadataMap(r.state.metadata) }

func (r *MsReader) Next() (*MsRecord, error) {
	return entab.NextRecord(r.rb, &r.state, msParse, msGet)
}

func msHeaderParse(buf []byte, eof bool, consumed *int, _ *msState) (bool, error) {
	n, err := readAgilentHeader(buf, true)
	if err != nil {
		return false, err
	}
	*consumed += n
	return true, nil
}

func msHeaderGet(st *msState, buf []byte, _ *msState) error {
	metadata, err := parseMetadata(buf)
	if err != nil {
		return err
	}
	if len(buf) < 282 {
		return entab.Incomplete("chemstation MS header too short for scan count")
	}
	nScans, err := extract.Uint32(buf[278:], extract.Big)
	if err != nil {
		return err
	}
	st.nScansLeft = int(nScans)
	st.metadata = metadata
	return nil
}

func msParse(buf []byte, eof bool, consumed *int, st *msState) (bool, error) {
	if st.nScansLeft == 0 {
		return false, nil
	}
	con := 0

	nMzsLeft := st.nMzsLeft
	for nMzsLeft == 0 {
		rawNMzsLeft, err := extract.Uint16(buf[con:], extract.Big)
		if err != nil {
			return false, err
		}
		con += 2
		if rawNMzsLeft < 14 {
			return false, entab.Malformed("invalid chemstation MS record header")
		}
		nMzsLeft = int((rawNMzsLeft - 14) / 2)

		curTimeRaw, err := extract.Uint32(buf[con:], extract.Big)
		if err != nil {
			return false, err
		}
		con += 4
		st.curTime = float64(curTimeRaw) / 60000.

		if err := extract.Skip(buf[con:], 12); err != nil {
			return false, err
		}
		con += 12

		if nMzsLeft == 0 {
			st.nScansLeft--
			if err := extract.Skip(buf[con:], 10); err != nil {
				return false, err
			}
			con += 10
			if st.nScansLeft == 0 {
				*consumed += con
				return false, nil
			}
		}
	}

	rawMz, err := extract.Uint16(buf[con:], extract.Big)
	if err != nil {
		return false, err
	}
	con += 2
	st.curMz = float64(rawMz) / 20.

	rawIntensity, err := extract.Uint16(buf[con:], extract.Big)
	if err != nil {
		return false, err
	}
	con += 2
	st.curIntensi = float64(rawIntensity&16383) * math.Pow(8, float64(rawIntensity>>14))

	if nMzsLeft == 1 {
		st.nScansLeft--
		if err := extract.Skip(buf[con:], 10); err != nil {
			return false, err
		}
		con += 10
	}
	st.nMzsLeft = nMzsLeft - 1

	*consumed += con
	return true, nil
}

func msGet(rec *MsRecord, _ []byte, st *msState) error {
	rec.Time = st.curTime
	rec.Mz = st.curMz
	rec.Intensity = st.curIntensi
	return nil
}

// ToRow converts an MsRecord into an entab.Row in MsHeader order.
func (r *MsRecord) ToRow() entab.Row {
	return entab.Row{entab.FloatValue(r.Time), entab.FloatValue(r.Mz), entab.FloatValue(r.Intensity)}
}
