package chemstation

import (
	"io"

	"github.com/bovee/entab"
	"github.com/bovee/entab/internal/extract"
)

// NewUvRecord is a single time/wavelength/intensity point from a newer-style
// (little-endian, untagged) Chemstation UV trace.
type NewUvRecord struct {
	Time       float64
	Wavelength float64
	Intensity  float64
}

// NewUvHeader names the columns NewUvRecord's fields map to, in order.
var NewUvHeader = []string{"time", "wavelength", "intensity"}

type newUvState struct {
	nScansLeft   int
	nWvsLeft     int
	curTime      float64
	curIntensity float64
	curWv        float64
	wvStep       float64
}

// NewUvReader decodes an Agilent Chemstation new-format UV trace.
type NewUvReader struct {
	rb    *entab.ReadBuffer
	state newUvState
}

func NewNewUvReader(r io.Reader) (*NewUvReader, error) {
	return NewNewUvReaderSize(r, 0)
}

// NewNewUvReaderSize is NewNewUvReader with an explicit initial buffer
// allocation (entab.DefaultBufferSize if bufSize <= 0).
func NewNewUvReaderSize(r io.Reader, bufSize int) (*NewUvReader, error) {
	rb, err := entab.NewReadBuffer(r, bufSize)
	if err != nil {
		return nil, err
	}
	rd := &NewUvReader{rb: rb}
	if err := entab.ReadHeader(rb, &rd.state, newUvHeaderParse, newUvHeaderGet); err != nil {
		return nil, err
	}
	return rd, nil
}

func (r *NewUvReader) Headers() []string        { return NewUvHeader }
func (r *NewUvReader) Metadata() entab.Metadata { return entab.Metadata{} }

func (r *NewUvReader) Next() (*NewUvRecord, error) {
	return entab.NextRecord(r.rb, &r.state, newUvParse, newUvGet)
}

func newUvHeaderParse(buf []byte, eof bool, consumed *int, _ *newUvState) (bool, error) {
	n, err := readAgilentHeader(buf, false)
	if err != nil {
		return false, err
	}
	*consumed += n
	return true, nil
}

func newUvHeaderGet(st *newUvState, buf []byte, _ *newUvState) error {
	if len(buf) < 282 {
		return entab.Incomplete("chemstation new-UV header too short for scan count")
	}
	nScans, err := extract.Uint32(buf[278:], extract.Big)
	if err != nil {
		return err
	}
	st.nScansLeft = int(nScans)
	return nil
}

func newUvParse(buf []byte, eof bool, consumed *int, st *newUvState) (bool, error) {
	if st.nScansLeft == 0 {
		return false, nil
	}
	con := 0

	nWvsLeft := st.nWvsLeft
	if nWvsLeft == 0 {
		if err := extract.Skip(buf[con:], 4); err != nil {
			return false, err
		}
		con += 4

		t, err := extract.Uint32(buf[con:], extract.Little)
		if err != nil {
			return false, err
		}
		con += 4
		st.curTime = float64(t) / 60000.

		wvStart, err := extract.Uint16(buf[con:], extract.Little)
		if err != nil {
			return false, err
		}
		con += 2
		wvEnd, err := extract.Uint16(buf[con:], extract.Little)
		if err != nil {
			return false, err
		}
		con += 2
		if wvStart > wvEnd {
			return false, entab.Domain("invalid wavelength start and end")
		}
		wvStep, err := extract.Uint16(buf[con:], extract.Little)
		if err != nil {
			return false, err
		}
		con += 2
		if wvStep == 0 {
			return false, entab.Domain("invalid wavelength step")
		}

		nWvsLeft = int((wvEnd-wvStart)/wvStep) + 1
		st.curWv = float64(wvStart) / 20.
		st.wvStep = float64(wvStep) / 20.

		if err := extract.Skip(buf[con:], 8); err != nil {
			return false, err
		}
		con += 8
	}

	delta, err := extract.Int16(buf[con:], extract.Little)
	if err != nil {
		return false, err
	}
	con += 2
	if delta == -32768 {
		v, err := extract.Uint32(buf[con:], extract.Little)
		if err != nil {
			return false, err
		}
		con += 4
		st.curIntensity = float64(v)
	} else {
		st.curIntensity += float64(delta)
	}

	if nWvsLeft == 1 {
		st.nScansLeft--
	}
	st.nWvsLeft = nWvsLeft - 1

	*consumed += con
	return true, nil
}

func newUvGet(rec *NewUvRecord, _ []byte, st *newUvState) error {
	rec.Time = st.curTime
	rec.Wavelength = st.curWv
	rec.Intensity = st.curIntensity / 2000.
	return nil
}

// ToRow converts a NewUvRecord into an entab.Row in NewUvHeader order.
func (r *NewUvRecord) ToRow() entab.Row {
	return entab.Row{entab.FloatValue(r.Time), entab.FloatValue(r.Wavelength), entab.FloatValue(r.Intensity)}
}
