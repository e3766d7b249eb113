package chemstation

import (
	"io"

	"github.com/bovee/entab"
	"github.com/bovee/entab/internal/extract"
)

// DadRecord is a single time/wavelength/intensity point from a diode array
// detector trace.
type DadRecord struct {
	Time       float64
	Wavelength float64
	Intensity  float64
}

// DadHeader names the columns DadRecord's fields map to, in order.
var DadHeader = []string{"time", "wavelength", "intensity"}

type dadState struct {
	nScansLeft   int
	nBytesLeft   int
	curTime      float64
	curIntensity float64
	curWv        float64
	wvStep       float64
	metadata     Metadata
}

// DadReader decodes an Agilent Chemstation diode array detector trace.
type DadReader struct {
	rb    *entab.ReadBuffer
	state dadState
}

func NewDadReader(r io.Reader) (*DadReader, error) {
	return NewDadReaderSize(r, 0)
}

// NewDadReaderSize is NewDadReader with an explicit initial buffer
// allocation (entab.DefaultBufferSize if bufSize <= 0).
func NewDadReaderSize(r io.Reader, bufSize int) (*DadReader, error) {
	rb, err := entab.NewReadBuffer(r, bufSize)
	if err != nil {
		return nil, err
	}
	rd := &DadReader{rb: rb}
	if err := entab.ReadHeader(rb, &rd.state, dadHeaderParse, dadHeaderGet); err != nil {
		return nil, err
	}
	return rd, nil
}

func (r *DadReader) Headers() []string        { return DadHeader }
func (r *DadReader) Metadata() entab.Metadata { return metadataMap(r.state.metadata) }

func (r *DadReader) Next() (*DadRecord, error) {
	return entab.NextRecord(r.rb, &r.state, dadParse, dadGet)
}

func dadHeaderParse(buf []byte, eof bool, consumed *int, _ *dadState) (bool, error) {
	n, err := readAgilentHeader(buf, false)
	if err != nil {
		return false, err
	}
	*consumed += n
	return true, nil
}

func dadHeaderGet(st *dadState, buf []byte, _ *dadState) error {
	metadata, err := parseMetadata(buf)
	if err != nil {
		return err
	}
	if len(buf) < 282 {
		return entab.Incomplete("chemstation DAD header too short for scan count")
	}
	nScans, err := extract.Uint32(buf[278:], extract.Big)
	if err != nil {
		return err
	}
	st.nScansLeft = int(nScans)
	st.metadata = metadata
	return nil
}

func dadParse(buf []byte, eof bool, consumed *int, st *dadState) (bool, error) {
	if st.nScansLeft == 0 && st.nBytesLeft == 0 {
		return false, nil
	}
	con := 0
	nScansLeft := st.nScansLeft
	nBytesLeft := st.nBytesLeft

	if nBytesLeft == 0 {
		scanType, err := extract.Uint16(buf[con:], extract.Little)
		if err != nil {
			return false, err
		}
		con += 2
		if scanType != 67 {
			*consumed += con
			return false, nil
		}

		rawLen, err := extract.Uint16(buf[con:], extract.Little)
		if err != nil {
			return false, err
		}
		con += 2
		if rawLen > 22 {
			nBytesLeft = int(rawLen) - 22
		} else {
			nBytesLeft = 0
		}

		t, err := extract.Uint32(buf[con:], extract.Little)
		if err != nil {
			return false, err
		}
		con += 4
		st.curTime = float64(t)

		wv, err := extract.Uint16(buf[con:], extract.Little)
		if err != nil {
			return false, err
		}
		con += 2
		st.curWv = float64(wv)

		if err := extract.Skip(buf[con:], 2); err != nil { // end wavelength, unused
			return false, err
		}
		con += 2

		step, err := extract.Uint16(buf[con:], extract.Little)
		if err != nil {
			return false, err
		}
		con += 2
		st.wvStep = float64(step)

		if err := extract.Skip(buf[con:], 8); err != nil {
			return false, err
		}
		con += 8
		st.curIntensity = 0

		if nBytesLeft == 0 {
			*consumed += con
			return false, nil
		}
		nScansLeft--
	} else {
		st.curWv += st.wvStep
	}

	intensity, err := extract.Int16(buf[con:], extract.Little)
	if err != nil {
		return false, err
	}
	con += 2
	if intensity == -32768 {
		v, err := extract.Int32(buf[con:], extract.Little)
		if err != nil {
			return false, err
		}
		con += 4
		st.curIntensity = float64(v)
		nBytesLeft = saturatingSub(nBytesLeft, 6)
	} else {
		st.curIntensity += float64(intensity)
		nBytesLeft = saturatingSub(nBytesLeft, 2)
	}
	st.nBytesLeft = nBytesLeft

	st.nScansLeft = nScansLeft
	*consumed += con
	return true, nil
}

func dadGet(rec *DadRecord, _ []byte, st *dadState) error {
	rec.Wavelength = st.curWv / 20.
	rec.Time = st.curTime / 60000.
	rec.Intensity = st.curIntensity / 2000.
	return nil
}

func saturatingSub(a, b int) int {
	if a < b {
		return 0
	}
	return a - b
}

// ToRow converts a DadRecord into an entab.Row in DadHeader order.
func (r *DadRecord) ToRow() entab.Row {
	return entab.Row{entab.FloatValue(r.Time), entab.FloatValue(r.Wavelength), entab.FloatValue(r.Intensity)}
}
