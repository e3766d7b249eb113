package chemstation

import (
	"io"

	"github.com/bovee/entab"
	"github.com/bovee/entab/internal/extract"
)

// FidRecord is a single time/intensity point from an FID trace.
type FidRecord struct {
	Time      float64
	Intensity float64
}

// FidHeader names the columns FidRecord's fields map to, in order.
var FidHeader = []string{"time", "intensity"}

type fidState struct {
	curTime      float64
	curDelta     float64
	curIntensity float64
	metadata     Metadata
}

// FidReader decodes an Agilent Chemstation FID trace.
type FidReader struct {
	rb    *entab.ReadBuffer
	state fidState
}

func NewFidReader(r io.Reader) (*FidReader, error) {
	return NewFidReaderSize(r, 0)
}

// NewFidReaderSize is NewFidReader with an explicit initial buffer
// allocation (entab.DefaultBufferSize if bufSize <= 0).
func NewFidReaderSize(r io.Reader, bufSize int) (*FidReader, error) {
	rb, err := entab.NewReadBuffer(r, bufSize)
	if err != nil {
		return nil, err
	}
	rd := &FidReader{rb: rb}
	if err := entab.ReadHeader(rb, &rd.state, fidHeaderParse, fidHeaderGet); err != nil {
		return nil, err
	}
	return rd, nil
}

func (r *FidReader) Headers() []string        { return FidHeader }
func (r *FidReader) Metadata() entab.Metadata { return metadataMap(r.state.metadata) }

func (r *FidReader) Next() (*FidRecord, error) {
	return entab.NextRecord(r.rb, &r.state, fidParse, fidGet)
}

func fidHeaderParse(buf []byte, eof bool, consumed *int, _ *fidState) (bool, error) {
	n, err := readAgilentHeader(buf, false)
	if err != nil {
		return false, err
	}
	*consumed += n
	return true, nil
}

func fidHeaderGet(st *fidState, buf []byte, _ *fidState) error {
	metadata, err := parseMetadata(buf)
	if err != nil {
		return err
	}
	st.curTime = metadata.StartTime - timeStep
	st.curIntensity = 0
	st.curDelta = 0
	st.metadata = metadata
	return nil
}

func fidParse(buf []byte, eof bool, consumed *int, st *fidState) (bool, error) {
	switch {
	case len(buf) == 0 && eof:
		return false, nil
	case len(buf) == 1 && eof:
		return false, entab.Malformed("FID record was incomplete")
	case len(buf) < 2:
		return false, entab.Incomplete("incomplete FID file")
	}

	con := 0
	intensity, err := extract.Int16(buf[con:], extract.Big)
	if err != nil {
		return false, err
	}
	con += 2
	if intensity == 32767 {
		high, err := extract.Int32(buf[con:], extract.Big)
		if err != nil {
			return false, err
		}
		con += 4
		low, err := extract.Uint16(buf[con:], extract.Big)
		if err != nil {
			return false, err
		}
		con += 2
		st.curDelta = 0
		st.curIntensity = float64(high)*65534. + float64(low)
	} else {
		st.curDelta += float64(intensity)
		st.curIntensity += st.curDelta
	}

	st.curTime += timeStep
	*consumed += con
	return true, nil
}

func fidGet(rec *FidRecord, _ []byte, st *fidState) error {
	rec.Time = st.curTime
	rec.Intensity = st.curIntensity*st.metadata.MultCorrection + st.metadata.OffsetCorrection
	return nil
}

// ToRow converts a FidRecord into an entab.Row in FidHeader order.
func (r *FidRecord) ToRow() entab.Row {
	return entab.Row{entab.FloatValue(r.Time), entab.FloatValue(r.Intensity)}
}
