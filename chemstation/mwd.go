package chemstation

import (
	"io"
	"strconv"
	"strings"

	"github.com/bovee/entab"
	"github.com/bovee/entab/internal/extract"
)

// MwdRecord is a single time/signal/intensity point from a multi-wavelength
// detector trace.
type MwdRecord struct {
	SignalName string
	Time       float64
	Intensity  float64
}

// MwdHeader names the columns MwdRecord's fields map to, in order.
var MwdHeader = []string{"time", "signal", "intensity"}

type mwdState struct {
	nWvsLeft     int
	curTime      float64
	curIntensity float64
	metadata     Metadata
}

// MwdReader decodes an Agilent Chemstation multi-wavelength-detector trace.
type MwdReader struct {
	rb    *entab.ReadBuffer
	state mwdState
}

func NewMwdReader(r io.Reader) (*MwdReader, error) {
	return NewMwdReaderSize(r, 0)
}

// NewMwdReaderSize is NewMwdReader with an explicit initial buffer
// allocation (entab.DefaultBufferSize if bufSize <= 0).
func NewMwdReaderSize(r io.Reader, bufSize int) (*MwdReader, error) {
	rb, err := entab.NewReadBuffer(r, bufSize)
	if err != nil {
		return nil, err
	}
	rd := &MwdReader{rb: rb}
	if err := entab.ReadHeader(rb, &rd.state, mwdHeaderParse, mwdHeaderGet); err != nil {
		return nil, err
	}
	return rd, nil
}

func (r *MwdReader) Headers() []string        { return MwdHeader }
func (r *MwdReader) Metadata() entab.Metadata { return metadataMap(r.state.metadata) }

func (r *MwdReader) Next() (*MwdRecord, error) {
	return entab.NextRecord(r.rb, &r.state, mwdParse, mwdGet)
}

func mwdHeaderParse(buf []byte, eof bool, consumed *int, _ *mwdState) (bool, error) {
	n, err := readAgilentHeader(buf, false)
	if err != nil {
		return false, err
	}
	*consumed += n
	return true, nil
}

func mwdHeaderGet(st *mwdState, buf []byte, _ *mwdState) error {
	metadata, err := parseMetadata(buf)
	if err != nil {
		return err
	}
	st.nWvsLeft = 0
	st.curTime = metadata.StartTime - timeStep
	st.curIntensity = 0
	st.metadata = metadata
	return nil
}

func mwdParse(buf []byte, eof bool, consumed *int, st *mwdState) (bool, error) {
	if len(buf) == 0 && eof {
		return false, nil
	}
	con := 0

	nWvsLeft := st.nWvsLeft
	if nWvsLeft == 0 {
		raw, err := extract.Uint16(buf[con:], extract.Big)
		if err != nil {
			return false, err
		}
		con += 2
		nWvsLeft = int(raw) & 0b1111_1111_1111
		if nWvsLeft == 0 {
			return false, nil
		}
	}

	intensity, err := extract.Int16(buf[con:], extract.Big)
	if err != nil {
		return false, err
	}
	con += 2
	if intensity == -32768 {
		v, err := extract.Int32(buf[con:], extract.Big)
		if err != nil {
			return false, err
		}
		con += 4
		st.curIntensity = float64(v)
	} else {
		st.curIntensity += float64(intensity)
	}
	st.nWvsLeft = nWvsLeft - 1
	st.curTime += timeStep

	*consumed += con
	return true, nil
}

func mwdGet(rec *MwdRecord, _ []byte, st *mwdState) error {
	rec.SignalName = parseMwdSignalName(st.metadata.SignalName)
	rec.Time = st.curTime
	rec.Intensity = st.curIntensity*st.metadata.MultCorrection + st.metadata.OffsetCorrection
	return nil
}

// parseMwdSignalName pulls the numeric wavelength out of a signal name like
// "MWD A, Sig=210,5 Ref=360,100", defaulting to "0" if it can't be found.
func parseMwdSignalName(signalName string) string {
	_, after, ok := strings.Cut(signalName, "Sig=")
	if !ok {
		return "0"
	}
	sigPart, _, _ := strings.Cut(after, ",")
	if _, err := strconv.ParseFloat(sigPart, 64); err != nil {
		return "0"
	}
	return sigPart
}

// ToRow converts an MwdRecord into an entab.Row in MwdHeader order. The
// signal name is parsed to a float, matching the source's float-valued
// "signal" column.
func (r *MwdRecord) ToRow() entab.Row {
	sig, err := strconv.ParseFloat(r.SignalName, 64)
	if err != nil {
		sig = 0
	}
	return entab.Row{entab.FloatValue(r.Time), entab.FloatValue(sig), entab.FloatValue(r.Intensity)}
}
