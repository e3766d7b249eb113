package thermoraw

import (
	"io"

	"github.com/bovee/entab"
	"github.com/bovee/entab/internal/extract"
)

// Record is a single time/mz/intensity point from a Thermo RAW trace.
type Record struct {
	Time      float64
	Mz        float64
	Intensity float32
}

// Header names the columns Record's fields map to, in order.
var Header = []string{"time", "mz", "intensity"}

// headerParams accumulates the file-level pointers read once, near the
// start of the file and from the trailer near its end, before any data
// record can be decoded.
type headerParams struct {
	version      uint32
	dataStart    int
	trailerStart int
	trailer      trailer
	haveTrailer  bool
}

// state is the per-record decoder state: it tracks the shrinking cursors
// into the metadata and coefficient tables (which live near the end of the
// file, reached backwards as the front of the data section advances) plus
// the current scan/chunk/point bookkeeping.
type state struct {
	version            uint32
	metadataPos        int
	coeffsPos          int
	nScansLeft         int
	nChunksLeft        int
	nPointsLeft        int
	chunkHasAdjustment bool
	extraBytes         int
	curTime            float64
	curFreq            float64
	baseFreq           float64
	freqStep           float64
	curCoeffs          scanCoeffs
	curAdjustment      float64
}

// dataConsumed shrinks the metadata/coefficient cursors by the bytes
// claimed from the front of the data section, erroring if either cursor
// would cross behind the new front (meaning the data section has grown
// into a region it shouldn't).
func (s *state) dataConsumed(con int) error {
	if s.metadataPos < con {
		return entab.Malformed("data section extended into metadata section")
	}
	if s.coeffsPos < con {
		return entab.Malformed("data section extended into coefficients section")
	}
	s.metadataPos -= con
	s.coeffsPos -= con
	return nil
}

// Reader decodes a stream of Thermo RAW scan data points.
type Reader struct {
	rb    *entab.ReadBuffer
	state state
}

// NewReader wraps an io.Reader as a Thermo RAW decoder. The entire file is
// buffered up front: several fields needed to interpret the data section
// (scan times, m/z conversion coefficients) live in a trailer near the end
// of the file.
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
	params := &headerParams{}
	st, err := entab.NextRecord(rb, params, headerParse, headerGet)
	if err != nil {
		return nil, err
	}
	if st == nil {
		return nil, entab.Malformed("empty thermo raw file")
	}
	return &Reader{rb: rb, state: *st}, nil
}

func (r *Reader) Headers() []string { return Header }

func (r *Reader) Metadata() entab.Metadata {
	return entab.Metadata{"version": entab.IntValue(int64(r.state.version))}
}

func (r *Reader) Next() (*Record, error) {
	return entab.NextRecord(r.rb, &r.state, recordParse, recordGet)
}

// headerParse forces the whole file into the buffer (several fields needed
// even to locate the data section live in the trailer near the end of the
// file, so there's no benefit to chunked reads here), then walks the fixed
// preamble, the run of Pascal-string metadata fields, and the version-gated
// trailer pointer fields.
func headerParse(buf []byte, eof bool, consumed *int, p *headerParams) (bool, error) {
	if !eof {
		return false, entab.Incomplete("thermo raw requires the whole file buffered")
	}
	if len(buf) < 1420 {
		return false, entab.Malformed("thermo raw header much too short")
	}
	if string(buf[:2]) != "\x01\xA1" {
		return false, entab.Malformed("bad thermo raw magic")
	}
	if p.version == 0 {
		v, err := extract.Uint32(buf[36:], extract.Little)
		if err != nil {
			return false, err
		}
		p.version = v
	}

	if p.dataStart == 0 && p.trailerStart == 0 {
		con := 1420
		for i := 0; i < 13; i++ {
			n, _, err := readPascalString16(buf[con:])
			if err != nil {
				return false, err
			}
			con += n
		}
		if p.version >= 50 {
			for i := 0; i < 3; i++ {
				n, _, err := readPascalString16(buf[con:])
				if err != nil {
					return false, err
				}
				con += n
			}
			if err := extract.Skip(buf[con:], 4); err != nil {
				return false, err
			}
			con += 4
		}
		if p.version >= 60 {
			for i := 0; i < 15; i++ {
				n, _, err := readPascalString16(buf[con:])
				if err != nil {
					return false, err
				}
				con += n
			}
		}

		switch {
		case p.version < 57:
			return false, entab.Unsupported("old thermo raw files are not supported yet")
		case p.version < 64:
			if err := extract.Skip(buf[con:], 52); err != nil {
				return false, err
			}
			con += 52
			v, err := extract.Uint32(buf[con:], extract.Little)
			if err != nil {
				return false, err
			}
			p.dataStart = int(v)
			con += 4
			if err := extract.Skip(buf[con:], 16); err != nil {
				return false, err
			}
			con += 16
			v, err = extract.Uint32(buf[con:], extract.Little)
			if err != nil {
				return false, err
			}
			p.trailerStart = int(v)
			con += 4
		default:
			if err := extract.Skip(buf[con:], 836); err != nil {
				return false, err
			}
			con += 836
			v, err := extract.Uint64(buf[con:], extract.Little)
			if err != nil {
				return false, err
			}
			p.dataStart = int(v)
			con += 8
			if err := extract.Skip(buf[con:], 8); err != nil {
				return false, err
			}
			con += 8
			v, err = extract.Uint64(buf[con:], extract.Little)
			if err != nil {
				return false, err
			}
			p.trailerStart = int(v)
			con += 8
		}
	}

	if !p.haveTrailer {
		if len(buf) < p.trailerStart {
			return false, entab.Incomplete("thermo raw file too short for its trailer")
		}
		t, err := parseTrailer(buf[p.trailerStart:], p.version)
		if err != nil {
			return false, err
		}
		p.trailer = t
		p.haveTrailer = true
	}

	*consumed += p.dataStart
	return true, nil
}

func headerGet(st *state, buf []byte, p *headerParams) error {
	v, err := extract.Uint32(buf[36:], extract.Little)
	if err != nil {
		return err
	}
	st.version = v
	st.metadataPos = p.trailer.metadataStart - p.dataStart
	st.coeffsPos = p.trailer.coeffsStart - p.dataStart + 4
	st.nScansLeft = p.trailer.nScans
	return nil
}

func recordParse(buf []byte, eof bool, consumed *int, st *state) (bool, error) {
	con := 0
	if st.nScansLeft == 0 && st.nChunksLeft == 0 && st.nPointsLeft == 0 {
		return false, nil
	}
	extraBytes := st.extraBytes
	nScansLeft := st.nScansLeft
	nChunksLeft := st.nChunksLeft

	if st.nChunksLeft == 0 && st.nPointsLeft == 0 {
		var sizeData uint32
		for sizeData == 0 {
			if err := extract.Skip(buf[con:], extraBytes); err != nil {
				return false, err
			}
			con += extraBytes

			mlen, sm, err := parseScanMetadata(buf[st.metadataPos:], st.version)
			if err != nil {
				return false, err
			}
			st.metadataPos += mlen
			st.curTime = sm.time

			clen, coeffs, err := parseScanCoeffs(buf[st.coeffsPos:], st.version)
			if err != nil {
				return false, err
			}
			st.coeffsPos += clen
			st.curCoeffs = coeffs

			if err := extract.Skip(buf[con:], 4); err != nil {
				return false, err
			}
			con += 4
			sizeData, err = extract.Uint32(buf[con:], extract.Little)
			if err != nil {
				return false, err
			}
			con += 4
			n1, err := extract.Uint32(buf[con:], extract.Little)
			if err != nil {
				return false, err
			}
			con += 4
			extraBytes = 4 * int(n1)
			adj, err := extract.Uint32(buf[con:], extract.Little)
			if err != nil {
				return false, err
			}
			con += 4
			st.chunkHasAdjustment = adj != 0
			n2, err := extract.Uint32(buf[con:], extract.Little)
			if err != nil {
				return false, err
			}
			con += 4
			extraBytes += 4 * int(n2)
			n3, err := extract.Uint32(buf[con:], extract.Little)
			if err != nil {
				return false, err
			}
			con += 4
			extraBytes += 4 * int(n3)
			n4, err := extract.Uint32(buf[con:], extract.Little)
			if err != nil {
				return false, err
			}
			con += 4
			extraBytes += 4 * int(n4)
			if err := extract.Skip(buf[con:], 12); err != nil {
				return false, err
			}
			con += 12

			nScansLeft--
			if nScansLeft == 0 {
				st.nScansLeft = 0
				return false, nil
			}
		}

		baseFreq, err := extract.Float64(buf[con:], extract.Little)
		if err != nil {
			return false, err
		}
		con += 8
		freqStep, err := extract.Float64(buf[con:], extract.Little)
		if err != nil {
			return false, err
		}
		con += 8
		st.baseFreq = baseFreq
		st.freqStep = freqStep
		nc, err := extract.Uint32(buf[con:], extract.Little)
		if err != nil {
			return false, err
		}
		con += 4
		nChunksLeft = int(nc)
		if err := extract.Skip(buf[con:], 4); err != nil {
			return false, err
		}
		con += 4
	}

	if st.nPointsLeft == 0 {
		freqOffsetRaw, err := extract.Uint32(buf[con:], extract.Little)
		if err != nil {
			return false, err
		}
		con += 4
		st.curFreq = st.baseFreq + st.freqStep*float64(freqOffsetRaw) - st.freqStep
		np, err := extract.Uint32(buf[con:], extract.Little)
		if err != nil {
			return false, err
		}
		con += 4
		st.nPointsLeft = int(np)
		if st.chunkHasAdjustment {
			adj, err := extract.Float32(buf[con:], extract.Little)
			if err != nil {
				return false, err
			}
			con += 4
			st.curAdjustment = float64(adj)
		}
		nChunksLeft--
	}

	if err := extract.Skip(buf[con:], 4); err != nil {
		return false, err
	}
	con += 4
	st.curFreq += st.freqStep

	st.nScansLeft = nScansLeft
	st.nChunksLeft = nChunksLeft
	st.nPointsLeft--
	st.extraBytes = extraBytes
	if err := st.dataConsumed(con); err != nil {
		return false, err
	}
	*consumed += con
	return true, nil
}

func recordGet(rec *Record, buf []byte, st *state) error {
	rec.Time = st.curTime
	rec.Mz = st.curCoeffs.toMz(st.curFreq) + st.curAdjustment
	v, err := extract.Float32(buf[len(buf)-4:], extract.Little)
	if err != nil {
		return err
	}
	rec.Intensity = v
	return nil
}

// ToRow converts a Record into an entab.Row in Header order.
func (r *Record) ToRow() entab.Row {
	return entab.Row{entab.FloatValue(r.Time), entab.FloatValue(r.Mz), entab.FloatValue(float64(r.Intensity))}
}
