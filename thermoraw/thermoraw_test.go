package thermoraw

import (
	"bytes"
	"encoding/binary"
	"math"
	"testing"
)

// buildRawFile constructs a minimal, single-scan/single-chunk/single-point
// Thermo RAW file for version 57 (the oldest version this package accepts),
// with every Pascal-string metadata field left empty and every unused
// numeric field left zero.
func buildRawFile(t *testing.T, scanTime float64, intensity float32) []byte {
	t.Helper()

	const (
		dataStart    = 1564
		dataLen      = 76
		metaStart    = dataStart + dataLen // 1640
		metaLen      = 72
		coeffsRecord = metaStart + metaLen // 1712
		coeffsLen    = 116
		trailerStart = coeffsRecord + coeffsLen // 1828
		trailerLen   = 592 + 6816
		total        = trailerStart + trailerLen
	)

	buf := make([]byte, total)
	copy(buf[0:2], "\x01\xA1")
	binary.LittleEndian.PutUint32(buf[36:40], 57) // version

	binary.LittleEndian.PutUint32(buf[1540:1544], dataStart)
	binary.LittleEndian.PutUint32(buf[1560:1564], trailerStart)

	// data section, relative to dataStart
	d := buf[dataStart:metaStart]
	binary.LittleEndian.PutUint32(d[4:8], 1)   // size_data (nonzero: real scan)
	binary.LittleEndian.PutUint64(d[40:48], math.Float64bits(100.0)) // base_freq
	binary.LittleEndian.PutUint64(d[48:56], math.Float64bits(1.0))   // freq_step
	binary.LittleEndian.PutUint32(d[56:60], 1)                       // n_chunks
	binary.LittleEndian.PutUint32(d[68:72], 1)                       // n_points
	binary.LittleEndian.PutUint32(d[72:76], math.Float32bits(intensity))

	// scan metadata table (one record, pointed to by the trailer)
	m := buf[metaStart:coeffsRecord]
	binary.LittleEndian.PutUint64(m[24:32], math.Float64bits(scanTime))

	// coefficients table is left all-zero: n_reactions=0, n_coeffs=0 (identity mz)

	tr := buf[trailerStart : trailerStart+trailerLen]
	binary.LittleEndian.PutUint32(tr[12:16], 2) // n_scans (2 so the decrement mid-scan doesn't hit the terminal check)
	binary.LittleEndian.PutUint32(tr[28:32], metaStart)
	binary.LittleEndian.PutUint32(tr[7368:7372], uint32(coeffsRecord-4))

	return buf
}

func TestSingleScanPoint(t *testing.T) {
	data := buildRawFile(t, 12.5, 1938.5)

	r, err := NewReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	meta := r.Metadata()
	if got := meta["version"].Int(); got != 57 {
		t.Errorf("version = %d, want 57", got)
	}

	rec, err := r.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if rec == nil {
		t.Fatal("expected a record")
	}
	if got, want := rec.Time, 12.5; got != want {
		t.Errorf("time = %v, want %v", got, want)
	}
	if got, want := rec.Mz, 100.; got != want {
		t.Errorf("mz = %v, want %v", got, want)
	}
	if got, want := rec.Intensity, float32(1938.5); got != want {
		t.Errorf("intensity = %v, want %v", got, want)
	}
}
