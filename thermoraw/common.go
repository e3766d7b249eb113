// Package thermoraw decodes Thermo Finnigan RAW mass spectrometry files: a
// fixed preamble, a run of UTF-16 Pascal-string metadata fields, a data
// section of per-scan frequency-domain chunks, and a trailer (near the end
// of the file) holding the per-scan polynomial coefficients needed to turn
// raw signal frequencies into m/z values.
package thermoraw

import (
	"strings"

	"github.com/bovee/entab"
	"github.com/bovee/entab/internal/extract"
)

// readPascalString16 decodes a 4-byte little-endian length-prefixed (in
// UTF-16 code units) little-endian UTF-16 string at the front of buf,
// returning the number of bytes consumed (4 + 2*length).
func readPascalString16(buf []byte) (int, string, error) {
	length32, err := extract.Uint32(buf, extract.Little)
	if err != nil {
		return 0, "", err
	}
	length := int(length32)
	total := 4 + 2*length
	if len(buf) < total {
		return 0, "", entab.Incomplete("pascal string ended abruptly")
	}
	units := make([]uint16, length)
	for i := 0; i < length; i++ {
		lo := 4 + 2*i
		units[i] = uint16(buf[lo]) | uint16(buf[lo+1])<<8
	}
	return total, decodeUTF16Lossy(units), nil
}

// decodeUTF16Lossy mirrors core::char::decode_utf16's replacement-character
// fallback for unpaired surrogates.
func decodeUTF16Lossy(units []uint16) string {
	var b strings.Builder
	for i := 0; i < len(units); i++ {
		r := units[i]
		switch {
		case r < 0xD800 || r > 0xDFFF:
			b.WriteRune(rune(r))
		case r >= 0xD800 && r <= 0xDBFF && i+1 < len(units) && units[i+1] >= 0xDC00 && units[i+1] <= 0xDFFF:
			hi, lo := r, units[i+1]
			b.WriteRune(((rune(hi) - 0xD800) << 10) | (rune(lo) - 0xDC00) + 0x10000)
			i++
		default:
			b.WriteRune('�')
		}
	}
	return b.String()
}

// trailer is the block of run-level data Thermo stores near the end of a
// RAW file: total scan count, mz/time ranges, and pointers back into the
// file for the per-scan metadata and coefficient tables.
type trailer struct {
	metadataStart int
	coeffsStart   int
	nScans        int
	minMz         float64
	maxMz         float64
	minTime       float64
	maxTime       float64
}

// parseTrailer decodes a trailer from buf (the file data starting at the
// trailer's absolute offset), which must already hold enough bytes for the
// version-gated trailer size.
func parseTrailer(buf []byte, version uint32) (trailer, error) {
	var t trailer
	switch {
	case version >= 64:
		if len(buf) < 592+6980 {
			return t, entab.Incomplete("trailer too short for version >= 64")
		}
	case version >= 50:
		if len(buf) < 592+6816 {
			return t, entab.Incomplete("trailer too short for version >= 50")
		}
	default:
		return t, entab.Unsupported("thermo raw version must be >= 50")
	}

	nScans, err := extract.Uint32(buf[12:], extract.Little)
	if err != nil {
		return t, err
	}
	t.nScans = int(nScans)
	if t.minMz, err = extract.Float64(buf[56:], extract.Little); err != nil {
		return t, err
	}
	if t.maxMz, err = extract.Float64(buf[64:], extract.Little); err != nil {
		return t, err
	}
	if t.minTime, err = extract.Float64(buf[72:], extract.Little); err != nil {
		return t, err
	}
	if t.maxTime, err = extract.Float64(buf[80:], extract.Little); err != nil {
		return t, err
	}

	if version >= 64 {
		coeffsStart, err := extract.Uint64(buf[7448:], extract.Little)
		if err != nil {
			return t, err
		}
		t.coeffsStart = int(coeffsStart)
		metadataStart, err := extract.Uint64(buf[7408:], extract.Little)
		if err != nil {
			return t, err
		}
		t.metadataStart = int(metadataStart)
	} else {
		coeffsStart, err := extract.Uint32(buf[7368:], extract.Little)
		if err != nil {
			return t, err
		}
		t.coeffsStart = int(coeffsStart)
		metadataStart, err := extract.Uint32(buf[28:], extract.Little)
		if err != nil {
			return t, err
		}
		t.metadataStart = int(metadataStart)
	}
	return t, nil
}

// scanMetadata is the per-scan time/mz-range record read from the
// metadata table pointed to by the trailer.
type scanMetadata struct {
	time  float64
	lowMz float64
	hiMz  float64
}

// parseScanMetadata reads one scanMetadata record from buf, returning the
// number of bytes it occupies (version-gated).
func parseScanMetadata(buf []byte, version uint32) (int, scanMetadata, error) {
	var m scanMetadata
	length := 72
	switch {
	case version >= 66:
		length = 88
	case version >= 64:
		length = 80
	}
	if len(buf) < length {
		return 0, m, entab.Incomplete("scan metadata incomplete")
	}
	var err error
	if m.time, err = extract.Float64(buf[24:], extract.Little); err != nil {
		return 0, m, err
	}
	if m.lowMz, err = extract.Float64(buf[56:], extract.Little); err != nil {
		return 0, m, err
	}
	if m.hiMz, err = extract.Float64(buf[64:], extract.Little); err != nil {
		return 0, m, err
	}
	return length, m, nil
}

// scanCoeffs converts a scan's raw signal values (frequencies, for Orbitrap
// and similar instruments) into m/z using a version-dependent polynomial.
type scanCoeffs struct {
	nCoeffs uint32
	a, b, c float64
}

// toMz applies the coefficient polynomial selected by nCoeffs.
func (c scanCoeffs) toMz(n float64) float64 {
	switch c.nCoeffs {
	case 0:
		return n
	case 4:
		return c.a + c.b/n + c.c/(n*n)
	case 5, 7:
		return c.a + c.b/(n*n) + c.c/(n*n*n*n)
	default:
		return n
	}
}

// parseScanCoeffs reads one variable-length coefficient record from buf,
// whose layout depends on version and two trailing reaction/extra counts
// read from within the record itself, returning the bytes consumed.
func parseScanCoeffs(buf []byte, version uint32) (int, scanCoeffs, error) {
	var c scanCoeffs
	recordLen := 44
	switch {
	case version >= 66:
		recordLen = 140
	case version >= 63:
		recordLen = 132
	case version >= 62:
		recordLen = 124
	case version >= 57:
		recordLen = 84
	}
	if len(buf) < recordLen {
		return 0, c, entab.Incomplete("coefficient data incomplete")
	}

	nReactions, err := extract.Uint32(buf[recordLen-4:], extract.Little)
	if err != nil {
		return 0, c, err
	}
	if version >= 66 {
		recordLen += int(nReactions) * 56
	} else {
		recordLen += int(nReactions) * 32
	}
	recordLen += 24
	if len(buf) < recordLen {
		return 0, c, entab.Incomplete("coefficient reactions incomplete")
	}

	coeffPos := recordLen - 4
	nCoeffs, err := extract.Uint32(buf[coeffPos:], extract.Little)
	if err != nil {
		return 0, c, err
	}
	recordLen += int(nCoeffs)*8 + 8
	if len(buf) < recordLen {
		return 0, c, entab.Incomplete("coefficients incomplete")
	}

	if version >= 66 {
		extra, err := extract.Uint32(buf[recordLen-8:], extract.Little)
		if err != nil {
			return 0, c, err
		}
		recordLen += 4 + 8*int(extra)
		if len(buf) < recordLen {
			return 0, c, entab.Incomplete("coefficients incomplete")
		}
	}

	c.nCoeffs = nCoeffs
	switch nCoeffs {
	case 4:
		if c.a, err = extract.Float64(buf[coeffPos+12:], extract.Little); err != nil {
			return 0, c, err
		}
		if c.b, err = extract.Float64(buf[coeffPos+20:], extract.Little); err != nil {
			return 0, c, err
		}
		if c.c, err = extract.Float64(buf[coeffPos+28:], extract.Little); err != nil {
			return 0, c, err
		}
	case 5, 7:
		if c.a, err = extract.Float64(buf[coeffPos+20:], extract.Little); err != nil {
			return 0, c, err
		}
		if c.b, err = extract.Float64(buf[coeffPos+28:], extract.Little); err != nil {
			return 0, c, err
		}
		if c.c, err = extract.Float64(buf[coeffPos+36:], extract.Little); err != nil {
			return 0, c, err
		}
	case 0:
	default:
		return 0, c, entab.Domain("unexpected number of coefficients")
	}

	return recordLen, c, nil
}
