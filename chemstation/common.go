// Package chemstation decodes the Agilent Chemstation family of binary
// trace formats (MS, FID, MWD, DAD, new-UV), which all share a common
// multi-kilobyte header keyed off a version discriminator near byte 248.
package chemstation

import (
	"strings"
	"time"

	"github.com/bovee/entab"
	"github.com/bovee/entab/internal/extract"
)

// timeStep is the hard-coded sample cadence for FID/MWD delta streams; no
// header field is consulted to compute a different cadence (see spec's open
// questions: some instruments may differ, but nothing here infers that).
const timeStep = 0.2

// readAgilentHeader determines the byte length of the file header from the
// u32 length field at offset 264 and confirms the buffer holds that many
// bytes. msFormat files store the length directly (x2); all other formats
// store it scaled by an extra 256.
func readAgilentHeader(buf []byte, msFormat bool) (int, error) {
	if len(buf) < 268 {
		return 0, entab.Incomplete("agilent header needs at least 268 bytes")
	}
	rawHeaderSize, err := extract.Uint32(buf[264:268], extract.Big)
	if err != nil {
		return 0, err
	}
	if rawHeaderSize == 0 {
		return 0, entab.Malformed("invalid agilent header length of 0")
	}
	headerSize := 2 * (int(rawHeaderSize) - 1)
	if !msFormat {
		headerSize *= 256
	}
	if headerSize < 512 {
		return 0, entab.Malformed("agilent header length too short")
	}
	if len(buf) < headerSize {
		return 0, entab.Incomplete("agilent header incomplete")
	}
	return headerSize, nil
}

// Metadata is the set of run-level properties common to every Chemstation
// format, extracted from the version-gated header layout.
type Metadata struct {
	StartTime        float64
	EndTime          float64
	SignalName       string
	OffsetCorrection float64
	MultCorrection   float64
	Sequence         uint16
	Vial             uint16
	Replicate        uint16
	Sample           string
	Description      string
	Operator         string
	RunDate          time.Time
	HasRunDate       bool
	Instrument       string
	Method           string
	YUnits           string
}

// dateLayouts mirrors the chrono format strings tried, in order, against the
// raw run-date string; the first one that parses wins. This matches the
// chrono NaiveDateTime::parse_from_str cascade in the original decoder.
var dateLayouts = []string{
	"02-Jan-06, 15:04:05", // MWD
	"2 Jan 06 3:04 pm",    // MS
	"2 Jan 06 3:04 pm -0700",
	"01/02/06 03:04:05 PM", // FID
}

// parseMetadata extracts Metadata from a validated Chemstation header,
// branching on the version discriminator the same way the header length
// check does. Versions 2/102 are the oldest layout; 30/31/81 add a signal
// name and offset/mult correction; 130/131/179 use UTF-16 Pascal strings at
// different offsets entirely.
func parseMetadata(header []byte) (Metadata, error) {
	var m Metadata
	if len(header) < 256 {
		return m, entab.Incomplete("chemstation header needs at least 256 bytes")
	}
	version, err := extract.Uint32(header[248:], extract.Big)
	if err != nil {
		return m, err
	}

	var requiredLength int
	switch version {
	case 2, 102:
		requiredLength = 512
	case 30, 31, 81:
		requiredLength = 652
	case 131:
		requiredLength = 4000
	case 130, 179:
		requiredLength = 4800
	default:
		return m, entab.Unsupported("unrecognized chemstation header version")
	}
	if len(header) < requiredLength {
		return m, entab.Incomplete("chemstation header too short for its version")
	}

	sequence, err := extract.Uint16(header[252:], extract.Big)
	if err != nil {
		return m, err
	}
	vial, err := extract.Uint16(header[254:], extract.Big)
	if err != nil {
		return m, err
	}
	replicate, err := extract.Uint16(header[256:], extract.Big)
	if err != nil {
		return m, err
	}
	m.Sequence, m.Vial, m.Replicate = sequence, vial, replicate

	switch version {
	case 0, 1, 2, 102:
		m.Sample, err = pascalString(header, 24, 60, "sample")
	default:
		m.Sample = utf16PascalString(header, 858)
	}
	if err != nil {
		return m, err
	}

	if version <= 102 {
		if m.Description, err = pascalString(header, 86, 60, "description"); err != nil {
			return m, err
		}
	}

	switch {
	case version <= 102:
		m.Operator, err = pascalString(header, 148, 28, "operator")
	default:
		m.Operator = utf16PascalString(header, 1880)
	}
	if err != nil {
		return m, err
	}

	switch {
	case version <= 102:
		m.Instrument, err = pascalString(header, 208, 20, "instrument")
	default:
		m.Instrument = utf16PascalString(header, 2492)
	}
	if err != nil {
		return m, err
	}

	switch {
	case version <= 102:
		// the trailing field has no fixed cap in the original (it just reads
		// to end of header); bound it to the remainder of the header.
		m.Method, err = pascalString(header, 228, len(header)-229, "method")
	default:
		m.Method = utf16PascalString(header, 2574)
	}
	if err != nil {
		return m, err
	}

	switch version {
	case 30, 31, 81:
		if m.SignalName, err = pascalString(header, 596, 40, "signal_name"); err != nil {
			return m, err
		}
	case 130, 179:
		m.SignalName = utf16PascalString(header, 4213)
	}

	switch version {
	case 30, 31, 81:
		if m.OffsetCorrection, err = extract.Float64(header[636:], extract.Big); err != nil {
			return m, err
		}
	default:
		m.OffsetCorrection = 0
	}
	switch version {
	case 30, 31, 81:
		if m.MultCorrection, err = extract.Float64(header[644:], extract.Big); err != nil {
			return m, err
		}
	case 131:
		if len(header) >= 3093 {
			if m.MultCorrection, err = extract.Float64(header[3085:], extract.Big); err != nil {
				return m, err
			}
		}
	case 130, 179:
		if len(header) >= 4770 {
			if m.MultCorrection, err = extract.Float64(header[4732:], extract.Big); err != nil {
				return m, err
			}
		}
	default:
		m.MultCorrection = 1
	}

	switch version {
	case 2, 30, 31, 81, 102, 130, 131:
		v, err := extract.Int32(header[282:], extract.Big)
		if err != nil {
			return m, err
		}
		m.StartTime = float64(v) / 60000.
		v, err = extract.Int32(header[286:], extract.Big)
		if err != nil {
			return m, err
		}
		m.EndTime = float64(v) / 60000.
	case 179:
		v, err := extract.Float32(header[282:], extract.Big)
		if err != nil {
			return m, err
		}
		m.StartTime = float64(v) / 60000.
		v, err = extract.Float32(header[286:], extract.Big)
		if err != nil {
			return m, err
		}
		m.EndTime = float64(v) / 60000.
	}

	switch version {
	case 81:
		if m.YUnits, err = pascalString(header, 244, 64, "y_units"); err != nil {
			return m, err
		}
	case 131:
		m.YUnits = utf16PascalString(header, 3093)
	case 130, 179:
		m.YUnits = utf16PascalString(header, 4172)
	}

	var rawRunDate string
	switch version {
	case 0, 1, 2, 102:
		if rawRunDate, err = pascalString(header, 178, 60, "run_date"); err != nil {
			return m, err
		}
	case 130, 131, 179:
		rawRunDate = utf16PascalString(header, 2391)
	}
	rawRunDate = strings.TrimSpace(rawRunDate)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, rawRunDate); err == nil {
			m.RunDate, m.HasRunDate = t, true
			break
		}
	}

	return m, nil
}

// pascalString reads a one-byte-length-prefixed ASCII string at offset in
// header, capped at maxLen bytes of payload.
func pascalString(header []byte, offset, maxLen int, field string) (string, error) {
	if offset >= len(header) {
		return "", entab.Incomplete("chemstation header too short for " + field)
	}
	n := int(header[offset])
	if n > maxLen || offset+1+n > len(header) {
		return "", entab.Malformed("invalid " + field + " length")
	}
	return strings.TrimSpace(string(header[offset+1 : offset+1+n])), nil
}

// utf16PascalString reads a one-byte-length-prefixed (length in UTF-16 code
// units) little-endian UTF-16 string at offset, lossily replacing unpaired
// surrogates the same way the source's manual decode_utf16 loop does.
func utf16PascalString(header []byte, offset int) string {
	if offset >= len(header) {
		return ""
	}
	n := int(header[offset])
	units := make([]uint16, 0, n)
	for i := 0; i < n; i++ {
		lo := offset + 1 + 2*i
		if lo+1 >= len(header) {
			break
		}
		units = append(units, uint16(header[lo])|uint16(header[lo+1])<<8)
	}
	return decodeUTF16Lossy(units)
}

// decodeUTF16Lossy mirrors core::char::decode_utf16's replacement-character
// fallback for unpaired surrogates, rather than x/text's stricter handling.
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
	return strings.TrimRight(b.String(), "\x00")
}

// metadataMap converts Metadata into the reader-facing entab.Metadata map.
func metadataMap(m Metadata) entab.Metadata {
	md := entab.Metadata{
		"start_time":        entab.FloatValue(m.StartTime),
		"end_time":          entab.FloatValue(m.EndTime),
		"signal_name":       entab.StringValue(m.SignalName),
		"offset_correction": entab.FloatValue(m.OffsetCorrection),
		"mult_correction":   entab.FloatValue(m.MultCorrection),
		"sequence":          entab.IntValue(int64(m.Sequence)),
		"vial":              entab.IntValue(int64(m.Vial)),
		"replicate":         entab.IntValue(int64(m.Replicate)),
		"sample":            entab.StringValue(m.Sample),
		"description":       entab.StringValue(m.Description),
		"operator":          entab.StringValue(m.Operator),
		"instrument":        entab.StringValue(m.Instrument),
		"method":            entab.StringValue(m.Method),
		"y_units":           entab.StringValue(m.YUnits),
	}
	if m.HasRunDate {
		md["run_date"] = entab.TimeValue(m.RunDate)
	} else {
		md["run_date"] = entab.Null
	}
	return md
}
