package chemstation

import (
	"bytes"
	"encoding/binary"
	"errors"
	"strings"
	"testing"

	"github.com/bovee/entab"
)

// buildHeader constructs a minimal, valid Agilent header of headerLen bytes
// with every Pascal string zero-length, the given version tag, and the
// start/end time (raw big-endian minutes*60000) and scan count populated.
func buildHeader(headerLen int, msFormat bool, version uint32, startTime, endTime int32, nScans uint32) []byte {
	h := make([]byte, headerLen)

	var raw uint32
	if msFormat {
		raw = uint32(headerLen)/2 + 1
	} else {
		raw = uint32(headerLen)/512 + 1
	}
	binary.BigEndian.PutUint32(h[264:268], raw)
	binary.BigEndian.PutUint32(h[248:252], version)
	binary.BigEndian.PutUint32(h[282:286], uint32(startTime))
	binary.BigEndian.PutUint32(h[286:290], uint32(endTime))
	binary.BigEndian.PutUint32(h[278:282], nScans)
	return h
}

func TestFidDeltaAccumulation(t *testing.T) {
	header := buildHeader(512, false, 2, 12000, 24000, 0)
	var data bytes.Buffer
	data.Write(header)
	binary.Write(&data, binary.BigEndian, int16(100))

	r, err := NewFidReader(bytes.NewReader(data.Bytes()))
	if err != nil {
		t.Fatalf("NewFidReader: %v", err)
	}
	rec, err := r.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if rec == nil {
		t.Fatal("expected a record")
	}
	if got, want := rec.Time, 0.2; got != want {
		t.Errorf("time = %v, want %v", got, want)
	}
	if got, want := rec.Intensity, 100.; got != want {
		t.Errorf("intensity = %v, want %v", got, want)
	}
}

func TestFidAbsoluteResetSentinel(t *testing.T) {
	header := buildHeader(512, false, 2, 0, 0, 0)
	var data bytes.Buffer
	data.Write(header)
	binary.Write(&data, binary.BigEndian, int16(32767))
	binary.Write(&data, binary.BigEndian, int32(1))
	binary.Write(&data, binary.BigEndian, uint16(5))

	r, err := NewFidReader(bytes.NewReader(data.Bytes()))
	if err != nil {
		t.Fatalf("NewFidReader: %v", err)
	}
	rec, err := r.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if got, want := rec.Intensity, 65534.+5.; got != want {
		t.Errorf("intensity = %v, want %v", got, want)
	}
}

func TestMsPackedIntensity(t *testing.T) {
	header := buildHeader(512, true, 2, 0, 0, 1)
	var data bytes.Buffer
	data.Write(header)
	binary.Write(&data, binary.BigEndian, uint16(16)) // 14 + 2*1 mzs
	binary.Write(&data, binary.BigEndian, uint32(600000))
	data.Write(make([]byte, 12))
	binary.Write(&data, binary.BigEndian, uint16(400)) // mz = 20.0
	// packed intensity: mantissa=1234, exponent=2 -> top 2 bits = 0b10
	raw := uint16(1234) | uint16(2)<<14
	binary.Write(&data, binary.BigEndian, raw)
	data.Write(make([]byte, 10)) // footer

	r, err := NewMsReader(bytes.NewReader(data.Bytes()))
	if err != nil {
		t.Fatalf("NewMsReader: %v", err)
	}
	rec, err := r.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if rec == nil {
		t.Fatal("expected a record")
	}
	if got, want := rec.Mz, 20.; got != want {
		t.Errorf("mz = %v, want %v", got, want)
	}
	wantIntensity := 1234. * 64. // 8^2
	if got := rec.Intensity; got != wantIntensity {
		t.Errorf("intensity = %v, want %v", got, wantIntensity)
	}
	if got, want := rec.Time, 10.; got != want {
		t.Errorf("time = %v, want %v", got, want)
	}

	if rec2, err := r.Next(); err != nil || rec2 != nil {
		t.Fatalf("expected clean end of stream, got %+v, %v", rec2, err)
	}
}

func TestMsTruncatedFileSurfacesErrorContext(t *testing.T) {
	// Header claims two scans; only one full scan plus one stray byte of
	// a second scan's header is actually present.
	header := buildHeader(512, true, 2, 0, 0, 2)
	var data bytes.Buffer
	data.Write(header)
	binary.Write(&data, binary.BigEndian, uint16(16)) // 14 + 2*1 mzs
	binary.Write(&data, binary.BigEndian, uint32(600000))
	data.Write(make([]byte, 12))
	binary.Write(&data, binary.BigEndian, uint16(400))
	raw := uint16(1234) | uint16(2)<<14
	binary.Write(&data, binary.BigEndian, raw)
	data.Write(make([]byte, 10)) // footer for scan 1
	data.WriteByte(0x00)         // one stray byte of scan 2's header

	r, err := NewMsReader(bytes.NewReader(data.Bytes()))
	if err != nil {
		t.Fatalf("NewMsReader: %v", err)
	}
	if _, err := r.Next(); err != nil {
		t.Fatalf("Next (scan 1): %v", err)
	}

	_, err = r.Next()
	if err == nil {
		t.Fatal("expected an error reading past the truncated second scan")
	}
	var entabErr *entab.Error
	if !errors.As(err, &entabErr) {
		t.Fatalf("error is %T, want *entab.Error", err)
	}
	if entabErr.Offset < 0 {
		t.Errorf("Offset = %d, want >= 0", entabErr.Offset)
	}
	if entabErr.RecordIndex < 0 {
		t.Errorf("RecordIndex = %d, want >= 0", entabErr.RecordIndex)
	}
	msg := entabErr.Error()
	if !strings.Contains(msg, "^^") {
		t.Errorf("Error() = %q, expected a hex/ASCII context dump with a caret marker", msg)
	}
}

func TestMwdSignalNameParsing(t *testing.T) {
	if got := parseMwdSignalName("MWD A, Sig=210,5 Ref=360,100"); got != "210" {
		t.Errorf("signal = %q, want 210", got)
	}
	if got := parseMwdSignalName("no signal here"); got != "0" {
		t.Errorf("signal = %q, want 0", got)
	}
}

func TestDadWavelengthScan(t *testing.T) {
	header := buildHeader(512, false, 2, 0, 0, 1)
	var data bytes.Buffer
	data.Write(header)
	binary.Write(&data, binary.LittleEndian, uint16(67)) // scan type
	binary.Write(&data, binary.LittleEndian, uint16(24)) // len -> 2 bytes left
	binary.Write(&data, binary.LittleEndian, uint32(600000))
	binary.Write(&data, binary.LittleEndian, uint16(4000)) // wv start
	binary.Write(&data, binary.LittleEndian, uint16(4000)) // wv end (unused)
	binary.Write(&data, binary.LittleEndian, uint16(20))   // wv step (unused here)
	data.Write(make([]byte, 8))
	binary.Write(&data, binary.LittleEndian, int16(100))

	r, err := NewDadReader(bytes.NewReader(data.Bytes()))
	if err != nil {
		t.Fatalf("NewDadReader: %v", err)
	}
	rec, err := r.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if rec == nil {
		t.Fatal("expected a record")
	}
	if got, want := rec.Wavelength, 200.; got != want {
		t.Errorf("wavelength = %v, want %v", got, want)
	}
	if got, want := rec.Time, 10.; got != want {
		t.Errorf("time = %v, want %v", got, want)
	}
	if got, want := rec.Intensity, 0.05; got != want {
		t.Errorf("intensity = %v, want %v", got, want)
	}
}

func TestNewUvWavelengthScan(t *testing.T) {
	header := buildHeader(512, false, 2, 0, 0, 1)
	var data bytes.Buffer
	data.Write(header)
	data.Write(make([]byte, 4))
	binary.Write(&data, binary.LittleEndian, uint32(600000))
	binary.Write(&data, binary.LittleEndian, uint16(4000)) // wv start
	binary.Write(&data, binary.LittleEndian, uint16(4000)) // wv end
	binary.Write(&data, binary.LittleEndian, uint16(20))   // wv step
	data.Write(make([]byte, 8))
	binary.Write(&data, binary.LittleEndian, int16(100))

	r, err := NewNewUvReader(bytes.NewReader(data.Bytes()))
	if err != nil {
		t.Fatalf("NewNewUvReader: %v", err)
	}
	rec, err := r.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if rec == nil {
		t.Fatal("expected a record")
	}
	if got, want := rec.Time, 10.; got != want {
		t.Errorf("time = %v, want %v", got, want)
	}
	if got, want := rec.Wavelength, 200.; got != want {
		t.Errorf("wavelength = %v, want %v", got, want)
	}
	if got, want := rec.Intensity, 0.05; got != want {
		t.Errorf("intensity = %v, want %v", got, want)
	}
}
