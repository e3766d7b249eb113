package png

import (
	"bytes"
	"testing"
)

// minimalPNG is a 1x1 truecolor image laid out like the minimal PNG from
// Wikipedia's PNG article, with its IDAT re-compressed so that the single
// scanline is 04 FF 00 00: filtered with type 4 (Paeth), decoding to
// solid red.
var minimalPNG = []byte{
	0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0x00, 0x00, 0x00, 0x0D, 0x49, 0x48,
	0x44, 0x52, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01, 0x08, 0x02, 0x00, 0x00,
	0x00, 0x90, 0x77, 0x53, 0xDE, 0x00, 0x00, 0x00, 0x0C, 0x49, 0x44, 0x41, 0x54, 0x78,
	0x9C, 0x63, 0xF9, 0xCF, 0xC0, 0x00, 0x00, 0x03, 0x11, 0x01, 0x04, 0xC5, 0xCE, 0xE1,
	0xC5, 0x00, 0x00, 0x00, 0x00, 0x49, 0x45, 0x4E, 0x44, 0xAE, 0x42, 0x60, 0x82,
}

func TestPaethFilterSinglePixel(t *testing.T) {
	r, err := NewReader(bytes.NewReader(minimalPNG))
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	meta := r.Metadata()
	if got := meta["width"].Int(); got != 1 {
		t.Errorf("width = %d, want 1", got)
	}
	if got := meta["height"].Int(); got != 1 {
		t.Errorf("height = %d, want 1", got)
	}

	rec, err := r.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if rec == nil {
		t.Fatal("expected a pixel record")
	}
	if rec.X != 0 || rec.Y != 0 {
		t.Errorf("pos = (%d, %d), want (0, 0)", rec.X, rec.Y)
	}
	if rec.Red != 65535 || rec.Green != 0 || rec.Blue != 0 || rec.Alpha != 65535 {
		t.Errorf("color = (%d, %d, %d, %d), want (65535, 0, 0, 65535)", rec.Red, rec.Green, rec.Blue, rec.Alpha)
	}

	rec, err = r.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if rec != nil {
		t.Errorf("expected end of stream, got %+v", rec)
	}
}
