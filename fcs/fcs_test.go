package fcs

import (
	"bytes"
	"fmt"
	"testing"
)

// buildFCSSegment assembles one FCS3.1 HEADER+TEXT+DATA region: a
// 58-byte offset preamble (version, analysis offsets left at 0, text
// and data offsets computed from the assembled content) followed by the
// delimiter-escaped TEXT segment and the raw DATA bytes. pairs are
// written in order as alternating key/value tokens; delim must not
// appear in any key or value.
func buildFCSSegment(t *testing.T, pairs [][2]string, delim byte, data []byte) []byte {
	t.Helper()

	var text bytes.Buffer
	text.WriteByte(delim)
	for _, kv := range pairs {
		text.WriteString(kv[0])
		text.WriteByte(delim)
		text.WriteString(kv[1])
		text.WriteByte(delim)
	}

	const preambleLen = 58
	textStart := preambleLen
	textEnd := textStart + text.Len() - 1
	dataStart := textEnd + 1
	dataEnd := dataStart + len(data) - 1
	if len(data) == 0 {
		dataEnd = dataStart
	}

	buf := make([]byte, dataStart+len(data))
	copy(buf[0:10], []byte("FCS3.1    "))
	copy(buf[10:18], []byte(fmt.Sprintf("%8d", textStart)))
	copy(buf[18:26], []byte(fmt.Sprintf("%8d", textEnd)))
	copy(buf[26:34], []byte(fmt.Sprintf("%8d", dataStart)))
	copy(buf[34:42], []byte(fmt.Sprintf("%8d", dataEnd)))
	copy(buf[42:50], []byte(fmt.Sprintf("%8d", 0)))
	copy(buf[50:58], []byte(fmt.Sprintf("%8d", 0)))
	copy(buf[58:], text.Bytes())
	copy(buf[dataStart:], data)
	return buf
}

func basicSegmentPairs() [][2]string {
	return [][2]string{
		{"$PAR", "1"},
		{"$P1B", "16"},
		{"$P1N", "FL1"},
		{"$P1R", "65536"},
		{"$DATATYPE", "I"},
		{"$MODE", "L"},
		{"$BYTEORD", "1,2"},
		{"$TOT", "2"},
	}
}

func TestBasicReader(t *testing.T) {
	data := []byte{0x01, 0x00, 0x02, 0x00} // two little-endian uint16 events: 1, 2
	segment := buildFCSSegment(t, basicSegmentPairs(), '|', data)

	r, err := NewReader(bytes.NewReader(segment))
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	if got, want := r.Headers(), []string{"FL1"}; len(got) != 1 || got[0] != want[0] {
		t.Errorf("Headers() = %v, want %v", got, want)
	}

	rec, err := r.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if rec == nil {
		t.Fatal("expected a record")
	}
	if got := rec.Values[0].Int(); got != 1 {
		t.Errorf("event 1 value = %d, want 1", got)
	}

	rec, err = r.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if rec == nil || rec.Values[0].Int() != 2 {
		t.Fatalf("event 2 value = %+v, want 2", rec)
	}

	rec, err = r.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if rec != nil {
		t.Errorf("expected end of stream, got %+v", rec)
	}
}

func TestNextDataChain(t *testing.T) {
	firstData := []byte{0x0A, 0x00} // one little-endian uint16 event: 10
	firstPairs := [][2]string{
		{"$PAR", "1"},
		{"$P1B", "16"},
		{"$P1N", "FL1"},
		{"$P1R", "65536"},
		{"$DATATYPE", "I"},
		{"$MODE", "L"},
		{"$BYTEORD", "1,2"},
		{"$TOT", "1"},
		{"$DATE", "01-Jan-2020"},
	}

	// Size the first segment with a same-width placeholder $NEXTDATA so
	// that firstLen is its final length, then fill in the real offset.
	firstPairs = append(firstPairs, [2]string{"$NEXTDATA", fmt.Sprintf("%8d", 0)})
	firstLen := len(buildFCSSegment(t, firstPairs, '|', firstData))

	secondData := []byte{0x2A} // one 8-bit event: 42
	secondPairs := [][2]string{
		{"$PAR", "1"},
		{"$P1B", "8"},
		{"$P1N", "FL2"},
		{"$P1R", "256"},
		{"$DATATYPE", "I"},
		{"$MODE", "L"},
		{"$TOT", "1"},
		{"$DATE", "02-Jan-2020"},
	}
	second := buildFCSSegment(t, secondPairs, '|', secondData)

	firstPairs[len(firstPairs)-1][1] = fmt.Sprintf("%8d", firstLen)
	first := buildFCSSegment(t, firstPairs, '|', firstData)

	full := append(append([]byte{}, first...), second...)

	r, err := NewReader(bytes.NewReader(full))
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	if got := r.Metadata()["date"].Time().Day(); got != 1 {
		t.Errorf("first segment metadata day = %d, want 1", got)
	}

	rec, err := r.Next()
	if err != nil {
		t.Fatalf("Next (segment 1): %v", err)
	}
	if rec == nil || rec.Values[0].Int() != 10 {
		t.Fatalf("segment 1 event = %+v, want 10", rec)
	}

	rec, err = r.Next()
	if err != nil {
		t.Fatalf("Next (segment 2): %v", err)
	}
	if rec == nil {
		t.Fatal("expected segment 2's event")
	}
	if got := rec.Values[0].Int(); got != 42 {
		t.Errorf("segment 2 event = %d, want 42", got)
	}
	if got, want := r.Headers(), "FL2"; len(got) != 1 || got[0] != want {
		t.Errorf("Headers() after chain = %v, want [%s]", got, want)
	}
	if got := r.Metadata()["date"].Time().Day(); got != 2 {
		t.Errorf("second segment metadata day = %d, want 2", got)
	}

	rec, err = r.Next()
	if err != nil {
		t.Fatalf("Next (eof): %v", err)
	}
	if rec != nil {
		t.Errorf("expected end of stream, got %+v", rec)
	}
}
