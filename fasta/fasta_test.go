package fasta

import (
	"bytes"
	"testing"
)

func readAll(t *testing.T, data []byte) []*Record {
	t.Helper()
	r := NewReaderFromSlice(data)
	var recs []*Record
	for {
		rec, err := r.Next()
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if rec == nil {
			break
		}
		recs = append(recs, rec)
	}
	return recs
}

func TestBasic(t *testing.T) {
	recs := readAll(t, []byte(">id\nACGT\n>id2\nTGCA"))
	if len(recs) != 2 {
		t.Fatalf("got %d records, want 2", len(recs))
	}
	if recs[0].ID != "id" || !bytes.Equal(recs[0].Sequence, []byte("ACGT")) {
		t.Errorf("record 0 = %+v", recs[0])
	}
	if recs[1].ID != "id2" || !bytes.Equal(recs[1].Sequence, []byte("TGCA")) {
		t.Errorf("record 1 = %+v", recs[1])
	}
}

func TestMultiline(t *testing.T) {
	recs := readAll(t, []byte(">id\nAC\nGT\n>id2\nT\nG\nC\nA"))
	if len(recs) != 2 {
		t.Fatalf("got %d records, want 2", len(recs))
	}
	if !bytes.Equal(recs[0].Sequence, []byte("ACGT")) {
		t.Errorf("record 0 sequence = %q", recs[0].Sequence)
	}
	if !bytes.Equal(recs[1].Sequence, []byte("TGCA")) {
		t.Errorf("record 1 sequence = %q", recs[1].Sequence)
	}
}

func TestCRLF(t *testing.T) {
	recs := readAll(t, []byte(">id\r\nACGT\r\nAAAA\r\n>id2\r\nTGCA\r\n"))
	if len(recs) != 2 {
		t.Fatalf("got %d records, want 2", len(recs))
	}
	if !bytes.Equal(recs[0].Sequence, []byte("ACGTAAAA")) {
		t.Errorf("record 0 sequence = %q", recs[0].Sequence)
	}
}

func TestShortInputErrors(t *testing.T) {
	r := NewReaderFromSlice([]byte(">id"))
	if _, err := r.Next(); err == nil {
		t.Fatal("expected error on truncated header")
	}
}

func TestEmptyFields(t *testing.T) {
	recs := readAll(t, []byte(">hd\n\n>\n\n"))
	if len(recs) != 2 {
		t.Fatalf("got %d records, want 2", len(recs))
	}
	if recs[0].ID != "hd" || len(recs[0].Sequence) != 0 {
		t.Errorf("record 0 = %+v", recs[0])
	}
	if recs[1].ID != "" || len(recs[1].Sequence) != 0 {
		t.Errorf("record 1 = %+v", recs[1])
	}
}
