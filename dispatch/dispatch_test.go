package dispatch

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"testing"

	"github.com/bovee/entab"
	"github.com/bovee/entab/filetype"
)

func TestDispatchFasta(t *testing.T) {
	rd, ft, outer, err := New(context.Background(), bytes.NewReader([]byte(">id\nACGT\n")))
	if err != nil {
		t.Fatal(err)
	}
	if ft != filetype.Fasta {
		t.Fatalf("ft = %v, want Fasta", ft)
	}
	if outer != nil {
		t.Fatalf("outer = %v, want nil", outer)
	}
	if got := rd.Headers(); len(got) != 2 || got[0] != "id" {
		t.Fatalf("Headers = %v", got)
	}
	row, err := rd.Next()
	if err != nil {
		t.Fatal(err)
	}
	if len(row) != 2 || row[0].String() != "id" {
		t.Fatalf("row = %+v", row)
	}
	row, err = rd.Next()
	if err != nil {
		t.Fatal(err)
	}
	if row != nil {
		t.Fatalf("expected clean end of stream, got %+v", row)
	}
}

func TestDispatchGzipFastaResniff(t *testing.T) {
	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	if _, err := gw.Write([]byte(">id\nACGT\n")); err != nil {
		t.Fatal(err)
	}
	if err := gw.Close(); err != nil {
		t.Fatal(err)
	}

	rd, ft, outer, err := New(context.Background(), &buf)
	if err != nil {
		t.Fatal(err)
	}
	if ft != filetype.Fasta {
		t.Fatalf("ft = %v, want Fasta", ft)
	}
	if outer == nil || *outer != filetype.Gzip {
		t.Fatalf("outer = %v, want Gzip", outer)
	}
	row, err := rd.Next()
	if err != nil {
		t.Fatal(err)
	}
	if len(row) != 2 || row[0].String() != "id" {
		t.Fatalf("row = %+v", row)
	}
}

func TestDispatchFormatOverride(t *testing.T) {
	// The override skips sniffing entirely, so this works even though the
	// bytes alone would sniff as FASTA anyway - the point is no sniff ran.
	rd, ft, outer, err := New(context.Background(), bytes.NewReader([]byte(">id\nACGT\n")), entab.WithFormat(filetype.Fasta))
	if err != nil {
		t.Fatal(err)
	}
	if ft != filetype.Fasta {
		t.Fatalf("ft = %v, want Fasta", ft)
	}
	if outer != nil {
		t.Fatalf("outer = %v, want nil", outer)
	}
	if _, err := rd.Next(); err != nil {
		t.Fatal(err)
	}
}

func TestDispatchUnsupportedFormat(t *testing.T) {
	// A fifth byte is required: filetype.FromMagic only inspects its 4-byte
	// magic table once more than 4 bytes are available.
	_, ft, _, err := New(context.Background(), bytes.NewReader([]byte("BAM\x01\x00")))
	if ft != filetype.Bam {
		t.Fatalf("ft = %v, want Bam", ft)
	}
	if !errors.Is(err, entab.KindUnsupported) {
		t.Fatalf("err = %v, want a KindUnsupported error", err)
	}
}

func TestDispatchUnknownFormat(t *testing.T) {
	_, ft, _, err := New(context.Background(), bytes.NewReader([]byte("this is not any recognized format at all")))
	if ft != filetype.Unknown {
		t.Fatalf("ft = %v, want Unknown", ft)
	}
	if !errors.Is(err, entab.KindMalformed) {
		t.Fatalf("err = %v, want a KindMalformed error", err)
	}
}
