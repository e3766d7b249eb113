package compress

import (
	"bytes"
	"compress/gzip"
	"context"
	"io"
	"testing"

	"github.com/bovee/entab/filetype"
)

func TestDecompressGzipFasta(t *testing.T) {
	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	if _, err := gw.Write([]byte(">seq1\nACGT\n")); err != nil {
		t.Fatal(err)
	}
	if err := gw.Close(); err != nil {
		t.Fatal(err)
	}

	stream, inner, outer, err := Decompress(context.Background(), &buf)
	if err != nil {
		t.Fatal(err)
	}
	if outer == nil || *outer != filetype.Gzip {
		t.Fatalf("outer = %v, want Gzip", outer)
	}
	if inner != filetype.Fasta {
		t.Fatalf("inner = %v, want Fasta", inner)
	}
	got, err := io.ReadAll(stream)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != ">seq1\nACGT\n" {
		t.Fatalf("got %q", got)
	}
}

func TestSniffUncompressed(t *testing.T) {
	stream, ft, outer, err := Decompress(context.Background(), bytes.NewReader([]byte(">seq1\nACGT\n")))
	if err != nil {
		t.Fatal(err)
	}
	if outer != nil {
		t.Fatalf("outer = %v, want nil", outer)
	}
	if ft != filetype.Fasta {
		t.Fatalf("ft = %v, want Fasta", ft)
	}
	got, _ := io.ReadAll(stream)
	if string(got) != ">seq1\nACGT\n" {
		t.Fatalf("got %q", got)
	}
}
