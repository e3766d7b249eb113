package fastq

import (
	"bytes"
	"fmt"
	"testing"
)

func buildFastq(n int) []byte {
	var buf bytes.Buffer
	for i := 0; i < n; i++ {
		fmt.Fprintf(&buf, "@read%d\nACGT\n+\nIIII\n", i)
	}
	return buf.Bytes()
}

func TestDecodeParallelMatchesSerial(t *testing.T) {
	data := buildFastq(97) // deliberately not a multiple of the worker count
	serial := readAll(t, data)

	for _, workers := range []int{1, 2, 3, 8} {
		parallel, err := DecodeParallel(data, workers)
		if err != nil {
			t.Fatalf("workers=%d: DecodeParallel: %v", workers, err)
		}
		if len(parallel) != len(serial) {
			t.Fatalf("workers=%d: got %d records, want %d", workers, len(parallel), len(serial))
		}
		for i := range serial {
			if parallel[i].ID != serial[i].ID ||
				!bytes.Equal(parallel[i].Sequence, serial[i].Sequence) ||
				!bytes.Equal(parallel[i].Quality, serial[i].Quality) {
				t.Fatalf("workers=%d: record %d = %+v, want %+v", workers, i, parallel[i], serial[i])
			}
		}
	}
}

func TestDecodeParallelEmpty(t *testing.T) {
	recs, err := DecodeParallel(nil, 4)
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 0 {
		t.Fatalf("got %d records, want 0", len(recs))
	}
}
