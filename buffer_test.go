package entab

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"go.uber.org/mock/gomock"
)

func TestNewReadBufferEOF(t *testing.T) {
	rb, err := NewReadBuffer(bytes.NewReader([]byte("hi")), 0)
	if err != nil {
		t.Fatal(err)
	}
	if rb.EOF {
		t.Fatal("EOF set after an initial read that returned data and no io.EOF")
	}
	if string(rb.Bytes()) != "hi" {
		t.Fatalf("Bytes() = %q", rb.Bytes())
	}
}

func TestNewReadBufferIOError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	mr := NewMockReader(ctrl)
	wantErr := errors.New("disk on fire")
	mr.EXPECT().Read(gomock.Any()).Return(0, wantErr)

	_, err := NewReadBuffer(mr, 16)
	if err == nil {
		t.Fatal("expected an error")
	}
	var e *Error
	if !errors.As(err, &e) {
		t.Fatalf("error is %T, want *Error", err)
	}
	if e.Kind != KindIO {
		t.Errorf("Kind = %v, want KindIO", e.Kind)
	}
}

func TestRefillDoublesCapacityWhenNothingConsumed(t *testing.T) {
	rb, err := NewReadBuffer(bytes.NewReader([]byte("ab")), 4)
	if err != nil {
		t.Fatal(err)
	}
	startCap := cap(rb.Bytes())
	if _, err := rb.Refill(); err != nil {
		t.Fatal(err)
	}
	if got := cap(rb.Bytes()); got != startCap*2 {
		t.Errorf("cap after refill = %d, want %d", got, startCap*2)
	}
}

// TestRefillAcrossShortReads drives ReadBuffer with a mocked io.Reader that
// hands back one byte per call, so a record spanning more than one
// underlying Read only becomes visible after several Refill calls.
func TestRefillAcrossShortReads(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	mr := NewMockReader(ctrl)

	chunks := [][]byte{{'h'}, {'e'}, {'l'}, {'l'}, {'o'}}
	for _, c := range chunks {
		c := c
		mr.EXPECT().Read(gomock.Any()).DoAndReturn(func(p []byte) (int, error) {
			return copy(p, c), nil
		})
	}
	mr.EXPECT().Read(gomock.Any()).Return(0, io.EOF)

	rb, err := NewReadBuffer(mr, 1)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < len(chunks)-1; i++ {
		if _, err := rb.Refill(); err != nil {
			t.Fatal(err)
		}
	}
	if !bytes.Equal(rb.Bytes(), []byte("hello")) {
		t.Fatalf("Bytes() = %q, want %q", rb.Bytes(), "hello")
	}
	if rb.EOF {
		t.Fatal("EOF set before the underlying reader actually returned io.EOF")
	}
	if _, err := rb.Refill(); err != nil {
		t.Fatal(err)
	}
	if !rb.EOF {
		t.Fatal("expected EOF true after the reader returns io.EOF")
	}
}

// lineState/lineParse/lineGet exercise NextRecord/ReadHeader with a
// trivial newline-delimited record shape, independent of any format
// package, so the refill-driving contract can be tested on its own.
type lineState struct{ last string }

func lineParse(buf []byte, eof bool, consumed *int, _ *lineState) (bool, error) {
	nl := bytes.IndexByte(buf, '\n')
	if nl < 0 {
		if eof && len(buf) > 0 {
			*consumed += len(buf)
			return true, nil
		}
		if eof {
			return false, nil
		}
		return false, Incomplete("no newline yet")
	}
	*consumed += nl + 1
	return true, nil
}

func lineGet(rec *string, buf []byte, _ *lineState) error {
	*rec = string(bytes.TrimSuffix(buf, []byte("\n")))
	return nil
}

func TestNextRecordCleanEndOfStream(t *testing.T) {
	rb := NewReadBufferFromSlice([]byte("one\ntwo\n"))
	var st lineState
	var got []string
	for {
		rec, err := NextRecord(rb, &st, lineParse, lineGet)
		if err != nil {
			t.Fatal(err)
		}
		if rec == nil {
			break
		}
		got = append(got, *rec)
	}
	if len(got) != 2 || got[0] != "one" || got[1] != "two" {
		t.Fatalf("got %v", got)
	}
}

func TestReadHeaderPersistsState(t *testing.T) {
	rb := NewReadBufferFromSlice([]byte("header\n"))
	var st lineState
	if err := ReadHeader(rb, &st, lineParse, func(rec *lineState, buf []byte, _ *lineState) error {
		rec.last = string(bytes.TrimSuffix(buf, []byte("\n")))
		return nil
	}); err != nil {
		t.Fatal(err)
	}
	if st.last != "header" {
		t.Fatalf("st.last = %q, want %q", st.last, "header")
	}
}

func TestIsIncomplete(t *testing.T) {
	if !IsIncomplete(Incomplete("need more")) {
		t.Error("Incomplete(...) should report IsIncomplete == true")
	}
	if IsIncomplete(Malformed("nope")) {
		t.Error("Malformed(...) should report IsIncomplete == false")
	}
	if IsIncomplete(nil) {
		t.Error("nil should report IsIncomplete == false")
	}
}
