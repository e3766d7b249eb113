package tsv

import (
	"strings"
	"testing"

	"github.com/bovee/entab"
)

func TestBasicReader(t *testing.T) {
	r, err := NewReader(strings.NewReader("header\nrow\nanother row"), Params{})
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	if got := r.Headers(); len(got) != 1 || got[0] != "header" {
		t.Fatalf("headers = %v, want [header]", got)
	}

	var rows []string
	for {
		rec, err := r.Next()
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if rec == nil {
			break
		}
		rows = append(rows, rec.Values[0].String())
	}
	if want := []string{"row", "another row"}; !equalStrings(rows, want) {
		t.Errorf("rows = %v, want %v", rows, want)
	}
}

func TestTwoColumnReader(t *testing.T) {
	r, err := NewReader(strings.NewReader("header\tcol1\nrow\t2\nanother row\t3"), Params{})
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	if got := r.Headers(); !equalStrings(got, []string{"header", "col1"}) {
		t.Fatalf("headers = %v", got)
	}

	rec, err := r.Next()
	if err != nil || rec == nil {
		t.Fatalf("Next: %v, %v", rec, err)
	}
	if rec.Values[0].String() != "row" || rec.Values[1].Int() != 2 {
		t.Errorf("row 0 = %v", rec.Values)
	}
}

func TestSniffParamsTabDelimited(t *testing.T) {
	delim, quote, skip := sniffParams([]byte("test\tthis\theader\n1\t2\t3"), Params{})
	if delim != '\t' || quote != '"' || skip != 0 {
		t.Errorf("got delim=%q quote=%q skip=%d", delim, quote, skip)
	}
}

func TestSniffParamsPipeDelimited(t *testing.T) {
	delim, quote, skip := sniffParams([]byte("1,0|2,0|3,0\n4,0|5,0|6,0"), Params{})
	if delim != '|' || quote != '"' || skip != 0 {
		t.Errorf("got delim=%q quote=%q skip=%d", delim, quote, skip)
	}
}

func TestSniffParamsCommentSkip(t *testing.T) {
	delim, quote, skip := sniffParams([]byte("this is a comment\n1,2,'a'\n4,5,'b'\n6,7,'c'"), Params{})
	if delim != ',' || quote != '\'' || skip != 1 {
		t.Errorf("got delim=%q quote=%q skip=%d", delim, quote, skip)
	}
}

func TestEuropeanFloatInference(t *testing.T) {
	data := "a\tb\tc\n1,0\t2,0\t3,0\n4,0\t5,0\t6,0"
	r, err := NewReader(strings.NewReader(data), Params{})
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}

	rec, err := r.Next()
	if err != nil || rec == nil {
		t.Fatalf("Next: %v, %v", rec, err)
	}
	for i, want := range []float64{1.0, 2.0, 3.0} {
		if rec.Values[i].Kind != entab.KindFloat {
			t.Fatalf("column %d kind = %v, want float", i, rec.Values[i].Kind)
		}
		if got := rec.Values[i].Float64(); got != want {
			t.Errorf("column %d = %v, want %v", i, got, want)
		}
	}
}

func TestSplitLineQuoted(t *testing.T) {
	fields, err := splitLine([]byte(`1,"2,3",4`), ',', '"')
	if err != nil {
		t.Fatalf("splitLine: %v", err)
	}
	if !equalStrings(fields, []string{"1", "2,3", "4"}) {
		t.Errorf("fields = %v", fields)
	}
}

func TestSplitLineDoubledQuote(t *testing.T) {
	fields, err := splitLine([]byte(`1,"2,""3""",4`), ',', '"')
	if err != nil {
		t.Fatalf("splitLine: %v", err)
	}
	if !equalStrings(fields, []string{"1", `2,"3"`, "4"}) {
		t.Errorf("fields = %v", fields)
	}
}

func TestSplitLineUnclosedQuoteErrors(t *testing.T) {
	if _, err := splitLine([]byte(`"`), ',', '"'); err == nil {
		t.Error("expected an error for an unclosed quote")
	}
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
