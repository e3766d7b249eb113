// Package tsv decodes delimiter-separated text: the delimiter, quote
// character, leading comment lines, and per-column type are all inferred
// from a sample of the data rather than declared up front.
package tsv

import (
	"strconv"
	"strings"

	"github.com/bovee/entab"
	"github.com/bovee/entab/internal/extract"
)

// candidateDelims are the bytes considered as a possible field delimiter,
// in the order their running stats are tracked. Space is last and held to
// a higher bar since it's common as incidental whitespace rather than an
// intentional delimiter.
var candidateDelims = []byte("\t;:|~,^ ")

const defaultDelim = '\t'
const defaultQuote = '"'

// sampleSize bounds how much of the stream is buffered for sniffing
// delimiter/quote/skip-lines and column types before real row decoding
// begins.
const sampleSize = 65536

// streamingStats tracks a running mean/variance (Welford's algorithm) of
// per-line delimiter counts without retaining every observation.
type streamingStats struct {
	n    int
	mean float64
	m2   float64
}

func (s *streamingStats) update(val float64) {
	s.n++
	delta := val - s.mean
	s.mean += delta / float64(s.n)
	delta2 := val - s.mean
	s.m2 += delta * delta2
}

func (s *streamingStats) variance() float64 {
	if s.n == 0 {
		return 0
	}
	return s.m2 / float64(s.n)
}

// Params overrides auto-detection for any subset of the delimiter, quote
// character, and leading comment-line count; unset fields are sniffed from
// the data sample.
type Params struct {
	DelimChar *byte
	QuoteChar *byte
	SkipLines *int
}

// countDelims tallies, for one line, how many times each candidate
// delimiter appears, and nudges quoteDiff positive for each double-quote
// seen and negative for each single-quote.
func countDelims(line []byte, stats []streamingStats, quoteDiff *int) {
	var counts [9]int
	for _, b := range line {
		idx := 8
		switch b {
		case '\t':
			idx = 0
		case ';':
			idx = 1
		case ':':
			idx = 2
		case '|':
			idx = 3
		case '~':
			idx = 4
		case ',':
			idx = 5
		case '^':
			idx = 6
		case ' ':
			idx = 7
		case '\'':
			*quoteDiff--
			idx = 8
		case '"':
			*quoteDiff++
			idx = 8
		}
		counts[idx]++
	}
	for i := range stats {
		stats[i].update(float64(counts[i]))
	}
}

// sniffParams determines the delimiter, quote character, and leading
// skip-line count from a sample of the raw stream, honoring any
// caller-supplied overrides in params.
func sniffParams(data []byte, params Params) (byte, byte, int) {
	stats := make([]streamingStats, 8)
	quoteDiff := 0
	con := 0
	for {
		line, n, ok, err := extract.Line(data[con:], true)
		if !ok || err != nil {
			break
		}
		con += n
		countDelims(line, stats, &quoteDiff)
	}

	quoteChar := byte(defaultQuote)
	if quoteDiff < 0 {
		quoteChar = '\''
	}
	if params.QuoteChar != nil {
		quoteChar = *params.QuoteChar
	}

	var possible []delimCandidate
	for i, stat := range stats {
		threshold := 1.0
		if candidateDelims[i] == ' ' {
			threshold = 3.0
		}
		if stat.mean >= threshold {
			possible = append(possible, delimCandidate{stat.variance(), stat.mean, candidateDelims[i]})
		}
	}
	sortCandidates(possible)

	delimChar := byte(',')
	avgDelims := 0.0
	if len(possible) > 0 {
		delimChar, avgDelims = possible[0].delim, possible[0].mean
	}
	if params.DelimChar != nil {
		delimChar = *params.DelimChar
	}

	skipLines := 0
	con = 0
	lineIx := 0
	inData := 0
	for {
		line, n, ok, err := extract.Line(data[con:], true)
		if !ok || err != nil {
			break
		}
		con += n
		nDelims := strings.Count(string(line), string(delimChar))
		if diff := float64(nDelims) - avgDelims; diff > -1 && diff < 1 {
			if inData == 0 {
				skipLines = lineIx
			} else if inData == 5 {
				break
			}
			inData++
		} else {
			inData = 0
		}
		lineIx++
	}
	if params.SkipLines != nil {
		skipLines = *params.SkipLines
	}

	return delimChar, quoteChar, skipLines
}

// delimCandidate is one candidate delimiter's running stats, ordered by
// variance to pick the most consistent per-line count.
type delimCandidate struct {
	variance float64
	mean     float64
	delim    byte
}

// sortCandidates is a tiny insertion sort (candidate lists are at most 8
// long) ordering by ascending variance, matching the Rust source's
// `sort_by(|a, b| a.0.partial_cmp(&b.0)...)`.
func sortCandidates(c []delimCandidate) {
	for i := 1; i < len(c); i++ {
		for j := i; j > 0 && c[j].variance < c[j-1].variance; j-- {
			c[j], c[j-1] = c[j-1], c[j]
		}
	}
}

// splitLine splits line on delim, honoring quote: a field starting with
// quote runs until a quote immediately followed by delim (or end of line),
// with a doubled quote treated as a literal quote character rather than a
// closing one.
func splitLine(line []byte, delim, quote byte) ([]string, error) {
	var fields []string
	pos := 0
	for pos < len(line) {
		if line[pos] == quote {
			var b strings.Builder
			for {
				next := indexByte(line[pos+1:], quote)
				if next < 0 {
					return nil, entab.Malformed("unclosed delimiter")
				}
				closePos := pos + 1 + next
				if closePos+1 == len(line) || line[closePos+1] == delim {
					b.Write(line[pos+1 : closePos])
					pos = closePos + 1
					break
				}
				if line[closePos+1] != quote {
					return nil, entab.Malformed("quotes must start and end next to delimiters")
				}
				// a doubled quote: keep one copy as a literal character
				// and continue scanning for the real closing quote, resuming
				// the search just past the second quote of the pair.
				b.Write(line[pos+1 : closePos+1])
				pos = closePos + 1
			}
			fields = append(fields, b.String())
			pos++
			continue
		}
		next := indexByte(line[pos:], delim)
		if next < 0 {
			fields = append(fields, string(line[pos:]))
			pos = len(line)
		} else {
			fields = append(fields, string(line[pos:pos+next]))
			pos += next
		}
		pos++
	}
	if len(line) > 0 && line[len(line)-1] == delim {
		fields = append(fields, "")
	}
	return fields, nil
}

func indexByte(b []byte, c byte) int {
	for i, v := range b {
		if v == c {
			return i
		}
	}
	return -1
}

// fieldType is a bitmask of the column types still consistent with every
// sample seen so far; it only ever narrows.
type fieldType uint8

const (
	tsvStr   fieldType = 1
	tsvBool  fieldType = 2
	tsvFloat fieldType = 4
	tsvInt   fieldType = 8
	tsvDate  fieldType = 16 // never set by infer; reserved, matches upstream
)

func newFieldType() fieldType { return 0b11111 }

// infer narrows t to the subset of types field is still consistent with.
func (t *fieldType) infer(field string) {
	possible := tsvStr
	f := strings.TrimSpace(field)
	switch f {
	case "F", "f", "FALSE", "false", "False", "T", "t", "TRUE", "true", "True":
		possible |= tsvBool
	}

	numeric, nonnumeric, hasPeriod, hasComma := false, false, false, false
	for _, r := range f {
		switch {
		case r >= '0' && r <= '9':
			numeric = true
		case r == '.':
			hasPeriod = true
		case r == ',':
			hasComma = true
		case r == ' ' || r == '+' || r == '-':
		default:
			nonnumeric = true
		}
	}
	if numeric && !nonnumeric {
		if hasComma || hasPeriod {
			possible |= tsvFloat
		} else {
			possible |= tsvInt
		}
	}

	*t &= possible
}

// dominant picks the most specific surviving type: int and float outrank
// bool, which outranks plain string.
func (t fieldType) dominant() fieldType {
	for _, bit := range []fieldType{tsvDate, tsvInt, tsvFloat, tsvBool, tsvStr} {
		if t&bit != 0 {
			return bit
		}
	}
	return tsvStr
}

// coerce converts field into a Value of t's dominant type, falling back to
// a plain string value if the conversion fails.
func (t fieldType) coerce(field string) entab.Value {
	f := strings.TrimSpace(field)
	switch t.dominant() {
	case tsvBool:
		switch f {
		case "T", "t", "TRUE", "True", "true":
			return entab.BoolValue(true)
		default:
			return entab.BoolValue(false)
		}
	case tsvFloat:
		v, err := strconv.ParseFloat(f, 64)
		if err != nil && !strings.Contains(f, ".") && strings.Contains(f, ",") {
			// a column inferred as float purely from comma-decimal fields
			// (e.g. European "1,0") still has no period; retry with the
			// comma read as the decimal point rather than falling back to
			// a string, since that's the only reason this column was
			// typed as float in the first place.
			v, err = strconv.ParseFloat(strings.Replace(f, ",", ".", 1), 64)
		}
		if err != nil {
			return entab.StringValue(field)
		}
		return entab.FloatValue(v)
	case tsvInt:
		v, err := strconv.ParseInt(f, 10, 64)
		if err != nil {
			return entab.StringValue(field)
		}
		return entab.IntValue(v)
	default:
		return entab.StringValue(field)
	}
}

// sniffTypes runs infer over every sampled data row (skipping the
// comment/skip-line prefix and the header row itself) to determine each
// column's dominant type.
func sniffTypes(data []byte, delimChar, quoteChar byte, skipLines int) ([]fieldType, error) {
	var types []fieldType
	con := 0
	lineIx := 0
	for {
		line, n, ok, err := extract.Line(data[con:], true)
		if !ok || err != nil {
			break
		}
		con += n
		if lineIx < skipLines+1 {
			lineIx++
			continue
		}
		fields, err := splitLine(line, delimChar, quoteChar)
		if err != nil {
			// a malformed sample row doesn't abort sniffing; it just
			// contributes no information to type inference.
			lineIx++
			continue
		}
		for i, f := range fields {
			if i >= len(types) {
				types = append(types, newFieldType())
			}
			types[i].infer(f)
		}
		lineIx++
	}
	return types, nil
}
