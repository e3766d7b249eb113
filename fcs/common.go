// Package fcs decodes flow cytometry standard (FCS) files: a fixed
// 58-byte offset preamble, a delimiter-escaped TEXT segment of key/value
// metadata, and a DATA segment of fixed-width per-event parameter values.
package fcs

import (
	"strconv"
	"strings"
	"time"

	"github.com/bovee/entab/internal/extract"
)

// dateLayouts are tried in order against $DATE, matching the handful of
// formats seen in the wild (two- and four-digit years, one non-standard
// year-first variant, and one all-numeric Partec export).
var dateLayouts = []string{
	"02-Jan-06",
	"02-Jan-2006",
	"2006-Jan-02",
	"02-01-2006",
}

// fcsParam is one $Pn* parameter column's declared width, range, and
// names.
type fcsParam struct {
	size      int // bits for D/F/I; bytes for fixed-width A; -1 for delimited A
	rangeVal  uint64
	shortName string
	longName  string
}

// parseAsciiUint parses a whitespace-padded ASCII decimal field, as used
// throughout the FCS preamble.
func parseAsciiUint(b []byte) (uint64, error) {
	return strconv.ParseUint(strings.TrimSpace(string(b)), 10, 64)
}

func parseTrimmedUint(s string) (uint64, error) {
	return strconv.ParseUint(strings.TrimSpace(s), 10, 64)
}

// nextKV scans buf starting right after the TEXT segment's leading
// delimiter for one key/value pair, returning the number of bytes
// consumed (including the pair's closing delimiter). limit is
// textEnd-pos-1 in the caller's coordinates, one before the segment's
// last byte; the scan runs through limit+1, that last byte, which holds
// the final pair's closing delimiter. Scanning is bounded by the declared
// TEXT segment length rather than by len(buf). Whether a delimiter is
// doubled (escaped) is decided by peeking at the next byte whenever buf
// holds it, even past the segment's very last position (into whatever
// follows - padding, or the start of the DATA segment); a delimiter at
// the end of buf counts as not doubled. ok is false once no further complete pair
// can be found within bounds, including when trailing padding follows
// the last real pair, which FCS producers are tolerant of and so are we.
//
// A delimiter immediately followed by another delimiter is an escaped,
// literal delimiter character rather than a field terminator, except
// where a key is expected to start and a pair of delimiters appears back
// to back: the FCS spec calls for that to be an escaped delimiter as the
// first character of the key, but some Applied Biosystems exports use it
// to mean an empty key mapped to an empty value, which is what's
// actually matched here.
func nextKV(buf []byte, delim byte, limit int) (key, value string, consumed int, ok bool) {
	temp := -1
	for i := 0; i <= limit+1; i++ {
		if i >= len(buf) {
			return "", "", 0, false
		}
		if buf[i] != delim {
			continue
		}
		doubled := i+1 < len(buf) && buf[i+1] == delim
		if temp >= 0 {
			if doubled {
				i++ // escaped delimiter inside the value
				continue
			}
			return string(buf[:temp]), string(buf[temp+1 : i]), i + 1, true
		}
		if doubled {
			return string(buf[:i]), "", i + 2, true
		}
		temp = i
	}
	return "", "", 0, false
}

// combineDate builds the run date metadata value from whatever of $DATE
// and $BTIM were recognized, defaulting to 2000-01-01 00:00:00 (matching
// the zero value FCS2.0's two-digit-year epoch settled on).
func combineDate(date time.Time, hms string) time.Time {
	if hms == "" {
		return date
	}
	t, err := time.Parse("15:04:05", hms)
	if err != nil {
		return date
	}
	return time.Date(date.Year(), date.Month(), date.Day(), t.Hour(), t.Minute(), t.Second(), 0, time.UTC)
}

// btimClock trims $BTIM to its first 3 colon-separated fields (hour,
// minute, second), discarding any trailing fractional-second component
// some instruments append.
func btimClock(v string) string {
	parts := strings.Split(strings.TrimSpace(v), ":")
	if len(parts) > 3 {
		parts = parts[:3]
	}
	return strings.Join(parts, ":")
}

func paramIndex(key string) (int, rune, bool) {
	if !strings.HasPrefix(key, "$P") || len(key) < 4 {
		return 0, 0, false
	}
	suffix := key[len(key)-1]
	switch suffix {
	case 'B', 'N', 'R', 'S':
	default:
		return 0, 0, false
	}
	n, err := strconv.Atoi(key[2 : len(key)-1])
	if err != nil || n < 1 {
		return 0, 0, false
	}
	return n - 1, rune(suffix), true
}

const (
	endianLittle = extract.Little
	endianBig    = extract.Big
)
