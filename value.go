package entab

import (
	"math"
	"strings"
	"time"
	"unicode/utf8"
)

// Kind tags which field of a Value is populated.
type Kind uint8

const (
	KindNull Kind = iota
	KindBoolean
	KindInteger
	KindFloat
	KindDatetime
	KindString
	KindList
	KindRecord
)

// Value is the universal row cell. It is a tagged struct rather than an
// interface{} so scalar construction never allocates.
type Value struct {
	Kind Kind

	boolean  bool
	integer  int64
	float    float64
	datetime time.Time
	str      string
	list     []Value
	record   map[string]Value
}

// Null is the zero Value.
var Null = Value{Kind: KindNull}

func BoolValue(b bool) Value        { return Value{Kind: KindBoolean, boolean: b} }
func IntValue(i int64) Value        { return Value{Kind: KindInteger, integer: i} }
func FloatValue(f float64) Value    { return Value{Kind: KindFloat, float: f} }
func TimeValue(t time.Time) Value   { return Value{Kind: KindDatetime, datetime: t.UTC()} }
func ListValue(v []Value) Value     { return Value{Kind: KindList, list: v} }
func RecordValue(m map[string]Value) Value { return Value{Kind: KindRecord, record: m} }

// StringValue lossily converts raw bytes/strings to valid UTF-8, matching
// the source's lossy Cow<str> conversion rather than erroring on bad input.
func StringValue(s string) Value {
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, string(utf8.RuneError))
	}
	return Value{Kind: KindString, str: s}
}

// BytesValue is StringValue over a byte slice, matching From<&[u8]> in the source.
func BytesValue(b []byte) Value { return StringValue(string(b)) }

// Uint64Value saturates to math.MaxInt64 on overflow rather than wrapping,
// matching the source's saturating u64->i64 conversion.
func Uint64Value(u uint64) Value {
	if u > math.MaxInt64 {
		return IntValue(math.MaxInt64)
	}
	return IntValue(int64(u))
}

func (v Value) Bool() bool            { return v.boolean }
func (v Value) Int() int64            { return v.integer }
func (v Value) Float64() float64      { return v.float }
func (v Value) Time() time.Time       { return v.datetime }
func (v Value) String() string        { return v.str }
func (v Value) List() []Value         { return v.list }
func (v Value) Record() map[string]Value { return v.record }

func (v Value) IsNull() bool { return v.Kind == KindNull }

// Row is one decoded record: one Value per header column, in header order.
type Row []Value

// Metadata is the run-level property map exposed by a decoder's state.
type Metadata map[string]Value
