package panel

import (
	"strconv"
	"strings"
)

type ValueKind uint8

const (
	KindAbsent ValueKind = iota
	KindBool
	KindInt
	KindFloat
	KindEnum
)

// Value holds one attribute value. Zero Value is absent:
// "no information / no change", never "turn off".
// Values are comparable with ==.
type Value struct {
	kind ValueKind
	b    bool
	i    int64
	f    float64
	s    string
}

var Absent = Value{}

func Bool(b bool) Value     { return Value{kind: KindBool, b: b} }
func Int(i int64) Value     { return Value{kind: KindInt, i: i} }
func Float(f float64) Value { return Value{kind: KindFloat, f: f} }
func Enum(s string) Value   { return Value{kind: KindEnum, s: s} }

func (v Value) Kind() ValueKind { return v.kind }
func (v Value) IsAbsent() bool  { return v.kind == KindAbsent }

func (v Value) Bool() (bool, bool) { return v.b, v.kind == KindBool }
func (v Value) Int() (int64, bool) { return v.i, v.kind == KindInt }

func (v Value) Float() (float64, bool) {
	switch v.kind {
	case KindFloat:
		return v.f, true
	case KindInt:
		return float64(v.i), true
	}
	return 0, false
}

func (v Value) Enum() (string, bool) { return v.s, v.kind == KindEnum }

func (v Value) Equal(other Value) bool { return v == other }

// String renders value in the form telemachus expects:
// booleans as True/False, floats always with a decimal point.
func (v Value) String() string {
	switch v.kind {
	case KindBool:
		if v.b {
			return "True"
		}
		return "False"
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		s := strconv.FormatFloat(v.f, 'f', -1, 64)
		if !strings.ContainsAny(s, ".eEnN") {
			s += ".0"
		}
		return s
	case KindEnum:
		return v.s
	}
	return "<absent>"
}
