package table

import (
	"strconv"
	"time"
)

// ============================================================================
// VALUE: Tagged cell variant
// ============================================================================
// Every cell carries its own kind. A column's declared Type is a fast-path
// hint only: Mixed columns hold cells of several kinds side by side.
// ============================================================================

// Kind identifies which field of a Value is populated.
type Kind uint8

const (
	KindNull Kind = iota
	KindNumber
	KindText
	KindDateTime
)

func (k Kind) String() string {
	switch k {
	case KindNumber:
		return "number"
	case KindText:
		return "text"
	case KindDateTime:
		return "datetime"
	default:
		return "null"
	}
}

// Value is a single typed cell.
type Value struct {
	Kind Kind
	Num  float64
	Str  string
	Time time.Time
}

func Null() Value                { return Value{} }
func Number(f float64) Value     { return Value{Kind: KindNumber, Num: f} }
func Text(s string) Value        { return Value{Kind: KindText, Str: s} }
func DateTime(t time.Time) Value { return Value{Kind: KindDateTime, Time: t} }

// IsNull reports whether the cell is empty.
func (v Value) IsNull() bool { return v.Kind == KindNull }

// String renders the cell the way it is written to delimited text.
// Datetimes at midnight UTC are written date-only so that "2024-01-05"
// survives a round trip unchanged.
func (v Value) String() string {
	switch v.Kind {
	case KindNumber:
		return strconv.FormatFloat(v.Num, 'f', -1, 64)
	case KindText:
		return v.Str
	case KindDateTime:
		t := v.Time
		if t.Location() == time.UTC && t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
			return t.Format(time.DateOnly)
		}
		return t.Format(time.RFC3339Nano)
	default:
		return ""
	}
}

// Equal compares kind and payload. Datetimes compare by instant.
func (v Value) Equal(o Value) bool {
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case KindNumber:
		return v.Num == o.Num
	case KindText:
		return v.Str == o.Str
	case KindDateTime:
		return v.Time.Equal(o.Time)
	default:
		return true
	}
}

// typeOf maps a cell kind to the column type it implies.
func typeOf(k Kind) Type {
	switch k {
	case KindNumber:
		return TypeNumber
	case KindText:
		return TypeText
	case KindDateTime:
		return TypeDateTime
	default:
		return TypeUnknown
	}
}
