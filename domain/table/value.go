package table

import (
	"fmt"
	"time"
)

// Value is a single typed cell. A Value is either missing or holds exactly
// one of the payload fields, selected by Kind.
type Value struct {
	Kind    ValueKind
	Num     float64
	Time    time.Time
	Str     string
	Missing bool
}

// ValueKind identifies which payload a Value carries.
type ValueKind int

const (
	KindString ValueKind = iota
	KindNumber
	KindTime
)

// NewMissingValue returns the canonical missing marker.
func NewMissingValue() Value {
	return Value{Missing: true}
}

// NewStringValue wraps a non-empty string cell.
func NewStringValue(s string) Value {
	return Value{Kind: KindString, Str: s}
}

// NewNumberValue wraps a numeric cell.
func NewNumberValue(f float64) Value {
	return Value{Kind: KindNumber, Num: f}
}

// NewTimeValue wraps a datetime cell.
func NewTimeValue(t time.Time) Value {
	return Value{Kind: KindTime, Time: t}
}

// String renders the cell the way it is shown to users and written to CSV.
func (v Value) String() string {
	if v.Missing {
		return ""
	}
	switch v.Kind {
	case KindNumber:
		return trimFloat(v.Num)
	case KindTime:
		if v.Time.Hour() == 0 && v.Time.Minute() == 0 && v.Time.Second() == 0 {
			return v.Time.Format("2006-01-02")
		}
		return v.Time.Format("2006-01-02 15:04:05")
	default:
		return v.Str
	}
}

// Equal compares two cells by kind and payload.
func (v Value) Equal(other Value) bool {
	if v.Missing || other.Missing {
		return v.Missing == other.Missing
	}
	if v.Kind != other.Kind {
		return false
	}
	switch v.Kind {
	case KindNumber:
		return v.Num == other.Num
	case KindTime:
		return v.Time.Equal(other.Time)
	default:
		return v.Str == other.Str
	}
}

func trimFloat(f float64) string {
	if f == float64(int64(f)) {
		return fmt.Sprintf("%d", int64(f))
	}
	return fmt.Sprintf("%g", f)
}
