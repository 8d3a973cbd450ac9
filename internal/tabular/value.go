package tabular

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Kind identifies the scalar type held by a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindNumber
	KindText
	KindTime
)

func (k Kind) String() string {
	switch k {
	case KindNumber:
		return "number"
	case KindText:
		return "text"
	case KindTime:
		return "time"
	default:
		return "null"
	}
}

// Value is a single typed cell.
type Value struct {
	kind Kind
	num  float64
	str  string
	ts   time.Time
}

// Null returns the missing value.
func Null() Value { return Value{} }

// Number wraps a float. NaN and infinities are stored as null.
func Number(f float64) Value {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Value{}
	}
	return Value{kind: KindNumber, num: f}
}

// Text wraps a string value.
func Text(s string) Value { return Value{kind: KindText, str: s} }

// Timestamp wraps a time value.
func Timestamp(t time.Time) Value { return Value{kind: KindTime, ts: t} }

func (v Value) Kind() Kind   { return v.kind }
func (v Value) IsNull() bool { return v.kind == KindNull }

// Float returns the numeric payload; ok is false for non-numeric values.
func (v Value) Float() (float64, bool) {
	if v.kind != KindNumber {
		return 0, false
	}
	return v.num, true
}

// Timestamp resolves the value as a point in time. Time cells resolve directly,
// text cells are parsed with the known layouts; anything else (or an
// unparseable string) reports ok=false so callers can count it as skipped.
func (v Value) Timestamp() (time.Time, bool) {
	switch v.kind {
	case KindTime:
		return v.ts, true
	case KindText:
		return ParseTime(v.str)
	default:
		return time.Time{}, false
	}
}

// Key returns a comparable identity for distinct counting and set lookups.
func (v Value) Key() any {
	switch v.kind {
	case KindNumber:
		if v.num == 0 {
			return float64(0)
		}
		return v.num
	case KindText:
		return v.str
	case KindTime:
		return v.ts.UnixNano()
	default:
		return nil
	}
}

// Interface returns the value as a plain Go value (nil for null).
func (v Value) Interface() any {
	switch v.kind {
	case KindNumber:
		return v.num
	case KindText:
		return v.str
	case KindTime:
		return v.ts.Format(time.RFC3339)
	default:
		return nil
	}
}

func (v Value) String() string {
	switch v.kind {
	case KindNumber:
		return strconv.FormatFloat(v.num, 'g', -1, 64)
	case KindText:
		return v.str
	case KindTime:
		return v.ts.Format(time.RFC3339)
	default:
		return ""
	}
}

// timeLayouts are tried in order; ambiguous slash dates read month-first.
var timeLayouts = []string{
	time.RFC3339, "2006-01-02T15:04:05", "2006-01-02", "2006/01/02", "01/02/2006", "02/01/2006",
	"2006-01-02 15:04", "2006-01-02 15:04:05", "2006-01-02 15:04:05.999999",
	"1/2/2006 15:04", "1/2/2006 15:04:05",
}

// ParseTime tries the supported timestamp layouts in order.
func ParseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, l := range timeLayouts {
		if t, err := time.Parse(l, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// commaGrouping matches integers grouped by commas in threes, e.g. "12,500".
var commaGrouping = regexp.MustCompile(`^[-+]?\d{1,3}(,\d{3})+$`)

// parseNumeric parses locale-formatted numbers. With no configured separators
// the decimal mark is the last of ',' or '.', and the other one is treated as
// a thousands separator. A lone comma is grouping when it splits off exact
// groups of three digits.
func parseNumeric(s string, opt Options) (float64, bool) {
	raw := strings.TrimSpace(strings.ReplaceAll(s, "\u00A0", " "))
	if raw == "" {
		return 0, false
	}
	dec := opt.DecimalSeparator
	thou := opt.ThousandsSeparator
	if dec == 0 {
		cpos := strings.LastIndex(raw, ",")
		dpos := strings.LastIndex(raw, ".")
		switch {
		case cpos >= 0 && dpos >= 0 && cpos > dpos:
			dec, thou = ',', '.'
		case cpos >= 0 && dpos >= 0:
			dec, thou = '.', ','
		case cpos >= 0 && commaGrouping.MatchString(raw):
			dec, thou = '.', ','
		case cpos >= 0:
			dec = ','
		default:
			dec = '.'
		}
	}
	if thou != 0 && thou != dec {
		raw = strings.ReplaceAll(raw, string(thou), "")
	}
	if dec != '.' {
		raw = strings.ReplaceAll(raw, string(dec), ".")
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
