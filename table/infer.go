package table

import (
	"strconv"
	"strings"
	"time"
)

// ============================================================================
// TYPE INFERENCE: raw text → typed Value
// ============================================================================
// Order matters: Number, then DateTime, then Text. The first successful
// parse wins, so "2024" is a number and never a year.
// ============================================================================

// dateLayouts are tried in order. All of them are locale independent.
var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	time.DateOnly,
}

// InferScalar turns one raw text field into a typed Value.
// Empty input yields an empty Text cell.
func InferScalar(text string) Value {
	s := strings.TrimSpace(text)
	if s == "" {
		return Text(text)
	}
	if f, ok := parseNumber(s); ok {
		return Number(f)
	}
	if t, ok := parseDateTime(s); ok {
		return DateTime(t)
	}
	return Text(text)
}

// LooksNumeric reports whether s parses as a floating point number.
func LooksNumeric(s string) bool {
	_, ok := parseNumber(strings.TrimSpace(s))
	return ok
}

func parseNumber(s string) (float64, bool) {
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	// ParseFloat accepts "NaN" and "Inf"; those stay text.
	switch strings.ToLower(strings.TrimLeft(s, "+-")) {
	case "nan", "inf", "infinity":
		return 0, false
	}
	return f, true
}

func parseDateTime(s string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
