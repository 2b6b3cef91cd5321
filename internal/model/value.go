package model

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Value is a user-supplied metric value: either a number or free text.
// Adoption metrics mix quantitative inputs ("42% active users") with
// qualitative ones ("Drop or plateau"), so both shapes flow through
// evaluation and scoring.
type Value struct {
	num *float64
	str *string
}

// NumberValue creates a numeric Value.
func NumberValue(n float64) Value {
	return Value{num: &n}
}

// TextValue creates a textual Value.
func TextValue(s string) Value {
	return Value{str: &s}
}

// IsNumber reports whether the value was supplied as a number.
func (v Value) IsNumber() bool { return v.num != nil }

// IsText reports whether the value was supplied as text.
func (v Value) IsText() bool { return v.str != nil }

// IsZero reports whether no value is present.
func (v Value) IsZero() bool { return v.num == nil && v.str == nil }

// Float coerces the value to a number. Textual values are parsed with
// strconv; unparseable text fails closed (ok=false), it never errors.
func (v Value) Float() (float64, bool) {
	if v.num != nil {
		return *v.num, true
	}
	if v.str != nil {
		n, err := strconv.ParseFloat(strings.TrimSpace(*v.str), 64)
		if err != nil {
			return 0, false
		}
		return n, true
	}
	return 0, false
}

// Text returns the value rendered as a string. Numbers use the shortest
// representation that round-trips.
func (v Value) Text() string {
	if v.str != nil {
		return *v.str
	}
	if v.num != nil {
		return strconv.FormatFloat(*v.num, 'f', -1, 64)
	}
	return ""
}

// MarshalJSON encodes numbers as JSON numbers and text as JSON strings,
// so exported values survive a round-trip without type drift.
func (v Value) MarshalJSON() ([]byte, error) {
	switch {
	case v.num != nil:
		return json.Marshal(*v.num)
	case v.str != nil:
		return json.Marshal(*v.str)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON accepts a JSON number, string, or null.
func (v *Value) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" {
		*v = Value{}
		return nil
	}
	if strings.HasPrefix(trimmed, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("model: decode text value: %w", err)
		}
		*v = TextValue(s)
		return nil
	}
	var n float64
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("model: decode numeric value: %w", err)
	}
	*v = NumberValue(n)
	return nil
}
