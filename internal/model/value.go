package model

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// Value is an optional float. OK is false while an indicator is warming up
// or when a bar is not a swing point. Encodes to JSON null when unset.
type Value struct {
	V  float64
	OK bool
}

// Some returns a defined Value.
func Some(v float64) Value { return Value{V: v, OK: true} }

// None returns an undefined Value.
func None() Value { return Value{} }

// Or returns the value, or fallback when undefined.
func (v Value) Or(fallback float64) float64 {
	if !v.OK {
		return fallback
	}
	return v.V
}

// Ptr returns nil when undefined. Used for nullable SQL columns.
func (v Value) Ptr() *float64 {
	if !v.OK {
		return nil
	}
	f := v.V
	return &f
}

func (v Value) String() string {
	if !v.OK {
		return "n/a"
	}
	return strconv.FormatFloat(v.V, 'f', 5, 64)
}

func (v Value) MarshalJSON() ([]byte, error) {
	if !v.OK {
		return []byte("null"), nil
	}
	return json.Marshal(v.V)
}

func (v *Value) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*v = Value{}
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*v = Some(f)
	return nil
}
