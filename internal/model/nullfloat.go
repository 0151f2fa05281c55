package model

import (
	"encoding/json"
	"math"
	"strconv"
)

// NullFloat is an optional float64. Indicator fields that have not finished
// warming up are NullFloat{} rather than NaN or zero.
// Every comparison involving an undefined operand is false.
type NullFloat struct {
	Float64 float64
	Valid   bool
}

// Some wraps a defined value. NaN and ±Inf are stored as undefined.
func Some(v float64) NullFloat {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return NullFloat{}
	}
	return NullFloat{Float64: v, Valid: true}
}

// Get returns the value and whether it is defined.
func (n NullFloat) Get() (float64, bool) { return n.Float64, n.Valid }

// Greater reports n > o.
func (n NullFloat) Greater(o NullFloat) bool {
	return n.Valid && o.Valid && n.Float64 > o.Float64
}

// Less reports n < o.
func (n NullFloat) Less(o NullFloat) bool {
	return n.Valid && o.Valid && n.Float64 < o.Float64
}

// GreaterOrEqual reports n >= o.
func (n NullFloat) GreaterOrEqual(o NullFloat) bool {
	return n.Valid && o.Valid && n.Float64 >= o.Float64
}

// LessOrEqual reports n <= o.
func (n NullFloat) LessOrEqual(o NullFloat) bool {
	return n.Valid && o.Valid && n.Float64 <= o.Float64
}

// Below reports n < x.
func (n NullFloat) Below(x float64) bool { return n.Valid && n.Float64 < x }

// Above reports n > x.
func (n NullFloat) Above(x float64) bool { return n.Valid && n.Float64 > x }

// Sub returns n - o, undefined if either side is.
func (n NullFloat) Sub(o NullFloat) NullFloat {
	if !n.Valid || !o.Valid {
		return NullFloat{}
	}
	return Some(n.Float64 - o.Float64)
}

// String renders the value, or "" when undefined.
func (n NullFloat) String() string {
	if !n.Valid {
		return ""
	}
	return strconv.FormatFloat(n.Float64, 'f', -1, 64)
}

func (n NullFloat) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(n.Float64)
}

func (n *NullFloat) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*n = NullFloat{}
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*n = Some(v)
	return nil
}
