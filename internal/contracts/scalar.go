package contracts

import (
	"encoding/json"
	"math"
	"strconv"
)

// Scalar is a finite float or an explicit undefined marker.
// ⭐ NaN/Inf는 절대 밖으로 나가지 않음 (정의 불가 → Undefined)
type Scalar struct {
	value   float64
	defined bool
}

// Defined wraps v; NaN and ±Inf become undefined
func Defined(v float64) Scalar {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Scalar{}
	}
	return Scalar{value: v, defined: true}
}

// Undefined returns the undefined marker
func Undefined() Scalar {
	return Scalar{}
}

// Value returns the float and whether it is defined
func (s Scalar) Value() (float64, bool) {
	return s.value, s.defined
}

// IsDefined reports whether the scalar carries a value
func (s Scalar) IsDefined() bool {
	return s.defined
}

// Or returns the value, or fallback when undefined
func (s Scalar) Or(fallback float64) float64 {
	if !s.defined {
		return fallback
	}
	return s.value
}

func (s Scalar) String() string {
	if !s.defined {
		return "n/a"
	}
	return strconv.FormatFloat(s.value, 'g', 6, 64)
}

// MarshalJSON encodes undefined as null
func (s Scalar) MarshalJSON() ([]byte, error) {
	if !s.defined {
		return []byte("null"), nil
	}
	return json.Marshal(s.value)
}

// UnmarshalJSON accepts a number or null
func (s *Scalar) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*s = Scalar{}
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*s = Defined(v)
	return nil
}
