package metrics

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
)

// Value is a metric that may be undefined, for instance a ratio over an
// empty graph. Undefined values are NaN in Go and null in JSON.
type Value float64

func Undefined() Value { return Value(math.NaN()) }

func (v Value) Defined() bool { return !math.IsNaN(float64(v)) && !math.IsInf(float64(v), 0) }

func (v Value) Float() float64 { return float64(v) }

func (v Value) String() string {
	if !v.Defined() {
		return "n/a"
	}
	return strconv.FormatFloat(float64(v), 'f', 4, 64)
}

func (v Value) MarshalJSON() ([]byte, error) {
	if !v.Defined() {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatFloat(float64(v), 'g', -1, 64)), nil
}

func (v *Value) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*v = Undefined()
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*v = Value(f)
	return nil
}

func ratio(num, den float64) Value {
	if den == 0 {
		return Undefined()
	}
	return Value(num / den)
}

// mean averages the defined values; none defined gives Undefined.
func mean(vs ...Value) Value {
	sum, n := 0.0, 0
	for _, v := range vs {
		if v.Defined() {
			sum += float64(v)
			n++
		}
	}
	return ratio(sum, float64(n))
}
