package goinflux

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/goccy/go-json"
)

// Values decoded from query responses are json.Number, string, bool or nil.
// These helpers convert them to the Go types declared by a schema.

func toString(raw any) (string, error) {
	switch v := raw.(type) {
	case string:
		return v, nil
	case json.Number:
		return v.String(), nil
	case bool:
		return strconv.FormatBool(v), nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	}
	return "", fmt.Errorf("cannot convert %T to string", raw)
}

func toInt64(raw any) (int64, error) {
	switch v := raw.(type) {
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return i, nil
		}
		f, err := v.Float64()
		if err != nil {
			return 0, err
		}
		return floatToInt64(f)
	case int64:
		return v, nil
	case float64:
		return floatToInt64(v)
	case string:
		return strconv.ParseInt(v, 10, 64)
	}
	return 0, fmt.Errorf("cannot convert %T to integer", raw)
}

func floatToInt64(f float64) (int64, error) {
	if f != math.Trunc(f) || f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, fmt.Errorf("%v is not an integer", f)
	}
	return int64(f), nil
}

func toFloat64(raw any) (float64, error) {
	switch v := raw.(type) {
	case json.Number:
		return v.Float64()
	case float64:
		return v, nil
	case int64:
		return float64(v), nil
	case string:
		return strconv.ParseFloat(v, 64)
	}
	return 0, fmt.Errorf("cannot convert %T to float", raw)
}

func toBool(raw any) (bool, error) {
	switch v := raw.(type) {
	case bool:
		return v, nil
	case string:
		return strconv.ParseBool(v)
	}
	return false, fmt.Errorf("cannot convert %T to boolean", raw)
}

func toTimeString(raw any) (time.Time, error) {
	switch v := raw.(type) {
	case time.Time:
		return v, nil
	case string:
		return time.Parse(time.RFC3339Nano, v)
	}
	return time.Time{}, fmt.Errorf("cannot convert %T to time", raw)
}

// toTimestamp converts a value of the time column. Epoch numbers are read in
// precision; strings are RFC3339.
func toTimestamp(raw any, precision Precision) (time.Time, error) {
	switch v := raw.(type) {
	case json.Number:
		epoch, err := v.Int64()
		if err != nil {
			return time.Time{}, err
		}
		return precision.Time(epoch), nil
	case int64:
		return precision.Time(v), nil
	case float64:
		epoch, err := floatToInt64(v)
		if err != nil {
			return time.Time{}, err
		}
		return precision.Time(epoch), nil
	}
	return toTimeString(raw)
}

// dynamicValue turns a decoded field value into the Go value stored in a
// DynamicPoint. JSON numbers without a fraction or exponent become int64.
func dynamicValue(raw any) any {
	n, ok := raw.(json.Number)
	if !ok {
		return raw
	}
	if i, err := n.Int64(); err == nil {
		return i
	}
	if f, err := n.Float64(); err == nil {
		return f
	}
	return n.String()
}
