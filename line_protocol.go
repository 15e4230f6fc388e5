package goinflux

import (
	"io"
	"math"
	"strconv"
	"time"
)

// EncodeRows writes rows as line protocol to w, one line per row. measurement
// is used for rows without a name of their own. The whole batch is encoded
// before anything is written, so a failing row leaves w untouched.
func EncodeRows[T any](w io.Writer, md RowMetadata[T], rows []*T, measurement string, precision Precision) error {
	var buf []byte
	var err error
	for _, row := range rows {
		if buf, err = AppendRow(buf, md, row, measurement, precision); err != nil {
			return err
		}
	}
	if len(buf) == 0 {
		return nil
	}
	_, err = w.Write(buf)
	return err
}

// AppendRow appends the line protocol of one row, including the trailing
// newline, to dst. On error dst is returned unchanged.
func AppendRow[T any](dst []byte, md RowMetadata[T], row *T, measurement string, precision Precision) ([]byte, error) {
	start := len(dst)
	name := md.Measurement(row)
	if name == "" {
		name = measurement
	}
	if name == "" {
		return dst, &InfluxError{
			Number:  ErrCodeEmptyMeasurement,
			Message: errMsgEmptyMeasurement,
		}
	}
	dst = append(dst, name...)

	err := md.VisitTags(row, func(col *Column, value any) error {
		s, err := tagValue(col, value)
		if err != nil || s == "" {
			return err
		}
		dst = append(dst, ',')
		dst = append(dst, col.escapedKey...)
		dst = append(dst, '=')
		dst = appendEscapedKey(dst, s)
		return nil
	})
	if err != nil {
		return dst[:start], withMeasurement(err, name)
	}

	dst = append(dst, ' ')
	written := 0
	err = md.VisitFields(row, func(col *Column, value any) error {
		if written > 0 {
			dst = append(dst, ',')
		}
		dst = append(dst, col.escapedKey...)
		dst = append(dst, '=')
		var err error
		if dst, err = appendFieldValue(dst, col, value); err != nil {
			return err
		}
		written++
		return nil
	})
	if err != nil {
		return dst[:start], withMeasurement(err, name)
	}
	if written == 0 {
		return dst[:start], errNoFields(name)
	}

	if md.HasTimestamp() {
		if t, ok := md.Timestamp(row); ok {
			epoch, err := precision.Epoch(t)
			if err != nil {
				return dst[:start], withMeasurement(err, name)
			}
			dst = append(dst, ' ')
			dst = strconv.AppendInt(dst, epoch, 10)
		}
	}
	return append(dst, '\n'), nil
}

func tagValue(col *Column, value any) (string, error) {
	if col.enum != nil {
		name, ok := col.enum.nameOf(value)
		if !ok {
			return "", errUnmappedEnum(value)
		}
		return name, nil
	}
	s, ok := value.(string)
	if !ok {
		return "", errUnsupportedValue(col.key, value)
	}
	return s, nil
}

func appendFieldValue(dst []byte, col *Column, value any) ([]byte, error) {
	if col.enum != nil {
		name, ok := col.enum.nameOf(value)
		if !ok {
			return dst, errUnmappedEnum(value)
		}
		return appendQuotedString(dst, name), nil
	}
	switch v := value.(type) {
	case string:
		return appendQuotedString(dst, v), nil
	case bool:
		return strconv.AppendBool(dst, v), nil
	case int64:
		return append(strconv.AppendInt(dst, v, 10), 'i'), nil
	case int:
		return append(strconv.AppendInt(dst, int64(v), 10), 'i'), nil
	case int32:
		return append(strconv.AppendInt(dst, int64(v), 10), 'i'), nil
	case int16:
		return append(strconv.AppendInt(dst, int64(v), 10), 'i'), nil
	case int8:
		return append(strconv.AppendInt(dst, int64(v), 10), 'i'), nil
	case uint32:
		return append(strconv.AppendInt(dst, int64(v), 10), 'i'), nil
	case uint16:
		return append(strconv.AppendInt(dst, int64(v), 10), 'i'), nil
	case uint8:
		return append(strconv.AppendInt(dst, int64(v), 10), 'i'), nil
	case float64:
		return appendFloat(dst, col, v, 64)
	case float32:
		return appendFloat(dst, col, float64(v), 32)
	case time.Time:
		return appendQuotedString(dst, v.UTC().Format(time.RFC3339Nano)), nil
	}
	return dst, errUnsupportedValue(col.key, value)
}

func appendFloat(dst []byte, col *Column, f float64, bitSize int) ([]byte, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return dst, errUnsupportedValue(col.key, f)
	}
	return strconv.AppendFloat(dst, f, 'f', -1, bitSize), nil
}

func errUnsupportedValue(key string, value any) *InfluxError {
	return &InfluxError{
		Number:      ErrCodeUnsupportedValue,
		Message:     errMsgUnsupportedValue,
		MessageArgs: []interface{}{key, value},
	}
}

func withMeasurement(err error, measurement string) error {
	if ie, ok := err.(*InfluxError); ok && ie.Measurement == "" {
		ie.Measurement = measurement
	}
	return err
}
