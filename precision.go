package goinflux

import (
	"math"
	"strings"
	"time"
)

// Precision is the unit of epoch timestamps on the wire. Its string value is
// the token InfluxDB expects in the precision and epoch query parameters.
type Precision string

const (
	// Nanosecond precision.
	Nanosecond Precision = "ns"
	// Microsecond precision.
	Microsecond Precision = "u"
	// Millisecond precision.
	Millisecond Precision = "ms"
	// Second precision.
	Second Precision = "s"
	// Minute precision.
	Minute Precision = "m"
	// Hour precision.
	Hour Precision = "h"
)

// ParsePrecision converts a precision token to a Precision. The empty string
// yields Nanosecond.
func ParsePrecision(s string) (Precision, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "n", "ns":
		return Nanosecond, nil
	case "u", "us", "µ", "µs":
		return Microsecond, nil
	case "ms":
		return Millisecond, nil
	case "s":
		return Second, nil
	case "m":
		return Minute, nil
	case "h":
		return Hour, nil
	}
	return "", &InfluxError{
		Number:      ErrCodeInvalidPrecision,
		Message:     errMsgInvalidPrecision,
		MessageArgs: []interface{}{s},
	}
}

// Duration returns the length of one unit.
func (p Precision) Duration() time.Duration {
	switch p {
	case Microsecond:
		return time.Microsecond
	case Millisecond:
		return time.Millisecond
	case Second:
		return time.Second
	case Minute:
		return time.Minute
	case Hour:
		return time.Hour
	}
	return time.Nanosecond
}

// Epoch returns the number of whole units between the Unix epoch and t,
// truncated toward the epoch. Instants before the epoch are rejected.
func (p Precision) Epoch(t time.Time) (int64, error) {
	if t.Before(unixEpoch) {
		return 0, &InfluxError{
			Number:      ErrCodeTimestampBeforeEpoch,
			Message:     errMsgTimestampBeforeEpoch,
			MessageArgs: []interface{}{t.UTC().Format(time.RFC3339Nano)},
		}
	}
	secs, nanos := t.Unix(), int64(t.Nanosecond())
	switch p {
	case Second:
		return secs, nil
	case Minute:
		return secs / 60, nil
	case Hour:
		return secs / 3600, nil
	}
	unit := int64(p.Duration())
	perSecond, frac := int64(time.Second)/unit, nanos/unit
	if secs > (math.MaxInt64-frac)/perSecond {
		return 0, &InfluxError{
			Number:      ErrCodeTimestampOutOfRange,
			Message:     errMsgTimestampOutOfRange,
			MessageArgs: []interface{}{t.UTC().Format(time.RFC3339Nano), p},
		}
	}
	return secs*perSecond + frac, nil
}

// Time converts an epoch in this precision back to a UTC instant.
func (p Precision) Time(epoch int64) time.Time {
	switch p {
	case Microsecond:
		return time.UnixMicro(epoch).UTC()
	case Millisecond:
		return time.UnixMilli(epoch).UTC()
	case Second:
		return time.Unix(epoch, 0).UTC()
	case Minute:
		return time.Unix(epoch*60, 0).UTC()
	case Hour:
		return time.Unix(epoch*3600, 0).UTC()
	}
	return time.Unix(0, epoch).UTC()
}

func (p Precision) String() string {
	return string(p)
}

var unixEpoch = time.Unix(0, 0)
