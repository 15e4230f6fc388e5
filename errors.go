package goinflux

import (
	"errors"
	"fmt"
)

// InfluxError is the error type returned by goinflux for encoding,
// classification, protocol and server failures.
type InfluxError struct {
	Number      int
	Message     string
	MessageArgs []interface{}
	Database    string
	Measurement string
	RequestID   string
}

func (ie *InfluxError) Error() string {
	message := ie.Message
	if len(ie.MessageArgs) > 0 {
		message = fmt.Sprintf(ie.Message, ie.MessageArgs...)
	}
	if ie.RequestID != "" {
		return fmt.Sprintf("%06d: %s: %s", ie.Number, ie.RequestID, message)
	}
	return fmt.Sprintf("%06d: %s", ie.Number, message)
}

// Is matches errors carrying the same code, so preformatted errors work with errors.Is.
func (ie *InfluxError) Is(target error) bool {
	var other *InfluxError
	if !errors.As(target, &other) {
		return false
	}
	return other.Number == ie.Number
}

const (
	// encoding

	// ErrCodeNoFields is an error code for a row without any non-null field value.
	ErrCodeNoFields = 300001
	// ErrCodeTimestampBeforeEpoch is an error code for a timestamp before 1970-01-01T00:00:00Z.
	ErrCodeTimestampBeforeEpoch = 300002
	// ErrCodeUnmappedEnum is an error code for an enum value without a registered string.
	ErrCodeUnmappedEnum = 300003
	// ErrCodeEmptyMeasurement is an error code for a row without a measurement name.
	ErrCodeEmptyMeasurement = 300004
	// ErrCodeUnsupportedValue is an error code for a field value of an unsupported Go type.
	ErrCodeUnsupportedValue = 300005
	// ErrCodeInvalidSchema is an error code for a row schema or enum table that fails validation.
	ErrCodeInvalidSchema = 300006
	// ErrCodeTimestampOutOfRange is an error code for a timestamp whose epoch does not fit in int64.
	ErrCodeTimestampOutOfRange = 300007

	// classification

	// ErrCodeUnknownColumn is an error code for a column that is neither a known tag nor a known field.
	ErrCodeUnknownColumn = 310001
	// ErrCodeSchemaFetchFailed is an error code for a failed tag/field key lookup.
	ErrCodeSchemaFetchFailed = 310002

	// protocol

	// ErrCodeMalformedResponse is an error code for a query response that cannot be parsed.
	ErrCodeMalformedResponse = 320001
	// ErrCodeUnexpectedShape is an error code for a response with values that do not fit the row.
	ErrCodeUnexpectedShape = 320002
	// ErrCodeStreamClosed is an error code for reading from a closed result stream.
	ErrCodeStreamClosed = 320003

	// server

	// ErrCodeServerFailure is an error code for a failure reported by the server.
	ErrCodeServerFailure = 330001
	// ErrCodeHTTPStatus is an error code for an unexpected HTTP status.
	ErrCodeHTTPStatus = 330002

	// configuration

	// ErrCodeInvalidConfig is an error code for an invalid client configuration.
	ErrCodeInvalidConfig = 340001
	// ErrCodeFailedToFindConnectionInFile is an error code for a missing connection section.
	ErrCodeFailedToFindConnectionInFile = 340002
	// ErrCodeConfigFileParsingFailed is an error code for a config file that cannot be parsed.
	ErrCodeConfigFileParsingFailed = 340003
	// ErrCodeInvalidPrecision is an error code for an unknown timestamp precision.
	ErrCodeInvalidPrecision = 340004
)

const (
	errMsgNoFields                = "row of measurement %q has no non-null field values"
	errMsgTimestampBeforeEpoch    = "timestamp %v is before the Unix epoch"
	errMsgTimestampOutOfRange     = "timestamp %v does not fit an int64 epoch in precision %v"
	errMsgUnmappedEnum            = "enum value %v has no registered name"
	errMsgEmptyMeasurement        = "row has no measurement name"
	errMsgUnsupportedValue        = "field %q has unsupported value type %T"
	errMsgUnknownColumn           = "column %q of measurement %q in database %q is neither a known tag nor a known field"
	errMsgSchemaFetchFailed       = "failed to fetch tag and field keys of measurement %q in database %q: %v"
	errMsgMalformedResponse       = "failed to parse query response: %v"
	errMsgUnexpectedShape         = "unexpected response shape: %v"
	errMsgServerFailure           = "server reported failure: %v"
	errMsgHTTPStatus              = "HTTP %d: %v"
	errMsgInvalidConfig           = "invalid configuration: %v"
	errMsgFailedToFindConnection  = "connection %q not found in %v"
	errMsgFailedToParseConfigFile = "failed to parse %v. key: %v, value: %v"
	errMsgInvalidPrecision        = "invalid precision %q"
)

var (
	// ErrStreamClosed is returned by cursor operations on a closed ResultStream.
	ErrStreamClosed = &InfluxError{
		Number:  ErrCodeStreamClosed,
		Message: "result stream is closed",
	}
)

func errNoFields(measurement string) *InfluxError {
	return &InfluxError{
		Number:      ErrCodeNoFields,
		Message:     errMsgNoFields,
		MessageArgs: []interface{}{measurement},
		Measurement: measurement,
	}
}

func errMalformedResponse(err error) *InfluxError {
	return &InfluxError{
		Number:      ErrCodeMalformedResponse,
		Message:     errMsgMalformedResponse,
		MessageArgs: []interface{}{err},
	}
}

func errUnexpectedShape(format string, args ...interface{}) *InfluxError {
	return &InfluxError{
		Number:      ErrCodeUnexpectedShape,
		Message:     errMsgUnexpectedShape,
		MessageArgs: []interface{}{fmt.Sprintf(format, args...)},
	}
}

func errInvalidSchema(format string, args ...interface{}) *InfluxError {
	return &InfluxError{
		Number:  ErrCodeInvalidSchema,
		Message: fmt.Sprintf(format, args...),
	}
}

// IsServerFailure reports whether err is a failure reported by the server,
// either as a top-level response error or an unexpected HTTP status.
func IsServerFailure(err error) bool {
	var ie *InfluxError
	if !errors.As(err, &ie) {
		return false
	}
	return ie.Number == ErrCodeServerFailure || ie.Number == ErrCodeHTTPStatus
}

// IsParseFailure reports whether err means a response could not be parsed.
func IsParseFailure(err error) bool {
	var ie *InfluxError
	if !errors.As(err, &ie) {
		return false
	}
	return ie.Number == ErrCodeMalformedResponse || ie.Number == ErrCodeUnexpectedShape
}
