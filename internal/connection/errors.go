package connection

import (
	"errors"
	"strconv"
	"strings"
)

var ErrInvalidCredentials = errors.New("invalid username or password")

type ParamsError struct {
	Missing []string
	Reason  string
}

func (e *ParamsError) Error() string {
	if len(e.Missing) == 0 {
		return "invalid connection parameters: " + e.Reason
	}
	return "invalid connection parameters: " + e.Reason + " (missing " + strings.Join(e.Missing, ", ") + ")"
}

// ConnectionFailedError is any open or ping failure other than rejected
// credentials. Message carries the driver's text with secrets masked.
type ConnectionFailedError struct {
	Message string
	Err     error
}

func (e *ConnectionFailedError) Error() string {
	return "database connection failed: " + e.Message
}

func (e *ConnectionFailedError) Unwrap() error {
	return e.Err
}

// SchemaListUnavailableError separates a failed listing from an empty one.
type SchemaListUnavailableError struct {
	Err error
}

func (e *SchemaListUnavailableError) Error() string {
	return "schema list unavailable: " + e.Err.Error()
}

func (e *SchemaListUnavailableError) Unwrap() error {
	return e.Err
}

// SchemaSelectError is a session that opened but could not switch to the
// requested schema. Message carries the driver's text with secrets masked.
type SchemaSelectError struct {
	Schema  string
	Message string
	Err     error
}

func (e *SchemaSelectError) Error() string {
	return "schema " + strconv.Quote(e.Schema) + " is not available: " + e.Message
}

func (e *SchemaSelectError) Unwrap() error {
	return e.Err
}
