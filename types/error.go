package types

import (
	"errors"
	"fmt"
)

// The client surfaces four error kinds. Every failure maps to exactly
// one of them; nothing is swallowed between layers.
//
//	ConfigError     bad or missing configuration, raised before any I/O
//	ConnectionError socket connect/read/write failure, pool exhaustion
//	ResponseError   nonzero status in a well-formed frame, or a
//	                malformed/undersized frame
//	DataError       invalid local input, rejected before any network call

type ConfigError struct {
	msg string
}

func NewConfigError(format string, args ...any) *ConfigError {
	return &ConfigError{msg: fmt.Sprintf(format, args...)}
}

func (e *ConfigError) Error() string { return "fdfs config: " + e.msg }

type ConnectionError struct {
	Addr string
	Err  error
	msg  string
}

func NewConnectionError(addr string, err error, format string, args ...any) *ConnectionError {
	return &ConnectionError{Addr: addr, Err: err, msg: fmt.Sprintf(format, args...)}
}

func (e *ConnectionError) Error() string {
	s := "fdfs connection: " + e.msg
	if e.Addr != "" {
		s += " (" + e.Addr + ")"
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// ResponseError carries the numeric status byte of a failed exchange so
// callers can inspect the server-side errno. Code 0 marks a frame-level
// protocol violation rather than a server status.
type ResponseError struct {
	Code byte
	msg  string
}

func NewResponseError(code byte, format string, args ...any) *ResponseError {
	return &ResponseError{Code: code, msg: fmt.Sprintf(format, args...)}
}

func (e *ResponseError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("fdfs response: status %d: %s", e.Code, e.msg)
	}
	return "fdfs response: " + e.msg
}

type DataError struct {
	msg string
}

func NewDataError(format string, args ...any) *DataError {
	return &DataError{msg: fmt.Sprintf(format, args...)}
}

func (e *DataError) Error() string { return "fdfs data: " + e.msg }

// Kind probes, for callers that branch on error class instead of
// unwrapping by hand.

func IsConfigError(err error) bool {
	var e *ConfigError
	return errors.As(err, &e)
}

func IsConnectionError(err error) bool {
	var e *ConnectionError
	return errors.As(err, &e)
}

func IsDataError(err error) bool {
	var e *DataError
	return errors.As(err, &e)
}

func IsResponseError(err error) bool {
	var e *ResponseError
	return errors.As(err, &e)
}

// ResponseCode reports the status byte of a ResponseError in err's
// chain, or -1 if err is not a ResponseError.
func ResponseCode(err error) int {
	var e *ResponseError
	if errors.As(err, &e) {
		return int(e.Code)
	}
	return -1
}
