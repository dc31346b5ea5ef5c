package fetcher

import (
	"errors"
	"fmt"
)

// ErrorCode classifies a scan-aborting failure.
type ErrorCode string

const (
	CodeFetchFailed    ErrorCode = "fetch-failed"
	CodeTimeout        ErrorCode = "timeout"
	CodeBlocked        ErrorCode = "blocked"
	CodeInvalidContent ErrorCode = "invalid-content"
	CodeNoContent      ErrorCode = "no-content"
	CodeUnexpected     ErrorCode = "unexpected"
)

var defaultMessages = map[ErrorCode]string{
	CodeFetchFailed:    "Failed to fetch the website",
	CodeTimeout:        "The website took too long to respond",
	CodeBlocked:        "The website blocked our request",
	CodeInvalidContent: "The URL did not return an HTML page",
	CodeNoContent:      "The website returned no usable content",
	CodeUnexpected:     "An unexpected error occurred while scanning the website",
}

// DefaultMessage returns the human-readable message for code.
func DefaultMessage(code ErrorCode) string {
	if msg, ok := defaultMessages[code]; ok {
		return msg
	}
	return defaultMessages[CodeUnexpected]
}

// ScanError is the single typed error for failures that abort a scan.
type ScanError struct {
	Code    ErrorCode
	Message string
	Err     error
}

// NewScanError builds a ScanError. An empty detail keeps the default message;
// otherwise the detail is appended to it.
func NewScanError(code ErrorCode, detail string, cause error) *ScanError {
	msg := DefaultMessage(code)
	if detail != "" {
		msg = fmt.Sprintf("%s: %s", msg, detail)
	}
	return &ScanError{Code: code, Message: msg, Err: cause}
}

func (e *ScanError) Error() string {
	return e.Message
}

func (e *ScanError) Unwrap() error {
	return e.Err
}

// AsScanError reports whether err is (or wraps) a ScanError.
func AsScanError(err error) (*ScanError, bool) {
	var scanErr *ScanError
	if errors.As(err, &scanErr) {
		return scanErr, true
	}
	return nil, false
}
