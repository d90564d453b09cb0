package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"syscall"
)

// ErrorType represents the category of error that occurred
type ErrorType int

const (
	// ErrTypeNetwork indicates a network-level error
	ErrTypeNetwork ErrorType = iota
	// ErrTypeTimeout indicates the device did not answer in time
	ErrTypeTimeout
	// ErrTypeConnectionRefused indicates the device refused the connection
	ErrTypeConnectionRefused
	// ErrTypeDNS indicates a DNS resolution failure
	ErrTypeDNS
	// ErrTypeHTTP indicates a non-2xx HTTP status
	ErrTypeHTTP
	// ErrTypeSOAPFault indicates the device answered with a SOAP Fault
	ErrTypeSOAPFault
	// ErrTypeUnsupported indicates the device does not implement the action
	ErrTypeUnsupported
	// ErrTypeAuth indicates the device rejected the credentials
	ErrTypeAuth
	// ErrTypeValidation indicates a parameter was rejected before sending
	ErrTypeValidation
	// ErrTypeState indicates the operation needs state the client does not have
	ErrTypeState
	// ErrTypeParse indicates a response could not be decoded
	ErrTypeParse
)

// String returns a human-readable name for the error type
func (et ErrorType) String() string {
	switch et {
	case ErrTypeNetwork:
		return "Network Error"
	case ErrTypeTimeout:
		return "Timeout"
	case ErrTypeConnectionRefused:
		return "Connection Refused"
	case ErrTypeDNS:
		return "DNS Error"
	case ErrTypeHTTP:
		return "HTTP Error"
	case ErrTypeSOAPFault:
		return "SOAP Fault"
	case ErrTypeUnsupported:
		return "Unsupported"
	case ErrTypeAuth:
		return "Authentication Error"
	case ErrTypeValidation:
		return "Validation Error"
	case ErrTypeState:
		return "State Error"
	case ErrTypeParse:
		return "Parse Error"
	default:
		return fmt.Sprintf("ErrorType(%d)", et)
	}
}

// Error is the error type returned by every ONVIF operation.
type Error struct {
	Type       ErrorType
	Message    string
	StatusCode int    // HTTP status code, if any
	Reason     string // SOAP fault reason, if any
	Action     string // SOAP action being dispatched, if any
	Err        error
	Retryable  bool
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error for error chain inspection
func (e *Error) Unwrap() error {
	return e.Err
}

// ClassifyNetworkError maps a transport failure onto the error taxonomy.
func ClassifyNetworkError(err error) *Error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) || os.IsTimeout(err) {
		return &Error{Type: ErrTypeTimeout, Message: "request timed out", Err: err, Retryable: true}
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return &Error{Type: ErrTypeDNS, Message: fmt.Sprintf("DNS resolution failed for %s", dnsErr.Name), Err: err}
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		switch {
		case errors.Is(opErr.Err, syscall.ECONNREFUSED):
			return &Error{Type: ErrTypeConnectionRefused, Message: "device refused connection", Err: err, Retryable: true}
		case errors.Is(opErr.Err, syscall.EHOSTUNREACH):
			return &Error{Type: ErrTypeNetwork, Message: "host unreachable", Err: err, Retryable: true}
		case errors.Is(opErr.Err, syscall.ENETUNREACH):
			return &Error{Type: ErrTypeNetwork, Message: "network unreachable", Err: err, Retryable: true}
		}
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Err != err {
		return ClassifyNetworkError(urlErr.Err)
	}

	return &Error{Type: ErrTypeNetwork, Message: "network error occurred", Err: err, Retryable: true}
}

// NewNetworkError creates a network-level error with automatic classification
func NewNetworkError(message string, err error) *Error {
	classified := ClassifyNetworkError(err)
	if classified == nil {
		return &Error{Type: ErrTypeNetwork, Message: message, Retryable: true}
	}
	classified.Message = message
	return classified
}

// NewHTTPError creates an error for a non-2xx response. 401 and 403 are
// reported as authentication errors.
func NewHTTPError(statusCode int, message, reason string) *Error {
	typ := ErrTypeHTTP
	if statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden {
		typ = ErrTypeAuth
	}
	return &Error{
		Type:       typ,
		Message:    message,
		StatusCode: statusCode,
		Reason:     reason,
		Retryable:  statusCode >= 500,
	}
}

// NewSOAPFaultError creates an error for a SOAP Fault in a 2xx response.
func NewSOAPFaultError(action, reason string) *Error {
	return &Error{Type: ErrTypeSOAPFault, Message: reason, Reason: reason, Action: action}
}

// NewUnsupportedError reports that a device did not answer with the
// expected <action>Response element.
func NewUnsupportedError(action string) *Error {
	return &Error{
		Type:    ErrTypeUnsupported,
		Message: fmt.Sprintf("The device seems to not support the %s() method.", action),
		Action:  action,
	}
}

// NewAuthError creates an authentication error
func NewAuthError(message string) *Error {
	return &Error{Type: ErrTypeAuth, Message: message, StatusCode: http.StatusUnauthorized}
}

// NewValidationError creates a validation error
func NewValidationError(message string) *Error {
	return &Error{Type: ErrTypeValidation, Message: message}
}

// NewStateError reports an operation that cannot run in the current state.
func NewStateError(message string) *Error {
	return &Error{Type: ErrTypeState, Message: message}
}

// NewParseError creates a parsing error
func NewParseError(message string, err error) *Error {
	return &Error{Type: ErrTypeParse, Message: message, Err: err}
}

func typeOf(err error) (ErrorType, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Type, true
	}
	return 0, false
}

func isType(err error, types ...ErrorType) bool {
	t, ok := typeOf(err)
	if !ok {
		return false
	}
	for _, want := range types {
		if t == want {
			return true
		}
	}
	return false
}

// IsNetworkError checks if an error is a network error (including timeout, connection refused, DNS)
func IsNetworkError(err error) bool {
	return isType(err, ErrTypeNetwork, ErrTypeTimeout, ErrTypeConnectionRefused, ErrTypeDNS)
}

// IsTimeout checks if an error is a timeout
func IsTimeout(err error) bool { return isType(err, ErrTypeTimeout) }

// IsHTTPError checks if an error is an HTTP error
func IsHTTPError(err error) bool { return isType(err, ErrTypeHTTP) }

// IsSOAPFault checks if an error is a SOAP fault
func IsSOAPFault(err error) bool { return isType(err, ErrTypeSOAPFault) }

// IsUnsupported checks if the device lacks the requested action
func IsUnsupported(err error) bool { return isType(err, ErrTypeUnsupported) }

// IsAuthError checks if an error is an authentication error
func IsAuthError(err error) bool { return isType(err, ErrTypeAuth) }

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool { return isType(err, ErrTypeValidation) }

// IsStateError checks if an error is a state error
func IsStateError(err error) bool { return isType(err, ErrTypeState) }

// IsParseError checks if an error is a parse error
func IsParseError(err error) bool { return isType(err, ErrTypeParse) }

// IsRetryable checks if an error should be retried
func IsRetryable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Retryable
	}
	return false
}

// Hint returns troubleshooting advice for an error
func Hint(err error) string {
	var e *Error
	if !errors.As(err, &e) {
		return ""
	}

	switch e.Type {
	case ErrTypeTimeout:
		return strings.Join([]string{
			"The camera did not respond in time.",
			"  • Check that the camera is powered on and reachable",
			"  • Try a longer --timeout",
		}, "\n")
	case ErrTypeConnectionRefused:
		return strings.Join([]string{
			"The camera refused the connection.",
			"  • Verify the ONVIF port (often 80, 8000 or 8080)",
			"  • Make sure ONVIF is enabled in the camera's web UI",
		}, "\n")
	case ErrTypeDNS:
		return "Could not resolve the camera hostname. Use its IP address instead."
	case ErrTypeAuth:
		return strings.Join([]string{
			"The camera rejected the credentials.",
			"  • Many cameras need a dedicated ONVIF user",
			"  • Large clock drift also breaks WS-Security tokens",
		}, "\n")
	case ErrTypeSOAPFault:
		return "The camera returned a SOAP fault: " + e.Reason
	case ErrTypeUnsupported:
		return "The camera does not implement this ONVIF operation."
	case ErrTypeNetwork:
		return "Network communication failed. Check that you are on the camera's network."
	default:
		return ""
	}
}
