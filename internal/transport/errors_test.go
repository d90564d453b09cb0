package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"syscall"
	"testing"
)

// timeoutError is a mock error that implements timeout behavior
type timeoutError struct{}

func (e *timeoutError) Error() string   { return "i/o timeout" }
func (e *timeoutError) Timeout() bool   { return true }
func (e *timeoutError) Temporary() bool { return true }

func TestClassifyNetworkError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantType  ErrorType
		retryable bool
	}{
		{
			name: "timeout",
			err: &url.Error{Op: "Post", URL: "http://10.0.0.5", Err: &net.OpError{
				Op: "dial", Net: "tcp", Err: &timeoutError{},
			}},
			wantType:  ErrTypeTimeout,
			retryable: true,
		},
		{
			name:      "context deadline",
			err:       fmt.Errorf("wrapped: %w", context.DeadlineExceeded),
			wantType:  ErrTypeTimeout,
			retryable: true,
		},
		{
			name: "connection refused",
			err: &url.Error{Op: "Post", URL: "http://10.0.0.5", Err: &net.OpError{
				Op: "dial", Net: "tcp", Err: syscall.ECONNREFUSED,
			}},
			wantType:  ErrTypeConnectionRefused,
			retryable: true,
		},
		{
			name:     "dns",
			err:      &net.DNSError{Err: "no such host", Name: "cam.invalid", IsNotFound: true},
			wantType: ErrTypeDNS,
		},
		{
			name:      "host unreachable",
			err:       &net.OpError{Op: "dial", Net: "tcp", Err: syscall.EHOSTUNREACH},
			wantType:  ErrTypeNetwork,
			retryable: true,
		},
		{
			name:      "generic",
			err:       errors.New("connection reset by peer"),
			wantType:  ErrTypeNetwork,
			retryable: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyNetworkError(tt.err)
			if got == nil {
				t.Fatal("ClassifyNetworkError() = nil")
			}
			if got.Type != tt.wantType {
				t.Errorf("Type = %v, want %v", got.Type, tt.wantType)
			}
			if got.Retryable != tt.retryable {
				t.Errorf("Retryable = %v, want %v", got.Retryable, tt.retryable)
			}
			if got.Err == nil {
				t.Errorf("classified error should wrap the original")
			}
		})
	}

	if ClassifyNetworkError(nil) != nil {
		t.Error("ClassifyNetworkError(nil) should be nil")
	}
}

func TestNewHTTPErrorAuthStatuses(t *testing.T) {
	if err := NewHTTPError(401, "401 Unauthorized", ""); !IsAuthError(err) {
		t.Errorf("401 should be an auth error, got %v", err.Type)
	}
	if err := NewHTTPError(403, "403 Forbidden", ""); !IsAuthError(err) {
		t.Errorf("403 should be an auth error, got %v", err.Type)
	}
	err := NewHTTPError(500, "500 Internal Server Error", "")
	if !IsHTTPError(err) {
		t.Errorf("500 should be an HTTP error, got %v", err.Type)
	}
	if !IsRetryable(err) {
		t.Error("5xx should be retryable")
	}
}

func TestUnsupportedMessage(t *testing.T) {
	err := NewUnsupportedError("GetSnapshotUri")
	want := "The device seems to not support the GetSnapshotUri() method."
	if !strings.Contains(err.Error(), want) {
		t.Errorf("Error() = %q, want it to contain %q", err.Error(), want)
	}
}

func TestPredicatesSeeThroughWrapping(t *testing.T) {
	err := fmt.Errorf("failed to initialize the device: %w", NewSOAPFaultError("GetCapabilities", "Sender not Authorized"))

	if !IsSOAPFault(err) {
		t.Error("IsSOAPFault() should unwrap")
	}
	if IsNetworkError(err) || IsValidationError(err) || IsStateError(err) {
		t.Error("fault should match only its own predicate")
	}
	if IsRetryable(errors.New("plain")) {
		t.Error("plain errors are not retryable")
	}
}

func TestErrorTypeString(t *testing.T) {
	tests := map[ErrorType]string{
		ErrTypeNetwork:     "Network Error",
		ErrTypeSOAPFault:   "SOAP Fault",
		ErrTypeUnsupported: "Unsupported",
		ErrTypeState:       "State Error",
		ErrorType(99):      "ErrorType(99)",
	}
	for typ, want := range tests {
		if got := typ.String(); got != want {
			t.Errorf("ErrorType(%d).String() = %q, want %q", int(typ), got, want)
		}
	}
}

func TestHint(t *testing.T) {
	if Hint(errors.New("x")) != "" {
		t.Error("Hint() for a foreign error should be empty")
	}
	if h := Hint(NewAuthError("nope")); !strings.Contains(h, "credentials") {
		t.Errorf("Hint(auth) = %q", h)
	}
}
