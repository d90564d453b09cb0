package transport

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/onvifctl/internal/logging"
	"github.com/muurk/onvifctl/internal/soap"
	"github.com/muurk/onvifctl/internal/version"
)

const (
	// DefaultTimeout bounds one SOAP round trip.
	DefaultTimeout = 3 * time.Second

	// ContentType is sent with every SOAP request.
	ContentType = "application/soap+xml; charset=utf-8"

	// maxResponseSize caps how much of a response body is read.
	maxResponseSize = 8 << 20
)

// Dispatcher posts SOAP envelopes to device endpoints and turns the replies
// into results or typed errors.
type Dispatcher struct {
	// HTTPClient is the underlying HTTP client
	HTTPClient *http.Client

	// Timeout bounds each Dispatch call. Zero disables the bound.
	Timeout time.Duration

	// UserAgent is sent with each request
	UserAgent string
}

// NewDispatcher creates a dispatcher with the default timeout.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		HTTPClient: &http.Client{},
		Timeout:    DefaultTimeout,
		UserAgent:  version.UserAgent(),
	}
}

// SetTimeout sets the per-request timeout
func (d *Dispatcher) SetTimeout(timeout time.Duration) {
	d.Timeout = timeout
}

// Dispatch sends envelope to endpoint. On success the result's Data is the
// response Body, which is guaranteed to contain an <action>Response element.
func (d *Dispatcher) Dispatch(ctx context.Context, endpoint, action, envelope string) (*soap.Result, error) {
	if d.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.Timeout)
		defer cancel()
	}

	target, err := StripUserInfo(endpoint)
	if err != nil {
		return nil, NewValidationError(fmt.Sprintf("invalid endpoint %q: %v", endpoint, err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, strings.NewReader(envelope))
	if err != nil {
		return nil, NewValidationError(fmt.Sprintf("failed to create request: %v", err))
	}
	req.Header.Set("Content-Type", ContentType)
	if d.UserAgent != "" {
		req.Header.Set("User-Agent", d.UserAgent)
	}

	logging.LogRawXML("SOAP request "+action, []byte(envelope))

	client := d.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, NewNetworkError(fmt.Sprintf("%s to %s failed", action, target), err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, NewNetworkError(fmt.Sprintf("failed to read %s response", action), err)
	}

	logging.LogSOAPExchange(target, action, resp.StatusCode, len(data))
	logging.LogRawXML("SOAP response "+action, data)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, statusError(action, resp, data)
	}

	root, err := soap.Parse(data)
	if err != nil {
		return nil, NewParseError(fmt.Sprintf("invalid %s response", action), err)
	}

	if reason := soap.FaultReason(root); reason != "" {
		return nil, NewSOAPFaultError(action, reason)
	}
	if soap.IsFault(root) {
		logging.Debug("Fault without a usable reason, treating as success",
			zap.String("action", action),
			zap.ByteString("body", data),
		)
	}

	body := soap.Body(root)
	if body.Child(action+"Response") == nil {
		return nil, NewUnsupportedError(action)
	}

	return &soap.Result{
		Request:  envelope,
		Response: string(data),
		Root:     root,
		Data:     body,
	}, nil
}

// statusError builds the error for a non-2xx reply, appending the fault
// reason when the body carries one.
func statusError(action string, resp *http.Response, data []byte) *Error {
	var reason string
	if len(data) > 0 {
		if root, err := soap.Parse(data); err == nil {
			reason = soap.FaultReason(root)
		}
	}

	msg := resp.Status
	if reason != "" {
		msg += "-" + reason
	}

	e := NewHTTPError(resp.StatusCode, msg, reason)
	e.Action = action
	return e
}

// StripUserInfo removes credentials embedded in a URL.
func StripUserInfo(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("missing scheme or host")
	}
	u.User = nil
	return u.String(), nil
}
