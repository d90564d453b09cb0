package transport

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

const envelopeNS = `xmlns:s="http://www.w3.org/2003/05/soap-envelope"`

func envelope(body string) string {
	return `<?xml version="1.0" encoding="UTF-8"?><s:Envelope ` + envelopeNS + `><s:Body>` + body + `</s:Body></s:Envelope>`
}

func newServer(t *testing.T, status int, body string) (*httptest.Server, *http.Request) {
	t.Helper()
	var captured http.Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = *r.Clone(context.Background())
		w.Header().Set("Content-Type", ContentType)
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv, &captured
}

func TestDispatchSuccess(t *testing.T) {
	srv, req := newServer(t, http.StatusOK, envelope(`<tds:GetHostnameResponse xmlns:tds="http://www.onvif.org/ver10/device/wsdl"><tds:HostnameInformation><tt:Name xmlns:tt="http://www.onvif.org/ver10/schema">cam-1</tt:Name></tds:HostnameInformation></tds:GetHostnameResponse>`))

	d := NewDispatcher()
	res, err := d.Dispatch(context.Background(), srv.URL+"/onvif/device_service", "GetHostname", "<request/>")
	if err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}

	if req.Method != http.MethodPost {
		t.Errorf("method = %s, want POST", req.Method)
	}
	if got := req.Header.Get("Content-Type"); got != ContentType {
		t.Errorf("Content-Type = %q, want %q", got, ContentType)
	}
	if req.URL.Path != "/onvif/device_service" {
		t.Errorf("path = %s", req.URL.Path)
	}
	if res.Request != "<request/>" {
		t.Errorf("Request = %q", res.Request)
	}
	if got := res.Payload("GetHostname").TextAt("HostnameInformation", "Name"); got != "cam-1" {
		t.Errorf("hostname = %q, want cam-1", got)
	}
}

func TestDispatchStripsCredentials(t *testing.T) {
	srv, req := newServer(t, http.StatusOK, envelope(`<GetScopesResponse/>`))

	target := strings.Replace(srv.URL, "http://", "http://admin:secret@", 1)
	if _, err := NewDispatcher().Dispatch(context.Background(), target, "GetScopes", "<x/>"); err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	if req.Header.Get("Authorization") != "" {
		t.Error("URL credentials must not be forwarded as Basic auth")
	}
}

func TestDispatchSOAPFault(t *testing.T) {
	srv, _ := newServer(t, http.StatusOK, envelope(`<s:Fault><s:Code><s:Value>s:Sender</s:Value><s:Subcode><s:Value>ter:InvalidArgVal</s:Value></s:Subcode></s:Code></s:Fault>`))

	_, err := NewDispatcher().Dispatch(context.Background(), srv.URL, "SetHostname", "<x/>")
	if !IsSOAPFault(err) {
		t.Fatalf("Dispatch() error = %v, want SOAP fault", err)
	}
	if !strings.Contains(err.Error(), "s:Sender ter:InvalidArgVal") {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestDispatchUnsupportedAction(t *testing.T) {
	srv, _ := newServer(t, http.StatusOK, envelope(`<SomethingElseResponse/>`))

	_, err := NewDispatcher().Dispatch(context.Background(), srv.URL, "GetSnapshotUri", "<x/>")
	if !IsUnsupported(err) {
		t.Fatalf("Dispatch() error = %v, want unsupported", err)
	}
	if !strings.Contains(err.Error(), "The device seems to not support the GetSnapshotUri() method.") {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestDispatchMalformedFaultIsNotAFault(t *testing.T) {
	srv, _ := newServer(t, http.StatusOK, envelope(`<s:Fault/><GetHostnameResponse/>`))

	if _, err := NewDispatcher().Dispatch(context.Background(), srv.URL, "GetHostname", "<x/>"); err != nil {
		t.Fatalf("Dispatch() error = %v, want success", err)
	}
}

func TestDispatchHTTPStatusWithFault(t *testing.T) {
	srv, _ := newServer(t, http.StatusBadRequest, envelope(`<s:Fault><s:Reason><s:Text>Invalid token</s:Text></s:Reason></s:Fault>`))

	_, err := NewDispatcher().Dispatch(context.Background(), srv.URL, "GetProfiles", "<x/>")
	if !IsHTTPError(err) {
		t.Fatalf("Dispatch() error = %v, want HTTP error", err)
	}
	e := err.(*Error)
	if e.StatusCode != http.StatusBadRequest {
		t.Errorf("StatusCode = %d", e.StatusCode)
	}
	if e.Message != "400 Bad Request-Invalid token" {
		t.Errorf("Message = %q, want %q", e.Message, "400 Bad Request-Invalid token")
	}
}

func TestDispatchHTTPStatusWithoutBody(t *testing.T) {
	srv, _ := newServer(t, http.StatusUnauthorized, "")

	_, err := NewDispatcher().Dispatch(context.Background(), srv.URL, "GetProfiles", "<x/>")
	if !IsAuthError(err) {
		t.Fatalf("Dispatch() error = %v, want auth error", err)
	}
	if e := err.(*Error); e.Message != "401 Unauthorized" {
		t.Errorf("Message = %q", e.Message)
	}
}

func TestDispatchTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	d := NewDispatcher()
	d.SetTimeout(50 * time.Millisecond)

	start := time.Now()
	_, err := d.Dispatch(context.Background(), srv.URL, "GetProfiles", "<x/>")
	if !IsNetworkError(err) {
		t.Fatalf("Dispatch() error = %v, want network error", err)
	}
	if !IsTimeout(err) {
		t.Errorf("Dispatch() error = %v, want timeout", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("Dispatch() took %v, timeout not enforced", elapsed)
	}
}

func TestDispatchConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	_, err := NewDispatcher().Dispatch(context.Background(), addr, "GetProfiles", "<x/>")
	if !IsNetworkError(err) {
		t.Fatalf("Dispatch() error = %v, want network error", err)
	}
	if !strings.HasPrefix(err.Error(), "Connection Refused") && !strings.HasPrefix(err.Error(), "Network Error") {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestDispatchInvalidEndpoint(t *testing.T) {
	_, err := NewDispatcher().Dispatch(context.Background(), "not a url", "GetProfiles", "<x/>")
	if !IsValidationError(err) {
		t.Fatalf("Dispatch() error = %v, want validation error", err)
	}
}

func TestStripUserInfo(t *testing.T) {
	got, err := StripUserInfo("http://admin:pw@10.0.0.5:8080/onvif/media?x=1")
	if err != nil {
		t.Fatalf("StripUserInfo() error = %v", err)
	}
	if got != "http://10.0.0.5:8080/onvif/media?x=1" {
		t.Errorf("StripUserInfo() = %q", got)
	}
}

func TestDispatch2xx(t *testing.T) {
	for _, status := range []int{http.StatusOK, http.StatusAccepted, http.StatusNonAuthoritativeInfo} {
		t.Run(http.StatusText(status), func(t *testing.T) {
			srv, _ := newServer(t, status, envelope(`<GetHostnameResponse/>`))

			res, err := NewDispatcher().Dispatch(context.Background(), srv.URL, "GetHostname", "<request/>")
			if err != nil {
				t.Fatalf("Dispatch() error = %v", err)
			}
			if res.Payload("GetHostname") == nil {
				t.Error("Payload(GetHostname) = nil, want the response element")
			}
		})
	}
}
