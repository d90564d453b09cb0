// Package transport delivers SOAP envelopes to ONVIF endpoints over HTTP.
//
// Dispatch enforces a per-request timeout and classifies every failure into
// an *Error with an ErrorType: network problems, non-200 statuses, SOAP
// faults, and replies that lack the expected <Action>Response element (the
// usual sign that a camera does not implement an operation).
//
//	d := transport.NewDispatcher()
//	res, err := d.Dispatch(ctx, xaddr, "GetDeviceInformation", envelope)
//	if transport.IsUnsupported(err) {
//	    // fall back
//	}
package transport
