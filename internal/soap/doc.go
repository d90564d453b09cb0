// Package soap builds and parses the SOAP 1.2 envelopes spoken by ONVIF
// devices.
//
// Outgoing envelopes optionally carry a WS-Security UsernameToken with a
// digested password. The token's Created timestamp is shifted by the caller's
// measured clock difference to the device, since most cameras reject tokens
// outside a small window.
//
// Incoming documents are decoded into a Node tree keyed by local element
// names. Vendors disagree about prefixes (tt:, trt:, ns2:, ...) so nothing in
// this package looks at namespaces once a document is parsed.
//
//	env, err := soap.BuildEnvelope(soap.EnvelopeOptions{
//	    Namespaces: []soap.Namespace{{Prefix: "tds", URI: "http://www.onvif.org/ver10/device/wsdl"}},
//	    Username:   "admin",
//	    Password:   "secret",
//	    Body:       "<tds:GetDeviceInformation/>",
//	})
package soap
