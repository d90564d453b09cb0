// Package service implements typed clients for the ONVIF device, media,
// events and PTZ services.
//
// Each client owns an endpoint (XAddr), credentials and the device clock
// offset, and hands finished envelopes to a Caller, normally a
// *transport.Dispatcher. Requests are signed with a WS-Security
// UsernameToken whenever a username is configured. The one exception is
// GetSystemDateAndTime, which is tried anonymously first because it is
// needed to compute the clock offset the token depends on.
//
// Input that devices are known to reject silently (time zones, IPv4 filter
// entries) is validated locally and reported as a validation error without
// any network traffic.
package service
