// Package httpauth implements the client side of HTTP Digest authentication
// (RFC 2617 with the SHA-256 algorithm family from RFC 7616).
//
// Cameras guard snapshot and some SOAP endpoints with Digest auth. Client
// sends the request once, and if the answer is a 401 with a Digest challenge
// it replays the request a single time with an Authorization header.
package httpauth
