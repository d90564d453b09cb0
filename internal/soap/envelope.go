package soap

import (
	"encoding/base64"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/muurk/onvifctl/internal/cryptoutil"
)

const (
	// NamespaceEnvelope is the SOAP 1.2 envelope namespace.
	NamespaceEnvelope = "http://www.w3.org/2003/05/soap-envelope"

	// NamespaceWSSE is the WS-Security extension namespace.
	NamespaceWSSE = "http://docs.oasis-open.org/wss/2004/01/oasis-200401-wss-wssecurity-secext-1.0.xsd"

	// NamespaceWSU is the WS-Security utility namespace used by Created.
	NamespaceWSU = "http://docs.oasis-open.org/wss/2004/01/oasis-200401-wss-wssecurity-utility-1.0.xsd"

	// PasswordDigestType identifies a digested UsernameToken password.
	PasswordDigestType = "http://docs.oasis-open.org/wss/2004/01/oasis-200401-wss-username-token-profile-1.0#PasswordDigest"

	// Base64BinaryEncoding identifies the nonce encoding.
	Base64BinaryEncoding = "http://docs.oasis-open.org/wss/2004/01/oasis-200401-wss-soap-message-security-1.0#Base64Binary"

	// NonceSize is the number of random bytes in a UsernameToken nonce.
	NonceSize = 16

	// createdLayout matches the millisecond UTC timestamps cameras expect.
	createdLayout = "2006-01-02T15:04:05.000Z"
)

var interTagSpace = regexp.MustCompile(`>\s+<`)

// Namespace is an xmlns declaration added to the Envelope element.
type Namespace struct {
	Prefix string
	URI    string
}

func (n Namespace) String() string {
	return fmt.Sprintf(`xmlns:%s="%s"`, n.Prefix, n.URI)
}

// EnvelopeOptions describes one outgoing request.
type EnvelopeOptions struct {
	Namespaces []Namespace
	Username   string
	Password   string
	// TimeDiff is the device clock minus the local clock. It shifts the
	// Created timestamp so the device accepts the token.
	TimeDiff time.Duration
	// Body is inserted verbatim into s:Body.
	Body string
	// Now overrides the clock. Nil means time.Now.
	Now func() time.Time
}

// BuildEnvelope renders a SOAP 1.2 envelope. A WS-Security UsernameToken is
// added to the header only when Username is set.
func BuildEnvelope(opts EnvelopeOptions) (string, error) {
	var b strings.Builder

	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	b.WriteString(`<s:Envelope xmlns:s="` + NamespaceEnvelope + `"`)
	for _, ns := range opts.Namespaces {
		b.WriteString(" " + ns.String())
	}
	b.WriteString(">")

	b.WriteString("<s:Header>")
	if opts.Username != "" {
		now := time.Now
		if opts.Now != nil {
			now = opts.Now
		}
		security, err := securityHeader(opts.Username, opts.Password, now().Add(opts.TimeDiff))
		if err != nil {
			return "", err
		}
		b.WriteString(security)
	}
	b.WriteString("</s:Header>")

	b.WriteString("<s:Body>")
	b.WriteString(opts.Body)
	b.WriteString("</s:Body>")
	b.WriteString("</s:Envelope>")

	return Compact(b.String()), nil
}

func securityHeader(username, password string, created time.Time) (string, error) {
	nonce, err := cryptoutil.RandomBytes(NonceSize)
	if err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}
	return renderSecurity(username, password, nonce, FormatCreated(created)), nil
}

func renderSecurity(username, password string, nonce []byte, created string) string {
	var b strings.Builder
	b.WriteString(`<Security s:mustUnderstand="1" xmlns="` + NamespaceWSSE + `">`)
	b.WriteString("<UsernameToken>")
	b.WriteString("<Username>" + Escape(username) + "</Username>")
	b.WriteString(`<Password Type="` + PasswordDigestType + `">` + PasswordDigest(nonce, created, password) + "</Password>")
	b.WriteString(`<Nonce EncodingType="` + Base64BinaryEncoding + `">` + base64.StdEncoding.EncodeToString(nonce) + "</Nonce>")
	b.WriteString(`<Created xmlns="` + NamespaceWSU + `">` + created + "</Created>")
	b.WriteString("</UsernameToken>")
	b.WriteString("</Security>")
	return b.String()
}

// PasswordDigest computes base64(SHA-1(nonce + created + password)).
func PasswordDigest(nonce []byte, created, password string) string {
	sum := cryptoutil.SHA1(nonce, []byte(created), []byte(password))
	return base64.StdEncoding.EncodeToString(sum)
}

// FormatCreated renders t as an ISO-8601 UTC timestamp with milliseconds.
func FormatCreated(t time.Time) string {
	return t.UTC().Format(createdLayout)
}

// Compact removes whitespace between adjacent tags.
func Compact(s string) string {
	return interTagSpace.ReplaceAllString(s, "><")
}

var xmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&apos;",
)

// Escape escapes s for use as XML character data or an attribute value.
func Escape(s string) string {
	return xmlEscaper.Replace(s)
}
