package httpauth

import (
	"errors"
	"fmt"
	"strings"

	"github.com/muurk/onvifctl/internal/cryptoutil"
)

// Challenge holds the parameters of a Digest WWW-Authenticate header.
type Challenge struct {
	Realm     string
	Nonce     string
	Algorithm string
	QOP       string
	Opaque    string
}

// ParseChallenge parses a Digest WWW-Authenticate header value. Parameters
// are split on commas and each one on its first '='; surrounding quotes are
// removed. A missing algorithm defaults to MD5.
func ParseChallenge(header string) (*Challenge, error) {
	header = strings.TrimSpace(header)
	if !strings.HasPrefix(strings.ToLower(header), "digest ") {
		return nil, fmt.Errorf("not a digest challenge: %q", header)
	}
	header = strings.TrimSpace(header[len("digest "):])

	params := make(map[string]string)
	for _, part := range splitParams(header) {
		k, v, ok := strings.Cut(part, "=")
		if !ok {
			continue
		}
		k = strings.ToLower(strings.TrimSpace(k))
		v = strings.Trim(strings.TrimSpace(v), `"`)
		if k == "" || v == "" {
			continue
		}
		params[k] = v
	}

	ch := &Challenge{
		Realm:     params["realm"],
		Nonce:     params["nonce"],
		Algorithm: params["algorithm"],
		QOP:       pickQOP(params["qop"]),
		Opaque:    params["opaque"],
	}
	if ch.Nonce == "" {
		return nil, errors.New("digest challenge has no nonce")
	}
	if ch.Algorithm == "" {
		ch.Algorithm = "MD5"
	}
	return ch, nil
}

// splitParams splits on commas that are not inside a quoted string, so a
// qop list such as "auth,auth-int" stays in one piece.
func splitParams(s string) []string {
	var parts []string
	var cur strings.Builder
	quoted := false
	for _, r := range s {
		switch {
		case r == '"':
			quoted = !quoted
			cur.WriteRune(r)
		case r == ',' && !quoted:
			parts = append(parts, strings.TrimSpace(cur.String()))
			cur.Reset()
		default:
			cur.WriteRune(r)
		}
	}
	if cur.Len() > 0 {
		parts = append(parts, strings.TrimSpace(cur.String()))
	}
	return parts
}

func pickQOP(qop string) string {
	if qop == "" {
		return ""
	}
	options := strings.Split(qop, ",")
	for _, o := range options {
		if strings.TrimSpace(o) == "auth" {
			return "auth"
		}
	}
	return strings.TrimSpace(options[0])
}

// Response computes the request digest for the given credentials and
// request line. It is a pure function of its inputs.
func (c *Challenge) Response(username, password, method, uri, nc, cnonce string) string {
	ha1 := cryptoutil.HashHex(c.Algorithm, username+":"+c.Realm+":"+password)
	ha2 := cryptoutil.HashHex(c.Algorithm, method+":"+uri)
	if c.QOP == "" {
		return cryptoutil.HashHex(c.Algorithm, ha1+":"+c.Nonce+":"+ha2)
	}
	return cryptoutil.HashHex(c.Algorithm, strings.Join([]string{ha1, c.Nonce, nc, cnonce, c.QOP, ha2}, ":"))
}

// Authorization renders the Authorization header value for one request.
func (c *Challenge) Authorization(username, password, method, uri, nc, cnonce string) string {
	fields := []string{
		fmt.Sprintf(`username="%s"`, username),
		fmt.Sprintf(`realm="%s"`, c.Realm),
		fmt.Sprintf(`nonce="%s"`, c.Nonce),
		fmt.Sprintf(`uri="%s"`, uri),
		"algorithm=" + c.Algorithm,
	}
	if c.QOP != "" {
		fields = append(fields,
			"qop="+c.QOP,
			"nc="+nc,
			fmt.Sprintf(`cnonce="%s"`, cnonce),
		)
	}
	fields = append(fields, fmt.Sprintf(`response="%s"`, c.Response(username, password, method, uri, nc, cnonce)))
	if c.Opaque != "" {
		fields = append(fields, fmt.Sprintf(`opaque="%s"`, c.Opaque))
	}
	return "Digest " + strings.Join(fields, ", ")
}

// FormatNonceCount renders a nonce count as the eight hex digits Digest uses.
func FormatNonceCount(n uint32) string {
	return fmt.Sprintf("%08x", n)
}
