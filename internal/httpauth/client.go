package httpauth

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/muurk/onvifctl/internal/cryptoutil"
	"github.com/muurk/onvifctl/internal/logging"
)

// cnonceSize is the number of random bytes in a client nonce.
const cnonceSize = 8

// Client sends HTTP requests with Basic credentials and replays a request
// once with Digest credentials when the server answers 401 with a Digest
// challenge.
type Client struct {
	// HTTPClient is the underlying HTTP client. Nil means http.DefaultClient.
	HTTPClient *http.Client

	Username string
	Password string

	// nonceCount increases with every Digest authorization this client computes.
	nonceCount atomic.Uint32
}

// NewClient creates a digest-capable client for the given credentials.
func NewClient(httpClient *http.Client, username, password string) *Client {
	return &Client{
		HTTPClient: httpClient,
		Username:   username,
		Password:   password,
	}
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

// Do sends req. A 401 carrying a Digest challenge is answered exactly once;
// any other response, including a second 401, is returned to the caller.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	body, err := drainBody(req)
	if err != nil {
		return nil, err
	}

	first := req.Clone(req.Context())
	first.Body = body.reader()
	if c.Username != "" {
		first.SetBasicAuth(c.Username, c.Password)
	}

	resp, err := c.httpClient().Do(first)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized {
		return resp, nil
	}

	header := digestHeader(resp.Header)
	if header == "" {
		return resp, nil
	}

	challenge, err := ParseChallenge(header)
	if err != nil {
		logging.Debug("Ignoring unparsable digest challenge",
			zap.String("url", req.URL.Redacted()),
			zap.Error(err),
		)
		return resp, nil
	}

	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()

	authz, err := c.authorize(challenge, req.Method, req.URL.RequestURI())
	if err != nil {
		return nil, err
	}

	logging.Debug("Answering digest challenge",
		zap.String("url", req.URL.Redacted()),
		zap.String("realm", challenge.Realm),
		zap.String("algorithm", challenge.Algorithm),
	)

	retry := req.Clone(req.Context())
	retry.Body = body.reader()
	retry.Header.Set("Authorization", authz)
	return c.httpClient().Do(retry)
}

func (c *Client) authorize(ch *Challenge, method, uri string) (string, error) {
	cnonce, err := cryptoutil.RandomHex(cnonceSize)
	if err != nil {
		return "", fmt.Errorf("failed to generate cnonce: %w", err)
	}
	nc := FormatNonceCount(c.nonceCount.Add(1))
	return ch.Authorization(c.Username, c.Password, method, uri, nc, cnonce), nil
}

// NonceCount returns how many digest authorizations this client has computed.
func (c *Client) NonceCount() uint32 {
	return c.nonceCount.Load()
}

func digestHeader(h http.Header) string {
	for _, v := range h.Values("WWW-Authenticate") {
		if strings.HasPrefix(strings.ToLower(strings.TrimSpace(v)), "digest ") {
			return v
		}
	}
	return ""
}

type bufferedBody []byte

func (b bufferedBody) reader() io.ReadCloser {
	if b == nil {
		return http.NoBody
	}
	return io.NopCloser(bytes.NewReader(b))
}

func drainBody(req *http.Request) (bufferedBody, error) {
	if req.Body == nil || req.Body == http.NoBody {
		return nil, nil
	}
	defer req.Body.Close()
	data, err := io.ReadAll(req.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to buffer request body: %w", err)
	}
	return bufferedBody(data), nil
}
