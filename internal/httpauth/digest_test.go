package httpauth

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResponseRFC2617Vector(t *testing.T) {
	ch := &Challenge{
		Realm:     "testrealm@host.com",
		Nonce:     "dcd98b7102dd2f0e8b11d0f600bfb0c093",
		Algorithm: "MD5",
		QOP:       "auth",
	}

	got := ch.Response("Mufasa", "Circle Of Life", "GET", "/dir/index.html", "00000001", "0a4f113b")
	assert.Equal(t, "6629fae49393a05397450978507c4ef1", got)
}

func TestParseChallenge(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   Challenge
	}{
		{
			name:   "full challenge",
			header: `Digest realm="IP Camera", qop="auth", nonce="abc123", opaque="xyz", algorithm="SHA-256"`,
			want:   Challenge{Realm: "IP Camera", QOP: "auth", Nonce: "abc123", Opaque: "xyz", Algorithm: "SHA-256"},
		},
		{
			name:   "algorithm defaults to MD5",
			header: `Digest realm="cam", nonce="n1", qop="auth"`,
			want:   Challenge{Realm: "cam", Nonce: "n1", QOP: "auth", Algorithm: "MD5"},
		},
		{
			name:   "qop list prefers auth",
			header: `Digest realm="cam", nonce="n1", qop="auth-int,auth"`,
			want:   Challenge{Realm: "cam", Nonce: "n1", QOP: "auth", Algorithm: "MD5"},
		},
		{
			name:   "base64 nonce with padding",
			header: `Digest realm="cam",nonce="bm9uY2U=",qop=auth`,
			want:   Challenge{Realm: "cam", Nonce: "bm9uY2U=", QOP: "auth", Algorithm: "MD5"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseChallenge(tt.header)
			require.NoError(t, err)
			assert.Equal(t, tt.want, *got)
		})
	}
}

func TestParseChallengeRejects(t *testing.T) {
	for _, h := range []string{`Basic realm="cam"`, `Digest realm="cam"`, ``} {
		_, err := ParseChallenge(h)
		assert.Error(t, err, "ParseChallenge(%q)", h)
	}
}

func TestAuthorizationHeader(t *testing.T) {
	ch := &Challenge{Realm: "cam", Nonce: "n", Algorithm: "MD5", QOP: "auth", Opaque: "op"}

	got := ch.Authorization("admin", "pw", "POST", "/onvif/device_service", "00000001", "cafebabe")

	assert.True(t, strings.HasPrefix(got, "Digest "))
	for _, part := range []string{
		`username="admin"`,
		`realm="cam"`,
		`nonce="n"`,
		`uri="/onvif/device_service"`,
		"algorithm=MD5",
		"qop=auth",
		"nc=00000001",
		`cnonce="cafebabe"`,
		`opaque="op"`,
	} {
		assert.Contains(t, got, part)
	}
}

func TestFormatNonceCount(t *testing.T) {
	assert.Equal(t, "00000001", FormatNonceCount(1))
	assert.Equal(t, "000000ff", FormatNonceCount(255))
}

// digestServer requires a valid MD5 digest for admin/secret.
func digestServer(t *testing.T, hits *atomic.Int32) *httptest.Server {
	t.Helper()
	const nonce = "srvnonce"
	ch := &Challenge{Realm: "cam", Nonce: nonce, Algorithm: "MD5", QOP: "auth"}

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		authz := r.Header.Get("Authorization")
		if !strings.HasPrefix(authz, "Digest ") {
			w.Header().Set("WWW-Authenticate", `Digest realm="cam", nonce="`+nonce+`", qop="auth"`)
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		params := map[string]string{}
		for _, p := range splitParams(strings.TrimPrefix(authz, "Digest ")) {
			k, v, _ := strings.Cut(p, "=")
			params[k] = strings.Trim(v, `"`)
		}
		want := ch.Response("admin", "secret", r.Method, params["uri"], params["nc"], params["cnonce"])
		if params["response"] != want {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		body, _ := io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("ok:" + string(body)))
	}))
}

func TestClientDoAnswersDigestChallenge(t *testing.T) {
	var hits atomic.Int32
	srv := digestServer(t, &hits)
	defer srv.Close()

	client := NewClient(srv.Client(), "admin", "secret")

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/onvif/snapshot?channel=1", strings.NewReader("payload"))
	require.NoError(t, err)

	resp, err := client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok:payload", string(body))
	assert.Equal(t, int32(2), hits.Load())
	assert.Equal(t, uint32(1), client.NonceCount())
}

func TestClientDoRetriesOnlyOnce(t *testing.T) {
	var hits atomic.Int32
	srv := digestServer(t, &hits)
	defer srv.Close()

	client := NewClient(srv.Client(), "admin", "wrong")

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/snap.jpg", nil)
	require.NoError(t, err)

	resp, err := client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, int32(2), hits.Load())
}

func TestClientDoPassesThroughNonDigest401(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("WWW-Authenticate", `Basic realm="cam"`)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := NewClient(srv.Client(), "admin", "secret")
	req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)

	resp, err := client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, int32(1), hits.Load())
}

func TestClientNonceCountIncrements(t *testing.T) {
	var hits atomic.Int32
	srv := digestServer(t, &hits)
	defer srv.Close()

	client := NewClient(srv.Client(), "admin", "secret")
	for i := 0; i < 3; i++ {
		req, _ := http.NewRequest(http.MethodGet, srv.URL+"/x", nil)
		resp, err := client.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
	}

	assert.Equal(t, uint32(3), client.NonceCount())
}

func TestClientDoAnswersReorderedChallenge(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if !strings.HasPrefix(r.Header.Get("Authorization"), "Digest ") {
			w.Header().Set("WWW-Authenticate", `digest qop="auth", realm="cam", nonce="n1"`)
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := NewClient(srv.Client(), "admin", "secret")
	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/snap.jpg", nil)

	resp, err := client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int32(2), hits.Load())
}
