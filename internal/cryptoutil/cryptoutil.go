// Package cryptoutil holds the hashing and randomness helpers shared by the
// WS-Security and HTTP Digest implementations.
package cryptoutil

import (
	"crypto/md5"
	"crypto/rand"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// MD5Hex returns the lowercase hex MD5 digest of s.
func MD5Hex(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}

// SHA256Hex returns the lowercase hex SHA-256 digest of s.
func SHA256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// SHA1 returns the raw SHA-1 digest of the concatenated parts.
func SHA1(parts ...[]byte) []byte {
	h := sha1.New()
	for _, p := range parts {
		h.Write(p)
	}
	return h.Sum(nil)
}

// IsSHA256 reports whether a digest algorithm name belongs to the SHA-256 family.
func IsSHA256(algorithm string) bool {
	a := strings.ToUpper(strings.ReplaceAll(algorithm, "-", ""))
	return a == "SHA256" || a == "SHA256SESS"
}

// HashHex hashes s with the digest algorithm named by a WWW-Authenticate
// challenge. Anything outside the SHA-256 family hashes with MD5.
func HashHex(algorithm, s string) string {
	if IsSHA256(algorithm) {
		return SHA256Hex(s)
	}
	return MD5Hex(s)
}

// RandomBytes returns n bytes from the system CSPRNG.
func RandomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("failed to read random bytes: %w", err)
	}
	return b, nil
}

// RandomHex returns n random bytes encoded as lowercase hex.
func RandomHex(n int) (string, error) {
	b, err := RandomBytes(n)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
