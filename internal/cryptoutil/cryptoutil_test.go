package cryptoutil

import (
	"encoding/hex"
	"testing"
)

func TestMD5Hex(t *testing.T) {
	if got := MD5Hex(""); got != "d41d8cd98f00b204e9800998ecf8427e" {
		t.Errorf("MD5Hex(\"\") = %s", got)
	}
	if got := MD5Hex("abc"); got != "900150983cd24fb0d6963f7d28e17f72" {
		t.Errorf("MD5Hex(abc) = %s", got)
	}
}

func TestSHA256Hex(t *testing.T) {
	want := "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"
	if got := SHA256Hex("abc"); got != want {
		t.Errorf("SHA256Hex(abc) = %s, want %s", got, want)
	}
}

func TestSHA1Concatenates(t *testing.T) {
	joined := SHA1([]byte("abc"))
	split := SHA1([]byte("a"), []byte("bc"))

	if hex.EncodeToString(joined) != "a9993e364706816aba3e25717850c26c9cd0d89d" {
		t.Errorf("SHA1(abc) = %x", joined)
	}
	if hex.EncodeToString(joined) != hex.EncodeToString(split) {
		t.Error("SHA1 should hash the concatenation of its parts")
	}
}

func TestHashHexAlgorithmSelection(t *testing.T) {
	tests := []struct {
		algorithm string
		want      string
	}{
		{"", MD5Hex("x")},
		{"MD5", MD5Hex("x")},
		{"MD5-sess", MD5Hex("x")},
		{"SHA-256", SHA256Hex("x")},
		{"sha-256-sess", SHA256Hex("x")},
		{"SHA-512-256", MD5Hex("x")},
	}

	for _, tt := range tests {
		if got := HashHex(tt.algorithm, "x"); got != tt.want {
			t.Errorf("HashHex(%q) = %s, want %s", tt.algorithm, got, tt.want)
		}
	}
}

func TestRandomHex(t *testing.T) {
	a, err := RandomHex(8)
	if err != nil {
		t.Fatalf("RandomHex() error = %v", err)
	}
	b, _ := RandomHex(8)

	if len(a) != 16 {
		t.Errorf("len(RandomHex(8)) = %d, want 16", len(a))
	}
	if a == b {
		t.Error("two RandomHex calls returned the same value")
	}
}
