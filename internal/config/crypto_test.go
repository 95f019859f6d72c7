package config

import (
	"errors"
	"strings"
	"testing"
)

func TestCipherRoundTrip(t *testing.T) {
	c := NewCipher("master-secret")

	token, err := c.Encrypt("gsk_live_abc123")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if parts := strings.Split(token, "."); len(parts) != 3 {
		t.Fatalf("token has %d segments, want 3: %q", len(strings.Split(token, ".")), token)
	}

	got, err := c.Decrypt(token)
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if got != "gsk_live_abc123" {
		t.Fatalf("Decrypt = %q, want original plaintext", got)
	}
}

func TestCipherNonceFreshness(t *testing.T) {
	c := NewCipher("master-secret")

	a, err := c.Encrypt("same plaintext")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	b, err := c.Encrypt("same plaintext")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if a == b {
		t.Fatal("two encryptions of the same plaintext produced identical tokens")
	}
}

func TestCipherTamperDetection(t *testing.T) {
	c := NewCipher("master-secret")

	token, err := c.Encrypt("payload")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}

	// Flip one character of the ciphertext segment.
	tampered := []byte(token)
	last := len(tampered) - 1
	if tampered[last] == 'A' {
		tampered[last] = 'B'
	} else {
		tampered[last] = 'A'
	}

	_, err = c.Decrypt(string(tampered))
	var derr *DecryptionError
	if !errors.As(err, &derr) {
		t.Fatalf("Decrypt(tampered) error = %v, want *DecryptionError", err)
	}
}

func TestCipherMalformedTokens(t *testing.T) {
	c := NewCipher("master-secret")

	for _, token := range []string{
		"",
		"onesegment",
		"two.segments",
		"a.b.c.d",
		"!!!.AAAA.AAAA",
	} {
		if _, err := c.Decrypt(token); err == nil {
			t.Errorf("Decrypt(%q) succeeded, want error", token)
		}
	}
}

func TestCipherWrongKeyFails(t *testing.T) {
	token, err := NewCipher("key-one").Encrypt("payload")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if _, err := NewCipher("key-two").Decrypt(token); err == nil {
		t.Fatal("Decrypt with a different key succeeded")
	}
}

func TestCipherUnconfigured(t *testing.T) {
	c := NewCipher("")
	if c.Configured() {
		t.Fatal("empty master secret reported as configured")
	}
	if _, err := c.Encrypt("x"); !errors.Is(err, ErrCipherNotConfigured) {
		t.Fatalf("Encrypt error = %v, want ErrCipherNotConfigured", err)
	}
	if _, err := c.Decrypt("a.b.c"); err == nil {
		t.Fatal("Decrypt on unconfigured cipher succeeded")
	}
}
