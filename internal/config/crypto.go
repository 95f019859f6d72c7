package config

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strings"
)

// gcmNonceLen and gcmTagLen match the AES-GCM defaults; tokens embed
// both so the format is self-describing across key rotations.
const (
	gcmNonceLen = 12
	gcmTagLen   = 16
)

// Cipher encrypts individual secret values with AES-256-GCM. The key is
// derived once from the process-wide master secret via SHA-256. A nil
// key means secret operations are unavailable.
type Cipher struct {
	key []byte
}

// NewCipher derives a cipher from the master secret. An empty secret
// yields an unconfigured cipher: Encrypt and Decrypt fail explicitly,
// non-secret configuration keeps working.
func NewCipher(masterSecret string) *Cipher {
	if masterSecret == "" {
		return &Cipher{}
	}
	sum := sha256.Sum256([]byte(masterSecret))
	return &Cipher{key: sum[:]}
}

// Configured reports whether a master encryption key is present.
func (c *Cipher) Configured() bool {
	return c != nil && len(c.key) > 0
}

// Encrypt seals plaintext and returns a token of three unpadded
// base64url segments: nonce.tag.ciphertext. A fresh random nonce per
// call guarantees two encryptions of the same plaintext never match.
func (c *Cipher) Encrypt(plaintext string) (string, error) {
	if !c.Configured() {
		return "", ErrCipherNotConfigured
	}

	block, err := aes.NewCipher(c.key)
	if err != nil {
		return "", fmt.Errorf("config: init cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("config: init gcm: %w", err)
	}

	nonce := make([]byte, gcmNonceLen)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("config: generate nonce: %w", err)
	}

	sealed := gcm.Seal(nil, nonce, []byte(plaintext), nil)
	body := sealed[:len(sealed)-gcmTagLen]
	tag := sealed[len(sealed)-gcmTagLen:]

	enc := base64.RawURLEncoding
	return enc.EncodeToString(nonce) + "." + enc.EncodeToString(tag) + "." + enc.EncodeToString(body), nil
}

// Decrypt opens a token produced by Encrypt. Failures come back as a
// *DecryptionError so the resolver can treat them as per-key warnings
// instead of aborting a whole resolution.
func (c *Cipher) Decrypt(token string) (string, error) {
	if !c.Configured() {
		return "", &DecryptionError{Reason: "encryption key not configured"}
	}

	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return "", &DecryptionError{Reason: "malformed token: expected 3 segments"}
	}

	enc := base64.RawURLEncoding
	nonce, err := enc.DecodeString(parts[0])
	if err != nil || len(nonce) != gcmNonceLen {
		return "", &DecryptionError{Reason: "malformed nonce segment"}
	}
	tag, err := enc.DecodeString(parts[1])
	if err != nil || len(tag) != gcmTagLen {
		return "", &DecryptionError{Reason: "malformed tag segment"}
	}
	body, err := enc.DecodeString(parts[2])
	if err != nil {
		return "", &DecryptionError{Reason: "malformed ciphertext segment"}
	}

	block, err := aes.NewCipher(c.key)
	if err != nil {
		return "", &DecryptionError{Reason: err.Error()}
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", &DecryptionError{Reason: err.Error()}
	}

	plaintext, err := gcm.Open(nil, nonce, append(body, tag...), nil)
	if err != nil {
		return "", &DecryptionError{Reason: "authentication failed"}
	}
	return string(plaintext), nil
}
