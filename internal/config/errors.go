package config

import (
	"errors"
	"fmt"
)

// UnknownKeyError reports a lookup of a key outside the closed registry.
// This is a programmer error for internally sourced keys; externally
// supplied keys are filtered before lookup.
type UnknownKeyError struct {
	Key string
}

func (e *UnknownKeyError) Error() string {
	return fmt.Sprintf("config: unknown key %q", e.Key)
}

// ValidationError reports a submitted raw value that fails the key's
// type, enum or URL rules. Always recoverable and surfaced per key.
type ValidationError struct {
	Key    Key
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config: invalid value for %s: %s", e.Key, e.Reason)
}

// DecryptionError reports stored secret ciphertext that cannot be
// decrypted: wrong or missing master key, tampering, or a malformed
// token. The resolver contains it as a per-key warning.
type DecryptionError struct {
	Reason string
}

func (e *DecryptionError) Error() string {
	return "config: decrypt secret: " + e.Reason
}

// ErrCipherNotConfigured is returned by Encrypt when no master
// encryption key was provided at startup.
var ErrCipherNotConfigured = errors.New("config: encryption key not configured")

// ErrStorageUnavailable is returned by write paths when the settings
// tables are missing or the database is unreachable.
var ErrStorageUnavailable = errors.New("config: settings storage unavailable")
