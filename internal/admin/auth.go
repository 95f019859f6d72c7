// Package admin implements the admin console boundary: an HMAC-signed
// session cookie token, password verification, and the readiness gate
// over the required process secrets.
package admin

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"time"
)

// SessionCookie is the cookie name carrying the admin session token.
const SessionCookie = "occ_admin_session"

// SessionDuration is how long an admin session stays valid.
const SessionDuration = 12 * time.Hour

// Auth verifies admin passwords and issues session tokens. All secrets
// are injected at construction; a missing secret leaves the admin
// surface unavailable without affecting the read-only config path.
type Auth struct {
	password      string
	sessionSecret string
	encryptionKey string
	now           func() time.Time
}

// Option customizes an Auth.
type Option func(*Auth)

// WithClock injects a clock for expiry tests.
func WithClock(now func() time.Time) Option {
	return func(a *Auth) { a.now = now }
}

// New builds the admin boundary from the three required process
// secrets. Any of them may be empty; Readiness reports which.
func New(password, sessionSecret, encryptionKey string, opts ...Option) *Auth {
	a := &Auth{
		password:      password,
		sessionSecret: sessionSecret,
		encryptionKey: encryptionKey,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Readiness reports whether all required admin secrets are present and
// names the missing ones for the operator.
func (a *Auth) Readiness() (ready bool, missing []string) {
	if a.password == "" {
		missing = append(missing, "ADMIN_PANEL_PASSWORD")
	}
	if a.sessionSecret == "" {
		missing = append(missing, "ADMIN_SESSION_SECRET")
	}
	if a.encryptionKey == "" {
		missing = append(missing, "ADMIN_ENCRYPTION_KEY")
	}
	return len(missing) == 0, missing
}

// CheckPassword verifies the submitted admin password in constant time.
func (a *Auth) CheckPassword(input string) bool {
	if a.password == "" || input == "" {
		return false
	}
	return timingSafeEquals(a.password, input)
}

type sessionPayload struct {
	Exp int64 `json:"exp"`
}

// NewSessionToken issues a signed token: base64url(payload).signature.
func (a *Auth) NewSessionToken() (string, error) {
	payload, err := json.Marshal(sessionPayload{
		Exp: a.now().Add(SessionDuration).Unix(),
	})
	if err != nil {
		return "", err
	}
	part := base64.RawURLEncoding.EncodeToString(payload)
	return part + "." + a.sign(part), nil
}

// VerifySessionToken checks signature and expiry. Malformed tokens are
// simply invalid, never an error.
func (a *Auth) VerifySessionToken(token string) bool {
	if a.sessionSecret == "" {
		return false
	}

	var payloadPart, signaturePart string
	for i := 0; i < len(token); i++ {
		if token[i] == '.' {
			payloadPart = token[:i]
			signaturePart = token[i+1:]
			break
		}
	}
	if payloadPart == "" || signaturePart == "" {
		return false
	}

	if !timingSafeEquals(a.sign(payloadPart), signaturePart) {
		return false
	}

	raw, err := base64.RawURLEncoding.DecodeString(payloadPart)
	if err != nil {
		return false
	}
	var payload sessionPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return false
	}
	return payload.Exp > a.now().Unix()
}

func (a *Auth) sign(payloadPart string) string {
	mac := hmac.New(sha256.New, []byte(a.sessionSecret))
	mac.Write([]byte(payloadPart))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

// timingSafeEquals compares strings of possibly different lengths in
// constant time by comparing their digests.
func timingSafeEquals(a, b string) bool {
	ha := sha256.Sum256([]byte(a))
	hb := sha256.Sum256([]byte(b))
	return hmac.Equal(ha[:], hb[:])
}
