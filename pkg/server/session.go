package server

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// SessionCookieName is the admin session cookie.
const SessionCookieName = "auth"

// Sessions issues and verifies HMAC-signed admin session cookies. The
// cookie value is base64(username|expiry) + "." + base64(signature);
// no server-side session state is kept.
type Sessions struct {
	secret []byte
	ttl    time.Duration

	now func() time.Time
}

// NewSessions creates a session manager with the given signing secret
// and session lifetime. An empty secret is replaced with a random
// per-process key, so cookies cannot be forged against a known key;
// sessions then do not survive a restart.
func NewSessions(secret string, ttl time.Duration) *Sessions {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	key := []byte(secret)
	if len(key) == 0 {
		key = make([]byte, 32)
		rand.Read(key)
	}
	return &Sessions{
		secret: key,
		ttl:    ttl,
		now:    time.Now,
	}
}

// Issue creates a signed session value for username.
func (s *Sessions) Issue(username string) string {
	payload := fmt.Sprintf("%s|%d", username, s.now().Add(s.ttl).Unix())
	encoded := base64.RawURLEncoding.EncodeToString([]byte(payload))
	return encoded + "." + s.sign(encoded)
}

// Verify checks a session value's signature and expiry and returns the
// username it was issued to.
func (s *Sessions) Verify(value string) (string, bool) {
	encoded, sig, found := strings.Cut(value, ".")
	if !found {
		return "", false
	}
	if !hmac.Equal([]byte(s.sign(encoded)), []byte(sig)) {
		return "", false
	}

	payload, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return "", false
	}
	username, expiryStr, found := strings.Cut(string(payload), "|")
	if !found || username == "" {
		return "", false
	}
	expiry, err := strconv.ParseInt(expiryStr, 10, 64)
	if err != nil {
		return "", false
	}
	if s.now().Unix() >= expiry {
		return "", false
	}
	return username, true
}

func (s *Sessions) sign(encoded string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(encoded))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
