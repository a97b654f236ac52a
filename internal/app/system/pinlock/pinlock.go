// Package pinlock issues the short-lived tokens that keep a profile's
// PIN-gated section unlocked after a correct PIN.
package pinlock

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/gorilla/securecookie"
)

// TTL is how long an unlock token stays valid.
const TTL = 30 * time.Minute

// Header carries the token on follow-up requests.
const Header = "X-Unlock-Token"

const tokenName = "cardhub-unlock"

// ErrInvalid covers tampered, expired and mismatched tokens, and tokens
// issued under a PIN that has since been changed or removed.
var ErrInvalid = errors.New("invalid or expired unlock token")

type claims struct {
	ProfileID string `json:"pid"`
	PIN       string `json:"pin"`
	IssuedAt  int64  `json:"iat"`
}

// fingerprint ties a token to one stored PIN hash. bcrypt salts every
// hash, so setting the same PIN again still yields a new fingerprint.
func fingerprint(pinHash string) string {
	sum := sha256.Sum256([]byte(pinHash))
	return hex.EncodeToString(sum[:8])
}

// Signer mints and checks unlock tokens.
type Signer struct {
	sc  *securecookie.SecureCookie
	ttl time.Duration
	now func() time.Time
}

// New returns a Signer keyed by hashKey. A zero ttl uses TTL.
func New(hashKey []byte, ttl time.Duration) *Signer {
	if ttl <= 0 {
		ttl = TTL
	}
	sc := securecookie.New(hashKey, nil)
	sc.SetSerializer(securecookie.JSONEncoder{})
	sc.MaxAge(int(ttl / time.Second))
	return &Signer{sc: sc, ttl: ttl, now: time.Now}
}

// Issue returns a token unlocking profileID while its PIN hash is pinHash.
func (s *Signer) Issue(profileID, pinHash string) (token string, expiresAt time.Time, err error) {
	if pinHash == "" {
		return "", time.Time{}, ErrInvalid
	}
	now := s.now()
	token, err = s.sc.Encode(tokenName, claims{ProfileID: profileID, PIN: fingerprint(pinHash), IssuedAt: now.Unix()})
	if err != nil {
		return "", time.Time{}, err
	}
	return token, now.Add(s.ttl), nil
}

// Verify reports whether token unlocks profileID right now, given the
// profile's current PIN hash.
func (s *Signer) Verify(token, profileID, pinHash string) error {
	if token == "" || pinHash == "" {
		return ErrInvalid
	}
	var c claims
	if err := s.sc.Decode(tokenName, token, &c); err != nil {
		return ErrInvalid
	}
	if c.ProfileID != profileID || c.PIN != fingerprint(pinHash) {
		return ErrInvalid
	}
	if s.now().Sub(time.Unix(c.IssuedAt, 0)) > s.ttl {
		return ErrInvalid
	}
	return nil
}
