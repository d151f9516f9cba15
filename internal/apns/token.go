package apns

import (
	"crypto/ecdsa"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/cesargomez89/xcc-relay/internal/constants"
)

// TokenSource caches a signed provider JWT and re-signs it once it ages past
// the reuse window. Safe for concurrent use across request handlers.
type TokenSource struct {
	teamID string
	keyID  string
	key    *ecdsa.PrivateKey
	now    func() time.Time

	mu       sync.Mutex
	token    string
	issuedAt time.Time
}

// NewTokenSource parses the signing key up front so a bad key surfaces at
// startup instead of on the first push.
func NewTokenSource(creds *Credentials) (*TokenSource, error) {
	key, err := creds.privateKey()
	if err != nil {
		return nil, err
	}
	return &TokenSource{
		teamID: creds.TeamID,
		keyID:  creds.KeyID,
		key:    key,
		now:    time.Now,
	}, nil
}

// Bearer returns the cached provider token, re-signing when it is older
// than the reuse window.
func (ts *TokenSource) Bearer() (string, error) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	now := ts.now()
	if ts.token != "" && now.Sub(ts.issuedAt) < constants.ProviderTokenLifetime {
		return ts.token, nil
	}

	token := jwt.NewWithClaims(jwt.SigningMethodES256, jwt.MapClaims{
		"iss": ts.teamID,
		"iat": now.Unix(),
	})
	token.Header["kid"] = ts.keyID

	signed, err := token.SignedString(ts.key)
	if err != nil {
		return "", fmt.Errorf("failed to sign provider token: %w", err)
	}

	ts.token = signed
	ts.issuedAt = now
	return signed, nil
}
