// Package auth issues and verifies HS256 bearer tokens carrying only
// {sub, exp}.
package auth

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dmitrijs2005/valutx/internal/common"
)

// DefaultTTL applies when Issue is called with a non-positive ttl and the
// issuer was built without one.
const DefaultTTL = 8 * 24 * time.Hour

// Issuer signs and verifies access tokens. The signing key can be swapped
// atomically with SetKey; concurrent Issue/Verify calls see either the old
// or the new key.
type Issuer struct {
	key atomic.Value // []byte
	ttl time.Duration
	now func() time.Time
}

func NewIssuer(secretKey []byte, ttl time.Duration) *Issuer {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	i := &Issuer{ttl: ttl, now: time.Now}
	i.SetKey(secretKey)
	return i
}

// SetKey replaces the signing key.
func (i *Issuer) SetKey(secretKey []byte) {
	k := make([]byte, len(secretKey))
	copy(k, secretKey)
	i.key.Store(k)
}

func (i *Issuer) signingKey() []byte {
	return i.key.Load().([]byte)
}

// TTL is the validity applied by Issue when none is given.
func (i *Issuer) TTL() time.Duration {
	return i.ttl
}

// Issue returns a token for subjectID and its expiry instant. A
// non-positive ttl means the issuer default.
func (i *Issuer) Issue(subjectID string, ttl time.Duration) (string, time.Time, error) {
	if ttl <= 0 {
		ttl = i.ttl
	}
	expiresAt := i.now().Add(ttl)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subjectID,
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	})

	s, err := token.SignedString(i.signingKey())
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return s, expiresAt, nil
}

// Verify returns the subject of a valid token. Every failure wraps
// common.ErrInvalidToken.
func (i *Issuer) Verify(tokenString string) (string, error) {
	claims := &jwt.RegisteredClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (any, error) {
			return i.signingKey(), nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", fmt.Errorf("%w: expired", common.ErrInvalidToken)
		}
		return "", fmt.Errorf("%w: %v", common.ErrInvalidToken, err)
	}

	if !token.Valid || claims.Subject == "" {
		return "", fmt.Errorf("%w: missing subject", common.ErrInvalidToken)
	}

	return claims.Subject, nil
}
