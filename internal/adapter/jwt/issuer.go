// Package jwt issues and verifies console session tokens.
package jwt

import (
	"context"
	"errors"
	"fmt"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/neomorfeo/talladmin/internal/domain"
)

var _ domain.SessionIssuer = (*Issuer)(nil)

// ErrInvalidSession is returned for tokens that are malformed, forged or expired.
var ErrInvalidSession = errors.New("invalid session token")

// Claims are the session token claims. The subject is the account email.
type Claims struct {
	gojwt.RegisteredClaims
}

// Issuer signs HS256 session tokens.
type Issuer struct {
	signingKey []byte
	issuer     string
	ttl        time.Duration
	now        func() time.Time
}

// NewIssuer creates an issuer. An empty signing key is rejected.
func NewIssuer(signingKey, issuer string, ttl time.Duration) (*Issuer, error) {
	if signingKey == "" {
		return nil, errors.New("session signing key is empty")
	}
	return &Issuer{
		signingKey: []byte(signingKey),
		issuer:     issuer,
		ttl:        ttl,
		now:        time.Now,
	}, nil
}

func (i *Issuer) CreateSession(_ context.Context, email string) (string, error) {
	now := i.now()
	token := gojwt.NewWithClaims(gojwt.SigningMethodHS256, Claims{
		RegisteredClaims: gojwt.RegisteredClaims{
			Subject:   email,
			Issuer:    i.issuer,
			IssuedAt:  gojwt.NewNumericDate(now),
			ExpiresAt: gojwt.NewNumericDate(now.Add(i.ttl)),
			ID:        uuid.NewString(),
		},
	})

	signed, err := token.SignedString(i.signingKey)
	if err != nil {
		return "", fmt.Errorf("signing session: %w", err)
	}
	return signed, nil
}

// Verify checks the token and returns the account email it was issued for.
func (i *Issuer) Verify(tokenString string) (string, error) {
	claims := new(Claims)
	token, err := gojwt.ParseWithClaims(tokenString, claims, func(t *gojwt.Token) (any, error) {
		return i.signingKey, nil
	},
		gojwt.WithValidMethods([]string{gojwt.SigningMethodHS256.Alg()}),
		gojwt.WithIssuer(i.issuer),
		gojwt.WithExpirationRequired(),
		gojwt.WithTimeFunc(i.now),
	)
	if err != nil || !token.Valid {
		return "", ErrInvalidSession
	}
	if claims.Subject == "" {
		return "", ErrInvalidSession
	}
	return claims.Subject, nil
}
