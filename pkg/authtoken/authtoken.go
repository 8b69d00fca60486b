// Package authtoken issues and validates bearer tokens for the operator
// HTTP surface (cmd/server) — not the consumer-facing ranked feed, which
// remains an external collaborator. The jwt.MapClaims shape and HS256
// signing mirror a typical gorm+jwt auth usecase.
package authtoken

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("authtoken: invalid or expired token")

// Issuer signs and validates operator tokens with a single HMAC secret.
type Issuer struct {
	secret []byte
	expiry time.Duration
}

func NewIssuer(secret string, expiry time.Duration) *Issuer {
	if expiry <= 0 {
		expiry = 12 * time.Hour
	}
	return &Issuer{secret: []byte(secret), expiry: expiry}
}

// Issue mints a bearer token for the given operator subject.
func (i *Issuer) Issue(subject string) (string, error) {
	claims := jwt.MapClaims{
		"sub": subject,
		"exp": time.Now().Add(i.expiry).Unix(),
		"iat": time.Now().Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(i.secret)
}

// Validate parses tokenString and returns its subject claim.
func (i *Issuer) Validate(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		return i.secret, nil
	})
	if err != nil || !token.Valid {
		return "", ErrInvalidToken
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", ErrInvalidToken
	}
	sub, ok := claims["sub"].(string)
	if !ok {
		return "", ErrInvalidToken
	}
	return sub, nil
}
