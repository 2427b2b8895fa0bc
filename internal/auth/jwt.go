package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const tokenExpiry = 30 * 24 * time.Hour

type claims struct {
	jwt.RegisteredClaims
}

// Authenticator verifies the bearer tokens the upstream identity provider
// issues. Tokens are HS256-signed with the owner uid as subject.
type Authenticator struct {
	jwtSecret string
}

func NewAuthenticator(jwtSecret string) *Authenticator {
	return &Authenticator{jwtSecret: jwtSecret}
}

// Verify checks the token signature and returns the owner uid.
func (a *Authenticator) Verify(tokenStr string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(a.jwtSecret), nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to parse token: %w", err)
	}

	parsed, ok := token.Claims.(*claims)
	if !ok || !token.Valid || parsed.Subject == "" {
		return "", errors.New("invalid token claims")
	}

	return parsed.Subject, nil
}

// Sign issues a token for uid. Production tokens come from the identity
// provider; this is for tooling and tests.
func (a *Authenticator) Sign(uid string) (string, error) {
	now := time.Now()
	c := &claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   uid,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenExpiry)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString([]byte(a.jwtSecret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}
