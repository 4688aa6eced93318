// Package auth is the thin boundary to the platform's auth service: this
// service never issues credentials, it only verifies the bearer tokens that
// service signs and extracts the subject used as the delivery routing key.
package auth

import (
	"errors"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("auth: invalid token")

// Verifier validates a raw credential and returns the user id it asserts.
type Verifier interface {
	Verify(rawToken string) (userID string, err error)
}

// Interface guard
var _ Verifier = (*JWTVerifier)(nil)

// JWTVerifier checks HS256 tokens against the shared auth secret.
type JWTVerifier struct {
	secret []byte
	parser *jwt.Parser
}

func NewJWTVerifier(secret string) *JWTVerifier {
	return &JWTVerifier{
		secret: []byte(secret),
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{"HS256"}),
			jwt.WithExpirationRequired(),
		),
	}
}

func (v *JWTVerifier) Verify(rawToken string) (string, error) {
	rawToken = strings.TrimSpace(rawToken)
	if rawToken == "" {
		return "", ErrInvalidToken
	}

	claims := jwt.MapClaims{}
	_, err := v.parser.ParseWithClaims(rawToken, claims, func(token *jwt.Token) (any, error) {
		return v.secret, nil
	})
	if err != nil {
		return "", ErrInvalidToken
	}

	subject, _ := claims["sub"].(string)
	if strings.TrimSpace(subject) == "" {
		return "", ErrInvalidToken
	}
	return subject, nil
}
