// Package token encodes and decodes the unsigned mock session tokens.
//
// Tokens have the JWT shape header.payload.signature, but the signature is
// the literal MOCK_SIGNATURE and is never verified.
package token

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Signature is the placeholder third segment of every issued token.
const Signature = "MOCK_SIGNATURE"

// TTL is the lifetime of an issued token.
const TTL = time.Hour

var (
	ErrMalformed = errors.New("malformed token")
	ErrExpired   = errors.New("token expired")
)

// Claims is the decoded payload of a token.
type Claims struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// UserID parses the subject as a numeric user id.
func (c *Claims) UserID() (int64, error) {
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: subject %q is not a user id", ErrMalformed, c.Subject)
	}
	return id, nil
}

// Expired reports whether the claims are expired at now. Claims without an
// expiry are treated as expired.
func (c *Claims) Expired(now time.Time) bool {
	if c.ExpiresAt == nil {
		return true
	}
	return !now.Before(c.ExpiresAt.Time)
}

// Encode issues a token for claims. Issued-at is set to now and the expiry
// to now plus TTL, overriding whatever the caller set.
func Encode(claims Claims, now time.Time) (string, error) {
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.ExpiresAt = jwt.NewNumericDate(now.Add(TTL))

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SigningString()
	if err != nil {
		return "", fmt.Errorf("encode token: %w", err)
	}
	return unsigned + "." + Signature, nil
}

// Decode parses the payload of token without checking its expiry.
func Decode(token string) (*Claims, error) {
	if strings.Count(token, ".") != 2 {
		return nil, fmt.Errorf("%w: want 3 segments", ErrMalformed)
	}

	var claims Claims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	if claims.ExpiresAt == nil {
		return nil, fmt.Errorf("%w: missing expiry", ErrMalformed)
	}
	return &claims, nil
}

// Check decodes token and verifies that its expiry is strictly after now.
func Check(token string, now time.Time) (*Claims, error) {
	claims, err := Decode(token)
	if err != nil {
		return nil, err
	}
	if claims.Expired(now) {
		return nil, ErrExpired
	}
	return claims, nil
}
