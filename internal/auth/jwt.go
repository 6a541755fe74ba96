// Package auth issues and checks the session tokens used by minispace.
//
// SESSION FLOW:
//  1. A user registers, logs in with email + password, or completes the
//     GitHub OAuth flow at /auth/github/callback.
//  2. The server signs a JWT whose "sub" claim is the user's internal ID and
//     stores it in the HttpOnly session cookie.
//  3. On later requests the middleware validates the cookie (or a Bearer
//     header from API clients) and puts the user ID in the request context.
//
// Tokens are HS256-signed. Nothing is stored server-side, so logging out only
// removes the cookie; the token itself stays valid until it expires.
//
// WHAT IS IN A TOKEN?
// A JWT is three base64url parts joined by dots:
//
//	header.payload.signature
//	{"alg":"HS256","typ":"JWT"} . {"sub":"<user id>","iss":"minispace","iat":...,"exp":...} . HMAC
//
// The payload is readable by anyone holding the token, so it carries only
// the user ID. The signature proves the server issued it; changing one
// byte of the payload makes Validate fail.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	issuer = "minispace"

	// DefaultTokenTTL is used when NewTokenService is given a zero TTL.
	DefaultTokenTTL = 24 * time.Hour

	minSecretLength = 16
)

// TokenService signs and verifies session tokens with one HMAC secret.
type TokenService struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenService returns a TokenService. ttl <= 0 selects DefaultTokenTTL.
// Generate a secret with: openssl rand -hex 32
func NewTokenService(secret string, ttl time.Duration) (*TokenService, error) {
	if len(secret) < minSecretLength {
		return nil, fmt.Errorf("auth: JWT secret must be at least %d characters", minSecretLength)
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenService{secret: []byte(secret), ttl: ttl}, nil
}

// TTL is how long tokens from Generate stay valid. The session cookie uses
// the same lifetime.
func (s *TokenService) TTL() time.Duration {
	return s.ttl
}

// Generate signs a token for userID that expires after TTL.
func (s *TokenService) Generate(userID string) (string, error) {
	return s.GenerateWithDuration(userID, s.ttl)
}

// GenerateWithDuration signs a token with an explicit lifetime. A negative
// duration yields an already-expired token, which the tests rely on.
func (s *TokenService) GenerateWithDuration(userID string, d time.Duration) (string, error) {
	if userID == "" {
		return "", errors.New("auth: cannot issue a token without a user ID")
	}

	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		Issuer:    issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(d)),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}
	return signed, nil
}

// Validate verifies the signature, issuer and expiry of tokenStr and returns
// the user ID from its subject.
//
// jwt.WithValidMethods pins the algorithm to HS256, so a token claiming
// "alg":"none" or an RSA algorithm is rejected before the key is used.
func (s *TokenService) Validate(tokenStr string) (string, error) {
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(tokenStr, &claims,
		func(*jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", errors.New("auth: token expired")
		}
		return "", fmt.Errorf("auth: invalid token: %w", err)
	}

	if claims.Subject == "" {
		return "", errors.New("auth: token has no subject")
	}
	return claims.Subject, nil
}
