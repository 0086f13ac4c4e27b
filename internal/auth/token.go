// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/olegiv/vcms-go/internal/model"
)

// Issuer is the "iss" claim on every session token.
const Issuer = "vcms"

// ErrInvalidToken is returned for any token that fails decoding or validation.
var ErrInvalidToken = errors.New("invalid token")

// Session is the decoded content of a session token.
type Session struct {
	Subject string // user ID as a decimal string
	Role    model.Role
	Name    string
	Expires time.Time
}

// UserID returns the numeric user ID carried in Subject, or 0.
func (s *Session) UserID() int64 {
	if s == nil {
		return 0
	}
	id, err := strconv.ParseInt(s.Subject, 10, 64)
	if err != nil {
		return 0
	}
	return id
}

// TokenDecoder turns a raw token string into a Session.
type TokenDecoder interface {
	Decode(token string) (*Session, error)
}

// sessionClaims is the JWT payload of a session token.
type sessionClaims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
	Name string `json:"name,omitempty"`
}

// TokenIssuer signs and verifies HS256 session tokens.
type TokenIssuer struct {
	key []byte
	ttl time.Duration
	now func() time.Time
}

// NewTokenIssuer returns an issuer that signs with key and issues tokens valid for ttl.
func NewTokenIssuer(key []byte, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{key: key, ttl: ttl, now: time.Now}
}

// TTL returns the lifetime of issued tokens.
func (t *TokenIssuer) TTL() time.Duration {
	return t.ttl
}

// Issue signs a session token for the given user.
func (t *TokenIssuer) Issue(userID int64, role model.Role, name string) (string, time.Time, error) {
	now := t.now().UTC()
	expires := now.Add(t.ttl)

	claims := sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			Issuer:    Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
		Role: role.String(),
		Name: name,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.key)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("signing token: %w", err)
	}
	return signed, expires, nil
}

// Decode verifies signature, issuer and expiry. Any failure yields ErrInvalidToken.
// A valid token with an unrecognised role decodes to RoleNone.
func (t *TokenIssuer) Decode(token string) (*Session, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}

	parsed, err := jwt.ParseWithClaims(token, &sessionClaims{},
		func(*jwt.Token) (any, error) { return t.key, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := parsed.Claims.(*sessionClaims)
	if !ok || claims.Subject == "" {
		return nil, ErrInvalidToken
	}

	sess := &Session{
		Subject: claims.Subject,
		Role:    model.ParseRole(claims.Role),
		Name:    claims.Name,
	}
	if claims.ExpiresAt != nil {
		sess.Expires = claims.ExpiresAt.Time
	}
	return sess, nil
}
