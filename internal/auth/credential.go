// Package auth derives the session credential from a platform bearer
// token. The client never verifies the signature (the server does); it
// only needs the identity claims and the expiry.
package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrNoIdentity = errors.New("token carries no user identity")

// Credential identifies the local user for an authenticated session. A
// nil Credential means an anonymous session: connecting works, sending is
// disabled.
type Credential struct {
	Token     string
	UserID    int64
	Username  string
	ExpiresAt time.Time
}

type tokenClaims struct {
	jwt.RegisteredClaims
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
}

// ParseCredential extracts the identity claims from a bearer token.
func ParseCredential(token string) (*Credential, error) {
	var claims tokenClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return nil, fmt.Errorf("parse bearer token: %w", err)
	}

	userID := claims.UserID
	if userID == 0 && claims.Subject != "" {
		if id, err := strconv.ParseInt(claims.Subject, 10, 64); err == nil {
			userID = id
		}
	}
	if userID == 0 {
		return nil, ErrNoIdentity
	}

	cred := &Credential{
		Token:    token,
		UserID:   userID,
		Username: claims.Username,
	}
	if claims.ExpiresAt != nil {
		cred.ExpiresAt = claims.ExpiresAt.Time
	}
	return cred, nil
}

// Expired reports whether the token had an expiry that has passed.
func (c *Credential) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && c.ExpiresAt.Before(now)
}
