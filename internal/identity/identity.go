// Package identity resolves the current user from the stored access token.
//
// The chat core treats authentication as an external collaborator: a token is
// minted elsewhere and dropped into the access key file. This package only
// reads the token and extracts the identity claims the core needs.
package identity

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// User identifies the locally authenticated user.
type User struct {
	// ID is the server-side user id.
	ID string
	// DisplayName is the user's display name when the token carries one.
	DisplayName string
	// AvatarRef is an opaque avatar reference when the token carries one.
	AvatarRef string
}

// tokenClaims is the JWT payload shape minted by the server.
type tokenClaims struct {
	UserID      string `json:"user"`
	DisplayName string `json:"name,omitempty"`
	AvatarRef   string `json:"avatar,omitempty"`
	jwt.RegisteredClaims
}

// LoadAccessToken reads the access token from disk.
func LoadAccessToken(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read access token: %w", err)
	}
	token := strings.TrimSpace(string(data))
	if token == "" {
		return "", fmt.Errorf("access token file %s is empty", path)
	}
	return token, nil
}

// CurrentUser extracts the user identity from an access token.
//
// The token signature is NOT verified here. The server remains authoritative
// and will reject a forged token on every request; the client only needs the
// claims for routing (own topic names) and display.
func CurrentUser(token string) (User, error) {
	claims := &tokenClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return User{}, fmt.Errorf("failed to parse access token: %w", err)
	}
	if claims.UserID == "" {
		return User{}, fmt.Errorf("access token has no user claim")
	}
	return User{
		ID:          claims.UserID,
		DisplayName: claims.DisplayName,
		AvatarRef:   claims.AvatarRef,
	}, nil
}

// ExpiresAt returns the expiry timestamp encoded in the token (if present).
func ExpiresAt(token string) (time.Time, bool) {
	claims := &tokenClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

// IsExpiringSoon reports whether a token is already expired or will expire
// within the given window.
//
// If the token carries no exp claim we don't attempt proactive refresh; the
// server will 401 if needed.
func IsExpiringSoon(token string, window time.Duration) bool {
	exp, ok := ExpiresAt(token)
	if !ok {
		return false
	}
	return time.Until(exp) <= window
}
