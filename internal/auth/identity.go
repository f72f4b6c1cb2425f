// Package auth resolves the identity the daemon acts as.
package auth

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/matheus3301/resort/internal/chat"
)

// ErrNoIdentity is returned when neither a user id nor a usable token is configured.
var ErrNoIdentity = errors.New("no user identity configured")

// Identity is the authenticated user a session is scoped to.
type Identity struct {
	UserID string
	Role   chat.Role
}

// userIDClaims lists the claim names the backend has used for the user id, in priority order.
var userIDClaims = []string{"id", "_id", "userId", "user_id", "sub"}

// FromToken extracts the identity from a bearer token's claims. The
// signature is not verified; the backend does that on every request.
func FromToken(token string) (Identity, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return Identity{}, fmt.Errorf("parse token: %w", err)
	}

	var id Identity
	for _, name := range userIDClaims {
		if v, ok := claims[name].(string); ok && v != "" {
			id.UserID = v
			break
		}
	}
	if id.UserID == "" {
		return Identity{}, fmt.Errorf("token carries no user id claim")
	}
	if role, ok := claims["role"].(string); ok && chat.Role(role).Valid() {
		id.Role = chat.Role(role)
	} else {
		id.Role = chat.RoleCustomer
	}
	return id, nil
}

// Resolve picks the identity from explicit settings, falling back to the token.
// An explicit role always wins over the token's.
func Resolve(userID, role, token string) (Identity, error) {
	r := chat.Role(role)
	if role != "" && !r.Valid() {
		return Identity{}, fmt.Errorf("invalid role %q", role)
	}
	if userID != "" {
		if r == "" {
			r = chat.RoleCustomer
		}
		return Identity{UserID: userID, Role: r}, nil
	}
	if token == "" {
		return Identity{}, ErrNoIdentity
	}
	id, err := FromToken(token)
	if err != nil {
		return Identity{}, err
	}
	if r != "" {
		id.Role = r
	}
	return id, nil
}
