package auth

import (
	"errors"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/matheus3301/resort/internal/chat"
)

func signed(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatal(err)
	}
	return tok
}

func TestFromToken(t *testing.T) {
	tests := []struct {
		name     string
		claims   jwt.MapClaims
		wantUser string
		wantRole chat.Role
	}{
		{"id claim", jwt.MapClaims{"id": "u1"}, "u1", chat.RoleCustomer},
		{"mongo id", jwt.MapClaims{"_id": "u2", "role": "owner"}, "u2", chat.RoleOwner},
		{"sub fallback", jwt.MapClaims{"sub": "u3"}, "u3", chat.RoleCustomer},
		{"id wins over sub", jwt.MapClaims{"id": "u4", "sub": "other"}, "u4", chat.RoleCustomer},
		{"unknown role", jwt.MapClaims{"id": "u5", "role": "admin"}, "u5", chat.RoleCustomer},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := FromToken(signed(t, tt.claims))
			if err != nil {
				t.Fatalf("FromToken() error = %v", err)
			}
			if id.UserID != tt.wantUser || id.Role != tt.wantRole {
				t.Errorf("identity = %+v, want %s/%s", id, tt.wantUser, tt.wantRole)
			}
		})
	}
}

func TestFromTokenErrors(t *testing.T) {
	if _, err := FromToken("not-a-jwt"); err == nil {
		t.Error("expected error for malformed token")
	}
	if _, err := FromToken(signed(t, jwt.MapClaims{"role": "customer"})); err == nil {
		t.Error("expected error for token without user id")
	}
}

func TestResolve(t *testing.T) {
	tok := signed(t, jwt.MapClaims{"id": "from-token", "role": "owner"})

	id, err := Resolve("explicit", "", tok)
	if err != nil || id.UserID != "explicit" || id.Role != chat.RoleCustomer {
		t.Errorf("Resolve(explicit) = %+v, %v", id, err)
	}

	id, err = Resolve("", "", tok)
	if err != nil || id.UserID != "from-token" || id.Role != chat.RoleOwner {
		t.Errorf("Resolve(token) = %+v, %v", id, err)
	}

	id, err = Resolve("", "customer", tok)
	if err != nil || id.Role != chat.RoleCustomer {
		t.Errorf("Resolve(token, role override) = %+v, %v", id, err)
	}

	if _, err := Resolve("", "", ""); !errors.Is(err, ErrNoIdentity) {
		t.Errorf("Resolve(empty) error = %v, want ErrNoIdentity", err)
	}
	if _, err := Resolve("u", "admin", ""); err == nil {
		t.Error("Resolve with invalid role should fail")
	}
}
