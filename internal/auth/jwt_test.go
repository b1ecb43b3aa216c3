package auth

import (
	"testing"
	"time"
)

func TestJWTManager_GenerateAndParse(t *testing.T) {
	manager := NewJWTManager("secret", time.Hour)
	token, err := manager.GenerateToken("operator", RoleOperator)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	claims, err := manager.ParseToken(token)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if claims.Subject != "operator" || claims.Username != "operator" || claims.Role != RoleOperator {
		t.Fatalf("unexpected claims: %+v", claims)
	}

	if _, err := manager.ParseToken(token + "tampered"); err == nil {
		t.Fatalf("expected parse error for tampered token")
	}
}

func TestJWTManager_WrongSecret(t *testing.T) {
	token, err := NewJWTManager("one", time.Hour).GenerateToken("operator", RoleOperator)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := NewJWTManager("two", time.Hour).ParseToken(token); err == nil {
		t.Fatalf("expected error for token signed with another secret")
	}
}

func TestJWTManager_EmptySecret(t *testing.T) {
	manager := NewJWTManager("", time.Hour)
	if _, err := manager.GenerateToken("operator", RoleOperator); err == nil {
		t.Fatalf("expected error when secret is empty")
	}
}

func TestJWTManager_DefaultTTL(t *testing.T) {
	if ttl := NewJWTManager("s", 0).TTL(); ttl != 12*time.Hour {
		t.Fatalf("expected default ttl, got %s", ttl)
	}
}
