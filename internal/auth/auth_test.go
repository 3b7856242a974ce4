// Marquee - Movie Catalog and Release Notification Backend
// Copyright 2026 Marquee Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/marqueehq/marquee

package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/marqueehq/marquee/internal/models"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func testUser() *models.User {
	return &models.User{
		ID:    "7f9c35f1-8c35-4b74-9d2e-1f6a2e60d001",
		Name:  "Ana",
		Email: "ana@example.com",
		Role:  models.RoleAdmin,
	}
}

func TestNewTokenManagerValidation(t *testing.T) {
	if _, err := NewTokenManager("short", time.Hour); err == nil {
		t.Error("expected error for short secret")
	}
	if _, err := NewTokenManager(testSecret, 0); err == nil {
		t.Error("expected error for zero duration")
	}
	if _, err := NewTokenManager(testSecret, time.Hour); err != nil {
		t.Errorf("valid settings rejected: %v", err)
	}
}

func TestGenerateAndValidate(t *testing.T) {
	m, err := NewTokenManager(testSecret, time.Hour)
	if err != nil {
		t.Fatalf("NewTokenManager failed: %v", err)
	}

	user := testUser()
	token, err := m.Generate(user)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	claims, err := m.Validate(token)
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if claims.UserID != user.ID {
		t.Errorf("user id = %q, want %q", claims.UserID, user.ID)
	}
	if claims.Email != user.Email {
		t.Errorf("email = %q, want %q", claims.Email, user.Email)
	}
	if claims.Role != models.RoleAdmin {
		t.Errorf("role = %q, want admin", claims.Role)
	}
	if claims.Issuer != "marquee" {
		t.Errorf("issuer = %q, want marquee", claims.Issuer)
	}
}

func TestValidateRejectsBadTokens(t *testing.T) {
	m, err := NewTokenManager(testSecret, time.Hour)
	if err != nil {
		t.Fatalf("NewTokenManager failed: %v", err)
	}
	token, err := m.Generate(testUser())
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	t.Run("garbage", func(t *testing.T) {
		if _, err := m.Validate("not.a.token"); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("error = %v, want ErrInvalidToken", err)
		}
	})

	t.Run("wrong secret", func(t *testing.T) {
		other, err := NewTokenManager(strings.Repeat("x", 32), time.Hour)
		if err != nil {
			t.Fatalf("NewTokenManager failed: %v", err)
		}
		if _, err := other.Validate(token); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("error = %v, want ErrInvalidToken", err)
		}
	})

	t.Run("expired", func(t *testing.T) {
		short, err := NewTokenManager(testSecret, time.Millisecond)
		if err != nil {
			t.Fatalf("NewTokenManager failed: %v", err)
		}
		expired, err := short.Generate(testUser())
		if err != nil {
			t.Fatalf("Generate failed: %v", err)
		}
		time.Sleep(5 * time.Millisecond)
		if _, err := short.Validate(expired); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("error = %v, want ErrInvalidToken", err)
		}
	})

	t.Run("tampered", func(t *testing.T) {
		parts := strings.Split(token, ".")
		parts[1] = parts[1][:len(parts[1])-2] + "xx"
		if _, err := m.Validate(strings.Join(parts, ".")); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("error = %v, want ErrInvalidToken", err)
		}
	})
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}
	if hash == "correct horse battery staple" {
		t.Fatal("hash equals plaintext")
	}
	if !CheckPasswordHash("correct horse battery staple", hash) {
		t.Error("correct password rejected")
	}
	if CheckPasswordHash("wrong password", hash) {
		t.Error("wrong password accepted")
	}
	if CheckPasswordHash("correct horse battery staple", "not-a-hash") {
		t.Error("malformed hash accepted")
	}
}
