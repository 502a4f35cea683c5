package services

import (
	"errors"
	"testing"
	"time"

	"github.com/manimovassagh/planning-poker/internal/apperr"
	"github.com/manimovassagh/planning-poker/internal/models"
)

const testJWTSecret = "test-secret"

func TestRegisterAndLogin(t *testing.T) {
	db := setupTestDB(t)
	svc := NewAuthService(db, testJWTSecret)

	result, err := svc.Register("alice@example.com", "s3cret-pass", "alice")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if result.AccessToken == "" || result.RefreshToken == "" {
		t.Fatal("expected both tokens on registration")
	}
	if result.User.PasswordHash == "s3cret-pass" {
		t.Error("password stored in the clear")
	}

	userID, err := svc.ValidateToken(result.AccessToken)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if userID != result.User.ID {
		t.Errorf("token user = %d, want %d", userID, result.User.ID)
	}

	login, err := svc.Login("alice@example.com", "s3cret-pass")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if login.User.ID != result.User.ID {
		t.Errorf("login user = %d, want %d", login.User.ID, result.User.ID)
	}

	if _, err := svc.Login("alice@example.com", "wrong"); !errors.Is(err, apperr.ErrForbidden) {
		t.Errorf("bad password: err = %v, want ErrForbidden", err)
	}
	if _, err := svc.Login("nobody@example.com", "s3cret-pass"); !errors.Is(err, apperr.ErrForbidden) {
		t.Errorf("unknown email: err = %v, want ErrForbidden", err)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	db := setupTestDB(t)
	svc := NewAuthService(db, testJWTSecret)

	if _, err := svc.Register("alice@example.com", "s3cret-pass", "alice"); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, err := svc.Register("alice@example.com", "other-pass", "alice2"); !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("err = %v, want ErrConflict", err)
	}
}

func TestRefreshRotatesToken(t *testing.T) {
	db := setupTestDB(t)
	svc := NewAuthService(db, testJWTSecret)

	result, err := svc.Register("alice@example.com", "s3cret-pass", "alice")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	refreshed, err := svc.Refresh(result.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if refreshed.RefreshToken == result.RefreshToken {
		t.Error("refresh token was not rotated")
	}

	// The consumed token must be dead.
	if _, err := svc.Refresh(result.RefreshToken); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("reused token: err = %v, want ErrNotFound", err)
	}
}

func TestRefreshExpiredToken(t *testing.T) {
	db := setupTestDB(t)
	svc := NewAuthService(db, testJWTSecret)

	result, err := svc.Register("alice@example.com", "s3cret-pass", "alice")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	db.Model(&models.RefreshToken{}).
		Where("token = ?", result.RefreshToken).
		Update("expires_at", time.Now().Add(-time.Minute))

	if _, err := svc.Refresh(result.RefreshToken); !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("expired token: err = %v, want ErrForbidden", err)
	}

	// Expired tokens are purged on use.
	var count int64
	db.Model(&models.RefreshToken{}).Where("token = ?", result.RefreshToken).Count(&count)
	if count != 0 {
		t.Error("expired token left in store")
	}
}

func TestValidateTokenRejectsGarbage(t *testing.T) {
	db := setupTestDB(t)
	svc := NewAuthService(db, testJWTSecret)

	if _, err := svc.ValidateToken("not-a-jwt"); err == nil {
		t.Error("expected error for malformed token")
	}

	other := NewAuthService(db, "different-secret")
	result, err := svc.Register("alice@example.com", "s3cret-pass", "alice")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, err := other.ValidateToken(result.AccessToken); err == nil {
		t.Error("expected error for token signed with another secret")
	}
}
