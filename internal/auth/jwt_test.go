package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestGenerateAndVerify(t *testing.T) {
	if err := InitJWT("test-secret", time.Hour); err != nil {
		t.Fatalf("init: %v", err)
	}

	tokenString, err := GenerateJWT(42, "ada@example.com")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	token, err := VerifyJWT(tokenString)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}

	userID, err := UserIDFromToken(token)
	if err != nil {
		t.Fatalf("user id: %v", err)
	}
	if userID != 42 {
		t.Fatalf("want user 42, got %d", userID)
	}
}

func TestVerifyRejectsForeignSignature(t *testing.T) {
	if err := InitJWT("test-secret", time.Hour); err != nil {
		t.Fatalf("init: %v", err)
	}

	forged := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": 1,
		"exp":     time.Now().Add(time.Hour).Unix(),
	})
	tokenString, err := forged.SignedString([]byte("another-secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	if _, err := VerifyJWT(tokenString); err == nil {
		t.Fatalf("expected token signed with another secret to be rejected")
	}
}

func TestVerifyRejectsExpired(t *testing.T) {
	if err := InitJWT("test-secret", time.Hour); err != nil {
		t.Fatalf("init: %v", err)
	}

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": 1,
		"exp":     time.Now().Add(-time.Minute).Unix(),
	})
	tokenString, err := expired.SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	if _, err := VerifyJWT(tokenString); err == nil {
		t.Fatalf("expected expired token to be rejected")
	}
}

func TestInitRequiresSecret(t *testing.T) {
	if err := InitJWT("", time.Hour); err == nil {
		t.Fatalf("expected empty secret to fail")
	}
}
