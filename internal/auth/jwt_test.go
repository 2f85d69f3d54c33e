package auth

import (
	"testing"

	"github.com/campus-lms/backend/internal/models"
)

func TestTokenRoundTrip(t *testing.T) {
	svc := NewJWTService("test-secret", 1)
	token, err := svc.Generate("S001", models.RoleStudent)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	claims, err := svc.Validate(token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if claims.UserID != "S001" || claims.Role != "student" {
		t.Fatalf("claims = %q/%q, want S001/student", claims.UserID, claims.Role)
	}
}

func TestValidateRejectsWrongSecret(t *testing.T) {
	token, err := NewJWTService("secret-a", 1).Generate("T001", models.RoleTeacher)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := NewJWTService("secret-b", 1).Validate(token); err == nil {
		t.Fatal("expected validation to fail with the wrong secret")
	}
}

func TestValidateRejectsGarbage(t *testing.T) {
	if _, err := NewJWTService("s", 1).Validate("not.a.token"); err == nil {
		t.Fatal("expected validation to fail")
	}
}

func TestPrincipal(t *testing.T) {
	svc := NewJWTService("test-secret", 1)
	token, err := svc.Generate("A001", models.RoleAdmin)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	userID, role, err := svc.Principal(token)
	if err != nil {
		t.Fatalf("principal: %v", err)
	}
	if userID != "A001" || role != "admin" {
		t.Fatalf("principal = %q/%q, want A001/admin", userID, role)
	}
}
