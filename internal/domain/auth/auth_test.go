package auth

import (
	"context"
	"testing"
	"time"
)

func TestGenerateAndParseToken(t *testing.T) {
	secret := "test-secret"
	claims := Claims{UserID: "u1", EmployeeID: "e1", Name: "Eden", RoleName: RoleHR}

	token, err := GenerateToken(secret, claims, time.Hour)
	if err != nil {
		t.Fatalf("token error: %v", err)
	}

	parsed, err := ParseToken(secret, token)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if parsed.UserID != claims.UserID || parsed.EmployeeID != claims.EmployeeID || parsed.RoleName != claims.RoleName || parsed.Name != claims.Name {
		t.Fatalf("claims mismatch: %+v", parsed)
	}
}

func TestParseTokenRejectsWrongSecretAndExpiry(t *testing.T) {
	token, err := GenerateToken("right", Claims{UserID: "u1"}, time.Hour)
	if err != nil {
		t.Fatalf("token error: %v", err)
	}
	if _, err := ParseToken("wrong", token); err == nil {
		t.Fatal("expected signature error")
	}

	expired, err := GenerateToken("right", Claims{UserID: "u1"}, -time.Minute)
	if err != nil {
		t.Fatalf("token error: %v", err)
	}
	if _, err := ParseToken("right", expired); err == nil {
		t.Fatal("expected expiry error")
	}

	anonymous, _ := GenerateToken("right", Claims{}, time.Hour)
	if _, err := ParseToken("right", anonymous); err == nil {
		t.Fatal("expected missing uid error")
	}
}

func TestUserFromClaimsOverride(t *testing.T) {
	overrides := []string{"hr", "Admin"}
	if !UserFromClaims(&Claims{UserID: "u", RoleName: "HR"}, overrides).HROverride {
		t.Fatal("expected hr role to carry the override")
	}
	if !UserFromClaims(&Claims{UserID: "u", RoleName: "admin"}, overrides).HROverride {
		t.Fatal("expected admin role to carry the override")
	}
	if UserFromClaims(&Claims{UserID: "u", RoleName: RoleManager}, overrides).HROverride {
		t.Fatal("manager must not carry the override")
	}
	if UserFromClaims(&Claims{UserID: "u", RoleName: RoleHR}, nil).HROverride {
		t.Fatal("override disabled when no roles are configured")
	}
}

func TestRolePermissionsSubset(t *testing.T) {
	allowed := map[string]struct{}{}
	for _, perm := range DefaultPermissions {
		allowed[perm] = struct{}{}
	}
	for role, perms := range RolePermissions {
		if len(perms) == 0 {
			t.Fatalf("role %s has no permissions", role)
		}
		for _, perm := range perms {
			if _, ok := allowed[perm]; !ok {
				t.Fatalf("role %s has unknown permission %s", role, perm)
			}
		}
	}
}

func TestStaticPermissions(t *testing.T) {
	store := StaticPermissions{}
	ok, err := store.HasPermission(context.Background(), "HR", PermAppraisalAdmin)
	if err != nil || !ok {
		t.Fatalf("expected hr to hold admin permission, got %v %v", ok, err)
	}
	ok, _ = store.HasPermission(context.Background(), RoleEmployee, PermAppraisalAdmin)
	if ok {
		t.Fatal("employee must not hold admin permission")
	}
	ok, _ = store.HasPermission(context.Background(), "contractor", PermAppraisalRead)
	if ok {
		t.Fatal("unknown role must hold nothing")
	}
}
