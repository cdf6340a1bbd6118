package model

import "testing"

func TestParseRole(t *testing.T) {
	cases := map[string]Role{
		"admin":     RoleAdmin,
		"Staff":     RoleStaff,
		" LEAD ":    RoleLead,
		"deputy":    RoleDeputy,
		"student":   RoleStudent,
		"":          RoleStudent,
		"superuser": RoleStudent,
	}
	for input, expect := range cases {
		if got := ParseRole(input); got != expect {
			t.Fatalf("expected ParseRole(%q) = %s, got %s", input, expect, got)
		}
	}
}

func TestIsValidRole(t *testing.T) {
	valid := []string{"admin", "staff", "lead", "deputy", "student", "ADMIN"}
	for _, role := range valid {
		if !IsValidRole(role) {
			t.Fatalf("expected role %s to be valid", role)
		}
	}
	if IsValidRole("superuser") {
		t.Fatalf("expected unknown role to be invalid")
	}
	if IsValidRole("") {
		t.Fatalf("expected empty role to be invalid")
	}
}
