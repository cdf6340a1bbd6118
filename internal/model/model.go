package model

import (
	"strings"
	"time"
)

type Role string

const (
	RoleAdmin   Role = "admin"
	RoleStaff   Role = "staff"
	RoleLead    Role = "lead"
	RoleDeputy  Role = "deputy"
	RoleStudent Role = "student"
)

var validRoles = map[Role]bool{
	RoleAdmin:   true,
	RoleStaff:   true,
	RoleLead:    true,
	RoleDeputy:  true,
	RoleStudent: true,
}

// ParseRole maps a stored label to a Role. Unrecognized labels map to
// RoleStudent.
func ParseRole(raw string) Role {
	role := Role(strings.TrimSpace(strings.ToLower(raw)))
	if !validRoles[role] {
		return RoleStudent
	}
	return role
}

func IsValidRole(raw string) bool {
	return validRoles[Role(strings.TrimSpace(strings.ToLower(raw)))]
}

// Roles lists every valid role, dashboard roles in privilege order.
func Roles() []Role {
	return []Role{RoleAdmin, RoleStaff, RoleLead, RoleDeputy, RoleStudent}
}

type Profile struct {
	ID            string
	Email         string
	FullName      string
	Role          string
	AcademicLevel string
	AvatarURL     *string
	Bio           *string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type Announcement struct {
	ID        string
	AuthorID  string
	Title     string
	Body      string
	CreatedAt time.Time
}
