package models

import "strings"

// Role is the permission tag of a principal.
type Role int

const (
	RoleUnknown Role = iota
	RoleCollector
	RoleAdmin
)

func (r Role) String() string {
	switch r {
	case RoleCollector:
		return "collector"
	case RoleAdmin:
		return "admin"
	}
	return "unknown"
}

// ParseRole maps a configured role name onto the enum.
func ParseRole(s string) Role {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "collector", "cobrador":
		return RoleCollector
	case "admin", "administrator":
		return RoleAdmin
	}
	return RoleUnknown
}

// User is a directory row resolved from a bearer token.
type User struct {
	UserID string
	Name   string
	Role   Role
	Token  string
}

// Principal is the acting identity passed into services.
type Principal struct {
	ID   string
	Name string
	Role Role
}

func (u *User) Principal() Principal {
	return Principal{ID: u.UserID, Name: u.Name, Role: u.Role}
}

func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}

func (p Principal) IsCollector() bool {
	return p.Role == RoleCollector
}
