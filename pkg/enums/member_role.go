package enums

import "fmt"

// MemberRole is the dashboard role carried inside access tokens.
type MemberRole string

const (
	RoleBuyer MemberRole = "buyer"
	RoleAdmin MemberRole = "admin"
)

var validMemberRoles = []MemberRole{
	RoleBuyer,
	RoleAdmin,
}

// IsValid reports whether the value is a known MemberRole.
func (m MemberRole) IsValid() bool {
	for _, candidate := range validMemberRoles {
		if candidate == m {
			return true
		}
	}
	return false
}

// ParseMemberRole converts raw input into a MemberRole.
func ParseMemberRole(value string) (MemberRole, error) {
	for _, candidate := range validMemberRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid member role %q", value)
}
