package enums

import (
	"fmt"
	"strings"
)

// MemberRole determines a member's borrow quota.
type MemberRole string

const (
	MemberRoleRegular MemberRole = "REGULAR"
	MemberRolePremium MemberRole = "PREMIUM"
	MemberRoleAdmin   MemberRole = "ADMIN"
)

var validMemberRoles = []MemberRole{
	MemberRoleRegular,
	MemberRolePremium,
	MemberRoleAdmin,
}

var quotaByRole = map[MemberRole]int{
	MemberRoleRegular: 5,
	MemberRolePremium: 10,
	MemberRoleAdmin:   15,
}

// String implements fmt.Stringer.
func (m MemberRole) String() string {
	return string(m)
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

// Quota returns the maximum number of open loans the role permits.
// Unknown roles get the REGULAR quota.
func (m MemberRole) Quota() int {
	if q, ok := quotaByRole[m]; ok {
		return q
	}
	return quotaByRole[MemberRoleRegular]
}

// ParseMemberRole converts raw input into a MemberRole. Matching is case-insensitive.
func ParseMemberRole(value string) (MemberRole, error) {
	normalized := strings.ToUpper(strings.TrimSpace(value))
	for _, candidate := range validMemberRoles {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid member role %q", value)
}
