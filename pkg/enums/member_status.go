package enums

import (
	"fmt"
	"strings"
)

// MemberStatus is the membership standing of a borrower.
type MemberStatus string

const (
	MemberStatusActive    MemberStatus = "ACTIVE"
	MemberStatusInactive  MemberStatus = "INACTIVE"
	MemberStatusSuspended MemberStatus = "SUSPENDED"
)

var validMemberStatuses = []MemberStatus{
	MemberStatusActive,
	MemberStatusInactive,
	MemberStatusSuspended,
}

// String implements fmt.Stringer.
func (s MemberStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known MemberStatus.
func (s MemberStatus) IsValid() bool {
	for _, candidate := range validMemberStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseMemberStatus converts raw input into a MemberStatus.
func ParseMemberStatus(value string) (MemberStatus, error) {
	normalized := strings.ToUpper(strings.TrimSpace(value))
	for _, candidate := range validMemberStatuses {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid member status %q", value)
}
