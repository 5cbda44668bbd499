package enums

import (
	"fmt"
	"strings"
	"time"
)

// LoanStatus tracks a loan through its lifecycle. OVERDUE is never stored;
// it is derived from the due date for display.
type LoanStatus string

const (
	LoanStatusBorrowed LoanStatus = "BORROWED"
	LoanStatusReturned LoanStatus = "RETURNED"
	LoanStatusOverdue  LoanStatus = "OVERDUE"
)

var validLoanStatuses = []LoanStatus{
	LoanStatusBorrowed,
	LoanStatusReturned,
	LoanStatusOverdue,
}

// String implements fmt.Stringer.
func (s LoanStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known LoanStatus.
func (s LoanStatus) IsValid() bool {
	for _, candidate := range validLoanStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseLoanStatus converts raw input into a LoanStatus.
func ParseLoanStatus(value string) (LoanStatus, error) {
	normalized := strings.ToUpper(strings.TrimSpace(value))
	for _, candidate := range validLoanStatuses {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid loan status %q", value)
}

// DisplayLoanStatus returns OVERDUE for borrowed loans past their due date.
func DisplayLoanStatus(stored LoanStatus, dueDate, now time.Time) LoanStatus {
	if stored == LoanStatusBorrowed && dueDate.Before(now) {
		return LoanStatusOverdue
	}
	return stored
}
