package models

import (
	"testing"
	"time"

	"github.com/angelmondragon/librarydesk-backend/pkg/enums"
)

func TestMemberCanBorrow(t *testing.T) {
	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	yesterday := now.AddDate(0, 0, -1)
	nextYear := now.AddDate(1, 0, 0)

	tests := []struct {
		name   string
		member Member
		want   bool
	}{
		{"active under quota", Member{Role: enums.MemberRoleRegular, Status: enums.MemberStatusActive, BorrowedCount: 4}, true},
		{"at quota", Member{Role: enums.MemberRoleRegular, Status: enums.MemberStatusActive, BorrowedCount: 5}, false},
		{"premium above regular quota", Member{Role: enums.MemberRolePremium, Status: enums.MemberStatusActive, BorrowedCount: 7}, true},
		{"suspended", Member{Role: enums.MemberRoleAdmin, Status: enums.MemberStatusSuspended}, false},
		{"inactive", Member{Role: enums.MemberRoleAdmin, Status: enums.MemberStatusInactive}, false},
		{"expired", Member{Role: enums.MemberRoleRegular, Status: enums.MemberStatusActive, ExpiryDate: &yesterday}, false},
		{"not yet expired", Member{Role: enums.MemberRoleRegular, Status: enums.MemberStatusActive, ExpiryDate: &nextYear}, true},
	}
	for _, tt := range tests {
		if got := tt.member.CanBorrow(now); got != tt.want {
			t.Fatalf("%s: expected %v, got %v", tt.name, tt.want, got)
		}
	}
}

func TestBookAvailability(t *testing.T) {
	book := Book{TotalCopies: 3, AvailableCopies: 1}
	if got := book.Availability(); got != enums.BookAvailabilityPartial {
		t.Fatalf("expected partial availability, got %s", got)
	}
	if book.OnLoan() != 2 {
		t.Fatalf("expected 2 copies on loan, got %d", book.OnLoan())
	}
}

func TestLoanOverdue(t *testing.T) {
	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	loan := Loan{Status: enums.LoanStatusBorrowed, DueDate: now.Add(-time.Minute)}
	if !loan.IsOverdue(now) || loan.DisplayStatus(now) != enums.LoanStatusOverdue {
		t.Fatalf("expected loan to be overdue")
	}
	returnedAt := now
	loan.Status = enums.LoanStatusReturned
	loan.ReturnDate = &returnedAt
	if loan.IsOverdue(now) || loan.IsOpen() {
		t.Fatalf("returned loan must be closed and not overdue")
	}
}
