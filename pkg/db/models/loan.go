package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/librarydesk-backend/pkg/enums"
)

// Loan records one copy of a book lent to a member.
type Loan struct {
	ID         uuid.UUID        `gorm:"column:id;type:uuid;primaryKey"`
	BookID     uuid.UUID        `gorm:"column:book_id;type:uuid;not null;index"`
	MemberID   uuid.UUID        `gorm:"column:member_id;type:uuid;not null;index"`
	BorrowDate time.Time        `gorm:"column:borrow_date;not null"`
	DueDate    time.Time        `gorm:"column:due_date;not null"`
	ReturnDate *time.Time       `gorm:"column:return_date"`
	Status     enums.LoanStatus `gorm:"column:status;not null;default:BORROWED"`
	Remarks    *string          `gorm:"column:remarks"`
	CreatedAt  time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time        `gorm:"column:updated_at;autoUpdateTime"`

	Book   *Book   `gorm:"foreignKey:BookID;references:ID"`
	Member *Member `gorm:"foreignKey:MemberID;references:ID"`
}

// BeforeCreate assigns an id when the caller did not.
func (l *Loan) BeforeCreate(*gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}

// IsOpen reports whether the loan has not been returned.
func (l Loan) IsOpen() bool {
	return l.ReturnDate == nil
}

// IsOverdue reports whether an open loan is past its due date.
func (l Loan) IsOverdue(now time.Time) bool {
	return l.Status == enums.LoanStatusBorrowed && l.DueDate.Before(now)
}

// DisplayStatus folds the derived OVERDUE state into the stored status.
func (l Loan) DisplayStatus(now time.Time) enums.LoanStatus {
	return enums.DisplayLoanStatus(l.Status, l.DueDate, now)
}
