package loans

import (
	"time"

	"github.com/angelmondragon/librarydesk-backend/pkg/db/models"
	"github.com/angelmondragon/librarydesk-backend/pkg/enums"
	"github.com/google/uuid"
)

// LoanDTO is the API shape of a loan. Status is the display status, so
// borrowed loans past due read OVERDUE.
type LoanDTO struct {
	ID          uuid.UUID        `json:"id"`
	BookID      uuid.UUID        `json:"bookId"`
	BookTitle   string           `json:"bookTitle,omitempty"`
	MemberID    uuid.UUID        `json:"memberId"`
	MemberName  string           `json:"memberName,omitempty"`
	BorrowDate  time.Time        `json:"borrowDate"`
	DueDate     time.Time        `json:"dueDate"`
	ReturnDate  *time.Time       `json:"returnDate,omitempty"`
	Status      enums.LoanStatus `json:"status"`
	DaysOverdue int              `json:"daysOverdue,omitempty"`
	Remarks     *string          `json:"remarks,omitempty"`
}

// NewLoanDTO maps a loan as of now.
func NewLoanDTO(l models.Loan, now time.Time) LoanDTO {
	dto := LoanDTO{
		ID:         l.ID,
		BookID:     l.BookID,
		MemberID:   l.MemberID,
		BorrowDate: l.BorrowDate,
		DueDate:    l.DueDate,
		ReturnDate: l.ReturnDate,
		Status:     l.DisplayStatus(now),
		Remarks:    l.Remarks,
	}
	if l.Book != nil {
		dto.BookTitle = l.Book.Title
	}
	if l.Member != nil {
		dto.MemberName = l.Member.Name
	}
	if l.IsOverdue(now) {
		dto.DaysOverdue = int(now.Sub(l.DueDate).Hours() / 24)
	}
	return dto
}

// NewLoanDTOs maps a slice of loans.
func NewLoanDTOs(rows []models.Loan, now time.Time) []LoanDTO {
	out := make([]LoanDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, NewLoanDTO(row, now))
	}
	return out
}
