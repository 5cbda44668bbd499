package returns

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/angelmondragon/librarydesk-backend/internal/loans"
	"github.com/angelmondragon/librarydesk-backend/pkg/db"
	"github.com/angelmondragon/librarydesk-backend/pkg/db/models"
	"github.com/angelmondragon/librarydesk-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/librarydesk-backend/pkg/errors"
	"github.com/angelmondragon/librarydesk-backend/pkg/metrics"
	"github.com/angelmondragon/librarydesk-backend/pkg/tracing"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
)

var ErrAlreadyReturned = errors.New("loan already returned")

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service closes loans and puts copies back on the shelf.
type Service interface {
	ReturnLoan(ctx context.Context, loanID uuid.UUID) (*loans.LoanDTO, error)
	ReturnAll(ctx context.Context, memberID uuid.UUID) (*BulkResult, error)
}

// BulkResult reports a return-all.
type BulkResult struct {
	MemberID uuid.UUID       `json:"memberId"`
	Count    int             `json:"count"`
	Loans    []loans.LoanDTO `json:"loans"`
}

type service struct {
	tx      txRunner
	bind    Binder
	metrics *metrics.CirculationMetrics
	now     func() time.Time
	tracer  trace.Tracer
}

// NewService builds the return service. m may be nil.
func NewService(tx txRunner, bind Binder, m *metrics.CirculationMetrics) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if bind == nil {
		return nil, fmt.Errorf("repository binder required")
	}
	return &service{
		tx:      tx,
		bind:    bind,
		metrics: m,
		now:     time.Now,
		tracer:  tracing.Tracer("returns"),
	}, nil
}

// ReturnLoan closes one loan. Rows are locked loan, member, book so returns
// and checkouts acquire member and book locks in the same order.
func (s *service) ReturnLoan(ctx context.Context, loanID uuid.UUID) (_ *loans.LoanDTO, err error) {
	if loanID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "loan id is required")
	}
	ctx, span := s.tracer.Start(ctx, "returns.loan", trace.WithAttributes(
		attribute.String("loan.id", loanID.String()),
	))
	defer func() { tracing.End(span, err) }()

	now := s.now().UTC()
	var returned *loans.LoanDTO
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		ports := s.bind(tx)

		loan, err := ports.Loans.LockByID(ctx, loanID)
		if err != nil {
			return loadError(err, "loan")
		}
		if !loan.IsOpen() || loan.Status == enums.LoanStatusReturned {
			return pkgerrors.Wrap(pkgerrors.CodeStateConflict, ErrAlreadyReturned, "loan already returned").
				WithDetails(map[string]any{"loan_id": loan.ID, "return_date": loan.ReturnDate})
		}

		member, err := ports.Members.LockByID(ctx, loan.MemberID)
		if err != nil {
			return loadError(err, "member")
		}
		book, err := ports.Books.LockByID(ctx, loan.BookID)
		if err != nil {
			return loadError(err, "book")
		}

		if err := closeLoan(ctx, ports.Loans, loan, now); err != nil {
			return err
		}
		restock(book, 1)
		if err := ports.Books.UpdateCounts(ctx, book); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update book availability")
		}
		if member.BorrowedCount > 0 {
			member.BorrowedCount--
		}
		if err := ports.Members.UpdateBorrowedCount(ctx, member); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update member borrowed count")
		}

		loan.Book = book
		loan.Member = member
		dto := loans.NewLoanDTO(*loan, now)
		returned = &dto
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.metrics.AddReturns(metrics.ReturnSingle, 1)
	return returned, nil
}

// ReturnAll closes every open loan of a member and resets the borrowed count.
func (s *service) ReturnAll(ctx context.Context, memberID uuid.UUID) (_ *BulkResult, err error) {
	if memberID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "member id is required")
	}
	ctx, span := s.tracer.Start(ctx, "returns.all", trace.WithAttributes(
		attribute.String("member.id", memberID.String()),
	))
	defer func() { tracing.End(span, err) }()

	now := s.now().UTC()
	result := &BulkResult{MemberID: memberID}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		ports := s.bind(tx)

		member, err := ports.Members.LockByID(ctx, memberID)
		if err != nil {
			return loadError(err, "member")
		}
		open, err := ports.Loans.ListOpenByMember(ctx, memberID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list open loans")
		}

		perBook := make(map[uuid.UUID]int, len(open))
		for _, loan := range open {
			perBook[loan.BookID]++
		}
		bookIDs := make([]uuid.UUID, 0, len(perBook))
		for id := range perBook {
			bookIDs = append(bookIDs, id)
		}
		sort.Slice(bookIDs, func(i, j int) bool { return bookIDs[i].String() < bookIDs[j].String() })

		books := make(map[uuid.UUID]*models.Book, len(bookIDs))
		for _, id := range bookIDs {
			book, err := ports.Books.LockByID(ctx, id)
			if err != nil {
				return loadError(err, "book")
			}
			books[id] = book
		}

		result.Loans = make([]loans.LoanDTO, 0, len(open))
		for i := range open {
			loan := &open[i]
			if err := closeLoan(ctx, ports.Loans, loan, now); err != nil {
				return err
			}
			loan.Book = books[loan.BookID]
			loan.Member = member
			result.Loans = append(result.Loans, loans.NewLoanDTO(*loan, now))
		}
		for _, id := range bookIDs {
			book := books[id]
			restock(book, perBook[id])
			if err := ports.Books.UpdateCounts(ctx, book); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update book availability")
			}
		}

		member.BorrowedCount = 0
		if err := ports.Members.UpdateBorrowedCount(ctx, member); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update member borrowed count")
		}
		result.Count = len(open)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.metrics.AddReturns(metrics.ReturnBulk, result.Count)
	return result, nil
}

func closeLoan(ctx context.Context, store LoanStore, loan *models.Loan, now time.Time) error {
	returnedAt := now
	loan.ReturnDate = &returnedAt
	loan.Status = enums.LoanStatusReturned
	if err := store.Update(ctx, loan); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update loan")
	}
	return nil
}

// restock adds copies back, never above the total.
func restock(book *models.Book, copies int) {
	book.AvailableCopies += copies
	if book.AvailableCopies > book.TotalCopies {
		book.AvailableCopies = book.TotalCopies
	}
}

func loadError(err error, entity string) error {
	if pkgerrors.As(err) != nil {
		return err
	}
	if db.IsNotFound(err) {
		return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, entity+" not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load "+entity)
}
