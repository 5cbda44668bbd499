package loans

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/angelmondragon/librarydesk-backend/pkg/db"
	"github.com/angelmondragon/librarydesk-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/librarydesk-backend/pkg/errors"
	"github.com/angelmondragon/librarydesk-backend/pkg/tracing"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
)

var (
	ErrNotRenewable = errors.New("only borrowed loans can be renewed")
	ErrLoanOverdue  = errors.New("overdue loans cannot be renewed")
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service exposes loan queries and renewals.
type Service interface {
	Get(ctx context.Context, id uuid.UUID) (*LoanDTO, error)
	ListForMember(ctx context.Context, memberID uuid.UUID, openOnly bool) ([]LoanDTO, error)
	ListOverdue(ctx context.Context) ([]LoanDTO, error)
	ListByBorrowDate(ctx context.Context, from, to time.Time) ([]LoanDTO, error)
	Renew(ctx context.Context, id uuid.UUID, days int) (*LoanDTO, error)
}

type service struct {
	repo        *Repository
	tx          txRunner
	renewalDays int
	now         func() time.Time
	tracer      trace.Tracer
}

// NewService builds the loan service. renewalDays is the extension used when
// a renewal does not name one.
func NewService(repo *Repository, tx txRunner, renewalDays int) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("loan repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if renewalDays <= 0 {
		return nil, fmt.Errorf("renewal days must be positive")
	}
	return &service{
		repo:        repo,
		tx:          tx,
		renewalDays: renewalDays,
		now:         time.Now,
		tracer:      tracing.Tracer("loans"),
	}, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*LoanDTO, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "loan id is required")
	}
	loan, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, loadError(err)
	}
	dto := NewLoanDTO(*loan, s.now().UTC())
	return &dto, nil
}

func (s *service) ListForMember(ctx context.Context, memberID uuid.UUID, openOnly bool) ([]LoanDTO, error) {
	if memberID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "member id is required")
	}
	rows, err := s.repo.ListByMember(ctx, memberID, openOnly)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list member loans")
	}
	return NewLoanDTOs(rows, s.now().UTC()), nil
}

func (s *service) ListOverdue(ctx context.Context) ([]LoanDTO, error) {
	now := s.now().UTC()
	rows, err := s.repo.ListOverdue(ctx, now)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list overdue loans")
	}
	return NewLoanDTOs(rows, now), nil
}

func (s *service) ListByBorrowDate(ctx context.Context, from, to time.Time) ([]LoanDTO, error) {
	if from.IsZero() || to.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "from and to are required")
	}
	if !from.Before(to) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "from must be before to")
	}
	rows, err := s.repo.ListByBorrowDate(ctx, from.UTC(), to.UTC())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list loans by date")
	}
	return NewLoanDTOs(rows, s.now().UTC()), nil
}

// Renew pushes the due date of a borrowed, not yet overdue loan by days
// and appends a remark recording the renewal.
func (s *service) Renew(ctx context.Context, id uuid.UUID, days int) (_ *LoanDTO, err error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "loan id is required")
	}
	if days < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "days must be positive")
	}
	if days == 0 {
		days = s.renewalDays
	}

	ctx, span := s.tracer.Start(ctx, "loans.renew", trace.WithAttributes(
		attribute.String("loan.id", id.String()),
		attribute.Int("renew.days", days),
	))
	defer func() { tracing.End(span, err) }()

	now := s.now().UTC()
	var renewed *LoanDTO
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		loan, err := repo.LockByID(ctx, id)
		if err != nil {
			return loadError(err)
		}
		if loan.Status != enums.LoanStatusBorrowed {
			return pkgerrors.Wrap(pkgerrors.CodeStateConflict, ErrNotRenewable, "only borrowed loans can be renewed").
				WithDetails(map[string]any{"loan_id": loan.ID, "status": loan.Status})
		}
		if loan.IsOverdue(now) {
			return pkgerrors.Wrap(pkgerrors.CodeStateConflict, ErrLoanOverdue, "overdue loans cannot be renewed").
				WithDetails(map[string]any{"loan_id": loan.ID, "due_date": loan.DueDate})
		}

		loan.DueDate = loan.DueDate.AddDate(0, 0, days)
		loan.Remarks = appendRemark(loan.Remarks, RenewalRemark(days, now))
		if err := repo.Update(ctx, loan); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update loan")
		}
		dto := NewLoanDTO(*loan, now)
		renewed = &dto
		return nil
	})
	if err != nil {
		return nil, err
	}
	return renewed, nil
}

// RenewalRemark is the remark line written for a renewal.
func RenewalRemark(days int, at time.Time) string {
	return fmt.Sprintf("Renewed for %d days on %s", days, at.Format("2006-01-02"))
}

func appendRemark(existing *string, line string) *string {
	if existing == nil || *existing == "" {
		return &line
	}
	joined := *existing + "; " + line
	return &joined
}

func loadError(err error) error {
	if pkgerrors.As(err) != nil {
		return err
	}
	if db.IsNotFound(err) {
		return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "loan not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load loan")
}
