package checkout

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/librarydesk-backend/internal/cart"
	"github.com/angelmondragon/librarydesk-backend/internal/loans"
	"github.com/angelmondragon/librarydesk-backend/pkg/db"
	"github.com/angelmondragon/librarydesk-backend/pkg/db/models"
	"github.com/angelmondragon/librarydesk-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/librarydesk-backend/pkg/errors"
	"github.com/angelmondragon/librarydesk-backend/pkg/logger"
	"github.com/angelmondragon/librarydesk-backend/pkg/metrics"
	"github.com/angelmondragon/librarydesk-backend/pkg/tracing"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type cartSession interface {
	Items(ctx context.Context, cartID uuid.UUID) ([]cart.CartItem, error)
	Clear(ctx context.Context, cartID uuid.UUID) (*cart.View, error)
	Claim(ctx context.Context, cartID uuid.UUID) (func(), error)
}

// Service turns a cart session into loans.
type Service interface {
	Preview(ctx context.Context, cartID, memberID uuid.UUID) (*Summary, error)
	Execute(ctx context.Context, cartID, memberID uuid.UUID, input Input) (*Receipt, error)
}

// Input carries the client's answer to the confirmation prompt.
type Input struct {
	Confirmed bool `json:"confirmed"`
}

// Summary is what the client shows before asking for confirmation.
type Summary struct {
	CartID        uuid.UUID       `json:"cartId"`
	MemberID      uuid.UUID       `json:"memberId"`
	MemberName    string          `json:"memberName"`
	Items         []cart.CartItem `json:"items"`
	ItemCount     int             `json:"itemCount"`
	BorrowedCount int             `json:"borrowedCount"`
	Quota         int             `json:"quota"`
	DueDate       time.Time       `json:"dueDate"`
}

// Receipt describes a committed checkout.
type Receipt struct {
	CartID       uuid.UUID       `json:"cartId"`
	MemberID     uuid.UUID       `json:"memberId"`
	Loans        []loans.LoanDTO `json:"loans"`
	ItemCount    int             `json:"itemCount"`
	DueDate      time.Time       `json:"dueDate"`
	CheckedOutAt time.Time       `json:"checkedOutAt"`
}

// ServiceParams wires the checkout service.
type ServiceParams struct {
	Tx         txRunner
	Carts      cartSession
	Bind       Binder
	LoanPeriod time.Duration
	Logger     *logger.Logger
	Metrics    *metrics.CirculationMetrics
}

type service struct {
	tx         txRunner
	carts      cartSession
	bind       Binder
	loanPeriod time.Duration
	logg       *logger.Logger
	metrics    *metrics.CirculationMetrics
	now        func() time.Time
	tracer     trace.Tracer
}

// NewService builds the checkout service.
func NewService(params ServiceParams) (Service, error) {
	if params.Tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if params.Carts == nil {
		return nil, fmt.Errorf("cart session required")
	}
	if params.Bind == nil {
		return nil, fmt.Errorf("repository binder required")
	}
	if params.LoanPeriod <= 0 {
		return nil, fmt.Errorf("loan period must be positive")
	}
	return &service{
		tx:         params.Tx,
		carts:      params.Carts,
		bind:       params.Bind,
		loanPeriod: params.LoanPeriod,
		logg:       params.Logger,
		metrics:    params.Metrics,
		now:        time.Now,
		tracer:     tracing.Tracer("checkout"),
	}, nil
}

func (s *service) Preview(ctx context.Context, cartID, memberID uuid.UUID) (*Summary, error) {
	now := s.now().UTC()
	items, member, err := s.prepare(ctx, cartID, memberID, now)
	if err != nil {
		return nil, err
	}
	return &Summary{
		CartID:        cartID,
		MemberID:      member.ID,
		MemberName:    member.Name,
		Items:         items,
		ItemCount:     len(items),
		BorrowedCount: member.BorrowedCount,
		Quota:         member.Quota(),
		DueDate:       now.Add(s.loanPeriod),
	}, nil
}

// Execute claims the cart, validates it against the member, then writes one
// loan per cart line and the counter updates in a single transaction. The
// cart is cleared after commit and released last, so a second checkout of
// the same cart sees it empty.
func (s *service) Execute(ctx context.Context, cartID, memberID uuid.UUID, input Input) (receipt *Receipt, err error) {
	ctx, span := s.tracer.Start(ctx, "checkout.execute", trace.WithAttributes(
		attribute.String("cart.id", cartID.String()),
		attribute.String("member.id", memberID.String()),
	))
	defer func() {
		created := 0
		if receipt != nil {
			created = len(receipt.Loans)
		}
		s.metrics.ObserveCheckout(outcomeOf(err), created)
		tracing.End(span, err)
	}()

	if cartID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart id is required")
	}
	release, err := s.carts.Claim(ctx, cartID)
	if err != nil {
		return nil, err
	}
	defer release()

	now := s.now().UTC()
	items, _, err := s.prepare(ctx, cartID, memberID, now)
	if err != nil {
		return nil, err
	}
	if !input.Confirmed {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, ErrNotConfirmed, "checkout must be confirmed")
	}
	span.SetAttributes(attribute.Int("checkout.items", len(items)))

	dueDate := now.Add(s.loanPeriod)
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		ports := s.bind(tx)

		member, err := ports.Members.LockByID(ctx, memberID)
		if err != nil {
			return loadError(err, "member")
		}
		if err := checkMember(member, len(items), now); err != nil {
			return err
		}

		tallies := tallyByBook(items)
		books := make(map[uuid.UUID]*models.Book, len(tallies))
		for _, tally := range tallies {
			book, err := ports.Books.LockByID(ctx, tally.BookID)
			if err != nil {
				return loadError(err, "book")
			}
			if book.AvailableCopies < tally.Lines {
				return pkgerrors.Wrap(pkgerrors.CodeStateConflict, ErrBookUnavailable, "book is no longer available").
					WithDetails(map[string]any{
						"book_id":   book.ID,
						"title":     book.Title,
						"available": book.AvailableCopies,
						"requested": tally.Lines,
					})
			}
			books[book.ID] = book
		}

		created := make([]loans.LoanDTO, 0, len(items))
		for _, item := range items {
			book := books[item.BookID]
			loan := &models.Loan{
				BookID:     book.ID,
				MemberID:   member.ID,
				BorrowDate: now,
				DueDate:    dueDate,
				Status:     enums.LoanStatusBorrowed,
			}
			if err := ports.Loans.Create(ctx, loan); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create loan")
			}
			book.AvailableCopies--
			loan.Book = book
			loan.Member = member
			created = append(created, loans.NewLoanDTO(*loan, now))
		}

		for _, tally := range tallies {
			book := books[tally.BookID]
			if err := ports.Books.UpdateCounts(ctx, book); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update book availability")
			}
		}

		member.BorrowedCount += len(items)
		if err := ports.Members.UpdateBorrowedCount(ctx, member); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update member borrowed count")
		}

		receipt = &Receipt{
			CartID:       cartID,
			MemberID:     member.ID,
			Loans:        created,
			ItemCount:    len(created),
			DueDate:      dueDate,
			CheckedOutAt: now,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if _, clearErr := s.carts.Clear(ctx, cartID); clearErr != nil && s.logg != nil {
		logCtx := s.logg.WithCartID(ctx, cartID.String())
		s.logg.Error(logCtx, "failed to clear cart after checkout", clearErr)
	}
	return receipt, nil
}

// prepare runs the checks that need no locks: a non-empty cart, a selected
// member, eligibility and quota.
func (s *service) prepare(ctx context.Context, cartID, memberID uuid.UUID, now time.Time) ([]cart.CartItem, *models.Member, error) {
	if cartID == uuid.Nil {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "cart id is required")
	}
	items, err := s.carts.Items(ctx, cartID)
	if err != nil {
		return nil, nil, err
	}
	if len(items) == 0 {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeValidation, ErrEmptyCart, "cart is empty")
	}
	if memberID == uuid.Nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeValidation, ErrNoMember, "member is required")
	}
	member, err := s.bind(nil).Members.FindByID(ctx, memberID)
	if err != nil {
		return nil, nil, loadError(err, "member")
	}
	if err := checkMember(member, len(items), now); err != nil {
		return nil, nil, err
	}
	return items, member, nil
}

func checkMember(member *models.Member, requested int, now time.Time) error {
	if member.Status != enums.MemberStatusActive || member.IsExpired(now) {
		return pkgerrors.Wrap(pkgerrors.CodeStateConflict, ErrMemberIneligible, "member cannot borrow").
			WithDetails(map[string]any{
				"member_id":   member.ID,
				"status":      member.Status,
				"expiry_date": member.ExpiryDate,
			})
	}
	quota := member.Quota()
	if member.BorrowedCount+requested > quota {
		return pkgerrors.Wrap(pkgerrors.CodeStateConflict, ErrQuotaExceeded, "borrowing quota exceeded").
			WithDetails(map[string]any{
				"current":   member.BorrowedCount,
				"attempted": requested,
				"max":       quota,
			})
	}
	return nil
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

func outcomeOf(err error) string {
	if err == nil {
		return metrics.OutcomeSuccess
	}
	switch pkgerrors.As(err).Code() {
	case pkgerrors.CodeValidation, pkgerrors.CodeNotFound, pkgerrors.CodeConflict, pkgerrors.CodeStateConflict:
		return metrics.OutcomeRejected
	default:
		return metrics.OutcomeError
	}
}
