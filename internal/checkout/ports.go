package checkout

import (
	"context"

	"github.com/angelmondragon/librarydesk-backend/internal/catalog"
	"github.com/angelmondragon/librarydesk-backend/internal/loans"
	"github.com/angelmondragon/librarydesk-backend/internal/members"
	"github.com/angelmondragon/librarydesk-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BookStore is the catalog surface checkout writes through.
type BookStore interface {
	LockByID(ctx context.Context, id uuid.UUID) (*models.Book, error)
	UpdateCounts(ctx context.Context, book *models.Book) error
}

// MemberStore is the member surface checkout reads and writes.
type MemberStore interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Member, error)
	LockByID(ctx context.Context, id uuid.UUID) (*models.Member, error)
	UpdateBorrowedCount(ctx context.Context, member *models.Member) error
}

// LoanStore persists new loans.
type LoanStore interface {
	Create(ctx context.Context, loan *models.Loan) error
}

// Ports groups the stores bound to one connection or transaction.
type Ports struct {
	Books   BookStore
	Members MemberStore
	Loans   LoanStore
}

// Binder returns ports bound to tx, or to the pooled connection when tx is nil.
type Binder func(tx *gorm.DB) Ports

// RepositoryBinder binds the circulation repositories.
func RepositoryBinder(books *catalog.Repository, memberRepo *members.Repository, loanRepo *loans.Repository) Binder {
	return func(tx *gorm.DB) Ports {
		return Ports{
			Books:   books.WithTx(tx),
			Members: memberRepo.WithTx(tx),
			Loans:   loanRepo.WithTx(tx),
		}
	}
}
