package returns

import (
	"context"

	"github.com/angelmondragon/librarydesk-backend/internal/catalog"
	"github.com/angelmondragon/librarydesk-backend/internal/loans"
	"github.com/angelmondragon/librarydesk-backend/internal/members"
	"github.com/angelmondragon/librarydesk-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type LoanStore interface {
	LockByID(ctx context.Context, id uuid.UUID) (*models.Loan, error)
	Update(ctx context.Context, loan *models.Loan) error
	ListOpenByMember(ctx context.Context, memberID uuid.UUID) ([]models.Loan, error)
}

type BookStore interface {
	LockByID(ctx context.Context, id uuid.UUID) (*models.Book, error)
	UpdateCounts(ctx context.Context, book *models.Book) error
}

type MemberStore interface {
	LockByID(ctx context.Context, id uuid.UUID) (*models.Member, error)
	UpdateBorrowedCount(ctx context.Context, member *models.Member) error
}

// Ports groups the stores a return writes through.
type Ports struct {
	Loans   LoanStore
	Books   BookStore
	Members MemberStore
}

// Binder returns ports bound to tx.
type Binder func(tx *gorm.DB) Ports

// RepositoryBinder binds the circulation repositories.
func RepositoryBinder(loanRepo *loans.Repository, books *catalog.Repository, memberRepo *members.Repository) Binder {
	return func(tx *gorm.DB) Ports {
		return Ports{
			Loans:   loanRepo.WithTx(tx),
			Books:   books.WithTx(tx),
			Members: memberRepo.WithTx(tx),
		}
	}
}
