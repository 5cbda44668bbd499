package loans

import (
	"context"
	"time"

	"github.com/angelmondragon/librarydesk-backend/internal/repo"
	"github.com/angelmondragon/librarydesk-backend/pkg/db/models"
	"github.com/angelmondragon/librarydesk-backend/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository persists loan records.
type Repository struct {
	repo.Base
}

// NewRepository builds a loan repository.
func NewRepository(conn *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(conn)}
}

// WithTx returns a repository bound to tx.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{Base: repo.NewBase(tx)}
}

// Create inserts loan. Associations are never written.
func (r *Repository) Create(ctx context.Context, loan *models.Loan) error {
	return r.DB(ctx).Omit(clause.Associations).Create(loan).Error
}

// Update persists the mutable loan columns.
func (r *Repository) Update(ctx context.Context, loan *models.Loan) error {
	loan.UpdatedAt = time.Now().UTC()
	res := r.DB(ctx).Model(&models.Loan{}).
		Where("id = ?", loan.ID).
		Updates(map[string]any{
			"due_date":    loan.DueDate,
			"return_date": loan.ReturnDate,
			"status":      loan.Status,
			"remarks":     loan.Remarks,
			"updated_at":  loan.UpdatedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Loan, error) {
	var loan models.Loan
	if err := r.DB(ctx).Preload("Book").First(&loan, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &loan, nil
}

// LockByID loads the loan row with a lock and without associations.
func (r *Repository) LockByID(ctx context.Context, id uuid.UUID) (*models.Loan, error) {
	var loan models.Loan
	if err := r.Locked(ctx).First(&loan, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &loan, nil
}

// ListOpenByMember returns the member's unreturned loans, oldest first.
func (r *Repository) ListOpenByMember(ctx context.Context, memberID uuid.UUID) ([]models.Loan, error) {
	var rows []models.Loan
	err := r.Locked(ctx).
		Where("member_id = ? AND status = ?", memberID, enums.LoanStatusBorrowed).
		Order("borrow_date ASC").
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// ListByMember returns the member's loans, newest first.
func (r *Repository) ListByMember(ctx context.Context, memberID uuid.UUID, openOnly bool) ([]models.Loan, error) {
	query := r.DB(ctx).Preload("Book").Where("member_id = ?", memberID)
	if openOnly {
		query = query.Where("status = ?", enums.LoanStatusBorrowed)
	}
	var rows []models.Loan
	if err := query.Order("borrow_date DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ListOverdue returns borrowed loans due before now, most overdue first.
func (r *Repository) ListOverdue(ctx context.Context, now time.Time) ([]models.Loan, error) {
	var rows []models.Loan
	err := r.DB(ctx).
		Preload("Book").
		Preload("Member").
		Where("status = ? AND due_date < ?", enums.LoanStatusBorrowed, now).
		Order("due_date ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// CountOverdue counts borrowed loans due before now.
func (r *Repository) CountOverdue(ctx context.Context, now time.Time) (int64, error) {
	var count int64
	err := r.DB(ctx).Model(&models.Loan{}).
		Where("status = ? AND due_date < ?", enums.LoanStatusBorrowed, now).
		Count(&count).Error
	return count, err
}

// ListByBorrowDate returns loans borrowed within [from, to).
func (r *Repository) ListByBorrowDate(ctx context.Context, from, to time.Time) ([]models.Loan, error) {
	var rows []models.Loan
	err := r.DB(ctx).
		Preload("Book").
		Where("borrow_date >= ? AND borrow_date < ?", from, to).
		Order("borrow_date ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
