package members

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/librarydesk-backend/internal/repo"
	"github.com/angelmondragon/librarydesk-backend/pkg/db/models"
	"github.com/angelmondragon/librarydesk-backend/pkg/enums"
	"github.com/angelmondragon/librarydesk-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SearchField restricts a member search to one column.
type SearchField string

const (
	FieldAny   SearchField = ""
	FieldName  SearchField = "name"
	FieldEmail SearchField = "email"
	FieldPhone SearchField = "phone"
)

var searchColumns = map[SearchField]string{
	FieldName:  "name",
	FieldEmail: "email",
	FieldPhone: "phone",
}

// ParseSearchField validates a raw field name.
func ParseSearchField(raw string) (SearchField, error) {
	field := SearchField(strings.ToLower(strings.TrimSpace(raw)))
	if field == FieldAny {
		return field, nil
	}
	if _, ok := searchColumns[field]; !ok {
		return "", fmt.Errorf("unsupported search field %q", raw)
	}
	return field, nil
}

// SearchParams drives member listing.
type SearchParams struct {
	Query      string
	Field      SearchField
	Status     *enums.MemberStatus
	Pagination pagination.Params
}

// OverdueMember is a member with at least one overdue loan.
type OverdueMember struct {
	models.Member
	OverdueCount int64 `gorm:"column:overdue_count"`
}

// Repository persists members.
type Repository struct {
	repo.Base
}

// NewRepository builds a member repository.
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

func (r *Repository) Create(ctx context.Context, member *models.Member) error {
	return r.DB(ctx).Create(member).Error
}

// UpdateProfile persists the editable member columns. borrowed_count is
// owned by circulation and written through UpdateBorrowedCount.
func (r *Repository) UpdateProfile(ctx context.Context, member *models.Member) error {
	member.UpdatedAt = time.Now().UTC()
	res := r.DB(ctx).Model(&models.Member{}).
		Where("id = ?", member.ID).
		Updates(map[string]any{
			"name":        member.Name,
			"email":       member.Email,
			"phone":       member.Phone,
			"address":     member.Address,
			"role":        member.Role,
			"status":      member.Status,
			"expiry_date": member.ExpiryDate,
			"updated_at":  member.UpdatedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.DB(ctx).Delete(&models.Member{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Member, error) {
	var member models.Member
	if err := r.DB(ctx).First(&member, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &member, nil
}

func (r *Repository) FindByEmail(ctx context.Context, email string) (*models.Member, error) {
	var member models.Member
	if err := r.DB(ctx).First(&member, "LOWER(email) = ?", strings.ToLower(strings.TrimSpace(email))).Error; err != nil {
		return nil, err
	}
	return &member, nil
}

// LockByID loads the member with a row lock.
func (r *Repository) LockByID(ctx context.Context, id uuid.UUID) (*models.Member, error) {
	var member models.Member
	if err := r.Locked(ctx).First(&member, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &member, nil
}

// UpdateBorrowedCount persists member.BorrowedCount.
func (r *Repository) UpdateBorrowedCount(ctx context.Context, member *models.Member) error {
	member.UpdatedAt = time.Now().UTC()
	res := r.DB(ctx).Model(&models.Member{}).
		Where("id = ?", member.ID).
		Updates(map[string]any{
			"borrowed_count": member.BorrowedCount,
			"updated_at":     member.UpdatedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Search lists members newest first with an optional substring filter.
func (r *Repository) Search(ctx context.Context, params SearchParams) ([]models.Member, string, error) {
	cursor, err := pagination.ParseCursor(params.Pagination.Cursor)
	if err != nil {
		return nil, "", err
	}

	query := r.DB(ctx).Model(&models.Member{})
	if term := strings.TrimSpace(params.Query); term != "" {
		pattern := "%" + strings.ToLower(term) + "%"
		if column, ok := searchColumns[params.Field]; ok {
			query = query.Where("LOWER("+column+") LIKE ?", pattern)
		} else {
			query = query.Where("(LOWER(name) LIKE ? OR LOWER(email) LIKE ? OR LOWER(phone) LIKE ?)", pattern, pattern, pattern)
		}
	}
	if params.Status != nil {
		query = query.Where("status = ?", *params.Status)
	}
	if cursor != nil {
		query = query.Where("(created_at < ? OR (created_at = ? AND id < ?))", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	var rows []models.Member
	limit := params.Pagination.Limit
	if err := query.Order("created_at DESC").Order("id DESC").Limit(pagination.LimitWithBuffer(limit)).Find(&rows).Error; err != nil {
		return nil, "", err
	}
	rows, next := pagination.Trim(rows, limit, func(row models.Member) pagination.Cursor {
		return pagination.Cursor{CreatedAt: row.CreatedAt, ID: row.ID}
	})
	return rows, next, nil
}

// ListWithOverdueLoans returns members holding loans due before now.
func (r *Repository) ListWithOverdueLoans(ctx context.Context, now time.Time) ([]OverdueMember, error) {
	var rows []OverdueMember
	err := r.DB(ctx).
		Model(&models.Member{}).
		Select("members.*, COUNT(loans.id) AS overdue_count").
		Joins("JOIN loans ON loans.member_id = members.id").
		Where("loans.status = ? AND loans.due_date < ?", enums.LoanStatusBorrowed, now).
		Group("members.id").
		Order("overdue_count DESC").
		Order("members.name ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
