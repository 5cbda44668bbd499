package members

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/librarydesk-backend/pkg/db"
	"github.com/angelmondragon/librarydesk-backend/pkg/db/models"
	"github.com/angelmondragon/librarydesk-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/librarydesk-backend/pkg/errors"
	"github.com/angelmondragon/librarydesk-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const emailConstraint = "members_email_key"

// Service exposes member management.
type Service interface {
	Create(ctx context.Context, input CreateMemberInput) (*MemberDTO, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateMemberInput) (*MemberDTO, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Get(ctx context.Context, id uuid.UUID) (*MemberDTO, error)
	Search(ctx context.Context, params SearchParams) (*MemberListResult, error)
	ListOverdue(ctx context.Context) ([]OverdueMemberDTO, error)
}

// CreateMemberInput holds the fields accepted when registering a member.
type CreateMemberInput struct {
	Name       string
	Email      string
	Phone      string
	Address    *string
	Role       string
	Status     string
	ExpiryDate *time.Time
}

// UpdateMemberInput holds optional changes.
type UpdateMemberInput struct {
	Name       *string
	Email      *string
	Phone      *string
	Address    *string
	Role       *string
	Status     *string
	ExpiryDate *time.Time
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type service struct {
	repo *Repository
	tx   txRunner
	now  func() time.Time
}

// NewService builds the member service.
func NewService(repo *Repository, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("member repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	return &service{repo: repo, tx: tx, now: time.Now}, nil
}

func (s *service) Create(ctx context.Context, input CreateMemberInput) (*MemberDTO, error) {
	now := s.now().UTC()
	member := &models.Member{
		Name:       strings.TrimSpace(input.Name),
		Email:      normalizeEmail(input.Email),
		Phone:      strings.TrimSpace(input.Phone),
		Address:    input.Address,
		Role:       enums.MemberRoleRegular,
		Status:     enums.MemberStatusActive,
		JoinDate:   now,
		ExpiryDate: input.ExpiryDate,
	}
	if strings.TrimSpace(input.Role) != "" {
		role, err := enums.ParseMemberRole(input.Role)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid role")
		}
		member.Role = role
	}
	if strings.TrimSpace(input.Status) != "" {
		status, err := enums.ParseMemberStatus(input.Status)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status")
		}
		member.Status = status
	}
	if err := validateMember(member); err != nil {
		return nil, err
	}
	if err := ensureEmailFree(ctx, s.repo, member.Email, uuid.Nil); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, member); err != nil {
		return nil, writeError(err, "create member")
	}
	dto := NewMemberDTO(*member, now)
	return &dto, nil
}

// Update edits the member profile on its locked row, so a role downgrade is
// checked against the live borrowedCount.
func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdateMemberInput) (*MemberDTO, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "member id is required")
	}

	var updated models.Member
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		member, err := repo.LockByID(ctx, id)
		if err != nil {
			return lookupError(err)
		}

		if input.Name != nil {
			member.Name = strings.TrimSpace(*input.Name)
		}
		if input.Email != nil {
			member.Email = normalizeEmail(*input.Email)
		}
		if input.Phone != nil {
			member.Phone = strings.TrimSpace(*input.Phone)
		}
		if input.Address != nil {
			member.Address = input.Address
		}
		if input.ExpiryDate != nil {
			member.ExpiryDate = input.ExpiryDate
		}
		if input.Status != nil {
			status, err := enums.ParseMemberStatus(*input.Status)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status")
			}
			member.Status = status
		}
		if input.Role != nil {
			role, err := enums.ParseMemberRole(*input.Role)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid role")
			}
			if member.BorrowedCount > role.Quota() {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "member holds more loans than the new role allows").
					WithDetails(map[string]any{"current": member.BorrowedCount, "max": role.Quota()})
			}
			member.Role = role
		}
		if err := validateMember(member); err != nil {
			return err
		}
		if input.Email != nil {
			if err := ensureEmailFree(ctx, repo, member.Email, member.ID); err != nil {
				return err
			}
		}

		if err := repo.UpdateProfile(ctx, member); err != nil {
			return writeError(err, "update member")
		}
		updated = *member
		return nil
	})
	if err != nil {
		return nil, err
	}
	dto := NewMemberDTO(updated, s.now().UTC())
	return &dto, nil
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	member, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if member.BorrowedCount > 0 {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "member has books on loan").
			WithDetails(map[string]any{"member_id": member.ID, "borrowed": member.BorrowedCount})
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if db.IsNotFound(err) {
			return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "member not found")
		}
		if db.IsForeignKeyViolation(err) {
			return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "member has loan history")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete member")
	}
	return nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*MemberDTO, error) {
	member, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	dto := NewMemberDTO(*member, s.now().UTC())
	return &dto, nil
}

func (s *service) Search(ctx context.Context, params SearchParams) (*MemberListResult, error) {
	if _, err := pagination.ParseCursor(params.Pagination.Cursor); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, next, err := s.repo.Search(ctx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "search members")
	}
	now := s.now().UTC()
	out := make([]MemberDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, NewMemberDTO(row, now))
	}
	return &MemberListResult{Members: out, NextCursor: next}, nil
}

func (s *service) ListOverdue(ctx context.Context) ([]OverdueMemberDTO, error) {
	now := s.now().UTC()
	rows, err := s.repo.ListWithOverdueLoans(ctx, now)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list overdue members")
	}
	out := make([]OverdueMemberDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, OverdueMemberDTO{MemberDTO: NewMemberDTO(row.Member, now), OverdueCount: row.OverdueCount})
	}
	return out, nil
}

func (s *service) load(ctx context.Context, id uuid.UUID) (*models.Member, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "member id is required")
	}
	member, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err)
	}
	return member, nil
}

func lookupError(err error) error {
	if db.IsNotFound(err) {
		return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "member not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load member")
}

func ensureEmailFree(ctx context.Context, repo *Repository, email string, self uuid.UUID) error {
	existing, err := repo.FindByEmail(ctx, email)
	if err != nil {
		if db.IsNotFound(err) {
			return nil
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check email")
	}
	if existing.ID == self {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeConflict, "email already registered").
		WithDetails(map[string]any{"email": email})
}

func validateMember(m *models.Member) error {
	var missing []string
	if m.Name == "" {
		missing = append(missing, "name")
	}
	if m.Email == "" {
		missing = append(missing, "email")
	}
	if m.Phone == "" {
		missing = append(missing, "phone")
	}
	if len(missing) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "missing required fields").
			WithDetails(map[string]any{"fields": missing})
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func writeError(err error, action string) error {
	if db.IsUniqueViolation(err, emailConstraint) {
		return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "email already registered")
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, action)
}
