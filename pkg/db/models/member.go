package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/librarydesk-backend/pkg/enums"
)

// Member is a registered borrower.
type Member struct {
	ID            uuid.UUID          `gorm:"column:id;type:uuid;primaryKey"`
	Name          string             `gorm:"column:name;not null"`
	Email         string             `gorm:"column:email;not null;uniqueIndex:members_email_key"`
	Phone         string             `gorm:"column:phone;not null"`
	Address       *string            `gorm:"column:address"`
	Role          enums.MemberRole   `gorm:"column:role;not null;default:REGULAR"`
	Status        enums.MemberStatus `gorm:"column:status;not null;default:ACTIVE"`
	JoinDate      time.Time          `gorm:"column:join_date;not null"`
	ExpiryDate    *time.Time         `gorm:"column:expiry_date"`
	BorrowedCount int                `gorm:"column:borrowed_count;not null"`
	CreatedAt     time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}

// BeforeCreate assigns an id when the caller did not.
func (m *Member) BeforeCreate(*gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// Quota is the member's maximum number of open loans.
func (m Member) Quota() int {
	return m.Role.Quota()
}

// IsExpired reports whether the membership lapsed before now.
func (m Member) IsExpired(now time.Time) bool {
	return m.ExpiryDate != nil && m.ExpiryDate.Before(now)
}

// CanBorrow holds for active, unexpired members below quota.
func (m Member) CanBorrow(now time.Time) bool {
	return m.Status == enums.MemberStatusActive && !m.IsExpired(now) && m.BorrowedCount < m.Quota()
}
