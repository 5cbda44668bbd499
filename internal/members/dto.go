package members

import (
	"time"

	"github.com/angelmondragon/librarydesk-backend/pkg/db/models"
	"github.com/angelmondragon/librarydesk-backend/pkg/enums"
	"github.com/google/uuid"
)

// MemberDTO is the API shape of a member.
type MemberDTO struct {
	ID            uuid.UUID          `json:"id"`
	Name          string             `json:"name"`
	Email         string             `json:"email"`
	Phone         string             `json:"phone"`
	Address       *string            `json:"address,omitempty"`
	Role          enums.MemberRole   `json:"role"`
	Status        enums.MemberStatus `json:"status"`
	JoinDate      time.Time          `json:"joinDate"`
	ExpiryDate    *time.Time         `json:"expiryDate,omitempty"`
	BorrowedCount int                `json:"borrowedCount"`
	Quota         int                `json:"quota"`
	CanBorrow     bool               `json:"canBorrow"`
	CreatedAt     time.Time          `json:"createdAt"`
	UpdatedAt     time.Time          `json:"updatedAt"`
}

// OverdueMemberDTO adds the number of overdue loans.
type OverdueMemberDTO struct {
	MemberDTO
	OverdueCount int64 `json:"overdueCount"`
}

// MemberListResult is a page of members.
type MemberListResult struct {
	Members    []MemberDTO `json:"members"`
	NextCursor string      `json:"nextCursor,omitempty"`
}

// NewMemberDTO maps the model onto its API shape as of now.
func NewMemberDTO(m models.Member, now time.Time) MemberDTO {
	return MemberDTO{
		ID:            m.ID,
		Name:          m.Name,
		Email:         m.Email,
		Phone:         m.Phone,
		Address:       m.Address,
		Role:          m.Role,
		Status:        m.Status,
		JoinDate:      m.JoinDate,
		ExpiryDate:    m.ExpiryDate,
		BorrowedCount: m.BorrowedCount,
		Quota:         m.Quota(),
		CanBorrow:     m.CanBorrow(now),
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}
