package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/librarydesk-backend/pkg/enums"
)

// Book is a catalog entry with copy counters.
type Book struct {
	ID              uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	ISBN            string          `gorm:"column:isbn;not null;uniqueIndex:books_isbn_key"`
	Title           string          `gorm:"column:title;not null"`
	Author          string          `gorm:"column:author;not null"`
	Publisher       *string         `gorm:"column:publisher"`
	PublicationYear *int            `gorm:"column:publication_year"`
	Genre           *string         `gorm:"column:genre"`
	Description     *string         `gorm:"column:description"`
	Location        *string         `gorm:"column:location"`
	Language        *string         `gorm:"column:language"`
	PageCount       *int            `gorm:"column:page_count"`
	Price           decimal.Decimal `gorm:"column:price;type:numeric(10,2);not null"`
	TotalCopies     int             `gorm:"column:total_copies;not null"`
	AvailableCopies int             `gorm:"column:available_copies;not null"`
	CreatedAt       time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// BeforeCreate assigns an id when the caller did not.
func (b *Book) BeforeCreate(*gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// Availability derives the display status from the copy counters.
func (b Book) Availability() enums.BookAvailability {
	return enums.DeriveBookAvailability(b.AvailableCopies, b.TotalCopies)
}

// OnLoan is the number of copies currently out.
func (b Book) OnLoan() int {
	return b.TotalCopies - b.AvailableCopies
}
