package catalog

import (
	"time"

	"github.com/angelmondragon/librarydesk-backend/pkg/db/models"
	"github.com/angelmondragon/librarydesk-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BookDTO is the API shape of a catalog entry.
type BookDTO struct {
	ID              uuid.UUID              `json:"id"`
	ISBN            string                 `json:"isbn"`
	Title           string                 `json:"title"`
	Author          string                 `json:"author"`
	Publisher       *string                `json:"publisher,omitempty"`
	PublicationYear *int                   `json:"publicationYear,omitempty"`
	Genre           *string                `json:"genre,omitempty"`
	Description     *string                `json:"description,omitempty"`
	Location        *string                `json:"location,omitempty"`
	Language        *string                `json:"language,omitempty"`
	PageCount       *int                   `json:"pageCount,omitempty"`
	Price           decimal.Decimal        `json:"price"`
	TotalCopies     int                    `json:"totalCopies"`
	AvailableCopies int                    `json:"availableCopies"`
	Status          enums.BookAvailability `json:"status"`
	CreatedAt       time.Time              `json:"createdAt"`
	UpdatedAt       time.Time              `json:"updatedAt"`
}

// PopularBookDTO adds the lifetime loan count.
type PopularBookDTO struct {
	BookDTO
	LoanCount int64 `json:"loanCount"`
}

// BookListResult is a page of search results.
type BookListResult struct {
	Books      []BookDTO `json:"books"`
	NextCursor string    `json:"nextCursor,omitempty"`
}

// NewBookDTO maps the model onto its API shape.
func NewBookDTO(b models.Book) BookDTO {
	return BookDTO{
		ID:              b.ID,
		ISBN:            b.ISBN,
		Title:           b.Title,
		Author:          b.Author,
		Publisher:       b.Publisher,
		PublicationYear: b.PublicationYear,
		Genre:           b.Genre,
		Description:     b.Description,
		Location:        b.Location,
		Language:        b.Language,
		PageCount:       b.PageCount,
		Price:           b.Price,
		TotalCopies:     b.TotalCopies,
		AvailableCopies: b.AvailableCopies,
		Status:          b.Availability(),
		CreatedAt:       b.CreatedAt,
		UpdatedAt:       b.UpdatedAt,
	}
}

func newBookDTOs(rows []models.Book) []BookDTO {
	out := make([]BookDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, NewBookDTO(row))
	}
	return out
}
