package catalog

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/librarydesk-backend/internal/repo"
	"github.com/angelmondragon/librarydesk-backend/pkg/db/models"
	"github.com/angelmondragon/librarydesk-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SearchField restricts a catalog search to one column.
type SearchField string

const (
	FieldAny       SearchField = ""
	FieldTitle     SearchField = "title"
	FieldAuthor    SearchField = "author"
	FieldISBN      SearchField = "isbn"
	FieldGenre     SearchField = "genre"
	FieldPublisher SearchField = "publisher"
)

var searchColumns = map[SearchField]string{
	FieldTitle:     "title",
	FieldAuthor:    "author",
	FieldISBN:      "isbn",
	FieldGenre:     "genre",
	FieldPublisher: "publisher",
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

// SearchParams drives catalog listing.
type SearchParams struct {
	Query         string
	Field         SearchField
	AvailableOnly bool
	Pagination    pagination.Params
}

// PopularBook pairs a book with how often it was lent.
type PopularBook struct {
	models.Book
	LoanCount int64 `gorm:"column:loan_count"`
}

// Repository persists catalog entries.
type Repository struct {
	repo.Base
}

// NewRepository builds a catalog repository on the provided connection.
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

func (r *Repository) Create(ctx context.Context, book *models.Book) error {
	return r.DB(ctx).Create(book).Error
}

// UpdateDetails persists the descriptive columns of book. Copy counters are
// left to UpdateCounts.
func (r *Repository) UpdateDetails(ctx context.Context, book *models.Book) error {
	book.UpdatedAt = time.Now().UTC()
	res := r.DB(ctx).Model(&models.Book{}).
		Where("id = ?", book.ID).
		Updates(map[string]any{
			"isbn":             book.ISBN,
			"title":            book.Title,
			"author":           book.Author,
			"publisher":        book.Publisher,
			"publication_year": book.PublicationYear,
			"genre":            book.Genre,
			"description":      book.Description,
			"location":         book.Location,
			"language":         book.Language,
			"page_count":       book.PageCount,
			"price":            book.Price,
			"updated_at":       book.UpdatedAt,
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
	res := r.DB(ctx).Delete(&models.Book{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Book, error) {
	var book models.Book
	if err := r.DB(ctx).First(&book, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &book, nil
}

func (r *Repository) FindByISBN(ctx context.Context, isbn string) (*models.Book, error) {
	var book models.Book
	if err := r.DB(ctx).First(&book, "isbn = ?", isbn).Error; err != nil {
		return nil, err
	}
	return &book, nil
}

// LockByID loads the book with a row lock. Call it on a transaction-bound
// repository.
func (r *Repository) LockByID(ctx context.Context, id uuid.UUID) (*models.Book, error) {
	var book models.Book
	if err := r.Locked(ctx).First(&book, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &book, nil
}

// UpdateCounts persists the copy counters of book.
func (r *Repository) UpdateCounts(ctx context.Context, book *models.Book) error {
	book.UpdatedAt = time.Now().UTC()
	res := r.DB(ctx).Model(&models.Book{}).
		Where("id = ?", book.ID).
		Updates(map[string]any{
			"available_copies": book.AvailableCopies,
			"total_copies":     book.TotalCopies,
			"updated_at":       book.UpdatedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Search lists books newest first, optionally filtered by a case-insensitive
// substring match. The returned cursor is empty on the last page.
func (r *Repository) Search(ctx context.Context, params SearchParams) ([]models.Book, string, error) {
	cursor, err := pagination.ParseCursor(params.Pagination.Cursor)
	if err != nil {
		return nil, "", err
	}

	query := r.DB(ctx).Model(&models.Book{})
	if term := strings.TrimSpace(params.Query); term != "" {
		pattern := "%" + strings.ToLower(term) + "%"
		if column, ok := searchColumns[params.Field]; ok {
			query = query.Where("LOWER("+column+") LIKE ?", pattern)
		} else {
			query = query.Where("(LOWER(title) LIKE ? OR LOWER(author) LIKE ? OR LOWER(isbn) LIKE ?)", pattern, pattern, pattern)
		}
	}
	if params.AvailableOnly {
		query = query.Where("available_copies > 0")
	}
	if cursor != nil {
		query = query.Where("(created_at < ? OR (created_at = ? AND id < ?))", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	var rows []models.Book
	limit := params.Pagination.Limit
	if err := query.Order("created_at DESC").Order("id DESC").Limit(pagination.LimitWithBuffer(limit)).Find(&rows).Error; err != nil {
		return nil, "", err
	}

	rows, next := pagination.Trim(rows, limit, func(row models.Book) pagination.Cursor {
		return pagination.Cursor{CreatedAt: row.CreatedAt, ID: row.ID}
	})
	return rows, next, nil
}

// Popular ranks books by the number of loans ever recorded.
func (r *Repository) Popular(ctx context.Context, limit int) ([]PopularBook, error) {
	var rows []PopularBook
	err := r.DB(ctx).
		Model(&models.Book{}).
		Select("books.*, COUNT(loans.id) AS loan_count").
		Joins("LEFT JOIN loans ON loans.book_id = books.id").
		Group("books.id").
		Order("loan_count DESC").
		Order("books.title ASC").
		Limit(pagination.NormalizeLimit(limit)).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// Recent returns the most recently catalogued books.
func (r *Repository) Recent(ctx context.Context, limit int) ([]models.Book, error) {
	var rows []models.Book
	if err := r.DB(ctx).Order("created_at DESC").Limit(pagination.NormalizeLimit(limit)).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
