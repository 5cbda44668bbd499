package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/angelmondragon/librarydesk-backend/pkg/db"
	"github.com/angelmondragon/librarydesk-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/librarydesk-backend/pkg/errors"
	"github.com/angelmondragon/librarydesk-backend/pkg/pagination"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const isbnConstraint = "books_isbn_key"

// Service exposes catalog management.
type Service interface {
	Create(ctx context.Context, input CreateBookInput) (*BookDTO, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateBookInput) (*BookDTO, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Get(ctx context.Context, id uuid.UUID) (*BookDTO, error)
	Search(ctx context.Context, params SearchParams) (*BookListResult, error)
	Popular(ctx context.Context, limit int) ([]PopularBookDTO, error)
	Recent(ctx context.Context, limit int) ([]BookDTO, error)
}

// CreateBookInput holds the fields accepted when cataloguing a book.
type CreateBookInput struct {
	ISBN            string
	Title           string
	Author          string
	Publisher       *string
	PublicationYear *int
	Genre           *string
	Description     *string
	Location        *string
	Language        *string
	PageCount       *int
	Price           decimal.Decimal
	TotalCopies     int
	AvailableCopies int
}

// UpdateBookInput holds optional changes; nil fields are left untouched.
type UpdateBookInput struct {
	ISBN            *string
	Title           *string
	Author          *string
	Publisher       *string
	PublicationYear *int
	Genre           *string
	Description     *string
	Location        *string
	Language        *string
	PageCount       *int
	Price           *decimal.Decimal
	TotalCopies     *int
	AvailableCopies *int
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type service struct {
	repo *Repository
	tx   txRunner
}

// NewService builds the catalog service.
func NewService(repo *Repository, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	return &service{repo: repo, tx: tx}, nil
}

func (s *service) Create(ctx context.Context, input CreateBookInput) (*BookDTO, error) {
	book := &models.Book{
		ISBN:            strings.TrimSpace(input.ISBN),
		Title:           strings.TrimSpace(input.Title),
		Author:          strings.TrimSpace(input.Author),
		Publisher:       input.Publisher,
		PublicationYear: input.PublicationYear,
		Genre:           input.Genre,
		Description:     input.Description,
		Location:        input.Location,
		Language:        input.Language,
		PageCount:       input.PageCount,
		Price:           input.Price,
		TotalCopies:     input.TotalCopies,
		AvailableCopies: input.AvailableCopies,
	}
	if book.TotalCopies <= 0 {
		book.TotalCopies = 1
	}
	if book.AvailableCopies <= 0 {
		book.AvailableCopies = book.TotalCopies
	}
	if err := validateBook(book); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, book); err != nil {
		return nil, writeError(err, "create book")
	}
	dto := NewBookDTO(*book)
	return &dto, nil
}

// Update edits a book on its locked row. Copy counters are only written when
// the input names them. A new total shifts availableCopies by the same delta
// so copies on loan stay accounted for.
func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdateBookInput) (*BookDTO, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "book id is required")
	}

	var updated models.Book
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		book, err := repo.LockByID(ctx, id)
		if err != nil {
			return lookupError(err)
		}
		onLoan := book.OnLoan()

		applyDetails(book, input)
		countsChanged := false
		if input.TotalCopies != nil {
			book.AvailableCopies += *input.TotalCopies - book.TotalCopies
			book.TotalCopies = *input.TotalCopies
			countsChanged = true
		}
		if input.AvailableCopies != nil {
			book.AvailableCopies = *input.AvailableCopies
			countsChanged = true
		}

		if countsChanged && book.TotalCopies < onLoan {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "totalCopies is below the copies on loan").
				WithDetails(map[string]any{"book_id": book.ID, "on_loan": onLoan, "totalCopies": book.TotalCopies})
		}
		if err := validateBook(book); err != nil {
			return err
		}
		if countsChanged && book.AvailableCopies > book.TotalCopies-onLoan {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "availableCopies exceeds the copies on the shelf").
				WithDetails(map[string]any{"book_id": book.ID, "on_loan": onLoan, "max": book.TotalCopies - onLoan})
		}

		if err := repo.UpdateDetails(ctx, book); err != nil {
			return writeError(err, "update book")
		}
		if countsChanged {
			if err := repo.UpdateCounts(ctx, book); err != nil {
				return writeError(err, "update book copies")
			}
		}
		updated = *book
		return nil
	})
	if err != nil {
		return nil, err
	}
	dto := NewBookDTO(updated)
	return &dto, nil
}

func applyDetails(book *models.Book, input UpdateBookInput) {
	if input.ISBN != nil {
		book.ISBN = strings.TrimSpace(*input.ISBN)
	}
	if input.Title != nil {
		book.Title = strings.TrimSpace(*input.Title)
	}
	if input.Author != nil {
		book.Author = strings.TrimSpace(*input.Author)
	}
	if input.Publisher != nil {
		book.Publisher = input.Publisher
	}
	if input.PublicationYear != nil {
		book.PublicationYear = input.PublicationYear
	}
	if input.Genre != nil {
		book.Genre = input.Genre
	}
	if input.Description != nil {
		book.Description = input.Description
	}
	if input.Location != nil {
		book.Location = input.Location
	}
	if input.Language != nil {
		book.Language = input.Language
	}
	if input.PageCount != nil {
		book.PageCount = input.PageCount
	}
	if input.Price != nil {
		book.Price = *input.Price
	}
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	book, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if book.AvailableCopies < book.TotalCopies {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "book has copies on loan").
			WithDetails(map[string]any{"book_id": book.ID, "on_loan": book.OnLoan()})
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if db.IsNotFound(err) {
			return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "book not found")
		}
		if db.IsForeignKeyViolation(err) {
			return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "book has loan history")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete book")
	}
	return nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*BookDTO, error) {
	book, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	dto := NewBookDTO(*book)
	return &dto, nil
}

func (s *service) Search(ctx context.Context, params SearchParams) (*BookListResult, error) {
	if _, err := pagination.ParseCursor(params.Pagination.Cursor); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, next, err := s.repo.Search(ctx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "search books")
	}
	return &BookListResult{Books: newBookDTOs(rows), NextCursor: next}, nil
}

func (s *service) Popular(ctx context.Context, limit int) ([]PopularBookDTO, error) {
	rows, err := s.repo.Popular(ctx, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list popular books")
	}
	out := make([]PopularBookDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, PopularBookDTO{BookDTO: NewBookDTO(row.Book), LoanCount: row.LoanCount})
	}
	return out, nil
}

func (s *service) Recent(ctx context.Context, limit int) ([]BookDTO, error) {
	rows, err := s.repo.Recent(ctx, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list recent books")
	}
	return newBookDTOs(rows), nil
}

func (s *service) load(ctx context.Context, id uuid.UUID) (*models.Book, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "book id is required")
	}
	book, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err)
	}
	return book, nil
}

func lookupError(err error) error {
	if db.IsNotFound(err) {
		return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "book not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load book")
}

func validateBook(book *models.Book) error {
	var missing []string
	if book.Title == "" {
		missing = append(missing, "title")
	}
	if book.Author == "" {
		missing = append(missing, "author")
	}
	if book.ISBN == "" {
		missing = append(missing, "isbn")
	}
	if len(missing) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "missing required fields").
			WithDetails(map[string]any{"fields": missing})
	}
	if book.TotalCopies < 1 {
		return pkgerrors.New(pkgerrors.CodeValidation, "totalCopies must be at least 1")
	}
	if book.AvailableCopies < 0 || book.AvailableCopies > book.TotalCopies {
		return pkgerrors.New(pkgerrors.CodeValidation, "availableCopies must be between 0 and totalCopies").
			WithDetails(map[string]any{"availableCopies": book.AvailableCopies, "totalCopies": book.TotalCopies})
	}
	if book.Price.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "price must not be negative")
	}
	return nil
}

func writeError(err error, action string) error {
	if db.IsUniqueViolation(err, isbnConstraint) {
		return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "isbn already catalogued")
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, action)
}
