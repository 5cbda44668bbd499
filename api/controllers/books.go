package controllers

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/librarydesk-backend/api/responses"
	"github.com/angelmondragon/librarydesk-backend/api/validators"
	"github.com/angelmondragon/librarydesk-backend/internal/catalog"
	pkgerrors "github.com/angelmondragon/librarydesk-backend/pkg/errors"
	"github.com/angelmondragon/librarydesk-backend/pkg/logger"
	"github.com/angelmondragon/librarydesk-backend/pkg/pagination"
)

const (
	maxSearchLength  = 200
	defaultTopListed = 10
)

type createBookRequest struct {
	ISBN            string           `json:"isbn" validate:"required"`
	Title           string           `json:"title" validate:"required"`
	Author          string           `json:"author" validate:"required"`
	Publisher       *string          `json:"publisher,omitempty"`
	PublicationYear *int             `json:"publicationYear,omitempty" validate:"omitempty,gte=0"`
	Genre           *string          `json:"genre,omitempty"`
	Description     *string          `json:"description,omitempty"`
	Location        *string          `json:"location,omitempty"`
	Language        *string          `json:"language,omitempty"`
	PageCount       *int             `json:"pageCount,omitempty" validate:"omitempty,gte=0"`
	Price           *decimal.Decimal `json:"price,omitempty"`
	TotalCopies     int              `json:"totalCopies"`
	AvailableCopies int              `json:"availableCopies"`
}

func (r createBookRequest) toInput() catalog.CreateBookInput {
	input := catalog.CreateBookInput{
		ISBN:            validators.SanitizeString(r.ISBN, 32),
		Title:           validators.SanitizeString(r.Title, 255),
		Author:          validators.SanitizeString(r.Author, 255),
		Publisher:       r.Publisher,
		PublicationYear: r.PublicationYear,
		Genre:           r.Genre,
		Description:     r.Description,
		Location:        r.Location,
		Language:        r.Language,
		PageCount:       r.PageCount,
		TotalCopies:     r.TotalCopies,
		AvailableCopies: r.AvailableCopies,
	}
	if r.Price != nil {
		input.Price = *r.Price
	}
	return input
}

type updateBookRequest struct {
	ISBN            *string          `json:"isbn,omitempty"`
	Title           *string          `json:"title,omitempty"`
	Author          *string          `json:"author,omitempty"`
	Publisher       *string          `json:"publisher,omitempty"`
	PublicationYear *int             `json:"publicationYear,omitempty" validate:"omitempty,gte=0"`
	Genre           *string          `json:"genre,omitempty"`
	Description     *string          `json:"description,omitempty"`
	Location        *string          `json:"location,omitempty"`
	Language        *string          `json:"language,omitempty"`
	PageCount       *int             `json:"pageCount,omitempty" validate:"omitempty,gte=0"`
	Price           *decimal.Decimal `json:"price,omitempty"`
	TotalCopies     *int             `json:"totalCopies,omitempty" validate:"omitempty,gte=0"`
	AvailableCopies *int             `json:"availableCopies,omitempty" validate:"omitempty,gte=0"`
}

func (r updateBookRequest) toInput() catalog.UpdateBookInput {
	return catalog.UpdateBookInput{
		ISBN:            r.ISBN,
		Title:           r.Title,
		Author:          r.Author,
		Publisher:       r.Publisher,
		PublicationYear: r.PublicationYear,
		Genre:           r.Genre,
		Description:     r.Description,
		Location:        r.Location,
		Language:        r.Language,
		PageCount:       r.PageCount,
		Price:           r.Price,
		TotalCopies:     r.TotalCopies,
		AvailableCopies: r.AvailableCopies,
	}
}

// BookList searches the catalog. Query params: q, field, available, limit, cursor.
func BookList(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		query := r.URL.Query()
		field, err := catalog.ParseSearchField(query.Get("field"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid search field"))
			return
		}
		available, err := validators.ParseQueryBool(r, "available", false)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Search(r.Context(), catalog.SearchParams{
			Query:         validators.SanitizeString(query.Get("q"), maxSearchLength),
			Field:         field,
			AvailableOnly: available,
			Pagination:    pagination.Params{Limit: limit, Cursor: query.Get("cursor")},
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func BookCreate(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		var payload createBookRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		book, err := svc.Create(r.Context(), payload.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, book)
	}
}

func BookGet(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}
		id, err := validators.ParseUUIDParam(r, "bookId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		book, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, book)
	}
}

func BookUpdate(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}
		id, err := validators.ParseUUIDParam(r, "bookId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateBookRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		book, err := svc.Update(r.Context(), id, payload.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, book)
	}
}

func BookDelete(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}
		id, err := validators.ParseUUIDParam(r, "bookId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Delete(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// BookPopular lists the most borrowed titles.
func BookPopular(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", defaultTopListed, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		books, err := svc.Popular(r.Context(), limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, books)
	}
}

// BookRecent lists the most recently catalogued titles.
func BookRecent(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", defaultTopListed, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		books, err := svc.Recent(r.Context(), limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, books)
	}
}
