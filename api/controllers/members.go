package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/angelmondragon/librarydesk-backend/api/responses"
	"github.com/angelmondragon/librarydesk-backend/api/validators"
	"github.com/angelmondragon/librarydesk-backend/internal/loans"
	"github.com/angelmondragon/librarydesk-backend/internal/members"
	"github.com/angelmondragon/librarydesk-backend/internal/returns"
	"github.com/angelmondragon/librarydesk-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/librarydesk-backend/pkg/errors"
	"github.com/angelmondragon/librarydesk-backend/pkg/logger"
	"github.com/angelmondragon/librarydesk-backend/pkg/pagination"
)

type createMemberRequest struct {
	Name       string     `json:"name" validate:"required"`
	Email      string     `json:"email" validate:"required,email"`
	Phone      string     `json:"phone" validate:"required"`
	Address    *string    `json:"address,omitempty"`
	Role       string     `json:"role,omitempty"`
	Status     string     `json:"status,omitempty"`
	ExpiryDate *time.Time `json:"expiryDate,omitempty"`
}

type updateMemberRequest struct {
	Name       *string    `json:"name,omitempty"`
	Email      *string    `json:"email,omitempty" validate:"omitempty,email"`
	Phone      *string    `json:"phone,omitempty"`
	Address    *string    `json:"address,omitempty"`
	Role       *string    `json:"role,omitempty"`
	Status     *string    `json:"status,omitempty"`
	ExpiryDate *time.Time `json:"expiryDate,omitempty"`
}

// MemberList searches members. Query params: q, field, status, limit, cursor.
func MemberList(svc members.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "member service unavailable"))
			return
		}

		query := r.URL.Query()
		field, err := members.ParseSearchField(query.Get("field"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid search field"))
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		params := members.SearchParams{
			Query:      validators.SanitizeString(query.Get("q"), maxSearchLength),
			Field:      field,
			Pagination: pagination.Params{Limit: limit, Cursor: query.Get("cursor")},
		}
		if raw := strings.TrimSpace(query.Get("status")); raw != "" {
			status, err := enums.ParseMemberStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status"))
				return
			}
			params.Status = &status
		}

		result, err := svc.Search(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func MemberCreate(svc members.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "member service unavailable"))
			return
		}

		var payload createMemberRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		member, err := svc.Create(r.Context(), members.CreateMemberInput{
			Name:       validators.SanitizeString(payload.Name, 255),
			Email:      validators.SanitizeString(payload.Email, 255),
			Phone:      validators.SanitizeString(payload.Phone, 32),
			Address:    payload.Address,
			Role:       payload.Role,
			Status:     payload.Status,
			ExpiryDate: payload.ExpiryDate,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, member)
	}
}

func MemberGet(svc members.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "member service unavailable"))
			return
		}
		id, err := validators.ParseUUIDParam(r, "memberId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		member, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, member)
	}
}

func MemberUpdate(svc members.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "member service unavailable"))
			return
		}
		id, err := validators.ParseUUIDParam(r, "memberId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateMemberRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		member, err := svc.Update(r.Context(), id, members.UpdateMemberInput{
			Name:       payload.Name,
			Email:      payload.Email,
			Phone:      payload.Phone,
			Address:    payload.Address,
			Role:       payload.Role,
			Status:     payload.Status,
			ExpiryDate: payload.ExpiryDate,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, member)
	}
}

func MemberDelete(svc members.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "member service unavailable"))
			return
		}
		id, err := validators.ParseUUIDParam(r, "memberId")
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

// MemberLoans lists a member's loans; ?open=true limits to loans not yet returned.
func MemberLoans(svc loans.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "loan service unavailable"))
			return
		}
		id, err := validators.ParseUUIDParam(r, "memberId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		openOnly, err := validators.ParseQueryBool(r, "open", false)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		out, err := svc.ListForMember(r.Context(), id, openOnly)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, out)
	}
}

func MemberReturnAll(svc returns.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "return service unavailable"))
			return
		}
		id, err := validators.ParseUUIDParam(r, "memberId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithMemberID(ctx, id.String())
		}
		result, err := svc.ReturnAll(ctx, id)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if logg != nil {
			logg.Info(logg.WithField(ctx, "returned", result.Count), "loans returned")
		}
		responses.WriteSuccess(w, result)
	}
}

func MemberOverdue(svc members.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "member service unavailable"))
			return
		}
		out, err := svc.ListOverdue(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, out)
	}
}
