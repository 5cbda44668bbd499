package controllers

import (
	"net/http"

	"github.com/angelmondragon/librarydesk-backend/api/responses"
	"github.com/angelmondragon/librarydesk-backend/api/validators"
	"github.com/angelmondragon/librarydesk-backend/internal/loans"
	"github.com/angelmondragon/librarydesk-backend/internal/returns"
	pkgerrors "github.com/angelmondragon/librarydesk-backend/pkg/errors"
	"github.com/angelmondragon/librarydesk-backend/pkg/logger"
)

type renewLoanRequest struct {
	Days int `json:"days" validate:"omitempty,gte=1,lte=90"`
}

// LoanList returns loans borrowed in [from, to). Dates are YYYY-MM-DD or RFC3339.
func LoanList(svc loans.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "loan service unavailable"))
			return
		}
		from, err := validators.ParseQueryDate(r, "from")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		to, err := validators.ParseQueryDate(r, "to")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if from == nil || to == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "from and to are required"))
			return
		}
		out, err := svc.ListByBorrowDate(r.Context(), *from, *to)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, out)
	}
}

func LoanOverdue(svc loans.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "loan service unavailable"))
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

func LoanGet(svc loans.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "loan service unavailable"))
			return
		}
		id, err := validators.ParseUUIDParam(r, "loanId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		loan, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, loan)
	}
}

func LoanReturn(svc returns.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "return service unavailable"))
			return
		}
		id, err := validators.ParseUUIDParam(r, "loanId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithLoanID(ctx, id.String())
		}
		loan, err := svc.ReturnLoan(ctx, id)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if logg != nil {
			logg.Info(logg.WithMemberID(ctx, loan.MemberID.String()), "loan returned")
		}
		responses.WriteSuccess(w, loan)
	}
}

// LoanRenew extends a loan. An empty body renews for the configured default.
func LoanRenew(svc loans.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "loan service unavailable"))
			return
		}
		id, err := validators.ParseUUIDParam(r, "loanId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload renewLoanRequest
		if r.ContentLength != 0 {
			if err := validators.DecodeJSONBody(r, &payload); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}

		loan, err := svc.Renew(r.Context(), id, payload.Days)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, loan)
	}
}
