package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/librarydesk-backend/api/responses"
	"github.com/angelmondragon/librarydesk-backend/api/validators"
	"github.com/angelmondragon/librarydesk-backend/internal/cart"
	"github.com/angelmondragon/librarydesk-backend/internal/checkout"
	pkgerrors "github.com/angelmondragon/librarydesk-backend/pkg/errors"
	"github.com/angelmondragon/librarydesk-backend/pkg/logger"
)

type addCartItemRequest struct {
	BookID uuid.UUID `json:"bookId" validate:"required"`
}

type addCartGroupRequest struct {
	Name    string      `json:"name" validate:"required"`
	BookIDs []uuid.UUID `json:"bookIds" validate:"required,min=1,dive,required"`
}

type previewRequest struct {
	MemberID uuid.UUID `json:"memberId"`
}

type checkoutRequest struct {
	MemberID  uuid.UUID `json:"memberId"`
	Confirmed bool      `json:"confirmed"`
}

func CartCreate(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}
		view, err := svc.Create(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, view)
	}
}

func CartGet(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}
		cartID, err := validators.ParseUUIDParam(r, "cartId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		view, err := svc.Get(r.Context(), cartID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

func CartDelete(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}
		cartID, err := validators.ParseUUIDParam(r, "cartId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Delete(r.Context(), cartID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func CartAddItem(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}
		cartID, err := validators.ParseUUIDParam(r, "cartId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload addCartItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		view, err := svc.AddItem(r.Context(), cartID, payload.BookID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

func CartAddGroup(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}
		cartID, err := validators.ParseUUIDParam(r, "cartId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload addCartGroupRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		view, err := svc.AddGroup(r.Context(), cartID, validators.SanitizeString(payload.Name, 120), payload.BookIDs)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

// CartRemoveNode removes the top-level node at {index}. Groups need ?confirmed=true.
func CartRemoveNode(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}
		cartID, err := validators.ParseUUIDParam(r, "cartId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		index, err := validators.ParseIntParam(r, "index")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		confirmed, err := validators.ParseQueryBool(r, "confirmed", false)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		view, err := svc.RemoveNode(r.Context(), cartID, index, confirmed)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

func CartClear(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}
		cartID, err := validators.ParseUUIDParam(r, "cartId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		view, err := svc.Clear(r.Context(), cartID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

// CartPreview returns the confirmation summary for a member without writing anything.
func CartPreview(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}
		cartID, err := validators.ParseUUIDParam(r, "cartId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload previewRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		summary, err := svc.Preview(r.Context(), cartID, payload.MemberID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, summary)
	}
}

func CartCheckout(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}
		cartID, err := validators.ParseUUIDParam(r, "cartId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload checkoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithCartID(ctx, cartID.String())
			ctx = logg.WithMemberID(ctx, payload.MemberID.String())
		}
		receipt, err := svc.Execute(ctx, cartID, payload.MemberID, checkout.Input{Confirmed: payload.Confirmed})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if logg != nil {
			logg.Info(logg.WithField(ctx, "loans", receipt.ItemCount), "checkout completed")
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, receipt)
	}
}
