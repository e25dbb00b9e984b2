package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/hearthstay/hearthstay-backend/api/responses"
	"github.com/hearthstay/hearthstay-backend/api/validators"
	pmsvc "github.com/hearthstay/hearthstay-backend/internal/paymentmethods"
	pkgerrors "github.com/hearthstay/hearthstay-backend/pkg/errors"
	"github.com/hearthstay/hearthstay-backend/pkg/logger"
)

type attachPaymentMethodRequest struct {
	PaymentMethodID string `json:"payment_method_id" validate:"required"`
}

type paymentMethodListResponse struct {
	PaymentMethods []pmsvc.SavedCard `json:"payment_methods"`
}

// ListPaymentMethods returns the guest's saved cards.
func ListPaymentMethods(svc pmsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment method service unavailable"))
			return
		}

		userID, err := requireUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		cards, err := svc.List(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, paymentMethodListResponse{PaymentMethods: cards})
	}
}

// AttachPaymentMethod saves a card against the guest's payment profile.
func AttachPaymentMethod(svc pmsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment method service unavailable"))
			return
		}

		userID, err := requireUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload attachPaymentMethodRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		card, err := svc.Attach(r.Context(), userID, strings.TrimSpace(payload.PaymentMethodID))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, card)
	}
}

// DetachPaymentMethod removes a saved card.
func DetachPaymentMethod(svc pmsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment method service unavailable"))
			return
		}

		userID, err := requireUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		paymentMethodID := strings.TrimSpace(chi.URLParam(r, "paymentMethodId"))
		if paymentMethodID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "payment method id is required"))
			return
		}

		if err := svc.Detach(r.Context(), userID, paymentMethodID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, nil)
	}
}
