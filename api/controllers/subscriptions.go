package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hearthstay/hearthstay-backend/api/responses"
	"github.com/hearthstay/hearthstay-backend/api/validators"
	subsvc "github.com/hearthstay/hearthstay-backend/internal/subscriptions"
	"github.com/hearthstay/hearthstay-backend/pkg/db/models"
	pkgerrors "github.com/hearthstay/hearthstay-backend/pkg/errors"
	"github.com/hearthstay/hearthstay-backend/pkg/logger"
)

type subscribeRequest struct {
	PlanID          *uuid.UUID `json:"plan_id,omitempty" validate:"omitempty,uuid4"`
	PaymentMethodID string     `json:"payment_method_id,omitempty"`
}

type subscriptionResponse struct {
	ID                   uuid.UUID  `json:"id"`
	StripeSubscriptionID string     `json:"stripe_subscription_id"`
	PlanID               *uuid.UUID `json:"plan_id,omitempty"`
	Status               string     `json:"status"`
	CurrentPeriodEnd     *time.Time `json:"current_period_end,omitempty"`
	CancelAtPeriodEnd    bool       `json:"cancel_at_period_end"`
	EndDate              *time.Time `json:"end_date,omitempty"`
}

type planResponse struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Interval    string    `json:"interval"`
	AmountCents int64     `json:"amount_cents"`
	Currency    string    `json:"currency"`
}

type planListResponse struct {
	Plans []planResponse `json:"plans"`
}

// Subscribe enrolls the authenticated host in a premium plan.
func Subscribe(svc subsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "subscription service unavailable"))
			return
		}

		userID, err := requireUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload subscribeRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := subsvc.SubscribeInput{
			PaymentMethodID: strings.TrimSpace(payload.PaymentMethodID),
		}
		if payload.PlanID != nil {
			input.PlanID = *payload.PlanID
		}

		sub, created, err := svc.Subscribe(r.Context(), userID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		resp := newSubscriptionResponse(sub)
		if created {
			responses.WriteSuccessStatus(w, http.StatusCreated, resp)
			return
		}
		responses.WriteSuccess(w, resp)
	}
}

// CancelSubscription schedules the active subscription to end at period close.
func CancelSubscription(svc subsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "subscription service unavailable"))
			return
		}

		userID, err := requireUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		sub, err := svc.CancelAtPeriodEnd(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newSubscriptionResponse(sub))
	}
}

// GetSubscription returns the caller's active subscription, if any.
func GetSubscription(svc subsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "subscription service unavailable"))
			return
		}

		userID, err := requireUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		sub, err := svc.GetActive(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if sub == nil {
			responses.WriteSuccess(w, nil)
			return
		}
		responses.WriteSuccess(w, newSubscriptionResponse(sub))
	}
}

// ListPlans returns the active subscription plans.
func ListPlans(svc subsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "subscription service unavailable"))
			return
		}

		plans, err := svc.ListPlans(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		resp := planListResponse{Plans: make([]planResponse, 0, len(plans))}
		for _, plan := range plans {
			resp.Plans = append(resp.Plans, planResponse{
				ID:          plan.ID,
				Name:        plan.Name,
				Interval:    string(plan.Interval),
				AmountCents: plan.AmountCents,
				Currency:    plan.Currency,
			})
		}
		responses.WriteSuccess(w, resp)
	}
}

func newSubscriptionResponse(sub *models.UserSubscription) *subscriptionResponse {
	if sub == nil {
		return nil
	}
	return &subscriptionResponse{
		ID:                   sub.ID,
		StripeSubscriptionID: sub.StripeSubscriptionID,
		PlanID:               sub.PlanID,
		Status:               string(sub.Status),
		CurrentPeriodEnd:     sub.CurrentPeriodEnd,
		CancelAtPeriodEnd:    sub.CancelAtPeriodEnd,
		EndDate:              sub.EndDate,
	}
}
