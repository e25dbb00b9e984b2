package subscriptions

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"

	"github.com/hearthstay/hearthstay-backend/pkg/db/models"
	"github.com/hearthstay/hearthstay-backend/pkg/enums"
	pkgerrors "github.com/hearthstay/hearthstay-backend/pkg/errors"
)

// MapStripeStatus collapses Stripe's subscription lifecycle onto the
// three states the platform tracks. past_due stays active: dunning gets a
// grace window before host perks are pulled.
func MapStripeStatus(status stripe.SubscriptionStatus, cancelAtPeriodEnd bool) enums.SubscriptionStatus {
	switch status {
	case stripe.SubscriptionStatusActive,
		stripe.SubscriptionStatusTrialing,
		stripe.SubscriptionStatusPastDue:
		if cancelAtPeriodEnd {
			return enums.SubscriptionStatusCancelling
		}
		return enums.SubscriptionStatusActive
	default:
		return enums.SubscriptionStatusInactive
	}
}

// BuildFromStripe converts a Stripe subscription into the local model.
func BuildFromStripe(sub *stripe.Subscription, userID uuid.UUID, planID *uuid.UUID) (*models.UserSubscription, error) {
	if sub == nil || strings.TrimSpace(sub.ID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "stripe subscription missing id")
	}
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}

	record := &models.UserSubscription{
		UserID:               userID,
		PlanID:               planID,
		StripeSubscriptionID: sub.ID,
		Status:               MapStripeStatus(sub.Status, sub.CancelAtPeriodEnd),
		CancelAtPeriodEnd:    sub.CancelAtPeriodEnd,
	}
	if priceID := priceIDFrom(sub); priceID != "" {
		record.StripePriceID = &priceID
	}
	if periodEnd := PeriodEndFrom(sub); periodEnd != nil {
		record.CurrentPeriodEnd = periodEnd
	}
	if sub.EndedAt > 0 {
		ended := time.Unix(sub.EndedAt, 0).UTC()
		record.EndDate = &ended
	}
	return record, nil
}

// ApplyStripeState refreshes a stored subscription from the processor copy.
func ApplyStripeState(record *models.UserSubscription, sub *stripe.Subscription) {
	if record == nil || sub == nil {
		return
	}
	record.Status = MapStripeStatus(sub.Status, sub.CancelAtPeriodEnd)
	record.CancelAtPeriodEnd = sub.CancelAtPeriodEnd
	if priceID := priceIDFrom(sub); priceID != "" {
		record.StripePriceID = &priceID
	}
	if periodEnd := PeriodEndFrom(sub); periodEnd != nil {
		record.CurrentPeriodEnd = periodEnd
	}
	if sub.EndedAt > 0 {
		ended := time.Unix(sub.EndedAt, 0).UTC()
		record.EndDate = &ended
	}
}

// PeriodEndFrom pulls the current period end off the first subscription item.
func PeriodEndFrom(sub *stripe.Subscription) *time.Time {
	if sub == nil || sub.Items == nil || len(sub.Items.Data) == 0 {
		return nil
	}
	item := sub.Items.Data[0]
	if item == nil || item.CurrentPeriodEnd <= 0 {
		return nil
	}
	end := time.Unix(item.CurrentPeriodEnd, 0).UTC()
	return &end
}

func priceIDFrom(sub *stripe.Subscription) string {
	if sub == nil || sub.Items == nil || len(sub.Items.Data) == 0 {
		return ""
	}
	item := sub.Items.Data[0]
	if item == nil || item.Price == nil {
		return ""
	}
	return item.Price.ID
}

// UserIDFromMetadata extracts the platform user id stamped at create time.
func UserIDFromMetadata(sub *stripe.Subscription) (uuid.UUID, bool) {
	if sub == nil {
		return uuid.Nil, false
	}
	raw, ok := sub.Metadata["user_id"]
	if !ok {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil || id == uuid.Nil {
		return uuid.Nil, false
	}
	return id, true
}
