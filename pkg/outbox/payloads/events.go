package payloads

import (
	"time"

	"github.com/google/uuid"
)

// ReceiptRequestedEvent asks the mail worker to send a booking receipt.
type ReceiptRequestedEvent struct {
	BookingID       uuid.UUID `json:"booking_id"`
	PropertyID      uuid.UUID `json:"property_id"`
	GuestID         uuid.UUID `json:"guest_id"`
	PaymentIntentID string    `json:"payment_intent_id"`
	AmountCents     int64     `json:"amount_cents"`
	Currency        string    `json:"currency"`
	ReceiptURL      string    `json:"receipt_url,omitempty"`
	ConfirmedAt     time.Time `json:"confirmed_at"`
}

// BookingCancelledEvent is emitted when the expiry sweep reaps a stale booking.
type BookingCancelledEvent struct {
	BookingID   uuid.UUID `json:"booking_id"`
	PropertyID  uuid.UUID `json:"property_id"`
	GuestID     uuid.UUID `json:"guest_id"`
	CancelledAt time.Time `json:"cancelled_at"`
	Reason      string    `json:"reason,omitempty"`
}

// PaymentFailedEvent records an asynchronous payment failure.
type PaymentFailedEvent struct {
	BookingID       *uuid.UUID `json:"booking_id,omitempty"`
	PaymentIntentID string     `json:"payment_intent_id"`
	FailureReason   string     `json:"failure_reason,omitempty"`
	FailedAt        time.Time  `json:"failed_at"`
}

// SubscriptionStoppedEvent is emitted when a subscription leaves service.
type SubscriptionStoppedEvent struct {
	SubscriptionID       uuid.UUID  `json:"subscription_id"`
	UserID               uuid.UUID  `json:"user_id"`
	StripeSubscriptionID string     `json:"stripe_subscription_id"`
	EndedAt              *time.Time `json:"ended_at,omitempty"`
}

// SubscriptionRenewedEvent is emitted when an invoice renews a subscription.
type SubscriptionRenewedEvent struct {
	SubscriptionID       uuid.UUID  `json:"subscription_id"`
	UserID               uuid.UUID  `json:"user_id"`
	StripeSubscriptionID string     `json:"stripe_subscription_id"`
	CurrentPeriodEnd     *time.Time `json:"current_period_end,omitempty"`
}
