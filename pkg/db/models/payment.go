package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/hearthstay/hearthstay-backend/pkg/enums"
)

// Payment is the append-mostly ledger of processor payment attempts. The
// unique stripe_payment_intent_id makes webhook replays idempotent upserts.
type Payment struct {
	ID                    uuid.UUID           `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	UserID                *uuid.UUID          `gorm:"column:user_id;type:uuid;index"`
	BookingID             *uuid.UUID          `gorm:"column:booking_id;type:uuid;index"`
	SubscriptionID        *uuid.UUID          `gorm:"column:subscription_id;type:uuid;index"`
	Kind                  enums.PaymentKind   `gorm:"column:kind;type:payment_kind;not null;default:'booking'"`
	StripePaymentIntentID string              `gorm:"column:stripe_payment_intent_id;not null;unique"`
	StripeChargeID        *string             `gorm:"column:stripe_charge_id"`
	AmountCents           int64               `gorm:"column:amount_cents;not null"`
	Currency              string              `gorm:"column:currency;not null;default:'usd'"`
	Status                enums.PaymentStatus `gorm:"column:status;type:payment_status;not null;default:'pending'"`
	FailureReason         *string             `gorm:"column:failure_reason"`
	ReceiptURL            *string             `gorm:"column:receipt_url"`
	Metadata              json.RawMessage     `gorm:"column:metadata;type:jsonb"`
	CreatedAt             time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt             time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
