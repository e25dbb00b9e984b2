package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/hearthstay/hearthstay-backend/pkg/enums"
)

// Booking is a reservation attempt. Rows start out pending; the webhook
// reconciler flips them to confirmed, and only from pending.
type Booking struct {
	ID                    uuid.UUID           `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	PropertyID            uuid.UUID           `gorm:"column:property_id;type:uuid;not null;index"`
	GuestID               uuid.UUID           `gorm:"column:guest_id;type:uuid;not null;index"`
	CheckIn               time.Time           `gorm:"column:check_in;not null"`
	CheckOut              time.Time           `gorm:"column:check_out;not null"`
	Guests                int                 `gorm:"column:guests;not null;default:1"`
	AmountCents           int64               `gorm:"column:amount_cents;not null"`
	PlatformFeeCents      int64               `gorm:"column:platform_fee_cents;not null;default:0"`
	Currency              string              `gorm:"column:currency;not null;default:'usd'"`
	BillingLine1          string              `gorm:"column:billing_line1;not null;default:''"`
	BillingCity           string              `gorm:"column:billing_city;not null;default:''"`
	BillingPostalCode     string              `gorm:"column:billing_postal_code;not null;default:''"`
	BillingCountry        string              `gorm:"column:billing_country;not null;default:''"`
	Status                enums.BookingStatus `gorm:"column:status;type:booking_status;not null;default:'pending'"`
	StripePaymentIntentID *string             `gorm:"column:stripe_payment_intent_id;index"`
	ConfirmedAt           *time.Time          `gorm:"column:confirmed_at"`
	CancelledAt           *time.Time          `gorm:"column:cancelled_at"`
	CreatedAt             time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt             time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
