package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/hearthstay/hearthstay-backend/pkg/enums"
)

// SubscriptionPlan maps a Stripe price to a sellable premium-host plan.
type SubscriptionPlan struct {
	ID            uuid.UUID          `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Name          string             `gorm:"column:name;not null"`
	StripePriceID string             `gorm:"column:stripe_price_id;not null;unique"`
	Interval      enums.PlanInterval `gorm:"column:interval;type:plan_interval;not null;default:'month'"`
	AmountCents   int64              `gorm:"column:amount_cents;not null"`
	Currency      string             `gorm:"column:currency;not null;default:'usd'"`
	IsActive      bool               `gorm:"column:is_active;not null;default:true"`
	CreatedAt     time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}
