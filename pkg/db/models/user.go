package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/hearthstay/hearthstay-backend/pkg/enums"
)

// User represents the canonical identity entity. StripeCustomerID caches the
// processor-side customer so repeat checkouts skip customer creation.
type User struct {
	ID               uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Email            string         `gorm:"type:text;not null;uniqueIndex"`
	FullName         string         `gorm:"column:full_name;not null"`
	Phone            *string        `gorm:"column:phone"`
	Role             enums.UserRole `gorm:"column:role;type:user_role;not null;default:'guest'"`
	IsActive         bool           `gorm:"column:is_active;not null;default:true"`
	StripeCustomerID *string        `gorm:"column:stripe_customer_id;uniqueIndex"`
	CreatedAt        time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}
