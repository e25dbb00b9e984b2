package models

import (
	"time"

	"github.com/google/uuid"
)

// Property is a listed rental a guest can book.
type Property struct {
	ID                uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	HostID            uuid.UUID `gorm:"column:host_id;type:uuid;not null;index"`
	Title             string    `gorm:"column:title;not null"`
	Description       *string   `gorm:"column:description"`
	City              string    `gorm:"column:city;not null"`
	Country           string    `gorm:"column:country;not null"`
	AddressLine       *string   `gorm:"column:address_line"`
	MaxGuests         int       `gorm:"column:max_guests;not null;default:2"`
	NightlyPriceCents int64     `gorm:"column:nightly_price_cents;not null"`
	CleaningFeeCents  int64     `gorm:"column:cleaning_fee_cents;not null;default:0"`
	Currency          string    `gorm:"column:currency;not null;default:'usd'"`
	IsActive          bool      `gorm:"column:is_active;not null;default:true"`
	CreatedAt         time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
