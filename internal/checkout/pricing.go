package checkout

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/hearthstay/hearthstay-backend/pkg/db/models"
	pkgerrors "github.com/hearthstay/hearthstay-backend/pkg/errors"
)

// platformFeeRate is the share of the stay total the platform keeps. It is
// carved out of the total, not added on top of what the guest pays.
var platformFeeRate = decimal.NewFromFloat(0.12)

// Quote is the priced stay a guest is about to pay for.
type Quote struct {
	Nights               int
	NightlySubtotalCents int64
	CleaningFeeCents     int64
	TotalCents           int64
	PlatformFeeCents     int64
	Currency             string
}

// PriceStay computes the charge amount for a stay. All arithmetic runs on
// decimals so a future per-night discount or tax line cannot introduce float
// drift into the amount sent to the processor.
func PriceStay(property *models.Property, checkIn, checkOut time.Time) (*Quote, error) {
	if property == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "property is required")
	}
	in := checkIn.UTC().Truncate(24 * time.Hour)
	out := checkOut.UTC().Truncate(24 * time.Hour)
	nights := int(out.Sub(in).Hours() / 24)
	if nights < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "check_out must be at least one night after check_in")
	}

	nightly := decimal.NewFromInt(property.NightlyPriceCents)
	subtotal := nightly.Mul(decimal.NewFromInt(int64(nights)))
	cleaning := decimal.NewFromInt(property.CleaningFeeCents)
	total := subtotal.Add(cleaning)

	if !total.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "stay total must be greater than zero")
	}
	if !total.Equal(total.Truncate(0)) {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "stay total is not a whole cent amount")
	}

	fee := total.Mul(platformFeeRate).Round(0)

	return &Quote{
		Nights:               nights,
		NightlySubtotalCents: subtotal.IntPart(),
		CleaningFeeCents:     property.CleaningFeeCents,
		TotalCents:           total.IntPart(),
		PlatformFeeCents:     fee.IntPart(),
		Currency:             property.Currency,
	}, nil
}
