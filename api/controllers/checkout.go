package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hearthstay/hearthstay-backend/api/responses"
	"github.com/hearthstay/hearthstay-backend/api/validators"
	checkoutsvc "github.com/hearthstay/hearthstay-backend/internal/checkout"
	pkgerrors "github.com/hearthstay/hearthstay-backend/pkg/errors"
	"github.com/hearthstay/hearthstay-backend/pkg/logger"
)

const stayDateLayout = "2006-01-02"

// Checkout creates a pending booking and the payment intent that settles it.
func Checkout(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		guestID, err := requireUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload checkoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.BookStay(r.Context(), guestID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, newCheckoutResponse(result))
	}
}

type checkoutRequest struct {
	PropertyID      uuid.UUID              `json:"property_id" validate:"required,uuid4"`
	CheckIn         string                 `json:"check_in" validate:"required"`
	CheckOut        string                 `json:"check_out" validate:"required"`
	Guests          int                    `json:"guests" validate:"required,min=1"`
	PaymentMethodID string                 `json:"payment_method_id,omitempty"`
	BillingAddress  *billingAddressRequest `json:"billing_address,omitempty"`
}

// billingAddressRequest is optional in full and per field; missing fields are
// filled with placeholder values downstream.
type billingAddressRequest struct {
	Line1      string `json:"line1,omitempty"`
	City       string `json:"city,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`
	Country    string `json:"country,omitempty" validate:"omitempty,iso3166_1_alpha2"`
}

type checkoutResponse struct {
	Booking         bookingResponse `json:"booking"`
	Quote           quoteResponse   `json:"quote"`
	PaymentIntentID string          `json:"payment_intent_id"`
	ClientSecret    string          `json:"client_secret,omitempty"`
	IntentStatus    string          `json:"intent_status"`
	RequiresAction  bool            `json:"requires_action"`
}

type quoteResponse struct {
	Nights               int    `json:"nights"`
	NightlySubtotalCents int64  `json:"nightly_subtotal_cents"`
	CleaningFeeCents     int64  `json:"cleaning_fee_cents"`
	TotalCents           int64  `json:"total_cents"`
	PlatformFeeCents     int64  `json:"platform_fee_cents"`
	Currency             string `json:"currency"`
}

func (req checkoutRequest) toInput() (checkoutsvc.BookStayInput, error) {
	checkIn, err := parseStayDate(req.CheckIn, "check_in")
	if err != nil {
		return checkoutsvc.BookStayInput{}, err
	}
	checkOut, err := parseStayDate(req.CheckOut, "check_out")
	if err != nil {
		return checkoutsvc.BookStayInput{}, err
	}
	input := checkoutsvc.BookStayInput{
		PropertyID:      req.PropertyID,
		CheckIn:         checkIn,
		CheckOut:        checkOut,
		Guests:          req.Guests,
		PaymentMethodID: strings.TrimSpace(req.PaymentMethodID),
	}
	if req.BillingAddress != nil {
		input.Billing = checkoutsvc.BillingAddress{
			Line1:      req.BillingAddress.Line1,
			City:       req.BillingAddress.City,
			PostalCode: req.BillingAddress.PostalCode,
			Country:    req.BillingAddress.Country,
		}
	}
	return input, nil
}

func parseStayDate(raw, field string) (time.Time, error) {
	value, err := time.Parse(stayDateLayout, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, pkgerrors.New(pkgerrors.CodeValidation, "date must use YYYY-MM-DD").WithDetails(map[string]any{"field": field})
	}
	return value.UTC(), nil
}

func newCheckoutResponse(result *checkoutsvc.BookStayResult) checkoutResponse {
	resp := checkoutResponse{
		Booking:         newBookingResponse(result.Booking),
		PaymentIntentID: result.PaymentIntentID,
		ClientSecret:    result.ClientSecret,
		IntentStatus:    string(result.IntentStatus),
		RequiresAction:  result.RequiresAction,
	}
	if result.Quote != nil {
		resp.Quote = quoteResponse{
			Nights:               result.Quote.Nights,
			NightlySubtotalCents: result.Quote.NightlySubtotalCents,
			CleaningFeeCents:     result.Quote.CleaningFeeCents,
			TotalCents:           result.Quote.TotalCents,
			PlatformFeeCents:     result.Quote.PlatformFeeCents,
			Currency:             result.Quote.Currency,
		}
	}
	return resp
}
