package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"
	"gorm.io/gorm"

	"github.com/hearthstay/hearthstay-backend/internal/bookings"
	"github.com/hearthstay/hearthstay-backend/internal/customers"
	"github.com/hearthstay/hearthstay-backend/pkg/db/models"
	"github.com/hearthstay/hearthstay-backend/pkg/enums"
	pkgerrors "github.com/hearthstay/hearthstay-backend/pkg/errors"
	"github.com/hearthstay/hearthstay-backend/pkg/logger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type propertyLoader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Property, error)
}

// Service executes the booking-and-pay orchestration.
type Service interface {
	BookStay(ctx context.Context, guestID uuid.UUID, input BookStayInput) (*BookStayResult, error)
}

// BookStayInput captures a guest's booking request.
type BookStayInput struct {
	PropertyID uuid.UUID
	CheckIn    time.Time
	CheckOut   time.Time
	Guests     int
	// PaymentMethodID selects a saved card for an off-session charge. When
	// empty the intent is returned unconfirmed for on-session collection.
	PaymentMethodID string
	Billing         BillingAddress
}

// BillingAddress is stamped on the booking row. Omitted fields fall back to
// placeholder values; the columns never carry null.
type BillingAddress struct {
	Line1      string
	City       string
	PostalCode string
	Country    string
}

const (
	billingPlaceholder        = "unknown"
	billingCountryPlaceholder = "ZZ"
)

func (b BillingAddress) withDefaults() BillingAddress {
	out := BillingAddress{
		Line1:      strings.TrimSpace(b.Line1),
		City:       strings.TrimSpace(b.City),
		PostalCode: strings.TrimSpace(b.PostalCode),
		Country:    strings.ToUpper(strings.TrimSpace(b.Country)),
	}
	if out.Line1 == "" {
		out.Line1 = billingPlaceholder
	}
	if out.City == "" {
		out.City = billingPlaceholder
	}
	if out.PostalCode == "" {
		out.PostalCode = billingPlaceholder
	}
	if out.Country == "" {
		out.Country = billingCountryPlaceholder
	}
	return out
}

// BookStayResult reports the pending booking plus what the client must do next.
type BookStayResult struct {
	Booking         *models.Booking
	Quote           *Quote
	PaymentIntentID string
	// ClientSecret is set for the new-card path so the frontend can confirm.
	ClientSecret   string
	IntentStatus   stripe.PaymentIntentStatus
	RequiresAction bool
}

// ServiceParams groups dependencies for the checkout service.
type ServiceParams struct {
	TransactionRunner txRunner
	BookingsRepo      bookings.Repository
	Properties        propertyLoader
	Customers         customers.Resolver
	StripeClient      StripePaymentIntentClient
	Logger            *logger.Logger
}

type service struct {
	tx        txRunner
	bookings  bookings.Repository
	props     propertyLoader
	customers customers.Resolver
	stripe    StripePaymentIntentClient
	logg      *logger.Logger
}

// NewService builds the checkout service.
func NewService(params ServiceParams) (Service, error) {
	if params.TransactionRunner == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if params.BookingsRepo == nil {
		return nil, fmt.Errorf("bookings repository required")
	}
	if params.Properties == nil {
		return nil, fmt.Errorf("property loader required")
	}
	if params.Customers == nil {
		return nil, fmt.Errorf("customer resolver required")
	}
	if params.StripeClient == nil {
		return nil, fmt.Errorf("stripe client required")
	}
	return &service{
		tx:        params.TransactionRunner,
		bookings:  params.BookingsRepo,
		props:     params.Properties,
		customers: params.Customers,
		stripe:    params.StripeClient,
		logg:      params.Logger,
	}, nil
}

// BookStay inserts a pending booking, resolves the guest's processor
// customer, and opens a payment intent carrying the booking id. The booking
// is only confirmed later, by the webhook reconciler; a declined saved card
// leaves the row pending, and the expiry sweep reaps it if the guest never
// completes payment.
func (s *service) BookStay(ctx context.Context, guestID uuid.UUID, input BookStayInput) (*BookStayResult, error) {
	if guestID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "guest id is required")
	}
	if input.PropertyID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "property id is required")
	}
	if input.Guests < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "guests must be at least 1")
	}

	property, err := s.props.GetByID(ctx, input.PropertyID)
	if err != nil {
		return nil, err
	}
	if !property.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "property is not bookable")
	}
	if input.Guests > property.MaxGuests {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("property sleeps at most %d guests", property.MaxGuests))
	}

	quote, err := PriceStay(property, input.CheckIn, input.CheckOut)
	if err != nil {
		return nil, err
	}

	billing := input.Billing.withDefaults()
	booking := &models.Booking{
		PropertyID:        property.ID,
		GuestID:           guestID,
		CheckIn:           input.CheckIn.UTC(),
		CheckOut:          input.CheckOut.UTC(),
		Guests:            input.Guests,
		AmountCents:       quote.TotalCents,
		PlatformFeeCents:  quote.PlatformFeeCents,
		Currency:          quote.Currency,
		BillingLine1:      billing.Line1,
		BillingCity:       billing.City,
		BillingPostalCode: billing.PostalCode,
		BillingCountry:    billing.Country,
		Status:            enums.BookingStatusPending,
	}
	if err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.bookings.WithTx(tx).Create(ctx, booking)
	}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create booking")
	}

	ctx = s.logCtx(ctx, booking.ID)

	resolved, err := s.customers.Resolve(ctx, guestID)
	if err != nil {
		// No intent exists yet; the pending row is reaped by the expiry sweep.
		return nil, err
	}

	intent, err := s.stripe.Create(ctx, s.buildIntentParams(booking, quote, resolved.CustomerID, input.PaymentMethodID))
	if err != nil {
		return nil, s.handleIntentError(ctx, booking.ID, err)
	}
	if intent == nil || strings.TrimSpace(intent.ID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "stripe payment intent missing")
	}

	if err := s.bookings.SetPaymentIntentID(ctx, booking.ID, intent.ID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist payment intent id")
	}
	booking.StripePaymentIntentID = &intent.ID

	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"payment_intent_id": intent.ID,
			"intent_status":     string(intent.Status),
			"amount_cents":      quote.TotalCents,
		})
		s.logg.Info(logCtx, "booking intent opened")
	}

	return &BookStayResult{
		Booking:         booking,
		Quote:           quote,
		PaymentIntentID: intent.ID,
		ClientSecret:    intent.ClientSecret,
		IntentStatus:    intent.Status,
		RequiresAction:  intent.Status == stripe.PaymentIntentStatusRequiresAction,
	}, nil
}

func (s *service) buildIntentParams(booking *models.Booking, quote *Quote, customerID, paymentMethodID string) *stripe.PaymentIntentParams {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(quote.TotalCents),
		Currency: stripe.String(quote.Currency),
		Customer: stripe.String(customerID),
	}
	params.AddMetadata("booking_id", booking.ID.String())
	params.AddMetadata("property_id", booking.PropertyID.String())
	params.AddMetadata("guest_id", booking.GuestID.String())

	if pm := strings.TrimSpace(paymentMethodID); pm != "" {
		params.PaymentMethod = stripe.String(pm)
		params.Confirm = stripe.Bool(true)
		params.OffSession = stripe.Bool(true)
	} else {
		params.AutomaticPaymentMethods = &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		}
	}
	return params
}

// handleIntentError maps a declined saved card to a client-facing error. The
// pending row stays untouched: a retry opens a fresh booking, and abandoned
// rows belong to the expiry sweep.
func (s *service) handleIntentError(ctx context.Context, bookingID uuid.UUID, err error) error {
	var stripeErr *stripe.Error
	if !errors.As(err, &stripeErr) || stripeErr.Type != stripe.ErrorTypeCard {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payment intent")
	}

	details := map[string]any{"booking_id": bookingID.String()}
	if stripeErr.DeclineCode != "" {
		details["decline_code"] = string(stripeErr.DeclineCode)
	}
	return pkgerrors.Wrap(pkgerrors.CodePaymentDeclined, err, "card was declined").WithDetails(details)
}

func (s *service) logCtx(ctx context.Context, bookingID uuid.UUID) context.Context {
	if s.logg == nil {
		return ctx
	}
	return s.logg.WithBookingID(ctx, bookingID.String())
}
