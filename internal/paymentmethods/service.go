package paymentmethods

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"

	"github.com/hearthstay/hearthstay-backend/internal/customers"
	pkgerrors "github.com/hearthstay/hearthstay-backend/pkg/errors"
)

// Service manages the guest's saved cards. Cards live only in Stripe; the
// platform never persists card data locally.
type Service interface {
	List(ctx context.Context, userID uuid.UUID) ([]SavedCard, error)
	Attach(ctx context.Context, userID uuid.UUID, paymentMethodID string) (*SavedCard, error)
	Detach(ctx context.Context, userID uuid.UUID, paymentMethodID string) error
}

// SavedCard is the client-facing view of a vaulted card.
type SavedCard struct {
	ID       string `json:"id"`
	Brand    string `json:"brand"`
	Last4    string `json:"last4"`
	ExpMonth int64  `json:"exp_month"`
	ExpYear  int64  `json:"exp_year"`
}

// ServiceParams groups dependencies for the payment method service.
type ServiceParams struct {
	Customers    customers.Resolver
	StripeClient StripePaymentMethodClient
}

type service struct {
	customers customers.Resolver
	stripe    StripePaymentMethodClient
}

// NewService constructs a payment method service.
func NewService(params ServiceParams) (Service, error) {
	if params.Customers == nil {
		return nil, fmt.Errorf("customer resolver required")
	}
	if params.StripeClient == nil {
		return nil, fmt.Errorf("stripe client required")
	}
	return &service{
		customers: params.Customers,
		stripe:    params.StripeClient,
	}, nil
}

func (s *service) List(ctx context.Context, userID uuid.UUID) ([]SavedCard, error) {
	customerID, err := s.resolveCustomer(ctx, userID)
	if err != nil {
		return nil, err
	}

	params := &stripe.PaymentMethodListParams{
		Customer: stripe.String(customerID),
		Type:     stripe.String(string(stripe.PaymentMethodTypeCard)),
	}
	methods, err := s.stripe.List(ctx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list payment methods")
	}

	cards := make([]SavedCard, 0, len(methods))
	for _, method := range methods {
		cards = append(cards, toSavedCard(method))
	}
	return cards, nil
}

func (s *service) Attach(ctx context.Context, userID uuid.UUID, paymentMethodID string) (*SavedCard, error) {
	paymentMethodID = strings.TrimSpace(paymentMethodID)
	if paymentMethodID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment_method_id is required")
	}

	customerID, err := s.resolveCustomer(ctx, userID)
	if err != nil {
		return nil, err
	}

	method, err := s.stripe.Attach(ctx, paymentMethodID, &stripe.PaymentMethodAttachParams{
		Customer: stripe.String(customerID),
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "attach payment method")
	}
	card := toSavedCard(method)
	return &card, nil
}

func (s *service) Detach(ctx context.Context, userID uuid.UUID, paymentMethodID string) error {
	paymentMethodID = strings.TrimSpace(paymentMethodID)
	if paymentMethodID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "payment_method_id is required")
	}

	customerID, err := s.resolveCustomer(ctx, userID)
	if err != nil {
		return err
	}

	// Only detach cards that actually belong to this user's customer.
	owned, err := s.stripe.List(ctx, &stripe.PaymentMethodListParams{
		Customer: stripe.String(customerID),
		Type:     stripe.String(string(stripe.PaymentMethodTypeCard)),
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list payment methods")
	}
	found := false
	for _, method := range owned {
		if method != nil && method.ID == paymentMethodID {
			found = true
			break
		}
	}
	if !found {
		return pkgerrors.New(pkgerrors.CodeNotFound, "payment method not found")
	}

	if _, err := s.stripe.Detach(ctx, paymentMethodID, nil); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "detach payment method")
	}
	return nil
}

func (s *service) resolveCustomer(ctx context.Context, userID uuid.UUID) (string, error) {
	resolved, err := s.customers.Resolve(ctx, userID)
	if err != nil {
		return "", err
	}
	return resolved.CustomerID, nil
}

func toSavedCard(method *stripe.PaymentMethod) SavedCard {
	card := SavedCard{ID: method.ID}
	if method.Card != nil {
		card.Brand = string(method.Card.Brand)
		card.Last4 = method.Card.Last4
		card.ExpMonth = method.Card.ExpMonth
		card.ExpYear = method.Card.ExpYear
	}
	return card
}
