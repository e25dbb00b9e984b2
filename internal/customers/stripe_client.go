package customers

import (
	"context"

	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/customer"

	pkgstripe "github.com/hearthstay/hearthstay-backend/pkg/stripe"
)

// StripeCustomerClient exposes the subset of Stripe customer operations the resolver needs.
type StripeCustomerClient interface {
	Create(ctx context.Context, params *stripe.CustomerParams) (*stripe.Customer, error)
	Get(ctx context.Context, id string, params *stripe.CustomerParams) (*stripe.Customer, error)
}

type stripeClientWrapper struct{}

// NewStripeClient wraps the shared Stripe client so the resolver can be tested.
func NewStripeClient(api *pkgstripe.Client) StripeCustomerClient {
	if api == nil {
		return nil
	}
	return &stripeClientWrapper{}
}

func (w *stripeClientWrapper) Create(ctx context.Context, params *stripe.CustomerParams) (*stripe.Customer, error) {
	if params != nil {
		params.Context = ctx
	}
	return customer.New(params)
}

func (w *stripeClientWrapper) Get(ctx context.Context, id string, params *stripe.CustomerParams) (*stripe.Customer, error) {
	if params == nil {
		params = &stripe.CustomerParams{}
	}
	params.Context = ctx
	return customer.Get(id, params)
}
