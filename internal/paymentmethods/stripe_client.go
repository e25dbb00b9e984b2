package paymentmethods

import (
	"context"

	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/paymentmethod"

	pkgstripe "github.com/hearthstay/hearthstay-backend/pkg/stripe"
)

// StripePaymentMethodClient exposes the Stripe card-on-file operations the service needs.
type StripePaymentMethodClient interface {
	List(ctx context.Context, params *stripe.PaymentMethodListParams) ([]*stripe.PaymentMethod, error)
	Attach(ctx context.Context, id string, params *stripe.PaymentMethodAttachParams) (*stripe.PaymentMethod, error)
	Detach(ctx context.Context, id string, params *stripe.PaymentMethodDetachParams) (*stripe.PaymentMethod, error)
}

type stripeClientWrapper struct{}

// NewStripeClient wraps the shared Stripe client so the service can be tested.
func NewStripeClient(api *pkgstripe.Client) StripePaymentMethodClient {
	if api == nil {
		return nil
	}
	return &stripeClientWrapper{}
}

func (w *stripeClientWrapper) List(ctx context.Context, params *stripe.PaymentMethodListParams) ([]*stripe.PaymentMethod, error) {
	if params == nil {
		params = &stripe.PaymentMethodListParams{}
	}
	params.Context = ctx

	var methods []*stripe.PaymentMethod
	iter := paymentmethod.List(params)
	for iter.Next() {
		methods = append(methods, iter.PaymentMethod())
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return methods, nil
}

func (w *stripeClientWrapper) Attach(ctx context.Context, id string, params *stripe.PaymentMethodAttachParams) (*stripe.PaymentMethod, error) {
	if params == nil {
		params = &stripe.PaymentMethodAttachParams{}
	}
	params.Context = ctx
	return paymentmethod.Attach(id, params)
}

func (w *stripeClientWrapper) Detach(ctx context.Context, id string, params *stripe.PaymentMethodDetachParams) (*stripe.PaymentMethod, error) {
	if params == nil {
		params = &stripe.PaymentMethodDetachParams{}
	}
	params.Context = ctx
	return paymentmethod.Detach(id, params)
}
