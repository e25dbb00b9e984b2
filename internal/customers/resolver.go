package customers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"

	"github.com/hearthstay/hearthstay-backend/pkg/db/models"
	pkgerrors "github.com/hearthstay/hearthstay-backend/pkg/errors"
	"github.com/hearthstay/hearthstay-backend/pkg/logger"
)

// Resolver guarantees a usable Stripe customer for a user, creating and
// caching one when needed.
type Resolver interface {
	Resolve(ctx context.Context, userID uuid.UUID) (Result, error)
}

// Result reports the resolved customer and how resolution went. A failed
// cache write is not fatal: the charge can proceed, the next checkout just
// pays the create-customer round trip again.
type Result struct {
	CustomerID       string
	Created          bool
	CacheWriteFailed bool
}

type userStore interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	SetStripeCustomerID(ctx context.Context, userID uuid.UUID, customerID string) error
}

// ResolverParams groups dependencies for the customer resolver.
type ResolverParams struct {
	UsersRepo    userStore
	StripeClient StripeCustomerClient
	Logger       *logger.Logger
}

type resolver struct {
	users  userStore
	stripe StripeCustomerClient
	logg   *logger.Logger
}

// NewResolver builds a customer resolver.
func NewResolver(params ResolverParams) (Resolver, error) {
	if params.UsersRepo == nil {
		return nil, fmt.Errorf("users repo required")
	}
	if params.StripeClient == nil {
		return nil, fmt.Errorf("stripe client required")
	}
	return &resolver{
		users:  params.UsersRepo,
		stripe: params.StripeClient,
		logg:   params.Logger,
	}, nil
}

func (r *resolver) Resolve(ctx context.Context, userID uuid.UUID) (Result, error) {
	if userID == uuid.Nil {
		return Result{}, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}

	user, err := r.users.FindByID(ctx, userID)
	if err != nil {
		return Result{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}
	if user == nil {
		return Result{}, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
	}

	if cached := cachedCustomerID(user); cached != "" {
		existing, err := r.stripe.Get(ctx, cached, nil)
		switch {
		case err == nil && existing != nil && !existing.Deleted:
			return Result{CustomerID: cached}, nil
		case err != nil && !isResourceMissing(err):
			return Result{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "verify stripe customer")
		}
		// Cached id points at a deleted or missing customer; fall through
		// and mint a fresh one.
		if r.logg != nil {
			logCtx := r.logg.WithFields(ctx, map[string]any{
				"user_id":           userID.String(),
				"stale_customer_id": cached,
			})
			r.logg.Warn(logCtx, "cached stripe customer is gone; recreating")
		}
	}

	created, err := r.createCustomer(ctx, user)
	if err != nil {
		return Result{}, err
	}

	result := Result{CustomerID: created, Created: true}
	if err := r.users.SetStripeCustomerID(ctx, userID, created); err != nil {
		result.CacheWriteFailed = true
		if r.logg != nil {
			logCtx := r.logg.WithUserID(ctx, userID.String())
			r.logg.Error(logCtx, "failed to cache stripe customer id", err)
		}
	}
	return result, nil
}

func (r *resolver) createCustomer(ctx context.Context, user *models.User) (string, error) {
	params := &stripe.CustomerParams{
		Email: stripe.String(strings.TrimSpace(user.Email)),
		Name:  stripe.String(strings.TrimSpace(user.FullName)),
	}
	if user.Phone != nil && strings.TrimSpace(*user.Phone) != "" {
		params.Phone = stripe.String(strings.TrimSpace(*user.Phone))
	}
	params.AddMetadata("user_id", user.ID.String())

	customer, err := r.stripe.Create(ctx, params)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create stripe customer")
	}
	if customer == nil || strings.TrimSpace(customer.ID) == "" {
		return "", pkgerrors.New(pkgerrors.CodeDependency, "stripe customer id missing")
	}
	return customer.ID, nil
}

func cachedCustomerID(user *models.User) string {
	if user.StripeCustomerID == nil {
		return ""
	}
	return strings.TrimSpace(*user.StripeCustomerID)
}

func isResourceMissing(err error) bool {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		return stripeErr.Code == stripe.ErrorCodeResourceMissing
	}
	return false
}
