package subscriptions

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"
	"gorm.io/gorm"

	"github.com/hearthstay/hearthstay-backend/internal/customers"
	"github.com/hearthstay/hearthstay-backend/pkg/db/models"
	pkgerrors "github.com/hearthstay/hearthstay-backend/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service defines the premium-host subscription lifecycle surface.
type Service interface {
	Subscribe(ctx context.Context, userID uuid.UUID, input SubscribeInput) (*models.UserSubscription, bool, error)
	CancelAtPeriodEnd(ctx context.Context, userID uuid.UUID) (*models.UserSubscription, error)
	GetActive(ctx context.Context, userID uuid.UUID) (*models.UserSubscription, error)
	ListPlans(ctx context.Context) ([]models.SubscriptionPlan, error)
}

// SubscribeInput captures the data required to start a subscription.
type SubscribeInput struct {
	PlanID          uuid.UUID
	PaymentMethodID string
}

// ServiceParams groups dependencies for the subscription service.
type ServiceParams struct {
	Repo              Repository
	Customers         customers.Resolver
	StripeClient      StripeSubscriptionClient
	DefaultPriceID    string
	TransactionRunner txRunner
}

type service struct {
	repo      Repository
	customers customers.Resolver
	stripe    StripeSubscriptionClient
	priceID   string
	txRunner  txRunner
}

// NewService builds a subscription service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("subscriptions repository required")
	}
	if params.Customers == nil {
		return nil, fmt.Errorf("customer resolver required")
	}
	if params.StripeClient == nil {
		return nil, fmt.Errorf("stripe client required")
	}
	if params.TransactionRunner == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	return &service{
		repo:      params.Repo,
		customers: params.Customers,
		stripe:    params.StripeClient,
		priceID:   strings.TrimSpace(params.DefaultPriceID),
		txRunner:  params.TransactionRunner,
	}, nil
}

// Subscribe either returns the existing active subscription or creates a new one.
func (s *service) Subscribe(ctx context.Context, userID uuid.UUID, input SubscribeInput) (*models.UserSubscription, bool, error) {
	if userID == uuid.Nil {
		return nil, false, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}

	existing, err := s.repo.FindActiveByUser(ctx, userID)
	if err != nil {
		return nil, false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load active subscription")
	}
	if existing != nil {
		return existing, false, nil
	}

	plan, priceID, err := s.resolvePlan(ctx, input.PlanID)
	if err != nil {
		return nil, false, err
	}

	resolved, err := s.customers.Resolve(ctx, userID)
	if err != nil {
		return nil, false, err
	}

	params := &stripe.SubscriptionParams{
		Customer: stripe.String(resolved.CustomerID),
		Items: []*stripe.SubscriptionItemsParams{
			{Price: stripe.String(priceID)},
		},
	}
	if pm := strings.TrimSpace(input.PaymentMethodID); pm != "" {
		params.DefaultPaymentMethod = stripe.String(pm)
	}
	params.AddMetadata("user_id", userID.String())

	stripeSub, err := s.stripe.Create(ctx, params)
	if err != nil {
		return nil, false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create stripe subscription")
	}

	var planID *uuid.UUID
	if plan != nil {
		planID = &plan.ID
	}

	var (
		created *models.UserSubscription
		raced   *models.UserSubscription
	)
	err = s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		active, err := txRepo.FindActiveByUser(ctx, userID)
		if err != nil {
			return err
		}
		if active != nil {
			raced = active
			return nil
		}
		record, err := BuildFromStripe(stripeSub, userID, planID)
		if err != nil {
			return err
		}
		if err := txRepo.CreateSubscription(ctx, record); err != nil {
			return err
		}
		created = record
		return nil
	})
	if err != nil {
		return nil, false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist subscription")
	}
	if raced != nil {
		return raced, false, nil
	}
	return created, true, nil
}

// CancelAtPeriodEnd flags the subscription to stop renewing. Perks run to the
// end of the paid period; the webhook reconciler records the final state.
func (s *service) CancelAtPeriodEnd(ctx context.Context, userID uuid.UUID) (*models.UserSubscription, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}

	record, err := s.repo.FindActiveByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load active subscription")
	}
	if record == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no active subscription")
	}

	stripeSub, err := s.stripe.Update(ctx, record.StripeSubscriptionID, &stripe.SubscriptionParams{
		CancelAtPeriodEnd: stripe.Bool(true),
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel stripe subscription")
	}

	ApplyStripeState(record, stripeSub)
	if err := s.repo.UpdateSubscription(ctx, record); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist subscription")
	}
	return record, nil
}

func (s *service) GetActive(ctx context.Context, userID uuid.UUID) (*models.UserSubscription, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	record, err := s.repo.FindActiveByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load active subscription")
	}
	return record, nil
}

func (s *service) ListPlans(ctx context.Context) ([]models.SubscriptionPlan, error) {
	plans, err := s.repo.ListActivePlans(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list plans")
	}
	return plans, nil
}

func (s *service) resolvePlan(ctx context.Context, planID uuid.UUID) (*models.SubscriptionPlan, string, error) {
	if planID != uuid.Nil {
		plan, err := s.repo.FindPlanByID(ctx, planID)
		if err != nil {
			return nil, "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load plan")
		}
		if plan == nil || !plan.IsActive {
			return nil, "", pkgerrors.New(pkgerrors.CodeNotFound, "plan not found")
		}
		return plan, plan.StripePriceID, nil
	}
	if s.priceID == "" {
		return nil, "", pkgerrors.New(pkgerrors.CodeValidation, "plan_id is required")
	}
	// Default price configured; attach the local plan row when one matches.
	plan, err := s.repo.FindPlanByPriceID(ctx, s.priceID)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load default plan")
	}
	return plan, s.priceID, nil
}
