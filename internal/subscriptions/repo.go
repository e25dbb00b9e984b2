package subscriptions

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hearthstay/hearthstay-backend/pkg/db/models"
	"github.com/hearthstay/hearthstay-backend/pkg/enums"
)

// Repository handles subscription and plan persistence.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateSubscription(ctx context.Context, subscription *models.UserSubscription) error
	UpdateSubscription(ctx context.Context, subscription *models.UserSubscription) error
	FindSubscriptionByStripeID(ctx context.Context, stripeSubscriptionID string) (*models.UserSubscription, error)
	DeactivateOthersForUser(ctx context.Context, userID uuid.UUID, keepStripeSubscriptionID string) error
	FindActiveByUser(ctx context.Context, userID uuid.UUID) (*models.UserSubscription, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.UserSubscription, error)
	FindPlanByID(ctx context.Context, id uuid.UUID) (*models.SubscriptionPlan, error)
	FindPlanByPriceID(ctx context.Context, stripePriceID string) (*models.SubscriptionPlan, error)
	ListActivePlans(ctx context.Context) ([]models.SubscriptionPlan, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a subscription repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateSubscription(ctx context.Context, subscription *models.UserSubscription) error {
	return r.db.WithContext(ctx).Create(subscription).Error
}

func (r *repository) UpdateSubscription(ctx context.Context, subscription *models.UserSubscription) error {
	return r.db.WithContext(ctx).Save(subscription).Error
}

func (r *repository) FindSubscriptionByStripeID(ctx context.Context, stripeSubscriptionID string) (*models.UserSubscription, error) {
	if strings.TrimSpace(stripeSubscriptionID) == "" {
		return nil, nil
	}
	var sub models.UserSubscription
	if err := r.db.WithContext(ctx).
		Where("stripe_subscription_id = ?", stripeSubscriptionID).
		First(&sub).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &sub, nil
}

// DeactivateOthersForUser marks every subscription row of the user inactive
// except the one identified by keepStripeSubscriptionID. A user holds at most
// one live subscription; the surviving row is the processor's current one.
func (r *repository) DeactivateOthersForUser(ctx context.Context, userID uuid.UUID, keepStripeSubscriptionID string) error {
	return r.db.WithContext(ctx).
		Model(&models.UserSubscription{}).
		Where("user_id = ? AND stripe_subscription_id <> ? AND status <> ?",
			userID, keepStripeSubscriptionID, enums.SubscriptionStatusInactive).
		Update("status", enums.SubscriptionStatusInactive).Error
}

func (r *repository) FindActiveByUser(ctx context.Context, userID uuid.UUID) (*models.UserSubscription, error) {
	var sub models.UserSubscription
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND status IN (?)", userID, []enums.SubscriptionStatus{
			enums.SubscriptionStatusActive,
			enums.SubscriptionStatusCancelling,
		}).
		Order("created_at DESC").
		First(&sub).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &sub, nil
}

func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.UserSubscription, error) {
	var subs []models.UserSubscription
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&subs).Error; err != nil {
		return nil, err
	}
	return subs, nil
}

func (r *repository) FindPlanByID(ctx context.Context, id uuid.UUID) (*models.SubscriptionPlan, error) {
	var plan models.SubscriptionPlan
	if err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&plan).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &plan, nil
}

func (r *repository) FindPlanByPriceID(ctx context.Context, stripePriceID string) (*models.SubscriptionPlan, error) {
	if strings.TrimSpace(stripePriceID) == "" {
		return nil, nil
	}
	var plan models.SubscriptionPlan
	if err := r.db.WithContext(ctx).
		Where("stripe_price_id = ?", stripePriceID).
		First(&plan).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &plan, nil
}

func (r *repository) ListActivePlans(ctx context.Context) ([]models.SubscriptionPlan, error) {
	var plans []models.SubscriptionPlan
	if err := r.db.WithContext(ctx).
		Where("is_active").
		Order("amount_cents ASC").
		Find(&plans).Error; err != nil {
		return nil, err
	}
	return plans, nil
}
