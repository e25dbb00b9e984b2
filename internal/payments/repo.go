package payments

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/hearthstay/hearthstay-backend/pkg/db/models"
)

// Repository is the payment ledger. Writes key on stripe_payment_intent_id so
// webhook redeliveries collapse into a single row.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	UpsertByPaymentIntent(ctx context.Context, payment *models.Payment) error
	FindByPaymentIntentID(ctx context.Context, paymentIntentID string) (*models.Payment, error)
	ListByBooking(ctx context.Context, bookingID uuid.UUID) ([]models.Payment, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Payment, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a payment repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) UpsertByPaymentIntent(ctx context.Context, payment *models.Payment) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "stripe_payment_intent_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"kind",
				"user_id",
				"booking_id",
				"subscription_id",
				"status",
				"stripe_charge_id",
				"failure_reason",
				"receipt_url",
				"amount_cents",
				"updated_at",
			}),
		}).
		Create(payment).Error
}

func (r *repository) FindByPaymentIntentID(ctx context.Context, paymentIntentID string) (*models.Payment, error) {
	if strings.TrimSpace(paymentIntentID) == "" {
		return nil, nil
	}
	var payment models.Payment
	if err := r.db.WithContext(ctx).
		Where("stripe_payment_intent_id = ?", paymentIntentID).
		First(&payment).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &payment, nil
}

func (r *repository) ListByBooking(ctx context.Context, bookingID uuid.UUID) ([]models.Payment, error) {
	var rows []models.Payment
	if err := r.db.WithContext(ctx).
		Where("booking_id = ?", bookingID).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Payment, error) {
	var rows []models.Payment
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
