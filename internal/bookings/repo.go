package bookings

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hearthstay/hearthstay-backend/pkg/db/models"
	"github.com/hearthstay/hearthstay-backend/pkg/enums"
	"github.com/hearthstay/hearthstay-backend/pkg/pagination"
)

// Repository handles booking persistence. Status transitions out of pending
// go through the guarded updates so webhook replays and the expiry sweep
// cannot clobber a terminal row.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, booking *models.Booking) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Booking, error)
	FindByPaymentIntentID(ctx context.Context, paymentIntentID string) (*models.Booking, error)
	SetPaymentIntentID(ctx context.Context, id uuid.UUID, paymentIntentID string) error
	ConfirmIfPending(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)
	CancelIfPending(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)
	ListByGuest(ctx context.Context, guestID uuid.UUID, params pagination.Params) ([]models.Booking, *pagination.Cursor, error)
	FindPendingBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.Booking, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a booking repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, booking *models.Booking) error {
	return r.db.WithContext(ctx).Create(booking).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Booking, error) {
	var booking models.Booking
	if err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&booking).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &booking, nil
}

func (r *repository) FindByPaymentIntentID(ctx context.Context, paymentIntentID string) (*models.Booking, error) {
	if strings.TrimSpace(paymentIntentID) == "" {
		return nil, nil
	}
	var booking models.Booking
	if err := r.db.WithContext(ctx).
		Where("stripe_payment_intent_id = ?", paymentIntentID).
		First(&booking).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &booking, nil
}

func (r *repository) SetPaymentIntentID(ctx context.Context, id uuid.UUID, paymentIntentID string) error {
	return r.db.WithContext(ctx).
		Model(&models.Booking{}).
		Where("id = ?", id).
		Update("stripe_payment_intent_id", paymentIntentID).Error
}

// ConfirmIfPending flips a booking to confirmed only from pending. The bool
// reports whether this call performed the transition.
func (r *repository) ConfirmIfPending(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Booking{}).
		Where("id = ? AND status = ?", id, enums.BookingStatusPending).
		Updates(map[string]any{
			"status":       enums.BookingStatusConfirmed,
			"confirmed_at": at,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// CancelIfPending flips a booking to cancelled only from pending.
func (r *repository) CancelIfPending(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Booking{}).
		Where("id = ? AND status = ?", id, enums.BookingStatusPending).
		Updates(map[string]any{
			"status":       enums.BookingStatusCancelled,
			"cancelled_at": at,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repository) ListByGuest(ctx context.Context, guestID uuid.UUID, params pagination.Params) ([]models.Booking, *pagination.Cursor, error) {
	limit := pagination.NormalizeLimit(params.Limit)
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, nil, err
	}

	q := r.db.WithContext(ctx).
		Model(&models.Booking{}).
		Where("guest_id = ?", guestID).
		Order("created_at DESC, id DESC").
		Limit(limit + 1)
	if cursor != nil {
		q = q.Where("(created_at, id) < (?, ?)", cursor.CreatedAt, cursor.ID)
	}

	var rows []models.Booking
	if err := q.Find(&rows).Error; err != nil {
		return nil, nil, err
	}

	var next *pagination.Cursor
	if len(rows) > limit {
		rows = rows[:limit]
		last := rows[len(rows)-1]
		next = &pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID}
	}
	return rows, next, nil
}

func (r *repository) FindPendingBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.Booking, error) {
	if limit <= 0 {
		limit = 250
	}
	var rows []models.Booking
	if err := r.db.WithContext(ctx).
		Where("status = ? AND created_at < ?", enums.BookingStatusPending, cutoff).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
