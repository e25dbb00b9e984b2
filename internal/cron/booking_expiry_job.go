package cron

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/hearthstay/hearthstay-backend/internal/bookings"
	"github.com/hearthstay/hearthstay-backend/pkg/db/models"
	"github.com/hearthstay/hearthstay-backend/pkg/enums"
	"github.com/hearthstay/hearthstay-backend/pkg/logger"
	"github.com/hearthstay/hearthstay-backend/pkg/outbox"
	"github.com/hearthstay/hearthstay-backend/pkg/outbox/payloads"
)

const expirySweepBatch = 250

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxEmitter interface {
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// BookingExpiryJobParams configure the pending booking sweep.
type BookingExpiryJobParams struct {
	Logger       *logger.Logger
	DB           txRunner
	BookingsRepo bookings.Repository
	Outbox       outboxEmitter
	PendingTTL   time.Duration
}

// NewBookingExpiryJob builds the cron job that cancels bookings whose
// payment never arrived.
func NewBookingExpiryJob(params BookingExpiryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.BookingsRepo == nil {
		return nil, fmt.Errorf("bookings repository required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox service required")
	}
	if params.PendingTTL <= 0 {
		return nil, fmt.Errorf("pending ttl must be positive")
	}
	return &bookingExpiryJob{
		logg:       params.Logger,
		db:         params.DB,
		repo:       params.BookingsRepo,
		outbox:     params.Outbox,
		pendingTTL: params.PendingTTL,
		now:        time.Now,
	}, nil
}

type bookingExpiryJob struct {
	logg       *logger.Logger
	db         txRunner
	repo       bookings.Repository
	outbox     outboxEmitter
	pendingTTL time.Duration
	now        func() time.Time
}

func (j *bookingExpiryJob) Name() string { return "booking-expiry" }

func (j *bookingExpiryJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.pendingTTL)
	stale, err := j.repo.FindPendingBefore(ctx, cutoff, expirySweepBatch)
	if err != nil {
		return fmt.Errorf("query stale pending bookings: %w", err)
	}

	var errs []error
	expired := 0
	for _, booking := range stale {
		if err := j.expireBooking(ctx, booking); err != nil {
			errs = append(errs, fmt.Errorf("expire booking %s: %w", booking.ID, err))
			continue
		}
		expired++
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"candidates": len(stale),
		"expired":    expired,
	})
	j.logg.Info(logCtx, "booking expiry sweep complete")
	return multierr.Combine(errs...)
}

func (j *bookingExpiryJob) expireBooking(ctx context.Context, booking models.Booking) error {
	now := j.now().UTC()
	return j.db.WithTx(ctx, func(tx *gorm.DB) error {
		cancelled, err := j.repo.WithTx(tx).CancelIfPending(ctx, booking.ID, now)
		if err != nil {
			return err
		}
		if !cancelled {
			// Confirmed or cancelled since the sweep query ran.
			return nil
		}
		return j.outbox.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventBookingCancelled,
			AggregateType: enums.AggregateBooking,
			AggregateID:   booking.ID,
			Version:       1,
			OccurredAt:    now,
			Data: payloads.BookingCancelledEvent{
				BookingID:   booking.ID,
				PropertyID:  booking.PropertyID,
				GuestID:     booking.GuestID,
				CancelledAt: now,
				Reason:      "payment_window_expired",
			},
		})
	})
}
