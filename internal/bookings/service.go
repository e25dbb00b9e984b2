package bookings

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hearthstay/hearthstay-backend/pkg/db/models"
	pkgerrors "github.com/hearthstay/hearthstay-backend/pkg/errors"
	"github.com/hearthstay/hearthstay-backend/pkg/pagination"
)

// Service exposes the read and guest-cancel surface for bookings.
type Service interface {
	GetForGuest(ctx context.Context, guestID, bookingID uuid.UUID) (*models.Booking, error)
	ListForGuest(ctx context.Context, guestID uuid.UUID, params pagination.Params) ([]models.Booking, *pagination.Cursor, error)
	CancelPending(ctx context.Context, guestID, bookingID uuid.UUID) (*models.Booking, error)
}

type service struct {
	repo Repository
	now  func() time.Time
}

// NewService wires a booking service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("bookings repository required")
	}
	return &service{repo: repo, now: time.Now}, nil
}

func (s *service) GetForGuest(ctx context.Context, guestID, bookingID uuid.UUID) (*models.Booking, error) {
	if guestID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "guest id is required")
	}
	if bookingID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "booking id is required")
	}
	booking, err := s.repo.FindByID(ctx, bookingID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load booking")
	}
	if booking == nil || booking.GuestID != guestID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "booking not found")
	}
	return booking, nil
}

func (s *service) ListForGuest(ctx context.Context, guestID uuid.UUID, params pagination.Params) ([]models.Booking, *pagination.Cursor, error) {
	if guestID == uuid.Nil {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "guest id is required")
	}
	rows, next, err := s.repo.ListByGuest(ctx, guestID, params)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list bookings")
	}
	return rows, next, nil
}

// CancelPending lets a guest abandon an unpaid booking. Confirmed rows stay
// put; refund-backed cancellation is a support flow, not self service.
func (s *service) CancelPending(ctx context.Context, guestID, bookingID uuid.UUID) (*models.Booking, error) {
	booking, err := s.GetForGuest(ctx, guestID, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.Status.IsTerminal() {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("booking is already %s", booking.Status))
	}
	cancelled, err := s.repo.CancelIfPending(ctx, bookingID, s.now().UTC())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel booking")
	}
	if !cancelled {
		// Lost the race with the webhook reconciler.
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "booking is no longer pending")
	}
	return s.repo.FindByID(ctx, bookingID)
}
