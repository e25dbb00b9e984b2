package bookings

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hearthstay/hearthstay-backend/pkg/db/models"
	"github.com/hearthstay/hearthstay-backend/pkg/enums"
	pkgerrors "github.com/hearthstay/hearthstay-backend/pkg/errors"
	"github.com/hearthstay/hearthstay-backend/pkg/pagination"
)

type stubRepo struct {
	byID      map[uuid.UUID]*models.Booking
	cancelOK  bool
	cancelled []uuid.UUID
	listed    []models.Booking
	next      *pagination.Cursor
}

func (s *stubRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubRepo) Create(ctx context.Context, booking *models.Booking) error { return nil }

func (s *stubRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Booking, error) {
	return s.byID[id], nil
}

func (s *stubRepo) FindByPaymentIntentID(ctx context.Context, paymentIntentID string) (*models.Booking, error) {
	return nil, nil
}

func (s *stubRepo) SetPaymentIntentID(ctx context.Context, id uuid.UUID, paymentIntentID string) error {
	return nil
}

func (s *stubRepo) ConfirmIfPending(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	return false, nil
}

func (s *stubRepo) CancelIfPending(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	s.cancelled = append(s.cancelled, id)
	if s.cancelOK {
		if booking, ok := s.byID[id]; ok {
			booking.Status = enums.BookingStatusCancelled
			booking.CancelledAt = &at
		}
	}
	return s.cancelOK, nil
}

func (s *stubRepo) ListByGuest(ctx context.Context, guestID uuid.UUID, params pagination.Params) ([]models.Booking, *pagination.Cursor, error) {
	return s.listed, s.next, nil
}

func (s *stubRepo) FindPendingBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.Booking, error) {
	return nil, nil
}

func pendingBooking(guestID uuid.UUID) *models.Booking {
	return &models.Booking{
		ID:      uuid.New(),
		GuestID: guestID,
		Status:  enums.BookingStatusPending,
	}
}

func TestGetForGuestHidesOtherGuests(t *testing.T) {
	guestID := uuid.New()
	booking := pendingBooking(guestID)
	repo := &stubRepo{byID: map[uuid.UUID]*models.Booking{booking.ID: booking}}
	svc, err := NewService(repo)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	got, err := svc.GetForGuest(context.Background(), guestID, booking.ID)
	if err != nil {
		t.Fatalf("GetForGuest: %v", err)
	}
	if got.ID != booking.ID {
		t.Fatalf("wrong booking returned")
	}

	_, err = svc.GetForGuest(context.Background(), uuid.New(), booking.ID)
	if err == nil {
		t.Fatalf("other guests must not see the booking")
	}
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("ownership miss must read as not found, got %v", err)
	}
}

func TestCancelPendingCancelsOwnBooking(t *testing.T) {
	guestID := uuid.New()
	booking := pendingBooking(guestID)
	repo := &stubRepo{byID: map[uuid.UUID]*models.Booking{booking.ID: booking}, cancelOK: true}
	svc, err := NewService(repo)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	got, err := svc.CancelPending(context.Background(), guestID, booking.ID)
	if err != nil {
		t.Fatalf("CancelPending: %v", err)
	}
	if got.Status != enums.BookingStatusCancelled {
		t.Fatalf("expected cancelled, got %s", got.Status)
	}
	if len(repo.cancelled) != 1 || repo.cancelled[0] != booking.ID {
		t.Fatalf("cancel not issued against the booking")
	}
}

func TestCancelPendingRejectsConfirmedBooking(t *testing.T) {
	guestID := uuid.New()
	booking := pendingBooking(guestID)
	booking.Status = enums.BookingStatusConfirmed
	repo := &stubRepo{byID: map[uuid.UUID]*models.Booking{booking.ID: booking}}
	svc, err := NewService(repo)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	_, err = svc.CancelPending(context.Background(), guestID, booking.ID)
	if err == nil {
		t.Fatalf("confirmed booking must not be self-cancellable")
	}
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
	if len(repo.cancelled) != 0 {
		t.Fatalf("no cancel should reach the repository")
	}
}

func TestCancelPendingLosesRaceWithReconciler(t *testing.T) {
	guestID := uuid.New()
	booking := pendingBooking(guestID)
	repo := &stubRepo{byID: map[uuid.UUID]*models.Booking{booking.ID: booking}, cancelOK: false}
	svc, err := NewService(repo)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	_, err = svc.CancelPending(context.Background(), guestID, booking.ID)
	if err == nil {
		t.Fatalf("losing the confirm race must error")
	}
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestListForGuestPassesCursorThrough(t *testing.T) {
	guestID := uuid.New()
	next := &pagination.Cursor{}
	repo := &stubRepo{listed: []models.Booking{{ID: uuid.New()}}, next: next}
	svc, err := NewService(repo)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	rows, cursor, err := svc.ListForGuest(context.Background(), guestID, pagination.Params{Limit: 10})
	if err != nil {
		t.Fatalf("ListForGuest: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	if cursor != next {
		t.Fatalf("cursor not passed through")
	}

	if _, _, err := svc.ListForGuest(context.Background(), uuid.Nil, pagination.Params{}); err == nil {
		t.Fatalf("nil guest id must be rejected")
	}
}
