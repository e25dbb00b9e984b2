package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hearthstay/hearthstay-backend/api/middleware"
	"github.com/hearthstay/hearthstay-backend/api/responses"
	"github.com/hearthstay/hearthstay-backend/api/validators"
	bookingsvc "github.com/hearthstay/hearthstay-backend/internal/bookings"
	"github.com/hearthstay/hearthstay-backend/pkg/db/models"
	pkgerrors "github.com/hearthstay/hearthstay-backend/pkg/errors"
	"github.com/hearthstay/hearthstay-backend/pkg/logger"
	"github.com/hearthstay/hearthstay-backend/pkg/pagination"
)

type bookingResponse struct {
	ID               uuid.UUID              `json:"id"`
	PropertyID       uuid.UUID              `json:"property_id"`
	CheckIn          time.Time              `json:"check_in"`
	CheckOut         time.Time              `json:"check_out"`
	Guests           int                    `json:"guests"`
	AmountCents      int64                  `json:"amount_cents"`
	PlatformFeeCents int64                  `json:"platform_fee_cents"`
	Currency         string                 `json:"currency"`
	BillingAddress   billingAddressResponse `json:"billing_address"`
	Status           string                 `json:"status"`
	ConfirmedAt      *time.Time             `json:"confirmed_at,omitempty"`
	CancelledAt      *time.Time             `json:"cancelled_at,omitempty"`
	CreatedAt        time.Time              `json:"created_at"`
}

type billingAddressResponse struct {
	Line1      string `json:"line1"`
	City       string `json:"city"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

type bookingListResponse struct {
	Bookings   []bookingResponse `json:"bookings"`
	NextCursor string            `json:"next_cursor,omitempty"`
}

// ListBookings returns the authenticated guest's bookings.
func ListBookings(svc bookingsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "booking service unavailable"))
			return
		}

		guestID, err := requireUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		params := pagination.Params{
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		}

		bookings, next, err := svc.ListForGuest(r.Context(), guestID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		resp := bookingListResponse{Bookings: make([]bookingResponse, 0, len(bookings))}
		for _, booking := range bookings {
			resp.Bookings = append(resp.Bookings, newBookingResponse(&booking))
		}
		if next != nil {
			resp.NextCursor = pagination.EncodeCursor(*next)
		}
		responses.WriteSuccess(w, resp)
	}
}

// GetBooking returns a single booking owned by the authenticated guest.
func GetBooking(svc bookingsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "booking service unavailable"))
			return
		}

		guestID, err := requireUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		bookingID, err := parsePathID(r, "bookingId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		booking, err := svc.GetForGuest(r.Context(), guestID, bookingID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newBookingResponse(booking))
	}
}

// CancelBooking cancels a still-pending booking owned by the guest.
func CancelBooking(svc bookingsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "booking service unavailable"))
			return
		}

		guestID, err := requireUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		bookingID, err := parsePathID(r, "bookingId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		booking, err := svc.CancelPending(r.Context(), guestID, bookingID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newBookingResponse(booking))
	}
}

func newBookingResponse(booking *models.Booking) bookingResponse {
	return bookingResponse{
		ID:               booking.ID,
		PropertyID:       booking.PropertyID,
		CheckIn:          booking.CheckIn.UTC(),
		CheckOut:         booking.CheckOut.UTC(),
		Guests:           booking.Guests,
		AmountCents:      booking.AmountCents,
		PlatformFeeCents: booking.PlatformFeeCents,
		Currency:         booking.Currency,
		BillingAddress: billingAddressResponse{
			Line1:      booking.BillingLine1,
			City:       booking.BillingCity,
			PostalCode: booking.BillingPostalCode,
			Country:    booking.BillingCountry,
		},
		Status:      string(booking.Status),
		ConfirmedAt: booking.ConfirmedAt,
		CancelledAt: booking.CancelledAt,
		CreatedAt:   booking.CreatedAt.UTC(),
	}
}

func requireUserID(r *http.Request) (uuid.UUID, error) {
	raw := middleware.UserIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid user id")
	}
	return id, nil
}
