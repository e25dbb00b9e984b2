package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"

	"github.com/hearthstay/hearthstay-backend/api/middleware"
	checkoutsvc "github.com/hearthstay/hearthstay-backend/internal/checkout"
	"github.com/hearthstay/hearthstay-backend/pkg/db/models"
	"github.com/hearthstay/hearthstay-backend/pkg/enums"
	pkgerrors "github.com/hearthstay/hearthstay-backend/pkg/errors"
)

type stubCheckoutService struct {
	result    *checkoutsvc.BookStayResult
	err       error
	lastInput checkoutsvc.BookStayInput
}

func (s *stubCheckoutService) BookStay(ctx context.Context, guestID uuid.UUID, input checkoutsvc.BookStayInput) (*checkoutsvc.BookStayResult, error) {
	s.lastInput = input
	return s.result, s.err
}

func checkoutBody(propertyID uuid.UUID) string {
	return `{"property_id":"` + propertyID.String() + `","check_in":"2026-07-10","check_out":"2026-07-12","guests":2}`
}

func TestCheckoutSuccess(t *testing.T) {
	t.Parallel()

	propertyID := uuid.New()
	intentID := "pi_open"
	booking := &models.Booking{
		ID:                    uuid.New(),
		PropertyID:            propertyID,
		Guests:                2,
		AmountCents:           36000,
		Currency:              "usd",
		Status:                enums.BookingStatusPending,
		StripePaymentIntentID: &intentID,
	}
	svc := &stubCheckoutService{result: &checkoutsvc.BookStayResult{
		Booking: booking,
		Quote: &checkoutsvc.Quote{
			Nights:               2,
			NightlySubtotalCents: 30000,
			CleaningFeeCents:     6000,
			TotalCents:           36000,
			PlatformFeeCents:     4320,
			Currency:             "usd",
		},
		PaymentIntentID: intentID,
		ClientSecret:    "pi_open_secret",
		IntentStatus:    stripe.PaymentIntentStatusRequiresPaymentMethod,
	}}
	handler := Checkout(svc, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", strings.NewReader(checkoutBody(propertyID)))
	req.Header.Set("Content-Type", "application/json")
	req = req.WithContext(middleware.WithUserID(req.Context(), uuid.NewString()))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (%s)", rec.Code, rec.Body.String())
	}
	if svc.lastInput.PropertyID != propertyID {
		t.Fatalf("property id not forwarded")
	}
	if svc.lastInput.CheckIn.Format("2006-01-02") != "2026-07-10" {
		t.Fatalf("check_in not parsed: %s", svc.lastInput.CheckIn)
	}

	var resp checkoutResponse
	decodeData(t, rec, &resp)
	if resp.Booking.ID != booking.ID {
		t.Fatalf("booking missing from response")
	}
	if resp.Quote.TotalCents != 36000 {
		t.Fatalf("quote missing from response: %+v", resp.Quote)
	}
	if resp.Quote.PlatformFeeCents != 4320 {
		t.Fatalf("platform fee missing from response: %+v", resp.Quote)
	}
	if resp.ClientSecret != "pi_open_secret" {
		t.Fatalf("client secret missing")
	}
	if resp.PaymentIntentID != intentID {
		t.Fatalf("intent id missing")
	}
}

func TestCheckoutForwardsBillingAddress(t *testing.T) {
	t.Parallel()

	propertyID := uuid.New()
	svc := &stubCheckoutService{result: &checkoutsvc.BookStayResult{
		Booking: &models.Booking{ID: uuid.New(), PropertyID: propertyID},
	}}
	handler := Checkout(svc, nil)

	body := `{"property_id":"` + propertyID.String() + `","check_in":"2026-07-10","check_out":"2026-07-12","guests":2,` +
		`"billing_address":{"line1":"12 Harbor Lane","city":"Lisbon","postal_code":"1100-148","country":"PT"}}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req = req.WithContext(middleware.WithUserID(req.Context(), uuid.NewString()))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (%s)", rec.Code, rec.Body.String())
	}
	billing := svc.lastInput.Billing
	if billing.Line1 != "12 Harbor Lane" || billing.City != "Lisbon" {
		t.Fatalf("billing address not forwarded: %+v", billing)
	}
	if billing.PostalCode != "1100-148" || billing.Country != "PT" {
		t.Fatalf("billing address not forwarded: %+v", billing)
	}
}

func TestCheckoutRejectsBadBillingCountry(t *testing.T) {
	t.Parallel()

	handler := Checkout(&stubCheckoutService{}, nil)
	body := `{"property_id":"` + uuid.NewString() + `","check_in":"2026-07-10","check_out":"2026-07-12","guests":2,` +
		`"billing_address":{"country":"Portugal"}}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req = req.WithContext(middleware.WithUserID(req.Context(), uuid.NewString()))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestCheckoutRequiresUser(t *testing.T) {
	t.Parallel()

	handler := Checkout(&stubCheckoutService{}, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", strings.NewReader(checkoutBody(uuid.New())))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestCheckoutRejectsBadDate(t *testing.T) {
	t.Parallel()

	handler := Checkout(&stubCheckoutService{}, nil)
	body := `{"property_id":"` + uuid.NewString() + `","check_in":"July 10","check_out":"2026-07-12","guests":2}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req = req.WithContext(middleware.WithUserID(req.Context(), uuid.NewString()))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if code := decodeErrorCode(t, rec); code != string(pkgerrors.CodeValidation) {
		t.Fatalf("expected validation code, got %s", code)
	}
}

func TestCheckoutRejectsMissingGuests(t *testing.T) {
	t.Parallel()

	handler := Checkout(&stubCheckoutService{}, nil)
	body := `{"property_id":"` + uuid.NewString() + `","check_in":"2026-07-10","check_out":"2026-07-12"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req = req.WithContext(middleware.WithUserID(req.Context(), uuid.NewString()))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestCheckoutSurfacesDecline(t *testing.T) {
	t.Parallel()

	handler := Checkout(&stubCheckoutService{
		err: pkgerrors.New(pkgerrors.CodePaymentDeclined, "card was declined"),
	}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", strings.NewReader(checkoutBody(uuid.New())))
	req.Header.Set("Content-Type", "application/json")
	req = req.WithContext(middleware.WithUserID(req.Context(), uuid.NewString()))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if code := decodeErrorCode(t, rec); code != string(pkgerrors.CodePaymentDeclined) {
		t.Fatalf("expected payment declined code, got %s", code)
	}
}
