package routes

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	checkoutsvc "github.com/hearthstay/hearthstay-backend/internal/checkout"
	pmsvc "github.com/hearthstay/hearthstay-backend/internal/paymentmethods"
	propsvc "github.com/hearthstay/hearthstay-backend/internal/properties"
	subsvc "github.com/hearthstay/hearthstay-backend/internal/subscriptions"
	pkgAuth "github.com/hearthstay/hearthstay-backend/pkg/auth"
	"github.com/hearthstay/hearthstay-backend/pkg/config"
	"github.com/hearthstay/hearthstay-backend/pkg/db/models"
	"github.com/hearthstay/hearthstay-backend/pkg/enums"
	"github.com/hearthstay/hearthstay-backend/pkg/logger"
	"github.com/hearthstay/hearthstay-backend/pkg/pagination"
	"github.com/hearthstay/hearthstay-backend/pkg/redis"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type stubPropertyService struct{}

func (stubPropertyService) GetByID(ctx context.Context, id uuid.UUID) (*models.Property, error) {
	return &models.Property{ID: id}, nil
}

func (stubPropertyService) ListActive(ctx context.Context, query propsvc.ListQuery) ([]models.Property, *pagination.Cursor, error) {
	return nil, nil, nil
}

type stubBookingService struct{}

func (stubBookingService) GetForGuest(ctx context.Context, guestID, bookingID uuid.UUID) (*models.Booking, error) {
	return &models.Booking{ID: bookingID}, nil
}

func (stubBookingService) ListForGuest(ctx context.Context, guestID uuid.UUID, params pagination.Params) ([]models.Booking, *pagination.Cursor, error) {
	return nil, nil, nil
}

func (stubBookingService) CancelPending(ctx context.Context, guestID, bookingID uuid.UUID) (*models.Booking, error) {
	return &models.Booking{ID: bookingID, Status: enums.BookingStatusCancelled}, nil
}

type stubCheckoutService struct{}

func (stubCheckoutService) BookStay(ctx context.Context, guestID uuid.UUID, input checkoutsvc.BookStayInput) (*checkoutsvc.BookStayResult, error) {
	return &checkoutsvc.BookStayResult{}, nil
}

type stubPaymentMethodService struct{}

func (stubPaymentMethodService) List(ctx context.Context, userID uuid.UUID) ([]pmsvc.SavedCard, error) {
	return nil, nil
}

func (stubPaymentMethodService) Attach(ctx context.Context, userID uuid.UUID, paymentMethodID string) (*pmsvc.SavedCard, error) {
	return &pmsvc.SavedCard{ID: paymentMethodID}, nil
}

func (stubPaymentMethodService) Detach(ctx context.Context, userID uuid.UUID, paymentMethodID string) error {
	return nil
}

type stubSubscriptionService struct{}

func (stubSubscriptionService) Subscribe(ctx context.Context, userID uuid.UUID, input subsvc.SubscribeInput) (*models.UserSubscription, bool, error) {
	return &models.UserSubscription{ID: uuid.New()}, true, nil
}

func (stubSubscriptionService) CancelAtPeriodEnd(ctx context.Context, userID uuid.UUID) (*models.UserSubscription, error) {
	return &models.UserSubscription{ID: uuid.New()}, nil
}

func (stubSubscriptionService) GetActive(ctx context.Context, userID uuid.UUID) (*models.UserSubscription, error) {
	return nil, nil
}

func (stubSubscriptionService) ListPlans(ctx context.Context) ([]models.SubscriptionPlan, error) {
	return nil, nil
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test"},
		JWT: config.JWTConfig{Secret: "secret", Issuer: "issuer", ExpirationMinutes: 60},
	}
}

func newTestRouter(cfg *config.Config) http.Handler {
	logg := logger.New(logger.Options{ServiceName: "test", Level: logger.ParseLevel("debug"), Output: io.Discard})
	return NewRouter(
		cfg,
		logg,
		stubPinger{},
		&redis.Client{},
		stubPropertyService{},
		stubBookingService{},
		stubCheckoutService{},
		stubPaymentMethodService{},
		stubSubscriptionService{},
		nil,
		nil,
		nil,
	)
}

func TestHealthLive(t *testing.T) {
	router := newTestRouter(testConfig())
	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if resp.Header().Get("X-Hearthstay-Env") != "test" {
		t.Fatalf("expected env header, got %q", resp.Header().Get("X-Hearthstay-Env"))
	}
}

func TestPublicPropertiesWithoutAuth(t *testing.T) {
	router := newTestRouter(testConfig())
	req := httptest.NewRequest(http.MethodGet, "/api/public/v1/properties", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestPrivateGroupRejectsMissingJWT(t *testing.T) {
	router := newTestRouter(testConfig())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/bookings", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestPrivateGroupSucceedsWithJWT(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)
	req := httptest.NewRequest(http.MethodGet, "/api/ping", nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.UserRoleGuest))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestSubscriptionsRequireHostRole(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)

	guest := httptest.NewRequest(http.MethodGet, "/api/v1/subscriptions", nil)
	guest.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.UserRoleGuest))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, guest)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for guest got %d", resp.Code)
	}

	host := httptest.NewRequest(http.MethodGet, "/api/v1/subscriptions", nil)
	host.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.UserRoleHost))
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, host)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for host got %d", resp.Code)
	}
}

func TestPlansVisibleToAnyAuthedUser(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/subscriptions/plans", nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.UserRoleGuest))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func buildToken(t *testing.T, cfg *config.Config, role enums.UserRole) string {
	t.Helper()
	token, err := pkgAuth.MintAccessToken(cfg.JWT, time.Now(), pkgAuth.AccessTokenPayload{
		UserID: uuid.New(),
		Role:   role,
		JTI:    uuid.NewString(),
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}
