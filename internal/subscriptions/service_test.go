package subscriptions

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"
	"gorm.io/gorm"

	"github.com/hearthstay/hearthstay-backend/internal/customers"
	"github.com/hearthstay/hearthstay-backend/pkg/db/models"
	"github.com/hearthstay/hearthstay-backend/pkg/enums"
	pkgerrors "github.com/hearthstay/hearthstay-backend/pkg/errors"
)

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type stubRepo struct {
	active      *models.UserSubscription
	activeInTx  *models.UserSubscription
	plans       map[uuid.UUID]*models.SubscriptionPlan
	planByPrice map[string]*models.SubscriptionPlan
	activePlans []models.SubscriptionPlan
	created     []*models.UserSubscription
	updated     []*models.UserSubscription
}

func (s *stubRepo) WithTx(tx *gorm.DB) Repository {
	return &txRepo{stub: s}
}

// txRepo routes transactional reads through activeInTx so tests can model the
// second active-subscription check racing the first.
type txRepo struct {
	stub *stubRepo
}

func (t *txRepo) WithTx(tx *gorm.DB) Repository { return t }

func (t *txRepo) CreateSubscription(ctx context.Context, subscription *models.UserSubscription) error {
	t.stub.created = append(t.stub.created, subscription)
	return nil
}

func (t *txRepo) UpdateSubscription(ctx context.Context, subscription *models.UserSubscription) error {
	t.stub.updated = append(t.stub.updated, subscription)
	return nil
}

func (t *txRepo) FindSubscriptionByStripeID(ctx context.Context, stripeSubscriptionID string) (*models.UserSubscription, error) {
	return nil, nil
}

func (t *txRepo) DeactivateOthersForUser(ctx context.Context, userID uuid.UUID, keepStripeSubscriptionID string) error {
	return nil
}

func (t *txRepo) FindActiveByUser(ctx context.Context, userID uuid.UUID) (*models.UserSubscription, error) {
	return t.stub.activeInTx, nil
}

func (t *txRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.UserSubscription, error) {
	return nil, nil
}

func (t *txRepo) FindPlanByID(ctx context.Context, id uuid.UUID) (*models.SubscriptionPlan, error) {
	return t.stub.plans[id], nil
}

func (t *txRepo) FindPlanByPriceID(ctx context.Context, stripePriceID string) (*models.SubscriptionPlan, error) {
	return t.stub.planByPrice[stripePriceID], nil
}

func (t *txRepo) ListActivePlans(ctx context.Context) ([]models.SubscriptionPlan, error) {
	return t.stub.activePlans, nil
}

func (s *stubRepo) CreateSubscription(ctx context.Context, subscription *models.UserSubscription) error {
	s.created = append(s.created, subscription)
	return nil
}

func (s *stubRepo) UpdateSubscription(ctx context.Context, subscription *models.UserSubscription) error {
	s.updated = append(s.updated, subscription)
	return nil
}

func (s *stubRepo) FindSubscriptionByStripeID(ctx context.Context, stripeSubscriptionID string) (*models.UserSubscription, error) {
	return nil, nil
}

func (s *stubRepo) DeactivateOthersForUser(ctx context.Context, userID uuid.UUID, keepStripeSubscriptionID string) error {
	return nil
}

func (s *stubRepo) FindActiveByUser(ctx context.Context, userID uuid.UUID) (*models.UserSubscription, error) {
	return s.active, nil
}

func (s *stubRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.UserSubscription, error) {
	return nil, nil
}

func (s *stubRepo) FindPlanByID(ctx context.Context, id uuid.UUID) (*models.SubscriptionPlan, error) {
	return s.plans[id], nil
}

func (s *stubRepo) FindPlanByPriceID(ctx context.Context, stripePriceID string) (*models.SubscriptionPlan, error) {
	return s.planByPrice[stripePriceID], nil
}

func (s *stubRepo) ListActivePlans(ctx context.Context) ([]models.SubscriptionPlan, error) {
	return s.activePlans, nil
}

type stubResolver struct {
	result customers.Result
	err    error
}

func (s *stubResolver) Resolve(ctx context.Context, userID uuid.UUID) (customers.Result, error) {
	return s.result, s.err
}

type stubStripeClient struct {
	createParams *stripe.SubscriptionParams
	createResp   *stripe.Subscription
	createErr    error
	updateID     string
	updateParams *stripe.SubscriptionParams
	updateResp   *stripe.Subscription
	updateErr    error
}

func (s *stubStripeClient) Create(ctx context.Context, params *stripe.SubscriptionParams) (*stripe.Subscription, error) {
	s.createParams = params
	return s.createResp, s.createErr
}

func (s *stubStripeClient) Update(ctx context.Context, id string, params *stripe.SubscriptionParams) (*stripe.Subscription, error) {
	s.updateID = id
	s.updateParams = params
	return s.updateResp, s.updateErr
}

func (s *stubStripeClient) Cancel(ctx context.Context, id string, params *stripe.SubscriptionCancelParams) (*stripe.Subscription, error) {
	return nil, nil
}

func (s *stubStripeClient) Get(ctx context.Context, id string, params *stripe.SubscriptionParams) (*stripe.Subscription, error) {
	return nil, nil
}

type subsFixture struct {
	svc          Service
	repo         *stubRepo
	stripeClient *stubStripeClient
}

func newSubsFixture(t *testing.T, defaultPriceID string) *subsFixture {
	t.Helper()
	f := &subsFixture{
		repo: &stubRepo{
			plans:       map[uuid.UUID]*models.SubscriptionPlan{},
			planByPrice: map[string]*models.SubscriptionPlan{},
		},
		stripeClient: &stubStripeClient{},
	}

	svc, err := NewService(ServiceParams{
		Repo:              f.repo,
		Customers:         &stubResolver{result: customers.Result{CustomerID: "cus_host"}},
		StripeClient:      f.stripeClient,
		DefaultPriceID:    defaultPriceID,
		TransactionRunner: stubTxRunner{},
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	f.svc = svc
	return f
}

func TestSubscribeCreatesSubscription(t *testing.T) {
	f := newSubsFixture(t, "")
	userID := uuid.New()
	plan := &models.SubscriptionPlan{ID: uuid.New(), StripePriceID: "price_plan", IsActive: true}
	f.repo.plans[plan.ID] = plan
	f.stripeClient.createResp = &stripe.Subscription{
		ID:     "sub_created",
		Status: stripe.SubscriptionStatusActive,
	}

	record, created, err := f.svc.Subscribe(context.Background(), userID, SubscribeInput{
		PlanID:          plan.ID,
		PaymentMethodID: "pm_host_card",
	})
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	if !created {
		t.Fatalf("expected a fresh subscription")
	}
	if record.UserID != userID || record.StripeSubscriptionID != "sub_created" {
		t.Fatalf("record fields wrong: %+v", record)
	}
	if record.PlanID == nil || *record.PlanID != plan.ID {
		t.Fatalf("plan not linked")
	}

	params := f.stripeClient.createParams
	if params == nil {
		t.Fatalf("stripe create not called")
	}
	if len(params.Items) != 1 || *params.Items[0].Price != "price_plan" {
		t.Fatalf("plan price not sent to stripe")
	}
	if params.DefaultPaymentMethod == nil || *params.DefaultPaymentMethod != "pm_host_card" {
		t.Fatalf("payment method not sent to stripe")
	}
	if params.Metadata["user_id"] != userID.String() {
		t.Fatalf("user id not stamped on subscription metadata")
	}
}

func TestSubscribeReturnsExistingActive(t *testing.T) {
	f := newSubsFixture(t, "price_default")
	userID := uuid.New()
	existing := &models.UserSubscription{ID: uuid.New(), UserID: userID, Status: enums.SubscriptionStatusActive}
	f.repo.active = existing

	record, created, err := f.svc.Subscribe(context.Background(), userID, SubscribeInput{})
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	if created {
		t.Fatalf("existing subscription must not be recreated")
	}
	if record != existing {
		t.Fatalf("expected the stored record back")
	}
	if f.stripeClient.createParams != nil {
		t.Fatalf("stripe must not be called when already subscribed")
	}
}

func TestSubscribeFallsBackToDefaultPrice(t *testing.T) {
	f := newSubsFixture(t, "price_default")
	f.stripeClient.createResp = &stripe.Subscription{ID: "sub_default", Status: stripe.SubscriptionStatusActive}

	_, created, err := f.svc.Subscribe(context.Background(), uuid.New(), SubscribeInput{})
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	if !created {
		t.Fatalf("expected creation")
	}
	if *f.stripeClient.createParams.Items[0].Price != "price_default" {
		t.Fatalf("default price not used")
	}
}

func TestSubscribeWithoutPlanOrDefault(t *testing.T) {
	f := newSubsFixture(t, "")

	_, _, err := f.svc.Subscribe(context.Background(), uuid.New(), SubscribeInput{})
	if err == nil {
		t.Fatalf("expected validation error")
	}
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation code, got %v", err)
	}
}

func TestSubscribeUnknownPlan(t *testing.T) {
	f := newSubsFixture(t, "")

	_, _, err := f.svc.Subscribe(context.Background(), uuid.New(), SubscribeInput{PlanID: uuid.New()})
	if err == nil {
		t.Fatalf("expected not found error")
	}
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found code, got %v", err)
	}
}

func TestSubscribeLosesCreationRace(t *testing.T) {
	f := newSubsFixture(t, "price_default")
	userID := uuid.New()
	winner := &models.UserSubscription{ID: uuid.New(), UserID: userID, Status: enums.SubscriptionStatusActive}
	f.repo.activeInTx = winner
	f.stripeClient.createResp = &stripe.Subscription{ID: "sub_loser", Status: stripe.SubscriptionStatusActive}

	record, created, err := f.svc.Subscribe(context.Background(), userID, SubscribeInput{})
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	if created {
		t.Fatalf("race loser must not report creation")
	}
	if record != winner {
		t.Fatalf("expected the winner's record back")
	}
	if len(f.repo.created) != 0 {
		t.Fatalf("no duplicate row may be inserted")
	}
}

func TestCancelAtPeriodEnd(t *testing.T) {
	f := newSubsFixture(t, "price_default")
	userID := uuid.New()
	f.repo.active = &models.UserSubscription{
		ID:                   uuid.New(),
		UserID:               userID,
		StripeSubscriptionID: "sub_stop",
		Status:               enums.SubscriptionStatusActive,
	}
	f.stripeClient.updateResp = &stripe.Subscription{
		ID:                "sub_stop",
		Status:            stripe.SubscriptionStatusActive,
		CancelAtPeriodEnd: true,
	}

	record, err := f.svc.CancelAtPeriodEnd(context.Background(), userID)
	if err != nil {
		t.Fatalf("CancelAtPeriodEnd: %v", err)
	}
	if f.stripeClient.updateID != "sub_stop" {
		t.Fatalf("wrong subscription updated: %s", f.stripeClient.updateID)
	}
	if f.stripeClient.updateParams.CancelAtPeriodEnd == nil || !*f.stripeClient.updateParams.CancelAtPeriodEnd {
		t.Fatalf("cancel_at_period_end not requested")
	}
	if record.Status != enums.SubscriptionStatusCancelling {
		t.Fatalf("expected cancelling status, got %s", record.Status)
	}
	if !record.CancelAtPeriodEnd {
		t.Fatalf("flag not applied to the record")
	}
	if len(f.repo.updated) != 1 {
		t.Fatalf("record not persisted")
	}
}

func TestCancelAtPeriodEndWithoutSubscription(t *testing.T) {
	f := newSubsFixture(t, "price_default")

	_, err := f.svc.CancelAtPeriodEnd(context.Background(), uuid.New())
	if err == nil {
		t.Fatalf("expected not found error")
	}
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found code, got %v", err)
	}
}
