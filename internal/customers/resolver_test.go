package customers

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"

	"github.com/hearthstay/hearthstay-backend/pkg/db/models"
	pkgerrors "github.com/hearthstay/hearthstay-backend/pkg/errors"
)

type stubUserStore struct {
	user     *models.User
	findErr  error
	cached   map[uuid.UUID]string
	cacheErr error
}

func (s *stubUserStore) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return s.user, s.findErr
}

func (s *stubUserStore) SetStripeCustomerID(ctx context.Context, userID uuid.UUID, customerID string) error {
	if s.cacheErr != nil {
		return s.cacheErr
	}
	if s.cached == nil {
		s.cached = map[uuid.UUID]string{}
	}
	s.cached[userID] = customerID
	return nil
}

type stubCustomerClient struct {
	createParams *stripe.CustomerParams
	createResp   *stripe.Customer
	createErr    error
	getResp      *stripe.Customer
	getErr       error
	getCalls     []string
}

func (s *stubCustomerClient) Create(ctx context.Context, params *stripe.CustomerParams) (*stripe.Customer, error) {
	s.createParams = params
	return s.createResp, s.createErr
}

func (s *stubCustomerClient) Get(ctx context.Context, id string, params *stripe.CustomerParams) (*stripe.Customer, error) {
	s.getCalls = append(s.getCalls, id)
	return s.getResp, s.getErr
}

func testUser() *models.User {
	return &models.User{
		ID:       uuid.New(),
		Email:    "guest@example.com",
		FullName: "Greta Guest",
	}
}

func TestResolveReturnsCachedCustomer(t *testing.T) {
	user := testUser()
	cached := "cus_cached"
	user.StripeCustomerID = &cached

	client := &stubCustomerClient{getResp: &stripe.Customer{ID: cached}}
	resolver, err := NewResolver(ResolverParams{
		UsersRepo:    &stubUserStore{user: user},
		StripeClient: client,
	})
	if err != nil {
		t.Fatalf("NewResolver: %v", err)
	}

	result, err := resolver.Resolve(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if result.CustomerID != cached {
		t.Fatalf("expected cached customer, got %s", result.CustomerID)
	}
	if result.Created {
		t.Fatalf("cached hit must not report creation")
	}
	if client.createParams != nil {
		t.Fatalf("no customer should be created on a cache hit")
	}
}

func TestResolveCreatesAndCachesCustomer(t *testing.T) {
	user := testUser()
	store := &stubUserStore{user: user}
	client := &stubCustomerClient{createResp: &stripe.Customer{ID: "cus_new"}}

	resolver, err := NewResolver(ResolverParams{UsersRepo: store, StripeClient: client})
	if err != nil {
		t.Fatalf("NewResolver: %v", err)
	}

	result, err := resolver.Resolve(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if result.CustomerID != "cus_new" || !result.Created {
		t.Fatalf("expected freshly created customer, got %+v", result)
	}
	if store.cached[user.ID] != "cus_new" {
		t.Fatalf("customer id not cached on the user row")
	}

	params := client.createParams
	if params == nil || params.Email == nil || *params.Email != "guest@example.com" {
		t.Fatalf("create params missing email: %+v", params)
	}
	if params.Metadata["user_id"] != user.ID.String() {
		t.Fatalf("user id not stamped on customer metadata")
	}
}

func TestResolveRecreatesDeletedCustomer(t *testing.T) {
	user := testUser()
	stale := "cus_gone"
	user.StripeCustomerID = &stale

	client := &stubCustomerClient{
		getErr:     &stripe.Error{Code: stripe.ErrorCodeResourceMissing},
		createResp: &stripe.Customer{ID: "cus_fresh"},
	}
	resolver, err := NewResolver(ResolverParams{
		UsersRepo:    &stubUserStore{user: user},
		StripeClient: client,
	})
	if err != nil {
		t.Fatalf("NewResolver: %v", err)
	}

	result, err := resolver.Resolve(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if result.CustomerID != "cus_fresh" || !result.Created {
		t.Fatalf("stale customer must be replaced, got %+v", result)
	}
	if len(client.getCalls) != 1 || client.getCalls[0] != stale {
		t.Fatalf("cached id should have been verified first")
	}
}

func TestResolveCacheWriteFailureIsNonFatal(t *testing.T) {
	user := testUser()
	store := &stubUserStore{user: user, cacheErr: errors.New("db down")}
	client := &stubCustomerClient{createResp: &stripe.Customer{ID: "cus_uncached"}}

	resolver, err := NewResolver(ResolverParams{UsersRepo: store, StripeClient: client})
	if err != nil {
		t.Fatalf("NewResolver: %v", err)
	}

	result, err := resolver.Resolve(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("Resolve must tolerate a cache write failure: %v", err)
	}
	if result.CustomerID != "cus_uncached" {
		t.Fatalf("customer id must still be returned")
	}
	if !result.CacheWriteFailed {
		t.Fatalf("cache write failure must be reported")
	}
}

func TestResolveUnknownUser(t *testing.T) {
	resolver, err := NewResolver(ResolverParams{
		UsersRepo:    &stubUserStore{},
		StripeClient: &stubCustomerClient{},
	})
	if err != nil {
		t.Fatalf("NewResolver: %v", err)
	}

	_, err = resolver.Resolve(context.Background(), uuid.New())
	if err == nil {
		t.Fatalf("expected not found error")
	}
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found code, got %v", err)
	}
}

func TestResolveVerifyFailureSurfaces(t *testing.T) {
	user := testUser()
	cached := "cus_cached"
	user.StripeCustomerID = &cached

	resolver, err := NewResolver(ResolverParams{
		UsersRepo:    &stubUserStore{user: user},
		StripeClient: &stubCustomerClient{getErr: errors.New("stripe 500")},
	})
	if err != nil {
		t.Fatalf("NewResolver: %v", err)
	}

	if _, err := resolver.Resolve(context.Background(), user.ID); err == nil {
		t.Fatalf("non-missing verification errors must surface")
	}
}
