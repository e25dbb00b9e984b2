package stripewebhook

import (
	"context"
	"errors"
	"testing"
	"time"
)

type stubIdempotencyStore struct {
	keys    map[string]string
	setErr  error
	deleted []string
}

func (s *stubIdempotencyStore) Get(ctx context.Context, key string) (string, error) {
	return s.keys[key], nil
}

func (s *stubIdempotencyStore) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if s.setErr != nil {
		return false, s.setErr
	}
	if _, ok := s.keys[key]; ok {
		return false, nil
	}
	s.keys[key] = "1"
	return true, nil
}

func (s *stubIdempotencyStore) IdempotencyKey(scope, id string) string {
	return "hs:idempotency:" + scope + ":" + id
}

func (s *stubIdempotencyStore) Del(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		delete(s.keys, key)
		s.deleted = append(s.deleted, key)
	}
	return nil
}

func TestIdempotencyGuardMarksFirstSight(t *testing.T) {
	store := &stubIdempotencyStore{keys: map[string]string{}}
	guard, err := NewIdempotencyGuard(store, time.Hour, "stripe:webhook")
	if err != nil {
		t.Fatalf("NewIdempotencyGuard: %v", err)
	}

	seen, err := guard.CheckAndMark(context.Background(), "evt_1")
	if err != nil {
		t.Fatalf("CheckAndMark: %v", err)
	}
	if seen {
		t.Fatalf("first sighting must not be reported as a replay")
	}

	seen, err = guard.CheckAndMark(context.Background(), "evt_1")
	if err != nil {
		t.Fatalf("CheckAndMark replay: %v", err)
	}
	if !seen {
		t.Fatalf("replay must be detected")
	}
}

func TestIdempotencyGuardDeleteReopensEvent(t *testing.T) {
	store := &stubIdempotencyStore{keys: map[string]string{}}
	guard, err := NewIdempotencyGuard(store, time.Hour, "stripe:webhook")
	if err != nil {
		t.Fatalf("NewIdempotencyGuard: %v", err)
	}

	if _, err := guard.CheckAndMark(context.Background(), "evt_2"); err != nil {
		t.Fatalf("CheckAndMark: %v", err)
	}
	if err := guard.Delete(context.Background(), "evt_2"); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	seen, err := guard.CheckAndMark(context.Background(), "evt_2")
	if err != nil {
		t.Fatalf("CheckAndMark after delete: %v", err)
	}
	if seen {
		t.Fatalf("deleted event must be processable again")
	}
}

func TestIdempotencyGuardPropagatesStoreError(t *testing.T) {
	store := &stubIdempotencyStore{keys: map[string]string{}, setErr: errors.New("redis down")}
	guard, err := NewIdempotencyGuard(store, time.Hour, "stripe:webhook")
	if err != nil {
		t.Fatalf("NewIdempotencyGuard: %v", err)
	}

	if _, err := guard.CheckAndMark(context.Background(), "evt_3"); err == nil {
		t.Fatalf("expected store error to surface")
	}
}

func TestIdempotencyGuardRequiresEventID(t *testing.T) {
	store := &stubIdempotencyStore{keys: map[string]string{}}
	guard, err := NewIdempotencyGuard(store, time.Hour, "stripe:webhook")
	if err != nil {
		t.Fatalf("NewIdempotencyGuard: %v", err)
	}
	if _, err := guard.CheckAndMark(context.Background(), ""); err == nil {
		t.Fatalf("empty event id must be rejected")
	}
}
