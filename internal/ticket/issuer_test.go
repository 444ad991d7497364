package ticket

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// recordingStore counts calls and can inject failures.
type recordingStore struct {
	mu          sync.Mutex
	registered  map[string]time.Duration
	consumed    []string
	registerErr error
	consumeErr  error
}

func newRecordingStore() *recordingStore {
	return &recordingStore{registered: make(map[string]time.Duration)}
}

func (s *recordingStore) Register(_ context.Context, ticketID string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.registerErr != nil {
		return s.registerErr
	}
	s.registered[ticketID] = ttl
	return nil
}

func (s *recordingStore) Consume(_ context.Context, ticketID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.consumed = append(s.consumed, ticketID)
	if s.consumeErr != nil {
		return false, s.consumeErr
	}
	_, ok := s.registered[ticketID]
	delete(s.registered, ticketID)
	return ok, nil
}

func (s *recordingStore) calls() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.registered), len(s.consumed)
}

func newTestCodec(t *testing.T) *Codec {
	t.Helper()
	c, err := NewCodec(testKey, testBypass)
	if err != nil {
		t.Fatal(err)
	}
	return c
}

// ── Issue ────────────────────────────────────────────────────────────────────

func TestIssuer_IssueRegistersAndMints(t *testing.T) {
	rdb, mr := newTestRedis(t)
	codec := newTestCodec(t)
	iss := NewIssuer(codec, NewRedisStore(rdb, ""), "", time.Second, zap.NewNop())

	tk, err := iss.Issue(context.Background(), testAction)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	claims, err := codec.Decode(tk.Raw)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	std, ok := claims.(StandardClaims)
	if !ok {
		t.Fatalf("expected StandardClaims, got %T", claims)
	}
	if std.Action != testAction {
		t.Errorf("Action: got %+v want %+v", std.Action, testAction)
	}
	if std.Issuer != DefaultIssuer {
		t.Errorf("Issuer: got %q want %q", std.Issuer, DefaultIssuer)
	}
	id, err := uuid.Parse(std.TicketID)
	if err != nil {
		t.Fatalf("ticket id %q is not a UUID: %v", std.TicketID, err)
	}
	if id.Version() != 4 {
		t.Errorf("ticket id version: got %d want 4", id.Version())
	}

	key := DefaultKeyPrefix + std.TicketID
	if !mr.Exists(key) {
		t.Fatal("store entry not created")
	}
	if got := mr.TTL(key); got != 45*time.Second {
		t.Errorf("store TTL: got %v want 45s", got)
	}
}

func TestIssuer_FreshIDs(t *testing.T) {
	rdb, _ := newTestRedis(t)
	codec := newTestCodec(t)
	iss := NewIssuer(codec, NewRedisStore(rdb, ""), "", time.Second, zap.NewNop())

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		tk, err := iss.Issue(context.Background(), testAction)
		if err != nil {
			t.Fatal(err)
		}
		id := tk.Claims.(StandardClaims).TicketID
		if seen[id] {
			t.Fatalf("duplicate ticket id %q", id)
		}
		seen[id] = true
	}
}

func TestIssuer_ValidationBeforeStore(t *testing.T) {
	store := newRecordingStore()
	iss := NewIssuer(newTestCodec(t), store, "", time.Second, zap.NewNop())

	cases := map[string]ActionRequest{
		"missing message": {To: "Bob", From: "Alice", TimeToLiveSec: 45},
		"missing to":      {Message: "hi", From: "Alice", TimeToLiveSec: 45},
		"missing from":    {Message: "hi", To: "Bob", TimeToLiveSec: 45},
		"zero ttl":        {Message: "hi", To: "Bob", From: "Alice"},
		"negative ttl":    {Message: "hi", To: "Bob", From: "Alice", TimeToLiveSec: -5},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := iss.Issue(context.Background(), req); !errors.Is(err, ErrValidation) {
				t.Fatalf("expected ErrValidation, got %v", err)
			}
		})
	}
	if reg, cons := store.calls(); reg != 0 || cons != 0 {
		t.Fatalf("store touched on invalid input: register=%d consume=%d", reg, cons)
	}
}

func TestIssuer_StoreFailureReturnsNoTicket(t *testing.T) {
	store := newRecordingStore()
	store.registerErr = errors.New("redis down")
	iss := NewIssuer(newTestCodec(t), store, "", time.Second, zap.NewNop())

	tk, err := iss.Issue(context.Background(), testAction)
	if err == nil {
		t.Fatal("expected error")
	}
	if tk != nil {
		t.Fatal("ticket must not be returned when registration fails")
	}
}

func TestIssuer_DuplicateIDRefused(t *testing.T) {
	rdb, _ := newTestRedis(t)
	iss := NewIssuer(newTestCodec(t), NewRedisStore(rdb, ""), "", time.Second, zap.NewNop())
	iss.newID = func() (string, error) { return "fixed-id", nil }

	if _, err := iss.Issue(context.Background(), testAction); err != nil {
		t.Fatal(err)
	}
	if _, err := iss.Issue(context.Background(), testAction); !errors.Is(err, ErrTicketIDInUse) {
		t.Fatalf("expected ErrTicketIDInUse, got %v", err)
	}
}

func TestIssuer_CustomName(t *testing.T) {
	store := newRecordingStore()
	iss := NewIssuer(newTestCodec(t), store, "relay-v2", time.Second, zap.NewNop())

	tk, err := iss.Issue(context.Background(), testAction)
	if err != nil {
		t.Fatal(err)
	}
	if got := tk.Claims.IssuedBy(); got != "relay-v2" {
		t.Errorf("IssuedBy: got %q", got)
	}
}

func TestIssuer_StoreTimeoutBoundsRegister(t *testing.T) {
	iss := NewIssuer(newTestCodec(t), blockingStore{}, "", 50*time.Millisecond, zap.NewNop())

	start := time.Now()
	tk, err := iss.Issue(context.Background(), testAction)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected DeadlineExceeded, got %v", err)
	}
	if tk != nil {
		t.Fatal("ticket returned after register timeout")
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("timeout not applied: took %v", elapsed)
	}
}

func TestIssuer_HungRedisBoundedByStoreTimeout(t *testing.T) {
	rdb := NewRedisClient(newSilentRedis(t), "")
	t.Cleanup(func() { rdb.Close() })
	iss := NewIssuer(newTestCodec(t), NewRedisStore(rdb, ""), "", 150*time.Millisecond, zap.NewNop())

	start := time.Now()
	if _, err := iss.Issue(context.Background(), testAction); err == nil {
		t.Fatal("expected error from hung redis")
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("store timeout not applied to redis: took %v", elapsed)
	}
}
