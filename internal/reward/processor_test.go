package reward

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/opinioncoins/backend/internal/ledger"
	"github.com/opinioncoins/backend/internal/models"
)

const testSecret = "s3cr3t"

// fakeLedger enforces external_ref uniqueness under a mutex, mirroring what
// the database unique index does for the real store.
type fakeLedger struct {
	mu      sync.Mutex
	byRef   map[string]*models.LedgerEntry
	entries int

	findErr   error
	creditErr error
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{byRef: map[string]*models.LedgerEntry{}}
}

func (f *fakeLedger) FindByExternalRef(_ context.Context, ref string) (*models.LedgerEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.findErr != nil {
		return nil, f.findErr
	}
	return f.byRef[ref], nil
}

func (f *fakeLedger) Credit(_ context.Context, e *models.LedgerEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.creditErr != nil {
		return f.creditErr
	}
	if e.ExternalRef != nil {
		if _, exists := f.byRef[*e.ExternalRef]; exists {
			return ledger.ErrDuplicateRef
		}
		f.byRef[*e.ExternalRef] = e
	}
	f.entries++
	return nil
}

func validNotification(userID, txID, revenue string) Notification {
	return Notification{
		UserID:        userID,
		TransactionID: txID,
		Revenue:       revenue,
		Status:        StatusCompleted,
		Hash:          ComputeSignature(userID, txID, revenue, testSecret),
	}
}

func TestProcess_CreditsCompletedSurvey(t *testing.T) {
	store := newFakeLedger()
	p := NewProcessor(store, testSecret, nil)

	userID := uuid.New().String()
	n := validNotification(userID, "t1", "1.5")

	out, err := p.Process(context.Background(), n)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if out.Coins != 150 {
		t.Errorf("coins = %d, want 150", out.Coins)
	}
	if out.Duplicate {
		t.Error("first delivery flagged duplicate")
	}
	entry := store.byRef["t1"]
	if entry == nil {
		t.Fatal("no ledger entry committed")
	}
	if entry.Kind != models.LedgerKindTheoremReach {
		t.Errorf("kind = %s", entry.Kind)
	}
	if entry.UserID.String() != userID {
		t.Errorf("user_id = %s, want %s", entry.UserID, userID)
	}
}

func TestProcess_DuplicateDeliveryCommitsOnce(t *testing.T) {
	store := newFakeLedger()
	p := NewProcessor(store, testSecret, nil)
	n := validNotification(uuid.New().String(), "t1", "1.5")

	first, err := p.Process(context.Background(), n)
	if err != nil {
		t.Fatalf("first Process: %v", err)
	}
	second, err := p.Process(context.Background(), n)
	if err != nil {
		t.Fatalf("second Process: %v", err)
	}
	if second.Coins != first.Coins {
		t.Errorf("second delivery awarded %d, first %d", second.Coins, first.Coins)
	}
	if !second.Duplicate {
		t.Error("second delivery not flagged duplicate")
	}
	if store.entries != 1 {
		t.Errorf("ledger has %d entries, want 1", store.entries)
	}
}

func TestProcess_TamperedHash(t *testing.T) {
	store := newFakeLedger()
	p := NewProcessor(store, testSecret, nil)

	n := validNotification(uuid.New().String(), "t1", "1.5")
	n.Hash = ComputeSignature(n.UserID, n.TransactionID, "9.99", testSecret)

	_, err := p.Process(context.Background(), n)
	if !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("err = %v, want ErrUnauthenticated", err)
	}
	if store.entries != 0 {
		t.Error("tampered delivery created a ledger entry")
	}
}

func TestProcess_NotCompleted(t *testing.T) {
	store := newFakeLedger()
	p := NewProcessor(store, testSecret, nil)

	n := validNotification(uuid.New().String(), "t1", "1.5")
	n.Status = "incomplete"

	out, err := p.Process(context.Background(), n)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if out.Coins != 0 {
		t.Errorf("coins = %d, want 0", out.Coins)
	}
	if store.entries != 0 {
		t.Error("non-completed survey created a ledger entry")
	}
}

func TestProcess_MissingFields(t *testing.T) {
	p := NewProcessor(newFakeLedger(), testSecret, nil)

	for _, mutate := range []func(*Notification){
		func(n *Notification) { n.UserID = "" },
		func(n *Notification) { n.TransactionID = "" },
		func(n *Notification) { n.Revenue = "" },
		func(n *Notification) { n.Hash = "" },
	} {
		n := validNotification(uuid.New().String(), "t1", "1.5")
		mutate(&n)
		if _, err := p.Process(context.Background(), n); !errors.Is(err, ErrMalformedPayload) {
			t.Errorf("err = %v, want ErrMalformedPayload", err)
		}
	}
}

func TestProcess_NoSecret(t *testing.T) {
	p := NewProcessor(newFakeLedger(), "", nil)
	_, err := p.Process(context.Background(), validNotification(uuid.New().String(), "t1", "1.5"))
	if !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("err = %v, want ErrNotConfigured", err)
	}
}

func TestProcess_InsertRaceResolvesAsDuplicate(t *testing.T) {
	// Simulate losing the unique-constraint race: the pre-check sees
	// nothing, the insert collides, and the retry of the duplicate-check
	// path must surface the winner's outcome.
	store := newFakeLedger()
	p := NewProcessor(store, testSecret, nil)
	n := validNotification(uuid.New().String(), "t1", "1.5")

	winner := &models.LedgerEntry{ID: uuid.New(), Amount: 150, Kind: models.LedgerKindTheoremReach}
	store.creditErr = ledger.ErrDuplicateRef
	raced := false
	// First find returns nothing, the post-insert find returns the winner.
	findCount := 0
	p.ledger = findHook{store: store, hook: func() *models.LedgerEntry {
		findCount++
		if findCount > 1 {
			raced = true
			return winner
		}
		return nil
	}}

	out, err := p.Process(context.Background(), n)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if !out.Duplicate || out.Coins != 150 {
		t.Errorf("outcome = %+v, want duplicate with 150 coins", out)
	}
	if !raced {
		t.Error("duplicate-check path was not retried after insert failure")
	}
}

func TestProcess_StorageFailure(t *testing.T) {
	store := newFakeLedger()
	store.creditErr = fmt.Errorf("connection refused")
	p := NewProcessor(store, testSecret, nil)

	_, err := p.Process(context.Background(), validNotification(uuid.New().String(), "t1", "1.5"))
	if !errors.Is(err, ErrStorageFailure) {
		t.Fatalf("err = %v, want ErrStorageFailure", err)
	}
}

func TestProcess_ConcurrentDuplicates(t *testing.T) {
	store := newFakeLedger()
	p := NewProcessor(store, testSecret, nil)
	n := validNotification(uuid.New().String(), "t1", "1.5")

	const workers = 8
	var wg sync.WaitGroup
	outcomes := make([]Outcome, workers)
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			outcomes[i], errs[i] = p.Process(context.Background(), n)
		}(i)
	}
	wg.Wait()

	if store.entries != 1 {
		t.Fatalf("ledger has %d entries for one transaction_id, want 1", store.entries)
	}
	for i := 0; i < workers; i++ {
		if errs[i] != nil {
			t.Errorf("worker %d: %v", i, errs[i])
			continue
		}
		if outcomes[i].Coins != 150 {
			t.Errorf("worker %d awarded %d coins, want 150", i, outcomes[i].Coins)
		}
	}
}

func TestCoinsFromRevenue_Deterministic(t *testing.T) {
	cases := []struct {
		revenue float64
		want    int64
	}{
		{1.5, 150},
		{0, 0},
		{0.004, 0},
		{0.01, 1},
		{2.34, 234},
		{10, 1000},
	}
	for _, c := range cases {
		for i := 0; i < 3; i++ {
			if got := CoinsFromRevenue(c.revenue); got != c.want {
				t.Errorf("CoinsFromRevenue(%v) = %d, want %d", c.revenue, got, c.want)
			}
		}
	}
}

// findHook wraps a fakeLedger, overriding FindByExternalRef results.
type findHook struct {
	store *fakeLedger
	hook  func() *models.LedgerEntry
}

func (f findHook) FindByExternalRef(context.Context, string) (*models.LedgerEntry, error) {
	return f.hook(), nil
}

func (f findHook) Credit(ctx context.Context, e *models.LedgerEntry) error {
	return f.store.Credit(ctx, e)
}
