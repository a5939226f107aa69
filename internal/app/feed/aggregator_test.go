package feed

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/oki-dokii/Axios-Blockchain-sub000/internal/domain"
)

// scriptedLedger implements domain.Ledger for feed tests. Each Subscribe
// call yields the next scripted batch of events, then closes the stream.
type scriptedLedger struct {
	mu      sync.Mutex
	batches [][]domain.Event
	calls   int
}

func (l *scriptedLedger) Subscribe(ctx context.Context, _ []domain.EventKind) (<-chan domain.Event, error) {
	l.mu.Lock()
	var batch []domain.Event
	if l.calls < len(l.batches) {
		batch = l.batches[l.calls]
	}
	l.calls++
	l.mu.Unlock()

	ch := make(chan domain.Event)
	go func() {
		defer close(ch)
		for _, ev := range batch {
			select {
			case ch <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch, nil
}

func (l *scriptedLedger) subscribeCalls() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls
}

func (l *scriptedLedger) SubmitLog(context.Context, domain.LogSubmission) (domain.TxHandle, error) {
	return domain.TxHandle{}, nil
}
func (l *scriptedLedger) SubmitVerify(context.Context, int64, bool, int64) (domain.TxHandle, error) {
	return domain.TxHandle{}, nil
}
func (l *scriptedLedger) AwaitReceipt(context.Context, domain.TxHandle) (*domain.Receipt, error) {
	return nil, nil
}
func (l *scriptedLedger) Entries(context.Context, domain.EventKind, int64) ([]domain.Event, error) {
	return nil, nil
}

func event(kind domain.EventKind, tx string, payload map[string]string) domain.Event {
	return domain.Event{Kind: kind, TxHash: tx, Payload: payload, BlockNumber: 1}
}

func newTestAggregator() *Aggregator {
	return New(DefaultConfig(), &scriptedLedger{})
}

// ─── Bounded History (Scenario E) ───────────────────────────────────────────

func TestIngest_BoundedHistory(t *testing.T) {
	g := newTestAggregator()

	for i := 0; i < 60; i++ {
		g.Ingest(event(domain.EventCreditsMinted, fmt.Sprintf("0x%03d", i), nil))
	}

	if g.Len() != 50 {
		t.Fatalf("Len() = %d, want 50", g.Len())
	}

	got := g.Query(domain.RoleAdmin, "", "", 50)
	if len(got) != 50 {
		t.Fatalf("Query(limit=50) returned %d, want 50", len(got))
	}
	// Newest first: events 59 down to 10; the oldest 10 were evicted.
	if got[0].TxHash != "0x059" {
		t.Errorf("newest = %s, want 0x059", got[0].TxHash)
	}
	if got[49].TxHash != "0x010" {
		t.Errorf("oldest kept = %s, want 0x010", got[49].TxHash)
	}
}

func TestIngest_EvictedEventCanReappear(t *testing.T) {
	g := New(Config{Capacity: 2}, &scriptedLedger{})

	g.Ingest(event(domain.EventStaked, "0x1", nil))
	g.Ingest(event(domain.EventStaked, "0x2", nil))
	g.Ingest(event(domain.EventStaked, "0x3", nil)) // evicts 0x1

	// The dedupe window follows the live history, so an evicted event
	// is accepted again (e.g. observed after a reconnect replay).
	if !g.Ingest(event(domain.EventStaked, "0x1", nil)) {
		t.Error("evicted event should be ingestable again")
	}
}

// ─── Deduplication ──────────────────────────────────────────────────────────

func TestIngest_Deduplicates(t *testing.T) {
	g := newTestAggregator()

	if !g.Ingest(event(domain.EventCreditsMinted, "0xabc", nil)) {
		t.Fatal("first ingest should be accepted")
	}
	if g.Ingest(event(domain.EventCreditsMinted, "0xabc", nil)) {
		t.Error("duplicate (tx, kind) should be dropped")
	}
	// Same tx, different kind is a distinct event (one tx can emit both).
	if !g.Ingest(event(domain.EventActionVerified, "0xabc", nil)) {
		t.Error("same tx with different kind should be accepted")
	}
	if g.Len() != 2 {
		t.Errorf("Len() = %d, want 2", g.Len())
	}
}

func TestIngest_UnknownKindDropped(t *testing.T) {
	g := newTestAggregator()
	if g.Ingest(event(domain.EventKind("mystery"), "0x1", nil)) {
		t.Error("unknown kind should be dropped")
	}
	if g.Len() != 0 {
		t.Errorf("Len() = %d, want 0", g.Len())
	}
}

// ─── Query ──────────────────────────────────────────────────────────────────

func TestQuery_LimitAndOrder(t *testing.T) {
	g := newTestAggregator()
	for i := 0; i < 20; i++ {
		g.Ingest(event(domain.EventCreditsMinted, fmt.Sprintf("0x%02d", i), nil))
	}

	got := g.Query(domain.RoleAdmin, "", "", 5)
	if len(got) != 5 {
		t.Fatalf("Query(limit=5) returned %d, want 5", len(got))
	}
	for i := 0; i < 4; i++ {
		if got[i].TxHash <= got[i+1].TxHash {
			t.Errorf("events not newest-first: %s before %s", got[i].TxHash, got[i+1].TxHash)
		}
	}
}

func TestQuery_DefaultLimit(t *testing.T) {
	g := newTestAggregator()
	for i := 0; i < 20; i++ {
		g.Ingest(event(domain.EventCreditsMinted, fmt.Sprintf("0x%02d", i), nil))
	}
	if got := g.Query(domain.RoleAdmin, "", "", 0); len(got) != DefaultQueryLimit {
		t.Errorf("Query(limit=0) returned %d, want %d", len(got), DefaultQueryLimit)
	}
}

func TestQuery_RoleFilter(t *testing.T) {
	g := newTestAggregator()
	g.Ingest(event(domain.EventActionLogged, "0x1", map[string]string{"claimant": "0xaaa"}))
	g.Ingest(event(domain.EventPurchaseExecuted, "0x2", map[string]string{"buyer": "0xaaa"}))
	g.Ingest(event(domain.EventStaked, "0x3", map[string]string{"staker": "0xbbb"}))

	verifier := g.Query(domain.RoleVerifier, "", "", 10)
	if len(verifier) != 1 {
		t.Fatalf("verifier sees %d events, want 1", len(verifier))
	}
	if verifier[0].Kind != domain.EventActionLogged {
		t.Errorf("verifier sees %s, want action_logged only", verifier[0].Kind)
	}

	participant := g.Query(domain.RoleParticipant, "0xaaa", "", 10)
	if len(participant) != 2 {
		t.Fatalf("participant sees %d events, want 2", len(participant))
	}
	for _, ev := range participant {
		if ev.Kind == domain.EventStaked {
			t.Error("participant must not see another address's staking event")
		}
	}

	admin := g.Query(domain.RoleAdmin, "", "", 10)
	if len(admin) != 3 {
		t.Errorf("admin sees %d events, want 3", len(admin))
	}
}

func TestQuery_KindFilter(t *testing.T) {
	g := newTestAggregator()
	g.Ingest(event(domain.EventActionLogged, "0x1", nil))
	g.Ingest(event(domain.EventCreditsMinted, "0x2", nil))
	g.Ingest(event(domain.EventActionLogged, "0x3", nil))

	got := g.Query(domain.RoleAdmin, "", domain.EventActionLogged, 10)
	if len(got) != 2 {
		t.Fatalf("kind-filtered query returned %d, want 2", len(got))
	}
	for _, ev := range got {
		if ev.Kind != domain.EventActionLogged {
			t.Errorf("unexpected kind %s", ev.Kind)
		}
	}
}

// ─── Push Subscribers ───────────────────────────────────────────────────────

func TestSubscribe_FanOut(t *testing.T) {
	g := newTestAggregator()

	ch, unsub := g.Subscribe()
	defer unsub()

	g.Ingest(event(domain.EventCreditsMinted, "0x1", nil))

	select {
	case ev := <-ch:
		if ev.TxHash != "0x1" {
			t.Errorf("received tx %s, want 0x1", ev.TxHash)
		}
	case <-time.After(time.Second):
		t.Fatal("subscriber did not receive event")
	}
}

func TestSubscribe_Unsubscribe(t *testing.T) {
	g := newTestAggregator()
	_, unsub := g.Subscribe()
	if g.SubscriberCount() != 1 {
		t.Fatalf("SubscriberCount() = %d, want 1", g.SubscriberCount())
	}
	unsub()
	unsub() // double-unsubscribe is safe
	if g.SubscriberCount() != 0 {
		t.Errorf("SubscriberCount() = %d, want 0", g.SubscriberCount())
	}
	// Broadcasting after unsubscribe must not panic on the closed channel.
	g.Ingest(event(domain.EventCreditsMinted, "0x9", nil))
}

// ─── Subscription Loop ──────────────────────────────────────────────────────

func TestRun_IngestsAndResubscribes(t *testing.T) {
	ledger := &scriptedLedger{batches: [][]domain.Event{
		{event(domain.EventActionLogged, "0x1", nil)},
		{event(domain.EventActionVerified, "0x2", nil)},
	}}
	cfg := DefaultConfig()
	cfg.ReconnectMin = time.Millisecond
	cfg.ReconnectMax = 5 * time.Millisecond
	g := New(cfg, ledger)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		g.Run(ctx)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for g.Len() < 2 {
		select {
		case <-deadline:
			t.Fatalf("Len() = %d after deadline, want 2", g.Len())
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	<-done

	// Both scripted streams closed, so the loop resubscribed at least twice.
	if ledger.subscribeCalls() < 2 {
		t.Errorf("subscribe calls = %d, want >= 2", ledger.subscribeCalls())
	}

	got := g.Query(domain.RoleAdmin, "", "", 10)
	if len(got) != 2 {
		t.Fatalf("Query returned %d events, want 2", len(got))
	}
	if got[0].TxHash != "0x2" || got[1].TxHash != "0x1" {
		t.Errorf("order = [%s %s], want [0x2 0x1]", got[0].TxHash, got[1].TxHash)
	}
}
