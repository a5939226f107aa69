package resync

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/oki-dokii/Axios-Blockchain-sub000/internal/domain"
)

// ─── Fakes ──────────────────────────────────────────────────────────────────

type listStore struct {
	domain.RecordStore
	actions []domain.Action
	err     error
}

func (s *listStore) ListActionsByStatus(_ context.Context, status domain.ActionStatus) ([]domain.Action, error) {
	if s.err != nil {
		return nil, s.err
	}
	var out []domain.Action
	for _, a := range s.actions {
		if a.Status == status {
			out = append(out, a)
		}
	}
	return out, nil
}

type stubReconciler struct {
	mu     sync.Mutex
	calls  []string
	states map[string]domain.SyncState
	errs   map[string]error
}

func newStubReconciler() *stubReconciler {
	return &stubReconciler{
		states: make(map[string]domain.SyncState),
		errs:   make(map[string]error),
	}
}

func (r *stubReconciler) ReconcileVerification(_ context.Context, id string) (domain.SyncState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, id)
	if err, ok := r.errs[id]; ok {
		return r.states[id], err
	}
	if st, ok := r.states[id]; ok {
		return st, nil
	}
	return domain.SyncComplete, nil
}

func (r *stubReconciler) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

func verifiedAction(id string, awarded int64) domain.Action {
	return domain.Action{
		ID:             id,
		Status:         domain.StatusVerified,
		AwardedCredits: awarded,
	}
}

// ─── Tests ──────────────────────────────────────────────────────────────────

func TestScan_ReconcilesUnsyncedVerified(t *testing.T) {
	chainID := int64(7)
	synced := verifiedAction("a-synced", 50)
	synced.ChainID = &chainID
	synced.ChainTxVerify = &domain.TxRef{Hash: "0xv"}

	store := &listStore{actions: []domain.Action{
		verifiedAction("a-1", 50),
		verifiedAction("a-2", 20),
		verifiedAction("a-zero", 0), // nothing to mint
		synced,                      // already complete
		{ID: "a-pending", Status: domain.StatusPending},
	}}
	rec := newStubReconciler()

	w := New(Config{}, store, rec)
	n, err := w.Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan() error: %v", err)
	}
	if n != 2 {
		t.Errorf("Scan() = %d synced, want 2", n)
	}
	if got := rec.callCount(); got != 2 {
		t.Errorf("reconciler called %d times, want 2", got)
	}
}

func TestScan_PartialFailuresDoNotCount(t *testing.T) {
	store := &listStore{actions: []domain.Action{
		verifiedAction("a-ok", 50),
		verifiedAction("a-stuck", 50),
		verifiedAction("a-terminal", 50),
	}}
	rec := newStubReconciler()
	rec.states["a-stuck"] = domain.SyncPending
	rec.errs["a-stuck"] = domain.ErrChainPending
	rec.states["a-terminal"] = domain.SyncFailed
	rec.errs["a-terminal"] = domain.ErrMissingAddress

	w := New(Config{}, store, rec)
	n, err := w.Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan() error: %v", err)
	}
	if n != 1 {
		t.Errorf("Scan() = %d synced, want 1", n)
	}
	if got := rec.callCount(); got != 3 {
		t.Errorf("reconciler called %d times, want 3", got)
	}
}

func TestScan_StoreError(t *testing.T) {
	store := &listStore{err: context.DeadlineExceeded}
	w := New(Config{}, store, newStubReconciler())

	if _, err := w.Scan(context.Background()); err == nil {
		t.Error("Scan() should surface store errors")
	}
}

func TestRun_ScansOnInterval(t *testing.T) {
	store := &listStore{actions: []domain.Action{verifiedAction("a-1", 50)}}
	rec := newStubReconciler()

	w := New(Config{Interval: 5 * time.Millisecond}, store, rec)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	deadline := time.After(time.Second)
	for rec.callCount() < 2 {
		select {
		case <-deadline:
			t.Fatal("worker did not scan repeatedly")
		case <-time.After(time.Millisecond):
		}
	}
	cancel()
	<-done
}
