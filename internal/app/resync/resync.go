// Package resync retries chain synchronization in the background.
//
// A verified action can be left behind by a gateway outage, a slow
// confirmation, or a crash mid-reconcile. The resync worker:
//
//  1. Periodically scans for VERIFIED actions that are not fully synced
//  2. Skips zero-award actions (nothing to mint)
//  3. Reconciles each candidate under a concurrency cap
//  4. Leaves terminal failures alone after logging them once per scan
//
// Reconciliation itself is idempotent, so the worker never needs to
// track per-action retry state; it just re-runs the first incomplete
// step each pass.
package resync

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/oki-dokii/Axios-Blockchain-sub000/internal/domain"
)

// Reconciler drives the log-then-verify sequence for one action.
type Reconciler interface {
	ReconcileVerification(ctx context.Context, actionID string) (domain.SyncState, error)
}

// Config controls worker behavior.
type Config struct {
	Interval      time.Duration // scan cadence (default: 1m)
	MaxConcurrent int           // concurrent reconciles per scan (default: 4)
}

// DefaultConfig returns safe worker defaults.
func DefaultConfig() Config {
	return Config{
		Interval:      time.Minute,
		MaxConcurrent: 4,
	}
}

// Worker re-drives chain sync for actions the happy path left behind.
type Worker struct {
	cfg        Config
	store      domain.RecordStore
	reconciler Reconciler
}

// New creates a resync worker.
func New(cfg Config, store domain.RecordStore, reconciler Reconciler) *Worker {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultConfig().Interval
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = DefaultConfig().MaxConcurrent
	}
	return &Worker{cfg: cfg, store: store, reconciler: reconciler}
}

// Run scans on the configured interval until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n, err := w.Scan(ctx); err != nil {
				log.Printf("resync scan: %v", err)
			} else if n > 0 {
				log.Printf("resync: completed %d action(s)", n)
			}
		}
	}
}

// Scan runs one resync pass and reports how many actions reached full
// sync. Candidates are reconciled concurrently under the configured cap.
func (w *Worker) Scan(ctx context.Context) (int, error) {
	verified, err := w.store.ListActionsByStatus(ctx, domain.StatusVerified)
	if err != nil {
		return 0, err
	}

	sem := make(chan struct{}, w.cfg.MaxConcurrent)
	var wg sync.WaitGroup
	var mu sync.Mutex
	synced := 0

	for _, a := range verified {
		if a.AwardedCredits <= 0 || a.FullySynced() {
			continue
		}
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			wg.Wait()
			return synced, ctx.Err()
		}

		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			defer func() { <-sem }()

			state, err := w.reconciler.ReconcileVerification(ctx, id)
			switch {
			case err == nil && state == domain.SyncComplete:
				mu.Lock()
				synced++
				mu.Unlock()
			case err != nil && !domain.Retryable(err):
				// Needs operator attention; the next scan will log it
				// again, but nothing here can fix it.
				log.Printf("resync %s: %v", id, err)
			}
		}(a.ID)
	}

	wg.Wait()
	return synced, nil
}
