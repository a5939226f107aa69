// Package chainsync drives the on-chain side of a verification decision.
//
// For a VERIFIED action with awarded credits, the coordinator guarantees
// the ledger eventually holds exactly one log entry and exactly one
// verification for that action, and mirrors the resulting identifiers
// back into the record store. The sequence is:
//
//  1. resolve the claimant's on-chain address
//  2. submit-log, await confirmation, extract the assigned chain ID
//     from the receipt's action-logged event
//  3. persist chain ID + log tx before verifying
//  4. submit-verify with the chain ID and awarded amount
//  5. await confirmation, persist the verify tx
//
// Every failure resolves to one of the well-defined states in the domain
// error taxonomy; a retry resumes from the first incomplete step because
// progress is tracked by the persisted chain_id / tx fields, never
// re-derived from scratch.
package chainsync

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/oki-dokii/Axios-Blockchain-sub000/internal/domain"
	"github.com/oki-dokii/Axios-Blockchain-sub000/internal/infra/observability"
)

// Config controls coordinator behavior.
type Config struct {
	// ConfirmTimeout bounds each wait for ledger confirmation.
	// On expiry the call returns ErrChainPending and the caller retries
	// later; the action never ends up in an ambiguous status.
	ConfirmTimeout time.Duration
}

// DefaultConfig returns safe coordinator defaults.
func DefaultConfig() Config {
	return Config{ConfirmTimeout: 2 * time.Minute}
}

// Coordinator sequences off-chain and on-chain writes for verified actions.
type Coordinator struct {
	cfg    Config
	store  domain.RecordStore
	ledger domain.Ledger

	// inFlight is the per-action advisory lock. A second reconcile for
	// the same action is rejected rather than queued; the caller retries
	// once the in-flight call resolves. Different actions proceed
	// concurrently. Sufficient for a single-instance deployment; a
	// multi-instance deployment additionally relies on the store's
	// unique chain_id constraint.
	mu       sync.Mutex
	inFlight map[string]struct{}
}

// New creates a coordinator.
func New(cfg Config, store domain.RecordStore, ledger domain.Ledger) *Coordinator {
	if cfg.ConfirmTimeout <= 0 {
		cfg.ConfirmTimeout = DefaultConfig().ConfirmTimeout
	}
	return &Coordinator{
		cfg:      cfg,
		store:    store,
		ledger:   ledger,
		inFlight: make(map[string]struct{}),
	}
}

// ReconcileVerification drives the two-step log-then-verify sequence for
// the given action and reports the resulting sync state. It is safe to
// call repeatedly: completed steps are skipped, the chain ID is never
// reallocated, and a concurrent call for the same action is rejected
// with ErrReconcileInFlight.
func (c *Coordinator) ReconcileVerification(ctx context.Context, actionID string) (domain.SyncState, error) {
	if !c.acquire(actionID) {
		return domain.SyncPending, domain.ErrReconcileInFlight
	}
	defer c.release(actionID)

	state, err := c.reconcile(ctx, actionID)
	observability.ReconcileTotal.WithLabelValues(string(state)).Inc()
	return state, err
}

func (c *Coordinator) reconcile(ctx context.Context, actionID string) (domain.SyncState, error) {
	a, err := c.store.GetAction(ctx, actionID)
	if err != nil {
		return domain.SyncFailed, err
	}
	if a.Status != domain.StatusVerified {
		return domain.SyncNone, fmt.Errorf("action %s is %s: %w", a.ID, a.Status, domain.ErrInvalidState)
	}
	// Nothing to mint; zero-award verifications never touch the chain.
	if a.AwardedCredits <= 0 {
		return domain.SyncNone, nil
	}
	if a.FullySynced() {
		return domain.SyncComplete, nil
	}

	// Step 2: ensure the action has an on-chain log entry.
	if a.ChainID == nil {
		if err := c.logAction(ctx, a); err != nil {
			return stateFor(err), err
		}
	}

	// Steps 3-5: verify on chain and mirror the result.
	if a.ChainTxVerify == nil {
		if err := c.verifyAction(ctx, a); err != nil {
			return stateFor(err), err
		}
	}
	return domain.SyncComplete, nil
}

// logAction performs steps 2a-2e: resolve the claimant address, submit
// the log transaction, recover the ledger-assigned chain ID from the
// receipt, and persist the linkage. On success a.ChainID is populated.
func (c *Coordinator) logAction(ctx context.Context, a *domain.Action) error {
	addr, err := c.store.ClaimantAddress(ctx, a.ClaimantID)
	if err != nil {
		if errors.Is(err, domain.ErrMissingAddress) {
			return fmt.Errorf("action %s claimant %s: %w", a.ID, a.ClaimantID, domain.ErrMissingAddress)
		}
		return err
	}

	handle, err := c.ledger.SubmitLog(ctx, domain.LogSubmission{
		Title:       a.Title,
		Description: a.Description,
		Category:    a.Category,
		Location:    a.Location,
		Claimant:    addr,
		Amount:      a.AwardedCredits,
	})
	if err != nil {
		return &domain.ChainCallError{Op: "submit-log", Err: err}
	}
	observability.ChainSubmissions.WithLabelValues("log").Inc()

	receipt, err := c.awaitReceipt(ctx, handle, "log")
	if err != nil {
		return err
	}

	chainID, err := receipt.LoggedChainID()
	if err != nil {
		// Terminal: the receipt confirmed but carries no action-logged
		// event: a ledger/ABI mismatch an operator has to look at.
		return fmt.Errorf("tx %s: %w", receipt.TxHash, err)
	}

	tx := domain.TxRef{Hash: receipt.TxHash, Block: receipt.BlockNumber}
	if err := c.store.SetChainLog(ctx, a.ID, chainID, tx); err != nil {
		// The chain has advanced but the store does not reflect it.
		// RecoverUnlinked re-derives the linkage from the ledger later.
		return fmt.Errorf("persisting chain id %d for action %s: %v: %w",
			chainID, a.ID, err, domain.ErrPartialSync)
	}

	a.ChainID = &chainID
	a.ChainTxLog = &tx
	log.Printf("chainsync: action %s logged as chain entry %d (tx %s)", a.ID, chainID, receipt.TxHash)
	return nil
}

// verifyAction performs steps 3-5 for an action that already has a chain ID.
func (c *Coordinator) verifyAction(ctx context.Context, a *domain.Action) error {
	handle, err := c.ledger.SubmitVerify(ctx, *a.ChainID, true, a.AwardedCredits)
	if err != nil {
		return &domain.ChainCallError{Op: "submit-verify", Err: err}
	}
	observability.ChainSubmissions.WithLabelValues("verify").Inc()

	receipt, err := c.awaitReceipt(ctx, handle, "verify")
	if err != nil {
		return err
	}

	tx := domain.TxRef{Hash: receipt.TxHash, Block: receipt.BlockNumber}
	if err := c.store.SetChainVerify(ctx, a.ID, tx); err != nil {
		return fmt.Errorf("persisting verify tx for action %s: %v: %w", a.ID, err, domain.ErrPartialSync)
	}

	a.ChainTxVerify = &tx
	log.Printf("chainsync: action %s verified on chain (entry %d, tx %s)", a.ID, *a.ChainID, receipt.TxHash)
	return nil
}

// awaitReceipt waits for confirmation bounded by ConfirmTimeout.
// Cancellation propagates to the underlying network call; expiry maps to
// ErrChainPending.
func (c *Coordinator) awaitReceipt(ctx context.Context, h domain.TxHandle, op string) (*domain.Receipt, error) {
	waitCtx, cancel := context.WithTimeout(ctx, c.cfg.ConfirmTimeout)
	defer cancel()

	start := time.Now()
	receipt, err := c.ledger.AwaitReceipt(waitCtx, h)
	if err != nil {
		if waitCtx.Err() != nil {
			return nil, fmt.Errorf("awaiting %s confirmation for tx %s: %w", op, h.Hash, domain.ErrChainPending)
		}
		return nil, &domain.ChainCallError{Op: "await-" + op, Err: err}
	}
	observability.ConfirmWait.WithLabelValues(op).Observe(time.Since(start).Seconds())
	return receipt, nil
}

// stateFor maps a reconcile error to the sync state reported to callers.
func stateFor(err error) domain.SyncState {
	switch {
	case err == nil:
		return domain.SyncComplete
	case errors.Is(err, domain.ErrPartialSync):
		return domain.SyncPartial
	case errors.Is(err, domain.ErrMissingAddress), errors.Is(err, domain.ErrEventNotFound):
		return domain.SyncFailed
	case domain.Retryable(err):
		return domain.SyncPending
	default:
		return domain.SyncFailed
	}
}

func (c *Coordinator) acquire(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, busy := c.inFlight[id]; busy {
		return false
	}
	c.inFlight[id] = struct{}{}
	return true
}

func (c *Coordinator) release(id string) {
	c.mu.Lock()
	delete(c.inFlight, id)
	c.mu.Unlock()
}
