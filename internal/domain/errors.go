package domain

import (
	"errors"
	"fmt"
)

// ─── Sentinel Errors ────────────────────────────────────────────────────────
// Domain errors are pure, with no infrastructure dependency.
//
// ErrMissingAddress and ErrEventNotFound are terminal: the off-chain
// decision stands, but chain sync needs operator intervention and is
// never auto-retried. ErrChainPending and ErrPartialSync are retryable:
// the action is in a well-defined intermediate state and a later
// ReconcileVerification resumes from the first incomplete step.

var (
	// Record errors
	ErrNotFound     = errors.New("action not found")
	ErrInvalidState = errors.New("action is not pending review")

	// Chain-sync errors
	ErrMissingAddress = errors.New("claimant has no on-chain address")
	ErrEventNotFound  = errors.New("log confirmation event not found in receipt")
	ErrChainPending   = errors.New("chain confirmation pending")
	ErrPartialSync    = errors.New("chain state ahead of off-chain store")

	// ErrReconcileInFlight: another reconcile holds the per-action lock.
	// Safe to retry once the in-flight call resolves.
	ErrReconcileInFlight = errors.New("reconciliation already in progress for action")
)

// ChainCallError wraps any other ledger failure. All ChainCallErrors are
// retryable.
type ChainCallError struct {
	Op  string // ledger operation that failed, e.g. "submit-log"
	Err error
}

func (e *ChainCallError) Error() string {
	return fmt.Sprintf("chain call %s: %v", e.Op, e.Err)
}

func (e *ChainCallError) Unwrap() error { return e.Err }

// Retryable reports whether err leaves the action in a state that a
// later ReconcileVerification call can resume from.
func Retryable(err error) bool {
	if errors.Is(err, ErrChainPending) ||
		errors.Is(err, ErrPartialSync) ||
		errors.Is(err, ErrReconcileInFlight) {
		return true
	}
	var cce *ChainCallError
	return errors.As(err, &cce)
}
