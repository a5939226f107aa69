// Package domain contains pure business types with ZERO infrastructure imports.
// This is the innermost ring of clean architecture; it depends on nothing.
package domain

import "time"

// ─── Action Lifecycle ───────────────────────────────────────────────────────

// ActionStatus is the off-chain lifecycle status of a claimed action.
// An action starts PENDING and transitions exactly once to VERIFIED or
// REJECTED. There are no further transitions.
type ActionStatus string

const (
	StatusPending  ActionStatus = "PENDING"
	StatusVerified ActionStatus = "VERIFIED"
	StatusRejected ActionStatus = "REJECTED"
)

// Valid reports whether s is a known status value.
func (s ActionStatus) Valid() bool {
	switch s {
	case StatusPending, StatusVerified, StatusRejected:
		return true
	}
	return false
}

// Terminal reports whether the status admits no further transitions.
func (s ActionStatus) Terminal() bool {
	return s == StatusVerified || s == StatusRejected
}

// TxRef is a confirmed on-chain transaction reference.
type TxRef struct {
	Hash  string `json:"hash"`
	Block int64  `json:"block"`
}

// Action is the off-chain record of a claimed environmental action.
//
// ChainID is assigned by the ledger the first time the action is logged
// on chain and is immutable once set; a given action maps to at most one
// ledger entry. The chain-sync coordinator is the only writer.
type Action struct {
	ID          string       `json:"id"`
	ClaimantID  string       `json:"claimant_id"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Category    string       `json:"category"`
	Location    string       `json:"location"`
	Quantity    float64      `json:"quantity"`
	Unit        string       `json:"unit"`
	Status      ActionStatus `json:"status"`

	// ClaimedCredits is the off-chain estimate computed at creation.
	// AwardedCredits is set only on the transition to VERIFIED and is the
	// authoritative amount used for on-chain minting.
	ClaimedCredits int64 `json:"claimed_credits"`
	AwardedCredits int64 `json:"awarded_credits"`

	Comments string `json:"comments,omitempty"`

	// Chain linkage, written back by the coordinator after each successful
	// on-chain step. ChainTxVerify can only be set once ChainID is set.
	ChainID       *int64 `json:"chain_id,omitempty"`
	ChainTxLog    *TxRef `json:"chain_tx_log,omitempty"`
	ChainTxVerify *TxRef `json:"chain_tx_verify,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	DecidedAt time.Time `json:"decided_at,omitzero"`
}

// Logged reports whether the action has an on-chain ledger entry.
func (a *Action) Logged() bool { return a.ChainID != nil }

// FullySynced reports whether both on-chain steps are mirrored off-chain.
func (a *Action) FullySynced() bool {
	return a.ChainID != nil && a.ChainTxVerify != nil
}

// SyncState summarizes chain-sync progress for a decided action,
// reported to the UI alongside the decision result.
type SyncState string

const (
	// SyncNone: no chain interaction required (rejected, or zero award).
	SyncNone SyncState = "none"
	// SyncComplete: logged and verified on chain, linkage persisted.
	SyncComplete SyncState = "synced"
	// SyncPending: a chain step has not confirmed yet; retry later.
	SyncPending SyncState = "pending"
	// SyncPartial: chain is ahead of the off-chain store; retry later.
	SyncPartial SyncState = "partial"
	// SyncFailed: terminal failure requiring operator intervention.
	SyncFailed SyncState = "failed"
)
