package domain

import (
	"context"
	"strconv"
	"time"
)

// ─── Collaborator Interfaces ────────────────────────────────────────────────
// These interfaces define boundaries between layers.
// Infrastructure implements them; application layer depends on them.

// LogSubmission is the payload for logging an action on the ledger.
type LogSubmission struct {
	Title       string
	Description string
	Category    string
	Location    string
	Claimant    string // claimant's on-chain address, resolved off-chain
	Amount      int64  // awarded credits to mint on verification
}

// TxHandle identifies a submitted-but-unconfirmed ledger transaction.
type TxHandle struct {
	Hash string
}

// Receipt is the confirmation result for a ledger transaction, including
// the events it emitted (already decoded by the ledger client).
type Receipt struct {
	TxHash      string
	BlockNumber int64
	Events      []Event
}

// EventsOf returns the receipt's events of the given kind, in emission order.
func (r *Receipt) EventsOf(kind EventKind) []Event {
	var out []Event
	for _, ev := range r.Events {
		if ev.Kind == kind {
			out = append(out, ev)
		}
	}
	return out
}

// LoggedChainID scans the receipt for the action-logged confirmation
// event and extracts the chain identifier the ledger assigned.
// Returns ErrEventNotFound if no such event is present; that indicates
// a ledger/ABI mismatch, not a transient failure.
func (r *Receipt) LoggedChainID() (int64, error) {
	for _, ev := range r.EventsOf(EventActionLogged) {
		id, err := strconv.ParseInt(ev.Payload["chain_id"], 10, 64)
		if err == nil {
			return id, nil
		}
	}
	return 0, ErrEventNotFound
}

// Ledger is the on-chain ledger collaborator: a thin operation set with
// network latency and fallible confirmation. Implementations must honor
// context cancellation on every call.
type Ledger interface {
	// SubmitLog submits a log operation and returns a pending handle.
	SubmitLog(ctx context.Context, sub LogSubmission) (TxHandle, error)

	// SubmitVerify submits a verification for an already-logged entry.
	// The ledger itself rejects a second verify for the same chainID.
	SubmitVerify(ctx context.Context, chainID int64, approved bool, amount int64) (TxHandle, error)

	// AwaitReceipt blocks until the transaction confirms or ctx expires.
	// On ctx expiry it returns ctx.Err() (the caller maps it to
	// ErrChainPending).
	AwaitReceipt(ctx context.Context, h TxHandle) (*Receipt, error)

	// Subscribe opens a stream of decoded events of the given kinds.
	// The channel closes when the stream fails or ctx is cancelled;
	// the subscriber is responsible for resubscribing.
	Subscribe(ctx context.Context, kinds []EventKind) (<-chan Event, error)

	// Entries reads historical events of one kind from the given block.
	// Used by the recovery pass to re-derive chain linkage.
	Entries(ctx context.Context, kind EventKind, fromBlock int64) ([]Event, error)
}

// RecordStore is the off-chain relational record store collaborator,
// restricted to the fields the coordinator reads and writes.
type RecordStore interface {
	CreateAction(ctx context.Context, a *Action) error
	GetAction(ctx context.Context, id string) (*Action, error)
	ListActionsByStatus(ctx context.Context, status ActionStatus) ([]Action, error)

	// UpdateDecision commits the reviewer decision. It succeeds only when
	// the action is still PENDING; otherwise it returns ErrInvalidState.
	UpdateDecision(ctx context.Context, id string, status ActionStatus, awarded int64, comments string, decidedAt time.Time) error

	// SetChainLog records the ledger-assigned chain ID and the log
	// transaction reference. It succeeds only when no chain ID is set yet.
	SetChainLog(ctx context.Context, id string, chainID int64, tx TxRef) error

	// SetChainVerify records the verify transaction reference.
	SetChainVerify(ctx context.Context, id string, tx TxRef) error

	// ClaimantAddress resolves a claimant's on-chain address.
	// Returns ErrMissingAddress when none is registered.
	ClaimantAddress(ctx context.Context, claimantID string) (string, error)

	// UnlinkedVerified lists VERIFIED actions with awarded credits that
	// still lack a chain ID (candidates for the recovery pass).
	UnlinkedVerified(ctx context.Context) ([]Action, error)
}
