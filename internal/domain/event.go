package domain

import "time"

// ─── Ledger Events ──────────────────────────────────────────────────────────

// EventKind is the closed set of event kinds emitted by the ledger
// contract. New kinds require a code change; switches over EventKind
// should be exhaustive.
type EventKind string

const (
	EventActionLogged     EventKind = "action_logged"
	EventActionVerified   EventKind = "action_verified"
	EventCreditsMinted    EventKind = "credits_minted"
	EventListingCreated   EventKind = "listing_created"
	EventPurchaseExecuted EventKind = "purchase_executed"
	EventStaked           EventKind = "staked"
	EventUnstaked         EventKind = "unstaked"
	EventCreditsRetired   EventKind = "credits_retired"
)

// AllEventKinds lists every ledger event kind, in declaration order.
func AllEventKinds() []EventKind {
	return []EventKind{
		EventActionLogged,
		EventActionVerified,
		EventCreditsMinted,
		EventListingCreated,
		EventPurchaseExecuted,
		EventStaked,
		EventUnstaked,
		EventCreditsRetired,
	}
}

// Valid reports whether k is a known event kind.
func (k EventKind) Valid() bool {
	switch k {
	case EventActionLogged, EventActionVerified, EventCreditsMinted,
		EventListingCreated, EventPurchaseExecuted, EventStaked,
		EventUnstaked, EventCreditsRetired:
		return true
	}
	return false
}

// Event is a single decoded ledger event. Events are immutable once
// created; the aggregator evicts them when its bounded history overflows.
type Event struct {
	Kind        EventKind         `json:"kind"`
	Payload     map[string]string `json:"payload"`
	BlockNumber int64             `json:"block_number"`
	TxHash      string            `json:"tx_hash"`
	ObservedAt  time.Time         `json:"observed_at"`
}

// ─── Role Visibility ────────────────────────────────────────────────────────

// Role scopes which ledger events a dashboard may see.
type Role string

const (
	RoleAdmin       Role = "admin"
	RoleVerifier    Role = "verifier"
	RoleParticipant Role = "participant"
)

// Valid reports whether role is a known dashboard role.
func (role Role) Valid() bool {
	switch role {
	case RoleAdmin, RoleVerifier, RoleParticipant:
		return true
	}
	return false
}

// participantAddrFields are the payload fields that may reference a
// participant's own on-chain address, depending on event kind.
var participantAddrFields = []string{"claimant", "buyer", "seller", "staker", "owner"}

// Visible reports whether role may see ev. Admins see everything.
// Verifiers see action-lifecycle kinds only. Participants see events
// whose payload references addr in any address-bearing field.
func (role Role) Visible(ev Event, addr string) bool {
	switch role {
	case RoleAdmin:
		return true
	case RoleVerifier:
		switch ev.Kind {
		case EventActionLogged, EventActionVerified, EventCreditsMinted:
			return true
		case EventListingCreated, EventPurchaseExecuted, EventStaked,
			EventUnstaked, EventCreditsRetired:
			return false
		}
		return false
	case RoleParticipant:
		if addr == "" {
			return false
		}
		for _, f := range participantAddrFields {
			if ev.Payload[f] == addr {
				return true
			}
		}
		return false
	}
	return false
}
