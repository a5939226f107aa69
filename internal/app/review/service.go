// Package review implements the action review workflow: participants
// submit claims, verifiers decide them. Decide is the only mutator of an
// action's status; the off-chain commit always lands atomically and
// independently of chain outcome; a chain failure never rolls back an
// approval.
package review

import (
	"context"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/oki-dokii/Axios-Blockchain-sub000/internal/domain"
)

// Reconciler drives the on-chain side of an approval. Implemented by
// the chainsync coordinator.
type Reconciler interface {
	ReconcileVerification(ctx context.Context, actionID string) (domain.SyncState, error)
}

// Service handles claim creation and review decisions.
type Service struct {
	store      domain.RecordStore
	reconciler Reconciler
}

// New creates a review service.
func New(store domain.RecordStore, reconciler Reconciler) *Service {
	return &Service{store: store, reconciler: reconciler}
}

// ─── Claim Creation ─────────────────────────────────────────────────────────

// creditRates maps action categories to credits per declared unit.
// Estimates only; the verifier sets the authoritative awarded amount.
var creditRates = map[string]float64{
	"reforestation": 0.25, // per tree
	"solar":         0.10, // per kWh
	"recycling":     0.05, // per kg
	"water":         0.02, // per litre
}

const defaultCreditRate = 0.10

// EstimateCredits computes the off-chain claimed-credit estimate for a
// claim of the given category and quantity.
func EstimateCredits(category string, quantity float64) int64 {
	rate, ok := creditRates[category]
	if !ok {
		rate = defaultCreditRate
	}
	if quantity <= 0 {
		return 0
	}
	return int64(math.Round(quantity * rate))
}

// CreateInput describes a new claim.
type CreateInput struct {
	ClaimantID  string
	Title       string
	Description string
	Category    string
	Location    string
	Quantity    float64
	Unit        string
}

// Create registers a new PENDING action with a precomputed credit estimate.
func (s *Service) Create(ctx context.Context, in CreateInput) (*domain.Action, error) {
	if in.ClaimantID == "" {
		return nil, fmt.Errorf("claimant id is required")
	}
	if in.Title == "" {
		return nil, fmt.Errorf("title is required")
	}
	if in.Quantity < 0 {
		return nil, fmt.Errorf("quantity must be non-negative")
	}

	a := &domain.Action{
		ID:             uuid.NewString(),
		ClaimantID:     in.ClaimantID,
		Title:          in.Title,
		Description:    in.Description,
		Category:       in.Category,
		Location:       in.Location,
		Quantity:       in.Quantity,
		Unit:           in.Unit,
		Status:         domain.StatusPending,
		ClaimedCredits: EstimateCredits(in.Category, in.Quantity),
		CreatedAt:      time.Now().UTC(),
	}
	if err := s.store.CreateAction(ctx, a); err != nil {
		return nil, fmt.Errorf("creating action: %w", err)
	}
	return a, nil
}

// ─── Review Decision ────────────────────────────────────────────────────────

// Decision is the result of a Decide call, reported to the UI layer.
type Decision struct {
	ActionID       string              `json:"action_id"`
	Status         domain.ActionStatus `json:"status"`
	AwardedCredits int64               `json:"awarded_credits"`
	SyncState      domain.SyncState    `json:"sync_state"`
	SyncError      string              `json:"sync_error,omitempty"`
}

// Decide commits a reviewer decision. On approval the awarded amount
// defaults to the precomputed claimed credits unless overrideCredits is
// given. Deciding an action that is not PENDING fails with
// ErrInvalidState. Rejections perform no chain interaction.
//
// Decide returns once the off-chain state is committed; the chain-sync
// outcome is reported in the Decision's SyncState, never as an error.
func (s *Service) Decide(ctx context.Context, actionID string, approved bool, comments string, overrideCredits *int64) (*Decision, error) {
	a, err := s.store.GetAction(ctx, actionID)
	if err != nil {
		return nil, err
	}
	if a.Status != domain.StatusPending {
		return nil, fmt.Errorf("action %s is %s: %w", a.ID, a.Status, domain.ErrInvalidState)
	}

	if !approved {
		if err := s.store.UpdateDecision(ctx, actionID, domain.StatusRejected, 0, comments, time.Now().UTC()); err != nil {
			return nil, err
		}
		return &Decision{ActionID: actionID, Status: domain.StatusRejected, SyncState: domain.SyncNone}, nil
	}

	awarded := a.ClaimedCredits
	if overrideCredits != nil {
		if *overrideCredits < 0 {
			return nil, fmt.Errorf("awarded credits must be non-negative")
		}
		awarded = *overrideCredits
	}

	if err := s.store.UpdateDecision(ctx, actionID, domain.StatusVerified, awarded, comments, time.Now().UTC()); err != nil {
		return nil, err
	}

	d := &Decision{
		ActionID:       actionID,
		Status:         domain.StatusVerified,
		AwardedCredits: awarded,
		SyncState:      domain.SyncNone,
	}
	if awarded <= 0 {
		return d, nil
	}

	// Off-chain state is committed; hand off to the coordinator. A chain
	// failure is reported in the decision, not returned; the approval
	// stands and the caller retries the sync later.
	state, syncErr := s.reconciler.ReconcileVerification(ctx, actionID)
	d.SyncState = state
	if syncErr != nil {
		d.SyncError = syncErr.Error()
		log.Printf("review: action %s approved, chain sync %s: %v", actionID, state, syncErr)
	}
	return d, nil
}
