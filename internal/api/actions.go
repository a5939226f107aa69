package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/oki-dokii/Axios-Blockchain-sub000/internal/app/review"
	"github.com/oki-dokii/Axios-Blockchain-sub000/internal/domain"
)

// ─── Action Endpoints ───────────────────────────────────────────────────────
//
// POST /api/actions                 - submit a new claim
// GET  /api/actions?status=         - list claims by review status
// GET  /api/actions/{id}            - fetch one claim
// POST /api/actions/{id}/decision   - approve or reject a pending claim
// POST /api/actions/{id}/reconcile  - retry ledger sync for a verified claim

type createActionRequest struct {
	ClaimantID  string  `json:"claimant_id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
	Location    string  `json:"location"`
	Quantity    float64 `json:"quantity"`
	Unit        string  `json:"unit"`
}

// handleCreateAction registers a new PENDING claim.
// POST /api/actions
func (s *Server) handleCreateAction(w http.ResponseWriter, r *http.Request) {
	var req createActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	a, err := s.review.Create(r.Context(), review.CreateInput{
		ClaimantID:  req.ClaimantID,
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Location:    req.Location,
		Quantity:    req.Quantity,
		Unit:        req.Unit,
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, a)
}

// handleListActions lists claims, optionally filtered by status.
// GET /api/actions?status=PENDING
func (s *Server) handleListActions(w http.ResponseWriter, r *http.Request) {
	status := domain.ActionStatus(r.URL.Query().Get("status"))
	if status == "" {
		status = domain.StatusPending
	}
	if !status.Valid() {
		writeError(w, http.StatusBadRequest, "unknown status "+string(status))
		return
	}

	actions, err := s.store.ListActionsByStatus(r.Context(), status)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"actions": actions,
		"count":   len(actions),
	})
}

// handleGetAction fetches a single claim by ID.
// GET /api/actions/{id}
func (s *Server) handleGetAction(w http.ResponseWriter, r *http.Request) {
	a, err := s.store.GetAction(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "action not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, a)
}

type decisionRequest struct {
	Approve        bool   `json:"approve"`
	Comments       string `json:"comments"`
	AwardedCredits *int64 `json:"awarded_credits,omitempty"`
}

// handleDecision records an approve/reject verdict on a pending claim.
// Approval triggers ledger sync; sync failures are reported in the
// response body, never as an HTTP error, since the verdict already stands.
// POST /api/actions/{id}/decision
func (s *Server) handleDecision(w http.ResponseWriter, r *http.Request) {
	var req decisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	d, err := s.review.Decide(r.Context(), chi.URLParam(r, "id"), req.Approve, req.Comments, req.AwardedCredits)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			writeError(w, http.StatusNotFound, "action not found")
		case errors.Is(err, domain.ErrInvalidState):
			writeError(w, http.StatusConflict, "action already decided")
		default:
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	writeJSON(w, http.StatusOK, d)
}

// handleReconcile retries ledger sync for an already verified claim.
// POST /api/actions/{id}/reconcile
func (s *Server) handleReconcile(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	state, err := s.coordinator.ReconcileVerification(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			writeError(w, http.StatusNotFound, "action not found")
			return
		case errors.Is(err, domain.ErrInvalidState):
			writeError(w, http.StatusConflict, "action is not verified")
			return
		case errors.Is(err, domain.ErrReconcileInFlight):
			writeJSON(w, http.StatusAccepted, map[string]interface{}{
				"action_id":  id,
				"sync_state": state,
				"detail":     "reconcile already in progress",
			})
			return
		}
		// Chain sync failures return the resulting sync state in the
		// body; the client decides whether a retry makes sense.
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"action_id":  id,
			"sync_state": state,
			"sync_error": err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"action_id":  id,
		"sync_state": state,
	})
}
