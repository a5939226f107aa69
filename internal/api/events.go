package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/oki-dokii/Axios-Blockchain-sub000/internal/domain"
)

// ─── Event Feed Endpoints ───────────────────────────────────────────────────
//
// GET /api/events       - recent ledger events, filtered by role visibility
// GET /api/events/live  - live event stream via Server-Sent Events

// handleEvents returns recent ledger events visible to the caller.
// GET /api/events?role=participant&addr=0xabc&kind=credits_minted&limit=10
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	role := domain.Role(q.Get("role"))
	if role == "" {
		role = domain.RoleParticipant
	}
	if !role.Valid() {
		writeError(w, http.StatusBadRequest, "unknown role "+string(role))
		return
	}

	kind := domain.EventKind(q.Get("kind"))
	if kind != "" && !kind.Valid() {
		writeError(w, http.StatusBadRequest, "unknown event kind "+string(kind))
		return
	}

	limit := 0
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	events := s.feed.Query(role, q.Get("addr"), kind, limit)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"events": events,
		"count":  len(events),
	})
}

// handleEventsLive serves the live event feed via Server-Sent Events.
// Uses SSE instead of WebSocket for simplicity and HTTP/2 compatibility.
// Slow clients miss frames rather than stalling the aggregator.
// GET /api/events/live?role=admin&addr=0xabc
func (s *Server) handleEventsLive(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	role := domain.Role(r.URL.Query().Get("role"))
	if role == "" {
		role = domain.RoleParticipant
	}
	if !role.Valid() {
		writeError(w, http.StatusBadRequest, "unknown role "+string(role))
		return
	}
	addr := r.URL.Query().Get("addr")

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	flusher.Flush()

	ch, unsub := s.feed.Subscribe()
	defer unsub()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, open := <-ch:
			if !open {
				return
			}
			if !role.Visible(ev, addr) {
				continue
			}
			data, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			w.Write([]byte("data: "))
			w.Write(data)
			w.Write([]byte("\n\n"))
			flusher.Flush()
		}
	}
}
