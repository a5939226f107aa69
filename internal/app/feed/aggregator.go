// Package feed maintains a best-effort, bounded, role-filterable view of
// ledger activity for dashboard refresh triggers. It is not a source of
// truth and is never consulted by the chain-sync coordinator: a lost or
// duplicated feed event has no effect on correctness.
package feed

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/oki-dokii/Axios-Blockchain-sub000/internal/domain"
	"github.com/oki-dokii/Axios-Blockchain-sub000/internal/infra/observability"
)

// DefaultCapacity bounds the in-memory event history.
const DefaultCapacity = 50

// DefaultQueryLimit is used when Query is called without a limit.
const DefaultQueryLimit = 10

// Config controls aggregator behavior.
type Config struct {
	Capacity int                // bounded history size (default 50)
	Kinds    []domain.EventKind // kinds to subscribe to (default all)

	// Reconnect backoff bounds for the subscription loop.
	ReconnectMin time.Duration
	ReconnectMax time.Duration
}

// DefaultConfig returns aggregator defaults.
func DefaultConfig() Config {
	return Config{
		Capacity:     DefaultCapacity,
		Kinds:        domain.AllEventKinds(),
		ReconnectMin: time.Second,
		ReconnectMax: time.Minute,
	}
}

// Aggregator holds the bounded event history and fans events out to
// push subscribers. It is an explicit instance injected into consumers;
// there is no ambient global state.
type Aggregator struct {
	cfg    Config
	ledger domain.Ledger

	mu     sync.RWMutex
	events []domain.Event      // newest-first, len <= cfg.Capacity
	seen   map[string]struct{} // dedupe keys for the live history

	subMu sync.Mutex
	subs  map[chan domain.Event]struct{}
}

// New creates an aggregator reading from the given ledger.
func New(cfg Config, ledger domain.Ledger) *Aggregator {
	if cfg.Capacity <= 0 {
		cfg.Capacity = DefaultCapacity
	}
	if len(cfg.Kinds) == 0 {
		cfg.Kinds = domain.AllEventKinds()
	}
	if cfg.ReconnectMin <= 0 {
		cfg.ReconnectMin = time.Second
	}
	if cfg.ReconnectMax < cfg.ReconnectMin {
		cfg.ReconnectMax = time.Minute
	}
	return &Aggregator{
		cfg:    cfg,
		ledger: ledger,
		seen:   make(map[string]struct{}),
		subs:   make(map[chan domain.Event]struct{}),
	}
}

// ─── Subscription Loop ──────────────────────────────────────────────────────

// Run subscribes to the ledger event streams and ingests events until
// ctx is cancelled. On stream failure it resubscribes with exponential
// backoff; events missed during the gap are not backfilled.
func (g *Aggregator) Run(ctx context.Context) {
	backoff := g.cfg.ReconnectMin
	for {
		ch, err := g.ledger.Subscribe(ctx, g.cfg.Kinds)
		if err == nil {
			for ev := range ch {
				g.Ingest(ev)
				backoff = g.cfg.ReconnectMin // healthy stream resets backoff
			}
			if ctx.Err() != nil {
				return
			}
			log.Printf("feed: event stream closed, resubscribing in %v", backoff)
		} else {
			if ctx.Err() != nil {
				return
			}
			log.Printf("feed: subscribe failed, retrying in %v: %v", backoff, err)
		}

		observability.FeedReconnects.Inc()
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, g.cfg.ReconnectMax)
	}
}

// Ingest validates, deduplicates, and records one event, then fans it
// out to subscribers. Undecodable events (unknown kind) are dropped
// without terminating anything. Returns whether the event was kept.
func (g *Aggregator) Ingest(ev domain.Event) bool {
	if !ev.Kind.Valid() {
		log.Printf("feed: dropping event with unknown kind %q (tx %s)", ev.Kind, ev.TxHash)
		observability.FeedEventsDropped.WithLabelValues("decode").Inc()
		return false
	}
	if ev.ObservedAt.IsZero() {
		ev.ObservedAt = time.Now().UTC()
	}

	g.mu.Lock()
	key := ev.TxHash + "\x00" + string(ev.Kind)
	if ev.TxHash != "" {
		if _, dup := g.seen[key]; dup {
			g.mu.Unlock()
			observability.FeedEventsDropped.WithLabelValues("duplicate").Inc()
			return false
		}
		g.seen[key] = struct{}{}
	}

	// Prepend: the history is newest-first, ties broken by arrival order.
	g.events = append([]domain.Event{ev}, g.events...)
	if len(g.events) > g.cfg.Capacity {
		evicted := g.events[len(g.events)-1]
		g.events = g.events[:g.cfg.Capacity]
		delete(g.seen, evicted.TxHash+"\x00"+string(evicted.Kind))
	}
	g.mu.Unlock()

	observability.FeedEventsObserved.WithLabelValues(string(ev.Kind)).Inc()
	g.broadcast(ev)
	return true
}

// Len returns the number of events currently held.
func (g *Aggregator) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.events)
}

// ─── Query ──────────────────────────────────────────────────────────────────

// Query returns the most recent events visible to role (with addr as the
// participant's own on-chain address), optionally filtered to a single
// kind, newest first, at most limit entries. A non-positive limit uses
// DefaultQueryLimit. Pure in-memory read; never blocks on the network.
func (g *Aggregator) Query(role domain.Role, addr string, kind domain.EventKind, limit int) []domain.Event {
	if limit <= 0 {
		limit = DefaultQueryLimit
	}

	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make([]domain.Event, 0, limit)
	for _, ev := range g.events {
		if !role.Visible(ev, addr) {
			continue
		}
		if kind != "" && ev.Kind != kind {
			continue
		}
		out = append(out, ev)
		if len(out) == limit {
			break
		}
	}
	return out
}

// ─── Push Subscribers ───────────────────────────────────────────────────────

// Subscribe registers a push subscriber. Returns the channel and an
// unsubscribe func. Subscribers too slow to keep up miss events rather
// than block the feed.
func (g *Aggregator) Subscribe() (<-chan domain.Event, func()) {
	ch := make(chan domain.Event, 32)
	g.subMu.Lock()
	g.subs[ch] = struct{}{}
	g.subMu.Unlock()
	observability.FeedSubscribers.Inc()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			g.subMu.Lock()
			delete(g.subs, ch)
			close(ch)
			g.subMu.Unlock()
			observability.FeedSubscribers.Dec()
		})
	}
}

// SubscriberCount returns the number of connected push subscribers.
func (g *Aggregator) SubscriberCount() int {
	g.subMu.Lock()
	defer g.subMu.Unlock()
	return len(g.subs)
}

func (g *Aggregator) broadcast(ev domain.Event) {
	g.subMu.Lock()
	defer g.subMu.Unlock()
	for ch := range g.subs {
		select {
		case ch <- ev:
		default:
			// Subscriber too slow, drop the event for this subscriber.
		}
	}
}
