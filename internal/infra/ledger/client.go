// Package ledger implements the on-chain ledger collaborator as a thin
// JSON-over-HTTP client against the ledger gateway. The gateway owns
// wallet signing and contract ABI concerns; this client only submits
// operations, polls for confirmations, and streams decoded events.
package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/oki-dokii/Axios-Blockchain-sub000/internal/domain"
)

// Client talks to the ledger gateway. Implements domain.Ledger.
type Client struct {
	BaseURL      string
	HTTPClient   *http.Client
	PollInterval time.Duration // receipt/event poll cadence
}

var _ domain.Ledger = (*Client)(nil)

// NewClient creates a ledger client for the given gateway base URL.
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL:      strings.TrimRight(baseURL, "/"),
		HTTPClient:   &http.Client{Timeout: 30 * time.Second},
		PollInterval: 2 * time.Second,
	}
}

// ─── Submissions ────────────────────────────────────────────────────────────

type submitResponse struct {
	TxHash string `json:"tx_hash"`
}

// SubmitLog submits a log operation for a verified action.
func (c *Client) SubmitLog(ctx context.Context, sub domain.LogSubmission) (domain.TxHandle, error) {
	body := map[string]any{
		"title":       sub.Title,
		"description": sub.Description,
		"category":    sub.Category,
		"location":    sub.Location,
		"claimant":    sub.Claimant,
		"amount":      sub.Amount,
	}
	var resp submitResponse
	if err := c.post(ctx, "/ledger/log", body, &resp); err != nil {
		return domain.TxHandle{}, err
	}
	return domain.TxHandle{Hash: resp.TxHash}, nil
}

// SubmitVerify submits a verification for an already-logged entry.
func (c *Client) SubmitVerify(ctx context.Context, chainID int64, approved bool, amount int64) (domain.TxHandle, error) {
	body := map[string]any{
		"chain_id": chainID,
		"approved": approved,
		"amount":   amount,
	}
	var resp submitResponse
	if err := c.post(ctx, "/ledger/verify", body, &resp); err != nil {
		return domain.TxHandle{}, err
	}
	return domain.TxHandle{Hash: resp.TxHash}, nil
}

// ─── Confirmation ───────────────────────────────────────────────────────────

type receiptResponse struct {
	Found       bool        `json:"found"`
	TxHash      string      `json:"tx_hash"`
	BlockNumber int64       `json:"block_number"`
	Events      []wireEvent `json:"events"`
}

type wireEvent struct {
	Kind        string            `json:"kind"`
	Payload     map[string]string `json:"payload"`
	BlockNumber int64             `json:"block_number"`
	TxHash      string            `json:"tx_hash"`
}

// AwaitReceipt polls the gateway until the transaction confirms or ctx
// expires. The caller bounds the wait via the context deadline.
func (c *Client) AwaitReceipt(ctx context.Context, h domain.TxHandle) (*domain.Receipt, error) {
	ticker := time.NewTicker(c.PollInterval)
	defer ticker.Stop()

	for {
		var resp receiptResponse
		err := c.get(ctx, "/ledger/receipt/"+url.PathEscape(h.Hash), &resp)
		if err == nil && resp.Found {
			return decodeReceipt(resp), nil
		}
		if err != nil && ctx.Err() == nil {
			// Transient poll failure, keep polling until the deadline.
			err = nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func decodeReceipt(resp receiptResponse) *domain.Receipt {
	r := &domain.Receipt{TxHash: resp.TxHash, BlockNumber: resp.BlockNumber}
	for _, we := range resp.Events {
		r.Events = append(r.Events, decodeEvent(we))
	}
	return r
}

func decodeEvent(we wireEvent) domain.Event {
	return domain.Event{
		Kind:        domain.EventKind(we.Kind),
		Payload:     we.Payload,
		BlockNumber: we.BlockNumber,
		TxHash:      we.TxHash,
		ObservedAt:  time.Now().UTC(),
	}
}

// ─── Event Streams ──────────────────────────────────────────────────────────

type eventsResponse struct {
	Events    []wireEvent `json:"events"`
	NextBlock int64       `json:"next_block"`
}

// Entries reads historical events of one kind from the given block.
func (c *Client) Entries(ctx context.Context, kind domain.EventKind, fromBlock int64) ([]domain.Event, error) {
	resp, err := c.fetchEvents(ctx, []domain.EventKind{kind}, fromBlock)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Event, 0, len(resp.Events))
	for _, we := range resp.Events {
		out = append(out, decodeEvent(we))
	}
	return out, nil
}

// Subscribe opens a poll-based stream of decoded events. The returned
// channel closes on the first poll failure or when ctx is cancelled;
// resubscription (with backoff) is the subscriber's responsibility.
func (c *Client) Subscribe(ctx context.Context, kinds []domain.EventKind) (<-chan domain.Event, error) {
	// Establish the starting cursor up front so a dead gateway surfaces
	// as a subscribe error, not a silently empty stream.
	resp, err := c.fetchEvents(ctx, kinds, -1) // -1: cursor only, no backlog
	if err != nil {
		return nil, err
	}
	cursor := resp.NextBlock

	ch := make(chan domain.Event, 32)
	go func() {
		defer close(ch)
		ticker := time.NewTicker(c.PollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}

			resp, err := c.fetchEvents(ctx, kinds, cursor)
			if err != nil {
				return // closes ch; subscriber resubscribes
			}
			for _, we := range resp.Events {
				select {
				case ch <- decodeEvent(we):
				case <-ctx.Done():
					return
				}
			}
			cursor = resp.NextBlock
		}
	}()
	return ch, nil
}

func (c *Client) fetchEvents(ctx context.Context, kinds []domain.EventKind, fromBlock int64) (*eventsResponse, error) {
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = string(k)
	}
	q := url.Values{}
	q.Set("kinds", strings.Join(names, ","))
	q.Set("from_block", fmt.Sprintf("%d", fromBlock))

	var resp eventsResponse
	if err := c.get(ctx, "/ledger/events?"+q.Encode(), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ─── HTTP Plumbing ──────────────────────────────────────────────────────────

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("calling ledger gateway: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("ledger gateway returned status %d: %s", resp.StatusCode, string(body))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding ledger gateway response: %w", err)
	}
	return nil
}
