package chainsync

import (
	"context"
	"errors"
	"log"
	"strconv"

	"github.com/oki-dokii/Axios-Blockchain-sub000/internal/domain"
	"github.com/oki-dokii/Axios-Blockchain-sub000/internal/infra/observability"
)

// RecoverUnlinked re-reads the ledger's action-logged entries to recover
// chain IDs for VERIFIED actions that lost their linkage to a partial
// sync (the chain advanced, the off-chain write failed). Matching is
// best-effort by claimant address + title + category. Returns the number
// of actions relinked.
//
// Recovered actions still need a ReconcileVerification call to complete
// the verify step; this pass only repairs the linkage.
func (c *Coordinator) RecoverUnlinked(ctx context.Context) (int, error) {
	unlinked, err := c.store.UnlinkedVerified(ctx)
	if err != nil {
		return 0, err
	}
	if len(unlinked) == 0 {
		return 0, nil
	}

	entries, err := c.ledger.Entries(ctx, domain.EventActionLogged, 0)
	if err != nil {
		return 0, &domain.ChainCallError{Op: "entries", Err: err}
	}

	// Index ledger entries by the best-effort match key. Earliest entry
	// wins on collision; a duplicate log for the same claim should not
	// move the linkage to the later entry.
	byKey := make(map[string]domain.Event, len(entries))
	for _, ev := range entries {
		k := matchKey(ev.Payload["claimant"], ev.Payload["title"], ev.Payload["category"])
		if _, seen := byKey[k]; !seen {
			byKey[k] = ev
		}
	}

	recovered := 0
	for _, a := range unlinked {
		if !c.acquire(a.ID) {
			continue // an in-flight reconcile owns this action
		}
		if err := c.recoverOne(ctx, &a, byKey); err != nil {
			log.Printf("chainsync: recovery skipped action %s: %v", a.ID, err)
		} else {
			recovered++
		}
		c.release(a.ID)
	}
	return recovered, nil
}

func (c *Coordinator) recoverOne(ctx context.Context, a *domain.Action, byKey map[string]domain.Event) error {
	addr, err := c.store.ClaimantAddress(ctx, a.ClaimantID)
	if err != nil {
		return err
	}

	ev, ok := byKey[matchKey(addr, a.Title, a.Category)]
	if !ok {
		return errors.New("no matching ledger entry")
	}
	chainID, err := strconv.ParseInt(ev.Payload["chain_id"], 10, 64)
	if err != nil {
		return errors.New("ledger entry has no parseable chain id")
	}

	tx := domain.TxRef{Hash: ev.TxHash, Block: ev.BlockNumber}
	if err := c.store.SetChainLog(ctx, a.ID, chainID, tx); err != nil {
		return err
	}
	observability.RecoveredLinkages.Inc()
	log.Printf("chainsync: recovered chain entry %d for action %s", chainID, a.ID)
	return nil
}

func matchKey(claimant, title, category string) string {
	return claimant + "\x00" + title + "\x00" + category
}
