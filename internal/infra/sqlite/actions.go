package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/oki-dokii/Axios-Blockchain-sub000/internal/domain"
)

// DB implements domain.RecordStore.
var _ domain.RecordStore = (*DB)(nil)

const actionColumns = `id, claimant_id, title, description, category, location,
	quantity, unit, status, claimed_credits, awarded_credits, comments,
	chain_id, chain_tx_log_hash, chain_tx_log_block,
	chain_tx_verify_hash, chain_tx_verify_block, created_at, decided_at`

// CreateAction inserts a new action record.
func (db *DB) CreateAction(ctx context.Context, a *domain.Action) error {
	_, err := db.db.ExecContext(ctx, `
		INSERT INTO actions (id, claimant_id, title, description, category, location,
			quantity, unit, status, claimed_credits, awarded_credits, comments, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, a.ID, a.ClaimantID, a.Title, a.Description, a.Category, a.Location,
		a.Quantity, a.Unit, string(a.Status), a.ClaimedCredits, a.AwardedCredits,
		a.Comments, a.CreatedAt.UTC().Format(time.RFC3339))
	return err
}

// GetAction retrieves an action by its off-chain ID.
func (db *DB) GetAction(ctx context.Context, id string) (*domain.Action, error) {
	row := db.db.QueryRowContext(ctx,
		`SELECT `+actionColumns+` FROM actions WHERE id = ?`, id)
	a, err := scanAction(row)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

// ListActionsByStatus returns actions with the given status, newest first.
func (db *DB) ListActionsByStatus(ctx context.Context, status domain.ActionStatus) ([]domain.Action, error) {
	rows, err := db.db.QueryContext(ctx,
		`SELECT `+actionColumns+` FROM actions WHERE status = ? ORDER BY created_at DESC`,
		string(status))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectActions(rows)
}

// UnlinkedVerified returns VERIFIED actions with awarded credits that
// still have no chain ID: candidates for the chain-linkage recovery pass.
func (db *DB) UnlinkedVerified(ctx context.Context) ([]domain.Action, error) {
	rows, err := db.db.QueryContext(ctx, `
		SELECT `+actionColumns+` FROM actions
		WHERE status = 'VERIFIED' AND awarded_credits > 0 AND chain_id IS NULL
		ORDER BY decided_at
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectActions(rows)
}

// UpdateDecision commits a reviewer decision. The WHERE clause restricts
// the update to PENDING rows, so a second decision never overwrites the
// first: it surfaces as ErrInvalidState instead.
func (db *DB) UpdateDecision(ctx context.Context, id string, status domain.ActionStatus, awarded int64, comments string, decidedAt time.Time) error {
	res, err := db.db.ExecContext(ctx, `
		UPDATE actions
		SET status = ?, awarded_credits = ?, comments = ?, decided_at = ?
		WHERE id = ? AND status = 'PENDING'
	`, string(status), awarded, comments, decidedAt.UTC().Format(time.RFC3339), id)
	if err != nil {
		return err
	}
	return db.checkGuarded(ctx, res, id, domain.ErrInvalidState)
}

// SetChainLog records the ledger-assigned chain ID and log transaction.
// The WHERE clause restricts the update to rows without a chain ID, so
// the mapping from action to ledger entry stays one-to-one.
func (db *DB) SetChainLog(ctx context.Context, id string, chainID int64, tx domain.TxRef) error {
	res, err := db.db.ExecContext(ctx, `
		UPDATE actions
		SET chain_id = ?, chain_tx_log_hash = ?, chain_tx_log_block = ?
		WHERE id = ? AND chain_id IS NULL
	`, chainID, tx.Hash, tx.Block, id)
	if err != nil {
		return err
	}
	return db.checkGuarded(ctx, res, id, fmt.Errorf("chain id already set for action %s", id))
}

// SetChainVerify records the verify transaction reference.
func (db *DB) SetChainVerify(ctx context.Context, id string, tx domain.TxRef) error {
	res, err := db.db.ExecContext(ctx, `
		UPDATE actions
		SET chain_tx_verify_hash = ?, chain_tx_verify_block = ?
		WHERE id = ? AND chain_id IS NOT NULL
	`, tx.Hash, tx.Block, id)
	if err != nil {
		return err
	}
	return db.checkGuarded(ctx, res, id, fmt.Errorf("no chain id set for action %s", id))
}

// checkGuarded maps a zero-row guarded UPDATE to either ErrNotFound
// (row missing) or the guard violation error.
func (db *DB) checkGuarded(ctx context.Context, res sql.Result, id string, guardErr error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	var exists int
	if err := db.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM actions WHERE id = ?`, id).Scan(&exists); err != nil {
		return err
	}
	if exists == 0 {
		return domain.ErrNotFound
	}
	return guardErr
}

// ─── Claimant Addresses ─────────────────────────────────────────────────────

// UpsertClaimantAddress registers or updates a claimant's on-chain address.
func (db *DB) UpsertClaimantAddress(ctx context.Context, claimantID, address string) error {
	_, err := db.db.ExecContext(ctx, `
		INSERT INTO claimant_addresses (claimant_id, address, updated_at)
		VALUES (?, ?, datetime('now'))
		ON CONFLICT(claimant_id) DO UPDATE SET
			address    = excluded.address,
			updated_at = datetime('now')
	`, claimantID, address)
	return err
}

// ClaimantAddress resolves a claimant's on-chain address.
func (db *DB) ClaimantAddress(ctx context.Context, claimantID string) (string, error) {
	var addr string
	err := db.db.QueryRowContext(ctx,
		`SELECT address FROM claimant_addresses WHERE claimant_id = ?`, claimantID).Scan(&addr)
	if err == sql.ErrNoRows || (err == nil && addr == "") {
		return "", domain.ErrMissingAddress
	}
	if err != nil {
		return "", err
	}
	return addr, nil
}

// ─── Row Scanning ───────────────────────────────────────────────────────────

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAction(row rowScanner) (*domain.Action, error) {
	var (
		a           domain.Action
		status      string
		chainID     sql.NullInt64
		logHash     sql.NullString
		logBlock    sql.NullInt64
		verifyHash  sql.NullString
		verifyBlock sql.NullInt64
		createdStr  string
		decidedStr  sql.NullString
	)
	err := row.Scan(&a.ID, &a.ClaimantID, &a.Title, &a.Description, &a.Category,
		&a.Location, &a.Quantity, &a.Unit, &status, &a.ClaimedCredits,
		&a.AwardedCredits, &a.Comments, &chainID, &logHash, &logBlock,
		&verifyHash, &verifyBlock, &createdStr, &decidedStr)
	if err != nil {
		return nil, err
	}

	a.Status = domain.ActionStatus(status)
	if chainID.Valid {
		id := chainID.Int64
		a.ChainID = &id
	}
	if logHash.Valid {
		a.ChainTxLog = &domain.TxRef{Hash: logHash.String, Block: logBlock.Int64}
	}
	if verifyHash.Valid {
		a.ChainTxVerify = &domain.TxRef{Hash: verifyHash.String, Block: verifyBlock.Int64}
	}
	a.CreatedAt, _ = time.Parse(time.RFC3339, createdStr)
	if decidedStr.Valid {
		a.DecidedAt, _ = time.Parse(time.RFC3339, decidedStr.String)
	}
	return &a, nil
}

func collectActions(rows *sql.Rows) ([]domain.Action, error) {
	var out []domain.Action
	for rows.Next() {
		a, err := scanAction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}
