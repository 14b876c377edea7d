package reconciler

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Store mirrors on-chain payout and closure events into SQLite so the rest of
// the backend can reconcile its ledger without touching the node.
type Store struct {
	db *sql.DB
}

// Payout is one mirrored PaymentProcessed event.
type Payout struct {
	ID           string
	Sequence     uint64
	TxID         string
	BountyID     string
	SubmissionID string
	HunterWallet string
	Amount       uint64
	PlatformFee  uint64
	CreatedAt    time.Time
}

// Closure is one mirrored BountyClosed event.
type Closure struct {
	ID              string
	Sequence        uint64
	TxID            string
	BountyID        string
	RemainingAmount uint64
	CreatedAt       time.Time
}

// NewStore opens (and initialises) the SQLite database at path.
func NewStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	store := &Store{db: db}
	if err := store.init(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *Store) init() error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS cursor (
            id INTEGER PRIMARY KEY CHECK (id = 1),
            last_sequence INTEGER NOT NULL
        )`,
		`CREATE TABLE IF NOT EXISTS payouts (
            id TEXT PRIMARY KEY,
            sequence INTEGER NOT NULL UNIQUE,
            tx_id TEXT NOT NULL,
            bounty_id TEXT NOT NULL,
            submission_id TEXT NOT NULL,
            hunter_wallet TEXT NOT NULL,
            amount INTEGER NOT NULL,
            platform_fee INTEGER NOT NULL,
            created_at TIMESTAMP NOT NULL
        )`,
		`CREATE TABLE IF NOT EXISTS closures (
            id TEXT PRIMARY KEY,
            sequence INTEGER NOT NULL UNIQUE,
            tx_id TEXT NOT NULL,
            bounty_id TEXT NOT NULL,
            remaining_amount INTEGER NOT NULL,
            created_at TIMESTAMP NOT NULL
        )`,
	}
	for _, stmt := range schema {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// LastEventSequence returns the highest event sequence mirrored so far.
func (s *Store) LastEventSequence(ctx context.Context) (uint64, error) {
	var seq uint64
	err := s.db.QueryRowContext(ctx, `SELECT last_sequence FROM cursor WHERE id = 1`).Scan(&seq)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	return seq, err
}

// UpdateEventSequence advances the mirror cursor.
func (s *Store) UpdateEventSequence(ctx context.Context, seq uint64) error {
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO cursor (id, last_sequence) VALUES (1, ?)
        ON CONFLICT(id) DO UPDATE SET last_sequence = excluded.last_sequence`, seq)
	return err
}

// InsertPayout records a payout exactly once; replays of the same sequence
// are ignored.
func (s *Store) InsertPayout(ctx context.Context, p Payout) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO payouts (id, sequence, tx_id, bounty_id, submission_id, hunter_wallet, amount, platform_fee, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(sequence) DO NOTHING`,
		p.ID, p.Sequence, p.TxID, p.BountyID, p.SubmissionID, p.HunterWallet, p.Amount, p.PlatformFee, p.CreatedAt.UTC())
	return err
}

// InsertClosure records a closure exactly once per sequence.
func (s *Store) InsertClosure(ctx context.Context, c Closure) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO closures (id, sequence, tx_id, bounty_id, remaining_amount, created_at)
        VALUES (?, ?, ?, ?, ?, ?)
        ON CONFLICT(sequence) DO NOTHING`,
		c.ID, c.Sequence, c.TxID, c.BountyID, c.RemainingAmount, c.CreatedAt.UTC())
	return err
}

// PayoutsByBounty lists mirrored payouts for a bounty, oldest first.
func (s *Store) PayoutsByBounty(ctx context.Context, bountyID string) ([]Payout, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT id, sequence, tx_id, bounty_id, submission_id, hunter_wallet, amount, platform_fee, created_at
        FROM payouts WHERE bounty_id = ? ORDER BY sequence ASC`, bountyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Payout
	for rows.Next() {
		var p Payout
		if err := rows.Scan(&p.ID, &p.Sequence, &p.TxID, &p.BountyID, &p.SubmissionID, &p.HunterWallet, &p.Amount, &p.PlatformFee, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// ClosuresByBounty lists mirrored closures for a bounty, oldest first.
func (s *Store) ClosuresByBounty(ctx context.Context, bountyID string) ([]Closure, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT id, sequence, tx_id, bounty_id, remaining_amount, created_at
        FROM closures WHERE bounty_id = ? ORDER BY sequence ASC`, bountyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Closure
	for rows.Next() {
		var c Closure
		if err := rows.Scan(&c.ID, &c.Sequence, &c.TxID, &c.BountyID, &c.RemainingAmount, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
