// Package postgres implements the storage.SnapshotStore and
// storage.PayoutLedger interfaces against PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"poker-platform/internal/storage"
)

// SnapshotPostgresStore implements storage.SnapshotStore.
type SnapshotPostgresStore struct {
	db *sql.DB
}

// NewSnapshotPostgresStore wraps an open *sql.DB.
func NewSnapshotPostgresStore(db *sql.DB) *SnapshotPostgresStore {
	return &SnapshotPostgresStore{db: db}
}

// CreateTables creates the snapshot and payout-ledger tables if absent.
func (s *SnapshotPostgresStore) CreateTables(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS table_snapshots (
			table_id VARCHAR(64) PRIMARY KEY,
			state BYTEA NOT NULL,
			updated_at TIMESTAMP NOT NULL
		);

		CREATE TABLE IF NOT EXISTS tournament_snapshots (
			tournament_id VARCHAR(64) PRIMARY KEY,
			state BYTEA NOT NULL,
			updated_at TIMESTAMP NOT NULL
		);

		CREATE TABLE IF NOT EXISTS pending_payouts (
			tournament_id VARCHAR(64) NOT NULL,
			player_id VARCHAR(64) NOT NULL,
			amount BIGINT NOT NULL,
			position INTEGER NOT NULL,
			created_at TIMESTAMP NOT NULL,
			last_attempt TIMESTAMP,
			attempts INTEGER DEFAULT 0,
			settled BOOLEAN DEFAULT FALSE,
			PRIMARY KEY (tournament_id, player_id)
		);

		CREATE INDEX IF NOT EXISTS idx_pending_payouts_tournament ON pending_payouts(tournament_id);
	`
	_, err := s.db.ExecContext(ctx, query)
	return err
}

// SaveTable upserts a table's persisted state.
func (s *SnapshotPostgresStore) SaveTable(ctx context.Context, snap storage.TableSnapshot) error {
	query := `
		INSERT INTO table_snapshots (table_id, state, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (table_id) DO UPDATE SET state = $2, updated_at = $3
	`
	_, err := s.db.ExecContext(ctx, query, snap.TableID, snap.State, snap.UpdatedAt)
	return err
}

// LoadTable retrieves a table's persisted state, or nil if none exists.
func (s *SnapshotPostgresStore) LoadTable(ctx context.Context, tableID string) (*storage.TableSnapshot, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT table_id, state, updated_at FROM table_snapshots WHERE table_id = $1
	`, tableID)

	snap := &storage.TableSnapshot{}
	if err := row.Scan(&snap.TableID, &snap.State, &snap.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return snap, nil
}

// DeleteTable removes a table's persisted state once its actor is torn down.
func (s *SnapshotPostgresStore) DeleteTable(ctx context.Context, tableID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM table_snapshots WHERE table_id = $1`, tableID)
	return err
}

// SaveTournament upserts a tournament's persisted state.
func (s *SnapshotPostgresStore) SaveTournament(ctx context.Context, snap storage.TournamentSnapshot) error {
	query := `
		INSERT INTO tournament_snapshots (tournament_id, state, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (tournament_id) DO UPDATE SET state = $2, updated_at = $3
	`
	_, err := s.db.ExecContext(ctx, query, snap.TournamentID, snap.State, snap.UpdatedAt)
	return err
}

// LoadTournament retrieves a tournament's persisted state, or nil if none exists.
func (s *SnapshotPostgresStore) LoadTournament(ctx context.Context, tournamentID string) (*storage.TournamentSnapshot, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT tournament_id, state, updated_at FROM tournament_snapshots WHERE tournament_id = $1
	`, tournamentID)

	snap := &storage.TournamentSnapshot{}
	if err := row.Scan(&snap.TournamentID, &snap.State, &snap.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return snap, nil
}

// DeleteTournament removes a tournament's persisted state once it completes.
func (s *SnapshotPostgresStore) DeleteTournament(ctx context.Context, tournamentID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM tournament_snapshots WHERE tournament_id = $1`, tournamentID)
	return err
}

// PayoutPostgresLedger implements storage.PayoutLedger.
type PayoutPostgresLedger struct {
	db *sql.DB
}

// NewPayoutPostgresLedger wraps an open *sql.DB.
func NewPayoutPostgresLedger(db *sql.DB) *PayoutPostgresLedger {
	return &PayoutPostgresLedger{db: db}
}

// RecordPending inserts or refreshes a pending payout obligation.
func (l *PayoutPostgresLedger) RecordPending(ctx context.Context, p storage.PendingPayout) error {
	query := `
		INSERT INTO pending_payouts (tournament_id, player_id, amount, position, created_at, last_attempt, attempts, settled)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (tournament_id, player_id) DO UPDATE SET amount = $3, position = $4
	`
	_, err := l.db.ExecContext(ctx, query,
		p.TournamentID, p.PlayerID, p.Amount, p.Position, p.CreatedAt,
		p.LastAttempt, p.Attempts, p.Settled,
	)
	return err
}

// MarkSettled flags a payout as having transferred successfully.
func (l *PayoutPostgresLedger) MarkSettled(ctx context.Context, tournamentID, playerID string) error {
	result, err := l.db.ExecContext(ctx, `
		UPDATE pending_payouts SET settled = TRUE WHERE tournament_id = $1 AND player_id = $2
	`, tournamentID, playerID)
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("pending payout not found: tournament=%s player=%s", tournamentID, playerID)
	}
	return nil
}

// MarkAttempt records a retry attempt's timestamp.
func (l *PayoutPostgresLedger) MarkAttempt(ctx context.Context, tournamentID, playerID string, at time.Time) error {
	_, err := l.db.ExecContext(ctx, `
		UPDATE pending_payouts SET last_attempt = $1, attempts = attempts + 1
		WHERE tournament_id = $2 AND player_id = $3
	`, at, tournamentID, playerID)
	return err
}

// ListPending returns every unsettled payout for a tournament.
func (l *PayoutPostgresLedger) ListPending(ctx context.Context, tournamentID string) ([]storage.PendingPayout, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT tournament_id, player_id, amount, position, created_at, last_attempt, attempts, settled
		FROM pending_payouts
		WHERE tournament_id = $1 AND settled = FALSE
		ORDER BY position
	`, tournamentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []storage.PendingPayout
	for rows.Next() {
		var p storage.PendingPayout
		var lastAttempt sql.NullTime
		if err := rows.Scan(
			&p.TournamentID, &p.PlayerID, &p.Amount, &p.Position, &p.CreatedAt,
			&lastAttempt, &p.Attempts, &p.Settled,
		); err != nil {
			return nil, err
		}
		if lastAttempt.Valid {
			p.LastAttempt = lastAttempt.Time
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
