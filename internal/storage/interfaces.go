package storage

import (
	"context"
	"time"
)

// TableSnapshot is the serializable record of one Table actor's state, the
// StorableTable of §6's persistent state layout. State holds what
// cmd/server writes: the JSON-encoded PublicTable. The deck, timers,
// deferred queue and per-round betting state are not part of it, and
// nothing rebuilds a live table from a snapshot.
type TableSnapshot struct {
	TableID   string
	State     []byte // JSON-encoded PublicTable, hole cards included
	UpdatedAt time.Time
}

// TournamentSnapshot is the serializable record of one Tournament actor's
// state (StorableTournament).
type TournamentSnapshot struct {
	TournamentID string
	State        []byte
	UpdatedAt    time.Time
}

// SnapshotStore persists actor state and reads it back. cmd/server reads
// snapshots only for its diagnostic /snapshot endpoints; nothing rebuilds a
// live actor from a stored snapshot after a restart.
type SnapshotStore interface {
	SaveTable(ctx context.Context, snap TableSnapshot) error
	LoadTable(ctx context.Context, tableID string) (*TableSnapshot, error)
	DeleteTable(ctx context.Context, tableID string) error

	SaveTournament(ctx context.Context, snap TournamentSnapshot) error
	LoadTournament(ctx context.Context, tournamentID string) (*TournamentSnapshot, error)
	DeleteTournament(ctx context.Context, tournamentID string) error
}

// PendingPayout is one unresolved prize-pool obligation a Tournament
// retains until its user-actor transfer succeeds (§4.2 "retains the
// obligation in pending_payouts and retries until success").
type PendingPayout struct {
	TournamentID string
	PlayerID     string
	Amount       uint64
	Position     int
	CreatedAt    time.Time
	LastAttempt  time.Time
	Attempts     int
	Settled      bool
}

// PayoutLedger persists pending and settled tournament payouts, and
// ListPending reads the unsettled ones back. Nothing reloads them into a
// Tournament actor after a restart.
type PayoutLedger interface {
	RecordPending(ctx context.Context, p PendingPayout) error
	MarkSettled(ctx context.Context, tournamentID, playerID string) error
	MarkAttempt(ctx context.Context, tournamentID, playerID string, at time.Time) error
	ListPending(ctx context.Context, tournamentID string) ([]PendingPayout, error)
}
