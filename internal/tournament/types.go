// Package tournament implements the tournament controller actor: the
// registration lifecycle, scheduled start, blind-level escalation, table
// balancing and consolidation, rebuy/reentry/addon policy, and prize-pool
// payout described in the platform's tournament component.
package tournament

import (
	"time"

	"poker-platform/internal/table"
)

// State is the tournament's lifecycle stage.
type State int

const (
	Registration State = iota
	LateRegistration
	Running
	FinalTable
	Completed
	Cancelled
)

func (s State) String() string {
	names := []string{"Registration", "LateRegistration", "Running", "FinalTable", "Completed", "Cancelled"}
	if int(s) < len(names) {
		return names[s]
	}
	return "Unknown"
}

// Kind is the tournament's format.
type Kind int

const (
	BuyIn Kind = iota
	Freeroll
	SitAndGo
	SpinAndGo
)

// BlindLevel is one entry of the escalating blind schedule.
type BlindLevel struct {
	SmallBlind uint64
	BigBlind   uint64
	Ante       *table.AnteType
	Duration   time.Duration
}

// Options gathers the optional buy-in policies a tournament may enable.
type Options struct {
	RebuyEnabled      bool
	MinChipsForRebuy  uint64
	RebuyPrice        uint64
	RebuyWindow       time.Duration
	ReentryEnabled    bool
	ReentryWindow     time.Duration
	AddonEnabled      bool
	AddonStartTime    time.Time
	AddonEndTime      time.Time
	AddonPrice        uint64
	AddonChips        uint64
	Freezeout         bool
}

// PayoutEntry is one row of the prize structure: a finishing position and
// the percentage of the prize pool it is owed. Percentages across all
// entries must sum to 100.
type PayoutEntry struct {
	Position   int
	PercentBps uint64 // basis points of 100%, i.e. out of 10_000
}

// PlayerData is the tournament-level record for one registrant. Chip stacks
// during play are authoritative on the Table actor; this tracks identity,
// elimination/position, and rebuy/reentry bookkeeping.
type PlayerData struct {
	UserCanisterID string
	BuyInPaid      uint64
	TableID        string
	Eliminated     bool
	EliminatedAt   time.Time
	Position       int // 0 until eliminated or the tournament completes
	RebuyCount     int
	LastRebuyTime  time.Time
}

// TableInfo is the tournament's bookkeeping for one Table actor it owns.
type TableInfo struct {
	Table           *table.Table
	LastBalanceTime time.Time
}

// Config is the immutable-at-creation shape of a tournament.
type Config struct {
	TournamentID        string
	Kind                Kind
	BuyIn               uint64
	StartingChips       uint64
	MinPlayers          int
	MaxPlayersPerTable  int
	FinalTableSeats     int
	StartTime           time.Time
	LateRegDuration     time.Duration
	Schedule            []BlindLevel
	Options             Options
	Payout              []PayoutEntry
	BettingType         table.BettingType
	BalanceIntervalNS   time.Duration
}

// Move is one balancer-directed player relocation, realized by
// leave_table_for_table_balancing(src, dst, player).
type Move struct {
	PlayerID string
	SrcTable string
	DstTable string
}
