// Package table implements the poker table actor: the authoritative state
// machine for one hand sequence (seats, chips, deck, deal stage, pots,
// action timer, deferred queue) described in the platform's table component.
package table

import (
	"time"

	"poker-platform/pkg/card"
)

// SeatStatus is the tag of the Seat union.
type SeatStatus int

const (
	SeatEmpty SeatStatus = iota
	SeatOccupied
	SeatQueuedForNextRound
	SeatReserved
)

func (s SeatStatus) String() string {
	switch s {
	case SeatEmpty:
		return "Empty"
	case SeatOccupied:
		return "Occupied"
	case SeatQueuedForNextRound:
		return "QueuedForNextRound"
	case SeatReserved:
		return "Reserved"
	default:
		return "Unknown"
	}
}

// UserSnapshot is the deposit and identity captured for a player who joined
// mid-hand and is waiting for the next hand to start.
type UserSnapshot struct {
	UserCanisterID string
	Deposit        uint64
	SitOut         bool
}

// Seat is one position at the table.
type Seat struct {
	Status        SeatStatus
	PlayerID      string
	Snapshot      *UserSnapshot
	ReservedUntil time.Time
}

// PlayerAction is the per-hand action state of an occupied seat's holder.
type PlayerAction int

const (
	ActionNone PlayerAction = iota
	ActionChecked
	ActionCalled
	ActionRaised
	ActionAllIn
	ActionFolded
	ActionSittingOut
	ActionJoining
)

func (a PlayerAction) String() string {
	names := []string{"None", "Checked", "Called", "Raised", "AllIn", "Folded", "SittingOut", "Joining"}
	if int(a) < len(names) {
		return names[a]
	}
	return "Unknown"
}

// UserTableData is the per-hand bookkeeping for one seated player, plus
// their persistent stack.
type UserTableData struct {
	UserCanisterID  string
	Chips           uint64
	CurrentTotalBet uint64
	CurrentRoundBet uint64
	Action          PlayerAction
	HoleCards       []card.Card
	ShowCards       bool
	InactiveTurns   int
	SittingOut      bool
}

// DealStage is the per-hand progression of the deal.
type DealStage int

const (
	Fresh DealStage = iota
	Opening
	Flop
	Turn
	River
	Showdown
)

func (d DealStage) String() string {
	names := []string{"Fresh", "Opening", "Flop", "Turn", "River", "Showdown"}
	if int(d) < len(names) {
		return names[d]
	}
	return "Unknown"
}

func (d DealStage) isBetting() bool {
	return d == Opening || d == Flop || d == Turn || d == River
}

// BettingType selects the raise/bet-sizing rules for a table (§4.1).
type BettingType int

const (
	NoLimit BettingType = iota
	FixedLimit
	SpreadLimit
	PotLimit
)

func (b BettingType) String() string {
	names := []string{"NoLimit", "FixedLimit", "SpreadLimit", "PotLimit"}
	if int(b) < len(names) {
		return names[b]
	}
	return "Unknown"
}

// AnteType optionally forces a per-player contribution before the hand.
type AnteType struct {
	Amount uint64
}

// TableConfig is the immutable-at-creation shape of a table.
type TableConfig struct {
	TableID          string
	BettingType       BettingType
	SmallBlind        uint64
	BigBlind          uint64
	SpreadMin         uint64 // SpreadLimit only
	SpreadMax         uint64 // SpreadLimit only
	MaxSeats          int
	MinBuyIn          uint64
	MaxBuyIn          uint64
	CurrencyDecimals  uint8
	TimerDuration     time.Duration
	MaxInactiveTurns  int
	Ante              *AnteType
}

// BetKind is the tag of a bet(user, BetType) call.
type BetKind int

const (
	BetCall BetKind = iota
	BetRaise
	BetAllIn
)

// BetType is the argument to bet(). Amount is the absolute total bet-for-this-street
// the player wants to reach; it is ignored for BetCall and BetAllIn.
type BetType struct {
	Kind   BetKind
	Amount uint64
}

// SidePot is one layer of the pot: an amount and the set of players eligible
// to win it (before the live-player filter applied at showdown).
type SidePot struct {
	Amount       uint64
	Contributors map[string]bool
}

// QueueKind is the tag of a deferred QueueItem.
type QueueKind int

const (
	QueueSittingIn QueueKind = iota
	QueueDeposit
	QueueSittingOut
	QueueRemoveUser
	QueueLeaveTableToMove
	QueueUpdateBlinds
	QueuePauseTable
	QueuePauseTableForAddon
)

// QueueItem is one deferred mutation, accepted mid-hand and applied at the
// next hand boundary. Every kind is safe to apply more than once.
type QueueItem struct {
	Kind           QueueKind
	PlayerID       string
	UserCanisterID string
	Deposit        uint64
	NewSmallBlind  uint64
	NewBigBlind    uint64
	NewAnte        *AnteType
	AddonDuration  time.Duration
}

// PublicTable is the externally visible view of a Table. It carries the
// fields below (every user's hole cards included); the deck, timers, the
// deferred queue and the table-level round counters (highest bet, last
// raise size, who has acted) are not part of it.
type PublicTable struct {
	TableID        string
	Config         TableConfig
	Seats          []Seat
	Users          map[string]UserTableData
	DealStage      DealStage
	CommunityCards []card.Card
	DealerPosition int
	CurrentPlayer  int
	MainPot        uint64
	SidePots       []SidePot
	RakeTotal      uint64
	Paused         bool
	IsFinalTable   bool
	HandNumber     uint64
}
