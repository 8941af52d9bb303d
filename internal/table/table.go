package table

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"poker-platform/internal/actorcall"
	"poker-platform/internal/integrity"
	"poker-platform/internal/metrics"
	"poker-platform/internal/rake"
	"poker-platform/pkg/card"
)

// Table is the authoritative actor state for one poker hand sequence. A
// single coarse mutex guards all fields; there is no fine-grained locking
// per §5 of the concurrency model.
type Table struct {
	mu sync.RWMutex

	id     string
	config TableConfig
	log    *logrus.Entry

	seats []Seat
	users map[string]*UserTableData

	dealStage      DealStage
	deck           *card.Deck
	communityCards []card.Card
	dealerPosition int
	currentPlayer  int
	handNumber     uint64

	mainPot  uint64
	sidePots []SidePot

	rakeConfig rake.Rake
	rakeTotal  uint64 // withdrawable balance; WithdrawRake decrements this
	rakeCollectedLifetime uint64 // never decremented; fed to the monotonicity check

	highestBetThisRound uint64
	lastRaiseSize       uint64
	raisesThisRound     int
	actedThisRound      map[string]bool

	lastTurnStart time.Time
	handStartedAt time.Time

	auditor *integrity.Auditor

	queue []QueueItem

	paused       bool
	pausedForAddon time.Duration
	isFinalTable bool
}

// bettingFamily maps a table's BettingType onto the rake engine's two fixed
// tier tables (NoLimit/PotLimit share one table; FixedLimit/SpreadLimit
// share the other).
func bettingFamily(bt BettingType) rake.BettingFamily {
	if bt == FixedLimit || bt == SpreadLimit {
		return rake.FixedLimitFamily
	}
	return rake.NoLimitFamily
}

// New creates a table actor (Index's create_table operation). It takes no
// seed: each hand's deck is shuffled from the seed passed to
// StartBettingRound.
func New(config TableConfig, log *logrus.Entry) (*Table, error) {
	if config.MaxSeats <= 0 {
		return nil, actorcall.NewError(actorcall.InvalidRequest, "max seats must be positive")
	}
	if config.BigBlind == 0 || config.SmallBlind == 0 {
		return nil, actorcall.NewError(actorcall.InvalidRequest, "blinds must be positive")
	}
	if config.BettingType == SpreadLimit && (config.SpreadMin == 0 || config.SpreadMax < config.SpreadMin) {
		return nil, actorcall.NewError(actorcall.InvalidRequest, "invalid spread-limit bounds")
	}
	if config.TimerDuration <= 0 {
		config.TimerDuration = 30 * time.Second
	}
	if config.MaxInactiveTurns <= 0 {
		config.MaxInactiveTurns = 3
	}

	rk, err := rake.New(config.SmallBlind, bettingFamily(config.BettingType), config.CurrencyDecimals)
	if err != nil {
		return nil, actorcall.NewError(actorcall.InvalidRequest, err.Error())
	}

	seats := make([]Seat, config.MaxSeats)
	for i := range seats {
		seats[i] = Seat{Status: SeatEmpty}
	}

	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}

	return &Table{
		id:         config.TableID,
		config:     config,
		log:        log.WithField("table_id", config.TableID),
		seats:      seats,
		users:      make(map[string]*UserTableData),
		dealStage:  Fresh,
		rakeConfig: rk,
		actedThisRound: make(map[string]bool),
	}, nil
}

// SetAuditor attaches the invariant auditor used to check universal
// invariants after each state transition. Nil is valid: checks are skipped.
func (t *Table) SetAuditor(a *integrity.Auditor) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.auditor = a
}

// checkInvariantsLocked runs the universal invariant checks that apply at
// hand boundaries and reports any violation to the auditor, if attached.
func (t *Table) checkInvariantsLocked(sidePotsPlusMain, totalCommitted uint64) {
	if t.auditor == nil {
		return
	}
	occupied := t.occupiedCount()
	if v := integrity.CheckSeatUserConsistency(t.id, occupied, len(t.users), len(t.users)); v != nil {
		t.auditor.Report(context.Background(), *v)
	}
	if v := integrity.CheckSidePotConservation(t.id, sidePotsPlusMain, totalCommitted); v != nil {
		t.auditor.Report(context.Background(), *v)
	}
	if v := t.auditor.CheckRakeMonotonic(t.id, t.rakeCollectedLifetime); v != nil {
		t.auditor.Report(context.Background(), *v)
	}
}

func (t *Table) handInProgress() bool {
	return t.dealStage != Fresh && t.dealStage != Showdown
}

func (t *Table) freeSeatIndex() int {
	for i, s := range t.seats {
		if s.Status == SeatEmpty {
			return i
		}
	}
	return -1
}

func (t *Table) occupiedCount() int {
	n := 0
	for _, s := range t.seats {
		if s.Status == SeatOccupied {
			n++
		}
	}
	return n
}

// JoinTable seats a new player. If a hand is in progress the seat is queued
// and only becomes Occupied when the next hand starts.
func (t *Table) JoinTable(userCanisterID, playerID string, seat *int, deposit uint64, sitOut bool) (PublicTable, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.users[playerID]; ok {
		return t.publicLocked(), actorcall.NewError(actorcall.UserAlreadyInGame, playerID)
	}
	for _, s := range t.seats {
		if s.Status == SeatQueuedForNextRound && s.PlayerID == playerID {
			return t.publicLocked(), actorcall.NewError(actorcall.UserAlreadyInGame, playerID)
		}
	}
	if deposit < t.config.MinBuyIn {
		return t.publicLocked(), actorcall.NewError(actorcall.InsufficientFunds, "deposit below minimum buy-in")
	}
	if t.config.MaxBuyIn > 0 && deposit > t.config.MaxBuyIn {
		return t.publicLocked(), actorcall.NewError(actorcall.InvalidRequest, "deposit above maximum buy-in")
	}

	idx := -1
	if seat != nil {
		if *seat < 0 || *seat >= len(t.seats) {
			return t.publicLocked(), actorcall.NewError(actorcall.InvalidRequest, "seat index out of range")
		}
		if t.seats[*seat].Status != SeatEmpty {
			return t.publicLocked(), actorcall.NewError(actorcall.SeatTaken, "")
		}
		idx = *seat
	} else {
		idx = t.freeSeatIndex()
		if idx < 0 {
			return t.publicLocked(), actorcall.NewError(actorcall.GameFull, "")
		}
	}

	if t.handInProgress() {
		t.seats[idx] = Seat{
			Status:   SeatQueuedForNextRound,
			PlayerID: playerID,
			Snapshot: &UserSnapshot{UserCanisterID: userCanisterID, Deposit: deposit, SitOut: sitOut},
		}
	} else {
		t.seats[idx] = Seat{Status: SeatOccupied, PlayerID: playerID}
		t.users[playerID] = &UserTableData{
			UserCanisterID: userCanisterID,
			Chips:          deposit,
			Action:         ActionNone,
			SittingOut:     sitOut,
		}
	}

	t.log.WithFields(logrus.Fields{"player_id": playerID, "seat": idx}).Info("player joined table")
	return t.publicLocked(), nil
}

// LeaveTable removes a player. If a hand is in progress the removal is
// deferred to the next hand boundary; the chips owed are only known once
// the removal is actually applied, so the in-progress case returns 0 and
// the caller must re-query once the hand completes.
func (t *Table) LeaveTable(playerID string) (uint64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.userPresentLocked(playerID) {
		return 0, actorcall.NewError(actorcall.PlayerNotFound, playerID)
	}

	if t.handInProgress() {
		t.queue = append(t.queue, QueueItem{Kind: QueueRemoveUser, PlayerID: playerID})
		return 0, nil
	}

	return t.removePlayerLocked(playerID), nil
}

func (t *Table) userPresentLocked(playerID string) bool {
	if _, ok := t.users[playerID]; ok {
		return true
	}
	for _, s := range t.seats {
		if s.Status == SeatQueuedForNextRound && s.PlayerID == playerID {
			return true
		}
	}
	return false
}

// removePlayerLocked removes a player immediately and returns their staked
// chips. Safe to call twice for the same player: the second call is a no-op
// returning 0, satisfying the queue-item idempotence law.
func (t *Table) removePlayerLocked(playerID string) uint64 {
	for i, s := range t.seats {
		if s.PlayerID == playerID && (s.Status == SeatOccupied || s.Status == SeatQueuedForNextRound) {
			t.seats[i] = Seat{Status: SeatEmpty}
			break
		}
	}
	u, ok := t.users[playerID]
	if !ok {
		return 0
	}
	delete(t.users, playerID)
	return u.Chips
}

// KickPlayer removes a player and settles their balance, for use by a
// tournament controller or operator action.
func (t *Table) KickPlayer(playerID string) (PublicTable, uint64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.userPresentLocked(playerID) {
		return t.publicLocked(), 0, actorcall.NewError(actorcall.PlayerNotFound, playerID)
	}
	balance := t.removePlayerLocked(playerID)
	return t.publicLocked(), balance, nil
}

// DepositToTable adds chips to a seated player's stack, applying
// immediately or queuing if a hand is in progress.
func (t *Table) DepositToTable(playerID string, amount uint64) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.handInProgress() {
		t.queue = append(t.queue, QueueItem{Kind: QueueDeposit, PlayerID: playerID, Deposit: amount})
		return nil
	}
	u, ok := t.users[playerID]
	if !ok {
		return actorcall.NewError(actorcall.PlayerNotFound, playerID)
	}
	u.Chips += amount
	return nil
}

// PauseTable / PauseTableForAddon queue their effect if a hand is in
// progress; otherwise they apply immediately. ResumeTable always applies
// immediately.
func (t *Table) PauseTable() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.handInProgress() {
		t.queue = append(t.queue, QueueItem{Kind: QueuePauseTable})
		return nil
	}
	t.paused = true
	return nil
}

func (t *Table) ResumeTable() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.paused = false
	t.pausedForAddon = 0
	return nil
}

func (t *Table) PauseTableForAddon(d time.Duration) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.handInProgress() {
		t.queue = append(t.queue, QueueItem{Kind: QueuePauseTableForAddon, AddonDuration: d})
		return nil
	}
	t.paused = true
	t.pausedForAddon = d
	return nil
}

// SetAsFinalTable marks the table as the tournament's final table (used by
// the balancer once consolidation completes).
func (t *Table) SetAsFinalTable() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.isFinalTable = true
	return nil
}

// ClearTable resets the table to an empty, hand-free state, ready to be
// returned to the Index's pool.
func (t *Table) ClearTable() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := range t.seats {
		t.seats[i] = Seat{Status: SeatEmpty}
	}
	t.users = make(map[string]*UserTableData)
	t.dealStage = Fresh
	t.deck = nil
	t.communityCards = nil
	t.mainPot = 0
	t.sidePots = nil
	t.queue = nil
	t.handNumber = 0
	t.isFinalTable = false
	t.handStartedAt = time.Time{}
	return nil
}

// UpdateBlinds changes the blind schedule (tournament escalation) and
// re-resolves the rake tier, applying immediately or queuing mid-hand.
func (t *Table) UpdateBlinds(sb, bb uint64, ante *AnteType) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.handInProgress() {
		t.queue = append(t.queue, QueueItem{Kind: QueueUpdateBlinds, NewSmallBlind: sb, NewBigBlind: bb, NewAnte: ante})
		return nil
	}
	return t.applyBlindsLocked(sb, bb, ante)
}

func (t *Table) applyBlindsLocked(sb, bb uint64, ante *AnteType) error {
	rk, err := rake.New(sb, bettingFamily(t.config.BettingType), t.config.CurrencyDecimals)
	if err != nil {
		return actorcall.NewError(actorcall.InvalidRequest, err.Error())
	}
	t.config.SmallBlind = sb
	t.config.BigBlind = bb
	t.config.Ante = ante
	t.rakeConfig = rk
	return nil
}

// WithdrawRake removes up to amount from the accumulated rake total,
// returning the amount actually withdrawn.
func (t *Table) WithdrawRake(amount uint64) uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	if amount > t.rakeTotal {
		amount = t.rakeTotal
	}
	t.rakeTotal -= amount
	metrics.RecordRakeWithdrawn(t.id, amount)
	return amount
}

// GetTable returns the public view of the table.
func (t *Table) GetTable() PublicTable {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.publicLocked()
}

// GetPlayersOnTable returns the ids of every occupied or queued seat holder.
func (t *Table) GetPlayersOnTable() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var ids []string
	for _, s := range t.seats {
		if s.Status == SeatOccupied || s.Status == SeatQueuedForNextRound {
			ids = append(ids, s.PlayerID)
		}
	}
	return ids
}

// GetFreeSeatIndex returns a free seat index, or -1 if the table is full.
func (t *Table) GetFreeSeatIndex() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.freeSeatIndex()
}

func (t *Table) publicLocked() PublicTable {
	seats := make([]Seat, len(t.seats))
	copy(seats, t.seats)

	users := make(map[string]UserTableData, len(t.users))
	for id, u := range t.users {
		users[id] = *u
	}

	community := make([]card.Card, len(t.communityCards))
	copy(community, t.communityCards)

	sidePots := make([]SidePot, len(t.sidePots))
	copy(sidePots, t.sidePots)

	return PublicTable{
		TableID:        t.id,
		Config:         t.config,
		Seats:          seats,
		Users:          users,
		DealStage:      t.dealStage,
		CommunityCards: community,
		DealerPosition: t.dealerPosition,
		CurrentPlayer:  t.currentPlayer,
		MainPot:        t.mainPot,
		SidePots:       sidePots,
		RakeTotal:      t.rakeTotal,
		Paused:         t.paused,
		IsFinalTable:   t.isFinalTable,
		HandNumber:     t.handNumber,
	}
}
