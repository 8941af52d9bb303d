package tournament

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"poker-platform/internal/actorcall"
	"poker-platform/internal/integrity"
	"poker-platform/internal/metrics"
	"poker-platform/internal/table"
)

// TableAllocator is the seam between a Tournament and whatever owns table
// identity and pool reuse (the Index, in production). A Tournament never
// constructs a *table.Table directly; it asks its allocator for one and
// hands it back when the tournament tears down.
type TableAllocator interface {
	AllocateTable(cfg table.TableConfig) (string, *table.Table, error)
	ReleaseTable(tableID string) error
}

// UserTournamentAction tags what happened to a player on a Table, as
// reported back to update_player_count_tournament.
type UserTournamentAction int

const (
	ActionJoinedTable UserTournamentAction = iota
	ActionLeftTable
	ActionEliminatedFromTable
)

// Tournament is the tournament controller actor: registration, scheduled
// start, blind escalation, table balancing, rebuy/reentry/addon policy and
// prize distribution. A single coarse mutex guards all fields, matching the
// table actor's concurrency model.
type Tournament struct {
	mu sync.Mutex

	id     string
	cfg    Config
	log    *logrus.Entry
	alloc  TableAllocator
	balancer *TableBalancer

	state State

	players map[string]*PlayerData
	tables  map[string]*TableInfo

	currentLevel  int
	nextLevelTime time.Time

	prizePool      uint64
	pendingPayouts map[string]uint64

	addonActive bool

	finishOrder [][]string // groups of players, first-eliminated group first

	addonChipsGranted uint64

	auditor *integrity.Auditor
}

// SetAuditor attaches the invariant auditor used to check universal
// invariants after state transitions. Nil is valid: checks are skipped.
func (tm *Tournament) SetAuditor(a *integrity.Auditor) {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	tm.auditor = a
}

// New creates a tournament controller in Registration state. It does not
// allocate any tables until the field closes at start_time.
func New(cfg Config, alloc TableAllocator, log *logrus.Entry) (*Tournament, error) {
	if cfg.MinPlayers <= 0 {
		return nil, actorcall.NewError(actorcall.InvalidRequest, "min players must be positive")
	}
	if cfg.MaxPlayersPerTable <= 0 {
		return nil, actorcall.NewError(actorcall.InvalidRequest, "max players per table must be positive")
	}
	if len(cfg.Schedule) == 0 {
		return nil, actorcall.NewError(actorcall.InvalidRequest, "blind schedule must not be empty")
	}
	if alloc == nil {
		return nil, actorcall.NewError(actorcall.InvalidRequest, "table allocator is required")
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}

	interval := cfg.BalanceIntervalNS
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	minPerTable := cfg.MaxPlayersPerTable / 2
	if minPerTable < 2 {
		minPerTable = 2
	}

	return &Tournament{
		id:    cfg.TournamentID,
		cfg:   cfg,
		log:   log.WithField("tournament_id", cfg.TournamentID),
		alloc: alloc,
		balancer: &TableBalancer{
			MinPlayersPerTable: minPerTable,
			MaxPlayersPerTable: cfg.MaxPlayersPerTable,
			BalanceInterval:    interval,
		},
		state:          Registration,
		players:        make(map[string]*PlayerData),
		tables:         make(map[string]*TableInfo),
		pendingPayouts: make(map[string]uint64),
	}, nil
}

// UserJoinTournament registers a player during Registration or
// LateRegistration and rejects joins once the tournament is Running. A
// player registered during LateRegistration is added to the field and the
// prize pool but is not seated at a table by this call. An eliminated
// player who wants back in goes through Reentry instead,
// which re-registers them as a fresh stack rather than reopening
// registration.
func (tm *Tournament) UserJoinTournament(userCanisterID, playerID string) error {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	if tm.state != Registration && tm.state != LateRegistration {
		return actorcall.NewError(actorcall.StateConflict, "registration is closed")
	}
	if _, ok := tm.players[playerID]; ok {
		return actorcall.NewError(actorcall.UserAlreadyInGame, playerID)
	}

	tm.players[playerID] = &PlayerData{
		UserCanisterID: userCanisterID,
		BuyInPaid:      tm.cfg.BuyIn,
	}
	tm.prizePool += tm.cfg.BuyIn
	tm.log.WithField("player_id", playerID).Info("player joined tournament")
	return nil
}

// UserLeaveTournament withdraws a still-registered player before the field
// starts, refunding their buy-in. Once play has begun a player can only
// leave by losing their stack.
func (tm *Tournament) UserLeaveTournament(userCanisterID, playerID, tableID string) error {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	p, ok := tm.players[playerID]
	if !ok {
		return actorcall.NewError(actorcall.PlayerNotFound, playerID)
	}
	if tm.state != Registration {
		return actorcall.NewError(actorcall.StateConflict, "tournament already running")
	}

	tm.prizePool -= p.BuyInPaid
	delete(tm.players, playerID)
	tm.log.WithField("player_id", playerID).Info("player left tournament before start")
	return nil
}

// HandleUserLosing records an elimination reported by a Table. If the
// player still qualifies for a rebuy, elimination is deferred and this call
// is a no-op pending a Rebuy; otherwise the player is marked eliminated and
// assigned a finishing position. An eliminated player can still come back
// through Reentry, a separate operation, for as long as the reentry window
// stays open.
func (tm *Tournament) HandleUserLosing(playerID, tableID string) error {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	p, ok := tm.players[playerID]
	if !ok {
		return actorcall.NewError(actorcall.PlayerNotFound, playerID)
	}

	if tm.cfg.Options.RebuyEnabled && p.RebuyCount == 0 {
		tm.log.WithField("player_id", playerID).Info("player eligible for rebuy, awaiting rebuy call instead of elimination")
		return nil
	}

	p.Eliminated = true
	p.EliminatedAt = time.Now()
	tm.finishOrder = append(tm.finishOrder, []string{playerID})

	remaining := tm.activePlayerCount()
	p.Position = remaining + 1

	tm.log.WithFields(logrus.Fields{"player_id": playerID, "position": p.Position}).Info("player eliminated")
	metrics.RecordPlayerEliminated(tm.id)

	tm.checkCompletionLocked()
	return nil
}

// Rebuy applies a rebuy purchase for a player whose stack has fallen below
// the rebuy threshold, within the rebuy window.
func (tm *Tournament) Rebuy(playerID string, now time.Time) error {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	p, ok := tm.players[playerID]
	if !ok {
		return actorcall.NewError(actorcall.PlayerNotFound, playerID)
	}
	if !tm.cfg.Options.RebuyEnabled {
		return actorcall.NewError(actorcall.InvalidRequest, "rebuys are not enabled for this tournament")
	}
	if tm.state != Running && tm.state != LateRegistration {
		return actorcall.NewError(actorcall.StateConflict, "rebuys are only available while the tournament is running")
	}
	if tm.cfg.Options.RebuyWindow > 0 && now.Sub(tm.cfg.StartTime) > tm.cfg.Options.RebuyWindow {
		return actorcall.NewError(actorcall.InvalidRequest, "rebuy window has closed")
	}

	info, ok := tm.tables[p.TableID]
	if !ok {
		return actorcall.NewError(actorcall.PlayerNotFound, "player is not seated at a known table")
	}
	if stack, found := info.Table.GetTable().Users[playerID]; found && stack.Chips > tm.cfg.Options.MinChipsForRebuy {
		return actorcall.NewError(actorcall.InvalidRequest, "stack is above the rebuy threshold")
	}
	if err := info.Table.DepositToTable(playerID, tm.cfg.Options.RebuyPrice); err != nil {
		return err
	}
	p.RebuyCount++
	p.LastRebuyTime = now
	tm.prizePool += tm.cfg.Options.RebuyPrice
	return nil
}

// Reentry re-registers an eliminated player as a brand-new entrant, within
// the tournament's reentry window. Unlike Rebuy, which tops up a still-live
// stack, Reentry only applies to a player already marked Eliminated: it
// charges a fresh buy-in into the prize pool, seats the player with a full
// starting stack, and erases their prior elimination from the finishing
// order.
func (tm *Tournament) Reentry(userCanisterID, playerID string, now time.Time) error {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	if !tm.cfg.Options.ReentryEnabled {
		return actorcall.NewError(actorcall.InvalidRequest, "reentry is not enabled for this tournament")
	}
	if tm.state != LateRegistration && tm.state != Running && tm.state != FinalTable {
		return actorcall.NewError(actorcall.StateConflict, "reentry is only available while the tournament is underway")
	}
	if tm.cfg.Options.ReentryWindow > 0 && now.Sub(tm.cfg.StartTime) > tm.cfg.Options.ReentryWindow {
		return actorcall.NewError(actorcall.InvalidRequest, "reentry window has closed")
	}

	p, ok := tm.players[playerID]
	if !ok {
		return actorcall.NewError(actorcall.PlayerNotFound, playerID)
	}
	if !p.Eliminated {
		return actorcall.NewError(actorcall.UserAlreadyInGame, playerID)
	}

	tableID, tbl, err := tm.tableForReentryLocked()
	if err != nil {
		return err
	}
	if _, err := tbl.JoinTable(userCanisterID, playerID, nil, tm.cfg.StartingChips, false); err != nil {
		return err
	}

	tm.removeFromFinishOrderLocked(playerID)
	p.Eliminated = false
	p.EliminatedAt = time.Time{}
	p.Position = 0
	p.TableID = tableID
	p.BuyInPaid += tm.cfg.BuyIn
	tm.prizePool += tm.cfg.BuyIn

	tm.log.WithFields(logrus.Fields{"player_id": playerID, "table_id": tableID}).Info("player re-entered tournament")
	return nil
}

// tableForReentryLocked seats a re-entering player at whichever live table
// has an open seat, preferring the least-occupied one; if every table is
// full, a fresh table is allocated the same way
// deployAndDistributePlayersLocked deploys the initial field. Must be
// called with tm.mu held.
func (tm *Tournament) tableForReentryLocked() (string, *table.Table, error) {
	var bestID string
	var bestInfo *TableInfo
	bestCount := -1
	for id, info := range tm.tables {
		count := len(info.Table.GetPlayersOnTable())
		if count >= tm.cfg.MaxPlayersPerTable {
			continue
		}
		if bestCount == -1 || count < bestCount {
			bestID, bestInfo, bestCount = id, info, count
		}
	}
	if bestInfo != nil {
		return bestID, bestInfo.Table, nil
	}

	level := tm.cfg.Schedule[tm.currentLevel]
	cfg := table.TableConfig{
		TableID:          fmt.Sprintf("%s-table-%d", tm.id, len(tm.tables)),
		BettingType:      tm.cfg.BettingType,
		SmallBlind:       level.SmallBlind,
		BigBlind:         level.BigBlind,
		MaxSeats:         tm.cfg.MaxPlayersPerTable,
		MinBuyIn:         tm.cfg.StartingChips,
		MaxBuyIn:         tm.cfg.StartingChips,
		CurrencyDecimals: 8,
		Ante:             level.Ante,
	}
	tableID, tbl, err := tm.alloc.AllocateTable(cfg)
	if err != nil {
		return "", nil, err
	}
	tm.tables[tableID] = &TableInfo{Table: tbl}
	return tableID, tbl, nil
}

// removeFromFinishOrderLocked strips playerID from its elimination-order
// group, dropping the group entirely once it's empty. Must be called with
// tm.mu held.
func (tm *Tournament) removeFromFinishOrderLocked(playerID string) {
	for i, group := range tm.finishOrder {
		for j, id := range group {
			if id != playerID {
				continue
			}
			group = append(group[:j], group[j+1:]...)
			if len(group) == 0 {
				tm.finishOrder = append(tm.finishOrder[:i], tm.finishOrder[i+1:]...)
			} else {
				tm.finishOrder[i] = group
			}
			return
		}
	}
}

// Addon applies an addon purchase during the configured addon window.
func (tm *Tournament) Addon(playerID string) error {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	p, ok := tm.players[playerID]
	if !ok {
		return actorcall.NewError(actorcall.PlayerNotFound, playerID)
	}
	if !tm.cfg.Options.AddonEnabled || !tm.addonActive {
		return actorcall.NewError(actorcall.InvalidRequest, "addon window is not open")
	}
	info, ok := tm.tables[p.TableID]
	if !ok {
		return actorcall.NewError(actorcall.PlayerNotFound, "player is not seated at a known table")
	}
	if err := info.Table.DepositToTable(playerID, tm.cfg.Options.AddonChips); err != nil {
		return err
	}
	tm.prizePool += tm.cfg.Options.AddonPrice
	tm.addonChipsGranted += tm.cfg.Options.AddonChips
	return nil
}

// checkChipConservationLocked verifies §3/§8 #5: the tournament-wide chip
// stacks held across all owned tables must equal each registrant's starting
// stack plus whatever was handed out as rebuy and addon top-ups; any
// difference, above or below, is reported through the auditor, if one is
// attached.
func (tm *Tournament) checkChipConservationLocked() {
	if tm.auditor == nil {
		return
	}
	var initial, rebuys uint64
	for _, p := range tm.players {
		initial += tm.cfg.StartingChips
		rebuys += uint64(p.RebuyCount) * tm.cfg.Options.RebuyPrice
	}
	expected := initial + rebuys + tm.addonChipsGranted

	var inPlay uint64
	for _, info := range tm.tables {
		for _, u := range info.Table.GetTable().Users {
			inPlay += u.Chips
		}
	}

	if v := integrity.CheckTournamentChipConservation(tm.id, inPlay, expected); v != nil {
		tm.auditor.Report(context.Background(), *v)
	}
}

// UpdatePlayerCountTournament is the callback a Table uses to report a
// seat-occupancy change so the tournament's bookkeeping (which table a
// player sits at) stays current.
func (tm *Tournament) UpdatePlayerCountTournament(tableID, playerID string, action UserTournamentAction) error {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	p, ok := tm.players[playerID]
	if !ok {
		return actorcall.NewError(actorcall.PlayerNotFound, playerID)
	}
	switch action {
	case ActionJoinedTable:
		p.TableID = tableID
	case ActionLeftTable:
		if p.TableID == tableID {
			p.TableID = ""
		}
	case ActionEliminatedFromTable:
		// HandleUserLosing is the authoritative path; this is advisory only.
	}
	return nil
}

// DistributeWinnings reconciles the tournament's finish-order bookkeeping
// against a table's final chip snapshot, used when a table's hand completes
// with only one player holding all of its chips (a table-level knockout,
// not necessarily the whole tournament).
func (tm *Tournament) DistributeWinnings(pub table.PublicTable) error {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	var survivor string
	survivors := 0
	for id, u := range pub.Users {
		if u.Chips > 0 {
			survivor = id
			survivors++
		}
	}
	if survivors != 1 {
		return nil
	}
	if tm.activePlayerCount() == 1 {
		tm.finishOrder = append(tm.finishOrder, []string{survivor})
		tm.checkCompletionLocked()
	}
	return nil
}

// activePlayerCount returns the number of registered players not yet
// eliminated. Must be called with tm.mu held.
func (tm *Tournament) activePlayerCount() int {
	n := 0
	for _, p := range tm.players {
		if !p.Eliminated {
			n++
		}
	}
	return n
}

// checkCompletionLocked transitions Running/FinalTable to Completed once a
// single player remains, awarding the winner position 1 before handing off
// to HandleTournamentEnd's payout sweep. Must be called with tm.mu held.
func (tm *Tournament) checkCompletionLocked() {
	if tm.state == Completed || tm.state == Cancelled {
		return
	}
	if tm.activePlayerCount() != 1 {
		return
	}
	for id, p := range tm.players {
		if !p.Eliminated {
			p.Position = 1
			tm.finishOrder = append(tm.finishOrder, []string{id})
		}
	}
	tm.state = Completed
	tm.log.Info("tournament completed, a single player remains")
}

// HandleTournamentEnd pays out the prize pool per the configured payout
// structure, in finishing order (winner first). Retries of a failed
// per-player credit are the caller's responsibility via pendingPayouts;
// Completed bookkeeping here only records obligations, it does not perform
// the ledger transfer itself (that belongs to the user-actor call site).
func (tm *Tournament) HandleTournamentEnd() error {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	if tm.state != Completed {
		return actorcall.NewError(actorcall.StateConflict, "tournament is not complete")
	}

	groups := reverseGroups(tm.finishOrder)
	results := ComputePayouts(tm.prizePool, tm.cfg.Payout, groups)
	for _, r := range results {
		if r.Amount == 0 {
			continue
		}
		tm.pendingPayouts[r.PlayerID] = r.Amount
	}
	tm.log.WithField("payout_count", len(tm.pendingPayouts)).Info("prize pool payouts computed and queued")
	return nil
}

// SettlePayout marks one pending payout as delivered, once the caller's
// ledger transfer to the player's user actor has succeeded.
func (tm *Tournament) SettlePayout(playerID string) {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	delete(tm.pendingPayouts, playerID)
}

// PendingPayouts returns a snapshot of obligations not yet confirmed
// delivered, for the caller's retry loop.
func (tm *Tournament) PendingPayouts() map[string]uint64 {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	out := make(map[string]uint64, len(tm.pendingPayouts))
	for k, v := range tm.pendingPayouts {
		out[k] = v
	}
	return out
}

// HandleCancelledTournament refunds every registrant's buy-in in full and
// moves the tournament to Cancelled. No rake is ever withheld from a
// cancelled tournament's refunds.
func (tm *Tournament) HandleCancelledTournament() error {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	if tm.state != Registration && tm.state != LateRegistration {
		return actorcall.NewError(actorcall.StateConflict, "tournament has already started")
	}
	for id, p := range tm.players {
		tm.pendingPayouts[id] = p.BuyInPaid
	}
	tm.state = Cancelled
	tm.log.WithField("refund_count", len(tm.pendingPayouts)).Info("tournament cancelled, buy-ins queued for refund")
	return nil
}

// State returns the tournament's current lifecycle stage.
func (tm *Tournament) State() State {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	return tm.state
}

// Snapshot is the persistable summary of a tournament's lifecycle state,
// enough for an operator to see where a tournament was when it was last
// written without reconstructing full table/seat state from it.
type Snapshot struct {
	ID             string
	State          string
	CurrentLevel   int
	PrizePool      uint64
	RemainingCount int
	PendingPayouts map[string]uint64
}

// Snapshot captures the tournament's current lifecycle summary for
// persistence.
func (tm *Tournament) Snapshot() Snapshot {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	pending := make(map[string]uint64, len(tm.pendingPayouts))
	for k, v := range tm.pendingPayouts {
		pending[k] = v
	}
	remaining := 0
	for _, p := range tm.players {
		if !p.Eliminated {
			remaining++
		}
	}
	return Snapshot{
		ID:             tm.id,
		State:          tm.state.String(),
		CurrentLevel:   tm.currentLevel,
		PrizePool:      tm.prizePool,
		RemainingCount: remaining,
		PendingPayouts: pending,
	}
}

// ID returns the tournament's identity, assigned at creation.
func (tm *Tournament) ID() string {
	return tm.id
}

// Heartbeat runs the tournament's periodic checks in the order the field
// actually needs them resolved: start-of-field, late-registration close,
// addon window, blind escalation, then table balancing. A failure in one
// step (e.g. one table's update_blinds call) never aborts the remaining
// steps for this tick.
func (tm *Tournament) Heartbeat(now time.Time) {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	start := time.Now()

	tm.checkAndStartTournamentLocked(now)
	tm.checkLateRegistrationEndLocked(now)
	tm.checkAddonPeriodLocked(now)
	tm.checkAndUpdateBlindsLocked(now)
	tm.checkAndBalanceTablesLocked(now)
	tm.checkChipConservationLocked()

	metrics.RecordHeartbeat("tournament", start.Sub(now), time.Since(start))
}

func (tm *Tournament) checkAndStartTournamentLocked(now time.Time) {
	if tm.state != Registration {
		return
	}
	if now.Before(tm.cfg.StartTime) {
		return
	}
	if len(tm.players) < tm.cfg.MinPlayers {
		tm.state = Cancelled
		for id, p := range tm.players {
			tm.pendingPayouts[id] = p.BuyInPaid
		}
		tm.log.Warn("tournament did not meet minimum players by start time, cancelling")
		return
	}

	if tm.cfg.LateRegDuration > 0 {
		tm.state = LateRegistration
	} else {
		tm.state = Running
	}
	tm.currentLevel = 0
	tm.nextLevelTime = now.Add(tm.cfg.Schedule[0].Duration)
	tm.deployAndDistributePlayersLocked()
	tm.log.WithField("state", tm.state.String()).Info("tournament field closed and deployed to tables")
}

func (tm *Tournament) checkLateRegistrationEndLocked(now time.Time) {
	if tm.state != LateRegistration {
		return
	}
	if now.Before(tm.cfg.StartTime.Add(tm.cfg.LateRegDuration)) {
		return
	}
	tm.state = Running
	tm.log.Info("late registration window closed")
}

func (tm *Tournament) checkAddonPeriodLocked(now time.Time) {
	if !tm.cfg.Options.AddonEnabled {
		return
	}
	inWindow := !now.Before(tm.cfg.Options.AddonStartTime) && !now.After(tm.cfg.Options.AddonEndTime)
	if inWindow == tm.addonActive {
		return
	}
	tm.addonActive = inWindow
	for id, info := range tm.tables {
		var err error
		if inWindow {
			err = info.Table.PauseTableForAddon(tm.cfg.Options.AddonEndTime.Sub(now))
		} else {
			err = info.Table.ResumeTable()
		}
		if err != nil {
			tm.log.WithFields(logrus.Fields{"table_id": id, "error": err.Error()}).Warn("addon pause/resume call failed, retrying next heartbeat")
		}
	}
}

func (tm *Tournament) checkAndUpdateBlindsLocked(now time.Time) {
	if tm.state != Running && tm.state != FinalTable {
		return
	}
	if now.Before(tm.nextLevelTime) {
		return
	}
	if tm.currentLevel+1 >= len(tm.cfg.Schedule) {
		return
	}
	tm.currentLevel++
	level := tm.cfg.Schedule[tm.currentLevel]
	tm.nextLevelTime = now.Add(level.Duration)

	for id, info := range tm.tables {
		if err := info.Table.UpdateBlinds(level.SmallBlind, level.BigBlind, level.Ante); err != nil {
			tm.log.WithFields(logrus.Fields{"table_id": id, "error": err.Error()}).Warn("blind update failed on one table, retrying next heartbeat")
		}
	}
	tm.log.WithField("level", tm.currentLevel).Info("blinds escalated")
}

func (tm *Tournament) checkAndBalanceTablesLocked(now time.Time) {
	if tm.state != Running && tm.state != FinalTable {
		return
	}
	if len(tm.tables) == 0 {
		return
	}

	occupancy := make(map[string][]string, len(tm.tables))
	lastBalance := make(map[string]time.Time, len(tm.tables))
	for id, info := range tm.tables {
		occupancy[id] = info.Table.GetPlayersOnTable()
		lastBalance[id] = info.LastBalanceTime
	}

	moves := tm.balancer.ComputeMoves(occupancy, lastBalance, now)
	if len(moves) == 0 {
		return
	}

	failures := 0
	for _, mv := range moves {
		if !tm.applyMoveLocked(mv) {
			failures++
		}
	}
	metrics.RecordBalancerHeartbeat(tm.id, len(moves), failures)
	for _, mv := range moves {
		if info, ok := tm.tables[mv.SrcTable]; ok {
			info.LastBalanceTime = now
		}
		if info, ok := tm.tables[mv.DstTable]; ok {
			info.LastBalanceTime = now
		}
	}

	for id, info := range tm.tables {
		if len(info.Table.GetPlayersOnTable()) > 0 {
			continue
		}
		if err := info.Table.ClearTable(); err != nil {
			tm.log.WithFields(logrus.Fields{"table_id": id, "error": err.Error()}).Warn("clear_table failed on emptied table")
		}
		if err := tm.alloc.ReleaseTable(id); err != nil {
			tm.log.WithFields(logrus.Fields{"table_id": id, "error": err.Error()}).Warn("failed to release emptied table back to pool")
		}
		delete(tm.tables, id)
	}

	if len(tm.tables) == 1 && tm.activePlayerCount() <= tm.cfg.FinalTableSeats {
		for _, info := range tm.tables {
			if err := info.Table.SetAsFinalTable(); err != nil {
				tm.log.WithField("error", err.Error()).Warn("set_as_final_table failed")
			}
		}
		tm.state = FinalTable
	}
}

// applyMoveLocked realizes leave_table_for_table_balancing: remove the
// player and their stack from src, then join them at dst with the same
// stack, retrying the join a bounded number of times. A join that still
// fails after the last attempt is logged at error level with the player
// marked in limbo for manual resolution; the player is not re-seated at src,
// nothing records the move, and no later heartbeat retries it.
func (tm *Tournament) applyMoveLocked(mv Move) bool {
	src, ok := tm.tables[mv.SrcTable]
	if !ok {
		return false
	}
	_, stack, err := src.Table.KickPlayer(mv.PlayerID)
	if err != nil {
		tm.log.WithFields(logrus.Fields{"player_id": mv.PlayerID, "src": mv.SrcTable, "error": err.Error()}).Warn("balancer move failed to remove player from source table")
		return false
	}

	dst, ok := tm.tables[mv.DstTable]
	if !ok {
		tm.log.WithField("player_id", mv.PlayerID).Error("balancer move destination table vanished, player in limbo")
		return false
	}

	var lastErr error
	for attempt := 0; attempt < actorcall.DefaultBalancerRetry.MaxAttempts; attempt++ {
		_, err := dst.Table.JoinTable(tm.players[mv.PlayerID].UserCanisterID, mv.PlayerID, nil, stack, false)
		if err == nil {
			if p, ok := tm.players[mv.PlayerID]; ok {
				p.TableID = mv.DstTable
			}
			return true
		}
		lastErr = err
	}
	tm.log.WithFields(logrus.Fields{"player_id": mv.PlayerID, "dst": mv.DstTable, "error": fmt.Sprint(lastErr)}).Error("balancer move exhausted retries joining destination table, player in limbo")
	return false
}

// deployAndDistributePlayersLocked allocates the tables the field needs and
// seats every registrant evenly across them.
func (tm *Tournament) deployAndDistributePlayersLocked() {
	total := len(tm.players)
	if total == 0 {
		return
	}
	numTables := (total + tm.cfg.MaxPlayersPerTable - 1) / tm.cfg.MaxPlayersPerTable
	if numTables < 1 {
		numTables = 1
	}
	perTable := calculatePlayersPerTable(total, numTables)

	ids := make([]string, 0, total)
	for id := range tm.players {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	level := tm.cfg.Schedule[0]
	idx := 0
	for t := 0; t < numTables; t++ {
		cfg := table.TableConfig{
			TableID:          fmt.Sprintf("%s-table-%d", tm.id, t),
			BettingType:      tm.cfg.BettingType,
			SmallBlind:       level.SmallBlind,
			BigBlind:         level.BigBlind,
			MaxSeats:         tm.cfg.MaxPlayersPerTable,
			MinBuyIn:         tm.cfg.StartingChips,
			MaxBuyIn:         tm.cfg.StartingChips,
			CurrencyDecimals: 8,
			Ante:             level.Ante,
		}
		tableID, tbl, err := tm.alloc.AllocateTable(cfg)
		if err != nil {
			tm.log.WithField("error", err.Error()).Error("failed to allocate table for tournament deployment")
			continue
		}
		tm.tables[tableID] = &TableInfo{Table: tbl}

		for seated := 0; seated < perTable[t] && idx < len(ids); seated, idx = seated+1, idx+1 {
			playerID := ids[idx]
			p := tm.players[playerID]
			if _, err := tbl.JoinTable(p.UserCanisterID, playerID, nil, tm.cfg.StartingChips, false); err != nil {
				tm.log.WithFields(logrus.Fields{"player_id": playerID, "table_id": tableID, "error": err.Error()}).Error("failed to seat player during deployment")
				continue
			}
			p.TableID = tableID
		}
	}
}

// calculatePlayersPerTable distributes total players evenly across n
// tables, with any remainder going to the first tables in order.
func calculatePlayersPerTable(total, n int) []int {
	base := total / n
	remainder := total % n
	out := make([]int, n)
	for i := range out {
		out[i] = base
		if i < remainder {
			out[i]++
		}
	}
	return out
}

// reverseGroups turns finishOrder (elimination order, earliest-out first)
// into payout-rank order (winner first).
func reverseGroups(finishOrder [][]string) [][]string {
	out := make([][]string, len(finishOrder))
	for i, g := range finishOrder {
		out[len(finishOrder)-1-i] = g
	}
	return out
}
