package table

import (
	"time"

	"github.com/sirupsen/logrus"

	"poker-platform/internal/actorcall"
	"poker-platform/pkg/card"
)

// StartBettingRound begins a new hand: drains the deferred queue, seats any
// queued joiners, rotates the dealer, posts blinds and antes, deals hole
// cards from a deck shuffled with seed, and advances to Opening.
func (t *Table) StartBettingRound(seed []byte) (PublicTable, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.dealStage != Fresh && t.dealStage != Showdown && t.dealStage != Opening {
		return t.publicLocked(), actorcall.NewError(actorcall.StateConflict, "cannot start a hand from "+t.dealStage.String())
	}

	t.drainQueueLocked()
	t.seatQueuedPlayersLocked()

	eligible := t.eligibleSeatIndicesLocked()
	if len(eligible) < 2 {
		return t.publicLocked(), actorcall.NewError(actorcall.StateConflict, "fewer than two players ready to play")
	}

	for _, idx := range eligible {
		u := t.users[t.seats[idx].PlayerID]
		u.CurrentTotalBet = 0
		u.CurrentRoundBet = 0
		u.HoleCards = nil
		u.ShowCards = false
		if u.SittingOut {
			u.Action = ActionSittingOut
		} else {
			u.Action = ActionNone
		}
	}

	if t.handNumber == 0 {
		t.dealerPosition = eligible[0]
	} else {
		t.dealerPosition = t.nextSeatInLocked(eligible, t.dealerPosition)
	}
	t.handNumber++

	t.deck = card.NewShuffled(seed)
	t.communityCards = nil

	if t.config.Ante != nil && t.config.Ante.Amount > 0 {
		for _, idx := range eligible {
			u := t.users[t.seats[idx].PlayerID]
			if u.Action == ActionSittingOut {
				continue
			}
			amt := t.config.Ante.Amount
			if amt > u.Chips {
				amt = u.Chips
			}
			u.Chips -= amt
			u.CurrentTotalBet += amt
		}
	}

	playing := filterActable(eligible, t.seats, t.users)
	for _, idx := range playing {
		u := t.users[t.seats[idx].PlayerID]
		c1, _ := t.deck.Draw()
		c2, _ := t.deck.Draw()
		u.HoleCards = []card.Card{c1, c2}
	}

	sbIdx := t.nextSeatInLocked(playing, t.dealerPosition)
	bbIdx := t.nextSeatInLocked(playing, sbIdx)
	if len(playing) == 2 {
		// heads-up: the dealer posts the small blind and acts first preflop.
		sbIdx = t.dealerPosition
		bbIdx = t.nextSeatInLocked(playing, sbIdx)
	}

	sbAmt := t.postBlindLocked(sbIdx, t.config.SmallBlind)
	bbAmt := t.postBlindLocked(bbIdx, t.config.BigBlind)

	t.highestBetThisRound = sbAmt
	if bbAmt > t.highestBetThisRound {
		t.highestBetThisRound = bbAmt
	}
	t.lastRaiseSize = t.config.BigBlind
	t.raisesThisRound = 0
	t.actedThisRound = make(map[string]bool)
	t.mainPot = 0
	t.sidePots = nil

	start := t.nextSeatInLocked(playing, bbIdx)
	if len(playing) == 2 {
		start = sbIdx
	}
	t.currentPlayer = start
	t.lastTurnStart = time.Now()
	t.handStartedAt = t.lastTurnStart
	t.dealStage = Opening

	t.log.WithFields(logrus.Fields{"hand": t.handNumber, "dealer": t.dealerPosition}).Info("hand started")

	if t.isRoundCompleteLocked() {
		t.advanceStageLocked()
	}

	return t.publicLocked(), nil
}

func (t *Table) postBlindLocked(seatIdx int, blind uint64) uint64 {
	if seatIdx < 0 {
		return 0
	}
	u := t.users[t.seats[seatIdx].PlayerID]
	amt := blind
	if amt > u.Chips {
		amt = u.Chips
		u.Action = ActionAllIn
	}
	u.Chips -= amt
	u.CurrentRoundBet = amt
	u.CurrentTotalBet += amt
	return amt
}

func (t *Table) eligibleSeatIndicesLocked() []int {
	var out []int
	for i, s := range t.seats {
		if s.Status == SeatOccupied {
			out = append(out, i)
		}
	}
	return out
}

func filterActable(indices []int, seats []Seat, users map[string]*UserTableData) []int {
	var out []int
	for _, idx := range indices {
		u := users[seats[idx].PlayerID]
		if u != nil && !u.SittingOut {
			out = append(out, idx)
		}
	}
	return out
}

// nextSeatInLocked returns the next index in candidates strictly after
// `after` in seat order, wrapping. candidates must be in ascending seat
// order; `after` need not be one of them. Panics-free on an empty slice
// (returns -1).
func (t *Table) nextSeatInLocked(candidates []int, after int) int {
	if len(candidates) == 0 {
		return -1
	}
	for _, idx := range candidates {
		if idx > after {
			return idx
		}
	}
	return candidates[0]
}

func (t *Table) seatQueuedPlayersLocked() {
	for i, s := range t.seats {
		if s.Status != SeatQueuedForNextRound {
			continue
		}
		t.seats[i] = Seat{Status: SeatOccupied, PlayerID: s.PlayerID}
		t.users[s.PlayerID] = &UserTableData{
			UserCanisterID: s.Snapshot.UserCanisterID,
			Chips:          s.Snapshot.Deposit,
			Action:         ActionNone,
			SittingOut:     s.Snapshot.SitOut,
		}
	}
}

func (t *Table) seatIndexByPlayerLocked(playerID string) int {
	for i, s := range t.seats {
		if s.PlayerID == playerID && s.Status == SeatOccupied {
			return i
		}
	}
	return -1
}

func isActable(u *UserTableData) bool {
	return u != nil && u.Action != ActionFolded && u.Action != ActionAllIn && u.Action != ActionSittingOut
}

func (t *Table) liveCountLocked() int {
	n := 0
	for _, s := range t.seats {
		if s.Status != SeatOccupied {
			continue
		}
		u := t.users[s.PlayerID]
		if u != nil && u.Action != ActionFolded && u.Action != ActionSittingOut {
			n++
		}
	}
	return n
}

func (t *Table) isRoundCompleteLocked() bool {
	if t.liveCountLocked() <= 1 {
		return true
	}
	for _, s := range t.seats {
		if s.Status != SeatOccupied {
			continue
		}
		u := t.users[s.PlayerID]
		if !isActable(u) {
			continue
		}
		if !t.actedThisRound[s.PlayerID] || u.CurrentRoundBet != t.highestBetThisRound {
			return false
		}
	}
	return true
}

func (t *Table) validateTurnLocked(playerID string) (*UserTableData, error) {
	if !t.dealStage.isBetting() {
		return nil, actorcall.NewError(actorcall.StateConflict, "not a betting stage")
	}
	idx := t.seatIndexByPlayerLocked(playerID)
	if idx < 0 {
		return nil, actorcall.NewError(actorcall.PlayerNotFound, playerID)
	}
	if idx != t.currentPlayer {
		return nil, actorcall.NewError(actorcall.NotYourTurn, playerID)
	}
	u := t.users[playerID]
	if !isActable(u) {
		return nil, actorcall.NewError(actorcall.StateConflict, "player cannot act")
	}
	return u, nil
}

// Bet applies a bet/raise/all-in from playerID, validated against the
// table's betting type, and advances the hand.
func (t *Table) Bet(playerID string, bt BetType) (PublicTable, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	u, err := t.validateTurnLocked(playerID)
	if err != nil {
		return t.publicLocked(), err
	}

	newTotal, isAllIn, err := t.resolveBetLocked(u, bt)
	if err != nil {
		return t.publicLocked(), err
	}

	delta := newTotal - u.CurrentRoundBet
	if delta > u.Chips {
		return t.publicLocked(), actorcall.NewError(actorcall.InsufficientFunds, playerID)
	}

	raiseSize := int64(newTotal) - int64(t.highestBetThisRound)
	u.Chips -= delta
	u.CurrentRoundBet = newTotal
	u.CurrentTotalBet += delta

	switch {
	case isAllIn:
		u.Action = ActionAllIn
	case newTotal > t.highestBetThisRound:
		u.Action = ActionRaised
	default:
		u.Action = ActionCalled
	}

	if newTotal > t.highestBetThisRound {
		if raiseSize >= int64(t.lastRaiseSize) || t.highestBetThisRound == 0 {
			t.lastRaiseSize = uint64(raiseSize)
		}
		t.highestBetThisRound = newTotal
		t.raisesThisRound++
	}
	t.actedThisRound[playerID] = true

	t.afterActionLocked()
	return t.publicLocked(), nil
}

// resolveBetLocked validates bt against the table's betting type and
// returns the player's new CurrentRoundBet total and whether it exhausts
// their stack.
func (t *Table) resolveBetLocked(u *UserTableData, bt BetType) (newTotal uint64, isAllIn bool, err error) {
	stackTotal := u.CurrentRoundBet + u.Chips

	switch bt.Kind {
	case BetAllIn:
		return stackTotal, true, nil

	case BetCall:
		target := t.highestBetThisRound
		if target > stackTotal {
			return stackTotal, true, nil
		}
		return target, false, nil

	case BetRaise:
		target := bt.Amount
		if target >= stackTotal {
			return stackTotal, true, nil
		}
		minRaiseTo := t.highestBetThisRound + t.lastRaiseSize
		if t.highestBetThisRound == 0 {
			minRaiseTo = t.config.BigBlind
		}

		switch t.config.BettingType {
		case NoLimit:
			if target < minRaiseTo {
				return 0, false, actorcall.NewError(actorcall.IllegalBet, "raise below minimum raise size")
			}
		case FixedLimit:
			if t.raisesThisRound >= 4 {
				return 0, false, actorcall.NewError(actorcall.IllegalBet, "maximum raises reached")
			}
			fixedBet := t.config.BigBlind
			if t.dealStage == Turn || t.dealStage == River {
				fixedBet = 2 * t.config.BigBlind
			}
			if target != t.highestBetThisRound+fixedBet {
				return 0, false, actorcall.NewError(actorcall.IllegalBet, "fixed-limit bet must be exactly the fixed increment")
			}
		case SpreadLimit:
			amount := target - t.highestBetThisRound
			if amount < t.config.SpreadMin || amount > t.config.SpreadMax {
				return 0, false, actorcall.NewError(actorcall.IllegalBet, "spread-limit amount out of range")
			}
		case PotLimit:
			amountToCall := t.highestBetThisRound - u.CurrentRoundBet
			maxRaiseTo := t.highestBetThisRound + t.potTotalLocked() + amountToCall
			if target < minRaiseTo || target > maxRaiseTo {
				return 0, false, actorcall.NewError(actorcall.IllegalBet, "raise outside pot-limit bounds")
			}
		}
		return target, false, nil

	default:
		return 0, false, actorcall.NewError(actorcall.InvalidRequest, "unknown bet kind")
	}
}

func (t *Table) potTotalLocked() uint64 {
	var total uint64
	for _, u := range t.users {
		total += u.CurrentTotalBet
	}
	return total
}

// Check records a check, legal only when facing no outstanding bet.
func (t *Table) Check(playerID string) (PublicTable, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	u, err := t.validateTurnLocked(playerID)
	if err != nil {
		return t.publicLocked(), err
	}
	if t.highestBetThisRound != 0 && u.CurrentRoundBet != t.highestBetThisRound {
		return t.publicLocked(), actorcall.NewError(actorcall.IllegalBet, "cannot check while facing a bet")
	}
	u.Action = ActionChecked
	t.actedThisRound[playerID] = true
	t.afterActionLocked()
	return t.publicLocked(), nil
}

// Fold marks the player folded; if only one live player remains, the hand
// jumps straight to single-winner showdown.
func (t *Table) Fold(playerID string) (PublicTable, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	u, err := t.validateTurnLocked(playerID)
	if err != nil {
		return t.publicLocked(), err
	}
	u.Action = ActionFolded
	t.actedThisRound[playerID] = true
	t.afterActionLocked()
	return t.publicLocked(), nil
}

// afterActionLocked progresses the hand after any action: to single-winner
// showdown if only one live player remains, to the next street if the
// betting round completed, or to the next actable player's turn.
func (t *Table) afterActionLocked() {
	if t.liveCountLocked() <= 1 {
		t.runSingleWinnerLocked()
		return
	}
	if t.isRoundCompleteLocked() {
		t.advanceStageLocked()
		return
	}
	t.advanceTurnLocked()
}

func (t *Table) advanceTurnLocked() {
	occupied := t.eligibleSeatIndicesLocked()
	if len(occupied) == 0 {
		return
	}
	cur := t.currentPlayer
	for i := 0; i < len(occupied); i++ {
		cur = t.nextSeatInLocked(occupied, cur)
		if isActable(t.users[t.seats[cur].PlayerID]) {
			t.currentPlayer = cur
			t.lastTurnStart = time.Now()
			return
		}
	}
}

// advanceStageLocked moves the deal stage forward, dealing community cards
// and resetting round-local state. Recurses straight to showdown if no
// player remains able to act.
func (t *Table) advanceStageLocked() {
	switch t.dealStage {
	case Opening:
		t.dealStage = Flop
		t.dealCommunityLocked(3)
	case Flop:
		t.dealStage = Turn
		t.dealCommunityLocked(1)
	case Turn:
		t.dealStage = River
		t.dealCommunityLocked(1)
	case River:
		t.runShowdownLocked()
		return
	default:
		return
	}

	for _, s := range t.seats {
		if s.Status != SeatOccupied {
			continue
		}
		u := t.users[s.PlayerID]
		u.CurrentRoundBet = 0
		if u.Action != ActionFolded && u.Action != ActionAllIn && u.Action != ActionSittingOut {
			u.Action = ActionNone
		}
	}
	t.highestBetThisRound = 0
	t.lastRaiseSize = t.config.BigBlind
	t.raisesThisRound = 0
	t.actedThisRound = make(map[string]bool)

	eligible := t.eligibleSeatIndicesLocked()
	t.currentPlayer = t.nextSeatInLocked(eligible, t.dealerPosition)
	if !isActable(t.users[t.seats[t.currentPlayer].PlayerID]) {
		t.advanceTurnLocked()
	}
	t.lastTurnStart = time.Now()

	if t.isRoundCompleteLocked() {
		t.advanceStageLocked()
	}
}

func (t *Table) dealCommunityLocked(n int) {
	for i := 0; i < n; i++ {
		c, ok := t.deck.Draw()
		if !ok {
			return
		}
		t.communityCards = append(t.communityCards, c)
	}
}

// Showdown is the externally callable operation; it is a no-op if the hand
// already auto-resolved (the common case, since River completion and fold-
// to-one both trigger it internally).
func (t *Table) Showdown() (PublicTable, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.dealStage == Showdown {
		return t.publicLocked(), nil
	}
	if t.dealStage != River || !t.isRoundCompleteLocked() {
		return t.publicLocked(), actorcall.NewError(actorcall.StateConflict, "river betting is not complete")
	}
	t.runShowdownLocked()
	return t.publicLocked(), nil
}

// TickTimer auto-folds the current player if their turn has exceeded the
// table's timer duration, and sits them out once their timeout count
// reaches the table's limit. The count is not reset when the player acts,
// so it counts all timeouts, not only consecutive ones.
func (t *Table) TickTimer(now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.dealStage.isBetting() {
		return
	}
	if now.Before(t.lastTurnStart.Add(t.config.TimerDuration)) {
		return
	}
	idx := t.currentPlayer
	if idx < 0 || idx >= len(t.seats) || t.seats[idx].Status != SeatOccupied {
		return
	}
	u := t.users[t.seats[idx].PlayerID]
	if !isActable(u) {
		return
	}
	u.Action = ActionFolded
	u.InactiveTurns++
	if u.InactiveTurns >= t.config.MaxInactiveTurns {
		u.SittingOut = true
	}
	t.actedThisRound[t.seats[idx].PlayerID] = true
	t.log.WithField("player_id", t.seats[idx].PlayerID).Warn("auto-folded on timer expiry")
	t.afterActionLocked()
}
