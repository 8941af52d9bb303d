package table

import (
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"poker-platform/internal/metrics"
	"poker-platform/pkg/card"
	"poker-platform/pkg/handrank"
)

// buildSidePots layers per-hand contributions into pots. Distinct
// contribution levels are walked ascending; each layer is paid for by
// everyone whose contribution reaches that level. A layer with fewer than
// two contributors is not a pot at all: it is an uncalled bet and is
// refunded directly to its sole contributor. The returned slice is ordered
// ascending by tier, so index 0 (if present) is always the main pot — the
// layer every contributor reaches — and later entries are side pots formed
// by progressively fewer, deeper-stacked contributors.
func buildSidePots(contributions map[string]uint64, refund func(playerID string, amount uint64)) []SidePot {
	levels := make([]uint64, 0, len(contributions))
	seen := make(map[uint64]bool)
	for _, amt := range contributions {
		if amt == 0 || seen[amt] {
			continue
		}
		seen[amt] = true
		levels = append(levels, amt)
	}
	sort.Slice(levels, func(i, j int) bool { return levels[i] < levels[j] })

	var pots []SidePot
	var prev uint64
	for _, level := range levels {
		contributors := make(map[string]bool)
		for id, amt := range contributions {
			if amt >= level {
				contributors[id] = true
			}
		}
		layerAmount := (level - prev) * uint64(len(contributors))
		if len(contributors) < 2 {
			for id := range contributors {
				refund(id, layerAmount)
			}
		} else if layerAmount > 0 {
			pots = append(pots, SidePot{Amount: layerAmount, Contributors: contributors})
		}
		prev = level
	}
	return pots
}

// awardPotLocked ranks the live contributors to a pot, splits it among the
// winners after rake, and assigns any residue to the winner nearest
// left-of-dealer. It returns the rake withheld.
func (t *Table) awardPotLocked(pot SidePot, community []card.Card) uint64 {
	var liveIDs []string
	for id := range pot.Contributors {
		u := t.users[id]
		if u != nil && u.Action != ActionFolded {
			liveIDs = append(liveIDs, id)
		}
	}
	if len(liveIDs) == 0 {
		return 0
	}

	ranks := make([]handrank.Rank, len(liveIDs))
	for i, id := range liveIDs {
		cards := append(append([]card.Card{}, t.users[id].HoleCards...), community...)
		ranks[i] = handrank.Evaluate7(cards)
	}
	_, tieIdx := handrank.Best(ranks)

	winners := make([]string, len(tieIdx))
	for i, idx := range tieIdx {
		winners[i] = liveIDs[idx]
	}
	sort.Slice(winners, func(i, j int) bool {
		return t.seatIndexByPlayerLocked(winners[i]) < t.seatIndexByPlayerLocked(winners[j])
	})

	rakeAmt := t.rakeConfig.Calculate(pot.Amount, len(pot.Contributors))
	net := pot.Amount - rakeAmt
	share := net / uint64(len(winners))
	residue := net % uint64(len(winners))

	for _, w := range winners {
		t.users[w].Chips += share
	}
	if residue > 0 {
		t.users[residueWinnerLocked(t, winners)].Chips += residue
	}
	return rakeAmt
}

// residueWinnerLocked picks, among winners, the seat nearest clockwise from
// left-of-dealer.
func residueWinnerLocked(t *Table, winners []string) string {
	n := len(t.seats)
	best := winners[0]
	bestDist := n + 1
	for _, w := range winners {
		idx := t.seatIndexByPlayerLocked(w)
		dist := idx - (t.dealerPosition + 1)
		if dist < 0 {
			dist += n
		}
		if dist < bestDist {
			bestDist = dist
			best = w
		}
	}
	return best
}

// runShowdownLocked ranks and distributes every pot. Pots are processed from
// the deepest side pot down to the main pot (spec's "side pots first, main
// pot last"), since index 0 is the main pot in ascending-tier order.
func (t *Table) runShowdownLocked() {
	contributions := make(map[string]uint64, len(t.users))
	var totalCommitted uint64
	for id, u := range t.users {
		contributions[id] = u.CurrentTotalBet
		totalCommitted += u.CurrentTotalBet
	}

	var refunded uint64
	pots := buildSidePots(contributions, func(playerID string, amount uint64) {
		if u := t.users[playerID]; u != nil {
			u.Chips += amount
		}
		refunded += amount
	})

	var rakeCollected uint64
	var potsTotal uint64
	for i := len(pots) - 1; i >= 0; i-- {
		rakeCollected += t.awardPotLocked(pots[i], t.communityCards)
		potsTotal += pots[i].Amount
	}
	t.rakeTotal += rakeCollected
	t.rakeCollectedLifetime += rakeCollected

	if len(pots) > 0 {
		t.mainPot = pots[0].Amount
		t.sidePots = pots[1:]
	} else {
		t.mainPot = 0
		t.sidePots = nil
	}

	t.dealStage = Showdown
	t.log.WithFields(logrus.Fields{"hand": t.handNumber, "pots": len(pots), "rake": rakeCollected}).Info("hand resolved at showdown")

	t.checkInvariantsLocked(potsTotal+refunded, totalCommitted)
	if !t.handStartedAt.IsZero() {
		metrics.RecordHandCompleted(t.id, time.Since(t.handStartedAt), potsTotal)
	}
}

// runSingleWinnerLocked awards the entire hand's committed chips to the
// sole remaining live player when everyone else has folded.
func (t *Table) runSingleWinnerLocked() {
	var survivor string
	for _, s := range t.seats {
		if s.Status != SeatOccupied {
			continue
		}
		u := t.users[s.PlayerID]
		if u != nil && u.Action != ActionFolded && u.Action != ActionSittingOut {
			survivor = s.PlayerID
			break
		}
	}
	if survivor == "" {
		t.dealStage = Showdown
		return
	}

	var pot uint64
	contributors := 0
	for _, u := range t.users {
		pot += u.CurrentTotalBet
		if u.CurrentTotalBet > 0 {
			contributors++
		}
	}

	rakeAmt := t.rakeConfig.Calculate(pot, contributors)
	t.users[survivor].Chips += pot - rakeAmt
	t.rakeTotal += rakeAmt
	t.rakeCollectedLifetime += rakeAmt
	t.mainPot = 0
	t.sidePots = nil
	t.dealStage = Showdown

	t.log.WithFields(logrus.Fields{"hand": t.handNumber, "winner": survivor, "pot": pot}).Info("hand resolved, all others folded")

	t.checkInvariantsLocked(pot, pot)
	if !t.handStartedAt.IsZero() {
		metrics.RecordHandCompleted(t.id, time.Since(t.handStartedAt), pot)
	}
}
