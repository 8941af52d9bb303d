package table

import (
	"testing"

	"github.com/stretchr/testify/require"

	"poker-platform/internal/actorcall"
)

func fixedLimitConfig() TableConfig {
	cfg := baseConfig()
	cfg.BettingType = FixedLimit
	return cfg
}

func TestFixedLimitRejectsNonStandardRaiseSize(t *testing.T) {
	tbl, _ := New(fixedLimitConfig(), testLog())
	seatTwoPlayers(t, tbl, 1000)
	_, err := tbl.StartBettingRound([]byte("fl-1"))
	require.NoError(t, err)

	pub := tbl.GetTable()
	actor := pub.Seats[pub.CurrentPlayer].PlayerID

	_, err = tbl.Bet(actor, BetType{Kind: BetRaise, Amount: 15})
	ae, ok := actorcall.AsActorError(err)
	require.True(t, ok)
	require.Equal(t, actorcall.IllegalBet, ae.Kind)

	_, err = tbl.Bet(actor, BetType{Kind: BetRaise, Amount: 20})
	require.NoError(t, err)
}

func TestFixedLimitCapsRaisesPerRound(t *testing.T) {
	tbl, _ := New(fixedLimitConfig(), testLog())
	seatTwoPlayers(t, tbl, 10000)
	_, err := tbl.StartBettingRound([]byte("fl-2"))
	require.NoError(t, err)

	for i := 0; i < 4; i++ {
		pub := tbl.GetTable()
		actor := pub.Seats[pub.CurrentPlayer].PlayerID
		target := pub.Config.BigBlind + uint64(i+1)*10
		_, err := tbl.Bet(actor, BetType{Kind: BetRaise, Amount: target})
		require.NoError(t, err)
	}

	pub := tbl.GetTable()
	actor := pub.Seats[pub.CurrentPlayer].PlayerID
	_, err = tbl.Bet(actor, BetType{Kind: BetRaise, Amount: 1000})
	ae, ok := actorcall.AsActorError(err)
	require.True(t, ok)
	require.Equal(t, actorcall.IllegalBet, ae.Kind)
}

func spreadLimitConfig() TableConfig {
	cfg := baseConfig()
	cfg.BettingType = SpreadLimit
	cfg.SpreadMin = 10
	cfg.SpreadMax = 30
	return cfg
}

func TestSpreadLimitRejectsAmountOutsideRange(t *testing.T) {
	tbl, _ := New(spreadLimitConfig(), testLog())
	seatTwoPlayers(t, tbl, 1000)
	_, err := tbl.StartBettingRound([]byte("sl-1"))
	require.NoError(t, err)

	pub := tbl.GetTable()
	actor := pub.Seats[pub.CurrentPlayer].PlayerID

	_, err = tbl.Bet(actor, BetType{Kind: BetRaise, Amount: pub.Config.BigBlind + 40})
	ae, ok := actorcall.AsActorError(err)
	require.True(t, ok)
	require.Equal(t, actorcall.IllegalBet, ae.Kind)

	_, err = tbl.Bet(actor, BetType{Kind: BetRaise, Amount: pub.Config.BigBlind + 20})
	require.NoError(t, err)
}

func TestPotLimitCapsRaiseAtPotSize(t *testing.T) {
	cfg := baseConfig()
	cfg.BettingType = PotLimit
	tbl, _ := New(cfg, testLog())
	seatTwoPlayers(t, tbl, 10000)
	_, err := tbl.StartBettingRound([]byte("pl-1"))
	require.NoError(t, err)

	pub := tbl.GetTable()
	actor := pub.Seats[pub.CurrentPlayer].PlayerID

	_, err = tbl.Bet(actor, BetType{Kind: BetRaise, Amount: 5000})
	ae, ok := actorcall.AsActorError(err)
	require.True(t, ok)
	require.Equal(t, actorcall.IllegalBet, ae.Kind)
}

func TestCheckRejectedWhileFacingABet(t *testing.T) {
	tbl, _ := New(baseConfig(), testLog())
	seatTwoPlayers(t, tbl, 1000)
	_, err := tbl.StartBettingRound([]byte("chk-1"))
	require.NoError(t, err)

	pub := tbl.GetTable()
	actor := pub.Seats[pub.CurrentPlayer].PlayerID
	_, err = tbl.Check(actor)
	ae, ok := actorcall.AsActorError(err)
	require.True(t, ok)
	require.Equal(t, actorcall.IllegalBet, ae.Kind)
}

func TestFoldDownToOneLeavesSingleWinnerWithWholePot(t *testing.T) {
	tbl, _ := New(baseConfig(), testLog())
	seatTwoPlayers(t, tbl, 1000)
	_, err := tbl.StartBettingRound([]byte("fold-1"))
	require.NoError(t, err)

	pub := tbl.GetTable()
	actor := pub.Seats[pub.CurrentPlayer].PlayerID
	pub, err = tbl.Fold(actor)
	require.NoError(t, err)
	require.Equal(t, Showdown, pub.DealStage)

	total := uint64(0)
	for _, u := range pub.Users {
		total += u.Chips
	}
	require.Equal(t, uint64(2000), total+pub.RakeTotal)
}

// TestShortAllInDoesNotReopenAction covers the rule that an all-in for less
// than a full raise increment updates what must be called, but does not
// reset the min-raise floor other players face.
func TestShortAllInDoesNotReopenAction(t *testing.T) {
	cfg := baseConfig()
	tbl, _ := New(cfg, testLog())
	tbl.seats = []Seat{
		{Status: SeatOccupied, PlayerID: "p1"},
		{Status: SeatOccupied, PlayerID: "p2"},
	}
	tbl.users = map[string]*UserTableData{
		"p1": {Chips: 1000, CurrentRoundBet: 20, Action: ActionRaised},
		"p2": {Chips: 25, CurrentRoundBet: 0, Action: ActionNone},
	}
	tbl.dealStage = Opening
	tbl.currentPlayer = 1
	tbl.highestBetThisRound = 20
	tbl.lastRaiseSize = 20
	tbl.actedThisRound = map[string]bool{"p1": true}

	_, err := tbl.Bet("p2", BetType{Kind: BetAllIn})
	require.NoError(t, err)

	require.Equal(t, uint64(20), tbl.lastRaiseSize, "a short all-in below the min-raise floor must not bump it")
	require.Equal(t, uint64(25), tbl.highestBetThisRound, "others must still know the amount required to call")
	require.Equal(t, ActionAllIn, tbl.users["p2"].Action)
}

func TestQueueItemDoubleDrainIsIdempotent(t *testing.T) {
	tbl, _ := New(baseConfig(), testLog())
	seatTwoPlayers(t, tbl, 1000)

	item := QueueItem{Kind: QueueDeposit, PlayerID: "p1", Deposit: 50}
	tbl.applyQueueItemLocked(item)
	tbl.applyQueueItemLocked(item)
	require.Equal(t, uint64(1100), tbl.users["p1"].Chips)

	remove := QueueItem{Kind: QueueRemoveUser, PlayerID: "p2"}
	tbl.applyQueueItemLocked(remove)
	tbl.applyQueueItemLocked(remove)
	_, stillPresent := tbl.users["p2"]
	require.False(t, stillPresent)
}
