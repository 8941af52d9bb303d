package table

import (
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"poker-platform/internal/actorcall"
)

func testLog() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l.WithField("test", true)
}

func baseConfig() TableConfig {
	return TableConfig{
		TableID:          "t1",
		BettingType:      NoLimit,
		SmallBlind:       5,
		BigBlind:         10,
		MaxSeats:         6,
		MinBuyIn:         100,
		MaxBuyIn:         10000,
		CurrencyDecimals: 8,
		TimerDuration:    30 * time.Second,
		MaxInactiveTurns: 3,
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := baseConfig()
	cfg.MaxSeats = 0
	_, err := New(cfg, testLog())
	ae, ok := actorcall.AsActorError(err)
	require.True(t, ok)
	require.Equal(t, actorcall.InvalidRequest, ae.Kind)
}

func TestJoinTableSeatsAndTracksChips(t *testing.T) {
	tbl, err := New(baseConfig(), testLog())
	require.NoError(t, err)

	pub, err := tbl.JoinTable("uc1", "p1", nil, 500, false)
	require.NoError(t, err)
	require.Equal(t, uint64(500), pub.Users["p1"].Chips)
	require.Equal(t, SeatOccupied, pub.Seats[0].Status)
}

func TestJoinTableRejectsInsufficientDeposit(t *testing.T) {
	tbl, _ := New(baseConfig(), testLog())
	_, err := tbl.JoinTable("uc1", "p1", nil, 50, false)
	ae, ok := actorcall.AsActorError(err)
	require.True(t, ok)
	require.Equal(t, actorcall.InsufficientFunds, ae.Kind)
}

func TestJoinTableRejectsDuplicatePlayer(t *testing.T) {
	tbl, _ := New(baseConfig(), testLog())
	_, err := tbl.JoinTable("uc1", "p1", nil, 500, false)
	require.NoError(t, err)
	_, err = tbl.JoinTable("uc1", "p1", nil, 500, false)
	ae, ok := actorcall.AsActorError(err)
	require.True(t, ok)
	require.Equal(t, actorcall.UserAlreadyInGame, ae.Kind)
}

func TestJoinTableFullReturnsGameFull(t *testing.T) {
	cfg := baseConfig()
	cfg.MaxSeats = 1
	tbl, _ := New(cfg, testLog())
	_, err := tbl.JoinTable("uc1", "p1", nil, 500, false)
	require.NoError(t, err)
	_, err = tbl.JoinTable("uc2", "p2", nil, 500, false)
	ae, ok := actorcall.AsActorError(err)
	require.True(t, ok)
	require.Equal(t, actorcall.GameFull, ae.Kind)
}

func TestLeaveTableReturnsStakedChips(t *testing.T) {
	tbl, _ := New(baseConfig(), testLog())
	_, _ = tbl.JoinTable("uc1", "p1", nil, 500, false)
	balance, err := tbl.LeaveTable("p1")
	require.NoError(t, err)
	require.Equal(t, uint64(500), balance)
	require.Equal(t, SeatEmpty, tbl.GetTable().Seats[0].Status)
}

func TestJoinThenLeaveRestoresPreJoinState(t *testing.T) {
	tbl, _ := New(baseConfig(), testLog())
	before := tbl.GetTable()

	_, err := tbl.JoinTable("uc1", "p1", nil, 500, false)
	require.NoError(t, err)
	_, err = tbl.LeaveTable("p1")
	require.NoError(t, err)

	after := tbl.GetTable()
	require.Equal(t, before.Seats, after.Seats)
	require.Equal(t, len(before.Users), len(after.Users))
}

func TestLeaveTableUnknownPlayerIsPlayerNotFound(t *testing.T) {
	tbl, _ := New(baseConfig(), testLog())
	_, err := tbl.LeaveTable("ghost")
	ae, ok := actorcall.AsActorError(err)
	require.True(t, ok)
	require.Equal(t, actorcall.PlayerNotFound, ae.Kind)
}

func TestStartBettingRoundRequiresTwoPlayers(t *testing.T) {
	tbl, _ := New(baseConfig(), testLog())
	_, _ = tbl.JoinTable("uc1", "p1", nil, 500, false)
	_, err := tbl.StartBettingRound([]byte("seed"))
	ae, ok := actorcall.AsActorError(err)
	require.True(t, ok)
	require.Equal(t, actorcall.StateConflict, ae.Kind)
}

func seatTwoPlayers(t *testing.T, tbl *Table, chips uint64) {
	t.Helper()
	_, err := tbl.JoinTable("uc1", "p1", nil, chips, false)
	require.NoError(t, err)
	_, err = tbl.JoinTable("uc2", "p2", nil, chips, false)
	require.NoError(t, err)
}

func TestStartBettingRoundPostsBlindsAndDealsTwoCards(t *testing.T) {
	tbl, _ := New(baseConfig(), testLog())
	seatTwoPlayers(t, tbl, 1000)

	pub, err := tbl.StartBettingRound([]byte("seed-a"))
	require.NoError(t, err)
	require.Equal(t, Opening, pub.DealStage)

	total := uint64(0)
	for _, u := range pub.Users {
		require.Len(t, u.HoleCards, 2)
		total += u.Chips + u.CurrentTotalBet
	}
	require.Equal(t, uint64(2000), total)
}

func TestMinRaiseBoundary(t *testing.T) {
	cfg := baseConfig()
	tbl, _ := New(cfg, testLog())
	seatTwoPlayers(t, tbl, 1000)
	_, err := tbl.StartBettingRound([]byte("seed-b"))
	require.NoError(t, err)

	pub := tbl.GetTable()
	actor := pub.Seats[pub.CurrentPlayer].PlayerID

	_, err = tbl.Bet(actor, BetType{Kind: BetRaise, Amount: 9})
	ae, ok := actorcall.AsActorError(err)
	require.True(t, ok)
	require.Equal(t, actorcall.IllegalBet, ae.Kind)

	_, err = tbl.Bet(actor, BetType{Kind: BetRaise, Amount: 20})
	require.NoError(t, err)
}

func TestNotYourTurnRejected(t *testing.T) {
	tbl, _ := New(baseConfig(), testLog())
	seatTwoPlayers(t, tbl, 1000)
	_, err := tbl.StartBettingRound([]byte("seed-c"))
	require.NoError(t, err)

	pub := tbl.GetTable()
	other := pub.Seats[(pub.CurrentPlayer+1)%len(pub.Seats)]
	if other.Status != SeatOccupied {
		t.Skip("seat layout did not produce a second occupied seat to test against")
	}
	_, err = tbl.Check(other.PlayerID)
	ae, ok := actorcall.AsActorError(err)
	require.True(t, ok)
	require.Equal(t, actorcall.NotYourTurn, ae.Kind)
}

func TestQueuedJoinDuringHandBecomesOccupiedNextHand(t *testing.T) {
	cfg := baseConfig()
	cfg.MaxSeats = 6
	tbl, _ := New(cfg, testLog())
	seatTwoPlayers(t, tbl, 1000)
	_, err := tbl.StartBettingRound([]byte("seed-d"))
	require.NoError(t, err)

	pub, err := tbl.JoinTable("uc3", "p3", nil, 500, false)
	require.NoError(t, err)
	require.Equal(t, SeatQueuedForNextRound, pub.Seats[2].Status)
	require.NotContains(t, pub.Users, "p3")
}

func TestDepositMidHandIsQueued(t *testing.T) {
	tbl, _ := New(baseConfig(), testLog())
	seatTwoPlayers(t, tbl, 1000)
	_, err := tbl.StartBettingRound([]byte("seed-e"))
	require.NoError(t, err)

	err = tbl.DepositToTable("p1", 250)
	require.NoError(t, err)
	require.Len(t, tbl.queue, 1)
	require.Equal(t, QueueDeposit, tbl.queue[0].Kind)
}
