package tournament

import (
	"fmt"
	"io"
	"sort"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"poker-platform/internal/table"
)

func testTournamentLog() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l.WithField("test", true)
}

// memAllocator is a bare in-memory TableAllocator standing in for the Index
// in these tests: it just constructs real *table.Table actors and tracks
// them by id.
type memAllocator struct {
	tables map[string]*table.Table
}

func newMemAllocator() *memAllocator {
	return &memAllocator{tables: make(map[string]*table.Table)}
}

func (m *memAllocator) AllocateTable(cfg table.TableConfig) (string, *table.Table, error) {
	tbl, err := table.New(cfg, testTournamentLog())
	if err != nil {
		return "", nil, err
	}
	m.tables[cfg.TableID] = tbl
	return cfg.TableID, tbl, nil
}

func (m *memAllocator) ReleaseTable(tableID string) error {
	delete(m.tables, tableID)
	return nil
}

func baseTournamentConfig(id string, minPlayers, maxPerTable int, startTime time.Time) Config {
	return Config{
		TournamentID:       id,
		Kind:               SitAndGo,
		BuyIn:              100,
		StartingChips:      1000,
		MinPlayers:         minPlayers,
		MaxPlayersPerTable: maxPerTable,
		FinalTableSeats:    maxPerTable,
		StartTime:          startTime,
		Schedule: []BlindLevel{
			{SmallBlind: 10, BigBlind: 20, Duration: time.Hour},
			{SmallBlind: 20, BigBlind: 40, Duration: time.Hour},
		},
		Payout: []PayoutEntry{
			{Position: 1, PercentBps: 10000},
		},
		BettingType: table.NoLimit,
	}
}

// TestSingleTableFieldStartsFilledOnOneTable mirrors a 5-player sit-and-go
// whose field closes with exactly the minimum: at start_time every
// registrant is seated at the tournament's one table.
func TestSingleTableFieldStartsFilledOnOneTable(t *testing.T) {
	start := time.Now().Add(time.Second)
	cfg := baseTournamentConfig("t4", 5, 5, start)
	alloc := newMemAllocator()
	tm, err := New(cfg, alloc, testTournamentLog())
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		playerID := fmt.Sprintf("player-%02d", i)
		require.NoError(t, tm.UserJoinTournament("user-"+playerID, playerID))
	}

	tm.Heartbeat(start.Add(-500 * time.Millisecond))
	require.Equal(t, Registration, tm.State(), "the field must not close before start_time")

	tm.Heartbeat(start.Add(2 * time.Second))
	require.Equal(t, Running, tm.State())
	require.Len(t, tm.tables, 1)
	for _, info := range tm.tables {
		require.Len(t, info.Table.GetPlayersOnTable(), 5)
	}
}

// TestMultiTableFieldDistributesEvenlyThenConverges mirrors a 14-player
// field at a 5-seat cap: the opening deal forms three tables of 5/5/4, and
// once seven players are eliminated the survivors converge to two tables or
// fewer within a single balancing pass.
func TestMultiTableFieldDistributesEvenlyThenConverges(t *testing.T) {
	start := time.Now().Add(time.Second)
	cfg := baseTournamentConfig("t5", 14, 5, start)
	alloc := newMemAllocator()
	tm, err := New(cfg, alloc, testTournamentLog())
	require.NoError(t, err)

	for i := 0; i < 14; i++ {
		playerID := fmt.Sprintf("player-%02d", i)
		require.NoError(t, tm.UserJoinTournament("user-"+playerID, playerID))
	}

	tm.Heartbeat(start.Add(2 * time.Second))
	require.Equal(t, Running, tm.State())
	require.Len(t, tm.tables, 3)

	var sizes []int
	for _, info := range tm.tables {
		sizes = append(sizes, len(info.Table.GetPlayersOnTable()))
	}
	sort.Ints(sizes)
	require.Equal(t, []int{4, 5, 5}, sizes)

	tableIDs := make([]string, 0, 3)
	for id := range tm.tables {
		tableIDs = append(tableIDs, id)
	}
	sort.Strings(tableIDs)

	// Eliminate 3 from the first table, 2 from the second, 2 from the
	// third, leaving 2/3/2 = 7 survivors spread across three tables.
	eliminate := map[string]int{tableIDs[0]: 3, tableIDs[1]: 2, tableIDs[2]: 2}
	for id, n := range eliminate {
		info := tm.tables[id]
		seated := info.Table.GetPlayersOnTable()
		sort.Strings(seated)
		for i := 0; i < n; i++ {
			_, _, err := info.Table.KickPlayer(seated[i])
			require.NoError(t, err)
			require.NoError(t, tm.HandleUserLosing(seated[i], id))
		}
	}

	tm.Heartbeat(start.Add(3 * time.Second))
	require.LessOrEqual(t, len(tm.tables), 2, "seven survivors at a 5-seat cap must converge to at most two tables")

	remaining := 0
	for _, info := range tm.tables {
		remaining += len(info.Table.GetPlayersOnTable())
	}
	require.Equal(t, 7, remaining, "balancing moves players, it never loses or duplicates one")
}

// TestUnderMinimumFieldCancelsAndRefundsInFull mirrors a sit-and-go that
// never fills: two registrants against a minimum of five, past start_time,
// cancels with every buy-in queued for refund and no rake withheld.
func TestUnderMinimumFieldCancelsAndRefundsInFull(t *testing.T) {
	start := time.Now().Add(time.Second)
	cfg := baseTournamentConfig("t6", 5, 5, start)
	alloc := newMemAllocator()
	tm, err := New(cfg, alloc, testTournamentLog())
	require.NoError(t, err)

	require.NoError(t, tm.UserJoinTournament("user-a", "player-a"))
	require.NoError(t, tm.UserJoinTournament("user-b", "player-b"))

	tm.Heartbeat(start.Add(2 * time.Second))
	require.Equal(t, Cancelled, tm.State())

	pending := tm.PendingPayouts()
	require.Len(t, pending, 2)
	require.Equal(t, uint64(100), pending["player-a"])
	require.Equal(t, uint64(100), pending["player-b"])
}

func TestComputePayoutsSplitsTieBracketEvenly(t *testing.T) {
	schedule := []PayoutEntry{
		{Position: 1, PercentBps: 5000},
		{Position: 2, PercentBps: 3000},
		{Position: 3, PercentBps: 2000},
	}
	groups := [][]string{{"winner"}, {"tied-a", "tied-b"}}
	results := ComputePayouts(1001, schedule, groups)

	byPlayer := make(map[string]PayoutResult, len(results))
	for _, r := range results {
		byPlayer[r.PlayerID] = r
	}
	require.Equal(t, uint64(500), byPlayer["winner"].Amount)
	// positions 2+3 combined pay 5000bps of 1001 = 500 (integer division),
	// split 250/250 with no residue since 500 is even.
	require.Equal(t, uint64(250), byPlayer["tied-a"].Amount)
	require.Equal(t, uint64(250), byPlayer["tied-b"].Amount)
}

func TestComputePayoutsOddResidueGoesToFirstTiedEntry(t *testing.T) {
	schedule := []PayoutEntry{
		{Position: 1, PercentBps: 10000},
	}
	groups := [][]string{{"alice", "bob"}}
	results := ComputePayouts(101, schedule, groups)

	byPlayer := make(map[string]uint64, len(results))
	for _, r := range results {
		byPlayer[r.PlayerID] = r.Amount
	}
	require.Equal(t, uint64(51), byPlayer["alice"])
	require.Equal(t, uint64(50), byPlayer["bob"])
}

// TestReentryDisabledIsRejected mirrors a tournament configured without
// reentry: an eliminated player has no path back in.
func TestReentryDisabledIsRejected(t *testing.T) {
	start := time.Now().Add(time.Second)
	cfg := baseTournamentConfig("t11", 5, 5, start)
	alloc := newMemAllocator()
	tm, err := New(cfg, alloc, testTournamentLog())
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		playerID := fmt.Sprintf("player-%02d", i)
		require.NoError(t, tm.UserJoinTournament("user-"+playerID, playerID))
	}
	tm.Heartbeat(start.Add(2 * time.Second))
	require.Equal(t, Running, tm.State())

	tableID := tm.players["player-00"].TableID
	_, _, err = tm.tables[tableID].Table.KickPlayer("player-00")
	require.NoError(t, err)
	require.NoError(t, tm.HandleUserLosing("player-00", tableID))
	require.True(t, tm.players["player-00"].Eliminated)

	err = tm.Reentry("user-player-00", "player-00", start.Add(3*time.Second))
	require.Error(t, err)
}

// TestReentryReseatsEliminatedPlayerWithFreshStack mirrors a player busting
// out and buying back in within the reentry window: they come back with a
// full starting stack, a cleared elimination flag, and their second buy-in
// added to the prize pool.
func TestReentryReseatsEliminatedPlayerWithFreshStack(t *testing.T) {
	start := time.Now().Add(time.Second)
	cfg := baseTournamentConfig("t12", 5, 5, start)
	cfg.Options.ReentryEnabled = true
	cfg.Options.ReentryWindow = time.Hour
	alloc := newMemAllocator()
	tm, err := New(cfg, alloc, testTournamentLog())
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		playerID := fmt.Sprintf("player-%02d", i)
		require.NoError(t, tm.UserJoinTournament("user-"+playerID, playerID))
	}
	tm.Heartbeat(start.Add(2 * time.Second))
	require.Equal(t, Running, tm.State())

	tableID := tm.players["player-00"].TableID
	_, _, err = tm.tables[tableID].Table.KickPlayer("player-00")
	require.NoError(t, err)
	require.NoError(t, tm.HandleUserLosing("player-00", tableID))
	require.True(t, tm.players["player-00"].Eliminated)
	prizeBefore := tm.prizePool

	require.NoError(t, tm.Reentry("user-player-00", "player-00", start.Add(3*time.Second)))

	p := tm.players["player-00"]
	require.False(t, p.Eliminated)
	require.Equal(t, 0, p.Position)
	require.Equal(t, prizeBefore+cfg.BuyIn, tm.prizePool)

	info, ok := tm.tables[p.TableID]
	require.True(t, ok)
	stack, ok := info.Table.GetTable().Users["player-00"]
	require.True(t, ok)
	require.Equal(t, cfg.StartingChips, stack.Chips)
}

// TestReentryWindowClosedIsRejected mirrors attempting a buy-back after the
// reentry window has elapsed.
func TestReentryWindowClosedIsRejected(t *testing.T) {
	start := time.Now().Add(time.Second)
	cfg := baseTournamentConfig("t13", 5, 5, start)
	cfg.Options.ReentryEnabled = true
	cfg.Options.ReentryWindow = time.Second
	alloc := newMemAllocator()
	tm, err := New(cfg, alloc, testTournamentLog())
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		playerID := fmt.Sprintf("player-%02d", i)
		require.NoError(t, tm.UserJoinTournament("user-"+playerID, playerID))
	}
	tm.Heartbeat(start.Add(2 * time.Second))
	require.Equal(t, Running, tm.State())

	tableID := tm.players["player-00"].TableID
	_, _, err = tm.tables[tableID].Table.KickPlayer("player-00")
	require.NoError(t, err)
	require.NoError(t, tm.HandleUserLosing("player-00", tableID))

	err = tm.Reentry("user-player-00", "player-00", start.Add(10*time.Minute))
	require.Error(t, err)
}

// TestReentryRejectsStillActivePlayer mirrors a player who is still seated
// with chips trying to reenter: they must bust out first.
func TestReentryRejectsStillActivePlayer(t *testing.T) {
	start := time.Now().Add(time.Second)
	cfg := baseTournamentConfig("t14", 5, 5, start)
	cfg.Options.ReentryEnabled = true
	cfg.Options.ReentryWindow = time.Hour
	alloc := newMemAllocator()
	tm, err := New(cfg, alloc, testTournamentLog())
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		playerID := fmt.Sprintf("player-%02d", i)
		require.NoError(t, tm.UserJoinTournament("user-"+playerID, playerID))
	}
	tm.Heartbeat(start.Add(2 * time.Second))
	require.Equal(t, Running, tm.State())

	err = tm.Reentry("user-player-00", "player-00", start.Add(3*time.Second))
	require.Error(t, err)
}
