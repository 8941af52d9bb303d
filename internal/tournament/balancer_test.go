package tournament

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newBalancer() *TableBalancer {
	return &TableBalancer{MinPlayersPerTable: 2, MaxPlayersPerTable: 5, BalanceInterval: time.Minute}
}

func players(n int, prefix string) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = prefix + string(rune('a'+i))
	}
	return out
}

func TestComputeMovesFormsFinalTableWhenFieldFits(t *testing.T) {
	b := newBalancer()
	tables := map[string][]string{
		"t1": players(3, "t1-"),
		"t2": players(2, "t2-"),
	}
	moves := b.ComputeMoves(tables, map[string]time.Time{}, time.Now())
	require.Len(t, moves, 2, "every player on the smaller table moves to the larger one")
	for _, m := range moves {
		require.Equal(t, "t2", m.SrcTable)
		require.Equal(t, "t1", m.DstTable)
	}
}

func TestComputeMovesConsolidatesWhenTableCountExceedsNeed(t *testing.T) {
	b := newBalancer()
	tables := map[string][]string{
		"t1": players(2, "t1-"),
		"t2": players(2, "t2-"),
		"t3": players(2, "t3-"),
	}
	moves := b.ComputeMoves(tables, map[string]time.Time{}, time.Now())
	require.NotEmpty(t, moves, "three equally-sized tables only need two to seat the field")
	src := moves[0].SrcTable
	for _, m := range moves {
		require.Equal(t, src, m.SrcTable, "consolidation drains exactly one table")
		require.NotEqual(t, src, m.DstTable)
	}
}

func TestComputeMovesRebalancesLargeDifference(t *testing.T) {
	b := newBalancer()
	tables := map[string][]string{
		"t1": players(5, "t1-"),
		"t2": players(2, "t2-"),
	}
	moves := b.ComputeMoves(tables, map[string]time.Time{}, time.Now())
	require.NotEmpty(t, moves)
	for _, m := range moves {
		require.Equal(t, "t1", m.SrcTable)
		require.Equal(t, "t2", m.DstTable)
	}
	require.LessOrEqual(t, len(moves), maxMovesPerPair)
}

func TestComputeMovesExcludesRecentlyBalancedTables(t *testing.T) {
	b := newBalancer()
	tables := map[string][]string{
		"t1": players(5, "t1-"),
		"t2": players(2, "t2-"),
	}
	now := time.Now()
	lastBalance := map[string]time.Time{"t1": now.Add(-10 * time.Second)}
	moves := b.ComputeMoves(tables, lastBalance, now)
	require.Empty(t, moves, "a table balanced 10s ago within a 1-minute interval must be excluded")
}

func TestComputeMovesCapsAtFivePerHeartbeat(t *testing.T) {
	b := &TableBalancer{MinPlayersPerTable: 2, MaxPlayersPerTable: 10, BalanceInterval: time.Minute}
	tables := map[string][]string{
		"t1": players(20, "t1-"),
		"t2": players(1, "t2-"),
	}
	moves := b.ComputeMoves(tables, map[string]time.Time{}, time.Now())
	require.LessOrEqual(t, len(moves), maxMovesPerHeartbeat)
	require.NotEmpty(t, moves)
}

func TestComputeMovesNoOpWhenAlreadyBalanced(t *testing.T) {
	b := newBalancer()
	tables := map[string][]string{
		"t1": players(4, "t1-"),
		"t2": players(4, "t2-"),
	}
	moves := b.ComputeMoves(tables, map[string]time.Time{}, time.Now())
	require.Empty(t, moves)
}
