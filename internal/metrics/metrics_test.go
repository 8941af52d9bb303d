package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestRecordRakeWithdrawn(t *testing.T) {
	before := testutil.ToFloat64(RakeWithdrawnTotal.WithLabelValues("tbl-rake-1"))
	RecordRakeWithdrawn("tbl-rake-1", 250)
	after := testutil.ToFloat64(RakeWithdrawnTotal.WithLabelValues("tbl-rake-1"))
	require.Equal(t, before+250, after)
}

func TestRecordHandCompleted(t *testing.T) {
	beforeHands := testutil.ToFloat64(HandsCompletedTotal.WithLabelValues("tbl-hand-1"))
	RecordHandCompleted("tbl-hand-1", 45*time.Second, 1200)
	afterHands := testutil.ToFloat64(HandsCompletedTotal.WithLabelValues("tbl-hand-1"))
	require.Equal(t, beforeHands+1, afterHands)
}

func TestRecordBalancerHeartbeatSkipsFailureCounterWhenZero(t *testing.T) {
	before := testutil.ToFloat64(BalancerMoveFailures.WithLabelValues("tourney-bal-1"))
	RecordBalancerHeartbeat("tourney-bal-1", 3, 0)
	after := testutil.ToFloat64(BalancerMoveFailures.WithLabelValues("tourney-bal-1"))
	require.Equal(t, before, after)
}

func TestRecordBalancerHeartbeatRecordsFailures(t *testing.T) {
	before := testutil.ToFloat64(BalancerMoveFailures.WithLabelValues("tourney-bal-2"))
	RecordBalancerHeartbeat("tourney-bal-2", 3, 2)
	after := testutil.ToFloat64(BalancerMoveFailures.WithLabelValues("tourney-bal-2"))
	require.Equal(t, before+2, after)
}

func TestRecordActorPanic(t *testing.T) {
	before := testutil.ToFloat64(ActorPanicsTotal.WithLabelValues("table", "chip_conservation"))
	RecordActorPanic("table", "chip_conservation")
	after := testutil.ToFloat64(ActorPanicsTotal.WithLabelValues("table", "chip_conservation"))
	require.Equal(t, before+1, after)
}

func TestSetTablesActive(t *testing.T) {
	SetTablesActive(7)
	require.Equal(t, float64(7), testutil.ToFloat64(TablesActive))
}

func TestSetTournamentsActive(t *testing.T) {
	SetTournamentsActive("running", 4)
	require.Equal(t, float64(4), testutil.ToFloat64(TournamentsActive.WithLabelValues("running")))
}

func TestRecordPlayerEliminated(t *testing.T) {
	before := testutil.ToFloat64(PlayersEliminatedTotal.WithLabelValues("tourney-elim-1"))
	RecordPlayerEliminated("tourney-elim-1")
	RecordPlayerEliminated("tourney-elim-1")
	after := testutil.ToFloat64(PlayersEliminatedTotal.WithLabelValues("tourney-elim-1"))
	require.Equal(t, before+2, after)
}

func TestRecordCycleTopUp(t *testing.T) {
	before := testutil.ToFloat64(CycleTopUpsTotal.WithLabelValues("table"))
	RecordCycleTopUp("table")
	after := testutil.ToFloat64(CycleTopUpsTotal.WithLabelValues("table"))
	require.Equal(t, before+1, after)
}
