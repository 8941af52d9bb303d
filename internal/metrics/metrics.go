// Package metrics exposes the Prometheus instrumentation shared by the
// table and tournament actors: rake totals, hand duration, balancer
// throughput, heartbeat lag, and actor panics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RakeWithdrawnTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "poker_rake_withdrawn_total",
		Help: "Total rake withdrawn from tables, in the table's smallest currency unit",
	}, []string{"table_id"})

	HandDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "poker_hand_duration_seconds",
		Help:    "Wall-clock time from start_betting_round to showdown",
		Buckets: []float64{5, 15, 30, 60, 120, 300, 600},
	}, []string{"table_id"})

	HandsCompletedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "poker_hands_completed_total",
		Help: "Total hands that reached showdown or a single-winner fold",
	}, []string{"table_id"})

	PotSize = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "poker_pot_size",
		Help:    "Distribution of total pot size at showdown",
		Buckets: prometheus.ExponentialBuckets(10, 4, 8),
	}, []string{"table_id"})

	BalancerMovesPerHeartbeat = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "poker_balancer_moves_per_heartbeat",
		Help:    "Number of player moves computed per balancing heartbeat",
		Buckets: []float64{0, 1, 2, 3, 4, 5},
	}, []string{"tournament_id"})

	BalancerMoveFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "poker_balancer_move_failures_total",
		Help: "Total balancer-directed player moves that failed",
	}, []string{"tournament_id"})

	HeartbeatLag = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "poker_heartbeat_lag_seconds",
		Help:    "Delay between a heartbeat's scheduled and actual fire time",
		Buckets: prometheus.DefBuckets,
	}, []string{"actor_type"})

	HeartbeatDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "poker_heartbeat_duration_seconds",
		Help:    "Time spent processing one heartbeat invocation",
		Buckets: prometheus.DefBuckets,
	}, []string{"actor_type"})

	ActorPanicsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "poker_actor_panics_total",
		Help: "Total invariant violations reported by the integrity auditor",
	}, []string{"actor_type", "reason"})

	TablesActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "poker_tables_active",
		Help: "Number of table actors currently open",
	})

	TournamentsActive = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "poker_tournaments_active",
		Help: "Number of tournament actors currently in a non-terminal state",
	}, []string{"state"})

	PlayersEliminatedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "poker_players_eliminated_total",
		Help: "Total tournament player eliminations",
	}, []string{"tournament_id"})

	CycleTopUpsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "poker_cycle_topups_total",
		Help: "Total cycle top-ups an Index granted to child actors",
	}, []string{"actor_type"})
)

// RecordRakeWithdrawn records a rake withdrawal for a table.
func RecordRakeWithdrawn(tableID string, amount uint64) {
	RakeWithdrawnTotal.WithLabelValues(tableID).Add(float64(amount))
}

// RecordHandCompleted records one hand's duration and final pot size.
func RecordHandCompleted(tableID string, duration time.Duration, potSize uint64) {
	HandDuration.WithLabelValues(tableID).Observe(duration.Seconds())
	HandsCompletedTotal.WithLabelValues(tableID).Inc()
	PotSize.WithLabelValues(tableID).Observe(float64(potSize))
}

// RecordBalancerHeartbeat records the number of moves one balancing
// heartbeat computed, and how many of that heartbeat's moves failed.
func RecordBalancerHeartbeat(tournamentID string, moveCount, failureCount int) {
	BalancerMovesPerHeartbeat.WithLabelValues(tournamentID).Observe(float64(moveCount))
	if failureCount > 0 {
		BalancerMoveFailures.WithLabelValues(tournamentID).Add(float64(failureCount))
	}
}

// RecordHeartbeat records a heartbeat's scheduling lag and processing time.
func RecordHeartbeat(actorType string, lag, duration time.Duration) {
	HeartbeatLag.WithLabelValues(actorType).Observe(lag.Seconds())
	HeartbeatDuration.WithLabelValues(actorType).Observe(duration.Seconds())
}

// RecordActorPanic records one reported invariant violation. The reporting
// actor is not terminated.
func RecordActorPanic(actorType, reason string) {
	ActorPanicsTotal.WithLabelValues(actorType, reason).Inc()
}

// SetTablesActive sets the current count of open table actors.
func SetTablesActive(count int) {
	TablesActive.Set(float64(count))
}

// SetTournamentsActive sets the current count of tournament actors in state.
func SetTournamentsActive(state string, count int) {
	TournamentsActive.WithLabelValues(state).Set(float64(count))
}

// RecordPlayerEliminated records one tournament elimination.
func RecordPlayerEliminated(tournamentID string) {
	PlayersEliminatedTotal.WithLabelValues(tournamentID).Inc()
}

// RecordCycleTopUp records an Index granting a cycle top-up to a child actor.
func RecordCycleTopUp(actorType string) {
	CycleTopUpsTotal.WithLabelValues(actorType).Inc()
}
