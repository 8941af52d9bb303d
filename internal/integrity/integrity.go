// Package integrity implements the post-transition invariant auditor
// required by §7: after every externally visible state transition, an
// actor's handler calls into this package to check the universal
// invariants (§3, §8). A confirmed violation is logged, counted, and
// published as an alert to Kafka for operational visibility. Nothing in this
// package terminates the actor, and the table and tournament actors keep
// running after a violation is reported.
package integrity

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/IBM/sarama"
	"github.com/sirupsen/logrus"

	"poker-platform/internal/metrics"
)

// Kind tags which universal invariant a Violation reports.
type Kind string

const (
	ChipConservation           Kind = "chip_conservation"
	SeatUserConsistency        Kind = "seat_user_consistency"
	SidePotConservation        Kind = "side_pot_conservation"
	CurrentPlayerLiveness      Kind = "current_player_liveness"
	TournamentChipConservation Kind = "tournament_chip_conservation"
	RakeMonotonicity           Kind = "rake_monotonicity"
)

// Violation is one detected breach of a universal invariant.
type Violation struct {
	Kind      Kind
	ActorType string // "table" | "tournament"
	ActorID   string
	Detail    string
	Expected  string
	Actual    string
	DetectedAt time.Time
}

// Auditor checks invariants and, on violation, publishes an alert and
// reports the violation back to the caller so it can terminate the actor.
type Auditor struct {
	log      *logrus.Entry
	producer sarama.SyncProducer // nil is valid: audits still run, publish is a no-op
	topic    string

	mu    sync.Mutex
	rakeHighWater map[string]uint64 // actor ID -> last observed rake_total, for monotonicity
}

// Config configures an Auditor's Kafka sink.
type Config struct {
	Brokers []string
	Topic   string
}

// New constructs an Auditor. If cfg.Brokers is empty, violations are logged
// but not published — useful for tests and local runs without a broker.
func New(cfg Config, log *logrus.Entry) (*Auditor, error) {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	a := &Auditor{
		log:           log,
		topic:         cfg.Topic,
		rakeHighWater: make(map[string]uint64),
	}
	if a.topic == "" {
		a.topic = "poker.integrity.violations"
	}
	if len(cfg.Brokers) == 0 {
		return a, nil
	}

	saramaCfg := sarama.NewConfig()
	saramaCfg.Producer.Return.Successes = true
	saramaCfg.Producer.Return.Errors = true
	saramaCfg.Producer.RequiredAcks = sarama.WaitForAll
	saramaCfg.Producer.Retry.Max = 3

	producer, err := sarama.NewSyncProducer(cfg.Brokers, saramaCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create integrity producer: %w", err)
	}
	a.producer = producer
	return a, nil
}

// violationMessage is the wire shape published to Kafka.
type violationMessage struct {
	Kind       Kind      `json:"kind"`
	ActorType  string    `json:"actor_type"`
	ActorID    string    `json:"actor_id"`
	Detail     string    `json:"detail"`
	Expected   string    `json:"expected"`
	Actual     string    `json:"actual"`
	DetectedAt time.Time `json:"detected_at"`
}

// Report publishes v (best-effort), logs it at error severity, and counts it
// in poker_actor_panics_total. Report never panics and does not stop the
// calling actor.
func (a *Auditor) Report(ctx context.Context, v Violation) {
	if v.DetectedAt.IsZero() {
		v.DetectedAt = time.Now()
	}

	metrics.RecordActorPanic(v.ActorType, string(v.Kind))
	a.log.WithFields(logrus.Fields{
		"kind":       v.Kind,
		"actor_type": v.ActorType,
		"actor_id":   v.ActorID,
		"expected":   v.Expected,
		"actual":     v.Actual,
	}).Error("invariant violation: " + v.Detail)

	if a.producer == nil {
		return
	}

	msg := violationMessage{
		Kind:       v.Kind,
		ActorType:  v.ActorType,
		ActorID:    v.ActorID,
		Detail:     v.Detail,
		Expected:   v.Expected,
		Actual:     v.Actual,
		DetectedAt: v.DetectedAt,
	}
	data, err := json.Marshal(msg)
	if err != nil {
		a.log.WithError(err).Warn("failed to marshal integrity violation")
		return
	}

	kafkaMsg := &sarama.ProducerMessage{
		Topic: a.topic,
		Key:   sarama.StringEncoder(v.ActorID),
		Value: sarama.ByteEncoder(data),
		Headers: []sarama.RecordHeader{
			{Key: []byte("kind"), Value: []byte(v.Kind)},
			{Key: []byte("actor_type"), Value: []byte(v.ActorType)},
		},
		Timestamp: v.DetectedAt,
	}
	if _, _, err := a.producer.SendMessage(kafkaMsg); err != nil {
		a.log.WithError(err).Warn("failed to publish integrity violation to kafka")
	}
}

// CheckChipConservation verifies Σ balances + Σ committed bets + pots equals
// the expected constant for the hand (§3, §8 #1). Returns a Violation if it
// doesn't, nil otherwise.
func CheckChipConservation(actorID string, expected, actual uint64) *Violation {
	if expected == actual {
		return nil
	}
	return &Violation{
		Kind:      ChipConservation,
		ActorType: "table",
		ActorID:   actorID,
		Detail:    "chip conservation violated within hand",
		Expected:  fmt.Sprintf("%d", expected),
		Actual:    fmt.Sprintf("%d", actual),
	}
}

// CheckSeatUserConsistency verifies the occupied-seat count equals the user
// and user-table-data key counts (§3, §8 #2). Only the counts are compared,
// not the identities in each set.
func CheckSeatUserConsistency(actorID string, occupiedSeats, userKeys, userDataKeys int) *Violation {
	if occupiedSeats == userKeys && userKeys == userDataKeys {
		return nil
	}
	return &Violation{
		Kind:      SeatUserConsistency,
		ActorType: "table",
		ActorID:   actorID,
		Detail:    "occupied seat count, user count, and user-table-data count diverged",
		Expected:  fmt.Sprintf("seats=%d", occupiedSeats),
		Actual:    fmt.Sprintf("users=%d data=%d", userKeys, userDataKeys),
	}
}

// CheckSidePotConservation verifies Σ side pots + main pot equals total
// committed bets at pot finalization (§3, §8 #3).
func CheckSidePotConservation(actorID string, sidePotsPlusMain, totalCommitted uint64) *Violation {
	if sidePotsPlusMain == totalCommitted {
		return nil
	}
	return &Violation{
		Kind:      SidePotConservation,
		ActorType: "table",
		ActorID:   actorID,
		Detail:    "side pots plus main pot did not equal total committed bets",
		Expected:  fmt.Sprintf("%d", totalCommitted),
		Actual:    fmt.Sprintf("%d", sidePotsPlusMain),
	}
}

// CheckTournamentChipConservation verifies §3/§8 #5:
// Σ stacks + Σ eliminated_buyins == Σ initial_stacks + Σ rebuys + Σ addons.
func CheckTournamentChipConservation(actorID string, lhs, rhs uint64) *Violation {
	if lhs == rhs {
		return nil
	}
	return &Violation{
		Kind:      TournamentChipConservation,
		ActorType: "tournament",
		ActorID:   actorID,
		Detail:    "tournament chip conservation violated",
		Expected:  fmt.Sprintf("%d", rhs),
		Actual:    fmt.Sprintf("%d", lhs),
	}
}

// CheckRakeMonotonic verifies lifetime rake collected only grows (§8 #6).
// The caller must pass a cumulative-ever counter, not a withdrawable
// balance: a table's rake_total is free to fall when WithdrawRake sweeps
// it, and that withdrawal is not a violation. Safe for concurrent use
// across many tables sharing one Auditor.
func (a *Auditor) CheckRakeMonotonic(actorID string, rakeCollectedLifetime uint64) *Violation {
	a.mu.Lock()
	defer a.mu.Unlock()

	prev, ok := a.rakeHighWater[actorID]
	a.rakeHighWater[actorID] = rakeCollectedLifetime
	if !ok || rakeCollectedLifetime >= prev {
		return nil
	}
	return &Violation{
		Kind:      RakeMonotonicity,
		ActorType: "table",
		ActorID:   actorID,
		Detail:    "lifetime rake collected decreased",
		Expected:  fmt.Sprintf(">= %d", prev),
		Actual:    fmt.Sprintf("%d", rakeCollectedLifetime),
	}
}

// Close shuts down the Kafka producer, if one was configured.
func (a *Auditor) Close() error {
	if a.producer == nil {
		return nil
	}
	return a.producer.Close()
}
