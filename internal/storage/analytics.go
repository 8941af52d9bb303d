package storage

import (
	"context"
	"time"
)

// AnalyticsEventType tags which kind of row an event record represents.
type AnalyticsEventType string

const (
	EventHandStarted     AnalyticsEventType = "hand_started"
	EventHandCompleted   AnalyticsEventType = "hand_completed"
	EventShowdown        AnalyticsEventType = "showdown"
	EventRakeWithdrawn   AnalyticsEventType = "rake_withdrawn"
	EventTournamentStart AnalyticsEventType = "tournament_started"
	EventTournamentEnd   AnalyticsEventType = "tournament_completed"
	EventPlayerEliminate AnalyticsEventType = "player_eliminated"
)

// HandEvent is one row of hand history: a completed betting round or the
// whole hand's outcome, keyed by (HandID, TableID).
type HandEvent struct {
	EventID       string             `json:"event_id" ch:"event_id"`
	EventType     AnalyticsEventType `json:"event_type" ch:"event_type"`
	HandID        string             `json:"hand_id" ch:"hand_id"`
	TableID       string             `json:"table_id" ch:"table_id"`
	TournamentID  string             `json:"tournament_id" ch:"tournament_id"`
	BettingType   string             `json:"betting_type" ch:"betting_type"`
	PlayerID      string             `json:"player_id" ch:"player_id"`
	SeatIndex     int                `json:"seat_index" ch:"seat_index"`
	ChipsBefore   uint64             `json:"chips_before" ch:"chips_before"`
	ChipsAfter    uint64             `json:"chips_after" ch:"chips_after"`
	TotalPot      uint64             `json:"total_pot" ch:"total_pot"`
	RakeAmount    uint64             `json:"rake_amount" ch:"rake_amount"`
	StreetReached string             `json:"street_reached" ch:"street_reached"`
	HandDuration  time.Duration      `json:"hand_duration" ch:"hand_duration"`
	NumPlayers    int                `json:"num_players" ch:"num_players"`
	Timestamp     time.Time          `json:"timestamp" ch:"timestamp"`
}

// ShowdownEvent is the per-player outcome of one pot award at showdown: who
// contended it, who won, and what rank they won with.
type ShowdownEvent struct {
	EventID      string    `json:"event_id" ch:"event_id"`
	HandID       string    `json:"hand_id" ch:"hand_id"`
	TableID      string    `json:"table_id" ch:"table_id"`
	PotIndex     int       `json:"pot_index" ch:"pot_index"`
	PotAmount    uint64    `json:"pot_amount" ch:"pot_amount"`
	RakeAmount   uint64    `json:"rake_amount" ch:"rake_amount"`
	WinnerID     string    `json:"winner_id" ch:"winner_id"`
	RankKind     string    `json:"rank_kind" ch:"rank_kind"`
	SharedWith   int       `json:"shared_with" ch:"shared_with"`
	AmountWon    uint64    `json:"amount_won" ch:"amount_won"`
	Timestamp    time.Time `json:"timestamp" ch:"timestamp"`
}

// TournamentEvent is a lifecycle or elimination milestone for a tournament.
type TournamentEvent struct {
	EventID      string             `json:"event_id" ch:"event_id"`
	EventType    AnalyticsEventType `json:"event_type" ch:"event_type"`
	TournamentID string             `json:"tournament_id" ch:"tournament_id"`
	PlayerID     string             `json:"player_id" ch:"player_id"`
	Position     int                `json:"position" ch:"position"`
	PrizeAmount  uint64             `json:"prize_amount" ch:"prize_amount"`
	TableCount   int                `json:"table_count" ch:"table_count"`
	PlayerCount  int                `json:"player_count" ch:"player_count"`
	Timestamp    time.Time          `json:"timestamp" ch:"timestamp"`
}

// Repository is the analytics sink. cmd/server writes a hand event to it
// when a table reaches showdown; the table and tournament actors do not
// write to it themselves. Writes are best-effort: a storage failure is
// logged by the caller and never blocks game state transitions.
type Repository interface {
	RecordHandEvent(ctx context.Context, event *HandEvent) error
	RecordHandEvents(ctx context.Context, events []*HandEvent) error
	GetHandHistory(ctx context.Context, query HandHistoryQuery) ([]HandEvent, error)

	RecordShowdownEvent(ctx context.Context, event *ShowdownEvent) error
	GetShowdowns(ctx context.Context, handID string) ([]ShowdownEvent, error)

	RecordTournamentEvent(ctx context.Context, event *TournamentEvent) error
	GetTournamentHistory(ctx context.Context, tournamentID string) ([]TournamentEvent, error)

	GetRakeStats(ctx context.Context, query RakeStatsQuery) (*RakeStats, error)
	GetPlayerStats(ctx context.Context, playerID string, period time.Duration) (*PlayerStats, error)

	Close() error
	Ping(ctx context.Context) error
}

// HandHistoryQuery narrows GetHandHistory.
type HandHistoryQuery struct {
	TableID      string
	TournamentID string
	PlayerID     string
	StartTime    time.Time
	EndTime      time.Time
	Limit        int
	Offset       int
}

// RakeStatsQuery narrows GetRakeStats.
type RakeStatsQuery struct {
	TableID   string
	StartTime time.Time
	EndTime   time.Time
}

// RakeStats is the aggregated rake taken across the queried window.
type RakeStats struct {
	TotalRake   uint64    `json:"total_rake"`
	TotalHands  int       `json:"total_hands"`
	TotalPot    uint64    `json:"total_pot"`
	PeriodStart time.Time `json:"period_start"`
	PeriodEnd   time.Time `json:"period_end"`
}

// PlayerStats is a player's aggregated performance over a trailing window.
type PlayerStats struct {
	PlayerID         string    `json:"player_id"`
	TotalHandsPlayed int       `json:"total_hands_played"`
	TotalProfit      int64     `json:"total_profit"`
	TotalRakePaid    uint64    `json:"total_rake_paid"`
	WinRate          float64   `json:"win_rate"`
	AvgPotSize       uint64    `json:"avg_pot_size"`
	LastActive       time.Time `json:"last_active"`
}
