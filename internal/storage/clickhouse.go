package storage

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
)

// ClickHouseConfig holds ClickHouse connection configuration.
type ClickHouseConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	Database     string        `yaml:"database"`
	Username     string        `yaml:"username"`
	Password     string        `yaml:"password"`
	Secure       bool          `yaml:"secure"`
	MaxOpenConns int           `yaml:"max_open_conns"`
	MaxIdleConns int           `yaml:"max_idle_conns"`
	ConnTimeout  time.Duration `yaml:"conn_timeout"`
}

// ClickHouseRepository implements Repository for hand history, showdown
// distributions, and tournament milestones.
type ClickHouseRepository struct {
	db clickhouse.Conn
}

// NewClickHouseRepository connects to ClickHouse and verifies reachability.
func NewClickHouseRepository(ctx context.Context, config ClickHouseConfig) (*ClickHouseRepository, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{fmt.Sprintf("%s:%d", config.Host, config.Port)},
		Auth: clickhouse.Auth{
			Database: config.Database,
			Username: config.Username,
			Password: config.Password,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
		TLS: &tls.Config{InsecureSkipVerify: config.Secure},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}

	if err := conn.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}

	return &ClickHouseRepository{db: conn}, nil
}

// CreateTables creates the hand-history tables if they don't exist.
func (ch *ClickHouseRepository) CreateTables(ctx context.Context) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS hand_events (
			event_id String,
			event_type String,
			hand_id String,
			table_id String,
			tournament_id String,
			betting_type String,
			player_id String,
			seat_index Int32,
			chips_before UInt64,
			chips_after UInt64,
			total_pot UInt64,
			rake_amount UInt64,
			street_reached String,
			hand_duration_ms Int64,
			num_players Int32,
			timestamp DateTime64(3)
		) ENGINE = ReplacingMergeTree(timestamp)
		ORDER BY (hand_id, player_id, timestamp)`,

		`CREATE TABLE IF NOT EXISTS showdown_events (
			event_id String,
			hand_id String,
			table_id String,
			pot_index Int32,
			pot_amount UInt64,
			rake_amount UInt64,
			winner_id String,
			rank_kind String,
			shared_with Int32,
			amount_won UInt64,
			timestamp DateTime64(3)
		) ENGINE = ReplacingMergeTree(timestamp)
		ORDER BY (hand_id, pot_index, winner_id)`,

		`CREATE TABLE IF NOT EXISTS tournament_events (
			event_id String,
			event_type String,
			tournament_id String,
			player_id String,
			position Int32,
			prize_amount UInt64,
			table_count Int32,
			player_count Int32,
			timestamp DateTime64(3)
		) ENGINE = ReplacingMergeTree(timestamp)
		ORDER BY (tournament_id, timestamp)`,
	}

	for _, query := range queries {
		if err := ch.db.Exec(ctx, query); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	return nil
}

// RecordHandEvent records a hand-history row.
func (ch *ClickHouseRepository) RecordHandEvent(ctx context.Context, event *HandEvent) error {
	query := `
		INSERT INTO hand_events (
			event_id, event_type, hand_id, table_id, tournament_id, betting_type,
			player_id, seat_index, chips_before, chips_after, total_pot,
			rake_amount, street_reached, hand_duration_ms, num_players, timestamp
		) VALUES (
			?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?
		)
	`

	return ch.db.Exec(ctx, query,
		event.EventID, event.EventType, event.HandID, event.TableID,
		event.TournamentID, event.BettingType, event.PlayerID, event.SeatIndex,
		event.ChipsBefore, event.ChipsAfter, event.TotalPot, event.RakeAmount,
		event.StreetReached, event.HandDuration.Milliseconds(), event.NumPlayers,
		event.Timestamp,
	)
}

// RecordHandEvents records multiple hand-history rows in sequence.
func (ch *ClickHouseRepository) RecordHandEvents(ctx context.Context, events []*HandEvent) error {
	for _, event := range events {
		if err := ch.RecordHandEvent(ctx, event); err != nil {
			return err
		}
	}
	return nil
}

// RecordShowdownEvent records one pot's award outcome.
func (ch *ClickHouseRepository) RecordShowdownEvent(ctx context.Context, event *ShowdownEvent) error {
	query := `
		INSERT INTO showdown_events (
			event_id, hand_id, table_id, pot_index, pot_amount, rake_amount,
			winner_id, rank_kind, shared_with, amount_won, timestamp
		) VALUES (
			?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?
		)
	`

	return ch.db.Exec(ctx, query,
		event.EventID, event.HandID, event.TableID, event.PotIndex,
		event.PotAmount, event.RakeAmount, event.WinnerID, event.RankKind,
		event.SharedWith, event.AmountWon, event.Timestamp,
	)
}

// RecordTournamentEvent records a tournament lifecycle/elimination row.
func (ch *ClickHouseRepository) RecordTournamentEvent(ctx context.Context, event *TournamentEvent) error {
	query := `
		INSERT INTO tournament_events (
			event_id, event_type, tournament_id, player_id, position,
			prize_amount, table_count, player_count, timestamp
		) VALUES (
			?, ?, ?, ?, ?, ?, ?, ?, ?
		)
	`

	return ch.db.Exec(ctx, query,
		event.EventID, event.EventType, event.TournamentID, event.PlayerID,
		event.Position, event.PrizeAmount, event.TableCount, event.PlayerCount,
		event.Timestamp,
	)
}

// GetHandHistory retrieves hand-history rows matching query.
func (ch *ClickHouseRepository) GetHandHistory(ctx context.Context, query HandHistoryQuery) ([]HandEvent, error) {
	sql := `
		SELECT event_id, event_type, hand_id, table_id, tournament_id, betting_type,
			   player_id, seat_index, chips_before, chips_after, total_pot,
			   rake_amount, street_reached, hand_duration_ms, num_players, timestamp
		FROM hand_events
		WHERE 1=1
	`

	args := make([]interface{}, 0)
	if query.TableID != "" {
		sql += " AND table_id = ?"
		args = append(args, query.TableID)
	}
	if query.TournamentID != "" {
		sql += " AND tournament_id = ?"
		args = append(args, query.TournamentID)
	}
	if query.PlayerID != "" {
		sql += " AND player_id = ?"
		args = append(args, query.PlayerID)
	}
	if !query.StartTime.IsZero() {
		sql += " AND timestamp >= ?"
		args = append(args, query.StartTime)
	}
	if !query.EndTime.IsZero() {
		sql += " AND timestamp <= ?"
		args = append(args, query.EndTime)
	}

	sql += " ORDER BY timestamp DESC"
	if query.Limit > 0 {
		sql += fmt.Sprintf(" LIMIT %d", query.Limit)
		if query.Offset > 0 {
			sql += fmt.Sprintf(" OFFSET %d", query.Offset)
		}
	}

	rows, err := ch.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []HandEvent
	for rows.Next() {
		var event HandEvent
		var durationMs int64

		if err := rows.Scan(
			&event.EventID, &event.EventType, &event.HandID, &event.TableID,
			&event.TournamentID, &event.BettingType, &event.PlayerID,
			&event.SeatIndex, &event.ChipsBefore, &event.ChipsAfter,
			&event.TotalPot, &event.RakeAmount, &event.StreetReached,
			&durationMs, &event.NumPlayers, &event.Timestamp,
		); err != nil {
			return nil, err
		}

		event.HandDuration = time.Duration(durationMs) * time.Millisecond
		events = append(events, event)
	}

	return events, rows.Err()
}

// GetShowdowns retrieves every pot-award row for one hand.
func (ch *ClickHouseRepository) GetShowdowns(ctx context.Context, handID string) ([]ShowdownEvent, error) {
	sql := `
		SELECT event_id, hand_id, table_id, pot_index, pot_amount, rake_amount,
			   winner_id, rank_kind, shared_with, amount_won, timestamp
		FROM showdown_events
		WHERE hand_id = ?
		ORDER BY pot_index
	`

	rows, err := ch.db.Query(ctx, sql, handID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []ShowdownEvent
	for rows.Next() {
		var event ShowdownEvent
		if err := rows.Scan(
			&event.EventID, &event.HandID, &event.TableID, &event.PotIndex,
			&event.PotAmount, &event.RakeAmount, &event.WinnerID, &event.RankKind,
			&event.SharedWith, &event.AmountWon, &event.Timestamp,
		); err != nil {
			return nil, err
		}
		events = append(events, event)
	}

	return events, rows.Err()
}

// GetTournamentHistory retrieves every lifecycle/elimination row for one
// tournament, in chronological order.
func (ch *ClickHouseRepository) GetTournamentHistory(ctx context.Context, tournamentID string) ([]TournamentEvent, error) {
	sql := `
		SELECT event_id, event_type, tournament_id, player_id, position,
			   prize_amount, table_count, player_count, timestamp
		FROM tournament_events
		WHERE tournament_id = ?
		ORDER BY timestamp
	`

	rows, err := ch.db.Query(ctx, sql, tournamentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []TournamentEvent
	for rows.Next() {
		var event TournamentEvent
		if err := rows.Scan(
			&event.EventID, &event.EventType, &event.TournamentID, &event.PlayerID,
			&event.Position, &event.PrizeAmount, &event.TableCount, &event.PlayerCount,
			&event.Timestamp,
		); err != nil {
			return nil, err
		}
		events = append(events, event)
	}

	return events, rows.Err()
}

// GetRakeStats aggregates rake taken over the queried window.
func (ch *ClickHouseRepository) GetRakeStats(ctx context.Context, query RakeStatsQuery) (*RakeStats, error) {
	sql := `
		SELECT
			sum(rake_amount) as total_rake,
			count() as total_hands,
			sum(total_pot) as total_pot,
			min(timestamp) as period_start,
			max(timestamp) as period_end
		FROM hand_events
		WHERE timestamp >= ? AND timestamp <= ?
	`
	args := []interface{}{query.StartTime, query.EndTime}
	if query.TableID != "" {
		sql += " AND table_id = ?"
		args = append(args, query.TableID)
	}

	rows, err := ch.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if rows.Next() {
		stats := &RakeStats{}
		if err := rows.Scan(
			&stats.TotalRake, &stats.TotalHands, &stats.TotalPot,
			&stats.PeriodStart, &stats.PeriodEnd,
		); err != nil {
			return nil, err
		}
		return stats, nil
	}

	return nil, rows.Err()
}

// GetPlayerStats aggregates one player's performance over a trailing window.
func (ch *ClickHouseRepository) GetPlayerStats(ctx context.Context, playerID string, period time.Duration) (*PlayerStats, error) {
	sql := `
		SELECT
			player_id,
			count() as total_hands,
			sum(toInt64(chips_after) - toInt64(chips_before)) as total_profit,
			sum(rake_amount) as total_rake_paid,
			avg(total_pot) as avg_pot_size,
			max(timestamp) as last_active
		FROM hand_events
		WHERE player_id = ? AND timestamp >= now() - interval ?
		GROUP BY player_id
	`

	rows, err := ch.db.Query(ctx, sql, playerID, period.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if rows.Next() {
		stats := &PlayerStats{}
		var avgPotSize float64
		if err := rows.Scan(
			&stats.PlayerID, &stats.TotalHandsPlayed, &stats.TotalProfit,
			&stats.TotalRakePaid, &avgPotSize, &stats.LastActive,
		); err != nil {
			return nil, err
		}
		stats.AvgPotSize = uint64(avgPotSize)
		return stats, nil
	}

	return nil, rows.Err()
}

// Close closes the ClickHouse connection.
func (ch *ClickHouseRepository) Close() error {
	return ch.db.Close()
}

// Ping checks whether the connection is alive.
func (ch *ClickHouseRepository) Ping(ctx context.Context) error {
	return ch.db.Ping(ctx)
}
