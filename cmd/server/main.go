package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"poker-platform/internal/index"
	"poker-platform/internal/integrity"
	"poker-platform/internal/storage"
	"poker-platform/internal/storage/postgres"
	"poker-platform/internal/table"
	"poker-platform/internal/tournament"
	"poker-platform/pkg/rng"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// GameServer owns the table and tournament indexes and exposes them over a
// REST API and a per-table WebSocket feed.
type GameServer struct {
	log *logrus.Entry

	tableIndex      *index.TableIndex
	tournamentIndex *index.TournamentIndex
	cycles          *index.CycleBudget

	rng      *rng.System
	auditor  *integrity.Auditor
	analytics storage.Repository // nil if ClickHouse is not configured
	snapshots storage.SnapshotStore // nil if Postgres is not configured
	payouts   storage.PayoutLedger  // nil if Postgres is not configured

	upgrader websocket.Upgrader

	mu    sync.RWMutex
	conns map[string]map[*websocket.Conn]bool
}

// NewGameServer wires the Index layer, the invariant auditor, and whichever
// storage backends are configured via the environment. ClickHouse and
// Postgres are both optional: their absence only disables analytics
// recording and snapshotting, never table or tournament play.
func NewGameServer(ctx context.Context, log *logrus.Entry) (*GameServer, error) {
	rngSystem, err := rng.NewSystem(rng.NewAuditLogger())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize RNG: %w", err)
	}

	auditorCfg := integrity.Config{
		Brokers: splitEnvList("KAFKA_BROKERS"),
		Topic:   envOrDefault("KAFKA_INTEGRITY_TOPIC", "poker.integrity.violations"),
	}
	auditor, err := integrity.New(auditorCfg, log.WithField("component", "integrity"))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize integrity auditor: %w", err)
	}

	cycles := index.NewCycleBudget(1_000_000_000, 10_000_000, 1_000_000)
	tableIdx := index.NewTableIndex(cycles, log.WithField("component", "table_index"))
	tournamentIdx := index.NewTournamentIndex(cycles, log.WithField("component", "tournament_index"))

	srv := &GameServer{
		log:             log,
		tableIndex:      tableIdx,
		tournamentIndex: tournamentIdx,
		cycles:          cycles,
		rng:             rngSystem,
		auditor:         auditor,
		upgrader:        upgrader,
		conns:           make(map[string]map[*websocket.Conn]bool),
	}

	if host := os.Getenv("CLICKHOUSE_HOST"); host != "" {
		port, _ := strconv.Atoi(envOrDefault("CLICKHOUSE_PORT", "9000"))
		repo, err := storage.NewClickHouseRepository(ctx, storage.ClickHouseConfig{
			Host:         host,
			Port:         port,
			Database:     envOrDefault("CLICKHOUSE_DATABASE", "poker"),
			Username:     envOrDefault("CLICKHOUSE_USER", "default"),
			Password:     os.Getenv("CLICKHOUSE_PASSWORD"),
			Secure:       os.Getenv("CLICKHOUSE_SECURE") == "true",
			MaxOpenConns: 10,
			MaxIdleConns: 5,
			ConnTimeout:  10 * time.Second,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to clickhouse: %w", err)
		}
		if err := repo.CreateTables(ctx); err != nil {
			return nil, fmt.Errorf("failed to create clickhouse tables: %w", err)
		}
		srv.analytics = repo
		log.Info("analytics sink connected to clickhouse")
	}

	if dsn := os.Getenv("POSTGRES_DSN"); dsn != "" {
		db, err := sql.Open("postgres", dsn)
		if err != nil {
			return nil, fmt.Errorf("failed to open postgres: %w", err)
		}
		if err := db.PingContext(ctx); err != nil {
			return nil, fmt.Errorf("failed to ping postgres: %w", err)
		}
		snapshots := postgres.NewSnapshotPostgresStore(db)
		if err := snapshots.CreateTables(ctx); err != nil {
			return nil, fmt.Errorf("failed to create postgres tables: %w", err)
		}
		srv.snapshots = snapshots
		srv.payouts = postgres.NewPayoutPostgresLedger(db)
		log.Info("snapshot store and payout ledger connected to postgres")
	}

	return srv, nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func splitEnvList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// createTableRequest is the REST body for creating a table.
type createTableRequest struct {
	BettingType      string `json:"betting_type"`
	SmallBlind       uint64 `json:"small_blind"`
	BigBlind         uint64 `json:"big_blind"`
	MaxSeats         int    `json:"max_seats"`
	MinBuyIn         uint64 `json:"min_buy_in"`
	MaxBuyIn         uint64 `json:"max_buy_in"`
	CurrencyDecimals uint8  `json:"currency_decimals"`
}

func parseBettingType(s string) table.BettingType {
	switch s {
	case "fixed_limit":
		return table.FixedLimit
	case "spread_limit":
		return table.SpreadLimit
	case "pot_limit":
		return table.PotLimit
	default:
		return table.NoLimit
	}
}

func (s *GameServer) handleCreateTable(c *gin.Context) {
	var req createTableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	if req.MaxSeats == 0 {
		req.MaxSeats = 9
	}
	if req.CurrencyDecimals == 0 {
		req.CurrencyDecimals = 2
	}

	cfg := table.TableConfig{
		BettingType:      parseBettingType(req.BettingType),
		SmallBlind:       req.SmallBlind,
		BigBlind:         req.BigBlind,
		MaxSeats:         req.MaxSeats,
		MinBuyIn:         req.MinBuyIn,
		MaxBuyIn:         req.MaxBuyIn,
		CurrencyDecimals: req.CurrencyDecimals,
	}

	id, t, err := s.tableIndex.CreateTable(cfg)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	t.SetAuditor(s.auditor)
	c.JSON(http.StatusCreated, gin.H{"table_id": id})
}

func (s *GameServer) handleGetTable(c *gin.Context) {
	tableID := c.Param("tableId")
	t, ok := s.tableIndex.Get(tableID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "table not found"})
		return
	}
	c.JSON(http.StatusOK, t.GetTable())
}

// handleGetTableSnapshot returns the last persisted snapshot of a table,
// live or not. It is diagnostic only: a PublicTable snapshot omits
// in-flight deck and timer state, so it is read back for operator
// inspection rather than used to reconstruct a live actor.
func (s *GameServer) handleGetTableSnapshot(c *gin.Context) {
	if s.snapshots == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "snapshot store not configured"})
		return
	}
	tableID := c.Param("tableId")
	snap, err := s.snapshots.LoadTable(c.Request.Context(), tableID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if snap == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no snapshot found"})
		return
	}
	c.Data(http.StatusOK, "application/json", snap.State)
}

type joinTableRequest struct {
	UserCanisterID string `json:"user_canister_id"`
	PlayerID       string `json:"player_id"`
	Deposit        uint64 `json:"deposit"`
	SitOut         bool   `json:"sit_out"`
}

func (s *GameServer) handleJoinTable(c *gin.Context) {
	tableID := c.Param("tableId")
	t, ok := s.tableIndex.Get(tableID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "table not found"})
		return
	}
	var req joinTableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	pub, err := t.JoinTable(req.UserCanisterID, req.PlayerID, nil, req.Deposit, req.SitOut)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s.broadcastTable(tableID, pub)
	c.JSON(http.StatusOK, pub)
}

// handleStartHand deals a fresh hand, seeded from the server's CSPRNG.
func (s *GameServer) handleStartHand(c *gin.Context) {
	tableID := c.Param("tableId")
	t, ok := s.tableIndex.Get(tableID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "table not found"})
		return
	}
	seed, err := s.rng.RandomBytes(32)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to seed shuffle"})
		return
	}
	pub, err := t.StartBettingRound(seed)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s.broadcastTable(tableID, pub)
	c.JSON(http.StatusOK, pub)
}

type createTournamentRequest struct {
	BuyIn              uint64 `json:"buy_in"`
	StartingChips      uint64 `json:"starting_chips"`
	MinPlayers         int    `json:"min_players"`
	MaxPlayersPerTable int    `json:"max_players_per_table"`
	FinalTableSeats    int    `json:"final_table_seats"`
	StartInSeconds     int    `json:"start_in_seconds"`
}

func (s *GameServer) handleCreateTournament(c *gin.Context) {
	var req createTournamentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	if req.MaxPlayersPerTable == 0 {
		req.MaxPlayersPerTable = 9
	}
	if req.FinalTableSeats == 0 {
		req.FinalTableSeats = 9
	}

	cfg := tournament.Config{
		BuyIn:              req.BuyIn,
		StartingChips:      req.StartingChips,
		MinPlayers:         req.MinPlayers,
		MaxPlayersPerTable: req.MaxPlayersPerTable,
		FinalTableSeats:    req.FinalTableSeats,
		StartTime:          time.Now().Add(time.Duration(req.StartInSeconds) * time.Second),
		LateRegDuration:    10 * time.Minute,
		Schedule: []tournament.BlindLevel{
			{SmallBlind: 25, BigBlind: 50, Duration: 10 * time.Minute},
			{SmallBlind: 50, BigBlind: 100, Duration: 10 * time.Minute},
			{SmallBlind: 100, BigBlind: 200, Duration: 10 * time.Minute},
		},
	}

	id, tm, err := s.tournamentIndex.CreateTournament(cfg, s.tableIndex)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	tm.SetAuditor(s.auditor)
	c.JSON(http.StatusCreated, gin.H{"tournament_id": id})
}

func (s *GameServer) handleGetTournament(c *gin.Context) {
	id := c.Param("tournamentId")
	tm, ok := s.tournamentIndex.Get(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "tournament not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": tm.State().String()})
}

// handleGetTournamentSnapshot returns the last persisted lifecycle summary
// of a tournament, live or not, for operator diagnostics after a restart.
func (s *GameServer) handleGetTournamentSnapshot(c *gin.Context) {
	if s.snapshots == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "snapshot store not configured"})
		return
	}
	id := c.Param("tournamentId")
	snap, err := s.snapshots.LoadTournament(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if snap == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no snapshot found"})
		return
	}
	c.Data(http.StatusOK, "application/json", snap.State)
}

type joinTournamentRequest struct {
	UserCanisterID string `json:"user_canister_id"`
	PlayerID       string `json:"player_id"`
}

func (s *GameServer) handleJoinTournament(c *gin.Context) {
	id := c.Param("tournamentId")
	tm, ok := s.tournamentIndex.Get(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "tournament not found"})
		return
	}
	var req joinTournamentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	if err := tm.UserJoinTournament(req.UserCanisterID, req.PlayerID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"joined": true})
}

// handleWebSocket upgrades the connection and streams table state to the
// client, and accepts join/bet/check/fold/leave actions as JSON frames.
func (s *GameServer) handleWebSocket(c *gin.Context) {
	tableID := c.Param("tableId")
	t, ok := s.tableIndex.Get(tableID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "table not found"})
		return
	}

	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.WithError(err).Warn("websocket upgrade failed")
		return
	}
	defer conn.Close()

	s.registerConn(tableID, conn)
	defer s.unregisterConn(tableID, conn)

	s.log.WithField("table_id", tableID).Info("player connected")

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				s.log.WithError(err).Warn("websocket read error")
			}
			break
		}

		var msg map[string]interface{}
		if err := json.Unmarshal(message, &msg); err != nil {
			s.sendError(conn, "invalid message")
			continue
		}
		s.handleMessage(conn, tableID, t, msg)
	}
}

func (s *GameServer) handleMessage(conn *websocket.Conn, tableID string, t *table.Table, msg map[string]interface{}) {
	msgType, _ := msg["type"].(string)
	playerID, _ := msg["player_id"].(string)

	var (
		pub table.PublicTable
		err error
	)

	switch msgType {
	case "start":
		seed, seedErr := s.rng.RandomBytes(32)
		if seedErr != nil {
			s.sendError(conn, "failed to seed shuffle")
			return
		}
		pub, err = t.StartBettingRound(seed)

	case "join":
		userCanisterID, _ := msg["user_canister_id"].(string)
		deposit := numberField(msg, "deposit")
		pub, err = t.JoinTable(userCanisterID, playerID, nil, deposit, false)

	case "bet":
		kind := table.BetRaise
		switch msg["kind"] {
		case "call":
			kind = table.BetCall
		case "all_in":
			kind = table.BetAllIn
		}
		pub, err = t.Bet(playerID, table.BetType{Kind: kind, Amount: numberField(msg, "amount")})

	case "check":
		pub, err = t.Check(playerID)

	case "fold":
		pub, err = t.Fold(playerID)

	case "leave":
		_, err = t.LeaveTable(playerID)
		pub = t.GetTable()

	default:
		s.sendError(conn, "unknown message type")
		return
	}

	if err != nil {
		s.sendError(conn, err.Error())
		return
	}
	s.broadcastTable(tableID, pub)
}

func numberField(msg map[string]interface{}, key string) uint64 {
	v, ok := msg[key].(float64)
	if !ok {
		return 0
	}
	return uint64(v)
}

func (s *GameServer) registerConn(tableID string, conn *websocket.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conns[tableID] == nil {
		s.conns[tableID] = make(map[*websocket.Conn]bool)
	}
	s.conns[tableID][conn] = true
}

func (s *GameServer) unregisterConn(tableID string, conn *websocket.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conns[tableID], conn)
}

func (s *GameServer) broadcastTable(tableID string, pub table.PublicTable) {
	s.mu.RLock()
	for conn := range s.conns[tableID] {
		if err := conn.WriteJSON(map[string]interface{}{"type": "state", "table": pub}); err != nil {
			s.log.WithError(err).Warn("failed to push table state to client")
		}
	}
	s.mu.RUnlock()

	if pub.DealStage == table.Showdown {
		s.recordHandCompleted(tableID, pub)
	}
}

// recordHandCompleted writes a best-effort analytics row for a hand that
// just reached showdown. A storage failure is logged here and never
// propagated back into the play path.
func (s *GameServer) recordHandCompleted(tableID string, pub table.PublicTable) {
	if s.analytics == nil {
		return
	}
	total := pub.MainPot
	for _, sp := range pub.SidePots {
		total += sp.Amount
	}
	event := &storage.HandEvent{
		EventID:       fmt.Sprintf("%s-%d", tableID, pub.HandNumber),
		EventType:     storage.EventHandCompleted,
		HandID:        fmt.Sprintf("%s-%d", tableID, pub.HandNumber),
		TableID:       tableID,
		BettingType:   pub.Config.BettingType.String(),
		TotalPot:      total,
		RakeAmount:    pub.RakeTotal,
		StreetReached: pub.DealStage.String(),
		NumPlayers:    len(pub.Users),
		Timestamp:     time.Now(),
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.analytics.RecordHandEvent(ctx, event); err != nil {
		s.log.WithError(err).Warn("failed to record hand-completed analytics event")
	}
}

func (s *GameServer) sendError(conn *websocket.Conn, message string) {
	_ = conn.WriteJSON(map[string]interface{}{"type": "error", "message": message})
}

// runHeartbeats drives tournament lifecycle and action-timer checks on a
// fixed tick until ctx is cancelled, since actors here are cooperative and
// never run their own goroutine loops.
func (s *GameServer) runHeartbeats(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.tableIndex.Each(func(t *table.Table) { t.TickTimer(now) })
			s.tournamentIndex.Each(func(tm *tournament.Tournament) {
				tm.Heartbeat(now)
				if tm.State() == tournament.Completed {
					s.settlePendingPayouts(ctx, tm)
				}
			})
			s.snapshotAll(ctx)
		}
	}
}

// snapshotAll writes every live table and tournament's current state to the
// snapshot store. The stored snapshots are read back only by the /snapshot
// diagnostic endpoints; no actor is rebuilt from them. A no-op when
// Postgres is not configured.
func (s *GameServer) snapshotAll(ctx context.Context) {
	if s.snapshots == nil {
		return
	}
	snapCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	s.tableIndex.Each(func(t *table.Table) {
		pub := t.GetTable()
		body, err := json.Marshal(pub)
		if err != nil {
			s.log.WithError(err).Warn("failed to marshal table snapshot")
			return
		}
		if err := s.snapshots.SaveTable(snapCtx, storage.TableSnapshot{
			TableID:   pub.TableID,
			State:     body,
			UpdatedAt: time.Now(),
		}); err != nil {
			s.log.WithError(err).Warn("failed to save table snapshot")
		}
	})

	s.tournamentIndex.Each(func(tm *tournament.Tournament) {
		snap := tm.Snapshot()
		body, err := json.Marshal(snap)
		if err != nil {
			s.log.WithError(err).Warn("failed to marshal tournament snapshot")
			return
		}
		if err := s.snapshots.SaveTournament(snapCtx, storage.TournamentSnapshot{
			TournamentID: snap.ID,
			State:        body,
			UpdatedAt:    time.Now(),
		}); err != nil {
			s.log.WithError(err).Warn("failed to save tournament snapshot")
		}
	})
}

// settlePendingPayouts persists and settles a completed tournament's prize
// obligations. With no external wallet service to call, persisting to the
// ledger and marking settled here IS the transfer this actor model defers
// to "the user-actor call site" — there is no further hop in this process.
func (s *GameServer) settlePendingPayouts(ctx context.Context, tm *tournament.Tournament) {
	pending := tm.PendingPayouts()
	if len(pending) == 0 {
		return
	}
	for playerID, amount := range pending {
		if s.payouts != nil {
			if err := s.payouts.RecordPending(ctx, storage.PendingPayout{
				TournamentID: tm.ID(),
				PlayerID:     playerID,
				Amount:       amount,
				CreatedAt:    time.Now(),
			}); err != nil {
				s.log.WithError(err).Warn("failed to record pending payout")
				continue
			}
			if err := s.payouts.MarkSettled(ctx, tm.ID(), playerID); err != nil {
				s.log.WithError(err).Warn("failed to mark payout settled")
				continue
			}
		}
		tm.SettlePayout(playerID)
	}

	if s.snapshots != nil && len(tm.PendingPayouts()) == 0 {
		if err := s.snapshots.DeleteTournament(ctx, tm.ID()); err != nil {
			s.log.WithError(err).Warn("failed to delete settled tournament snapshot")
		}
	}
}

// handleReleaseTable returns a table to the index's reuse pool (its
// occupancy is not checked) and clears its persisted snapshot, the
// counterpart to the periodic save in snapshotAll.
func (s *GameServer) handleReleaseTable(c *gin.Context) {
	tableID := c.Param("tableId")
	if err := s.tableIndex.ReleaseTable(tableID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if s.snapshots != nil {
		if err := s.snapshots.DeleteTable(c.Request.Context(), tableID); err != nil {
			s.log.WithError(err).Warn("failed to delete released table snapshot")
		}
	}
	c.JSON(http.StatusOK, gin.H{"released": true})
}

func main() {
	log := logrus.NewEntry(logrus.StandardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	server, err := NewGameServer(ctx, log)
	if err != nil {
		log.WithError(err).Fatal("failed to create game server")
	}

	go server.runHeartbeats(ctx)

	router := gin.Default()
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	router.POST("/api/tables", server.handleCreateTable)
	router.GET("/api/tables/:tableId", server.handleGetTable)
	router.GET("/api/tables/:tableId/snapshot", server.handleGetTableSnapshot)
	router.POST("/api/tables/:tableId/join", server.handleJoinTable)
	router.POST("/api/tables/:tableId/start", server.handleStartHand)
	router.DELETE("/api/tables/:tableId", server.handleReleaseTable)
	router.GET("/ws/:tableId", server.handleWebSocket)

	router.POST("/api/tournaments", server.handleCreateTournament)
	router.GET("/api/tournaments/:tournamentId", server.handleGetTournament)
	router.GET("/api/tournaments/:tournamentId/snapshot", server.handleGetTournamentSnapshot)
	router.POST("/api/tournaments/:tournamentId/join", server.handleJoinTournament)

	port := envOrDefault("GAME_SERVER_PORT", "3002")
	httpServer := &http.Server{
		Addr:    ":" + port,
		Handler: router,
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Info("shutting down server")
		cancel()
		if server.auditor != nil {
			_ = server.auditor.Close()
		}
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Warn("graceful shutdown failed")
		}
	}()

	log.WithField("port", port).Info("game server starting")
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.WithError(err).Fatal("server failed")
	}
}
