// Package index implements the TableIndex and TournamentIndex actors: the
// directory and lifecycle manager for table and tournament actors. An Index
// allocates identity, installs code (constructs the in-process actor),
// returns released instances to a reuse pool, and budgets cycles for its
// children (§2, §6).
package index

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"poker-platform/internal/actorcall"
	"poker-platform/internal/metrics"
	"poker-platform/internal/table"
	"poker-platform/internal/tournament"
)

// newID returns a short opaque identity token, the Go stand-in for a
// canister principal.
func newID(prefix string) string {
	buf := make([]byte, 8)
	_, _ = rand.Read(buf)
	return fmt.Sprintf("%s_%s", prefix, hex.EncodeToString(buf))
}

// CycleBudget mirrors §5's per-actor cycle monitoring: a parent Index holds
// a reserve and tops up children that fall below a threshold, provided the
// caller is a known child.
type CycleBudget struct {
	mu         sync.Mutex
	reserve    uint64
	topUpUnit  uint64
	threshold  uint64
	knownChild map[string]bool
}

// NewCycleBudget constructs a budget with an initial reserve, a fixed
// top-up grant size, and the balance threshold that triggers a request.
func NewCycleBudget(reserve, topUpUnit, threshold uint64) *CycleBudget {
	return &CycleBudget{
		reserve:    reserve,
		topUpUnit:  topUpUnit,
		threshold:  threshold,
		knownChild: make(map[string]bool),
	}
}

// Adopt registers childID as a known child eligible for top-ups.
func (b *CycleBudget) Adopt(childID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.knownChild[childID] = true
}

// Forget removes childID from the known-child set, e.g. on teardown.
func (b *CycleBudget) Forget(childID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.knownChild, childID)
}

// RequestCycles grants a top-up from the reserve to childID, if childID is
// known and the reserve can cover it. This is request_cycles() (§6).
func (b *CycleBudget) RequestCycles(childID, actorType string) (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.knownChild[childID] {
		return 0, actorcall.NewError(actorcall.InvalidRequest, "unknown child actor: "+childID)
	}
	if b.reserve < b.topUpUnit {
		return 0, actorcall.NewError(actorcall.Other, "index cycle reserve exhausted")
	}
	b.reserve -= b.topUpUnit
	metrics.RecordCycleTopUp(actorType)
	return b.topUpUnit, nil
}

// BelowThreshold reports whether balance warrants a top-up request.
func (b *CycleBudget) BelowThreshold(balance uint64) bool {
	return balance < b.threshold
}

// TableIndex is the directory and lifecycle manager for Table actors. It
// implements tournament.TableAllocator so a Tournament can request and
// release tables without ever constructing one directly.
type TableIndex struct {
	mu      sync.Mutex
	log     *logrus.Entry
	cycles  *CycleBudget
	tables  map[string]*table.Table // live, currently assigned
	pool    []string                // released table IDs available for reuse
	poolMap map[string]*table.Table
}

// NewTableIndex constructs an empty TableIndex.
func NewTableIndex(cycles *CycleBudget, log *logrus.Entry) *TableIndex {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &TableIndex{
		log:     log,
		cycles:  cycles,
		tables:  make(map[string]*table.Table),
		poolMap: make(map[string]*table.Table),
	}
}

// CreateTable allocates a fresh table identity and constructs the actor
// (create_table). Cycle budget is adopted for the new child.
func (ix *TableIndex) CreateTable(cfg table.TableConfig) (string, *table.Table, error) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	id := newID("table")
	cfg.TableID = id
	t, err := table.New(cfg, ix.log.WithField("table_id", id))
	if err != nil {
		return "", nil, err
	}
	ix.tables[id] = t
	if ix.cycles != nil {
		ix.cycles.Adopt(id)
	}
	metrics.SetTablesActive(len(ix.tables))
	return id, t, nil
}

// AllocateTable satisfies tournament.TableAllocator: prefer a pooled table
// reconfigured for reuse over constructing a new one, matching the "returns
// instances to a pool" responsibility (§2).
func (ix *TableIndex) AllocateTable(cfg table.TableConfig) (string, *table.Table, error) {
	ix.mu.Lock()
	if len(ix.pool) > 0 {
		id := ix.pool[len(ix.pool)-1]
		ix.pool = ix.pool[:len(ix.pool)-1]
		t := ix.poolMap[id]
		delete(ix.poolMap, id)
		ix.tables[id] = t
		ix.mu.Unlock()

		if t != nil {
			if err := t.ClearTable(); err != nil {
				ix.log.WithError(err).WithField("table_id", id).Warn("failed to clear pooled table before reuse")
			}
			if err := t.UpdateBlinds(cfg.SmallBlind, cfg.BigBlind, cfg.Ante); err != nil {
				ix.log.WithError(err).WithField("table_id", id).Warn("failed to reconfigure pooled table blinds")
			}
			metrics.SetTablesActive(len(ix.tables))
			return id, t, nil
		}
	} else {
		ix.mu.Unlock()
	}

	return ix.CreateTable(cfg)
}

// ReleaseTable satisfies tournament.TableAllocator: remove the table from
// the live set and return it to the reuse pool (add_to_pool).
func (ix *TableIndex) ReleaseTable(tableID string) error {
	return ix.AddToPool(tableID)
}

// GetAndRemoveFromPool returns a pooled table instance, if any, and removes
// it from the pool (get_and_remove_from_pool).
func (ix *TableIndex) GetAndRemoveFromPool() (string, *table.Table, bool) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	if len(ix.pool) == 0 {
		return "", nil, false
	}
	id := ix.pool[len(ix.pool)-1]
	ix.pool = ix.pool[:len(ix.pool)-1]
	t := ix.poolMap[id]
	delete(ix.poolMap, id)
	return id, t, true
}

// AddToPool releases tableID from the live set back into the reuse pool
// (add_to_pool). Idempotent: releasing an already-pooled table is a no-op.
// Releasing a table the index has never seen returns a PlayerNotFound error.
func (ix *TableIndex) AddToPool(tableID string) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	t, ok := ix.tables[tableID]
	if !ok {
		if _, alreadyPooled := ix.poolMap[tableID]; alreadyPooled {
			return nil
		}
		return actorcall.NewError(actorcall.PlayerNotFound, "unknown table: "+tableID)
	}
	delete(ix.tables, tableID)
	ix.poolMap[tableID] = t
	ix.pool = append(ix.pool, tableID)
	if ix.cycles != nil {
		ix.cycles.Forget(tableID)
	}
	metrics.SetTablesActive(len(ix.tables))
	return nil
}

// Get returns the live table for id, if present.
func (ix *TableIndex) Get(id string) (*table.Table, bool) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	t, ok := ix.tables[id]
	return t, ok
}

// Each calls fn for every currently live table. fn is called without the
// index's lock held, so it may safely call back into the index.
func (ix *TableIndex) Each(fn func(*table.Table)) {
	ix.mu.Lock()
	live := make([]*table.Table, 0, len(ix.tables))
	for _, t := range ix.tables {
		live = append(live, t)
	}
	ix.mu.Unlock()

	for _, t := range live {
		fn(t)
	}
}

// RequestCycles forwards to the shared cycle budget.
func (ix *TableIndex) RequestCycles(tableID string) (uint64, error) {
	if ix.cycles == nil {
		return 0, actorcall.NewError(actorcall.Other, "no cycle budget configured")
	}
	return ix.cycles.RequestCycles(tableID, "table")
}

// TournamentIndex is the directory and lifecycle manager for Tournament
// actors.
type TournamentIndex struct {
	mu          sync.Mutex
	log         *logrus.Entry
	cycles      *CycleBudget
	tournaments map[string]*tournament.Tournament
	pool        []string
}

// NewTournamentIndex constructs an empty TournamentIndex.
func NewTournamentIndex(cycles *CycleBudget, log *logrus.Entry) *TournamentIndex {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &TournamentIndex{
		log:         log,
		cycles:      cycles,
		tournaments: make(map[string]*tournament.Tournament),
	}
}

// CreateTournament allocates a fresh tournament identity and constructs the
// actor (create_tournament), wired to alloc for table lifecycle.
func (ix *TournamentIndex) CreateTournament(cfg tournament.Config, alloc tournament.TableAllocator) (string, *tournament.Tournament, error) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	id := newID("tournament")
	cfg.TournamentID = id
	tm, err := tournament.New(cfg, alloc, ix.log.WithField("tournament_id", id))
	if err != nil {
		return "", nil, err
	}
	ix.tournaments[id] = tm
	if ix.cycles != nil {
		ix.cycles.Adopt(id)
	}
	metrics.SetTournamentsActive(tm.State().String(), len(ix.tournaments))
	return id, tm, nil
}

// Get returns the live tournament for id, if present.
func (ix *TournamentIndex) Get(id string) (*tournament.Tournament, bool) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	tm, ok := ix.tournaments[id]
	return tm, ok
}

// GetAndRemoveFromPool returns a pooled tournament identity, if any.
// Nothing in TournamentIndex adds identities to this pool, so it always
// reports false; the operation exists for symmetry with TableIndex and §6's
// shared interface.
func (ix *TournamentIndex) GetAndRemoveFromPool() (string, bool) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if len(ix.pool) == 0 {
		return "", false
	}
	id := ix.pool[len(ix.pool)-1]
	ix.pool = ix.pool[:len(ix.pool)-1]
	return id, true
}

// AddToPool retires a completed tournament's identity and forgets its cycle
// adoption; tournament actors are not reconstructed from the pool the way
// tables are, since a finished tournament's state is terminal.
func (ix *TournamentIndex) AddToPool(tournamentID string) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	if _, ok := ix.tournaments[tournamentID]; !ok {
		return actorcall.NewError(actorcall.PlayerNotFound, "unknown tournament: "+tournamentID)
	}
	delete(ix.tournaments, tournamentID)
	if ix.cycles != nil {
		ix.cycles.Forget(tournamentID)
	}
	metrics.SetTournamentsActive("Completed", len(ix.tournaments))
	return nil
}

// UpdateTournamentState is a notification hook so external callers (a
// lobby service, in production) can be told about a state transition
// without reaching into the actor directly.
func (ix *TournamentIndex) UpdateTournamentState(tournamentID string, state tournament.State) error {
	ix.mu.Lock()
	tm, ok := ix.tournaments[tournamentID]
	ix.mu.Unlock()
	if !ok {
		return actorcall.NewError(actorcall.PlayerNotFound, "unknown tournament: "+tournamentID)
	}
	metrics.SetTournamentsActive(state.String(), len(ix.tournaments))
	_ = tm
	return nil
}

// Each calls fn for every currently live tournament. fn is called without
// the index's lock held, so it may safely call back into the index.
func (ix *TournamentIndex) Each(fn func(*tournament.Tournament)) {
	ix.mu.Lock()
	live := make([]*tournament.Tournament, 0, len(ix.tournaments))
	for _, tm := range ix.tournaments {
		live = append(live, tm)
	}
	ix.mu.Unlock()

	for _, tm := range live {
		fn(tm)
	}
}

// RequestCycles forwards to the shared cycle budget.
func (ix *TournamentIndex) RequestCycles(tournamentID string) (uint64, error) {
	if ix.cycles == nil {
		return 0, actorcall.NewError(actorcall.Other, "no cycle budget configured")
	}
	return ix.cycles.RequestCycles(tournamentID, "tournament")
}
