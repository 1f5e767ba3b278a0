package seeddb

import (
	"context"
	"errors"
	"net"
	"sync/atomic"
	"time"

	dbm "github.com/cometbft/cometbft-db"
	lru "github.com/hashicorp/golang-lru/v2"
	lerrors "github.com/syndtr/goleveldb/leveldb/errors"

	"github.com/gospiritual/yacy-search-server/config"
	"github.com/gospiritual/yacy-search-server/libs/log"
	cmtsync "github.com/gospiritual/yacy-search-server/libs/sync"
	"github.com/gospiritual/yacy-search-server/types"
)

// tableHandle points at the current instance of one table. A reset swaps
// in a fresh instance; holders of the old one see ErrTableClosed.
type tableHandle struct {
	id  string
	ptr atomic.Pointer[Table]
}

func (h *tableHandle) Load() *Table { return h.ptr.Load() }

// SeedDB is the peer directory. It keeps every known peer in exactly one of
// three tables: Connected (reachable), Disconnected (known but unreachable)
// and Potential (heard of, never confirmed). The own seed is held apart and
// never stored in a table.
//
// Storage faults never reach the caller. The affected table is dropped and
// replaced by an empty one, since its content is rebuilt by gossip anyway.
type SeedDB struct {
	config  *config.Config
	logger  log.Logger
	metrics *Metrics

	dbProvider config.DBProvider
	dbRemover  config.DBRemover
	lookupIP   func(ctx context.Context, host string) ([]net.IP, error)
	isHostIP   func(ip net.IP) bool
	publicIP   func() string
	now        func() time.Time

	// serializes mutations and resets across all three tables
	mtx    cmtsync.Mutex
	closed bool

	connected    *tableHandle
	disconnected *tableHandle
	potential    *tableHandle

	mySeed *types.Seed

	nameCache *lru.Cache[string, *types.Seed]
	ipCache   *lru.Cache[string, *types.Seed]
}

// Option sets an optional parameter on the SeedDB.
type Option func(*SeedDB)

// WithLogger sets the logger.
func WithLogger(l log.Logger) Option {
	return func(sdb *SeedDB) { sdb.logger = l }
}

// WithMetrics sets the metrics.
func WithMetrics(m *Metrics) Option {
	return func(sdb *SeedDB) { sdb.metrics = m }
}

// WithDBProvider replaces config.DefaultDBProvider.
func WithDBProvider(p config.DBProvider) Option {
	return func(sdb *SeedDB) { sdb.dbProvider = p }
}

// WithDBRemover replaces config.DefaultDBRemover.
func WithDBRemover(r config.DBRemover) Option {
	return func(sdb *SeedDB) { sdb.dbRemover = r }
}

// WithResolver replaces the DNS lookup used to compare peer addresses.
func WithResolver(lookupIP func(ctx context.Context, host string) ([]net.IP, error)) Option {
	return func(sdb *SeedDB) { sdb.lookupIP = lookupIP }
}

// WithHostIPFunc replaces the check whether an IP belongs to this host.
func WithHostIPFunc(isHostIP func(ip net.IP) bool) Option {
	return func(sdb *SeedDB) { sdb.isHostIP = isHostIP }
}

// WithPublicIPFunc replaces the detection of the public IP used when the
// own seed is not reachable from the outside.
func WithPublicIPFunc(publicIP func() string) Option {
	return func(sdb *SeedDB) { sdb.publicIP = publicIP }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(sdb *SeedDB) { sdb.now = now }
}

// NewSeedDB opens the three tables configured in cfg.SeedDB. A table that
// cannot be opened is deleted and recreated empty. The own seed is removed
// from all tables in case some peer published it.
func NewSeedDB(cfg *config.Config, mySeed *types.Seed, options ...Option) (*SeedDB, error) {
	if mySeed == nil {
		return nil, errors.New("own seed is required")
	}
	if err := cfg.SeedDB.ValidateBasic(); err != nil {
		return nil, err
	}

	sdb := &SeedDB{
		config:       cfg,
		logger:       log.NewNopLogger(),
		metrics:      NopMetrics(),
		dbProvider:   config.DefaultDBProvider,
		dbRemover:    config.DefaultDBRemover,
		isHostIP:     isThisHostIP,
		now:          time.Now,
		connected:    &tableHandle{id: cfg.SeedDB.ConnectedTable},
		disconnected: &tableHandle{id: cfg.SeedDB.DisconnectedTable},
		potential:    &tableHandle{id: cfg.SeedDB.PotentialTable},
		mySeed:       mySeed,
	}
	sdb.lookupIP = func(ctx context.Context, host string) ([]net.IP, error) {
		return net.DefaultResolver.LookupIP(ctx, "ip", host)
	}
	sdb.publicIP = func() string { return detectPublicIP(cfg.Network.PublicIP) }
	for _, option := range options {
		option(sdb)
	}

	var err error
	if sdb.nameCache, err = lru.New[string, *types.Seed](cfg.SeedDB.NameCacheSize); err != nil {
		return nil, err
	}
	if sdb.ipCache, err = lru.New[string, *types.Seed](cfg.SeedDB.IPCacheSize); err != nil {
		return nil, err
	}

	for _, h := range sdb.handles() {
		t, err := sdb.openTable(h.id)
		if err != nil {
			sdb.closeTables()
			return nil, err
		}
		h.ptr.Store(t)
	}

	sdb.RemoveMySeed()
	sdb.updateGauges()
	sdb.logger.Info("Opened seed tables",
		"connected", sdb.SizeConnected(),
		"disconnected", sdb.SizeDisconnected(),
		"potential", sdb.SizePotential())
	return sdb, nil
}

func (sdb *SeedDB) handles() []*tableHandle {
	return []*tableHandle{sdb.connected, sdb.disconnected, sdb.potential}
}

func (sdb *SeedDB) dbContext(id string) *config.DBContext {
	return &config.DBContext{ID: id, Config: sdb.config}
}

// openTable opens a table, deleting the store and retrying once if it is
// unreadable.
func (sdb *SeedDB) openTable(id string) (*Table, error) {
	t, err := sdb.tryOpenTable(id)
	if err == nil {
		return t, nil
	}
	sdb.logger.Error("Seed table unreadable, deleting it", "table", id, "corrupted", lerrors.IsCorrupted(err), "err", err)
	if rerr := sdb.dbRemover(sdb.dbContext(id)); rerr != nil {
		return nil, rerr
	}
	return sdb.tryOpenTable(id)
}

func (sdb *SeedDB) tryOpenTable(id string) (*Table, error) {
	db, err := sdb.dbProvider(sdb.dbContext(id))
	if err != nil {
		return nil, err
	}
	t, err := openTable(id, db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return t, nil
}

// resetTable replaces the table of h with an empty one, unless h no longer
// points at faulted.
func (sdb *SeedDB) resetTable(h *tableHandle, faulted *Table, cause error) {
	sdb.mtx.Lock()
	defer sdb.mtx.Unlock()
	sdb.resetTableLocked(h, faulted, cause)
}

func (sdb *SeedDB) resetTableLocked(h *tableHandle, faulted *Table, cause error) {
	if sdb.closed {
		return
	}
	old := h.Load()
	if faulted != nil && old != faulted {
		return
	}
	if cause != nil {
		sdb.logger.Error("Seed table fault, resetting table",
			"table", h.id, "corrupted", lerrors.IsCorrupted(cause), "err", cause)
	} else {
		sdb.logger.Info("Resetting seed table", "table", h.id)
	}

	if old != nil {
		if err := old.Close(); err != nil {
			sdb.logger.Error("Failed to close seed table", "table", h.id, "err", err)
		}
	}
	if err := sdb.dbRemover(sdb.dbContext(h.id)); err != nil {
		sdb.logger.Error("Failed to remove seed table", "table", h.id, "err", err)
	}
	t, err := sdb.tryOpenTable(h.id)
	if err != nil {
		// keep serving from memory rather than failing every later call
		sdb.logger.Error("Failed to recreate seed table, falling back to memory", "table", h.id, "err", err)
		t, _ = openTable(h.id, dbm.NewMemDB())
	}
	h.ptr.Store(t)

	if h == sdb.connected {
		sdb.nameCache.Purge()
		sdb.ipCache.Purge()
	}
	sdb.metrics.TableResets.With("table", h.id).Add(1)
	sdb.updateGauges()
}

// fault handles an error returned by a table operation on a read path.
// ErrTableClosed only means the table was replaced in the meantime.
func (sdb *SeedDB) fault(h *tableHandle, t *Table, err error) {
	if errors.Is(err, ErrTableClosed) {
		return
	}
	sdb.resetTable(h, t, err)
}

// faultLocked is fault for write paths, which already hold mtx.
func (sdb *SeedDB) faultLocked(h *tableHandle, t *Table, err error) {
	if errors.Is(err, ErrTableClosed) {
		return
	}
	sdb.resetTableLocked(h, t, err)
}

func (sdb *SeedDB) updateGauges() {
	sdb.metrics.Connected.Set(float64(sdb.connected.Load().Size()))
	sdb.metrics.Disconnected.Set(float64(sdb.disconnected.Load().Size()))
	sdb.metrics.Potential.Set(float64(sdb.potential.Load().Size()))
}

// MySeed returns the own seed.
func (sdb *SeedDB) MySeed() *types.Seed {
	return sdb.mySeed
}

// RemoveMySeed deletes the own seed from all three tables.
func (sdb *SeedDB) RemoveMySeed() {
	sdb.mtx.Lock()
	defer sdb.mtx.Unlock()
	if sdb.closed {
		return
	}
	for _, h := range sdb.handles() {
		sdb.removeLocked(h, sdb.mySeed.Hash)
	}
}

//-----------------------------------------------------------------------------
// Classifier

// AddConnected records seed as reachable. Seeds failing ValidateBasic are
// ignored.
func (sdb *SeedDB) AddConnected(seed *types.Seed) {
	if seed == nil || sdb.isMySeed(seed) {
		return
	}
	if err := seed.ValidateBasic(); err != nil {
		sdb.logger.Debug("Ignoring improper seed", "hash", seed.Hash, "err", err)
		return
	}

	sdb.mtx.Lock()
	defer sdb.mtx.Unlock()
	if sdb.closed {
		return
	}

	sdb.nameCache.Add(nameKey(seed.Name()), seed)
	sdb.setLocked(sdb.connected, seed)
	sdb.removeLocked(sdb.disconnected, seed.Hash)
	sdb.removeLocked(sdb.potential, seed.Hash)
	sdb.updateGauges()
}

// AddDisconnected records seed as unreachable. Improper seeds are stored
// too.
func (sdb *SeedDB) AddDisconnected(seed *types.Seed) {
	if seed == nil || sdb.isMySeed(seed) {
		return
	}

	sdb.mtx.Lock()
	defer sdb.mtx.Unlock()
	if sdb.closed {
		return
	}

	sdb.evict(seed)
	sdb.removeLocked(sdb.connected, seed.Hash)
	sdb.removeLocked(sdb.potential, seed.Hash)
	sdb.setLocked(sdb.disconnected, seed)
	sdb.updateGauges()
}

// AddPotential records seed as heard of. The seed is removed from the other
// tables in any case but only stored if it passes ValidateBasic.
func (sdb *SeedDB) AddPotential(seed *types.Seed) {
	if seed == nil || sdb.isMySeed(seed) {
		return
	}

	sdb.mtx.Lock()
	defer sdb.mtx.Unlock()
	if sdb.closed {
		return
	}

	sdb.evict(seed)
	sdb.removeLocked(sdb.connected, seed.Hash)
	sdb.removeLocked(sdb.disconnected, seed.Hash)
	defer sdb.updateGauges()

	if err := seed.ValidateBasic(); err != nil {
		sdb.logger.Debug("Not storing improper potential seed", "hash", seed.Hash, "err", err)
		return
	}
	sdb.setLocked(sdb.potential, seed)
}

func (sdb *SeedDB) isMySeed(seed *types.Seed) bool {
	return seed.Hash == sdb.mySeed.Hash
}

func (sdb *SeedDB) setLocked(h *tableHandle, seed *types.Seed) {
	t := h.Load()
	if err := t.Set(seed.Hash, seed.Attributes()); err != nil {
		sdb.faultLocked(h, t, err)
	}
}

func (sdb *SeedDB) removeLocked(h *tableHandle, hash string) {
	t := h.Load()
	if err := t.Remove(hash); err != nil {
		sdb.faultLocked(h, t, err)
	}
}

//-----------------------------------------------------------------------------
// Point queries

func (sdb *SeedDB) get(h *tableHandle, hash string) *types.Seed {
	if hash == "" {
		return nil
	}
	if hash == sdb.mySeed.Hash {
		return sdb.mySeed
	}
	t := h.Load()
	attrs, err := t.Get(hash)
	if err != nil {
		sdb.fault(h, t, err)
		return nil
	}
	if attrs == nil {
		return nil
	}
	return types.NewSeed(hash, attrs)
}

func (sdb *SeedDB) has(h *tableHandle, hash string) bool {
	t := h.Load()
	ok, err := t.Has(hash)
	if err != nil {
		sdb.fault(h, t, err)
		return false
	}
	return ok
}

// GetConnected returns the Connected seed with the given hash, or the own
// seed if hash is its hash. It returns nil if there is none.
func (sdb *SeedDB) GetConnected(hash string) *types.Seed { return sdb.get(sdb.connected, hash) }

// GetDisconnected is GetConnected for the Disconnected table.
func (sdb *SeedDB) GetDisconnected(hash string) *types.Seed { return sdb.get(sdb.disconnected, hash) }

// GetPotential is GetConnected for the Potential table.
func (sdb *SeedDB) GetPotential(hash string) *types.Seed { return sdb.get(sdb.potential, hash) }

// Get looks hash up in Connected, Disconnected and Potential, in that order.
func (sdb *SeedDB) Get(hash string) *types.Seed {
	if seed := sdb.GetConnected(hash); seed != nil {
		return seed
	}
	if seed := sdb.GetDisconnected(hash); seed != nil {
		return seed
	}
	return sdb.GetPotential(hash)
}

// HasConnected reports whether hash is in the Connected table.
func (sdb *SeedDB) HasConnected(hash string) bool { return sdb.has(sdb.connected, hash) }

// HasDisconnected reports whether hash is in the Disconnected table.
func (sdb *SeedDB) HasDisconnected(hash string) bool { return sdb.has(sdb.disconnected, hash) }

// HasPotential reports whether hash is in the Potential table.
func (sdb *SeedDB) HasPotential(hash string) bool { return sdb.has(sdb.potential, hash) }

// SizeConnected returns the number of Connected seeds.
func (sdb *SeedDB) SizeConnected() int { return sdb.connected.Load().Size() }

// SizeDisconnected returns the number of Disconnected seeds.
func (sdb *SeedDB) SizeDisconnected() int { return sdb.disconnected.Load().Size() }

// SizePotential returns the number of Potential seeds.
func (sdb *SeedDB) SizePotential() int { return sdb.potential.Load().Size() }

// CountActiveURL sums the URL counts announced by Connected peers.
func (sdb *SeedDB) CountActiveURL() int64 { return sdb.connected.Load().Sum(types.AttrLCount) }

// CountActiveRWI sums the index counts announced by Connected peers.
func (sdb *SeedDB) CountActiveRWI() int64 { return sdb.connected.Load().Sum(types.AttrICount) }

// CountActivePPM sums the indexing speeds announced by Connected peers.
func (sdb *SeedDB) CountActivePPM() int64 { return sdb.connected.Load().Sum(types.AttrISpeed) }

// CountPassiveURL sums the URL counts of Disconnected peers.
func (sdb *SeedDB) CountPassiveURL() int64 { return sdb.disconnected.Load().Sum(types.AttrLCount) }

// CountPassiveRWI sums the index counts of Disconnected peers.
func (sdb *SeedDB) CountPassiveRWI() int64 { return sdb.disconnected.Load().Sum(types.AttrICount) }

// CountPotentialURL sums the URL counts of Potential peers.
func (sdb *SeedDB) CountPotentialURL() int64 { return sdb.potential.Load().Sum(types.AttrLCount) }

// CountPotentialRWI sums the index counts of Potential peers.
func (sdb *SeedDB) CountPotentialRWI() int64 { return sdb.potential.Load().Sum(types.AttrICount) }

//-----------------------------------------------------------------------------
// Resets and shutdown

// ResetConnected drops all Connected seeds.
func (sdb *SeedDB) ResetConnected() { sdb.resetTable(sdb.connected, nil, nil) }

// ResetDisconnected drops all Disconnected seeds.
func (sdb *SeedDB) ResetDisconnected() { sdb.resetTable(sdb.disconnected, nil, nil) }

// ResetPotential drops all Potential seeds.
func (sdb *SeedDB) ResetPotential() { sdb.resetTable(sdb.potential, nil, nil) }

// Close closes the three tables. Later classifications and resets are
// ignored.
func (sdb *SeedDB) Close() error {
	sdb.mtx.Lock()
	defer sdb.mtx.Unlock()
	if sdb.closed {
		return nil
	}
	sdb.closed = true
	return sdb.closeTables()
}

func (sdb *SeedDB) closeTables() error {
	var firstErr error
	for _, h := range sdb.handles() {
		t := h.Load()
		if t == nil {
			continue
		}
		if err := t.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
