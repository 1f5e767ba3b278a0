package seeddb

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	dbm "github.com/cometbft/cometbft-db"
	"github.com/stretchr/testify/require"

	"github.com/gospiritual/yacy-search-server/config"
	"github.com/gospiritual/yacy-search-server/libs/log"
	"github.com/gospiritual/yacy-search-server/types"
)

var errInjected = errors.New("injected storage fault")

// faultyDB is a memdb whose operations can be made to fail on demand.
type faultyDB struct {
	dbm.DB
	failWrites atomic.Bool
	failReads  atomic.Bool
	failIters  atomic.Bool
}

func (db *faultyDB) Get(key []byte) ([]byte, error) {
	if db.failReads.Load() {
		return nil, errInjected
	}
	return db.DB.Get(key)
}

func (db *faultyDB) Has(key []byte) (bool, error) {
	if db.failReads.Load() {
		return false, errInjected
	}
	return db.DB.Has(key)
}

func (db *faultyDB) Iterator(start, end []byte) (dbm.Iterator, error) {
	if db.failIters.Load() {
		return nil, errInjected
	}
	return db.DB.Iterator(start, end)
}

func (db *faultyDB) ReverseIterator(start, end []byte) (dbm.Iterator, error) {
	if db.failIters.Load() {
		return nil, errInjected
	}
	return db.DB.ReverseIterator(start, end)
}

func (db *faultyDB) NewBatch() dbm.Batch {
	return &faultyBatch{Batch: db.DB.NewBatch(), db: db}
}

type faultyBatch struct {
	dbm.Batch
	db *faultyDB
}

func (b *faultyBatch) Write() error {
	if b.db.failWrites.Load() {
		return errInjected
	}
	return b.Batch.Write()
}

// memProvider keeps one store per table id across reopens, like files on
// disk. Removing a table drops its store.
type memProvider struct {
	mtx     sync.Mutex
	dbs     map[string]*faultyDB
	opens   map[string]int
	removes map[string]int
}

func newMemProvider() *memProvider {
	return &memProvider{
		dbs:     make(map[string]*faultyDB),
		opens:   make(map[string]int),
		removes: make(map[string]int),
	}
}

func (p *memProvider) provide(ctx *config.DBContext) (dbm.DB, error) {
	p.mtx.Lock()
	defer p.mtx.Unlock()
	p.opens[ctx.ID]++
	db, ok := p.dbs[ctx.ID]
	if !ok {
		db = &faultyDB{DB: dbm.NewMemDB()}
		p.dbs[ctx.ID] = db
	}
	return db, nil
}

func (p *memProvider) remove(ctx *config.DBContext) error {
	p.mtx.Lock()
	defer p.mtx.Unlock()
	p.removes[ctx.ID]++
	delete(p.dbs, ctx.ID)
	return nil
}

func (p *memProvider) db(id string) *faultyDB {
	p.mtx.Lock()
	defer p.mtx.Unlock()
	return p.dbs[id]
}

func (p *memProvider) options() []Option {
	return []Option{WithDBProvider(p.provide), WithDBRemover(p.remove)}
}

// fakeResolver resolves names from a fixed map.
func fakeResolver(hosts map[string]string) func(context.Context, string) ([]net.IP, error) {
	return func(_ context.Context, host string) ([]net.IP, error) {
		if ip, ok := hosts[host]; ok {
			return []net.IP{net.ParseIP(ip)}, nil
		}
		return nil, fmt.Errorf("no such host %s", host)
	}
}

var testNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newTestSeed(name, ip string, port int) *types.Seed {
	return types.NewSeed(types.RandomHash(), types.NewAttributes(
		types.AttrName, name,
		types.AttrIP, ip,
		types.AttrPort, strconv.Itoa(port),
		types.AttrVersion, "0.5",
		types.AttrLastSeen, testNow.Format(types.LastSeenLayout),
		types.AttrPeerType, types.PeerTypeSenior,
	))
}

func newMySeed() *types.Seed {
	s := newTestSeed("me", "192.0.2.1", 8090)
	s.Put(types.AttrPeerType, types.PeerTypeJunior)
	return s
}

func testOptions() []Option {
	return []Option{
		WithLogger(log.TestingLogger()),
		WithHostIPFunc(func(net.IP) bool { return false }),
		WithPublicIPFunc(func() string { return "203.0.113.7" }),
		WithResolver(fakeResolver(nil)),
		WithClock(func() time.Time { return testNow }),
	}
}

func newTestSeedDB(t *testing.T, mySeed *types.Seed, opts ...Option) *SeedDB {
	t.Helper()
	if mySeed == nil {
		mySeed = newMySeed()
	}
	sdb, err := NewSeedDB(config.TestConfig(), mySeed, append(testOptions(), opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sdb.Close() })
	return sdb
}

// tablesOf returns which tables hold hash.
func tablesOf(sdb *SeedDB, hash string) []string {
	var in []string
	if sdb.HasConnected(hash) {
		in = append(in, "connected")
	}
	if sdb.HasDisconnected(hash) {
		in = append(in, "disconnected")
	}
	if sdb.HasPotential(hash) {
		in = append(in, "potential")
	}
	return in
}

func collect(it *SeedIterator) []*types.Seed {
	defer it.Close()
	var out []*types.Seed
	for s := it.Next(); s != nil; s = it.Next() {
		out = append(out, s)
	}
	return out
}

func hashesOf(seeds []*types.Seed) []string {
	out := make([]string, len(seeds))
	for i, s := range seeds {
		if s != nil {
			out[i] = s.Hash
		}
	}
	return out
}
