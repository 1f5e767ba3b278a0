package seeddb

import (
	"math/rand"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/gospiritual/yacy-search-server/config"
	"github.com/gospiritual/yacy-search-server/types"
)

func TestNewSeedDBRequiresOwnSeed(t *testing.T) {
	_, err := NewSeedDB(config.TestConfig(), nil)
	require.Error(t, err)
}

func TestClassifierMutualExclusivity(t *testing.T) {
	sdb := newTestSeedDB(t, nil)

	seeds := make([]*types.Seed, 8)
	for i := range seeds {
		seeds[i] = newTestSeed("peer"+strconv.Itoa(i), "198.51.100."+strconv.Itoa(i+1), 8090)
	}
	ops := []func(*types.Seed){sdb.AddConnected, sdb.AddDisconnected, sdb.AddPotential}

	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 500; i++ {
		ops[rng.Intn(len(ops))](seeds[rng.Intn(len(seeds))])

		for _, s := range seeds {
			in := tablesOf(sdb, s.Hash)
			require.LessOrEqual(t, len(in), 1, "%s is in %v", s.Hash, in)
		}
	}
	assert.LessOrEqual(t, sdb.SizeConnected()+sdb.SizeDisconnected()+sdb.SizePotential(), len(seeds))
}

func TestClassifierTransitions(t *testing.T) {
	sdb := newTestSeedDB(t, nil)
	s := newTestSeed("peer", "198.51.100.1", 8090)

	sdb.AddPotential(s)
	assert.Equal(t, []string{"potential"}, tablesOf(sdb, s.Hash))

	sdb.AddConnected(s)
	assert.Equal(t, []string{"connected"}, tablesOf(sdb, s.Hash))

	sdb.AddDisconnected(s)
	assert.Equal(t, []string{"disconnected"}, tablesOf(sdb, s.Hash))

	sdb.AddConnected(s)
	assert.Equal(t, []string{"connected"}, tablesOf(sdb, s.Hash))

	sdb.AddPotential(s)
	assert.Equal(t, []string{"potential"}, tablesOf(sdb, s.Hash))

	sdb.AddConnected(nil)
	sdb.AddDisconnected(nil)
	sdb.AddPotential(nil)
}

func TestClassifierIdempotence(t *testing.T) {
	sdb := newTestSeedDB(t, nil)
	s := newTestSeed("peer", "198.51.100.1", 8090)
	s.Put(types.AttrLCount, "10")

	sdb.AddConnected(s)
	s.Put(types.AttrLCount, "25")
	sdb.AddConnected(s)

	assert.Equal(t, 1, sdb.SizeConnected())
	got := sdb.GetConnected(s.Hash)
	require.NotNil(t, got)
	assert.Equal(t, "25", got.Get(types.AttrLCount, ""))
	assert.EqualValues(t, 25, sdb.CountActiveURL())
}

func TestClassifierValidityGate(t *testing.T) {
	sdb := newTestSeedDB(t, nil)
	invalid := newTestSeed("peer", "", 8090) // no address
	require.Error(t, invalid.ValidateBasic())

	sdb.AddConnected(invalid)
	assert.Empty(t, tablesOf(sdb, invalid.Hash))

	sdb.AddPotential(invalid)
	assert.Empty(t, tablesOf(sdb, invalid.Hash))

	sdb.AddDisconnected(invalid)
	assert.Equal(t, []string{"disconnected"}, tablesOf(sdb, invalid.Hash))

	// an improper potential seed still leaves the other tables
	sdb.AddPotential(invalid)
	assert.Empty(t, tablesOf(sdb, invalid.Hash))
}

func TestOwnSeedIsNeverStored(t *testing.T) {
	p := newMemProvider()
	my := newMySeed()

	// some other peer's directory learned about us
	other := newTestSeedDB(t, nil, p.options()...)
	mine := types.NewSeed(my.Hash, my.Attributes())
	mine.Put(types.AttrPeerType, types.PeerTypeSenior)
	other.AddConnected(mine)
	require.True(t, other.HasConnected(my.Hash))
	require.NoError(t, other.Close())

	sdb := newTestSeedDB(t, my, p.options()...)
	assert.Equal(t, 0, sdb.SizeConnected())
	assert.False(t, sdb.HasConnected(my.Hash))

	sdb.AddConnected(mine)
	sdb.AddDisconnected(mine)
	sdb.AddPotential(mine)
	assert.Empty(t, tablesOf(sdb, my.Hash))

	// lookups by hash still find it
	assert.Same(t, my, sdb.Get(my.Hash))
	assert.Same(t, my, sdb.MySeed())
}

func TestGetAcrossTables(t *testing.T) {
	sdb := newTestSeedDB(t, nil)
	c := newTestSeed("c", "198.51.100.1", 8090)
	d := newTestSeed("d", "198.51.100.2", 8090)
	p := newTestSeed("p", "198.51.100.3", 8090)
	sdb.AddConnected(c)
	sdb.AddDisconnected(d)
	sdb.AddPotential(p)

	for _, s := range []*types.Seed{c, d, p} {
		got := sdb.Get(s.Hash)
		require.NotNil(t, got, s.Name())
		assert.Equal(t, s.Name(), got.Name())
	}
	assert.Nil(t, sdb.GetConnected(d.Hash))
	assert.NotNil(t, sdb.GetDisconnected(d.Hash))
	assert.NotNil(t, sdb.GetPotential(p.Hash))
	assert.Nil(t, sdb.Get(types.RandomHash()))
	assert.Nil(t, sdb.Get(""))
}

func TestCounts(t *testing.T) {
	sdb := newTestSeedDB(t, nil)
	for i, table := range []func(*types.Seed){sdb.AddConnected, sdb.AddConnected, sdb.AddDisconnected, sdb.AddPotential} {
		s := newTestSeed("peer"+strconv.Itoa(i), "198.51.100."+strconv.Itoa(i+1), 8090)
		s.Put(types.AttrLCount, strconv.Itoa(100*(i+1)))
		s.Put(types.AttrICount, strconv.Itoa(10*(i+1)))
		s.Put(types.AttrISpeed, strconv.Itoa(i+1))
		table(s)
	}
	assert.Equal(t, 2, sdb.SizeConnected())
	assert.Equal(t, 1, sdb.SizeDisconnected())
	assert.Equal(t, 1, sdb.SizePotential())

	assert.EqualValues(t, 300, sdb.CountActiveURL())
	assert.EqualValues(t, 30, sdb.CountActiveRWI())
	assert.EqualValues(t, 3, sdb.CountActivePPM())
	assert.EqualValues(t, 300, sdb.CountPassiveURL())
	assert.EqualValues(t, 30, sdb.CountPassiveRWI())
	assert.EqualValues(t, 400, sdb.CountPotentialURL())
	assert.EqualValues(t, 40, sdb.CountPotentialRWI())
}

func TestPersistenceAcrossReopen(t *testing.T) {
	p := newMemProvider()
	my := newMySeed()

	sdb := newTestSeedDB(t, my, p.options()...)
	s := newTestSeed("peer", "198.51.100.1", 8090)
	s.Put(types.AttrLCount, "42")
	sdb.AddConnected(s)
	require.NoError(t, sdb.Close())

	reopened := newTestSeedDB(t, my, p.options()...)
	assert.Equal(t, 1, reopened.SizeConnected())
	assert.EqualValues(t, 42, reopened.CountActiveURL())
	assert.Equal(t, "peer", reopened.GetConnected(s.Hash).Name())
}

func TestClassificationAfterCloseKeepsTables(t *testing.T) {
	cfg := config.TestConfig()
	cfg.SetRoot(t.TempDir())
	cfg.DBBackend = "goleveldb"
	my := newMySeed()

	sdb, err := NewSeedDB(cfg, my, testOptions()...)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		sdb.AddConnected(newTestSeed("conn"+strconv.Itoa(i), "198.51.100."+strconv.Itoa(i+1), 8090))
		sdb.AddDisconnected(newTestSeed("disc"+strconv.Itoa(i), "198.51.100."+strconv.Itoa(i+11), 8090))
	}
	require.NoError(t, sdb.Close())

	late := newTestSeed("late", "198.51.100.99", 8090)
	sdb.AddPotential(late)
	sdb.AddConnected(late)
	sdb.AddDisconnected(late)
	sdb.ResetConnected()
	require.NoError(t, sdb.Close())

	sdb, err = NewSeedDB(cfg, my, testOptions()...)
	require.NoError(t, err)
	defer sdb.Close()
	assert.Equal(t, 3, sdb.SizeConnected())
	assert.Equal(t, 3, sdb.SizeDisconnected())
	assert.Equal(t, 0, sdb.SizePotential())
	assert.Nil(t, sdb.Get(late.Hash))
}

func TestGoLevelDBBackend(t *testing.T) {
	cfg := config.TestConfig()
	cfg.SetRoot(t.TempDir())
	cfg.DBBackend = "goleveldb"
	my := newMySeed()

	sdb, err := NewSeedDB(cfg, my, testOptions()...)
	require.NoError(t, err)
	s := newTestSeed("peer", "198.51.100.1", 8090)
	sdb.AddConnected(s)
	require.NoError(t, sdb.Close())

	sdb, err = NewSeedDB(cfg, my, testOptions()...)
	require.NoError(t, err)
	defer sdb.Close()
	assert.True(t, sdb.HasConnected(s.Hash))

	sdb.ResetConnected()
	assert.Equal(t, 0, sdb.SizeConnected())
	assert.False(t, sdb.HasConnected(s.Hash))

	sdb.AddConnected(s)
	assert.True(t, sdb.HasConnected(s.Hash))
}

func TestConcurrentClassification(t *testing.T) {
	sdb := newTestSeedDB(t, nil)
	seeds := make([]*types.Seed, 16)
	for i := range seeds {
		seeds[i] = newTestSeed("peer"+strconv.Itoa(i), "198.51.100."+strconv.Itoa(i+1), 8090)
	}

	var g errgroup.Group
	for w := 0; w < 8; w++ {
		w := w
		g.Go(func() error {
			rng := rand.New(rand.NewSource(int64(w)))
			ops := []func(*types.Seed){sdb.AddConnected, sdb.AddDisconnected, sdb.AddPotential}
			for i := 0; i < 200; i++ {
				ops[rng.Intn(len(ops))](seeds[rng.Intn(len(seeds))])
			}
			return nil
		})
	}
	for r := 0; r < 2; r++ {
		g.Go(func() error {
			for i := 0; i < 50; i++ {
				collect(sdb.SeedsConnected(true, true, types.RandomHash()))
				sdb.LookupByName("peer3")
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	for _, s := range seeds {
		in := tablesOf(sdb, s.Hash)
		assert.LessOrEqual(t, len(in), 1, "%s is in %v", s.Hash, in)
	}
}
