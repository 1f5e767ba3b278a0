package seeddb

import (
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gospiritual/yacy-search-server/config"
	"github.com/gospiritual/yacy-search-server/types"
)

func addAged(sdb *SeedDB, minutes ...int) map[int]*types.Seed {
	byAge := make(map[int]*types.Seed, len(minutes))
	for _, m := range minutes {
		s := newTestSeed("peer"+strconv.Itoa(m), "198.51.100.1", 8090)
		s.SetLastSeen(testNow.Add(-time.Duration(m) * time.Minute))
		sdb.AddConnected(s)
		byAge[m] = s
	}
	return byAge
}

func TestSeedsByAge(t *testing.T) {
	sdb := newTestSeedDB(t, nil)
	byAge := addAged(sdb, 10, 5, 30, 1)

	youngest := sdb.SeedsByAge(true, 2)
	require.Len(t, youngest, 2)
	assert.Equal(t, []string{byAge[1].Hash, byAge[5].Hash}, hashesOf(youngest))

	oldest := sdb.SeedsByAge(false, 2)
	require.Len(t, oldest, 2)
	assert.Equal(t, []string{byAge[30].Hash, byAge[10].Hash}, hashesOf(oldest))

	all := sdb.SeedsByAge(true, 100)
	assert.Len(t, all, 4)
	assert.Equal(t, byAge[30].Hash, all[3].Hash)
}

func TestSeedsByAgeFutureTimestamps(t *testing.T) {
	sdb := newTestSeedDB(t, nil)
	past := addAged(sdb, 10)
	future := newTestSeed("future", "198.51.100.1", 8090)
	future.SetLastSeen(testNow.Add(3 * time.Minute))
	sdb.AddConnected(future)

	got := sdb.SeedsByAge(true, 2)
	assert.Equal(t, []string{future.Hash, past[10].Hash}, hashesOf(got))
}

func TestSeedsByAgeHoles(t *testing.T) {
	sdb := newTestSeedDB(t, nil)
	byAge := addAged(sdb, 3)
	noStamp := newTestSeed("nostamp", "198.51.100.1", 8090)
	noStamp.Put(types.AttrLastSeen, "")
	sdb.AddConnected(noStamp)

	got := sdb.SeedsByAge(true, 5)
	require.Len(t, got, 2)
	assert.Equal(t, byAge[3].Hash, got[0].Hash)
	assert.Nil(t, got[1])
}

func TestSeedsByAgeSampleBound(t *testing.T) {
	sdb := newTestSeedDB(t, nil)
	sdb.config.SeedDB.AgeSampleSize = 3
	addAged(sdb, 1, 2, 3, 4, 5, 6)

	got := sdb.SeedsByAge(true, 6)
	require.Len(t, got, 6)
	var ranked int
	for _, s := range got {
		if s != nil {
			ranked++
		}
	}
	assert.Equal(t, 3, ranked)
}

func TestSeedsByAgeSampleOutOfBounds(t *testing.T) {
	sdb := newTestSeedDB(t, nil)
	addAged(sdb, 1, 2, 3, 4)

	for _, sample := range []int{0, config.MaxAgeSampleSize + 1} {
		sdb.config.SeedDB.AgeSampleSize = sample
		got := sdb.SeedsByAge(true, 4)
		require.Len(t, got, 4)
		for _, s := range got {
			assert.NotNil(t, s)
		}
	}
}

func TestSeedsByAgeEmpty(t *testing.T) {
	sdb := newTestSeedDB(t, nil)
	assert.Empty(t, sdb.SeedsByAge(true, 3))
}

func TestAnySeedVersion(t *testing.T) {
	sdb := newTestSeedDB(t, nil)
	for i, v := range []string{"0.3", "0.4", "0.9"} {
		s := newTestSeed("peer"+strconv.Itoa(i), "198.51.100.1", 8090)
		s.Put(types.AttrVersion, v)
		sdb.AddConnected(s)
	}

	for i := 0; i < 10; i++ {
		got := sdb.AnySeedVersion(0.8)
		require.NotNil(t, got)
		assert.Equal(t, 0.9, got.Version())

		got = sdb.AnySeedVersion(0.35)
		require.NotNil(t, got)
		assert.GreaterOrEqual(t, got.Version(), 0.35)
	}
	assert.Nil(t, sdb.AnySeedVersion(1.0))
}
