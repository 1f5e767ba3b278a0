package seeddb

import (
	"sort"
	"time"

	"github.com/gospiritual/yacy-search-server/config"
	"github.com/gospiritual/yacy-search-server/types"
)

// scoreCluster collects integer scores per hash for a single ranking.
type scoreCluster struct {
	scores map[string]int64
}

func newScoreCluster() *scoreCluster {
	return &scoreCluster{scores: make(map[string]int64)}
}

// Add adds score to the score of hash.
func (c *scoreCluster) Add(hash string, score int64) {
	c.scores[hash] += score
}

func (c *scoreCluster) Len() int { return len(c.scores) }

// Top returns at most n hashes ordered by score. Equal scores are ordered by
// hash in both directions.
func (c *scoreCluster) Top(ascending bool, n int) []string {
	hashes := make([]string, 0, len(c.scores))
	for h := range c.scores {
		hashes = append(hashes, h)
	}
	sort.Slice(hashes, func(i, j int) bool {
		si, sj := c.scores[hashes[i]], c.scores[hashes[j]]
		if si != sj {
			if ascending {
				return si < sj
			}
			return si > sj
		}
		return hashes[i] < hashes[j]
	})
	if n < len(hashes) {
		hashes = hashes[:n]
	}
	return hashes
}

// SeedsByAge ranks Connected seeds by the time since they were last seen,
// youngest first if ascending. It samples at most AgeSampleSize seeds,
// starting at a random position. The result has min(count, SizeConnected())
// slots; a slot is nil if fewer seeds could be ranked or a ranked seed left
// the table before it was read back.
func (sdb *SeedDB) SeedsByAge(ascending bool, count int) []*types.Seed {
	size := sdb.SizeConnected()
	if count > size {
		count = size
	}
	if count <= 0 {
		return nil
	}
	sample := sdb.config.SeedDB.AgeSampleSize
	if sample <= 0 || sample > config.MaxAgeSampleSize {
		sample = config.MaxAgeSampleSize
	}
	if sample > size {
		sample = size
	}

	scores := newScoreCluster()
	now := sdb.now()
	it := sdb.SeedsConnected(true, true, types.RandomHash())
	for ; sample > 0; sample-- {
		seed := it.Next()
		if seed == nil {
			break
		}
		lastSeen, err := seed.LastSeen()
		if err != nil {
			continue
		}
		age := now.Sub(lastSeen)
		if age < 0 {
			age = -age
		}
		scores.Add(seed.Hash, int64(age/time.Millisecond))
	}
	it.Close()

	result := make([]*types.Seed, count)
	for i, hash := range scores.Top(ascending, count) {
		result[i] = sdb.GetConnected(hash)
	}
	return result
}

// AnySeedVersion returns some Connected seed announcing at least minVersion,
// or nil. The scan starts at a random position.
func (sdb *SeedDB) AnySeedVersion(minVersion float64) *types.Seed {
	it := sdb.SeedsConnected(true, true, types.RandomHash())
	defer it.Close()
	for seed := it.Next(); seed != nil; seed = it.Next() {
		if seed.Version() >= minVersion {
			return seed
		}
	}
	return nil
}
