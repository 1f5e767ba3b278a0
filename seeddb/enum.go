package seeddb

import (
	"errors"

	"github.com/gospiritual/yacy-search-server/types"
)

// SeedIterator yields the seeds of one table. A storage fault resets the
// table and ends the iteration; seeds already returned stay valid. If the
// table is reset by someone else, the iteration ends at the next batch.
type SeedIterator struct {
	sdb *SeedDB
	h   *tableHandle
	t   *Table
	it  *RecordIterator
}

// Next returns the next seed, or nil when the iteration is over.
func (si *SeedIterator) Next() *types.Seed {
	if si.it == nil {
		return nil
	}
	hash, attrs, ok := si.it.Next()
	if ok {
		return types.NewSeed(hash, attrs)
	}
	if err := si.it.Error(); err != nil {
		si.sdb.fault(si.h, si.t, err)
	}
	si.it = nil
	return nil
}

// Close ends the iteration early.
func (si *SeedIterator) Close() {
	if si.it != nil {
		si.it.Close()
		si.it = nil
	}
}

func (sdb *SeedDB) seeds(h *tableHandle, ascending, rotate bool, firstHash string) *SeedIterator {
	t := h.Load()
	return &SeedIterator{sdb: sdb, h: h, t: t, it: t.Iterator(ascending, rotate, firstHash)}
}

func (sdb *SeedDB) seedsSorted(h *tableHandle, ascending bool, field string) *SeedIterator {
	t := h.Load()
	it, err := t.SortedIterator(ascending, field)
	if err != nil {
		if !errors.Is(err, ErrUnknownSortField) {
			sdb.fault(h, t, err)
		}
		sdb.logger.Debug("Empty seed enumeration", "table", h.id, "err", err)
		return &SeedIterator{sdb: sdb, h: h, t: t}
	}
	return &SeedIterator{sdb: sdb, h: h, t: t, it: it}
}

// SeedsConnected enumerates the Connected table in hash order, starting at
// firstHash if it is not empty. With rotate the enumeration wraps around
// and covers the whole table.
func (sdb *SeedDB) SeedsConnected(ascending, rotate bool, firstHash string) *SeedIterator {
	return sdb.seeds(sdb.connected, ascending, rotate, firstHash)
}

// SeedsDisconnected is SeedsConnected for the Disconnected table.
func (sdb *SeedDB) SeedsDisconnected(ascending, rotate bool, firstHash string) *SeedIterator {
	return sdb.seeds(sdb.disconnected, ascending, rotate, firstHash)
}

// SeedsPotential is SeedsConnected for the Potential table.
func (sdb *SeedDB) SeedsPotential(ascending, rotate bool, firstHash string) *SeedIterator {
	return sdb.seeds(sdb.potential, ascending, rotate, firstHash)
}

// SeedsSortedConnected enumerates the Connected table ordered by one of
// SortFields. An unknown field yields nothing.
func (sdb *SeedDB) SeedsSortedConnected(ascending bool, field string) *SeedIterator {
	return sdb.seedsSorted(sdb.connected, ascending, field)
}

// SeedsSortedDisconnected is SeedsSortedConnected for the Disconnected table.
func (sdb *SeedDB) SeedsSortedDisconnected(ascending bool, field string) *SeedIterator {
	return sdb.seedsSorted(sdb.disconnected, ascending, field)
}

// SeedsSortedPotential is SeedsSortedConnected for the Potential table.
func (sdb *SeedDB) SeedsSortedPotential(ascending bool, field string) *SeedIterator {
	return sdb.seedsSorted(sdb.potential, ascending, field)
}
