package db

import (
	dbm "github.com/cometbft/cometbft-db"
)

// IteratePrefix is a convenience function for iterating over a key domain
// restricted by prefix.
func IteratePrefix(db dbm.DB, prefix []byte) (dbm.Iterator, error) {
	start, end := PrefixRange(prefix)
	itr, err := db.Iterator(start, end)
	if err != nil {
		return nil, err
	}
	return itr, nil
}

// PrefixRange returns the [start, end) domain covering every key that begins
// with prefix. A nil end means the domain is open at the top.
func PrefixRange(prefix []byte) (start, end []byte) {
	if len(prefix) == 0 {
		return nil, nil
	}
	return cp(prefix), increment(prefix)
}
