package db

import (
	"testing"

	dbm "github.com/cometbft/cometbft-db"
	"github.com/stretchr/testify/require"
)

func TestIncrement(t *testing.T) {
	require.Equal(t, []byte{0x01, 0x03}, increment([]byte{0x01, 0x02}))
	require.Equal(t, []byte{0x02, 0x00}, increment([]byte{0x01, 0xFF}))
	require.Nil(t, increment([]byte{0xFF, 0xFF}))
}

func TestIteratePrefix(t *testing.T) {
	db := dbm.NewMemDB()
	for _, k := range []string{"a1", "b1", "b2", "b3", "c1"} {
		require.NoError(t, db.Set([]byte(k), []byte(k)))
	}

	itr, err := IteratePrefix(db, []byte("b"))
	require.NoError(t, err)
	var keys []string
	for ; itr.Valid(); itr.Next() {
		keys = append(keys, string(itr.Key()))
	}
	require.NoError(t, itr.Close())
	require.Equal(t, []string{"b1", "b2", "b3"}, keys)
}
