package seeddb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gospiritual/yacy-search-server/types"
)

func TestResolveHashDomain(t *testing.T) {
	sdb := newTestSeedDB(t, nil)
	peer := newTestSeed("peer", "10.0.0.5", 8080)
	sdb.AddConnected(peer)
	hexHash, err := types.B64HashToHex(peer.Hash)
	require.NoError(t, err)

	testCases := []struct {
		host string
		addr string
		ok   bool
	}{
		{"h" + hexHash + ".yacyh", "10.0.0.5:8080", true},
		{"sub.h" + hexHash + ".yacyh", "10.0.0.5:8080/sub", true},
		{hexHash + ".yacyh", "10.0.0.5:8080", true},
		{peer.Hash + ".yacyh", "10.0.0.5:8080", true},
		{"www." + peer.Hash + ".yacyh", "10.0.0.5:8080/www", true},
		{types.RandomHash() + ".yacyh", "", false},
		{"hzz" + hexHash[2:] + ".yacyh", "", false},
		{".yacyh", "", false},
		{"example.org", "", false},
	}
	for _, tc := range testCases {
		addr, ok := sdb.ResolveAddress(tc.host)
		assert.Equal(t, tc.ok, ok, tc.host)
		assert.Equal(t, tc.addr, addr, tc.host)
	}
}

func TestResolveHashDomainSelf(t *testing.T) {
	my := newMySeed()
	sdb := newTestSeedDB(t, my)
	addr, ok := sdb.ResolveAddress(my.Hash + ".yacyh")
	require.True(t, ok)
	assert.Equal(t, "192.0.2.1:8090", addr)
}

func TestResolveHashDomainIgnoresDisconnected(t *testing.T) {
	sdb := newTestSeedDB(t, nil)
	peer := newTestSeed("peer", "10.0.0.5", 8080)
	sdb.AddDisconnected(peer)
	_, ok := sdb.ResolveAddress(peer.Hash + ".yacyh")
	assert.False(t, ok)
}

func TestResolveNameDomain(t *testing.T) {
	sdb := newTestSeedDB(t, nil)
	sdb.AddConnected(newTestSeed("Peer", "10.0.0.5", 8080))

	addr, ok := sdb.ResolveAddress("peer.yacy")
	require.True(t, ok)
	assert.Equal(t, "10.0.0.5:8080", addr)

	addr, ok = sdb.ResolveAddress("www.PEER.yacy")
	require.True(t, ok)
	assert.Equal(t, "10.0.0.5:8080/www", addr)

	_, ok = sdb.ResolveAddress("nobody.yacy")
	assert.False(t, ok)
}

func TestResolveNameDomainSelf(t *testing.T) {
	my := newMySeed()
	sdb := newTestSeedDB(t, my)

	// not reachable from outside: public IP and configured port
	addr, ok := sdb.ResolveAddress("me.yacy")
	require.True(t, ok)
	assert.Equal(t, "203.0.113.7:8090", addr)

	addr, ok = sdb.ResolveAddress("sub.localpeer.yacy")
	require.True(t, ok)
	assert.Equal(t, "203.0.113.7:8090/sub", addr)

	my.Put(types.AttrPeerType, types.PeerTypeSenior)
	addr, ok = sdb.ResolveAddress("me.yacy")
	require.True(t, ok)
	assert.Equal(t, "192.0.2.1:8090", addr)
}

func TestSplitSubdomain(t *testing.T) {
	label, sub := splitSubdomain("a.b.yacy", ".yacy")
	assert.Equal(t, "b", label)
	assert.Equal(t, "a", sub)

	label, sub = splitSubdomain("b.yacy", ".yacy")
	assert.Equal(t, "b", label)
	assert.Equal(t, "", sub)
}
