package seeddb

import (
	"context"
	"net"
	"strings"
	"time"

	"github.com/gospiritual/yacy-search-server/types"
)

// resolveTimeout bounds a single DNS lookup of a peer host name.
const resolveTimeout = 2 * time.Second

func nameKey(name string) string {
	return strings.ToLower(name)
}

// evict removes seed from the name cache. Address cache entries are checked
// against the tables when they are hit.
func (sdb *SeedDB) evict(seed *types.Seed) {
	sdb.nameCache.Remove(nameKey(seed.Name()))
}

// LookupByName finds a seed by its name, ignoring case. The name "localpeer"
// always denotes the own seed.
//
// NOTE: only the Connected table is searched, so a peer that went offline
// cannot be found by name until it reconnects. It is unclear whether that is
// wanted; it is kept until somebody needs names of Disconnected peers.
func (sdb *SeedDB) LookupByName(name string) *types.Seed {
	if name == types.LocalPeerAlias {
		return sdb.mySeed
	}
	key := nameKey(name)
	if seed, ok := sdb.nameCache.Get(key); ok {
		sdb.metrics.CacheHits.With("cache", "name").Add(1)
		return seed
	}
	sdb.metrics.CacheMisses.With("cache", "name").Add(1)

	it := sdb.SeedsConnected(true, false, "")
	defer it.Close()
	for seed := it.Next(); seed != nil; seed = it.Next() {
		if sdb.cacheName(seed) == key {
			return seed
		}
	}
	if sdb.cacheName(sdb.mySeed) == key {
		return sdb.mySeed
	}
	return nil
}

// cacheName adds a proper seed to the name cache and returns its key.
func (sdb *SeedDB) cacheName(seed *types.Seed) string {
	key := nameKey(seed.Name())
	if seed.ValidateBasic() == nil {
		sdb.nameCache.Add(key, seed)
	}
	return key
}

// LookupByIP finds the seed announcing ip. The enabled tables are searched
// in the order Connected, Disconnected, Potential, the own seed last. Seeds
// whose host does not resolve are skipped.
func (sdb *SeedDB) LookupByIP(ip net.IP, connected, disconnected, potential bool) *types.Seed {
	if ip == nil {
		return nil
	}
	if sdb.isHostIP(ip) {
		return sdb.mySeed
	}
	tables := sdb.lookupTables(connected, disconnected, potential)
	key := ip.String()
	if seed, ok := sdb.ipCache.Get(key); ok {
		if sdb.isCurrent(seed, tables) {
			sdb.metrics.CacheHits.With("cache", "ip").Add(1)
			return seed
		}
		sdb.ipCache.Remove(key)
	}
	sdb.metrics.CacheMisses.With("cache", "ip").Add(1)

	for _, h := range tables {
		if seed := sdb.scanForIP(h, ip); seed != nil {
			return seed
		}
	}

	if seedIP, ok := sdb.cacheIP(sdb.mySeed); ok && seedIP.Equal(ip) {
		return sdb.mySeed
	}
	return nil
}

func (sdb *SeedDB) lookupTables(connected, disconnected, potential bool) []*tableHandle {
	tables := make([]*tableHandle, 0, 3)
	if connected {
		tables = append(tables, sdb.connected)
	}
	if disconnected {
		tables = append(tables, sdb.disconnected)
	}
	if potential {
		tables = append(tables, sdb.potential)
	}
	return tables
}

// isCurrent reports whether one of tables still holds seed under the same
// address.
func (sdb *SeedDB) isCurrent(seed *types.Seed, tables []*tableHandle) bool {
	for _, h := range tables {
		if stored := sdb.get(h, seed.Hash); stored != nil {
			return stored.Address() == seed.Address()
		}
	}
	return false
}

func (sdb *SeedDB) scanForIP(h *tableHandle, ip net.IP) *types.Seed {
	it := sdb.seeds(h, true, false, "")
	defer it.Close()
	for seed := it.Next(); seed != nil; seed = it.Next() {
		if seedIP, ok := sdb.cacheIP(seed); ok && seedIP.Equal(ip) {
			return seed
		}
	}
	return nil
}

// cacheIP resolves the address of seed and, for a proper seed, caches it.
func (sdb *SeedDB) cacheIP(seed *types.Seed) (net.IP, bool) {
	ip, ok := sdb.resolveSeedIP(seed)
	if !ok {
		return nil, false
	}
	if seed.ValidateBasic() == nil {
		sdb.ipCache.Add(ip.String(), seed)
	}
	return ip, true
}

// resolveSeedIP strips the port from the seed address and resolves the
// remaining host.
func (sdb *SeedDB) resolveSeedIP(seed *types.Seed) (net.IP, bool) {
	host := seed.Address()
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	if host == "" {
		return nil, false
	}
	if ip := net.ParseIP(host); ip != nil {
		return ip, true
	}
	ctx, cancel := context.WithTimeout(context.Background(), resolveTimeout)
	defer cancel()
	ips, err := sdb.lookupIP(ctx, host)
	if err != nil || len(ips) == 0 {
		return nil, false
	}
	return ips[0], true
}

// isThisHostIP reports whether ip is a loopback address or assigned to a
// local interface.
func isThisHostIP(ip net.IP) bool {
	if ip.IsLoopback() || ip.IsUnspecified() {
		return true
	}
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return false
	}
	for _, a := range addrs {
		if ipnet, ok := a.(*net.IPNet); ok && ipnet.IP.Equal(ip) {
			return true
		}
	}
	return false
}
