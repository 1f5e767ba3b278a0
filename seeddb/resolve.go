package seeddb

import (
	"net"
	"strconv"
	"strings"

	"github.com/gospiritual/yacy-search-server/types"
)

// Virtual domains. "<hash>.yacyh" addresses a peer by its hash, "<name>.yacy"
// by its name. Both accept one leading subdomain label, which is turned into
// a path: "sub.peer.yacy" resolves to "ip:port/sub".
const (
	HashDomainSuffix = ".yacyh"
	NameDomainSuffix = ".yacy"
)

// ResolveAddress maps a virtual host name to "ip:port[/subdomain]". ok is
// false if host is not a virtual host name or names an unknown peer.
func (sdb *SeedDB) ResolveAddress(host string) (addr string, ok bool) {
	switch {
	case strings.HasSuffix(host, HashDomainSuffix):
		label, subdom := splitSubdomain(host, HashDomainSuffix)
		hash, valid := peerHash(label)
		if !valid {
			return "", false
		}
		// remote peers are looked up among Connected only
		seed := sdb.GetConnected(hash)
		if seed == nil {
			if hash != sdb.mySeed.Hash {
				return "", false
			}
			seed = sdb.mySeed
		}
		return withSubdomain(seed.Address(), subdom)

	case strings.HasSuffix(host, NameDomainSuffix):
		label, subdom := splitSubdomain(host, NameDomainSuffix)
		seed := sdb.LookupByName(strings.ToLower(label))
		if seed == nil {
			return "", false
		}
		if seed == sdb.mySeed && !seed.IsOnline() {
			// the stored address may be stale, use what we know locally
			local := net.JoinHostPort(sdb.publicIP(), strconv.Itoa(sdb.config.Network.Port))
			return withSubdomain(local, subdom)
		}
		return withSubdomain(seed.Address(), subdom)
	}
	return "", false
}

// splitSubdomain splits "sub.label<suffix>" into label and sub. Without a
// subdomain, sub is empty.
func splitSubdomain(host, suffix string) (label, subdom string) {
	domain := host[:len(host)-len(suffix)]
	if p := strings.IndexByte(domain, '.'); p > 0 {
		return domain[p+1:], domain[:p]
	}
	return domain, ""
}

// peerHash accepts a native hash or a hex hash with an optional "h" prefix.
func peerHash(label string) (string, bool) {
	if len(label) <= types.HashLength {
		return label, label != ""
	}
	if len(label) == types.HexHashLength+1 && (label[0] == 'h' || label[0] == 'H') {
		label = label[1:]
	}
	hash, err := types.HexHashToB64(label)
	if err != nil {
		return "", false
	}
	return hash, true
}

func withSubdomain(addr, subdom string) (string, bool) {
	if addr == "" {
		return "", false
	}
	if subdom == "" {
		return addr, true
	}
	return addr + "/" + subdom, true
}
