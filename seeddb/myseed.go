package seeddb

import (
	"errors"
	"io/fs"
	"net"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gospiritual/yacy-search-server/config"
	"github.com/gospiritual/yacy-search-server/libs/log"
	cmtos "github.com/gospiritual/yacy-search-server/libs/os"
	"github.com/gospiritual/yacy-search-server/types"
)

// LoadOrGenMySeed reads the own seed from cfg.MySeedFile(), generating and
// saving a new one if the file is missing or unreadable. The address is
// then taken from the network configuration and the peer type reset to
// virgin until the peer proves reachable again.
func LoadOrGenMySeed(cfg *config.Config, logger log.Logger) (*types.Seed, error) {
	path := cfg.MySeedFile()
	seed, err := types.LoadSeedFile(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			logger.Error("Own seed file unreadable, generating a new seed", "file", path, "err", err)
		}
		seed = types.GenLocalSeed(cfg.PeerName, cfg.Network.Port, time.Now())
		if err := cmtos.EnsureDir(filepath.Dir(path), config.DefaultDirPerm); err != nil {
			return nil, err
		}
		if err := seed.SaveSeedFile(path); err != nil {
			return nil, err
		}
		logger.Info("Generated own seed", "hash", seed.Hash, "file", path)
	}

	if cfg.Network.PortForwardingEnabled {
		seed.Put(types.AttrIP, cfg.Network.PortForwardingHost)
		seed.Put(types.AttrPort, strconv.Itoa(cfg.Network.PortForwardingPort))
	} else {
		// forget the old address, it is learned again from other peers
		seed.Put(types.AttrIP, "")
		seed.Put(types.AttrPort, strconv.Itoa(cfg.Network.Port))
	}
	seed.Put(types.AttrPeerType, types.PeerTypeVirgin)
	return seed, nil
}

// detectPublicIP returns configured if set, otherwise the first non
// loopback IPv4 address of a local interface, or 127.0.0.1.
func detectPublicIP(configured string) string {
	if configured != "" {
		return configured
	}
	addrs, err := net.InterfaceAddrs()
	if err == nil {
		for _, a := range addrs {
			ipnet, ok := a.(*net.IPNet)
			if !ok || ipnet.IP.IsLoopback() {
				continue
			}
			if ip4 := ipnet.IP.To4(); ip4 != nil {
				return ip4.String()
			}
		}
	}
	return "127.0.0.1"
}
