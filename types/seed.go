package types

import (
	"bufio"
	"encoding/base64"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/golang/snappy"
	"golang.org/x/net/idna"

	cmtos "github.com/gospiritual/yacy-search-server/libs/os"
	cmtsync "github.com/gospiritual/yacy-search-server/libs/sync"
	"github.com/gospiritual/yacy-search-server/version"
)

// Attribute keys of a seed.
const (
	AttrHash     = "Hash" // only present in the seed string form
	AttrName     = "Name"
	AttrIP       = "IP"
	AttrPort     = "Port"
	AttrVersion  = "Version"
	AttrUptime   = "Uptime"
	AttrLCount   = "LCount"
	AttrICount   = "ICount"
	AttrISpeed   = "ISpeed"
	AttrLastSeen = "LastSeen"
	AttrPeerType = "PeerType"
	AttrUTC      = "UTC"
)

// Peer types, in ascending order of trust.
const (
	PeerTypeVirgin    = "virgin"
	PeerTypeJunior    = "junior"
	PeerTypeSenior    = "senior"
	PeerTypePrincipal = "principal"
)

const (
	// LastSeenLayout is the time layout of the LastSeen attribute, always UTC.
	LastSeenLayout = "20060102150405"

	// LocalPeerAlias is the name that always resolves to the own seed.
	LocalPeerAlias = "localpeer"

	// MaxNameLength is the longest peer name accepted by ValidateBasic.
	MaxNameLength = 80

	seedStringCompressed = "z|"
	seedStringPlain      = "p|"
)

// Seed describes one peer of the network: a fixed hash and a mutable set of
// attributes. All methods are safe for concurrent use.
type Seed struct {
	Hash string

	mtx   cmtsync.RWMutex
	attrs *Attributes
}

// NewSeed returns a seed holding a copy of attrs.
func NewSeed(hash string, attrs *Attributes) *Seed {
	return &Seed{Hash: hash, attrs: attrs.Copy()}
}

// GenLocalSeed creates a fresh own seed with a random hash.
func GenLocalSeed(name string, port int, now time.Time) *Seed {
	attrs := NewAttributes(
		AttrName, name,
		AttrIP, "",
		AttrPort, strconv.Itoa(port),
		AttrVersion, version.SeedVersion,
		AttrUptime, "0",
		AttrLCount, "0",
		AttrICount, "0",
		AttrISpeed, "0",
		AttrLastSeen, now.UTC().Format(LastSeenLayout),
		AttrPeerType, PeerTypeVirgin,
		AttrUTC, "+0000",
	)
	return &Seed{Hash: RandomHash(), attrs: attrs}
}

// Get returns the attribute stored under key or def if there is none.
func (s *Seed) Get(key, def string) string {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	return s.attrs.GetDefault(key, def)
}

// Put stores an attribute.
func (s *Seed) Put(key, value string) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	if s.attrs == nil {
		s.attrs = &Attributes{}
	}
	s.attrs.Set(key, value)
}

// Attributes returns a snapshot of the attributes.
func (s *Seed) Attributes() *Attributes {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	return s.attrs.Copy()
}

// Name returns the peer name.
func (s *Seed) Name() string { return s.Get(AttrName, "") }

// IP returns the announced IP or host.
func (s *Seed) IP() string { return s.Get(AttrIP, "") }

// Port returns the announced port, 0 if it is missing or malformed.
func (s *Seed) Port() int {
	p, err := strconv.Atoi(s.Get(AttrPort, ""))
	if err != nil {
		return 0
	}
	return p
}

// Address returns "ip:port", or "" when the seed has no IP.
func (s *Seed) Address() string {
	ip := s.IP()
	if ip == "" {
		return ""
	}
	return net.JoinHostPort(ip, s.Get(AttrPort, ""))
}

// Version returns the declared software version, 0 if unknown.
func (s *Seed) Version() float64 {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	return s.attrs.Float64(AttrVersion)
}

// PeerType returns the peer type, virgin if none is set.
func (s *Seed) PeerType() string { return s.Get(AttrPeerType, PeerTypeVirgin) }

// IsOnline reports whether the peer is reachable from the outside.
func (s *Seed) IsOnline() bool {
	switch s.PeerType() {
	case PeerTypeSenior, PeerTypePrincipal:
		return true
	}
	return false
}

// LastSeen parses the LastSeen attribute.
func (s *Seed) LastSeen() (time.Time, error) {
	v := s.Get(AttrLastSeen, "")
	if len(v) != len(LastSeenLayout) {
		return time.Time{}, fmt.Errorf("malformed %s %q", AttrLastSeen, v)
	}
	return time.ParseInLocation(LastSeenLayout, v, time.UTC)
}

// SetLastSeen stores t as LastSeen.
func (s *Seed) SetLastSeen(t time.Time) {
	s.Put(AttrLastSeen, t.UTC().Format(LastSeenLayout))
}

// ValidateBasic performs the structural checks a seed must pass before it is
// trusted: a well formed hash, a usable name and a complete address.
func (s *Seed) ValidateBasic() error {
	if err := ValidateHash(s.Hash); err != nil {
		return err
	}
	name := s.Name()
	if name == "" {
		return errors.New("seed has no name")
	}
	if len(name) > MaxNameLength {
		return fmt.Errorf("name too long (%d > %d)", len(name), MaxNameLength)
	}
	for _, r := range name {
		if r <= ' ' || r == 0x7f {
			return fmt.Errorf("name contains illegal character %q", r)
		}
	}
	ip := s.IP()
	if ip == "" {
		return errors.New("seed has no IP")
	}
	if net.ParseIP(ip) == nil && !isHostname(ip) {
		return fmt.Errorf("malformed IP %q", ip)
	}
	port, err := strconv.Atoi(s.Get(AttrPort, ""))
	if err != nil {
		return fmt.Errorf("malformed port: %w", err)
	}
	if port <= 0 || port > 65535 {
		return fmt.Errorf("port %d out of range", port)
	}
	return nil
}

// isHostname reports whether host is a DNS name, internationalized names
// included.
func isHostname(host string) bool {
	ascii, err := idna.Lookup.ToASCII(host)
	if err != nil || len(ascii) == 0 || len(ascii) > 253 {
		return false
	}
	for _, label := range strings.Split(ascii, ".") {
		if label == "" || len(label) > 63 {
			return false
		}
	}
	return true
}

// SeedString returns the single line form of the seed used in seed lists.
// The hash is carried as the first attribute.
func (s *Seed) SeedString() (string, error) {
	attrs := NewAttributes(AttrHash, s.Hash)
	snapshot := s.Attributes()
	for _, k := range snapshot.Keys() {
		if k == AttrHash {
			continue
		}
		v, _ := snapshot.Get(k)
		attrs.Set(k, v)
	}
	bz, err := attrs.MarshalLogfmt()
	if err != nil {
		return "", err
	}
	return seedStringCompressed + base64.RawURLEncoding.EncodeToString(snappy.Encode(nil, bz)), nil
}

// SeedFromString parses a line produced by SeedString. The plain "p|" form
// carrying raw logfmt is accepted too.
func SeedFromString(line string) (*Seed, error) {
	line = strings.TrimSpace(line)
	var bz []byte
	switch {
	case strings.HasPrefix(line, seedStringCompressed):
		compressed, err := base64.RawURLEncoding.DecodeString(line[len(seedStringCompressed):])
		if err != nil {
			return nil, fmt.Errorf("decoding seed string: %w", err)
		}
		if bz, err = snappy.Decode(nil, compressed); err != nil {
			return nil, fmt.Errorf("decompressing seed string: %w", err)
		}
	case strings.HasPrefix(line, seedStringPlain):
		bz = []byte(line[len(seedStringPlain):])
	default:
		return nil, fmt.Errorf("unknown seed string format %q", truncate(line, 8))
	}

	attrs := &Attributes{}
	if err := attrs.UnmarshalLogfmt(bz); err != nil {
		return nil, err
	}
	hash, ok := attrs.Get(AttrHash)
	if !ok {
		return nil, errors.New("seed string carries no hash")
	}
	attrs.Delete(AttrHash)
	return &Seed{Hash: hash, attrs: attrs}, nil
}

// String implements fmt.Stringer.
func (s *Seed) String() string {
	return fmt.Sprintf("Seed{%s %s %s}", s.Hash, s.Name(), s.Address())
}

// LoadSeedFile reads a seed from the first line of the file at path.
func LoadSeedFile(path string) (*Seed, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 4096), 1<<20)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("seed file %s is empty", path)
	}
	return SeedFromString(scanner.Text())
}

// SaveSeedFile writes the seed string of s to path.
func (s *Seed) SaveSeedFile(path string) error {
	line, err := s.SeedString()
	if err != nil {
		return err
	}
	return cmtos.WriteFile(path, []byte(line+"\r\n"), 0o600)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
