package publish

import (
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gospiritual/yacy-search-server/config"
	"github.com/gospiritual/yacy-search-server/libs/log"
	"github.com/gospiritual/yacy-search-server/seeddb"
	"github.com/gospiritual/yacy-search-server/types"
)

func newTestSeed(name, ip string, port int) *types.Seed {
	return types.NewSeed(types.RandomHash(), types.NewAttributes(
		types.AttrName, name,
		types.AttrIP, ip,
		types.AttrPort, strconv.Itoa(port),
		types.AttrVersion, "0.5",
		types.AttrPeerType, types.PeerTypeSenior,
	))
}

// newTestDirectory returns a memory backed directory holding n Connected
// peers.
func newTestDirectory(t *testing.T, n int) *seeddb.SeedDB {
	t.Helper()
	me := newTestSeed("me", "192.0.2.1", 8090)
	sdb, err := seeddb.NewSeedDB(config.TestConfig(), me,
		seeddb.WithLogger(log.TestingLogger()),
		seeddb.WithHostIPFunc(func(net.IP) bool { return false }),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sdb.Close() })

	for i := 0; i < n; i++ {
		sdb.AddConnected(newTestSeed("peer"+strconv.Itoa(i), "10.0.0."+strconv.Itoa(i+1), 8080))
	}
	require.Equal(t, n, sdb.SizeConnected())
	return sdb
}

// seedStore is an HTTP server storing what is PUT and serving it on GET.
type seedStore struct {
	mtx       sync.Mutex
	body      []byte
	puts      int
	putHeader http.Header
	getHeader http.Header
	tamper    func([]byte) []byte
	failPut   bool
	failGet   bool
}

func (s *seedStore) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	switch r.Method {
	case http.MethodPut:
		if s.failPut {
			http.Error(w, "read only", http.StatusForbidden)
			return
		}
		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		s.body = body
		s.puts++
		s.putHeader = r.Header.Clone()
		w.WriteHeader(http.StatusCreated)
	case http.MethodGet:
		s.getHeader = r.Header.Clone()
		if s.failGet {
			http.Error(w, "gone", http.StatusInternalServerError)
			return
		}
		body := s.body
		if s.tamper != nil {
			body = s.tamper(body)
		}
		_, _ = w.Write(body)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *seedStore) putCount() int {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return s.puts
}

func newSeedStore(t *testing.T) (*seedStore, *httptest.Server) {
	t.Helper()
	store := &seedStore{}
	srv := httptest.NewServer(store)
	t.Cleanup(srv.Close)
	return store, srv
}

// staticList serves a fixed body.
func staticList(t *testing.T, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}
