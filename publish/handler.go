package publish

import (
	"bytes"
	"net/http"
	"strconv"

	"github.com/gospiritual/yacy-search-server/libs/log"
)

// SeedListPath is where Handler serves the seed list by default.
const SeedListPath = "/seed.txt"

// seedListHandler serves the current seed list of a directory.
type seedListHandler struct {
	dir         Directory
	includeSelf bool
	logger      log.Logger
}

// SeedListHandler returns an http.Handler answering GET and HEAD requests
// with the seed list of dir. Responses must not be cached.
func SeedListHandler(dir Directory, includeSelf bool, logger log.Logger) http.Handler {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &seedListHandler{dir: dir, includeSelf: includeSelf, logger: logger}
}

func (h *seedListHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var buf bytes.Buffer
	lines, err := WriteSeedList(&buf, h.dir, h.includeSelf)
	if err != nil {
		h.logger.Error("Failed to export seed list", "err", err)
		http.Error(w, "seed list unavailable", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodHead {
		return
	}
	if _, err := w.Write(buf.Bytes()); err != nil {
		h.logger.Debug("Failed to write seed list", "err", err, "seeds", len(lines))
	}
}
