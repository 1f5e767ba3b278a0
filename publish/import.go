package publish

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/gospiritual/yacy-search-server/types"
)

// PotentialAdder receives imported seeds.
type PotentialAdder interface {
	AddPotential(seed *types.Seed)
}

// ImportStats reports the outcome of a seed list import.
type ImportStats struct {
	Imported int
	Skipped  int
}

// ImportSeedList parses a seed list and adds every decodable seed to the
// Potential table of dst. Empty lines are ignored and undecodable ones
// counted as skipped.
func ImportSeedList(r io.Reader, dst PotentialAdder) (ImportStats, error) {
	var stats ImportStats
	lines, err := ReadSeedList(r)
	if err != nil {
		return stats, err
	}
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		seed, err := types.SeedFromString(line)
		if err != nil {
			stats.Skipped++
			continue
		}
		dst.AddPotential(seed)
		stats.Imported++
	}
	return stats, nil
}

// ImportSeedListFrom imports from a local file or, if source is an http(s)
// URL, from the downloaded list.
func ImportSeedListFrom(
	ctx context.Context,
	source string,
	dst PotentialAdder,
	timeout time.Duration,
) (ImportStats, error) {
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		lines, err := FetchSeedList(ctx, source, timeout)
		if err != nil {
			return ImportStats{}, fmt.Errorf("%w: download of %s failed: %w", ErrTransport, source, err)
		}
		return ImportSeedList(strings.NewReader(strings.Join(lines, "\n")), dst)
	}

	f, err := os.Open(source)
	if err != nil {
		return ImportStats{}, err
	}
	defer f.Close()
	return ImportSeedList(f, dst)
}
