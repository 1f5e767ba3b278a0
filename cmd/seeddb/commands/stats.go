package commands

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/gospiritual/yacy-search-server/seeddb"
	"github.com/gospiritual/yacy-search-server/types"
)

var (
	statsTop    int
	statsSortBy string
	statsOldest bool
)

// StatsCmd prints table sizes and the most recently seen peers.
var StatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show directory statistics",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

func init() {
	StatsCmd.Flags().IntVar(&statsTop, "top", 10, "number of peers to list")
	StatsCmd.Flags().BoolVar(&statsOldest, "oldest", false, "list the peers seen longest ago instead of the youngest")
	StatsCmd.Flags().StringVar(&statsSortBy, "sort", "",
		fmt.Sprintf("list Connected peers sorted by this field descending, one of %v", seeddb.SortFields))
}

func runStats(cmd *cobra.Command, args []string) error {
	sdb, err := openDirectory()
	if err != nil {
		return err
	}
	defer sdb.Close()

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "TABLE\tPEERS\tURLS\tRWIS\n")
	fmt.Fprintf(w, "connected\t%d\t%d\t%d\n", sdb.SizeConnected(), sdb.CountActiveURL(), sdb.CountActiveRWI())
	fmt.Fprintf(w, "disconnected\t%d\t%d\t%d\n", sdb.SizeDisconnected(), sdb.CountPassiveURL(), sdb.CountPassiveRWI())
	fmt.Fprintf(w, "potential\t%d\t%d\t%d\n", sdb.SizePotential(), sdb.CountPotentialURL(), sdb.CountPotentialRWI())
	fmt.Fprintf(w, "\nactive PPM\t%d\n\n", sdb.CountActivePPM())
	if err := w.Flush(); err != nil {
		return err
	}

	if statsTop <= 0 {
		return nil
	}

	var seeds []*types.Seed
	if statsSortBy != "" {
		it := sdb.SeedsSortedConnected(false, statsSortBy)
		for seed := it.Next(); seed != nil && len(seeds) < statsTop; seed = it.Next() {
			seeds = append(seeds, seed)
		}
		it.Close()
	} else {
		seeds = sdb.SeedsByAge(!statsOldest, statsTop)
	}
	return printSeeds(cmd.OutOrStdout(), seeds)
}

func printSeeds(out io.Writer, seeds []*types.Seed) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "HASH\tNAME\tADDRESS\tTYPE\tVERSION\tLAST SEEN\n")
	for _, seed := range seeds {
		if seed == nil {
			continue
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			seed.Hash,
			seed.Name(),
			seed.Address(),
			seed.PeerType(),
			seed.Get(types.AttrVersion, "-"),
			seed.Get(types.AttrLastSeen, "-"))
	}
	return w.Flush()
}
