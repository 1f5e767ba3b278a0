package commands

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/gospiritual/yacy-search-server/publish"
)

var exportIncludeSelf bool

// ExportCmd writes the Connected table as a seed list.
var ExportCmd = &cobra.Command{
	Use:   "export [file]",
	Short: "Write the seed list to a file or stdout",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runExport,
}

func init() {
	ExportCmd.Flags().BoolVar(&exportIncludeSelf, "self", true, "put the own seed first")
}

func runExport(cmd *cobra.Command, args []string) error {
	sdb, err := openDirectory()
	if err != nil {
		return err
	}
	defer sdb.Close()

	if len(args) == 0 {
		_, err := publish.WriteSeedList(os.Stdout, sdb, exportIncludeSelf)
		return err
	}
	lines, err := publish.StoreCache(sdb, args[0], exportIncludeSelf)
	if err != nil {
		return err
	}
	logger.Info("Exported seed list", "file", args[0], "seeds", len(lines))
	return nil
}
