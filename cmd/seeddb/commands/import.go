package commands

import (
	"github.com/spf13/cobra"

	"github.com/gospiritual/yacy-search-server/publish"
)

// ImportCmd adds the seeds of a seed list to the Potential table.
var ImportCmd = &cobra.Command{
	Use:   "import <file|url>...",
	Short: "Import seed lists into the Potential table",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runImport,
}

func runImport(cmd *cobra.Command, args []string) error {
	sdb, err := openDirectory()
	if err != nil {
		return err
	}
	defer sdb.Close()

	for _, source := range args {
		stats, err := publish.ImportSeedListFrom(cmd.Context(), source, sdb, config.Publish.VerifyTimeout)
		if err != nil {
			return err
		}
		logger.Info("Imported seed list", "source", source,
			"imported", stats.Imported, "skipped", stats.Skipped)
	}
	logger.Info("Potential peers", "total", sdb.SizePotential())
	return nil
}
