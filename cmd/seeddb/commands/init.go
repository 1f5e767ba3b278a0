package commands

import (
	"github.com/spf13/cobra"

	cmtos "github.com/gospiritual/yacy-search-server/libs/os"
	"github.com/gospiritual/yacy-search-server/seeddb"
)

// InitFilesCmd initialises a fresh seed directory home.
var InitFilesCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize the config and the own seed",
	RunE:  initFiles,
}

func initFiles(cmd *cobra.Command, args []string) error {
	mySeedFile := config.MySeedFile()
	if cmtos.FileExists(mySeedFile) {
		logger.Info("Found own seed", "path", mySeedFile)
		return nil
	}
	mySeed, err := seeddb.LoadOrGenMySeed(config, logger)
	if err != nil {
		return err
	}
	logger.Info("Generated own seed", "path", mySeedFile, "hash", mySeed.Hash, "name", mySeed.Name())
	return nil
}
