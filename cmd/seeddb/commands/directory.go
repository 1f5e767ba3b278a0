package commands

import (
	"github.com/gospiritual/yacy-search-server/seeddb"
)

// openDirectory loads the own seed and opens the seed tables of the
// configured home.
func openDirectory(options ...seeddb.Option) (*seeddb.SeedDB, error) {
	mySeed, err := seeddb.LoadOrGenMySeed(config, logger)
	if err != nil {
		return nil, err
	}
	options = append([]seeddb.Option{
		seeddb.WithLogger(logger.With("module", "seeddb")),
	}, options...)
	return seeddb.NewSeedDB(config, mySeed, options...)
}
