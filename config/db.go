package config

import (
	"fmt"
	"os"
	"path/filepath"

	dbm "github.com/cometbft/cometbft-db"
	"github.com/syndtr/goleveldb/leveldb/opt"
)

// DBContext specifies necessary configuration information required for
// loading and initializing a new database instance.
type DBContext struct {
	ID     string  // Unique identifier for the database instance (e.g., "seed.active").
	Config *Config // Reference to the main application configuration.
	Path   string  // Optional custom path for the database files.
}

// dir returns the directory the database files live in.
func (ctx *DBContext) dir() string {
	if ctx.Path != "" {
		return ctx.Path
	}
	return ctx.Config.DBDir()
}

// DBProvider is a function type that takes database context and returns an
// instantiated database object. This allows for flexible DB backend selection.
type DBProvider func(*DBContext) (dbm.DB, error)

// DBRemover deletes whatever backing store a DBProvider created for the
// given context. It must tolerate a store that does not exist.
type DBRemover func(*DBContext) error

// DefaultDBProvider creates a database instance based on the DBBackend and DBDir
// settings specified in the main application Config. For goleveldb the
// buffer_kb hint of the seeddb section is split over the three tables and
// handed to the engine as write buffer and block cache size.
func DefaultDBProvider(ctx *DBContext) (dbm.DB, error) {
	// Determine the database backend type from the configuration string
	dbType := dbm.BackendType(ctx.Config.DBBackend)

	path := ctx.dir()

	if dbType == dbm.GoLevelDBBackend {
		return dbm.NewGoLevelDBWithOpts(ctx.ID, path, levelDBOptions(ctx.Config))
	}

	// Instantiate the database using the determined type and path
	return dbm.NewDB(ctx.ID, dbType, path)
}

// DefaultDBRemover removes the on-disk directory of a goleveldb table. Memory
// backed tables have nothing to remove.
func DefaultDBRemover(ctx *DBContext) error {
	if dbm.BackendType(ctx.Config.DBBackend) == dbm.MemDBBackend {
		return nil
	}
	p := filepath.Join(ctx.dir(), ctx.ID+".db")
	if err := os.RemoveAll(p); err != nil {
		return fmt.Errorf("failed to remove %s: %w", p, err)
	}
	return nil
}

func levelDBOptions(cfg *Config) *opt.Options {
	o := &opt.Options{}
	if cfg.SeedDB == nil || cfg.SeedDB.BufferKB <= 0 {
		return o
	}
	perTable := cfg.SeedDB.BufferKB * opt.KiB / 3
	o.WriteBuffer = perTable
	o.BlockCacheCapacity = perTable
	return o
}
