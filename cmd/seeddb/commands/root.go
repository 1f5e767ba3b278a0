package commands

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	cfg "github.com/gospiritual/yacy-search-server/config"
	"github.com/gospiritual/yacy-search-server/libs/log"
)

const (
	// HomeFlag is the flag naming the root directory.
	HomeFlag = "home"
	// EnvPrefix prefixes environment variables overriding config values,
	// e.g. SEEDDB_LOG_LEVEL.
	EnvPrefix = "SEEDDB"
)

var (
	config = cfg.DefaultConfig()
	logger = log.NewTMLogger(log.NewSyncWriter(os.Stdout))
)

func init() {
	registerFlagsRootCmd(RootCmd)
}

func registerFlagsRootCmd(cmd *cobra.Command) {
	cmd.PersistentFlags().String(HomeFlag, defaultHome(), "directory for config and data")
	cmd.PersistentFlags().String("log_level", config.LogLevel, "log level (debug, info, error or none)")
	cmd.PersistentFlags().String("log_format", config.LogFormat, "log format (plain or json)")
}

func defaultHome() string {
	if home := os.Getenv(EnvPrefix + "HOME"); home != "" {
		return home
	}
	userHome, err := os.UserHomeDir()
	if err != nil {
		return cfg.DefaultSeedDBHome
	}
	return filepath.Join(userHome, cfg.DefaultSeedDBHome)
}

// ParseConfig reads config.toml from the home directory, applies flag and
// environment overrides, and ensures the root exists.
func ParseConfig(cmd *cobra.Command) (*cfg.Config, error) {
	home, err := cmd.Flags().GetString(HomeFlag)
	if err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(filepath.Join(home, cfg.DefaultConfigDir))
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return nil, err
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	conf := cfg.DefaultConfig()
	if err := v.Unmarshal(conf); err != nil {
		return nil, err
	}
	conf.SetRoot(home)
	cfg.EnsureRoot(conf.RootDir)
	if err := conf.ValidateBasic(); err != nil {
		return nil, fmt.Errorf("error in config file: %w", err)
	}
	return conf, nil
}

// parseLogger builds the logger for the configured format and level.
func parseLogger(conf *cfg.Config) (log.Logger, error) {
	l := log.NewTMLogger(log.NewSyncWriter(os.Stdout))
	if conf.LogFormat == cfg.LogFormatJSON {
		l = log.NewTMJSONLogger(log.NewSyncWriter(os.Stdout))
	}
	option, err := log.AllowLevel(conf.LogLevel)
	if err != nil {
		return nil, err
	}
	return log.NewFilter(l, option), nil
}

// RootCmd is the root command for the seed directory.
var RootCmd = &cobra.Command{
	Use:           "seeddb",
	Short:         "Peer directory of a YaCy style search network",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) (err error) {
		if cmd.Name() == VersionCmd.Name() {
			return nil
		}

		config, err = ParseConfig(cmd)
		if err != nil {
			return err
		}

		logger, err = parseLogger(config)
		if err != nil {
			return err
		}
		logger = logger.With("module", "main")
		return nil
	},
}
