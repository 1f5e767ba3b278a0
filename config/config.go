package config

import (
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"time"
)

const (
	// LogFormatPlain is a format for colored text
	LogFormatPlain = "plain"
	// LogFormatJSON is a format for json output
	LogFormatJSON = "json"

	// DefaultLogLevel defines a default log level as INFO.
	DefaultLogLevel = "info"

	// Publication methods understood by publish.NewUploader.
	PublishMethodNone = "none"
	PublishMethodHTTP = "http"
	PublishMethodFile = "file"
	PublishMethodS3   = "s3"
)

// NOTE: Most of the structs & relevant comments + the
// default configuration options were used to manually
// generate the config.toml. Please reflect any changes
// made here in the defaultConfigTemplate constant in
// config/toml.go
var (
	DefaultSeedDBHome = ".seeddb"
	DefaultConfigDir  = "config"
	DefaultDataDir    = "data"

	DefaultConfigFileName = "config.toml"
	DefaultMySeedName     = "mySeed.txt"

	defaultConfigFilePath = filepath.Join(DefaultConfigDir, DefaultConfigFileName)
	defaultMySeedPath     = filepath.Join(DefaultDataDir, DefaultMySeedName)
)

// Config defines the top level configuration for a seed directory node.
type Config struct {
	// Top level options use an anonymous struct
	BaseConfig `mapstructure:",squash"`

	// Options for services
	SeedDB          *SeedDBConfig          `mapstructure:"seeddb"`
	Network         *NetworkConfig         `mapstructure:"network"`
	Publish         *PublishConfig         `mapstructure:"publish"`
	Instrumentation *InstrumentationConfig `mapstructure:"instrumentation"`
}

// DefaultConfig returns a default configuration for a seed directory node.
func DefaultConfig() *Config {
	return &Config{
		BaseConfig:      DefaultBaseConfig(),
		SeedDB:          DefaultSeedDBConfig(),
		Network:         DefaultNetworkConfig(),
		Publish:         DefaultPublishConfig(),
		Instrumentation: DefaultInstrumentationConfig(),
	}
}

// TestConfig returns a configuration that can be used for testing. Tables
// live in memory.
func TestConfig() *Config {
	return &Config{
		BaseConfig:      TestBaseConfig(),
		SeedDB:          TestSeedDBConfig(),
		Network:         TestNetworkConfig(),
		Publish:         TestPublishConfig(),
		Instrumentation: TestInstrumentationConfig(),
	}
}

// SetRoot sets the RootDir for all Config structs
func (cfg *Config) SetRoot(root string) *Config {
	cfg.BaseConfig.RootDir = root
	return cfg
}

// ValidateBasic performs basic validation (checking param bounds, etc.) and
// returns an error if any check fails.
func (cfg *Config) ValidateBasic() error {
	if err := cfg.BaseConfig.ValidateBasic(); err != nil {
		return err
	}
	if err := cfg.SeedDB.ValidateBasic(); err != nil {
		return fmt.Errorf("error in [seeddb] section: %w", err)
	}
	if err := cfg.Network.ValidateBasic(); err != nil {
		return fmt.Errorf("error in [network] section: %w", err)
	}
	if err := cfg.Publish.ValidateBasic(); err != nil {
		return fmt.Errorf("error in [publish] section: %w", err)
	}
	if err := cfg.Instrumentation.ValidateBasic(); err != nil {
		return fmt.Errorf("error in [instrumentation] section: %w", err)
	}
	return nil
}

//-----------------------------------------------------------------------------
// BaseConfig

// BaseConfig defines the base configuration for a seed directory node
type BaseConfig struct { //nolint: maligned
	// The root directory for all data.
	// This should be set in viper so it can unmarshal into this struct
	RootDir string `mapstructure:"home"`

	// A custom human readable name for this peer. Used when the own seed is
	// generated for the first time.
	PeerName string `mapstructure:"peer_name"`

	// Database backend: goleveldb | memdb
	// * goleveldb (github.com/syndtr/goleveldb - most popular implementation)
	//   - pure go
	//   - stable
	// * memdb (uses a B-tree in memory)
	//   - tables do not survive a restart
	DBBackend string `mapstructure:"db_backend"`

	// Database directory
	DBPath string `mapstructure:"db_dir"`

	// Output level for logging
	LogLevel string `mapstructure:"log_level"`

	// Output format: 'plain' (colored text) or 'json'
	LogFormat string `mapstructure:"log_format"`

	// Path to the file holding this peer's own seed
	MySeed string `mapstructure:"my_seed_file"`
}

// DefaultBaseConfig returns a default base configuration for a node
func DefaultBaseConfig() BaseConfig {
	return BaseConfig{
		PeerName:  "anonymous",
		LogLevel:  DefaultLogLevel,
		LogFormat: LogFormatPlain,
		DBBackend: "goleveldb",
		DBPath:    DefaultDataDir,
		MySeed:    defaultMySeedPath,
	}
}

// TestBaseConfig returns a base configuration for testing a node
func TestBaseConfig() BaseConfig {
	cfg := DefaultBaseConfig()
	cfg.PeerName = "testpeer"
	cfg.DBBackend = "memdb"
	return cfg
}

// MySeedFile returns the full path to the own seed file
func (cfg BaseConfig) MySeedFile() string {
	return rootify(cfg.MySeed, cfg.RootDir)
}

// DBDir returns the full path to the database directory
func (cfg BaseConfig) DBDir() string {
	return rootify(cfg.DBPath, cfg.RootDir)
}

// ValidateBasic performs basic validation (checking param bounds, etc.) and
// returns an error if any check fails.
func (cfg BaseConfig) ValidateBasic() error {
	switch cfg.LogFormat {
	case LogFormatPlain, LogFormatJSON:
	default:
		return errors.New("unknown log_format (must be 'plain' or 'json')")
	}
	switch cfg.DBBackend {
	case "goleveldb", "memdb":
	default:
		return fmt.Errorf("unsupported db_backend %q (must be 'goleveldb' or 'memdb')", cfg.DBBackend)
	}
	if cfg.PeerName == "" {
		return errors.New("peer_name can't be empty")
	}
	return nil
}

//-----------------------------------------------------------------------------
// SeedDBConfig

// SeedDBConfig defines the configuration of the three peer tables and the
// lookup caches layered on top of them.
type SeedDBConfig struct {
	// Buffer size hint for the table storage, in KiB. It is split evenly
	// between the three tables.
	BufferKB int `mapstructure:"buffer_kb"`

	// Table names; they become the file names below db_dir.
	ConnectedTable    string `mapstructure:"connected_table"`
	DisconnectedTable string `mapstructure:"disconnected_table"`
	PotentialTable    string `mapstructure:"potential_table"`

	// Maximum number of entries held by the name and address lookup caches.
	NameCacheSize int `mapstructure:"name_cache_size"`
	IPCacheSize   int `mapstructure:"ip_cache_size"`

	// Maximum number of Connected peers sampled when ranking by age.
	AgeSampleSize int `mapstructure:"age_sample_size"`
}

// MaxAgeSampleSize bounds SeedDBConfig.AgeSampleSize.
const MaxAgeSampleSize = 1000

// DefaultSeedDBConfig returns a default configuration for the seed tables.
func DefaultSeedDBConfig() *SeedDBConfig {
	return &SeedDBConfig{
		BufferKB:          1024,
		ConnectedTable:    "seed.active",
		DisconnectedTable: "seed.passive",
		PotentialTable:    "seed.potential",
		NameCacheSize:     4096,
		IPCacheSize:       4096,
		AgeSampleSize:     MaxAgeSampleSize,
	}
}

// TestSeedDBConfig returns a configuration for testing the seed tables.
func TestSeedDBConfig() *SeedDBConfig {
	cfg := DefaultSeedDBConfig()
	cfg.BufferKB = 64
	cfg.NameCacheSize = 64
	cfg.IPCacheSize = 64
	return cfg
}

// ValidateBasic performs basic validation (checking param bounds, etc.) and
// returns an error if any check fails.
func (cfg *SeedDBConfig) ValidateBasic() error {
	if cfg.BufferKB < 0 {
		return errors.New("buffer_kb can't be negative")
	}
	if cfg.ConnectedTable == "" || cfg.DisconnectedTable == "" || cfg.PotentialTable == "" {
		return errors.New("table names can't be empty")
	}
	if cfg.ConnectedTable == cfg.DisconnectedTable ||
		cfg.ConnectedTable == cfg.PotentialTable ||
		cfg.DisconnectedTable == cfg.PotentialTable {
		return errors.New("table names must be distinct")
	}
	if cfg.NameCacheSize <= 0 {
		return errors.New("name_cache_size must be positive")
	}
	if cfg.IPCacheSize <= 0 {
		return errors.New("ip_cache_size must be positive")
	}
	if cfg.AgeSampleSize <= 0 {
		return errors.New("age_sample_size must be positive")
	}
	if cfg.AgeSampleSize > MaxAgeSampleSize {
		return fmt.Errorf("age_sample_size must not exceed %d", MaxAgeSampleSize)
	}
	return nil
}

//-----------------------------------------------------------------------------
// NetworkConfig

// NetworkConfig describes how this peer is reachable. It determines the
// address written into the own seed.
type NetworkConfig struct {
	// Port this peer serves on
	Port int `mapstructure:"port"`

	// Public IP used for the own seed when it is not (yet) reachable from
	// the outside. Detected from the local interfaces when empty.
	PublicIP string `mapstructure:"public_ip"`

	// Port forwarding replaces the own address with the forwarder's.
	PortForwardingEnabled bool   `mapstructure:"port_forwarding_enabled"`
	PortForwardingHost    string `mapstructure:"port_forwarding_host"`
	PortForwardingPort    int    `mapstructure:"port_forwarding_port"`

	// Address the seed list and metrics handlers listen on
	ListenAddress string `mapstructure:"listen_addr"`
}

// DefaultNetworkConfig returns a default network configuration.
func DefaultNetworkConfig() *NetworkConfig {
	return &NetworkConfig{
		Port:               8090,
		PortForwardingHost: "localhost",
		PortForwardingPort: 8090,
		ListenAddress:      "tcp://0.0.0.0:8090",
	}
}

// TestNetworkConfig returns a network configuration for testing.
func TestNetworkConfig() *NetworkConfig {
	cfg := DefaultNetworkConfig()
	cfg.PublicIP = "127.0.0.1"
	cfg.ListenAddress = "tcp://127.0.0.1:0"
	return cfg
}

// ValidateBasic performs basic validation (checking param bounds, etc.) and
// returns an error if any check fails.
func (cfg *NetworkConfig) ValidateBasic() error {
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return fmt.Errorf("port %d out of range", cfg.Port)
	}
	if cfg.PortForwardingEnabled {
		if cfg.PortForwardingHost == "" {
			return errors.New("port_forwarding_host can't be empty when port forwarding is enabled")
		}
		if cfg.PortForwardingPort <= 0 || cfg.PortForwardingPort > 65535 {
			return fmt.Errorf("port_forwarding_port %d out of range", cfg.PortForwardingPort)
		}
	}
	return nil
}

//-----------------------------------------------------------------------------
// PublishConfig

// PublishConfig defines how the Connected table is exported as a seed list,
// where it is uploaded to and where it can be fetched back for verification.
type PublishConfig struct {
	// Transport used to upload the seed list: none | http | file | s3
	Method string `mapstructure:"method"`

	// URL the uploaded seed list can be downloaded from
	SeedURL string `mapstructure:"seed_url"`

	// How often the publisher service uploads the list. 0 disables the service.
	Interval time.Duration `mapstructure:"interval"`

	// Timeout for the verification download
	VerifyTimeout time.Duration `mapstructure:"verify_timeout"`

	// Directory for the temporary export file. Empty means the OS default.
	TempDir string `mapstructure:"temp_dir"`

	// http: target of the PUT request
	UploadURL string `mapstructure:"upload_url"`

	// file: destination path of the copied list
	FilePath string `mapstructure:"file_path"`

	// s3: destination bucket and object key
	S3Bucket    string `mapstructure:"s3_bucket"`
	S3Key       string `mapstructure:"s3_key"`
	S3Region    string `mapstructure:"s3_region"`
	S3Endpoint  string `mapstructure:"s3_endpoint"`
	S3AccessKey string `mapstructure:"s3_access_key"`
	S3SecretKey string `mapstructure:"s3_secret_key"`
}

// DefaultPublishConfig returns a default publication configuration.
func DefaultPublishConfig() *PublishConfig {
	return &PublishConfig{
		Method:        PublishMethodNone,
		Interval:      0,
		VerifyTimeout: 10 * time.Second,
		S3Key:         "seed.txt",
	}
}

// TestPublishConfig returns a publication configuration for testing.
func TestPublishConfig() *PublishConfig {
	cfg := DefaultPublishConfig()
	cfg.VerifyTimeout = 2 * time.Second
	return cfg
}

// ValidateBasic performs basic validation (checking param bounds, etc.) and
// returns an error if any check fails.
func (cfg *PublishConfig) ValidateBasic() error {
	if cfg.Interval < 0 {
		return errors.New("interval can't be negative")
	}
	if cfg.VerifyTimeout <= 0 {
		return errors.New("verify_timeout must be positive")
	}
	switch cfg.Method {
	case PublishMethodNone:
		return nil
	case PublishMethodHTTP:
		if _, err := url.ParseRequestURI(cfg.UploadURL); err != nil {
			return fmt.Errorf("invalid upload_url: %w", err)
		}
	case PublishMethodFile:
		if cfg.FilePath == "" {
			return errors.New("file_path can't be empty")
		}
	case PublishMethodS3:
		if cfg.S3Bucket == "" || cfg.S3Key == "" {
			return errors.New("s3_bucket and s3_key can't be empty")
		}
	default:
		return fmt.Errorf("unknown method %q (must be none, http, file or s3)", cfg.Method)
	}
	if _, err := url.ParseRequestURI(cfg.SeedURL); err != nil {
		return fmt.Errorf("invalid seed_url: %w", err)
	}
	return nil
}

//-----------------------------------------------------------------------------
// InstrumentationConfig

// InstrumentationConfig defines the configuration for metrics reporting.
type InstrumentationConfig struct {
	// When true, Prometheus metrics are served under /metrics on
	// PrometheusListenAddr.
	Prometheus bool `mapstructure:"prometheus"`

	// Address to listen for Prometheus collector(s) connections.
	PrometheusListenAddr string `mapstructure:"prometheus_listen_addr"`

	// Instrumentation namespace.
	Namespace string `mapstructure:"namespace"`
}

// DefaultInstrumentationConfig returns a default configuration for metrics
// reporting.
func DefaultInstrumentationConfig() *InstrumentationConfig {
	return &InstrumentationConfig{
		Prometheus:           false,
		PrometheusListenAddr: ":26660",
		Namespace:            "seeddb",
	}
}

// TestInstrumentationConfig returns a default configuration for metrics
// reporting.
func TestInstrumentationConfig() *InstrumentationConfig {
	return DefaultInstrumentationConfig()
}

// ValidateBasic performs basic validation (checking param bounds, etc.) and
// returns an error if any check fails.
func (cfg *InstrumentationConfig) ValidateBasic() error {
	if cfg.Prometheus && cfg.PrometheusListenAddr == "" {
		return errors.New("prometheus_listen_addr can't be empty when prometheus is enabled")
	}
	return nil
}

//-----------------------------------------------------------------------------
// Utils

// helper function to make config creation independent of root dir
func rootify(path, root string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(root, path)
}
