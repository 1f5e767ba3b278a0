package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gospiritual/yacy-search-server/config"
)

func TestDefaultConfig(t *testing.T) {
	assert := assert.New(t)

	// set up some defaults
	cfg := config.DefaultConfig()
	assert.NotNil(cfg.SeedDB)
	assert.NotNil(cfg.Network)
	assert.NotNil(cfg.Publish)

	// check the root dir stuff...
	cfg.SetRoot("/foo")
	cfg.DBPath = "/opt/data"
	cfg.MySeed = "mySeed.txt"

	assert.Equal("/opt/data", cfg.DBDir())
	assert.Equal("/foo/mySeed.txt", cfg.MySeedFile())
}

func TestConfigValidateBasic(t *testing.T) {
	cfg := config.DefaultConfig()
	assert.NoError(t, cfg.ValidateBasic())

	// tamper with timeout
	cfg.Publish.VerifyTimeout = -10 * time.Second
	assert.Error(t, cfg.ValidateBasic())
}

func TestBaseConfigValidateBasic(t *testing.T) {
	cfg := config.TestBaseConfig()
	assert.NoError(t, cfg.ValidateBasic())

	// tamper with log format
	cfg.LogFormat = "invalid"
	assert.Error(t, cfg.ValidateBasic())

	cfg = config.TestBaseConfig()
	cfg.DBBackend = "rocksdb"
	assert.Error(t, cfg.ValidateBasic())
}

func TestSeedDBConfigValidateBasic(t *testing.T) {
	testCases := []struct {
		name     string
		mutate   func(*config.SeedDBConfig)
		expectOK bool
	}{
		{"default", func(*config.SeedDBConfig) {}, true},
		{"negative buffer", func(c *config.SeedDBConfig) { c.BufferKB = -1 }, false},
		{"empty table name", func(c *config.SeedDBConfig) { c.PotentialTable = "" }, false},
		{"duplicate table name", func(c *config.SeedDBConfig) { c.PotentialTable = c.ConnectedTable }, false},
		{"zero cache", func(c *config.SeedDBConfig) { c.NameCacheSize = 0 }, false},
		{"zero sample", func(c *config.SeedDBConfig) { c.AgeSampleSize = 0 }, false},
		{"max sample", func(c *config.SeedDBConfig) { c.AgeSampleSize = config.MaxAgeSampleSize }, true},
		{"sample too large", func(c *config.SeedDBConfig) { c.AgeSampleSize = config.MaxAgeSampleSize + 1 }, false},
	}
	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.DefaultSeedDBConfig()
			tc.mutate(cfg)
			if tc.expectOK {
				require.NoError(t, cfg.ValidateBasic())
			} else {
				require.Error(t, cfg.ValidateBasic())
			}
		})
	}
}

func TestPublishConfigValidateBasic(t *testing.T) {
	testCases := []struct {
		name     string
		cfg      config.PublishConfig
		expectOK bool
	}{
		{"none", config.PublishConfig{Method: "none", VerifyTimeout: time.Second}, true},
		{"http ok", config.PublishConfig{
			Method: "http", UploadURL: "http://example.org/seed.txt",
			SeedURL: "http://example.org/seed.txt", VerifyTimeout: time.Second,
		}, true},
		{"http without seed url", config.PublishConfig{
			Method: "http", UploadURL: "http://example.org/seed.txt", VerifyTimeout: time.Second,
		}, false},
		{"file without path", config.PublishConfig{
			Method: "file", SeedURL: "http://example.org/seed.txt", VerifyTimeout: time.Second,
		}, false},
		{"s3 ok", config.PublishConfig{
			Method: "s3", S3Bucket: "seeds", S3Key: "seed.txt",
			SeedURL: "https://seeds.example.org/seed.txt", VerifyTimeout: time.Second,
		}, true},
		{"unknown method", config.PublishConfig{Method: "ftp", VerifyTimeout: time.Second}, false},
		{"zero timeout", config.PublishConfig{Method: "none"}, false},
	}
	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.ValidateBasic()
			if tc.expectOK {
				require.NoError(t, err)
			} else {
				require.Error(t, err)
			}
		})
	}
}

func TestNetworkConfigValidateBasic(t *testing.T) {
	cfg := config.DefaultNetworkConfig()
	require.NoError(t, cfg.ValidateBasic())

	cfg.Port = 70000
	require.Error(t, cfg.ValidateBasic())

	cfg = config.DefaultNetworkConfig()
	cfg.PortForwardingEnabled = true
	cfg.PortForwardingHost = ""
	require.Error(t, cfg.ValidateBasic())
}
