package commands

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cfg "github.com/gospiritual/yacy-search-server/config"
	"github.com/gospiritual/yacy-search-server/libs/log"
	"github.com/gospiritual/yacy-search-server/publish"
	"github.com/gospiritual/yacy-search-server/types"
)

func newFlagCmd(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "test"}
	registerFlagsRootCmd(cmd)
	require.NoError(t, cmd.ParseFlags(args))
	return cmd
}

func TestParseConfig(t *testing.T) {
	home := t.TempDir()
	cmd := newFlagCmd(t, "--home", home, "--log_level", "debug")

	conf, err := ParseConfig(cmd)
	require.NoError(t, err)
	assert.Equal(t, home, conf.RootDir)
	assert.Equal(t, "debug", conf.LogLevel)
	assert.FileExists(t, filepath.Join(home, cfg.DefaultConfigDir, cfg.DefaultConfigFileName))
}

func TestParseConfigReadsFileAndEnv(t *testing.T) {
	home := t.TempDir()
	conf := cfg.DefaultConfig()
	conf.PeerName = "filepeer"
	conf.Network.Port = 9090
	require.NoError(t, os.MkdirAll(filepath.Join(home, cfg.DefaultConfigDir), 0o700))
	cfg.WriteConfigFile(filepath.Join(home, cfg.DefaultConfigDir, cfg.DefaultConfigFileName), conf)

	t.Setenv("SEEDDB_LOG_FORMAT", cfg.LogFormatJSON)
	parsed, err := ParseConfig(newFlagCmd(t, "--home", home))
	require.NoError(t, err)
	assert.Equal(t, "filepeer", parsed.PeerName)
	assert.Equal(t, 9090, parsed.Network.Port)
	assert.Equal(t, cfg.LogFormatJSON, parsed.LogFormat)
}

func TestParseConfigInvalid(t *testing.T) {
	_, err := ParseConfig(newFlagCmd(t, "--home", t.TempDir(), "--log_format", "xml"))
	assert.Error(t, err)
}

func TestParseLogger(t *testing.T) {
	conf := cfg.TestConfig()
	_, err := parseLogger(conf)
	require.NoError(t, err)

	conf.LogLevel = "loud"
	_, err = parseLogger(conf)
	assert.Error(t, err)
}

// useTestHome points the command globals at a fresh memory backed home.
func useTestHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	prevConfig, prevLogger := config, logger
	config = cfg.TestConfig().SetRoot(home)
	logger = log.TestingLogger()
	t.Cleanup(func() { config, logger = prevConfig, prevLogger })
	return home
}

func TestInitAndExport(t *testing.T) {
	home := useTestHome(t)

	require.NoError(t, initFiles(InitFilesCmd, nil))
	mySeed, err := types.LoadSeedFile(config.MySeedFile())
	require.NoError(t, err)
	assert.Equal(t, "testpeer", mySeed.Name())

	// a second init keeps the seed
	require.NoError(t, initFiles(InitFilesCmd, nil))
	again, err := types.LoadSeedFile(config.MySeedFile())
	require.NoError(t, err)
	assert.Equal(t, mySeed.Hash, again.Hash)

	path := filepath.Join(home, "seed.txt")
	require.NoError(t, runExport(ExportCmd, []string{path}))
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	lines, err := publish.ReadSeedList(f)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	exported, err := types.SeedFromString(lines[0])
	require.NoError(t, err)
	assert.Equal(t, mySeed.Hash, exported.Hash)
}

func TestResolve(t *testing.T) {
	useTestHome(t)

	var out bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&out)
	require.NoError(t, runResolve(cmd, []string{"testpeer.yacy", "sub.testpeer.yacy"}))
	assert.Equal(t, "testpeer.yacy\t127.0.0.1:8090\nsub.testpeer.yacy\t127.0.0.1:8090/sub\n", out.String())

	out.Reset()
	assert.Error(t, runResolve(cmd, []string{"unknown.yacy"}))
	assert.Equal(t, "unknown.yacy\t-\n", out.String())
}

func TestListenAddr(t *testing.T) {
	assert.Equal(t, "0.0.0.0:8090", listenAddr("tcp://0.0.0.0:8090"))
	assert.Equal(t, ":8090", listenAddr(":8090"))
}
