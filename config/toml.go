package config

import (
	"bytes"
	"path/filepath"
	"strings"
	"text/template"

	cmtos "github.com/gospiritual/yacy-search-server/libs/os"
)

// DefaultDirPerm is the default permissions used when creating directories.
const DefaultDirPerm = 0o700

var configTemplate *template.Template

func init() {
	var err error
	tmpl := template.New("configFileTemplate").Funcs(template.FuncMap{
		"StringsJoin": strings.Join,
	})
	if configTemplate, err = tmpl.Parse(defaultConfigTemplate); err != nil {
		panic(err)
	}
}

/****** these are for production settings ***********/

// EnsureRoot creates the root, config, and data directories if they don't exist,
// and panics if it fails.
func EnsureRoot(rootDir string) {
	if err := cmtos.EnsureDir(rootDir, DefaultDirPerm); err != nil {
		panic(err.Error())
	}
	if err := cmtos.EnsureDir(filepath.Join(rootDir, DefaultConfigDir), DefaultDirPerm); err != nil {
		panic(err.Error())
	}
	if err := cmtos.EnsureDir(filepath.Join(rootDir, DefaultDataDir), DefaultDirPerm); err != nil {
		panic(err.Error())
	}

	configFilePath := filepath.Join(rootDir, defaultConfigFilePath)

	// Write default config file if missing.
	if !cmtos.FileExists(configFilePath) {
		writeDefaultConfigFile(configFilePath)
	}
}

// XXX: this func should probably be called by cmd/seeddb/commands/init.go
// alongside the writing of the own seed file
func writeDefaultConfigFile(configFilePath string) {
	WriteConfigFile(configFilePath, DefaultConfig())
}

// WriteConfigFile renders config using the template and writes it to configFilePath.
func WriteConfigFile(configFilePath string, config *Config) {
	var buffer bytes.Buffer

	if err := configTemplate.Execute(&buffer, config); err != nil {
		panic(err)
	}

	cmtos.MustWriteFile(configFilePath, buffer.Bytes(), 0o644)
}

// Note: any changes to the comments/variables/mapstructure
// must be reflected in the appropriate struct in config/config.go
const defaultConfigTemplate = `# This is a TOML config file.
# For more information, see https://github.com/toml-lang/toml

# NOTE: Any path below can be absolute (e.g. "/var/myawesomeapp/data") or
# relative to the home directory (e.g. "data"). The home directory is
# "$HOME/.seeddb" by default, but could be changed via $SEEDDB_HOME env variable
# or --home cmd flag.

#######################################################################
###                   Main Base Config Options                      ###
#######################################################################

# A custom human readable name for this peer
peer_name = "{{ .BaseConfig.PeerName }}"

# Database backend: goleveldb | memdb
# * goleveldb (github.com/syndtr/goleveldb - most popular implementation)
#   - pure go
#   - stable
# * memdb (uses a B-tree in memory)
#   - tables are lost on restart
db_backend = "{{ .BaseConfig.DBBackend }}"

# Database directory
db_dir = "{{ js .BaseConfig.DBPath }}"

# Output level for logging, including package level options
log_level = "{{ .BaseConfig.LogLevel }}"

# Output format: 'plain' (colored text) or 'json'
log_format = "{{ .BaseConfig.LogFormat }}"

# Path to the file holding this peer's own seed
my_seed_file = "{{ js .BaseConfig.MySeed }}"

#######################################################################
###                 Advanced Configuration Options                  ###
#######################################################################

#######################################################
###           Seed Directory Configuration          ###
#######################################################
[seeddb]

# Buffer size hint for the table storage engine, in KiB. Split over the three tables.
buffer_kb = {{ .SeedDB.BufferKB }}

# Table names below db_dir
connected_table = "{{ .SeedDB.ConnectedTable }}"
disconnected_table = "{{ .SeedDB.DisconnectedTable }}"
potential_table = "{{ .SeedDB.PotentialTable }}"

# Maximum number of entries of the name and address lookup caches
name_cache_size = {{ .SeedDB.NameCacheSize }}
ip_cache_size = {{ .SeedDB.IPCacheSize }}

# Maximum number of connected peers sampled when ranking peers by age
age_sample_size = {{ .SeedDB.AgeSampleSize }}

#######################################################
###               Network Configuration             ###
#######################################################
[network]

# Port this peer serves on
port = {{ .Network.Port }}

# Public IP announced when this peer is not (yet) reachable from outside.
# Detected from the local interfaces when empty.
public_ip = "{{ .Network.PublicIP }}"

# Replace the own address with the address of a port forwarder
port_forwarding_enabled = {{ .Network.PortForwardingEnabled }}
port_forwarding_host = "{{ .Network.PortForwardingHost }}"
port_forwarding_port = {{ .Network.PortForwardingPort }}

# Address the seed list handler listens on
listen_addr = "{{ .Network.ListenAddress }}"

#######################################################
###           Seed List Publication Options         ###
#######################################################
[publish]

# Upload transport: none | http | file | s3
method = "{{ .Publish.Method }}"

# URL the published seed list is downloaded from for verification
seed_url = "{{ .Publish.SeedURL }}"

# How often the list is published. 0 disables periodic publication.
interval = "{{ .Publish.Interval }}"

# Timeout of the verification download
verify_timeout = "{{ .Publish.VerifyTimeout }}"

# Directory for the temporary export file (OS default when empty)
temp_dir = "{{ js .Publish.TempDir }}"

# method = "http": the list is PUT to this URL
upload_url = "{{ .Publish.UploadURL }}"

# method = "file": the list is copied to this path
file_path = "{{ js .Publish.FilePath }}"

# method = "s3": the list is stored as s3_bucket/s3_key
s3_bucket = "{{ .Publish.S3Bucket }}"
s3_key = "{{ .Publish.S3Key }}"
s3_region = "{{ .Publish.S3Region }}"
s3_endpoint = "{{ .Publish.S3Endpoint }}"
s3_access_key = "{{ .Publish.S3AccessKey }}"
s3_secret_key = "{{ .Publish.S3SecretKey }}"

#######################################################
###       Instrumentation Configuration Options     ###
#######################################################
[instrumentation]

# When true, Prometheus metrics are served under /metrics on
# PrometheusListenAddr.
# Check out the documentation for the list of available metrics.
prometheus = {{ .Instrumentation.Prometheus }}

# Address to listen for Prometheus collector(s) connections
prometheus_listen_addr = "{{ .Instrumentation.PrometheusListenAddr }}"

# Instrumentation namespace
namespace = "{{ .Instrumentation.Namespace }}"
`
