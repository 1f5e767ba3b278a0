package version

const (
	// SeedDBSemVer is the semantic version of the seeddb binary.
	SeedDBSemVer = "0.1.0"

	// SeedVersion is the numeric version announced in the own seed. Peers
	// compare it with AnySeedVersion.
	SeedVersion = "0.100"
)

// GitCommitHash uses git rev-parse HEAD to find commit hash which is helpful
// for the engineering team when working with the binary. See Makefile
var GitCommitHash = ""
