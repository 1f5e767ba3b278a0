package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gospiritual/yacy-search-server/version"
)

// VersionCmd prints the binary version and the version announced in the
// own seed.
var VersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version info",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version.SeedDBSemVer)
		fmt.Println("seed version:", version.SeedVersion)
	},
}
