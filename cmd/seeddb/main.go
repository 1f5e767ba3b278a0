package main

import (
	"context"
	"fmt"
	"os"

	cmd "github.com/gospiritual/yacy-search-server/cmd/seeddb/commands"
)

func main() {
	rootCmd := cmd.RootCmd
	rootCmd.AddCommand(
		cmd.InitFilesCmd,
		cmd.StartCmd,
		cmd.ExportCmd,
		cmd.PublishCmd,
		cmd.ResolveCmd,
		cmd.ImportCmd,
		cmd.StatsCmd,
		cmd.VersionCmd,
	)

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "ERROR:", err)
		os.Exit(1)
	}
}
