package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// ResolveCmd maps virtual peer hostnames to addresses.
var ResolveCmd = &cobra.Command{
	Use:   "resolve <host>...",
	Short: "Resolve <hash>.yacyh and <name>.yacy hostnames",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runResolve,
}

func runResolve(cmd *cobra.Command, args []string) error {
	sdb, err := openDirectory()
	if err != nil {
		return err
	}
	defer sdb.Close()

	unresolved := 0
	for _, host := range args {
		addr, ok := sdb.ResolveAddress(host)
		if !ok {
			unresolved++
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t-\n", host)
			continue
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", host, addr)
	}
	if unresolved > 0 {
		return fmt.Errorf("%d of %d hosts not resolvable", unresolved, len(args))
	}
	return nil
}
