package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gospiritual/yacy-search-server/publish"
)

var publishCopyTo string

// PublishCmd runs a single publication round.
var PublishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Upload the seed list once and verify it",
	Long: `Exports the own seed and the Connected peers, uploads the list with
the configured method and downloads it again from seed_url to verify it.

With --copy the list is written to a local path that is expected to be
served at seed_url, and only verified.`,
	Args: cobra.NoArgs,
	RunE: runPublish,
}

func init() {
	PublishCmd.Flags().StringVar(&publishCopyTo, "copy", "", "write the list to this path instead of uploading it")
	PublishCmd.Flags().String("publish.seed_url", config.Publish.SeedURL, "URL the published list is fetched from")
}

func runPublish(cmd *cobra.Command, args []string) error {
	sdb, err := openDirectory()
	if err != nil {
		return err
	}
	defer sdb.Close()

	pc := config.Publish
	if publishCopyTo != "" {
		out, err := publish.CopyCache(cmd.Context(), sdb, publishCopyTo, pc.SeedURL, pc.VerifyTimeout)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), out)
		return nil
	}

	uploader, err := publish.NewUploader(cmd.Context(), pc)
	if err != nil {
		return err
	}
	p := publish.NewPublisher(pc, sdb, uploader)
	p.SetLogger(logger.With("module", "publish"))
	out, err := p.Publish(cmd.Context())
	if out != "" {
		fmt.Fprintln(cmd.OutOrStdout(), out)
	}
	return err
}
