package exportcmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/open-cli-collective/confluence-md/api"
	"github.com/open-cli-collective/confluence-md/internal/cmd/cmdutil"
	"github.com/open-cli-collective/confluence-md/internal/config"
	"github.com/open-cli-collective/confluence-md/internal/export"
)

func newCmdPage(opts *exportOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "page <page-id>...",
		Short: "Export one or more pages",
		Example: `  # Export a page into ./docs
  cfmd export page 12345 --dir docs

  # Export several pages
  cfmd export page 12345 67890`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.prepare(cmd)
			if err != nil {
				return err
			}
			return runPages(cmd.Context(), args, opts, cfg, cmdutil.NewClient(cfg))
		},
	}
}

func runPages(ctx context.Context, ids []string, opts *exportOptions, cfg *config.Config, client *api.Client) error {
	r, err := opts.renderer()
	if err != nil {
		return err
	}

	exp := export.New(client, opts.exportOptions(cfg, r))
	m, err := exp.ExportPages(ctx, ids)
	if err != nil {
		return err
	}
	return renderManifest(r, m, opts.dir)
}
