package exportcmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/open-cli-collective/confluence-md/api"
	"github.com/open-cli-collective/confluence-md/internal/cmd/cmdutil"
	"github.com/open-cli-collective/confluence-md/internal/cmd/completion"
	"github.com/open-cli-collective/confluence-md/internal/config"
	"github.com/open-cli-collective/confluence-md/internal/export"
)

func newCmdSpace(opts *exportOptions) *cobra.Command {
	var filter export.Filter

	cmd := &cobra.Command{
		Use:   "space [space-key]",
		Short: "Export the pages of a space",
		Long: `Export every current page of a space, or the pages matching a filter.

Pages are fetched concurrently. A page that fails is recorded in the
manifest and the export continues with the rest.`,
		Example: `  # Export a whole space
  cfmd export space DEV --dir docs

  # Only pages labelled "runbook"
  cfmd export space DEV --label runbook

  # Pages matching a CQL expression
  cfmd export space DEV --cql 'lastmodified > now("-7d")'

  # Use default_space from config
  cfmd export space`,
		Args:              cobra.MaximumNArgs(1),
		ValidArgsFunction: completion.SpaceArg,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.prepare(cmd)
			if err != nil {
				return err
			}
			space := cfg.DefaultSpace
			if len(args) == 1 {
				space = args[0]
			}
			return runSpace(cmd.Context(), space, filter, opts, cfg, cmdutil.NewClient(cfg))
		},
	}

	cmd.Flags().StringVar(&filter.Label, "label", "", "Only pages with this label")
	cmd.Flags().StringVar(&filter.Title, "title", "", "Only pages whose title contains this text")
	cmd.Flags().StringVar(&filter.CQL, "cql", "", "Only pages matching this CQL expression")
	cmd.Flags().IntVar(&opts.concurrency, "concurrency", 0, fmt.Sprintf("Pages fetched in parallel, 1-%d (default: concurrency from config, or %d)", config.MaxConcurrency, config.DefaultConcurrency))

	return cmd
}

func runSpace(ctx context.Context, space string, filter export.Filter, opts *exportOptions, cfg *config.Config, client *api.Client) error {
	if space == "" {
		return fmt.Errorf("space is required: pass a space key or set default_space in config")
	}
	if opts.concurrency < 0 || opts.concurrency > config.MaxConcurrency {
		return fmt.Errorf("invalid concurrency: %d (must be between 1 and %d)", opts.concurrency, config.MaxConcurrency)
	}

	r, err := opts.renderer()
	if err != nil {
		return err
	}

	exp := export.New(client, opts.exportOptions(cfg, r))
	m, err := exp.ExportSpace(ctx, space, filter)
	if err != nil {
		return err
	}
	return renderManifest(r, m, opts.dir)
}
