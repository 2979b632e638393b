package page

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/open-cli-collective/confluence-md/api"
	"github.com/open-cli-collective/confluence-md/internal/cmd/cmdutil"
	"github.com/open-cli-collective/confluence-md/internal/cmd/completion"
	"github.com/open-cli-collective/confluence-md/internal/view"
)

type listOptions struct {
	space   string
	limit   int
	status  string
	title   string
	output  string
	noColor bool
	out     io.Writer
}

// NewCmdList creates the page list command.
func NewCmdList() *cobra.Command {
	opts := &listOptions{}

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List pages in a space",
		Long:    `List pages in a Confluence space, with the IDs that export and view accept.`,
		Example: `  # List pages in a space
  cfmd page list --space DEV

  # Find a page by title
  cfmd page list -s DEV --title "Release Runbook"

  # Output as JSON
  cfmd page list -s DEV -o json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.output, opts.noColor = cmdutil.OutputFlags(cmd)
			opts.out = cmd.OutOrStdout()

			cfg, err := cmdutil.LoadConfig(cmdutil.ConfigPath(cmd))
			if err != nil {
				return err
			}
			if opts.space == "" {
				opts.space = cfg.DefaultSpace
			}
			return runList(cmd.Context(), opts, cmdutil.NewClient(cfg))
		},
	}

	cmd.Flags().StringVarP(&opts.space, "space", "s", "", "Space key or ID (default: default_space from config)")
	cmd.Flags().IntVarP(&opts.limit, "limit", "l", 25, "Maximum number of pages to return")
	cmd.Flags().StringVar(&opts.status, "status", "current", "Page status (current, archived, draft)")
	cmd.Flags().StringVar(&opts.title, "title", "", "Filter by page title")

	_ = cmd.RegisterFlagCompletionFunc("space", completion.SpaceKeys)

	return cmd
}

func runList(ctx context.Context, opts *listOptions, client *api.Client) error {
	renderer, err := cmdutil.NewRenderer(opts.output, opts.noColor, opts.out)
	if err != nil {
		return err
	}

	if opts.space == "" {
		return fmt.Errorf("space is required: use --space flag or set default_space in config")
	}
	if opts.limit < 0 {
		return fmt.Errorf("invalid limit: %d (must be 0 or greater)", opts.limit)
	}

	space, err := client.ResolveSpace(ctx, opts.space)
	if err != nil {
		return fmt.Errorf("failed to find space '%s': %w", opts.space, err)
	}

	result, err := client.ListPages(ctx, space.ID, &api.ListPagesOptions{
		Limit:  opts.limit,
		Status: opts.status,
		Title:  opts.title,
	})
	if err != nil {
		return fmt.Errorf("failed to list pages: %w", err)
	}

	if renderer.Format() == view.FormatJSON {
		pages := result.Results
		if pages == nil {
			pages = []api.Page{}
		}
		return renderer.RenderJSON(pages)
	}

	if len(result.Results) == 0 && renderer.Format() == view.FormatTable {
		renderer.RenderText(fmt.Sprintf("No pages found in space %s.", space.Key))
		return nil
	}

	headers := []string{"ID", "TITLE", "STATUS", "VERSION"}
	var rows [][]string

	for _, page := range result.Results {
		version := ""
		if page.Version != nil {
			version = fmt.Sprintf("v%d", page.Version.Number)
		}
		rows = append(rows, []string{
			page.ID,
			view.Truncate(page.Title, 60),
			page.Status,
			version,
		})
	}

	if err := renderer.RenderTable(headers, rows); err != nil {
		return err
	}
	if result.HasMore() {
		renderer.Notice("\n(showing first %d results, use --limit to see more)", len(result.Results))
	}
	return nil
}
