package space

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/open-cli-collective/confluence-md/api"
	"github.com/open-cli-collective/confluence-md/internal/cmd/cmdutil"
	"github.com/open-cli-collective/confluence-md/internal/view"
)

type listOptions struct {
	limit     int
	spaceType string
	output    string
	noColor   bool
	out       io.Writer
}

// NewCmdList creates the space list command.
func NewCmdList() *cobra.Command {
	opts := &listOptions{}

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List Confluence spaces",
		Long:    `List all Confluence spaces you have access to.`,
		Example: `  # List all spaces
  cfmd space list

  # List only global spaces
  cfmd space list --type global

  # Output as JSON
  cfmd space list -o json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.output, opts.noColor = cmdutil.OutputFlags(cmd)
			opts.out = cmd.OutOrStdout()

			cfg, err := cmdutil.LoadConfig(cmdutil.ConfigPath(cmd))
			if err != nil {
				return err
			}
			return runList(cmd.Context(), opts, cmdutil.NewClient(cfg))
		},
	}

	cmd.Flags().IntVarP(&opts.limit, "limit", "l", 25, "Maximum number of spaces to return")
	cmd.Flags().StringVarP(&opts.spaceType, "type", "t", "", "Filter by space type (global, personal)")

	return cmd
}

func runList(ctx context.Context, opts *listOptions, client *api.Client) error {
	renderer, err := cmdutil.NewRenderer(opts.output, opts.noColor, opts.out)
	if err != nil {
		return err
	}

	if opts.limit < 0 {
		return fmt.Errorf("invalid limit: %d (must be 0 or greater)", opts.limit)
	}
	if opts.limit == 0 {
		if renderer.Format() == view.FormatJSON {
			return renderer.RenderJSON([]api.Space{})
		}
		return nil
	}

	result, err := client.ListSpaces(ctx, &api.ListSpacesOptions{
		Limit: opts.limit,
		Type:  opts.spaceType,
	})
	if err != nil {
		return fmt.Errorf("failed to list spaces: %w", err)
	}

	if len(result.Results) == 0 && renderer.Format() == view.FormatTable {
		renderer.RenderText("No spaces found.")
		return nil
	}

	headers := []string{"ID", "KEY", "NAME", "TYPE", "DESCRIPTION"}
	var rows [][]string

	for _, space := range result.Results {
		desc := ""
		if space.Description != nil && space.Description.Plain != nil {
			desc = view.Truncate(space.Description.Plain.Value, 50)
		}
		rows = append(rows, []string{
			space.ID,
			space.Key,
			space.Name,
			space.Type,
			desc,
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
