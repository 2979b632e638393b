// Package root provides the root command for the cfmd CLI.
package root

import (
	"github.com/spf13/cobra"

	"github.com/open-cli-collective/confluence-md/internal/cmd/completion"
	"github.com/open-cli-collective/confluence-md/internal/cmd/configcmd"
	"github.com/open-cli-collective/confluence-md/internal/cmd/convert"
	"github.com/open-cli-collective/confluence-md/internal/cmd/exportcmd"
	initcmd "github.com/open-cli-collective/confluence-md/internal/cmd/init"
	"github.com/open-cli-collective/confluence-md/internal/cmd/page"
	"github.com/open-cli-collective/confluence-md/internal/cmd/space"
	"github.com/open-cli-collective/confluence-md/internal/version"
)

// NewCmdRoot creates the root command for cfmd.
func NewCmdRoot() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cfmd",
		Short: "Export Atlassian Confluence pages as Markdown",
		Long: `cfmd converts Confluence Cloud pages into Markdown files with YAML
frontmatter, keeping diagrams, code blocks, panels and tables of contents
that the rendered page would otherwise lose.

Get started by running: cfmd init`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version.String(),
	}

	// Global flags
	cmd.PersistentFlags().StringP("config", "c", "", "config file (default: ~/.config/cfmd/config.yml)")
	cmd.PersistentFlags().StringP("output", "o", "table", "output format: table, json, plain")
	cmd.PersistentFlags().Bool("no-color", false, "disable colored output")
	cmd.PersistentFlags().BoolP("verbose", "v", false, "log conversion warnings to stderr")

	cmd.SetVersionTemplate("cfmd version {{.Version}}\n")

	// Subcommands
	cmd.AddCommand(initcmd.NewCmdInit())
	cmd.AddCommand(configcmd.NewCmdConfig())
	cmd.AddCommand(exportcmd.NewCmdExport())
	cmd.AddCommand(convert.NewCmdConvert())
	cmd.AddCommand(page.NewCmdPage())
	cmd.AddCommand(space.NewCmdSpace())
	cmd.AddCommand(completion.NewCmdCompletion())

	return cmd
}
