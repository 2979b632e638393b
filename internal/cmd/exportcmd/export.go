// Package exportcmd provides the export commands.
package exportcmd

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/open-cli-collective/confluence-md/internal/cmd/cmdutil"
	"github.com/open-cli-collective/confluence-md/internal/config"
	"github.com/open-cli-collective/confluence-md/internal/export"
	"github.com/open-cli-collective/confluence-md/internal/view"
)

// exportOptions holds the flags shared by the export subcommands.
type exportOptions struct {
	dir           string
	assetsDir     string
	concurrency   int
	skipUnchanged bool
	noAssets      bool
	output        string
	noColor       bool
	logger        *log.Logger
	out           io.Writer
}

// NewCmdExport creates the export command.
func NewCmdExport() *cobra.Command {
	opts := &exportOptions{}

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export pages to Markdown files",
		Long: `Export Confluence pages as Markdown files with YAML frontmatter.

Each page is written to <dir>/<slug>.md. Attachments the page links to are
saved under <dir>/<assets-dir>, and a manifest.yaml records every page,
its macro counts and any warnings.`,
	}

	cmd.PersistentFlags().StringVarP(&opts.dir, "dir", "d", "", "Output directory (default: output_dir from config, or .)")
	cmd.PersistentFlags().StringVar(&opts.assetsDir, "assets-dir", "", "Attachment directory relative to --dir (default: assets)")
	cmd.PersistentFlags().BoolVar(&opts.skipUnchanged, "skip-unchanged", false, "Skip pages whose file already holds the current version")
	cmd.PersistentFlags().BoolVar(&opts.noAssets, "no-assets", false, "Do not download linked attachments")

	cmd.AddCommand(newCmdPage(opts))
	cmd.AddCommand(newCmdSpace(opts))

	return cmd
}

// prepare merges the global flags and config into opts and returns the
// loaded config.
func (opts *exportOptions) prepare(cmd *cobra.Command) (*config.Config, error) {
	opts.output, opts.noColor = cmdutil.OutputFlags(cmd)
	opts.logger = cmdutil.Logger(cmd)
	opts.out = cmd.OutOrStdout()

	cfg, err := cmdutil.LoadConfig(cmdutil.ConfigPath(cmd))
	if err != nil {
		return nil, err
	}
	if opts.dir == "" {
		opts.dir = cfg.OutputDir
	}
	if opts.assetsDir == "" {
		opts.assetsDir = cfg.AssetsDir
	}
	if opts.concurrency == 0 {
		opts.concurrency = cfg.Concurrency
	}
	return cfg, nil
}

func (opts *exportOptions) exportOptions(cfg *config.Config, r *view.Renderer) export.Options {
	return export.Options{
		OutputDir:     opts.dir,
		AssetsDir:     opts.assetsDir,
		Concurrency:   opts.concurrency,
		SkipUnchanged: opts.skipUnchanged,
		SkipAssets:    opts.noAssets,
		ExportedBy:    cfg.ExportedBy,
		Logger:        opts.logger,
		OnPage: func(p export.PageResult) {
			if r.Format() == view.FormatTable {
				reportPage(r, p)
			}
		},
	}
}

func (opts *exportOptions) renderer() (*view.Renderer, error) {
	out := opts.out
	if out == nil {
		out = os.Stdout
	}
	return cmdutil.NewRenderer(opts.output, opts.noColor, out)
}

// reportPage prints one status line as a page finishes.
func reportPage(r *view.Renderer, p export.PageResult) {
	switch {
	case p.Failed():
		name := p.ID
		if p.Title != "" {
			name = fmt.Sprintf("%s (%s)", p.Title, p.ID)
		}
		r.Error(fmt.Sprintf("%s: %s", name, p.Error))
	case p.Skipped:
		r.RenderText(fmt.Sprintf("- %s unchanged (v%d)", p.Path, p.Version))
	case len(p.Warnings) > 0:
		r.Warning(fmt.Sprintf("%s (%d warnings)", p.Path, len(p.Warnings)))
	default:
		r.Success(p.Path)
	}
}

// renderManifest prints the summary of an export run. It returns an error
// when every page failed.
func renderManifest(r *view.Renderer, m *export.Manifest, dir string) error {
	written, skipped, failed := m.Counts()

	switch r.Format() {
	case view.FormatJSON:
		if err := r.RenderJSON(m); err != nil {
			return err
		}
	case view.FormatPlain:
		for _, p := range m.Pages {
			status := "ok"
			switch {
			case p.Failed():
				status = "failed"
			case p.Skipped:
				status = "skipped"
			}
			r.RenderText(fmt.Sprintf("%s\t%s\t%s", p.ID, status, p.Path))
		}
	default:
		r.RenderText("")
		r.RenderText(fmt.Sprintf("Exported %d, skipped %d, failed %d to %s", written, skipped, failed, dir))
	}

	if failed > 0 && written+skipped == 0 {
		return fmt.Errorf("export failed for all %d pages", failed)
	}
	return nil
}
