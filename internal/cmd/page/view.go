package page

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/open-cli-collective/confluence-md/api"
	"github.com/open-cli-collective/confluence-md/internal/cmd/cmdutil"
	"github.com/open-cli-collective/confluence-md/internal/export"
	"github.com/open-cli-collective/confluence-md/internal/view"
	"github.com/open-cli-collective/confluence-md/pkg/md"
)

type viewOptions struct {
	raw         bool
	web         bool
	storageOnly bool
	noMeta      bool
	output      string
	noColor     bool
	assetsDir   string
	exportedBy  string
	logger      *log.Logger
	out         io.Writer
}

// NewCmdView creates the page view command.
func NewCmdView() *cobra.Command {
	opts := &viewOptions{}

	cmd := &cobra.Command{
		Use:   "view <page-id>",
		Short: "Preview a page as Markdown",
		Long: `Convert a Confluence page to Markdown and print it without writing files.

By default both the storage and view bodies are fetched so diagrams, code
blocks, panels and tables of contents are restored. --storage-only converts
the storage body alone, which is faster but skips the rendered page layout.`,
		Example: `  # Preview a page
  cfmd page view 12345

  # Body only, without frontmatter
  cfmd page view 12345 --no-frontmatter

  # Show raw storage format
  cfmd page view 12345 --raw

  # Open in browser
  cfmd page view 12345 --web`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.output, opts.noColor = cmdutil.OutputFlags(cmd)
			opts.logger = cmdutil.Logger(cmd)
			opts.out = cmd.OutOrStdout()

			cfg, err := cmdutil.LoadConfig(cmdutil.ConfigPath(cmd))
			if err != nil {
				return err
			}
			opts.assetsDir = cfg.AssetsDir
			opts.exportedBy = cfg.ExportedBy
			return runView(cmd.Context(), args[0], opts, cmdutil.NewClient(cfg))
		},
	}

	cmd.Flags().BoolVar(&opts.raw, "raw", false, "Show raw Confluence storage format")
	cmd.Flags().BoolVarP(&opts.web, "web", "w", false, "Open in browser instead of displaying")
	cmd.Flags().BoolVar(&opts.storageOnly, "storage-only", false, "Convert the storage body without the rendered view")
	cmd.Flags().BoolVar(&opts.noMeta, "no-frontmatter", false, "Print the Markdown body without frontmatter")

	return cmd
}

func runView(ctx context.Context, pageID string, opts *viewOptions, client *api.Client) error {
	out := opts.out
	if out == nil {
		out = os.Stdout
	}
	if opts.logger == nil {
		opts.logger = cmdutil.NewLogger(io.Discard)
	}

	renderer, err := cmdutil.NewRenderer(opts.output, opts.noColor, out)
	if err != nil {
		return err
	}

	if opts.web || opts.raw || opts.storageOnly {
		page, err := client.GetPage(ctx, pageID, &api.GetPageOptions{BodyFormat: api.BodyFormatStorage})
		if err != nil {
			return fmt.Errorf("failed to get page: %w", err)
		}

		switch {
		case opts.web:
			return openBrowser(client.BaseURL() + page.Links.WebUI)
		case opts.raw:
			fmt.Fprintln(out, page.StorageBody())
			return nil
		}

		conv := md.NewConverter(md.WithLogger(opts.logger), md.WithAssetsDir(opts.assetsDir))
		markdown, err := conv.FromConfluenceStorage(page.StorageBody(), nil)
		if err != nil {
			return fmt.Errorf("failed to convert page: %w", err)
		}
		if renderer.Format() == view.FormatJSON {
			return renderer.RenderJSON(map[string]any{"id": page.ID, "title": page.Title, "markdown": markdown})
		}
		fmt.Fprintln(out, markdown)
		return nil
	}

	exp := export.New(client, export.Options{
		AssetsDir:  opts.assetsDir,
		ExportedBy: opts.exportedBy,
		Logger:     opts.logger,
	})
	doc, err := exp.Convert(ctx, pageID)
	if err != nil {
		return err
	}

	if renderer.Format() == view.FormatJSON {
		return renderer.RenderJSON(map[string]any{
			"frontmatter": doc.Frontmatter,
			"markdown":    doc.Body,
			"assets":      doc.Assets,
			"warnings":    doc.Warnings,
		})
	}

	if opts.noMeta {
		fmt.Fprint(out, doc.Body)
	} else {
		fmt.Fprint(out, doc.Markdown)
	}
	for _, w := range doc.Warnings {
		opts.logger.Printf("WARN: %s", w)
	}
	return nil
}

func openBrowser(url string) error {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		return fmt.Errorf("unsupported platform")
	}

	return cmd.Start()
}
