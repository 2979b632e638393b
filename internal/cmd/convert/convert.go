// Package convert provides the offline convert command.
package convert

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/open-cli-collective/confluence-md/internal/cmd/cmdutil"
	"github.com/open-cli-collective/confluence-md/internal/config"
	"github.com/open-cli-collective/confluence-md/internal/export"
	"github.com/open-cli-collective/confluence-md/pkg/md"
)

type convertOptions struct {
	storage     string
	view        string
	attachments string
	outFile     string
	noMeta      bool
	assetsDir   string
	exportedBy  string
	meta        md.PageMetadata
	labels      string
	logger      *log.Logger
	out         io.Writer
	now         func() time.Time
}

// NewCmdConvert creates the convert command.
func NewCmdConvert() *cobra.Command {
	opts := &convertOptions{}

	cmd := &cobra.Command{
		Use:   "convert",
		Short: "Convert saved page bodies without contacting Confluence",
		Long: `Convert a page from files holding its storage and view bodies.

With --view the full conversion runs: macros are read from the storage body
and restored into the rendered view. Without it only the storage body is
converted. Diagram sources are read from the --attachments directory.`,
		Example: `  # Full conversion with frontmatter
  cfmd convert --storage page.xml --view page.html --title "Payments" --id 12345

  # Storage body only, body without frontmatter
  cfmd convert --storage page.xml --no-frontmatter

  # Write to a file, reading diagram sources from ./attachments
  cfmd convert --storage page.xml --view page.html --attachments attachments --out payments.md`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.logger = cmdutil.Logger(cmd)
			opts.out = cmd.OutOrStdout()

			// Credentials are not needed offline; only the export settings are read.
			cfg, err := config.LoadWithEnv(cmdutil.ConfigPath(cmd))
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			withDefaults := cfg.WithDefaults()
			opts.assetsDir = withDefaults.AssetsDir
			opts.exportedBy = withDefaults.ExportedBy
			return runConvert(opts)
		},
	}

	cmd.Flags().StringVar(&opts.storage, "storage", "", "File holding the storage format body (required)")
	cmd.Flags().StringVar(&opts.view, "view", "", "File holding the rendered view body")
	cmd.Flags().StringVar(&opts.attachments, "attachments", "", "Directory of diagram source attachments")
	cmd.Flags().StringVar(&opts.outFile, "out", "", "Write Markdown to this file instead of stdout")
	cmd.Flags().BoolVar(&opts.noMeta, "no-frontmatter", false, "Omit the YAML frontmatter")
	cmd.Flags().StringVar(&opts.meta.Title, "title", "", "Page title for the frontmatter")
	cmd.Flags().StringVar(&opts.meta.ID, "id", "", "Page ID for the frontmatter")
	cmd.Flags().StringVar(&opts.meta.SpaceKey, "space", "", "Space key for the frontmatter")
	cmd.Flags().StringVar(&opts.meta.URL, "url", "", "Page URL for the frontmatter")
	cmd.Flags().IntVar(&opts.meta.Version, "version", 0, "Page version for the frontmatter")
	cmd.Flags().StringVar(&opts.labels, "labels", "", "Comma-separated labels for the frontmatter")

	_ = cmd.MarkFlagRequired("storage")

	return cmd
}

func runConvert(opts *convertOptions) error {
	out := opts.out
	if out == nil {
		out = os.Stdout
	}
	if opts.logger == nil {
		opts.logger = cmdutil.NewLogger(io.Discard)
	}

	storage, err := os.ReadFile(opts.storage)
	if err != nil {
		return fmt.Errorf("failed to read storage body: %w", err)
	}

	cache, err := export.LoadAttachmentDir(opts.attachments)
	if err != nil {
		return err
	}

	convOpts := []md.Option{
		md.WithLogger(opts.logger),
		md.WithAssetsDir(opts.assetsDir),
		md.WithExportedBy(opts.exportedBy),
	}
	if opts.now != nil {
		convOpts = append(convOpts, md.WithClock(opts.now))
	}
	conv := md.NewConverter(convOpts...)

	var markdown string
	if opts.view == "" {
		markdown, err = conv.FromConfluenceStorage(string(storage), cache)
		if err != nil {
			return fmt.Errorf("failed to convert page: %w", err)
		}
		if markdown != "" {
			markdown += "\n"
		}
	} else {
		viewBody, err := os.ReadFile(opts.view)
		if err != nil {
			return fmt.Errorf("failed to read view body: %w", err)
		}

		meta := opts.meta
		if meta.Title == "" {
			meta.Title = strings.TrimSuffix(filepath.Base(opts.storage), filepath.Ext(opts.storage))
		}
		meta.Labels = splitLabels(opts.labels)

		doc, err := conv.Convert(&md.Document{
			Storage:  string(storage),
			View:     string(viewBody),
			Metadata: meta,
		}, cache)
		if err != nil {
			return fmt.Errorf("failed to convert page: %w", err)
		}
		markdown = doc.Markdown
		if opts.noMeta {
			markdown = doc.Body
		}
		for _, w := range doc.Warnings {
			opts.logger.Printf("WARN: %s", w)
		}
	}

	if opts.outFile == "" {
		_, err := io.WriteString(out, markdown)
		return err
	}
	if err := os.MkdirAll(filepath.Dir(opts.outFile), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := os.WriteFile(opts.outFile, []byte(markdown), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", opts.outFile, err)
	}
	return nil
}

func splitLabels(s string) []string {
	var labels []string
	for _, l := range strings.Split(s, ",") {
		if l = strings.TrimSpace(l); l != "" {
			labels = append(labels, l)
		}
	}
	return labels
}
