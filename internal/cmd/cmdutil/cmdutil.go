// Package cmdutil holds helpers shared by cfmd commands.
package cmdutil

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/open-cli-collective/confluence-md/api"
	"github.com/open-cli-collective/confluence-md/internal/config"
	"github.com/open-cli-collective/confluence-md/internal/view"
)

// ConfigPath returns the --config value, or the default path.
func ConfigPath(cmd *cobra.Command) string {
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		return path
	}
	return config.DefaultConfigPath()
}

// LoadConfig loads and validates the configuration for commands that talk
// to Confluence.
func LoadConfig(path string) (*config.Config, error) {
	cfg, err := config.LoadWithEnv(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w (run 'cfmd init' to configure)", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w (run 'cfmd init' to configure)", err)
	}

	withDefaults := cfg.WithDefaults()
	return &withDefaults, nil
}

// NewClient creates an API client from cfg.
func NewClient(cfg *config.Config) *api.Client {
	return api.NewClient(cfg.URL, cfg.Email, cfg.APIToken)
}

// Logger returns the warning logger: stderr with --verbose, silent otherwise.
func Logger(cmd *cobra.Command) *log.Logger {
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		return NewLogger(os.Stderr)
	}
	return NewLogger(io.Discard)
}

// NewLogger returns a logger with the cfmd prefix.
func NewLogger(w io.Writer) *log.Logger {
	return log.New(w, "cfmd: ", 0)
}

// OutputFlags reads the global --output and --no-color flags.
func OutputFlags(cmd *cobra.Command) (string, bool) {
	output, _ := cmd.Flags().GetString("output")
	noColor, _ := cmd.Flags().GetBool("no-color")
	return output, noColor
}

// NewRenderer validates format and returns a renderer writing to w.
func NewRenderer(format string, noColor bool, w io.Writer) (*view.Renderer, error) {
	if err := view.ValidateFormat(format); err != nil {
		return nil, err
	}
	return view.NewRenderer(w, view.Format(format), noColor), nil
}
