package configcmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/open-cli-collective/confluence-md/internal/cmd/cmdutil"
	"github.com/open-cli-collective/confluence-md/internal/config"
)

// NewCmdShow creates the config show command.
func NewCmdShow() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Display current configuration",
		Long:  `Display the current cfmd configuration with value source indicators.`,
		Example: `  # Show current config
  cfmd config show`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			noColor, _ := cmd.Flags().GetBool("no-color")
			return runShow(cmd.OutOrStdout(), cmdutil.ConfigPath(cmd), noColor)
		},
	}

	return cmd
}

func runShow(w io.Writer, configPath string, noColor bool) error {
	if noColor {
		color.NoColor = true
	}

	// Load file config (may not exist)
	fileCfg, fileErr := config.Load(configPath)
	if fileErr != nil {
		fileCfg = &config.Config{}
	}

	// Load full config with env overrides
	cfg, err := config.LoadWithEnv(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	bold := color.New(color.Bold)
	dim := color.New(color.Faint)

	for _, f := range config.Fields {
		_, _ = bold.Fprintf(w, "%-13s", f.Label+":")
		value := f.Get(cfg)
		if value == "" {
			_, _ = dim.Fprintln(w, "-")
			continue
		}
		_, _ = fmt.Fprint(w, maskToken(f.Label, value))
		_, _ = dim.Fprintf(w, "  (source: %s)\n", source(f, fileCfg))
	}

	_, _ = fmt.Fprintln(w)
	_, _ = dim.Fprintf(w, "Config file: %s\n", configPath)
	if fileErr != nil {
		_, _ = dim.Fprintln(w, "(file not found)")
	}

	return nil
}

// maskToken hides all but the ends of token values.
func maskToken(label, value string) string {
	if strings.Contains(strings.ToLower(label), "token") && len(value) > 8 {
		return value[:4] + strings.Repeat("*", len(value)-8) + value[len(value)-4:]
	}
	return value
}

// source names where a field's value came from.
func source(f config.Field, fileCfg *config.Config) string {
	if env := f.EnvSource(); env != "" {
		return env
	}
	if f.Get(fileCfg) != "" {
		return "config"
	}
	return "-"
}
