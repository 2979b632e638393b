package configcmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/open-cli-collective/confluence-md/api"
	"github.com/open-cli-collective/confluence-md/internal/cmd/cmdutil"
	"github.com/open-cli-collective/confluence-md/internal/config"
)

// NewCmdTest creates the config test command.
func NewCmdTest() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "test",
		Short: "Test connectivity with configured credentials",
		Long:  `Test that cfmd can connect to your Confluence instance with the current configuration.`,
		Example: `  # Test connection
  cfmd config test`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			noColor, _ := cmd.Flags().GetBool("no-color")
			cfg, err := cmdutil.LoadConfig(cmdutil.ConfigPath(cmd))
			if err != nil {
				return err
			}
			return runTest(cmd.Context(), cmd.OutOrStdout(), cfg, noColor)
		},
	}

	return cmd
}

func runTest(ctx context.Context, w io.Writer, cfg *config.Config, noColor bool) error {
	if noColor {
		color.NoColor = true
	}

	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)

	_, _ = fmt.Fprintf(w, "Testing connection to %s...\n", cfg.URL)

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client := api.NewClient(cfg.URL, cfg.Email, cfg.APIToken)
	spaces, err := client.ListSpaces(ctx, &api.ListSpacesOptions{Limit: 1})
	if err != nil {
		var apiErr *api.ErrorResponse
		if !errors.As(err, &apiErr) {
			_, _ = red.Fprintln(w, "✗ Connection failed:", err)
			_, _ = fmt.Fprintln(w, "\nCheck your URL with: cfmd config show")
			_, _ = fmt.Fprintln(w, "Reconfigure with: cfmd init")
			return fmt.Errorf("connection failed: %w", err)
		}

		switch apiErr.StatusCode {
		case http.StatusUnauthorized:
			_, _ = red.Fprintln(w, "✗ Authentication failed: 401 Unauthorized")
			_, _ = fmt.Fprintln(w, "\nCheck your credentials with: cfmd config show")
			_, _ = fmt.Fprintln(w, "Reconfigure with: cfmd init")
			return fmt.Errorf("authentication failed")
		case http.StatusForbidden:
			_, _ = red.Fprintln(w, "✗ Access denied: 403 Forbidden")
			_, _ = fmt.Fprintln(w, "\nCheck your permissions.")
			return fmt.Errorf("access denied")
		default:
			_, _ = red.Fprintf(w, "✗ Unexpected response: %d\n", apiErr.StatusCode)
			return fmt.Errorf("unexpected status code: %d", apiErr.StatusCode)
		}
	}

	_, _ = green.Fprintln(w, "✓ Authentication successful")
	_, _ = green.Fprintln(w, "✓ API access verified")
	if len(spaces.Results) == 0 {
		_, _ = fmt.Fprintln(w, "\nNo spaces are visible to this account; exports will find nothing.")
	}
	_, _ = fmt.Fprintf(w, "\nAuthenticated as: %s\n", cfg.Email)

	return nil
}
