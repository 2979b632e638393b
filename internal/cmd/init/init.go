// Package init provides the init command for cfmd.
package init

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/open-cli-collective/confluence-md/api"
	"github.com/open-cli-collective/confluence-md/internal/cmd/cmdutil"
	"github.com/open-cli-collective/confluence-md/internal/config"
)

// NewCmdInit creates the init command.
func NewCmdInit() *cobra.Command {
	var (
		url      string
		email    string
		noVerify bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize cfmd configuration",
		Long: `Initialize cfmd with your Confluence Cloud credentials.

This command will guide you through setting up your Confluence URL,
email, API token and export defaults. The configuration will be saved to
~/.config/cfmd/config.yml unless --config names another file.

To generate an API token:
  1. Go to https://id.atlassian.com/manage-profile/security/api-tokens
  2. Click "Create API token"
  3. Copy the token (it won't be shown again)`,
		Example: `  # Interactive setup
  cfmd init

  # Pre-populate URL
  cfmd init --url https://mycompany.atlassian.net`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runInit(cmd.Context(), cmdutil.ConfigPath(cmd), url, email, noVerify)
		},
	}

	cmd.Flags().StringVar(&url, "url", "", "Confluence URL (e.g., https://mycompany.atlassian.net)")
	cmd.Flags().StringVar(&email, "email", "", "Your Atlassian account email")
	cmd.Flags().BoolVar(&noVerify, "no-verify", false, "Skip connection verification")

	return cmd
}

func runInit(ctx context.Context, configPath, prefillURL, prefillEmail string, noVerify bool) error {
	// Check if config already exists
	if _, err := os.Stat(configPath); err == nil {
		var overwrite bool
		err := huh.NewConfirm().
			Title("Configuration already exists").
			Description(fmt.Sprintf("Overwrite %s?", configPath)).
			Value(&overwrite).
			Run()
		if err != nil {
			return err
		}
		if !overwrite {
			fmt.Println("Initialization cancelled.")
			return nil
		}
	}

	cfg := &config.Config{
		URL:       prefillURL,
		Email:     prefillEmail,
		OutputDir: config.DefaultOutputDir,
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Confluence URL").
				Description("Your Confluence Cloud instance URL").
				Placeholder("https://mycompany.atlassian.net").
				Value(&cfg.URL).
				Validate(required("URL")),

			huh.NewInput().
				Title("Email").
				Description("Your Atlassian account email").
				Placeholder("you@example.com").
				Value(&cfg.Email).
				Validate(required("email")),

			huh.NewInput().
				Title("API Token").
				Description("Generate at: id.atlassian.com/manage-profile/security/api-tokens").
				EchoMode(huh.EchoModePassword).
				Value(&cfg.APIToken).
				Validate(required("API token")),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Default Space (optional)").
				Description("Space exported by 'cfmd export space' when no key is given").
				Placeholder("MYSPACE").
				Value(&cfg.DefaultSpace),

			huh.NewInput().
				Title("Output Directory").
				Description("Where exported Markdown files are written").
				Placeholder(config.DefaultOutputDir).
				Value(&cfg.OutputDir),
		),
	)

	if err := form.Run(); err != nil {
		return err
	}

	cfg.NormalizeURL()

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if !noVerify {
		fmt.Print("Verifying connection... ")
		if err := verifyConnection(ctx, cfg); err != nil {
			fmt.Println("failed!")
			return fmt.Errorf("connection verification failed: %w", err)
		}
		fmt.Println("success!")
	}

	if err := cfg.Save(configPath); err != nil {
		return err
	}

	fmt.Printf("\nConfiguration saved to %s\n", configPath)
	fmt.Println("\nYou're all set! Try running:")
	fmt.Println("  cfmd space list")
	fmt.Println("  cfmd export space <SPACE_KEY> --dir docs")

	return nil
}

func required(field string) func(string) error {
	return func(s string) error {
		if s == "" {
			return fmt.Errorf("%s is required", field)
		}
		return nil
	}
}

// verifyConnection lists one space with the configured credentials.
func verifyConnection(ctx context.Context, cfg *config.Config) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client := api.NewClient(cfg.URL, cfg.Email, cfg.APIToken)
	_, err := client.ListSpaces(ctx, &api.ListSpacesOptions{Limit: 1})
	if err == nil {
		return nil
	}

	var apiErr *api.ErrorResponse
	if !errors.As(err, &apiErr) {
		return err
	}
	switch apiErr.StatusCode {
	case http.StatusUnauthorized:
		return fmt.Errorf("authentication failed - check your email and API token")
	case http.StatusForbidden:
		return fmt.Errorf("access denied - check your permissions")
	default:
		return fmt.Errorf("unexpected status code: %d", apiErr.StatusCode)
	}
}
