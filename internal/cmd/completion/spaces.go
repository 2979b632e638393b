package completion

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"github.com/open-cli-collective/confluence-md/api"
	"github.com/open-cli-collective/confluence-md/internal/cmd/cmdutil"
)

// spaceLimit bounds the spaces fetched for one completion request.
const spaceLimit = 250

// SpaceKeys completes space keys from the configured Confluence site.
// Completion is silent when no credentials are configured.
func SpaceKeys(cmd *cobra.Command, _ []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	cfg, err := cmdutil.LoadConfig(cmdutil.ConfigPath(cmd))
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	return spaceKeys(cmd, cmdutil.NewClient(cfg), toComplete)
}

func spaceKeys(cmd *cobra.Command, client *api.Client, toComplete string) ([]string, cobra.ShellCompDirective) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	result, err := client.ListSpaces(ctx, &api.ListSpacesOptions{Limit: spaceLimit})
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}

	var keys []string
	prefix := strings.ToUpper(toComplete)
	for _, s := range result.Results {
		if strings.HasPrefix(strings.ToUpper(s.Key), prefix) {
			keys = append(keys, s.Key+"\t"+s.Name)
		}
	}
	return keys, cobra.ShellCompDirectiveNoFileComp
}

// SpaceArg completes the first positional argument with space keys.
func SpaceArg(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	return SpaceKeys(cmd, args, toComplete)
}
