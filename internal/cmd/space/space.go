// Package space provides space-related commands.
package space

import (
	"github.com/spf13/cobra"
)

// NewCmdSpace creates the space command.
func NewCmdSpace() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "space",
		Aliases: []string{"spaces"},
		Short:   "List Confluence spaces",
		Long:    `Commands for finding the spaces to export.`,
	}

	cmd.AddCommand(NewCmdList())

	return cmd
}
