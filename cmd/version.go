package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the server version",
	Args:  cobra.NoArgs,
	RunE: func(c *cobra.Command, args []string) error {
		fmt.Fprintf(c.OutOrStdout(), "vaultmcp %s\n", rootCmd.Version)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
