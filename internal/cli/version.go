package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/slackcord/slackcord/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("slackcord %s\n", version.GetInfo())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
