package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var videoURLCmd = &cobra.Command{
	Use:   "video-url",
	Short: "Print the address of the server's video relay",
	Long: `Print the address of the server's video relay, for opening the clip in a
player while tagging in another terminal.

Examples:
  mpv "$(cliptag video-url)"`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Fprintln(cmd.OutOrStdout(), newClient(cmd).VideoURL())
		return nil
	},
}
