package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// cleanCmd represents the clean command
var cleanCmd = &cobra.Command{
	Use:   "clean <pcap>...",
	Short: "Remove stored offset tables",
	Long: `Remove the stored offset table of each capture. The captures themselves
are not touched.

Example:
  pcapidx clean trace.pcap`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := openOptions(cmd)
		opener := container.GetOpener()

		for _, path := range args {
			if err := opener.Clean(path, opts); err != nil {
				return fmt.Errorf("error removing index for %s: %w", path, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed index for %s (%s)\n", path, opener.Location(path, opts))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(cleanCmd)
}
