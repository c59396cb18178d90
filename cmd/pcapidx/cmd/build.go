package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// buildCmd represents the build command
var buildCmd = &cobra.Command{
	Use:   "build <pcap>...",
	Short: "Scan captures and save their offset tables",
	Long: `Scan each capture from the first record to the last and save a fresh
offset table, replacing any stored one.

Example:
  pcapidx build trace.pcap
  pcapidx build --sidecar /tmp/trace.idx trace.pcap`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := openOptions(cmd)
		opts.Rebuild = true
		opts.Save = true
		opts.Fallback = false

		for _, path := range args {
			r, err := container.GetOpener().OpenWithOptions(path, opts)
			if err != nil {
				return fmt.Errorf("error indexing %s: %w", path, err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Indexed %d records in %s -> %s (build %s)\n",
				r.Len(), path, r.IndexLocation(), r.BuildID())
			r.Close()
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(buildCmd)
}
