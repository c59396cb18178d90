package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// infoCmd represents the info command
var infoCmd = &cobra.Command{
	Use:   "info <pcap>",
	Short: "Show the offset table of a capture",
	Long: `Open a capture, building its offset table if needed, and show the
record count, where the table is stored and which scan produced it.

Example:
  pcapidx info trace.pcap
  pcapidx info --offsets trace.pcap`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		showOffsets, _ := cmd.Flags().GetBool("offsets")

		r, err := openCapture(cmd, args[0])
		if err != nil {
			return err
		}
		defer r.Close()

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Capture:   %s\n", r.Path())
		fmt.Fprintf(out, "Records:   %d\n", r.Len())
		fmt.Fprintf(out, "Link type: %s\n", r.LinkType())
		fmt.Fprintf(out, "Index:     %s\n", r.IndexLocation())
		fmt.Fprintf(out, "Build ID:  %s\n", r.BuildID())
		fmt.Fprintf(out, "Rebuilt:   %t\n", r.Rebuilt())

		if showOffsets {
			for i, off := range r.Offsets() {
				fmt.Fprintf(out, "%d\t%d\n", i, off)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(infoCmd)
	infoCmd.Flags().Bool("offsets", false, "List every record offset")
}
