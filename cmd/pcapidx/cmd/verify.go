package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// verifyCmd represents the verify command
var verifyCmd = &cobra.Command{
	Use:   "verify <pcap>...",
	Short: "Check offset tables against a sequential scan",
	Long: `Read every record of each capture through the offset table and compare
it with a sequential scan of the same capture.

Example:
  pcapidx verify trace.pcap`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, path := range args {
			r, err := openCapture(cmd, path)
			if err != nil {
				return err
			}

			n, err := r.Verify()
			r.Close()
			if err != nil {
				return fmt.Errorf("%s: verification failed after %d records: %w", path, n, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "OK %s: %d records verified\n", path, n)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(verifyCmd)
}
