package cmd

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// catCmd represents the cat command
var catCmd = &cobra.Command{
	Use:   "cat <pcap>",
	Short: "Print records sequentially",
	Long: `Print the records of a capture in order. With --start the listing begins
at that record, located through the offset table.

Example:
  pcapidx cat trace.pcap
  pcapidx cat --start 100 --limit 10 trace.pcap`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		start, _ := cmd.Flags().GetInt("start")
		limit, _ := cmd.Flags().GetInt("limit")
		dump, _ := cmd.Flags().GetBool("hex")

		if start < 0 {
			return fmt.Errorf("invalid start %d", start)
		}

		r, err := openCapture(cmd, args[0])
		if err != nil {
			return err
		}
		defer r.Close()

		out := cmd.OutOrStdout()
		printed := 0
		i := start

		if start > 0 {
			pkt, err := r.Get(start)
			if err != nil {
				return fmt.Errorf("error getting record %d: %w", start, err)
			}
			printPacket(out, i, pkt, r.LinkType(), dump)
			printed++
			i++
		}

		for limit <= 0 || printed < limit {
			pkt, err := r.Next()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				return fmt.Errorf("error reading record %d: %w", i, err)
			}
			printPacket(out, i, pkt, r.LinkType(), dump)
			printed++
			i++
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(catCmd)
	catCmd.Flags().Int("start", 0, "First record to print")
	catCmd.Flags().Int("limit", 0, "Maximum number of records to print (0 for all)")
	catCmd.Flags().Bool("hex", false, "Hex dump each payload")
}
