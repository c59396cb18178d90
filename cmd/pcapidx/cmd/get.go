package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

// getCmd represents the get command
var getCmd = &cobra.Command{
	Use:   "get <pcap> <n>...",
	Short: "Read records by index",
	Long: `Read records of a capture by their zero-based index using the offset
table.

Example:
  pcapidx get trace.pcap 0 9 3
  pcapidx get --hex trace.pcap 42`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		dump, _ := cmd.Flags().GetBool("hex")

		indexes := make([]int, 0, len(args)-1)
		for _, arg := range args[1:] {
			i, err := strconv.Atoi(arg)
			if err != nil {
				return fmt.Errorf("invalid record index %q", arg)
			}
			indexes = append(indexes, i)
		}

		r, err := openCapture(cmd, args[0])
		if err != nil {
			return err
		}
		defer r.Close()

		for _, i := range indexes {
			pkt, err := r.Get(i)
			if err != nil {
				return fmt.Errorf("error getting record %d: %w", i, err)
			}
			printPacket(cmd.OutOrStdout(), i, pkt, r.LinkType(), dump)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(getCmd)
	getCmd.Flags().Bool("hex", false, "Hex dump each payload")
}
