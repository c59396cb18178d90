package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/kballard/go-shellquote"
	"github.com/spf13/cobra"

	"github.com/ssargent/pcapidx/pkg/pcapindex"
)

const shellHelp = `Commands:
  get <n>...   read records by index
  next         read the record at the cursor
  offset <n>   show the byte offset of record n
  len          show the number of records
  rewind       move the cursor to the first record
  hex on|off   toggle payload hex dumps
  help         show this help
  exit         leave the shell`

// shellCmd represents the shell command
var shellCmd = &cobra.Command{
	Use:   "shell <pcap>",
	Short: "Browse a capture interactively",
	Long: `Open a capture and read records interactively by index or in sequence.

Example:
  pcapidx shell trace.pcap`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := openCapture(cmd, args[0])
		if err != nil {
			return err
		}
		defer r.Close()

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Opened %s: %d records (index %s)\n", r.Path(), r.Len(), r.IndexLocation())
		fmt.Fprintln(out, "Type commands. 'help' for information or 'exit' to quit.")

		return runShell(r, cmd.InOrStdin(), out)
	},
}

func init() {
	rootCmd.AddCommand(shellCmd)
}

// shellSession is the state of one interactive session
type shellSession struct {
	reader *pcapindex.Reader
	out    io.Writer
	dump   bool
	cursor int
}

// runShell reads commands from in until exit or end of input.
func runShell(r *pcapindex.Reader, in io.Reader, out io.Writer) error {
	s := &shellSession{reader: r, out: out}
	reader := bufio.NewReader(in)

	for {
		fmt.Fprint(out, "> ")

		line, err := reader.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("input error: %w", err)
		}
		eof := err != nil

		line = strings.TrimSpace(line)
		if line != "" {
			words, perr := shellquote.Split(line)
			if perr != nil {
				fmt.Fprintln(out, "parse error:", perr)
			} else if quit := s.execute(words); quit {
				return nil
			}
		}

		if eof {
			fmt.Fprintln(out)
			return nil
		}
	}
}

// execute runs one command line and reports whether the session should end.
func (s *shellSession) execute(words []string) bool {
	switch strings.ToLower(words[0]) {
	case "exit", "quit":
		return true

	case "help":
		fmt.Fprintln(s.out, shellHelp)

	case "len":
		fmt.Fprintln(s.out, s.reader.Len())

	case "rewind":
		if err := s.reader.Rewind(); err != nil {
			fmt.Fprintln(s.out, "error:", err)
			return false
		}
		s.cursor = 0

	case "next":
		pkt, err := s.reader.Next()
		if errors.Is(err, io.EOF) {
			fmt.Fprintln(s.out, "end of capture")
			return false
		}
		if err != nil {
			fmt.Fprintln(s.out, "error:", err)
			return false
		}
		printPacket(s.out, s.cursor, pkt, s.reader.LinkType(), s.dump)
		s.cursor++

	case "get":
		if len(words) < 2 {
			fmt.Fprintln(s.out, "usage: get <n>...")
			return false
		}
		for _, arg := range words[1:] {
			i, ok := s.parseIndex(arg)
			if !ok {
				return false
			}
			pkt, err := s.reader.Get(i)
			if err != nil {
				fmt.Fprintln(s.out, "error:", err)
				return false
			}
			printPacket(s.out, i, pkt, s.reader.LinkType(), s.dump)
			s.cursor = i + 1
		}

	case "offset":
		if len(words) != 2 {
			fmt.Fprintln(s.out, "usage: offset <n>")
			return false
		}
		i, ok := s.parseIndex(words[1])
		if !ok {
			return false
		}
		offsets := s.reader.Offsets()
		if i < 0 || i >= len(offsets) {
			fmt.Fprintf(s.out, "error: %v: %d\n", pcapindex.ErrOutOfRange, i)
			return false
		}
		fmt.Fprintln(s.out, offsets[i])

	case "hex":
		if len(words) != 2 || (words[1] != "on" && words[1] != "off") {
			fmt.Fprintln(s.out, "usage: hex on|off")
			return false
		}
		s.dump = words[1] == "on"

	default:
		fmt.Fprintf(s.out, "unknown command %q, try 'help'\n", words[0])
	}
	return false
}

func (s *shellSession) parseIndex(arg string) (int, bool) {
	i, err := strconv.Atoi(arg)
	if err != nil {
		fmt.Fprintf(s.out, "invalid record index %q\n", arg)
		return 0, false
	}
	return i, true
}
