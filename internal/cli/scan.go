package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	scanFrom    uint64
	scanLimit   int
	scanReverse bool
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "List entries in key order",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireDB(); err != nil {
			return err
		}

		var (
			key uint64
			val string
			ok  bool
			err error
		)

		switch {
		case scanReverse:
			key, val, ok, err = db.Last()
		case scanFrom > 0:
			key, val, ok, err = db.Seek(scanFrom)
		default:
			key, val, ok, err = db.First()
		}

		out := cmd.OutOrStdout()
		for n := 0; ok && err == nil; n++ {
			if scanLimit > 0 && n >= scanLimit {
				fmt.Fprintln(out, "...")
				return nil
			}

			fmt.Fprintf(out, "%d\t%s\n", key, val)

			if scanReverse {
				key, val, ok, err = db.Prev()
			} else {
				key, val, ok, err = db.Next()
			}
		}

		return err
	},
}

func init() {
	scanCmd.Flags().Uint64Var(&scanFrom, "from", 0, "first key to list")
	scanCmd.Flags().IntVar(&scanLimit, "limit", 20, "maximum entries to list, 0 lists all")
	scanCmd.Flags().BoolVar(&scanReverse, "reverse", false, "list from the largest key down")

	rootCmd.AddCommand(scanCmd)
}
