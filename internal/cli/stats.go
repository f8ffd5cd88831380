package cli

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show entry count and cache statistics",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireDB(); err != nil {
			return err
		}

		st, err := db.Stats()
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "entries:        %s\n", humanize.Comma(int64(st.Keys)))
		fmt.Fprintf(out, "file size:      %s\n", humanize.IBytes(uint64(st.EndOfFile)))
		fmt.Fprintf(out, "cache hit rate: %.2f%%\n", st.CacheHitRate)
		if st.ValueHitRatio > 0 {
			fmt.Fprintf(out, "value cache:    %.2f%% hits\n", st.ValueHitRatio*100)
		}
		return nil
	},
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify record chains, checksums and tree invariants",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireDB(); err != nil {
			return err
		}

		report, err := db.Check()
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "ok: %s live records (%s), %s free (%s), %s slack\n",
			humanize.Comma(int64(report.Records)), humanize.IBytes(report.LiveBytes),
			humanize.Comma(int64(report.FreeRecords)), humanize.IBytes(report.FreeBytes),
			humanize.IBytes(report.SlackBytes))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(checkCmd)
}
