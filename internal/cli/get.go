package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var getCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Retrieve value associated with <key>",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireDB(); err != nil {
			return err
		}

		key, err := parseKey(args[0])
		if err != nil {
			return err
		}

		val, err := db.Get(key)
		if err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), val)
		return nil
	},
}

// Keys are unsigned 64 bit integers
func parseKey(s string) (uint64, error) {
	key, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid key %q: keys are unsigned integers", s)
	}
	return key, nil
}
