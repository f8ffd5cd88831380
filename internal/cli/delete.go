package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var deleteCmd = &cobra.Command{
	Use:   "delete <key>",
	Args:  cobra.ExactArgs(1),
	Short: "Remove <key> and its value",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireDB(); err != nil {
			return err
		}

		key, err := parseKey(args[0])
		if err != nil {
			return err
		}

		if err := db.Erase(key); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "%d deleted\n", key)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(deleteCmd)
}
