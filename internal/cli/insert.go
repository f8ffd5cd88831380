package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var insertCmd = &cobra.Command{
	Use:   "insert <key> <value>",
	Short: "Create a new <key> <value> pair",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireDB(); err != nil {
			return err
		}

		key, err := parseKey(args[0])
		if err != nil {
			return err
		}

		if err := db.Insert(key, strings.Join(args[1:], " ")); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "%d created successfully!\n", key)
		return nil
	},
}

var appendCmd = &cobra.Command{
	Use:   "append <value>",
	Short: "Store <value> under the key after the largest one",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireDB(); err != nil {
			return err
		}

		key, err := db.Append(strings.Join(args, " "))
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "%d created successfully!\n", key)
		return nil
	},
}

var updateCmd = &cobra.Command{
	Use:   "update <key> <value>",
	Short: "Replace the value of an existing <key>",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireDB(); err != nil {
			return err
		}

		key, err := parseKey(args[0])
		if err != nil {
			return err
		}

		if err := db.Update(key, strings.Join(args[1:], " ")); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "%d updated\n", key)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(appendCmd)
	rootCmd.AddCommand(updateCmd)
}
