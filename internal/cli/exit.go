package cli

import (
	"os"

	"github.com/spf13/cobra"
)

var exitCmd = &cobra.Command{
	Use:   "exit",
	Short: "Close the database and leave",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := closeDB(); err != nil {
			return err
		}

		os.Exit(0)
		return nil
	},
}
