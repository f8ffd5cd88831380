package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.boson/internal/engine"
)

var createCmd = &cobra.Command{
	Use:   "create <dbname>",
	Args:  cobra.ExactArgs(1),
	Short: "Create a new database in the data directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		dbname := args[0]

		if _, err := os.Stat(cfg.DatabasePath(dbname)); err == nil {
			return fmt.Errorf("%s already exists", dbname)
		}

		created, err := engine.OpenNamed(dbname, cfg)
		if err != nil {
			return err
		}
		if err := created.Close(); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Database %s created\n", dbname)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(createCmd)
}
