package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.boson/internal/engine"
)

var openCmd = &cobra.Command{
	Use:   "open <dbname>",
	Short: "Switch to a database from the data directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dbname := args[0]

		if _, err := os.Stat(cfg.DatabasePath(dbname)); err != nil {
			return fmt.Errorf("%s does not exist, create it first", dbname)
		}

		next, err := engine.OpenNamed(dbname, cfg)
		if err != nil {
			return err
		}

		if err := closeDB(); err != nil {
			next.Close()
			return err
		}

		db, dbName = next, dbname
		fmt.Fprintf(cmd.OutOrStdout(), "Database %s opened\n", dbname)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(openCmd)
}
