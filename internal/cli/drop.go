package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var dropCmd = &cobra.Command{
	Use:   "drop <dbname>",
	Args:  cobra.ExactArgs(1),
	Short: "Delete an existing database from the data directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		dbname := args[0]

		if db != nil && dbName == dbname {
			return fmt.Errorf("%s is open, close it first", dbname)
		}

		dbDir := filepath.Dir(cfg.DatabasePath(dbname))
		if _, err := os.Stat(dbDir); err != nil {
			return fmt.Errorf("%s does not exist", dbname)
		}

		if err := os.RemoveAll(dbDir); err != nil {
			return err
		}

		_ = os.Remove(cfg.LogPath(dbname))

		fmt.Fprintf(cmd.OutOrStdout(), "Database %s deleted\n", dbname)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(dropCmd)
}
