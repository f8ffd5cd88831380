package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.boson/internal/config"
	"go.boson/internal/engine"
)

var (
	homeFlag   string
	configFlag string

	cfg    *config.Config
	db     *engine.Database
	dbName string
)

var rootCmd = &cobra.Command{
	Use:   "boson <path>",
	Short: "Boson - embedded B+tree key value store",
	Args:  cobra.ExactArgs(1),
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cfg != nil {
			return nil
		}

		var err error
		cfg, err = config.LoadConfig(homeFlag, configFlag)
		return err
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		// Inside the REPL a stray word lands here
		if db != nil {
			return fmt.Errorf("unknown command %q", args[0])
		}

		var err error
		db, err = engine.OpenPath(args[0], cfg)
		if err != nil {
			return fmt.Errorf("Failed to open Database: %w", err)
		}
		dbName = args[0]

		startREPL(cmd)
		return closeDB()
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println("Error: ", err)
		os.Exit(1)
	}
}

func requireDB() error {
	if db == nil {
		return fmt.Errorf("no database is open")
	}
	return nil
}

func closeDB() error {
	if db == nil {
		return nil
	}

	err := db.Close()
	db, dbName = nil, ""
	return err
}

func init() {
	rootCmd.PersistentFlags().StringVar(&homeFlag, "home", "", "application home (default $BOSON_HOME or ~/.local/share/boson)")
	rootCmd.PersistentFlags().StringVar(&configFlag, "config", "", "config file (default <home>/config.yaml)")

	rootCmd.AddCommand(insertCmd)
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(exitCmd)
}
