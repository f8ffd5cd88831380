package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Starts an interactive command session
// Forwards commands to cobra
func startREPL(root *cobra.Command) {
	reader := bufio.NewScanner(os.Stdin)

	for {
		fmt.Printf("%s> ", prompt())

		if !reader.Scan() {
			return
		}

		// Get the command typed by the user
		input := strings.TrimSpace(reader.Text())

		// Check for blank input
		if input == "" {
			continue
		}

		args := strings.Fields(input)

		// Flags keep their values between executions
		resetFlags(root)

		// Pass the command back to root
		root.SetArgs(args)

		// Execute the command
		// We don't have to do anything with the error here - it's handled in root
		_ = root.ExecuteContext(context.Background())
	}
}

func prompt() string {
	if dbName == "" {
		return "boson"
	}
	return "boson:" + dbName
}

func resetFlags(cmd *cobra.Command) {
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	})

	for _, sub := range cmd.Commands() {
		resetFlags(sub)
	}
}
