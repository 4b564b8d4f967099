package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"
)

var (
	version = "0.1.0-preview"
	commit  = "dev"
	date    = "unknown"
)

// Log verbosity from the -v flag
var verbosity int

func main() {
	var cwd string

	var rootCmd = &cobra.Command{
		Use:   "rill",
		Short: "Rill - reactive template compiler",
		Long: `Rill compiles .rill templates, markup with an embedded script, into
JavaScript modules that create, update and destroy DOM nodes directly and
recompute only what depends on changed state.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			commonlog.Configure(verbosity, nil)
			if cwd != "" {
				if err := os.Chdir(cwd); err != nil {
					return fmt.Errorf("failed to change directory to %s: %w", cwd, err)
				}
			}
			return nil
		},
	}

	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "Log verbosity (repeat for more)")
	rootCmd.PersistentFlags().StringVar(&cwd, "cwd", "", "Project directory (defaults to current)")

	// Add commands
	rootCmd.AddCommand(newCompileCommand())
	rootCmd.AddCommand(newWatchCommand())
	rootCmd.AddCommand(newDevCommand())
	rootCmd.AddCommand(newLSPCommand())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
