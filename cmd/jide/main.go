package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/tliron/commonlog"

	_ "github.com/tliron/commonlog/simple"

	"github.com/dhamidi/jide/config"
	"github.com/dhamidi/jide/project"
)

var version = "0.1.0"

// Logging flags shared by every command.
var (
	verbosity int
	logFile   string
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "jide",
		Short:        "Incremental Java project analysis and compilation",
		SilenceUsage: true,
	}
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		configureLogging(verbosity, logFile)
	}
	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "increase log verbosity")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "write logs to this file instead of stderr")

	rootCmd.AddCommand(newParseCmd())
	rootCmd.AddCommand(newDepsCmd())
	rootCmd.AddCommand(newCompileCmd())
	rootCmd.AddCommand(newWatchCmd())
	rootCmd.AddCommand(newCtxtCmd())
	rootCmd.AddCommand(newLSPCmd())
	rootCmd.AddCommand(newVersionCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func configureLogging(verbosity int, file string) {
	var path *string
	if file != "" {
		path = &file
	}
	commonlog.Configure(verbosity, path)
}

// openProject loads the configuration of dir, discovers its sources and
// returns both. Logging settings from the file apply unless flags were
// given.
func openProject(ctx context.Context, cmd *cobra.Command, dir string) (*project.Project, *config.Config, error) {
	cfg, err := config.LoadDir(dir)
	if err != nil {
		return nil, nil, err
	}
	flags := cmd.Flags()
	if !flags.Changed("verbose") && !flags.Changed("log-file") && (cfg.Log.Verbosity > 0 || cfg.Log.File != "") {
		configureLogging(cfg.Log.Verbosity, cfg.Log.File)
	}

	p, err := project.New(dir, cfg.ProjectOptions(dir))
	if err != nil {
		return nil, nil, err
	}
	if _, err := p.Discover(ctx); err != nil {
		return nil, nil, fmt.Errorf("discover %s: %w", p.RootDir, err)
	}
	return p, cfg, nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "jide", version)
		},
	}
}
