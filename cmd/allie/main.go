// Allie turns household chat messages into structured family actions.
//
// It exposes an HTTP API for the chat front end and a CLI for one-shot
// dispatches and operational queries. Configuration is loaded from a
// single YAML file discovered automatically (see
// [config.DefaultSearchPaths]).
//
// Usage:
//
//	allie serve               Start the API server
//	allie init [dir]          Initialize a working directory with defaults
//	allie ask <message>       Dispatch a single message
//	allie diagnose            Show handler coverage for every action kind
//	allie stats [kind]        Show learning ledger statistics
//	allie version             Print version and build information
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/stefanpalsson415/parentcopy-new-sub002/internal/config"
)

// main constructs the OS-level environment and delegates to [run] so
// the command tree can be driven from tests.
func main() {
	ctx := context.Background()

	if err := run(ctx, os.Stdout, os.Stderr, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
}

// globalFlags are the persistent flags shared by every subcommand.
type globalFlags struct {
	configPath string
	logLevel   string
}

// run builds a fresh command tree and executes it with args. Nothing is
// held in package state, so tests may call run concurrently.
func run(ctx context.Context, stdout io.Writer, stderr io.Writer, args []string) error {
	root := newRootCmd(stdout, stderr)
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	var gf globalFlags

	root := &cobra.Command{
		Use:           "allie",
		Short:         "Allie family action service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	root.PersistentFlags().StringVar(&gf.configPath, "config", "", "path to config file (default: auto-discover)")
	root.PersistentFlags().StringVar(&gf.logLevel, "log-level", "", "override logging.level from the config file")

	root.AddCommand(
		newServeCmd(&gf, stdout),
		newInitCmd(stdout),
		newAskCmd(&gf, stdout, stderr),
		newDiagnoseCmd(&gf, stdout, stderr),
		newStatsCmd(&gf, stdout, stderr),
		newIdentityCmd(&gf, stdout, stderr),
		newVersionCmd(stdout),
	)
	return root
}

// loadConfig locates and parses the YAML configuration file. If explicit
// is non-empty, that exact path is used (and must exist). Otherwise,
// [config.FindConfig] searches the default locations.
func loadConfig(explicit string) (*config.Config, string, error) {
	cfgPath, err := config.FindConfig(explicit)
	if err != nil {
		return nil, "", err
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, cfgPath, fmt.Errorf("load config %s: %w", cfgPath, err)
	}

	return cfg, cfgPath, nil
}

// setup loads the config and builds the process logger, applying the
// --log-level override.
func setup(gf *globalFlags, w io.Writer) (*config.Config, *slog.Logger, error) {
	cfg, cfgPath, err := loadConfig(gf.configPath)
	if err != nil {
		return nil, nil, err
	}
	if gf.logLevel != "" {
		if _, err := config.ParseLogLevel(gf.logLevel); err != nil {
			return nil, nil, fmt.Errorf("--log-level: %w", err)
		}
		cfg.Logging.Level = gf.logLevel
	}

	logger, err := config.NewLogger(w, cfg.Logging)
	if err != nil {
		return nil, nil, err
	}
	logger.Debug("config loaded", "path", cfgPath)
	return cfg, logger, nil
}
