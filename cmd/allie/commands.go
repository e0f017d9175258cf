package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/stefanpalsson415/parentcopy-new-sub002/internal/action"
	"github.com/stefanpalsson415/parentcopy-new-sub002/internal/buildinfo"
	"github.com/stefanpalsson415/parentcopy-new-sub002/internal/defaults"
	"github.com/stefanpalsson415/parentcopy-new-sub002/internal/identity"
	"github.com/stefanpalsson415/parentcopy-new-sub002/internal/ledger"
	"github.com/stefanpalsson415/parentcopy-new-sub002/internal/opstate"
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newInitCmd(stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "init [dir]",
		Short: "Initialize a working directory with defaults",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}
			return runInit(stdout, dir)
		},
	}
}

// runInit creates the data directory and writes the example config.
// Existing files are never overwritten.
func runInit(w io.Writer, dir string) error {
	fmt.Fprintf(w, "Initializing Allie workspace in %s\n", dir)

	dataDir := filepath.Join(dir, "data")
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dataDir, err)
	}

	// The config may hold API keys and the JWT secret.
	configPath := filepath.Join(dir, "config.yaml")
	if err := writeIfMissing(configPath, defaults.ConfigYAML, 0o600); err != nil {
		return err
	}
	fmt.Fprintf(w, "  ✓ %s\n", configPath)

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Edit config.yaml to point at your model provider, then run: allie serve")
	return nil
}

// writeIfMissing writes content to path only if the file does not
// already exist.
func writeIfMissing(path string, content []byte, perm os.FileMode) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	if err := os.WriteFile(path, content, perm); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func newAskCmd(gf *globalFlags, stdout, stderr io.Writer) *cobra.Command {
	var familyID, userID string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "ask <message>",
		Short: "Dispatch a single message and print the result",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(gf, stderr)
			if err != nil {
				return err
			}
			a, err := openApp(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			res := a.dispatcher.Dispatch(cmd.Context(), strings.Join(args, " "), familyID, userID)
			if asJSON {
				return writeJSON(stdout, res)
			}
			fmt.Fprintln(stdout, res.Message())
			if !res.OK() && res.Detail() != "" {
				fmt.Fprintf(stderr, "error: %s\n", res.Detail())
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&familyID, "family", "", "family id (default: last known or configured fallback)")
	cmd.Flags().StringVar(&userID, "user", "", "user id (default: last known or configured fallback)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the full result as JSON")
	return cmd
}

func newDiagnoseCmd(gf *globalFlags, stdout, stderr io.Writer) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "diagnose",
		Short: "Show handler coverage for every action kind",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := setup(gf, stderr)
			if err != nil {
				return err
			}
			a, err := openApp(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			diag := a.dispatcher.Diagnostics()
			if asJSON {
				return writeJSON(stdout, diag)
			}
			tw := table.NewWriter()
			tw.SetOutputMirror(stdout)
			tw.AppendHeader(table.Row{"Kind", "Handler", "Implemented"})
			for _, k := range action.Kinds() {
				d := diag[k]
				tw.AppendRow(table.Row{k, yesNo(d.HandlerExists), yesNo(d.Implemented)})
			}
			tw.Render()
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")
	return cmd
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func newStatsCmd(gf *globalFlags, stdout, stderr io.Writer) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "stats [kind]",
		Short: "Show learning ledger statistics",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := setup(gf, stderr)
			if err != nil {
				return err
			}
			var kind action.Kind
			if len(args) == 1 {
				k, ok := action.Parse(args[0])
				if !ok {
					return fmt.Errorf("unknown action kind: %s", args[0])
				}
				kind = k
			}
			if err := ensureDataDir(cfg); err != nil {
				return err
			}
			store, err := ledger.NewStore(filepath.Join(cfg.DataDir, ledgerDBName))
			if err != nil {
				return fmt.Errorf("open ledger: %w", err)
			}
			defer store.Close()

			ctx := cmd.Context()
			if len(args) == 0 {
				st, err := store.Stats(ctx, limit)
				if err != nil {
					return err
				}
				return writeJSON(stdout, st)
			}

			rate, err := store.SuccessRate(ctx, kind.String())
			if err != nil {
				return err
			}
			history, err := store.History(ctx, kind.String(), limit)
			if err != nil {
				return err
			}
			return writeJSON(stdout, map[string]any{
				"actionType": kind,
				"rate":       rate,
				"history":    history,
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of recent entries")
	return cmd
}

func newIdentityCmd(gf *globalFlags, stdout, stderr io.Writer) *cobra.Command {
	var reset bool

	cmd := &cobra.Command{
		Use:   "identity",
		Short: "Show or reset the remembered user and family",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := setup(gf, stderr)
			if err != nil {
				return err
			}
			if err := ensureDataDir(cfg); err != nil {
				return err
			}
			state, err := opstate.NewStore(filepath.Join(cfg.DataDir, stateDBName))
			if err != nil {
				return fmt.Errorf("open state store: %w", err)
			}
			defer state.Close()

			ctx := cmd.Context()
			bucket := state.Bucket(identityBucket)
			if reset {
				r := identity.NewResolver(bucket, cfg.Identity.FallbackUserID, cfg.Identity.FallbackFamilyID, logger)
				if err := r.Forget(ctx); err != nil {
					return err
				}
			}
			remembered, err := bucket.List(ctx)
			if err != nil {
				return err
			}
			return writeJSON(stdout, remembered)
		},
	}
	cmd.Flags().BoolVar(&reset, "reset", false, "forget the remembered ids")
	return cmd
}

func newVersionCmd(stdout io.Writer) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runVersion(stdout, asJSON)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")
	return cmd
}

// runVersion prints build metadata.
func runVersion(w io.Writer, asJSON bool) error {
	info := buildinfo.Info()
	if asJSON {
		return writeJSON(w, info)
	}
	fmt.Fprintln(w, buildinfo.String())
	// Stable order for human readability.
	for _, k := range []string{"version", "git_commit", "build_time", "go_version", "uptime"} {
		if v, ok := info[k]; ok {
			fmt.Fprintf(w, "  %-12s %s\n", k+":", v)
		}
	}
	return nil
}
