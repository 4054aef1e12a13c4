package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/gradecal/internal/config"
)

// version is set at build time via ldflags.
var version = "dev"

// Global persistent flags, bound in newRootCmd().
var (
	flagConfigPath string
	flagStateDir   string
	flagJSON       bool
	flagVerbose    bool
	flagQuiet      bool
)

// CLIFlags is a snapshot of the persistent flags for one invocation.
type CLIFlags struct {
	ConfigPath string
	StateDir   string
	JSON       bool
	Verbose    bool
	Quiet      bool
}

// CLIContext carries everything PersistentPreRunE resolved to the
// subcommand that runs next.
type CLIContext struct {
	Flags   CLIFlags
	Cfg     *config.Config
	CfgPath string
	Logger  *slog.Logger

	closeLog func()
}

type cliContextKey struct{}

// mustCLIContext returns the CLIContext stored by PersistentPreRunE. A
// missing context is a programming error.
func mustCLIContext(ctx context.Context) *CLIContext {
	cc, ok := ctx.Value(cliContextKey{}).(*CLIContext)
	if !ok || cc == nil {
		panic("gradecal: CLIContext missing from command context")
	}

	return cc
}

// newRootCmd builds and returns the fully-assembled root command with all
// subcommands registered. Called once from main().
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gradecal",
		Short: "Gradescope to Google Calendar sync",
		Long: `Keep a Google Calendar in step with Gradescope assignment deadlines.

Each pass fetches a user's assignments, reconciles them with the stored
cache, and applies the resulting event creates and updates in one batch.`,
		Version: version,
		// Silence Cobra's default error/usage printing; main handles it.
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cc, err := newCLIContext(cmd)
			if err != nil {
				return err
			}

			cmd.SetContext(context.WithValue(cmd.Context(), cliContextKey{}, cc))

			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if cc, ok := cmd.Context().Value(cliContextKey{}).(*CLIContext); ok && cc.closeLog != nil {
				cc.closeLog()
			}
		},
	}

	cmd.PersistentFlags().StringVar(&flagConfigPath, "config", "", "config file path")
	cmd.PersistentFlags().StringVar(&flagStateDir, "state-dir", "", "directory holding the database")
	cmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "output in JSON format")
	cmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")
	cmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "suppress informational output")

	cmd.AddCommand(newSyncCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newReloadCmd())
	cmd.AddCommand(newUserCmd())
	cmd.AddCommand(newSettingsCmd())
	cmd.AddCommand(newCoursesCmd())
	cmd.AddCommand(newLoginCmd())
	cmd.AddCommand(newCalendarsCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newExportCmd())
	cmd.AddCommand(newConfigCmd())

	return cmd
}

// newCLIContext snapshots the flags, resolves the effective configuration,
// and builds the logger from it.
func newCLIContext(cmd *cobra.Command) (*CLIContext, error) {
	flags := CLIFlags{
		ConfigPath: flagConfigPath,
		StateDir:   flagStateDir,
		JSON:       flagJSON,
		Verbose:    flagVerbose,
		Quiet:      flagQuiet,
	}

	cfg, path, err := loadConfig(cmd, flags)
	if err != nil {
		return nil, err
	}

	cc := &CLIContext{Flags: flags, Cfg: cfg, CfgPath: path}
	cc.Logger, cc.closeLog = buildLogger(cfg, flags)

	cc.Logger.Debug("config resolved",
		slog.String("config_path", path),
		slog.String("state_dir", cfg.StatePath()),
	)

	return cc, nil
}

// loadConfig resolves the effective configuration from the four-layer
// override chain: defaults, file, environment, flags.
func loadConfig(cmd *cobra.Command, flags CLIFlags) (*config.Config, string, error) {
	env, err := config.ReadEnvOverrides()
	if err != nil {
		return nil, "", fmt.Errorf("loading config: %w", err)
	}

	cli := cliOverrides(cmd, flags)
	path := config.ResolvePath(env, cli)

	cfg, err := config.Resolve(path, env, cli)
	if err != nil {
		return nil, "", fmt.Errorf("loading config: %w", err)
	}

	return cfg, path, nil
}

// cliOverrides returns the flag layer of the override chain.
func cliOverrides(cmd *cobra.Command, flags CLIFlags) config.CLIOverrides {
	cli := config.CLIOverrides{ConfigPath: flags.ConfigPath}

	// Only pass --state-dir to the resolver if the user explicitly set it.
	if cmd.Flags().Changed("state-dir") {
		stateDir := flags.StateDir
		cli.StateDir = &stateDir
	}

	return cli
}

// exitOnError prints a user-friendly error message to stderr and exits.
func exitOnError(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
