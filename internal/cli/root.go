// Package cli implements the dwarfsql command line.
package cli

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/coral-mesh/dwarfsql/internal/catalog"
	"github.com/coral-mesh/dwarfsql/internal/config"
	"github.com/coral-mesh/dwarfsql/internal/constants"
	"github.com/coral-mesh/dwarfsql/internal/errors"
	"github.com/coral-mesh/dwarfsql/internal/logging"
	"github.com/coral-mesh/dwarfsql/pkg/version"
)

// exitUsage is the exit status for invalid configuration or arguments.
const exitUsage = 2

// app carries the state shared by the subcommands of one invocation.
type app struct {
	configPath string

	// openSession overrides how binaries are opened.
	openSession catalog.SessionOpener

	cfg    *config.Config
	logger zerolog.Logger
}

// NewRootCmd creates the dwarfsql command tree.
func NewRootCmd() *cobra.Command {
	return newRootCmd(&app{})
}

func newRootCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dwarfsql",
		Short: "Query DWARF debug information with SQL",
		Long: `dwarfsql loads the DWARF debug information of an ELF or Mach-O binary
into relational tables and lets you query them with SQL.

Tables cover compilation units, line tables, functions, parameters, local
and global variables, types, structs and their members, enums, base classes,
call sites, inlined calls and namespaces. Run 'dwarfsql tables' for the
full schema.

Examples:
  dwarfsql query ./app "SELECT name, low_pc FROM functions ORDER BY low_pc"
  dwarfsql shell ./app
  dwarfsql serve ./app --watch
  dwarfsql callgraph ./app --root main --depth 2`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "Config file (default ~/.dwarfsql/config.yaml)")
	pf.String("log-level", "warn", "Log level (trace, debug, info, warn, error)")
	pf.String("engine", constants.DefaultEngine, "Database engine (duckdb or sqlite)")
	pf.Bool("cache", false, "Persist loaded databases in the cache directory")
	pf.Int("threads", 0, "Engine worker threads (0 keeps the engine default)")

	cmd.AddCommand(
		newQueryCmd(a),
		newShellCmd(a),
		newServeCmd(a),
		newRemoteCmd(a),
		newMCPCmd(a),
		newTablesCmd(a),
		newCallGraphCmd(a),
		newVersionCmd(),
	)

	return cmd
}

// setup loads the layered configuration and builds the logger.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.NewLoader().Load(a.configPath, cmd.Flags())
	if err != nil {
		return errors.WithExitCode(err, exitUsage)
	}
	a.cfg = cfg

	logCfg := logging.DefaultConfig()
	logCfg.Level = cfg.Log.Level
	logCfg.Output = cmd.ErrOrStderr()
	logCfg.Pretty = cfg.Log.Pretty || logging.IsTerminal(logCfg.Output)
	a.logger = logging.New(logCfg)
	return nil
}

// openStore loads the binary at path with the configured engine.
func (a *app) openStore(ctx context.Context, cmd *cobra.Command, path string) (*catalog.Store, error) {
	store, err := catalog.Open(ctx, catalog.Options{
		Path:        path,
		Engine:      a.cfg.Engine.Kind,
		Cache:       a.cfg.Engine.Cache,
		CacheDir:    a.cfg.Engine.CacheDir,
		Threads:     a.cfg.Engine.Threads,
		Progress:    newProgress(cmd.ErrOrStderr()),
		Logger:      a.logger,
		OpenSession: a.openSession,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}
	return store, nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Printf("dwarfsql %s\n", version.String())
			cmd.Printf("Git commit: %s\n", version.GitCommit)
			cmd.Printf("Build date: %s\n", version.BuildDate)
		},
	}
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	return NewRootCmd().ExecuteContext(ctx)
}
