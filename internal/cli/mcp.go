package cli

import (
	"github.com/spf13/cobra"

	"github.com/coral-mesh/dwarfsql/internal/catalog"
	"github.com/coral-mesh/dwarfsql/internal/errors"
	"github.com/coral-mesh/dwarfsql/internal/mcp"
	"github.com/coral-mesh/dwarfsql/pkg/version"
)

func newMCPCmd(a *app) *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "mcp <binary>",
		Short: "Serve a binary to MCP clients over stdio",
		Long: `Runs a Model Context Protocol server on stdin/stdout so assistants can
query the debug information of a binary.

Tools:
  dwarf_query           - Run SQL
  dwarf_list_tables     - Tables with row counts
  dwarf_describe_table  - Columns of one table
  dwarf_find_functions  - Glob search over function names
  dwarf_struct_layout   - Members of a struct in offset order
  dwarf_call_graph      - Callers or callees of a function

Restrict the tool set with mcp.enabled_tools in the config file.

Example client configuration:
  {"command": "dwarfsql", "args": ["mcp", "/path/to/app"]}`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := a.openStore(ctx, cmd, args[0])
			if err != nil {
				return err
			}
			defer errors.DeferClose(a.logger, store, "Failed to close database")

			if watch {
				w, err := catalog.NewWatcher(store, args[0], a.cfg.Server.WatchDebounce, a.logger)
				if err != nil {
					return err
				}
				w.Start(ctx)
				defer w.Stop()
			}

			srv, err := mcp.New(store, mcp.Config{
				EnabledTools: a.cfg.MCP.EnabledTools,
				Audit:        a.cfg.MCP.Audit,
				Version:      version.Version,
			}, a.logger)
			if err != nil {
				return err
			}
			return srv.ServeStdio(ctx, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	cmd.Flags().BoolVar(&watch, "watch", false, "Reload when the binary changes")

	return cmd
}
