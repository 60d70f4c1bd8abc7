package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/coral-mesh/dwarfsql/internal/errors"
	"github.com/coral-mesh/dwarfsql/internal/query"
)

func newQueryCmd(a *app) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "query <binary> <sql>",
		Short: "Run one SQL query against a binary",
		Long: `Loads the debug information of a binary and runs one SQL statement.
Pass "-" as the statement to read it from standard input.

Examples:
  dwarfsql query ./app "SELECT name FROM functions WHERE is_external"
  dwarfsql query ./app "SELECT * FROM structs" -f json
  echo "SELECT count(*) FROM variables" | dwarfsql query ./app -`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := query.ParseFormat(format)
			if err != nil {
				return errors.WithExitCode(err, exitUsage)
			}

			sql := args[1]
			if sql == "-" {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("failed to read query: %w", err)
				}
				sql = string(data)
			}
			if strings.TrimSpace(sql) == "" {
				return fmt.Errorf("empty query")
			}

			store, err := a.openStore(cmd.Context(), cmd, args[0])
			if err != nil {
				return err
			}
			defer errors.DeferClose(a.logger, store, "Failed to close database")

			res, err := store.Query(cmd.Context(), sql)
			if err != nil {
				return fmt.Errorf("query failed: %w", err)
			}
			return query.Write(cmd.OutOrStdout(), f, res)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "table", "Output format (table, csv, json)")

	return cmd
}
