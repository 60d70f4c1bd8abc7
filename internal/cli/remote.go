package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/coral-mesh/dwarfsql/internal/errors"
	"github.com/coral-mesh/dwarfsql/internal/httpapi"
	"github.com/coral-mesh/dwarfsql/internal/query"
)

func newRemoteCmd(a *app) *cobra.Command {
	var (
		format   string
		timeout  time.Duration
		shutdown bool
	)

	cmd := &cobra.Command{
		Use:   "remote <host:port> [sql]",
		Short: "Query a running dwarfsql server",
		Long: `Sends a query to a server started with 'dwarfsql serve'. Without a
statement it prints the server status.

Examples:
  dwarfsql remote localhost:17199
  dwarfsql remote localhost:17199 "SELECT name FROM functions LIMIT 10"
  dwarfsql remote localhost:17199 --shutdown`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := query.ParseFormat(format)
			if err != nil {
				return errors.WithExitCode(err, exitUsage)
			}

			client := httpapi.NewClient(args[0], a.cfg.Server.Token, timeout)
			ctx := cmd.Context()

			if shutdown {
				if err := client.Shutdown(ctx); err != nil {
					return err
				}
				cmd.Println("Shutdown requested")
				return nil
			}

			if len(args) == 1 {
				status, err := client.Status(ctx)
				if err != nil {
					return err
				}
				return writeStatus(cmd.OutOrStdout(), status)
			}

			sql := args[1]
			if strings.TrimSpace(sql) == "" {
				return fmt.Errorf("empty query")
			}
			res, err := client.Query(ctx, sql)
			if err != nil {
				return err
			}
			return query.Write(cmd.OutOrStdout(), f, res)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "table", "Output format (table, csv, json)")
	cmd.Flags().String("token", "", "Bearer token")
	cmd.Flags().DurationVar(&timeout, "timeout", time.Minute, "Request timeout")
	cmd.Flags().BoolVar(&shutdown, "shutdown", false, "Ask the server to stop")

	return cmd
}

func writeStatus(out io.Writer, s *httpapi.Status) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "status\t%s\n", s.Status)
	_, _ = fmt.Fprintf(w, "binary\t%s\n", s.Binary)
	_, _ = fmt.Fprintf(w, "fingerprint\t%s\n", s.Fingerprint)
	_, _ = fmt.Fprintf(w, "engine\t%s\n", s.Engine)
	_, _ = fmt.Fprintf(w, "loaded_at\t%s\n", s.LoadedAt.Format(time.RFC3339))
	_, _ = fmt.Fprintf(w, "version\t%s\n", s.Version)
	_, _ = fmt.Fprintf(w, "uptime\t%s\n", s.Uptime)
	_, _ = fmt.Fprintln(w)
	for _, t := range s.Tables {
		_, _ = fmt.Fprintf(w, "%s\t%d\n", t.Name, t.Rows)
	}
	return w.Flush()
}
