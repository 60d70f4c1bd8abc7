package cli

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/coral-mesh/dwarfsql/internal/catalog"
)

func newTablesCmd(a *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "tables [table]",
		Short: "Describe the tables and their columns",
		Long: `Prints the schema of every table, or of one table. No binary is needed.
Column types follow the configured engine.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dialect := catalog.Info{Engine: a.cfg.Engine.Kind}.Dialect()

			docs := catalog.Schema(dialect)
			if len(args) == 1 {
				doc, ok := catalog.Describe(args[0], dialect)
				if !ok {
					return fmt.Errorf("unknown table: %s", args[0])
				}
				docs = []catalog.TableDoc{doc}
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(docs)
			}
			return writeSchema(cmd, docs)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")

	return cmd
}

func writeSchema(cmd *cobra.Command, docs []catalog.TableDoc) error {
	out := cmd.OutOrStdout()
	for i, doc := range docs {
		if i > 0 {
			_, _ = fmt.Fprintln(out)
		}
		_, _ = fmt.Fprintf(out, "%s: %s\n", doc.Name, doc.Description)

		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		for _, col := range doc.Columns {
			_, _ = fmt.Fprintf(w, "  %s\t%s\t%s\n", col.Name, col.Type, col.Description)
		}
		if err := w.Flush(); err != nil {
			return err
		}
	}
	return nil
}
