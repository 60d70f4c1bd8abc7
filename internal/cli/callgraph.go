package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/coral-mesh/dwarfsql/internal/callgraph"
	"github.com/coral-mesh/dwarfsql/internal/constants"
	"github.com/coral-mesh/dwarfsql/internal/errors"
)

func newCallGraphCmd(a *app) *cobra.Command {
	var (
		root    string
		depth   int
		dot     bool
		callers bool
	)

	cmd := &cobra.Command{
		Use:   "callgraph <binary>",
		Short: "Show the call graph recorded in call-site entries",
		Long: `Builds a call graph from DW_TAG_call_site entries. Compilers emit them
for optimised code (e.g. -O2 -g with GCC or Clang).

Without --root every call is listed. With --root the callees (or, with
--callers, the callers) of that function are shown up to --depth hops.

Examples:
  dwarfsql callgraph ./app
  dwarfsql callgraph ./app --root main --depth 2
  dwarfsql callgraph ./app --root malloc --callers --dot | dot -Tsvg > callers.svg`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := a.openStore(ctx, cmd, args[0])
			if err != nil {
				return err
			}
			defer errors.DeferClose(a.logger, store, "Failed to close database")

			calls, err := store.CallSites(ctx)
			if err != nil {
				return err
			}
			g, err := callgraph.Build(calls)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			dir := callgraph.Callees
			if callers {
				dir = callgraph.Callers
			}

			if root == "" {
				if dot {
					return g.WriteDOT(out)
				}
				writeEdges(out, g)
				return nil
			}

			roots := g.Lookup(root)
			if len(roots) == 0 {
				return fmt.Errorf("%w: %s", callgraph.ErrUnknownFunction, root)
			}

			for i, r := range roots {
				if dot {
					sub, err := g.Neighbourhood(r.Offset, dir, depth)
					if err != nil {
						return err
					}
					if err := sub.WriteDOT(out); err != nil {
						return err
					}
					continue
				}

				hits, err := g.Walk(r.Offset, dir, depth)
				if err != nil {
					return err
				}
				if i > 0 {
					_, _ = fmt.Fprintln(out)
				}
				writeHits(out, r, dir, hits)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&root, "root", "", "Function to start from")
	cmd.Flags().IntVar(&depth, "depth", constants.DefaultCallDepth, "Maximum number of hops from --root")
	cmd.Flags().BoolVar(&dot, "dot", false, "Output Graphviz DOT")
	cmd.Flags().BoolVar(&callers, "callers", false, "Follow callers instead of callees")

	return cmd
}

func writeEdges(out io.Writer, g *callgraph.Graph) {
	for _, e := range g.Edges() {
		_, _ = fmt.Fprintf(out, "%s -> %s\n", e[0].Name, e[1].Name)
	}
	_, _ = fmt.Fprintf(out, "\n(%d functions, %d calls)\n", g.Order(), g.Size())
}

func writeHits(out io.Writer, root callgraph.Node, dir callgraph.Direction, hits []callgraph.Hit) {
	_, _ = fmt.Fprintf(out, "%s (0x%x) %s:\n", root.Name, root.Offset, dir)
	if len(hits) == 0 {
		_, _ = fmt.Fprintln(out, "  (none)")
		return
	}
	for _, h := range hits {
		_, _ = fmt.Fprintf(out, "%s%s\n", strings.Repeat("  ", h.Depth), h.Name)
	}
}
