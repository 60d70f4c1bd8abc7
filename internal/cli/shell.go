package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/coral-mesh/dwarfsql/internal/catalog"
	"github.com/coral-mesh/dwarfsql/internal/constants"
	cerrors "github.com/coral-mesh/dwarfsql/internal/errors"
	"github.com/coral-mesh/dwarfsql/internal/extract"
	"github.com/coral-mesh/dwarfsql/internal/query"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9")).
			Bold(true)

	hintStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))
)

func newShellCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "shell <binary>",
		Short: "Open an interactive SQL shell on a binary",
		Long: `Opens a SQL shell over the debug information of a binary. Statements end
with a semicolon and may span several lines.

Meta-commands:
  .tables          - List tables with row counts
  .schema [table]  - Describe all tables or one table
  .info            - Show the loaded binary
  .find <glob>     - Find functions by name or linkage name
  .clear           - Clear the screen
  .help            - Show help message
  .exit, .quit     - Exit shell (or Ctrl+D)

Ctrl+C discards the statement being typed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := a.openStore(ctx, cmd, args[0])
			if err != nil {
				return err
			}
			defer cerrors.DeferClose(a.logger, store, "Failed to close database")

			sh := newShell(store, cmd.OutOrStdout(), a.cfg.Shell.Prompt)
			return sh.run(ctx, a.cfg.Shell.HistoryFile)
		},
	}
}

// shellBackend is what the shell needs from the store.
type shellBackend interface {
	Query(ctx context.Context, sql string) (*catalog.Result, error)
	Tables(ctx context.Context) ([]catalog.TableCount, error)
	Describe(name string) (catalog.TableDoc, bool)
	FindFunctions(ctx context.Context, pattern string, limit int) ([]extract.Function, error)
	Info() catalog.Info
}

var errExit = errors.New("exit")

// shell is the read-eval-print loop state. Lines are fed through
// handleLine so the loop logic does not depend on a terminal.
type shell struct {
	backend shellBackend
	out     io.Writer
	prompt  string
	buf     strings.Builder
}

func newShell(backend shellBackend, out io.Writer, prompt string) *shell {
	if prompt == "" {
		prompt = constants.DefaultPrompt
	}
	return &shell{backend: backend, out: out, prompt: prompt}
}

func (s *shell) run(ctx context.Context, historyFile string) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          s.prompt,
		HistoryFile:     historyFile,
		InterruptPrompt: "^C",
		EOFPrompt:       ".exit",
	})
	if err != nil {
		return fmt.Errorf("failed to initialize readline: %w", err)
	}
	defer func() { _ = rl.Close() }()

	s.banner()

	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			s.interrupt()
			rl.SetPrompt(s.currentPrompt())
			continue
		}
		if errors.Is(err, io.EOF) {
			_, _ = fmt.Fprintln(s.out)
			return nil
		}
		if err != nil {
			return fmt.Errorf("readline error: %w", err)
		}

		if s.handleLine(ctx, line) {
			return nil
		}
		rl.SetPrompt(s.currentPrompt())

		if ctx.Err() != nil {
			return nil
		}
	}
}

func (s *shell) banner() {
	info := s.backend.Info()
	_, _ = fmt.Fprintln(s.out, titleStyle.Render("dwarfsql")+" "+info.Path)
	source := "loaded"
	if info.Cached {
		source = "cached"
	}
	_, _ = fmt.Fprintln(s.out, hintStyle.Render(fmt.Sprintf("%s database, %s at %s",
		info.Engine, source, info.LoadedAt.Local().Format(time.DateTime))))
	_, _ = fmt.Fprintln(s.out, hintStyle.Render("Type '.help' for help, '.exit' to quit."))
	_, _ = fmt.Fprintln(s.out)
}

func (s *shell) currentPrompt() string {
	if s.buf.Len() > 0 {
		return constants.ContinuePrompt
	}
	return s.prompt
}

// interrupt discards the statement being typed.
func (s *shell) interrupt() {
	s.buf.Reset()
}

// handleLine processes one line of input and reports whether the shell
// should exit.
func (s *shell) handleLine(ctx context.Context, line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}

	// Meta-commands are only recognised at the start of a statement.
	if s.buf.Len() == 0 && strings.HasPrefix(line, ".") {
		err := s.meta(ctx, line)
		if errors.Is(err, errExit) {
			return true
		}
		if err != nil {
			s.printError(err)
		}
		return false
	}

	if s.buf.Len() > 0 {
		s.buf.WriteString("\n")
	}
	s.buf.WriteString(line)

	if !strings.HasSuffix(line, ";") {
		return false
	}

	sql := s.buf.String()
	s.buf.Reset()
	if err := s.execute(ctx, sql); err != nil {
		s.printError(err)
	}
	return false
}

func (s *shell) execute(ctx context.Context, sql string) error {
	start := time.Now()
	res, err := s.backend.Query(ctx, sql)
	if err != nil {
		return err
	}
	if err := query.WriteTable(s.out, res); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(s.out, "\n%s\n\n", query.Summary(len(res.Rows), time.Since(start)))
	return nil
}

func (s *shell) printError(err error) {
	_, _ = fmt.Fprintln(s.out, errorStyle.Render("Error: "+err.Error()))
}

func (s *shell) meta(ctx context.Context, command string) error {
	parts := strings.Fields(command)

	switch parts[0] {
	case ".exit", ".quit":
		return errExit

	case ".help":
		_, _ = fmt.Fprint(s.out, `Meta-commands:
  .tables          - List tables with row counts
  .schema [table]  - Describe all tables or one table
  .info            - Show the loaded binary
  .find <glob>     - Find functions by name or linkage name
  .clear           - Clear the screen
  .help            - Show this help message
  .exit, .quit     - Exit shell

Query syntax:
  - End statements with a semicolon (;)
  - Use Ctrl+C to discard the current statement
  - Use Ctrl+D or .exit to quit
`)
		return nil

	case ".clear":
		_, _ = fmt.Fprint(s.out, "\033[H\033[2J")
		return nil

	case ".tables":
		counts, err := s.backend.Tables(ctx)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(s.out, 0, 0, 2, ' ', 0)
		for _, c := range counts {
			_, _ = fmt.Fprintf(w, "%s\t%d\n", c.Name, c.Rows)
		}
		return w.Flush()

	case ".schema":
		if len(parts) == 1 {
			for _, name := range catalog.TableNames() {
				if err := s.describe(name); err != nil {
					return err
				}
			}
			return nil
		}
		return s.describe(parts[1])

	case ".info":
		info := s.backend.Info()
		w := tabwriter.NewWriter(s.out, 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintf(w, "binary\t%s\n", info.Path)
		_, _ = fmt.Fprintf(w, "fingerprint\t%s\n", info.Fingerprint)
		_, _ = fmt.Fprintf(w, "engine\t%s\n", info.Engine)
		_, _ = fmt.Fprintf(w, "loaded_at\t%s\n", info.LoadedAt.Format(time.RFC3339))
		_, _ = fmt.Fprintf(w, "cached\t%t\n", info.Cached)
		return w.Flush()

	case ".find":
		if len(parts) != 2 {
			return fmt.Errorf("usage: .find <glob>")
		}
		fns, err := s.backend.FindFunctions(ctx, parts[1], constants.DefaultFindLimit)
		if err != nil {
			return err
		}
		return writeFunctions(s.out, fns)

	default:
		return fmt.Errorf("unknown meta-command: %s (try .help)", parts[0])
	}
}

func (s *shell) describe(name string) error {
	doc, ok := s.backend.Describe(name)
	if !ok {
		return fmt.Errorf("unknown table: %s", name)
	}
	_, _ = fmt.Fprintln(s.out, titleStyle.Render(doc.Name)+" "+hintStyle.Render(doc.Description))
	w := tabwriter.NewWriter(s.out, 0, 0, 2, ' ', 0)
	for _, col := range doc.Columns {
		_, _ = fmt.Fprintf(w, "  %s\t%s\t%s\n", col.Name, col.Type, col.Description)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	_, _ = fmt.Fprintln(s.out)
	return nil
}

// writeFunctions prints function search results.
func writeFunctions(out io.Writer, fns []extract.Function) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "name\tlinkage_name\tlow_pc\tline")
	_, _ = fmt.Fprintln(w, "---\t---\t---\t---")
	for _, fn := range fns {
		_, _ = fmt.Fprintf(w, "%s\t%s\t0x%x\t%d\n", fn.Name, fn.LinkageName, fn.LowPC, fn.Line)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(out, "\n%s\n", query.Summary(len(fns), 0))
	return nil
}
