package cli

import (
	"bytes"
	"context"
	"debug/dwarf"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/coral-mesh/dwarfsql/internal/constants"
	dt "github.com/coral-mesh/dwarfsql/internal/dwarfinfo/dwarfinfotest"
	"github.com/coral-mesh/dwarfsql/internal/extract"
)

// program describes:
//
//	int main(void) { helper(); }
//	void helper(void) { leaf(); }
//	void leaf(void) {}
//	struct Point { int x; int y; };
func program() *dt.Provider {
	p := dt.New()
	p.AddUnit(dt.Die(0x0b, dwarf.TagCompileUnit,
		dt.Name("main.c"),
		dt.Str(dwarf.AttrCompDir, "/src"),
	).With(
		dt.Die(0x20, dwarf.TagBaseType, dt.Name("int"), dt.Const(dwarf.AttrByteSize, 4)),
		dt.Die(0x40, dwarf.TagSubprogram,
			dt.Name("main"),
			dt.Addr(dwarf.AttrLowpc, 0x1000),
			dt.Const(dwarf.AttrHighpc, 0x40),
			dt.Type(0x20),
			dt.Flag(dwarf.AttrExternal),
		).With(
			dt.Die(0x49, dwarf.TagCallSite,
				dt.Ref(dwarf.AttrCallOrigin, 0x60),
				dt.Addr(dwarf.AttrCallReturnPC, 0x1024),
			),
		),
		dt.Die(0x60, dwarf.TagSubprogram,
			dt.Name("helper"),
			dt.Str(dwarf.AttrLinkageName, "_Z6helperv"),
			dt.Addr(dwarf.AttrLowpc, 0x1100),
			dt.Const(dwarf.AttrHighpc, 0x10),
		).With(
			dt.Die(0x69, dwarf.TagCallSite,
				dt.Ref(dwarf.AttrCallOrigin, 0x70),
				dt.Addr(dwarf.AttrCallReturnPC, 0x1108),
			),
		),
		dt.Die(0x70, dwarf.TagSubprogram,
			dt.Name("leaf"),
			dt.Addr(dwarf.AttrLowpc, 0x1200),
			dt.Const(dwarf.AttrHighpc, 0x8),
		),
		dt.Die(0x80, dwarf.TagStructType, dt.Name("Point"), dt.Const(dwarf.AttrByteSize, 8)).With(
			dt.Die(0x81, dwarf.TagMember, dt.Name("x"), dt.Type(0x20), dt.Const(dwarf.AttrDataMemberLoc, 0)),
			dt.Die(0x82, dwarf.TagMember, dt.Name("y"), dt.Type(0x20), dt.Const(dwarf.AttrDataMemberLoc, 4)),
		),
	))
	return p
}

// fakeBinary writes a file to fingerprint and returns its path.
func fakeBinary(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "program")
	require.NoError(t, os.WriteFile(path, []byte("v1"), 0o644))
	return path
}

func testApp(t *testing.T) *app {
	t.Helper()
	t.Setenv(constants.ConfigDirEnv, t.TempDir())
	return &app{
		openSession: func(path string) (*extract.Session, error) {
			s := extract.NewSession(zerolog.Nop())
			s.Attach(program(), path)
			return s, nil
		},
	}
}

type output struct {
	stdout string
	stderr string
}

func execute(t *testing.T, a *app, stdin string, args ...string) (output, error) {
	t.Helper()
	return executeContext(context.Background(), t, a, stdin, args...)
}

func executeContext(ctx context.Context, t *testing.T, a *app, stdin string, args ...string) (output, error) {
	t.Helper()
	cmd := newRootCmd(a)

	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(ctx)
	return output{stdout: stdout.String(), stderr: stderr.String()}, err
}
