package catalog

import (
	"context"
	"debug/dwarf"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/coral-mesh/dwarfsql/internal/constants"
	"github.com/coral-mesh/dwarfsql/internal/dwarfinfo"
	dt "github.com/coral-mesh/dwarfsql/internal/dwarfinfo/dwarfinfotest"
	"github.com/coral-mesh/dwarfsql/internal/extract"
)

// program describes:
//
//	int counter;
//	int main(int argc) { int total; helper(); }
//	void helper(void) {}
//	struct Point { int x; int y; };
//	struct Fwd;            // declaration carrying a stray member
//	enum Status { OK, FAIL };
func program() *dt.Provider {
	p := dt.New()
	p.AddUnit(dt.Die(0x0b, dwarf.TagCompileUnit,
		dt.Name("main.c"),
		dt.Str(dwarf.AttrCompDir, "/src"),
		dt.Const(dwarf.AttrLanguage, 0x0c),
	).With(
		dt.Die(0x20, dwarf.TagBaseType, dt.Name("int"), dt.Const(dwarf.AttrByteSize, 4)),
		dt.Die(0x30, dwarf.TagVariable, dt.Name("counter"), dt.Type(0x20), dt.Flag(dwarf.AttrExternal)),
		dt.Die(0x40, dwarf.TagSubprogram,
			dt.Name("main"),
			dt.Addr(dwarf.AttrLowpc, 0x1000),
			dt.Const(dwarf.AttrHighpc, 0x40),
			dt.Type(0x20),
			dt.Flag(dwarf.AttrExternal),
		).With(
			dt.Die(0x41, dwarf.TagFormalParameter, dt.Name("argc"), dt.Type(0x20)),
			dt.Die(0x43, dwarf.TagVariable, dt.Name("total"), dt.Type(0x20)),
			dt.Die(0x49, dwarf.TagCallSite,
				dt.Ref(dwarf.AttrCallOrigin, 0x60),
				dt.Addr(dwarf.AttrCallReturnPC, 0x1024),
				dt.Const(dwarf.AttrCallLine, 3),
			),
		),
		dt.Die(0x60, dwarf.TagSubprogram,
			dt.Name("helper"),
			dt.Str(dwarf.AttrLinkageName, "_Z6helperv"),
			dt.Addr(dwarf.AttrLowpc, 0x1100),
			dt.Const(dwarf.AttrHighpc, 0x10),
		),
		dt.Die(0x80, dwarf.TagStructType, dt.Name("Point"), dt.Const(dwarf.AttrByteSize, 8)).With(
			dt.Die(0x81, dwarf.TagMember, dt.Name("x"), dt.Type(0x20), dt.Const(dwarf.AttrDataMemberLoc, 0)),
			dt.Die(0x82, dwarf.TagMember, dt.Name("y"), dt.Type(0x20), dt.Const(dwarf.AttrDataMemberLoc, 4)),
		),
		dt.Die(0x88, dwarf.TagStructType, dt.Name("Fwd"), dt.Flag(dwarf.AttrDeclaration)).With(
			dt.Die(0x89, dwarf.TagMember, dt.Name("stray"), dt.Type(0x20)),
		),
		dt.Die(0xa0, dwarf.TagEnumerationType, dt.Name("Status"), dt.Const(dwarf.AttrByteSize, 4)).With(
			dt.Die(0xa1, dwarf.TagEnumerator, dt.Name("OK"), dt.Const(dwarf.AttrConstValue, 0)),
			dt.Die(0xa2, dwarf.TagEnumerator, dt.Name("FAIL"), dt.Const(dwarf.AttrConstValue, 1)),
		),
	))
	p.SetLines(0x0b,
		dwarfinfo.LineRow{Address: 0x1000, File: "main.c", Line: 2, IsStmt: true},
		dwarfinfo.LineRow{Address: 0x1040, File: "main.c", Line: 4, EndSequence: true},
	)
	return p
}

// fakeBinary writes a file to fingerprint and returns its path.
func fakeBinary(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "program")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// countingOpener attaches a fresh fake provider on every call.
func countingOpener(calls *atomic.Int32) SessionOpener {
	return func(path string) (*extract.Session, error) {
		calls.Add(1)
		s := extract.NewSession(zerolog.Nop())
		s.Attach(program(), path)
		return s, nil
	}
}

func openSession(t *testing.T) *extract.Session {
	t.Helper()
	s := extract.NewSession(zerolog.Nop())
	s.Attach(program(), "/bin/program")
	t.Cleanup(s.Close)
	return s
}

func openStore(t *testing.T, engine string) *Store {
	t.Helper()
	var calls atomic.Int32
	store, err := Open(context.Background(), Options{
		Path:        fakeBinary(t, "v1"),
		Engine:      engine,
		Logger:      zerolog.Nop(),
		OpenSession: countingOpener(&calls),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

var engines = []string{constants.EngineDuckDB, constants.EngineSQLite}
