package extract

import (
	"debug/dwarf"
	"testing"

	"github.com/rs/zerolog"

	"github.com/coral-mesh/dwarfsql/internal/dwarfinfo"
	dt "github.com/coral-mesh/dwarfsql/internal/dwarfinfo/dwarfinfotest"
)

const (
	unitMain = 0x0b
	unitUtil = 0x200
)

// program returns a provider describing a small C++ program:
//
//	int counter;
//	int main(int argc, const int* argv) {
//	    int total;
//	    { int i; { int j; } }
//	    int after;
//	    helper();      // call site, inlined once
//	    <tail call with no known target>
//	}
//	inline void helper(int x) { <GNU call site to a missing entry> }
//	extern void decl_only();
//	struct Point { int x; int y; int flags : 3; int old : 3; void norm(); };
//	struct Fwd;
//	class Derived : public Point, virtual Fwd {};
//	union U;
//	enum Status { OK, FAIL };
//	namespace outer { namespace inner {} namespace {} int nsvar; }
//	namespace other {}
//	typedef int size_t;
//
// plus a second unit "util.c" with one function.
func program() *dt.Provider {
	p := dt.New()

	p.AddUnit(dt.Die(unitMain, dwarf.TagCompileUnit,
		dt.Name("main.cpp"),
		dt.Str(dwarf.AttrCompDir, "/src"),
		dt.Str(dwarf.AttrProducer, "clang version 17"),
		dt.Const(dwarf.AttrLanguage, 0x21),
		dt.Addr(dwarf.AttrLowpc, 0x1000),
		dt.Const(dwarf.AttrHighpc, 0x200),
	).With(
		dt.Die(0x20, dwarf.TagBaseType, dt.Name("int"), dt.Const(dwarf.AttrByteSize, 4)),
		dt.Die(0x21, dwarf.TagConstType, dt.Type(0x20)),
		dt.Die(0x22, dwarf.TagPointerType, dt.Type(0x21), dt.Const(dwarf.AttrByteSize, 8)),
		dt.Die(0x30, dwarf.TagVariable, dt.Name("counter"), dt.Type(0x20), dt.Flag(dwarf.AttrExternal),
			dt.Expr(dwarf.AttrLocation, 0x03, 0x00, 0x40, 0x00, 0x00), dt.Const(dwarf.AttrDeclLine, 1)),

		dt.Die(0x40, dwarf.TagSubprogram,
			dt.Name("main"),
			dt.Addr(dwarf.AttrLowpc, 0x1000),
			dt.Const(dwarf.AttrHighpc, 0x40),
			dt.Type(0x20),
			dt.Flag(dwarf.AttrExternal),
			dt.Const(dwarf.AttrDeclLine, 2),
		).With(
			dt.Die(0x41, dwarf.TagFormalParameter, dt.Name("argc"), dt.Type(0x20), dt.Expr(dwarf.AttrLocation, 0x91, 0x6c)),
			dt.Die(0x42, dwarf.TagFormalParameter, dt.Name("argv"), dt.Type(0x22), dt.LocList(dwarf.AttrLocation, 0x30)),
			dt.Die(0x43, dwarf.TagVariable, dt.Name("total"), dt.Type(0x20), dt.Const(dwarf.AttrDeclLine, 3)),
			dt.Die(0x44, dwarf.TagLexDwarfBlock, dt.Addr(dwarf.AttrLowpc, 0x1010), dt.Const(dwarf.AttrHighpc, 0x10)).With(
				dt.Die(0x45, dwarf.TagVariable, dt.Name("i"), dt.Type(0x20)),
				dt.Die(0x46, dwarf.TagLexDwarfBlock, dt.Raw(dwarf.AttrRanges, dwarf.ClassRangeListPtr, int64(0x10))).With(
					dt.Die(0x47, dwarf.TagVariable, dt.Name("j"), dt.Type(0x20)),
				),
			),
			dt.Die(0x48, dwarf.TagVariable, dt.Name("after"), dt.Type(0x20)),
			dt.Die(0x49, dwarf.TagCallSite,
				dt.Ref(dwarf.AttrCallOrigin, 0x60),
				dt.Addr(dwarf.AttrCallReturnPC, 0x1024),
				dt.Const(dwarf.AttrCallLine, 14),
			),
			dt.Die(0x4a, dwarf.TagCallSite,
				dt.Addr(dwarf.AttrLowpc, 0x1030),
				dt.Const(dwarf.AttrCallLine, 15),
				dt.Flag(dwarf.AttrCallTailCall),
			),
			dt.Die(0x4b, dwarf.TagInlinedSubroutine,
				dt.Ref(dwarf.AttrAbstractOrigin, 0x60),
				dt.Addr(dwarf.AttrLowpc, 0x1028),
				dt.Const(dwarf.AttrHighpc, 8),
				dt.Const(dwarf.AttrCallLine, 16),
				dt.Const(dwarf.AttrCallColumn, 3),
			),
		),

		dt.Die(0x60, dwarf.TagSubprogram,
			dt.Name("helper"),
			dt.Str(dwarf.AttrLinkageName, "_Z6helperi"),
			dt.Addr(dwarf.AttrLowpc, 0x1100),
			dt.Addr(dwarf.AttrHighpc, 0x1180),
			dt.Const(dwarf.AttrInline, inlDeclaredInlined),
		).With(
			dt.Die(0x61, dwarf.TagFormalParameter, dt.Name("x"), dt.Type(0x20)),
			dt.Die(0x62, tagGNUCallSite,
				dt.Ref(dwarf.AttrAbstractOrigin, 0x999),
				dt.Addr(dwarf.AttrLowpc, 0x1150),
				dt.Flag(attrGNUTailCall),
			),
		),

		dt.Die(0x70, dwarf.TagSubprogram,
			dt.Name("decl_only"),
			dt.Str(attrMIPSLinkageName, "_Z9decl_onlyv"),
			dt.Flag(dwarf.AttrDeclaration),
			dt.Flag(dwarf.AttrExternal),
		),

		dt.Die(0x80, dwarf.TagStructType, dt.Name("Point"), dt.Const(dwarf.AttrByteSize, 16)).With(
			dt.Die(0x81, dwarf.TagMember, dt.Name("x"), dt.Type(0x20), dt.Const(dwarf.AttrDataMemberLoc, 0)),
			dt.Die(0x82, dwarf.TagMember, dt.Name("y"), dt.Type(0x20), dt.Expr(dwarf.AttrDataMemberLoc, 0x23, 0x04)),
			dt.Die(0x83, dwarf.TagMember, dt.Name("flags"), dt.Type(0x20),
				dt.Const(dwarf.AttrDataBitOffset, 64), dt.Const(dwarf.AttrBitSize, 3)),
			dt.Die(0x84, dwarf.TagSubprogram, dt.Name("norm"), dt.Flag(dwarf.AttrDeclaration)),
			dt.Die(0x85, dwarf.TagMember, dt.Name("old"), dt.Type(0x20),
				dt.Const(dwarf.AttrDataMemberLoc, 12), dt.Const(dwarf.AttrBitOffset, 5), dt.Const(dwarf.AttrBitSize, 3)),
		),
		dt.Die(0x88, dwarf.TagStructType, dt.Name("Fwd"), dt.Flag(dwarf.AttrDeclaration)),
		dt.Die(0x90, dwarf.TagClassType, dt.Name("Derived"), dt.Const(dwarf.AttrByteSize, 24)).With(
			dt.Die(0x91, dwarf.TagInheritance, dt.Type(0x80), dt.Const(dwarf.AttrDataMemberLoc, 0),
				dt.Const(dwarf.AttrAccessibility, accessPublic)),
			dt.Die(0x92, dwarf.TagInheritance, dt.Type(0x88), dt.Const(dwarf.AttrDataMemberLoc, 16),
				dt.Const(dwarf.AttrVirtuality, 0)),
		),
		dt.Die(0x98, dwarf.TagUnionType, dt.Name("U"), dt.Const(dwarf.AttrByteSize, 4)),

		dt.Die(0xa0, dwarf.TagEnumerationType, dt.Name("Status"), dt.Const(dwarf.AttrByteSize, 4)).With(
			dt.Die(0xa1, dwarf.TagEnumerator, dt.Name("OK"), dt.Const(dwarf.AttrConstValue, 0)),
			dt.Die(0xa2, dwarf.TagEnumerator, dt.Name("FAIL"), dt.Const(dwarf.AttrConstValue, 1)),
		),

		dt.Die(0xb0, dwarf.TagNamespace, dt.Name("outer")).With(
			dt.Die(0xb1, dwarf.TagNamespace, dt.Name("inner")),
			dt.Die(0xb2, dwarf.TagNamespace),
			dt.Die(0xb3, dwarf.TagVariable, dt.Name("nsvar"), dt.Type(0x20)),
		),
		dt.Die(0xc0, dwarf.TagNamespace, dt.Name("other")),
		dt.Die(0xd0, dwarf.TagTypedef, dt.Name("size_t"), dt.Type(0x20)),
	))

	p.AddUnit(dt.Die(unitUtil, dwarf.TagCompileUnit, dt.Name("util.c"), dt.Const(dwarf.AttrLanguage, 0x0c)).With(
		dt.Die(0x210, dwarf.TagSubprogram, dt.Name("util"), dt.Addr(dwarf.AttrLowpc, 0x2000), dt.Const(dwarf.AttrHighpc, 0x10)).With(
			dt.Die(0x211, dwarf.TagFormalParameter, dt.Name("p"), dt.Type(0x22)),
		),
	))

	p.SetRanges(0x46, dwarfinfo.Range{Low: 0x101c, High: 0x1020}, dwarfinfo.Range{Low: 0x1018, High: 0x101a})
	p.SetLines(unitMain,
		dwarfinfo.LineRow{Address: 0x1000, File: "main.cpp", Line: 2, Column: 1, IsStmt: true},
		dwarfinfo.LineRow{Address: 0x1004, File: "main.cpp", Line: 3, Column: 5, IsStmt: true},
		dwarfinfo.LineRow{Address: 0x1010, File: "main.cpp", Line: 4, Column: 5, IsStmt: true, BasicBlock: true},
		dwarfinfo.LineRow{Address: 0x1040, File: "main.cpp", Line: 4, Column: 1, EndSequence: true},
	)
	p.FailLines(unitUtil)

	return p
}

func openProgram(t *testing.T) (*Session, *dt.Provider) {
	t.Helper()
	p := program()
	s := NewSession(zerolog.Nop())
	s.Attach(p, "/bin/program")
	t.Cleanup(s.Close)
	return s, p
}
