package extract

import (
	"debug/dwarf"

	"github.com/coral-mesh/dwarfsql/internal/dwarfinfo"
)

// Functions returns every subprogram, optionally restricted to the unit
// rooted at cu.
func (s *Session) Functions(cu uint64) ([]Function, error) {
	var out []Function
	err := s.walkUnits(cu, func(u dwarfinfo.Unit, e *dwarf.Entry, _ int, _ *Path) {
		if e.Tag != dwarf.TagSubprogram {
			return
		}
		out = append(out, s.function(u, e))
	})
	return out, err
}

func (s *Session) function(u dwarfinfo.Unit, e *dwarf.Entry) Function {
	r := s.resolver

	linkage := r.String(e, dwarf.AttrLinkageName)
	if linkage == "" {
		linkage = r.String(e, attrMIPSLinkageName)
	}

	low := r.Unsigned(e, dwarf.AttrLowpc, 0)
	inl := r.Signed(e, dwarf.AttrInline, 0)

	return Function{
		Offset:      uint64(e.Offset),
		UnitOffset:  uint64(u.Offset),
		Name:        r.String(e, dwarf.AttrName),
		LinkageName: linkage,
		LowPC:       low,
		HighPC:      r.RangeEnd(e, low),
		ReturnType:  r.TypeName(e),
		External:    r.Flag(e, dwarf.AttrExternal),
		Declaration: r.Flag(e, dwarf.AttrDeclaration),
		Inline:      inl == inlDeclaredInlined || inl == inlDeclaredNotInlined,
		Line:        r.Signed(e, dwarf.AttrDeclLine, 0),
	}
}

// Parameters returns the formal parameters of every subprogram, or of the
// subprogram at fn when fn is non-zero. Indexes count from 0 per subprogram.
func (s *Session) Parameters(fn uint64) ([]Parameter, error) {
	var out []Parameter
	index := make(map[dwarf.Offset]int64)

	err := s.walkUnits(0, func(_ dwarfinfo.Unit, e *dwarf.Entry, _ int, path *Path) {
		if e.Tag != dwarf.TagFormalParameter {
			return
		}
		parent := path.Parent()
		if parent == nil || parent.Tag != dwarf.TagSubprogram {
			return
		}

		i := index[parent.Offset]
		index[parent.Offset] = i + 1
		if fn != 0 && uint64(parent.Offset) != fn {
			return
		}

		r := s.resolver
		d := s.declaration(e)
		out = append(out, Parameter{
			Offset:     uint64(e.Offset),
			FuncOffset: uint64(parent.Offset),
			Name:       r.String(d, dwarf.AttrName),
			Type:       r.TypeName(d),
			Index:      i,
			Location:   r.LocationPreview(e, dwarf.AttrLocation),
			Line:       r.Signed(d, dwarf.AttrDeclLine, 0),
		})
	})
	return out, err
}

// LocalVariables returns the variables declared inside subprograms, with
// the address range of their innermost enclosing scope. When fn is
// non-zero only the locals of that subprogram are returned.
func (s *Session) LocalVariables(fn uint64) ([]LocalVariable, error) {
	var out []LocalVariable
	scopes := make(map[dwarf.Offset]dwarfinfo.Range)

	err := s.walkUnits(0, func(_ dwarfinfo.Unit, e *dwarf.Entry, depth int, path *Path) {
		if e.Tag != dwarf.TagVariable || depth <= 1 {
			return
		}
		sub := path.Nearest(dwarf.TagSubprogram)
		if sub == nil || (fn != 0 && uint64(sub.Offset) != fn) {
			return
		}

		r := s.resolver
		scope := path.Nearest(dwarf.TagLexDwarfBlock, dwarf.TagSubprogram)
		rg, ok := scopes[scope.Offset]
		if !ok {
			rg.Low, rg.High = r.ScopeRange(scope)
			scopes[scope.Offset] = rg
		}

		d := s.declaration(e)
		out = append(out, LocalVariable{
			Offset:     uint64(e.Offset),
			FuncOffset: uint64(sub.Offset),
			Name:       r.String(d, dwarf.AttrName),
			Type:       r.TypeName(d),
			Location:   r.LocationPreview(e, dwarf.AttrLocation),
			Line:       r.Signed(d, dwarf.AttrDeclLine, 0),
			ScopeLow:   rg.Low,
			ScopeHigh:  rg.High,
		})
	})
	return out, err
}
