package extract

import (
	"debug/dwarf"

	"github.com/coral-mesh/dwarfsql/internal/dwarfinfo"
)

// Variables returns every variable and formal parameter, global or local.
// FuncOffset is the innermost enclosing subprogram, or 0 for globals. When
// fn is non-zero only entries owned by that subprogram are returned.
func (s *Session) Variables(fn uint64) ([]Variable, error) {
	var out []Variable
	err := s.walkUnits(0, func(u dwarfinfo.Unit, e *dwarf.Entry, _ int, path *Path) {
		if e.Tag != dwarf.TagVariable && e.Tag != dwarf.TagFormalParameter {
			return
		}

		var owner uint64
		if sub := path.Nearest(dwarf.TagSubprogram); sub != nil {
			owner = uint64(sub.Offset)
		}
		if fn != 0 && owner != fn {
			return
		}

		r := s.resolver
		d := s.declaration(e)
		out = append(out, Variable{
			Offset:      uint64(e.Offset),
			UnitOffset:  uint64(u.Offset),
			FuncOffset:  owner,
			Name:        r.String(d, dwarf.AttrName),
			Type:        r.TypeName(d),
			Location:    r.LocationPreview(e, dwarf.AttrLocation),
			IsParameter: e.Tag == dwarf.TagFormalParameter,
			External:    r.Flag(e, dwarf.AttrExternal) || r.Flag(d, dwarf.AttrExternal),
			Line:        r.Signed(d, dwarf.AttrDeclLine, 0),
		})
	})
	return out, err
}

// declaration returns the entry holding the name and type of a variable or
// parameter. Concrete instances of inlined or out-of-line functions only
// carry an abstract origin; one level of it is followed. Anything that
// cannot be resolved yields e itself.
func (s *Session) declaration(e *dwarf.Entry) *dwarf.Entry {
	r := s.resolver
	if r.Has(e, dwarf.AttrName) || r.Has(e, dwarf.AttrType) {
		return e
	}
	ref := r.Reference(e, dwarf.AttrAbstractOrigin)
	if ref == 0 || ref == e.Offset {
		return e
	}
	origin, err := s.provider.EntryAt(ref)
	if err != nil || origin == nil {
		return e
	}
	return origin
}
