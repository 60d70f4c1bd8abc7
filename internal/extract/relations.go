package extract

import (
	"debug/dwarf"

	"github.com/coral-mesh/dwarfsql/internal/dwarfinfo"
)

// BaseClasses returns one record per inheritance entry. The derived class
// is the innermost enclosing struct or class.
func (s *Session) BaseClasses(cu uint64) ([]BaseClass, error) {
	var out []BaseClass
	err := s.walkUnits(cu, func(_ dwarfinfo.Unit, e *dwarf.Entry, _ int, path *Path) {
		if e.Tag != dwarf.TagInheritance {
			return
		}

		r := s.resolver
		rec := BaseClass{
			Offset:     uint64(e.Offset),
			BaseOffset: uint64(r.Reference(e, dwarf.AttrType)),
			BaseName:   r.TypeName(e),
			ByteOffset: s.memberOffset(e),
			Virtual:    r.Has(e, dwarf.AttrVirtuality),
			Access:     accessName(r.Signed(e, dwarf.AttrAccessibility, accessPrivate)),
		}
		if derived := path.Nearest(dwarf.TagStructType, dwarf.TagClassType); derived != nil {
			rec.DerivedOffset = uint64(derived.Offset)
			rec.DerivedName = r.String(derived, dwarf.AttrName)
		}
		out = append(out, rec)
	})
	return out, err
}

func accessName(v int64) string {
	switch v {
	case accessPublic:
		return AccessPublic
	case accessProtected:
		return AccessProtected
	default:
		return AccessPrivate
	}
}

// CallSites returns the call sites recorded inside subprograms. A call
// whose target cannot be resolved keeps a zero callee.
func (s *Session) CallSites(cu uint64) ([]CallSite, error) {
	var out []CallSite
	err := s.walkUnits(cu, func(_ dwarfinfo.Unit, e *dwarf.Entry, _ int, path *Path) {
		if e.Tag != dwarf.TagCallSite && e.Tag != tagGNUCallSite {
			return
		}

		r := s.resolver
		rec := CallSite{
			Offset:   uint64(e.Offset),
			Line:     r.Signed(e, dwarf.AttrCallLine, 0),
			TailCall: r.Flag(e, dwarf.AttrCallTailCall) || r.Flag(e, attrGNUTailCall),
		}

		if caller := path.Nearest(dwarf.TagSubprogram); caller != nil {
			rec.CallerOffset = uint64(caller.Offset)
			rec.CallerName = r.String(caller, dwarf.AttrName)
		}

		target := r.Reference(e, dwarf.AttrCallOrigin)
		if target == 0 {
			target = r.Reference(e, dwarf.AttrAbstractOrigin)
		}
		if target != 0 {
			if name, ok := s.subprogramName(target); ok {
				rec.CalleeOffset = uint64(target)
				rec.CalleeName = name
			}
		}

		if r.Has(e, dwarf.AttrCallReturnPC) {
			rec.PC = r.Unsigned(e, dwarf.AttrCallReturnPC, 0)
		} else {
			rec.PC = r.Unsigned(e, dwarf.AttrLowpc, 0)
		}

		out = append(out, rec)
	})
	return out, err
}

// InlinedCalls returns the inlined subroutine instances. The name comes
// from the abstract origin.
func (s *Session) InlinedCalls(cu uint64) ([]InlinedCall, error) {
	var out []InlinedCall
	err := s.walkUnits(cu, func(_ dwarfinfo.Unit, e *dwarf.Entry, _ int, path *Path) {
		if e.Tag != dwarf.TagInlinedSubroutine {
			return
		}

		r := s.resolver
		origin := r.Reference(e, dwarf.AttrAbstractOrigin)
		low, high := r.ScopeRange(e)

		rec := InlinedCall{
			Offset:         uint64(e.Offset),
			AbstractOrigin: uint64(origin),
			LowPC:          low,
			HighPC:         high,
			CallLine:       r.Signed(e, dwarf.AttrCallLine, 0),
			CallColumn:     r.Signed(e, dwarf.AttrCallColumn, 0),
		}
		if origin != 0 {
			rec.Name, _ = s.subprogramName(origin)
		}
		if caller := path.Nearest(dwarf.TagSubprogram); caller != nil {
			rec.CallerOffset = uint64(caller.Offset)
		}
		out = append(out, rec)
	})
	return out, err
}

// subprogramName resolves the name of the entry at off. Concrete
// out-of-line instances carry no name of their own, so one level of
// abstract origin or specification is followed.
func (s *Session) subprogramName(off dwarf.Offset) (string, bool) {
	e, err := s.provider.EntryAt(off)
	if err != nil {
		return "", false
	}

	r := s.resolver
	if name := r.String(e, dwarf.AttrName); name != "" {
		return name, true
	}
	for _, attr := range []dwarf.Attr{dwarf.AttrAbstractOrigin, dwarf.AttrSpecification} {
		ref := r.Reference(e, attr)
		if ref == 0 || ref == off {
			continue
		}
		if origin, err := s.provider.EntryAt(ref); err == nil {
			if name := r.String(origin, dwarf.AttrName); name != "" {
				return name, true
			}
		}
	}
	return r.String(e, dwarf.AttrLinkageName), true
}

// Namespaces returns namespaces with the innermost enclosing namespace as
// parent.
func (s *Session) Namespaces(cu uint64) ([]Namespace, error) {
	var out []Namespace
	err := s.walkUnits(cu, func(_ dwarfinfo.Unit, e *dwarf.Entry, _ int, path *Path) {
		if e.Tag != dwarf.TagNamespace {
			return
		}

		name := s.resolver.String(e, dwarf.AttrName)
		rec := Namespace{
			Offset:    uint64(e.Offset),
			Name:      name,
			Anonymous: name == "",
		}
		if parent := path.Nearest(dwarf.TagNamespace); parent != nil {
			rec.ParentOffset = uint64(parent.Offset)
		}
		out = append(out, rec)
	})
	return out, err
}
