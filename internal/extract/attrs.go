package extract

import (
	"debug/dwarf"
	"encoding/hex"

	"github.com/coral-mesh/dwarfsql/internal/dwarfinfo"
)

// maxLocationPreview is the number of expression bytes rendered by LocationPreview.
const maxLocationPreview = 32

// Resolver reads attributes with form-dependent fallbacks. Every accessor
// returns a default instead of failing.
type Resolver struct {
	p dwarfinfo.Provider
}

// NewResolver creates a resolver that follows references through p.
func NewResolver(p dwarfinfo.Provider) *Resolver {
	return &Resolver{p: p}
}

// String returns a string attribute, or "" when absent or not a string.
func (r *Resolver) String(e *dwarf.Entry, attr dwarf.Attr) string {
	f := e.AttrField(attr)
	if f == nil {
		return ""
	}
	s, _ := f.Val.(string)
	return s
}

// Unsigned reads a constant, then an address, then falls back to def.
func (r *Resolver) Unsigned(e *dwarf.Entry, attr dwarf.Attr, def uint64) uint64 {
	f := e.AttrField(attr)
	if f == nil {
		return def
	}
	switch f.Class {
	case dwarf.ClassConstant:
		switch v := f.Val.(type) {
		case int64:
			return uint64(v)
		case uint64:
			return v
		}
	case dwarf.ClassAddress:
		if v, ok := f.Val.(uint64); ok {
			return v
		}
	}
	return def
}

// Signed reads a signed constant, then an unsigned one reinterpreted as
// signed, then falls back to def.
func (r *Resolver) Signed(e *dwarf.Entry, attr dwarf.Attr, def int64) int64 {
	f := e.AttrField(attr)
	if f == nil || f.Class != dwarf.ClassConstant {
		return def
	}
	switch v := f.Val.(type) {
	case int64:
		return v
	case uint64:
		return int64(v)
	}
	return def
}

// Flag returns a flag attribute, or false when absent or not a flag.
func (r *Resolver) Flag(e *dwarf.Entry, attr dwarf.Attr) bool {
	f := e.AttrField(attr)
	if f == nil {
		return false
	}
	b, _ := f.Val.(bool)
	return b
}

// Has reports whether attr is present, whatever its form.
func (r *Resolver) Has(e *dwarf.Entry, attr dwarf.Attr) bool {
	return e.AttrField(attr) != nil
}

// Reference returns the file offset an attribute points at, or 0. The
// standard reader already resolves unit-relative forms to file offsets;
// references into supplementary files or type units are reported as 0.
func (r *Resolver) Reference(e *dwarf.Entry, attr dwarf.Attr) dwarf.Offset {
	f := e.AttrField(attr)
	if f == nil || f.Class != dwarf.ClassReference {
		return 0
	}
	off, _ := f.Val.(dwarf.Offset)
	return off
}

// RangeEnd returns the end of the entry's address range. DW_AT_high_pc is
// either an address or a length relative to low.
func (r *Resolver) RangeEnd(e *dwarf.Entry, low uint64) uint64 {
	f := e.AttrField(dwarf.AttrHighpc)
	if f == nil {
		return 0
	}
	switch f.Class {
	case dwarf.ClassAddress:
		if v, ok := f.Val.(uint64); ok {
			return v
		}
	case dwarf.ClassConstant:
		switch v := f.Val.(type) {
		case int64:
			return low + uint64(v)
		case uint64:
			return low + v
		}
	}
	return 0
}

// LocationPreview renders a location attribute: expressions as hex, location
// lists as "[loclist]".
func (r *Resolver) LocationPreview(e *dwarf.Entry, attr dwarf.Attr) string {
	f := e.AttrField(attr)
	if f == nil {
		return ""
	}
	switch f.Class {
	case dwarf.ClassExprLoc, dwarf.ClassBlock:
		b, _ := f.Val.([]byte)
		if len(b) > maxLocationPreview {
			return hex.EncodeToString(b[:maxLocationPreview]) + "..."
		}
		return hex.EncodeToString(b)
	case dwarf.ClassLocListPtr, dwarf.ClassLocList:
		return "[loclist]"
	}
	return ""
}

// TypeName reconstructs a readable name for the type of e by following
// DW_AT_type through unnamed modifiers, e.g. "const char*".
func (r *Resolver) TypeName(e *dwarf.Entry) string {
	off := r.Reference(e, dwarf.AttrType)
	if off == 0 {
		return "void"
	}

	t, err := r.p.EntryAt(off)
	if err != nil {
		return "<unknown>"
	}

	var prefix, suffix string
	visited := map[dwarf.Offset]struct{}{off: {}}

	for {
		if name := r.String(t, dwarf.AttrName); name != "" {
			return prefix + name + suffix
		}

		switch t.Tag {
		case dwarf.TagPointerType:
			suffix = "*" + suffix
		case dwarf.TagReferenceType:
			suffix = "&" + suffix
		case dwarf.TagRvalueReferenceType:
			suffix = "&&" + suffix
		case dwarf.TagConstType:
			prefix = "const " + prefix
		case dwarf.TagVolatileType:
			prefix = "volatile " + prefix
		case dwarf.TagRestrictType:
			prefix = "restrict " + prefix
		case dwarf.TagArrayType:
			suffix = "[]" + suffix
		default:
			return prefix + "<anonymous>" + suffix
		}

		off = r.Reference(t, dwarf.AttrType)
		if off == 0 {
			return prefix + "void" + suffix
		}
		if _, seen := visited[off]; seen || len(visited) >= maxTypeChain {
			return prefix + "<unknown>" + suffix
		}
		visited[off] = struct{}{}

		if t, err = r.p.EntryAt(off); err != nil {
			return prefix + "<unknown>" + suffix
		}
	}
}

// ScopeRange returns the address range of a unit, function or lexical
// block. When the entry has no high_pc but carries DW_AT_ranges, the bounds
// of its range list are used.
func (r *Resolver) ScopeRange(e *dwarf.Entry) (low, high uint64) {
	low = r.Unsigned(e, dwarf.AttrLowpc, 0)
	if r.Has(e, dwarf.AttrHighpc) || !r.Has(e, dwarf.AttrRanges) {
		return low, r.RangeEnd(e, low)
	}

	ranges, err := r.p.Ranges(e)
	if err != nil || len(ranges) == 0 {
		return low, 0
	}
	low, high = ranges[0].Low, ranges[0].High
	for _, rg := range ranges[1:] {
		low = min(low, rg.Low)
		high = max(high, rg.High)
	}
	return low, high
}
