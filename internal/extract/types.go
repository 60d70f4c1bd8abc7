package extract

import (
	"debug/dwarf"

	"github.com/coral-mesh/dwarfsql/internal/dwarfinfo"
)

var typeTags = map[dwarf.Tag]bool{
	dwarf.TagBaseType:            true,
	dwarf.TagTypedef:             true,
	dwarf.TagPointerType:         true,
	dwarf.TagReferenceType:       true,
	dwarf.TagRvalueReferenceType: true,
	dwarf.TagConstType:           true,
	dwarf.TagVolatileType:        true,
	dwarf.TagArrayType:           true,
}

var structKinds = map[dwarf.Tag]string{
	dwarf.TagStructType: KindStruct,
	dwarf.TagClassType:  KindClass,
	dwarf.TagUnionType:  KindUnion,
}

// Types returns base, typedef and modifier types. ByteSize is -1 when the
// entry carries none.
func (s *Session) Types(cu uint64) ([]Type, error) {
	var out []Type
	err := s.walkUnits(cu, func(u dwarfinfo.Unit, e *dwarf.Entry, _ int, _ *Path) {
		if !typeTags[e.Tag] {
			return
		}
		r := s.resolver
		out = append(out, Type{
			Offset:     uint64(e.Offset),
			UnitOffset: uint64(u.Offset),
			Name:       r.String(e, dwarf.AttrName),
			Tag:        int64(e.Tag),
			TagName:    TagName(e.Tag),
			ByteSize:   r.Signed(e, dwarf.AttrByteSize, -1),
		})
	})
	return out, err
}

// Structs returns structures, classes and unions.
func (s *Session) Structs(cu uint64) ([]Struct, error) {
	var out []Struct
	err := s.walkUnits(cu, func(u dwarfinfo.Unit, e *dwarf.Entry, _ int, _ *Path) {
		kind, ok := structKinds[e.Tag]
		if !ok {
			return
		}
		r := s.resolver
		out = append(out, Struct{
			Offset:      uint64(e.Offset),
			UnitOffset:  uint64(u.Offset),
			Name:        r.String(e, dwarf.AttrName),
			Kind:        kind,
			ByteSize:    r.Signed(e, dwarf.AttrByteSize, -1),
			Declaration: r.Flag(e, dwarf.AttrDeclaration),
		})
	})
	return out, err
}

// Members returns the data members declared directly in the struct at off.
func (s *Session) Members(off uint64) ([]Member, error) {
	var out []Member
	err := s.children(off, func(e *dwarf.Entry) {
		if e.Tag != dwarf.TagMember {
			return
		}

		r := s.resolver
		bitOffset := r.Signed(e, dwarf.AttrBitOffset, 0)
		if !r.Has(e, dwarf.AttrBitOffset) {
			bitOffset = r.Signed(e, dwarf.AttrDataBitOffset, 0)
		}

		out = append(out, Member{
			Offset:       uint64(e.Offset),
			StructOffset: off,
			Name:         r.String(e, dwarf.AttrName),
			Type:         r.TypeName(e),
			ByteOffset:   s.memberOffset(e),
			BitOffset:    bitOffset,
			BitSize:      r.Signed(e, dwarf.AttrBitSize, 0),
		})
	})
	return out, err
}

// memberOffset reads DW_AT_data_member_location as a constant or as a
// simple location expression. It returns 0 when absent or not decodable.
func (s *Session) memberOffset(e *dwarf.Entry) uint64 {
	f := e.AttrField(dwarf.AttrDataMemberLoc)
	if f == nil {
		return 0
	}
	switch f.Class {
	case dwarf.ClassConstant:
		return s.resolver.Unsigned(e, dwarf.AttrDataMemberLoc, 0)
	case dwarf.ClassExprLoc, dwarf.ClassBlock:
		expr, _ := f.Val.([]byte)
		v, err := dwarfinfo.MemberOffset(expr, s.byteOrder())
		if err != nil {
			s.logger.Debug().Err(err).Uint64("offset", uint64(e.Offset)).Msg("Unsupported member location")
			return 0
		}
		return v
	}
	return 0
}

// Enums returns enumeration types.
func (s *Session) Enums(cu uint64) ([]Enum, error) {
	var out []Enum
	err := s.walkUnits(cu, func(u dwarfinfo.Unit, e *dwarf.Entry, _ int, _ *Path) {
		if e.Tag != dwarf.TagEnumerationType {
			return
		}
		r := s.resolver
		out = append(out, Enum{
			Offset:     uint64(e.Offset),
			UnitOffset: uint64(u.Offset),
			Name:       r.String(e, dwarf.AttrName),
			ByteSize:   r.Signed(e, dwarf.AttrByteSize, -1),
		})
	})
	return out, err
}

// EnumValues returns the enumerators declared directly in the enum at off.
func (s *Session) EnumValues(off uint64) ([]EnumValue, error) {
	var out []EnumValue
	err := s.children(off, func(e *dwarf.Entry) {
		if e.Tag != dwarf.TagEnumerator {
			return
		}
		r := s.resolver
		out = append(out, EnumValue{
			Offset:     uint64(e.Offset),
			EnumOffset: off,
			Name:       r.String(e, dwarf.AttrName),
			Value:      r.Signed(e, dwarf.AttrConstValue, 0),
		})
	})
	return out, err
}
