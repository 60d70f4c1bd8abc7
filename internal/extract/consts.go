package extract

import (
	"debug/dwarf"
	"strconv"
)

// Vendor extensions that debug/dwarf does not name.
const (
	tagGNUCallSite dwarf.Tag = 0x4109

	attrMIPSLinkageName dwarf.Attr = 0x2007
	attrGNUTailCall     dwarf.Attr = 0x2115
)

// DW_AT_inline values.
const (
	inlDeclaredNotInlined = 2
	inlDeclaredInlined    = 3
)

// DW_AT_accessibility values.
const (
	accessPublic    = 1
	accessProtected = 2
	accessPrivate   = 3
)

// maxTypeChain bounds the number of references followed by TypeName.
const maxTypeChain = 64

// Struct kinds.
const (
	KindStruct = "struct"
	KindClass  = "class"
	KindUnion  = "union"
)

// Access levels.
const (
	AccessPublic    = "public"
	AccessProtected = "protected"
	AccessPrivate   = "private"
)

var tagNames = map[dwarf.Tag]string{
	dwarf.TagBaseType:            "base_type",
	dwarf.TagTypedef:             "typedef",
	dwarf.TagPointerType:         "pointer_type",
	dwarf.TagReferenceType:       "reference_type",
	dwarf.TagRvalueReferenceType: "rvalue_reference_type",
	dwarf.TagConstType:           "const_type",
	dwarf.TagVolatileType:        "volatile_type",
	dwarf.TagRestrictType:        "restrict_type",
	dwarf.TagArrayType:           "array_type",
	dwarf.TagStructType:          "structure_type",
	dwarf.TagClassType:           "class_type",
	dwarf.TagUnionType:           "union_type",
	dwarf.TagEnumerationType:     "enumeration_type",
	dwarf.TagSubroutineType:      "subroutine_type",
	dwarf.TagPtrToMemberType:     "ptr_to_member_type",
	dwarf.TagUnspecifiedType:     "unspecified_type",
	dwarf.TagSubprogram:          "subprogram",
	dwarf.TagVariable:            "variable",
	dwarf.TagFormalParameter:     "formal_parameter",
	dwarf.TagMember:              "member",
	dwarf.TagNamespace:           "namespace",
	dwarf.TagCompileUnit:         "compile_unit",
	dwarf.TagInlinedSubroutine:   "inlined_subroutine",
	dwarf.TagLexDwarfBlock:       "lexical_block",
	dwarf.TagInheritance:         "inheritance",
	dwarf.TagEnumerator:          "enumerator",
	dwarf.TagCallSite:            "call_site",
	tagGNUCallSite:               "GNU_call_site",
}

// TagName returns the DWARF name of tag without its DW_TAG_ prefix, or the
// hex code for tags it does not know.
func TagName(tag dwarf.Tag) string {
	if name, ok := tagNames[tag]; ok {
		return name
	}
	return "0x" + strconv.FormatUint(uint64(tag), 16)
}
