package dwarfinfotest

import (
	"debug/dwarf"
)

// The helpers below build attribute fields with the value types the
// standard library reader produces for each attribute class.

// Name returns a DW_AT_name string field.
func Name(s string) dwarf.Field {
	return Str(dwarf.AttrName, s)
}

// Str returns a string-class field.
func Str(attr dwarf.Attr, s string) dwarf.Field {
	return dwarf.Field{Attr: attr, Val: s, Class: dwarf.ClassString}
}

// Const returns a constant-class field holding v.
func Const(attr dwarf.Attr, v int64) dwarf.Field {
	return dwarf.Field{Attr: attr, Val: v, Class: dwarf.ClassConstant}
}

// Udata returns a constant-class field holding an unsigned value.
func Udata(attr dwarf.Attr, v uint64) dwarf.Field {
	return dwarf.Field{Attr: attr, Val: v, Class: dwarf.ClassConstant}
}

// Addr returns an address-class field.
func Addr(attr dwarf.Attr, v uint64) dwarf.Field {
	return dwarf.Field{Attr: attr, Val: v, Class: dwarf.ClassAddress}
}

// Flag returns a flag-class field set to true.
func Flag(attr dwarf.Attr) dwarf.Field {
	return dwarf.Field{Attr: attr, Val: true, Class: dwarf.ClassFlag}
}

// Ref returns a reference-class field.
func Ref(attr dwarf.Attr, off dwarf.Offset) dwarf.Field {
	return dwarf.Field{Attr: attr, Val: off, Class: dwarf.ClassReference}
}

// Type returns a DW_AT_type reference.
func Type(off dwarf.Offset) dwarf.Field {
	return Ref(dwarf.AttrType, off)
}

// Expr returns an exprloc-class field.
func Expr(attr dwarf.Attr, b ...byte) dwarf.Field {
	return dwarf.Field{Attr: attr, Val: b, Class: dwarf.ClassExprLoc}
}

// Block returns a block-class field.
func Block(attr dwarf.Attr, b ...byte) dwarf.Field {
	return dwarf.Field{Attr: attr, Val: b, Class: dwarf.ClassBlock}
}

// LocList returns a location-list pointer field.
func LocList(attr dwarf.Attr, off int64) dwarf.Field {
	return dwarf.Field{Attr: attr, Val: off, Class: dwarf.ClassLocListPtr}
}

// Raw returns a field with an arbitrary class and value.
func Raw(attr dwarf.Attr, class dwarf.Class, v any) dwarf.Field {
	return dwarf.Field{Attr: attr, Val: v, Class: class}
}
