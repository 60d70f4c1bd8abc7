// Package dwarfinfo opens binaries and exposes their DWARF debug information
// as a tree of entries that can be walked one compilation unit at a time.
package dwarfinfo

import (
	"debug/dwarf"
	"errors"
)

var (
	// ErrNotFound is returned when the binary does not exist.
	ErrNotFound = errors.New("binary not found")

	// ErrUnknownFormat is returned when the file is not an ELF, Mach-O or PE object.
	ErrUnknownFormat = errors.New("unrecognized object format")

	// ErrNoDebugInfo is returned when the object carries no DWARF sections.
	ErrNoDebugInfo = errors.New("no debug information")

	// ErrUnresolved is returned when an offset does not name an entry.
	ErrUnresolved = errors.New("unresolved entry offset")
)

// Unit is a compilation-unit header.
type Unit struct {
	// Offset is the offset of the unit's root entry.
	Offset dwarf.Offset
	// Version is the DWARF version from the unit header (0 if unknown).
	Version int
	// AddrSize is the size in bytes of target addresses.
	AddrSize int
}

// LineRow is one decoded row of a line-number program.
type LineRow struct {
	Address     uint64
	File        string
	Line        int
	Column      int
	IsStmt      bool
	BasicBlock  bool
	EndSequence bool
}

// Range is a half-open address range [Low, High).
type Range struct {
	Low  uint64
	High uint64
}

// Provider is the decoding collaborator used by the extraction engine.
//
// Entries returned by FirstChild and NextSibling are only valid while the
// subtree they belong to is the most recently loaded one. A Provider is not
// safe for concurrent use.
type Provider interface {
	// Units returns every compilation unit header in file order.
	Units() ([]Unit, error)

	// Root returns the root entry of a unit.
	Root(u Unit) (*dwarf.Entry, error)

	// FirstChild returns the first child of e, or nil.
	FirstChild(e *dwarf.Entry) *dwarf.Entry

	// NextSibling returns the next sibling of e, or nil.
	NextSibling(e *dwarf.Entry) *dwarf.Entry

	// EntryAt returns the entry at the given offset or ErrUnresolved.
	EntryAt(off dwarf.Offset) (*dwarf.Entry, error)

	// LineRows decodes the line-number program of the unit rooted at root.
	LineRows(root *dwarf.Entry) ([]LineRow, error)

	// Ranges returns the address ranges covered by e (from low/high or a range list).
	Ranges(e *dwarf.Entry) ([]Range, error)

	// Close releases the underlying file.
	Close() error
}
