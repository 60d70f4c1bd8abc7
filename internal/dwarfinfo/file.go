package dwarfinfo

import (
	"debug/dwarf"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/maypok86/otter"
	"github.com/rs/zerolog"
)

// File is a Provider backed by the standard library DWARF reader.
type File struct {
	path     string
	format   string
	data     *dwarf.Data
	order    binary.ByteOrder
	closer   io.Closer
	versions map[dwarf.Offset]int
	entries  otter.Cache[dwarf.Offset, *dwarf.Entry]
	seeker   *dwarf.Reader
	tree     *subtree
	logger   zerolog.Logger
}

var _ Provider = (*File)(nil)

// Path returns the path of the opened binary.
func (f *File) Path() string {
	return f.path
}

// Format returns the object format (elf, macho, macho-fat or pe).
func (f *File) Format() string {
	return f.format
}

// ByteOrder returns the byte order of the target.
func (f *File) ByteOrder() binary.ByteOrder {
	return f.order
}

// Units returns every compilation unit in file order. When a unit cannot be
// decoded, the units read so far are returned together with the error.
func (f *File) Units() ([]Unit, error) {
	r := f.data.Reader()

	var units []Unit
	for {
		e, err := r.Next()
		if err != nil {
			return units, fmt.Errorf("failed to read compilation unit: %w", err)
		}
		if e == nil {
			return units, nil
		}

		switch e.Tag {
		case dwarf.TagCompileUnit, dwarf.TagPartialUnit, dwarf.TagSkeletonUnit:
			units = append(units, Unit{
				Offset:   e.Offset,
				Version:  f.versions[e.Offset],
				AddrSize: r.AddressSize(),
			})
		}
		r.SkipChildren()
	}
}

// Root returns the root entry of u.
func (f *File) Root(u Unit) (*dwarf.Entry, error) {
	return f.EntryAt(u.Offset)
}

// FirstChild returns the first child of e. Asking for the children of an
// entry outside the current subtree loads that entry's subtree.
func (f *File) FirstChild(e *dwarf.Entry) *dwarf.Entry {
	if e == nil || !e.Children {
		return nil
	}
	if f.tree == nil || !f.tree.contains(e.Offset) {
		f.tree = f.load(e)
	}
	return f.tree.first[e.Offset]
}

// NextSibling returns the sibling following e in the current subtree.
func (f *File) NextSibling(e *dwarf.Entry) *dwarf.Entry {
	if e == nil || f.tree == nil {
		return nil
	}
	return f.tree.next[e.Offset]
}

// EntryAt returns the entry at off.
func (f *File) EntryAt(off dwarf.Offset) (*dwarf.Entry, error) {
	if e, ok := f.entries.Get(off); ok {
		return e, nil
	}

	if f.seeker == nil {
		f.seeker = f.data.Reader()
	}
	f.seeker.Seek(off)
	e, err := f.seeker.Next()
	if err != nil {
		return nil, fmt.Errorf("%w: 0x%x: %v", ErrUnresolved, off, err)
	}
	if e == nil || e.Tag == 0 || e.Offset != off {
		return nil, fmt.Errorf("%w: 0x%x", ErrUnresolved, off)
	}

	f.entries.Set(off, e)
	return e, nil
}

// LineRows decodes the line program of the unit rooted at root. A unit
// without a line program yields no rows and no error.
func (f *File) LineRows(root *dwarf.Entry) ([]LineRow, error) {
	lr, err := f.data.LineReader(root)
	if err != nil {
		return nil, fmt.Errorf("failed to decode line program: %w", err)
	}
	if lr == nil {
		return nil, nil
	}

	var (
		rows []LineRow
		le   dwarf.LineEntry
	)
	for {
		if err := lr.Next(&le); err != nil {
			if errors.Is(err, io.EOF) {
				return rows, nil
			}
			return rows, fmt.Errorf("failed to read line entry: %w", err)
		}

		row := LineRow{
			Address:     le.Address,
			Line:        le.Line,
			Column:      le.Column,
			IsStmt:      le.IsStmt,
			BasicBlock:  le.BasicBlock,
			EndSequence: le.EndSequence,
		}
		if le.File != nil {
			row.File = le.File.Name
		}
		rows = append(rows, row)
	}
}

// Ranges returns the address ranges of e.
func (f *File) Ranges(e *dwarf.Entry) ([]Range, error) {
	raw, err := f.data.Ranges(e)
	if err != nil {
		return nil, fmt.Errorf("failed to read ranges of 0x%x: %w", e.Offset, err)
	}

	ranges := make([]Range, 0, len(raw))
	for _, r := range raw {
		ranges = append(ranges, Range{Low: r[0], High: r[1]})
	}
	return ranges, nil
}

// Close releases the entry cache and the object file.
func (f *File) Close() error {
	f.entries.Close()
	f.tree = nil
	if f.closer != nil {
		return f.closer.Close()
	}
	return nil
}
