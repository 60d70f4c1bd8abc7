// Package dwarfinfotest provides an in-memory dwarfinfo.Provider for tests.
//
// Trees are built from Nodes:
//
//	p := dwarfinfotest.New()
//	p.AddUnit(dwarfinfotest.Die(0x0b, dwarf.TagCompileUnit, dwarfinfotest.Name("a.c")).With(
//	    dwarfinfotest.Die(0x20, dwarf.TagSubprogram, dwarfinfotest.Name("main")),
//	))
package dwarfinfotest

import (
	"debug/dwarf"
	"errors"
	"fmt"

	"github.com/coral-mesh/dwarfsql/internal/dwarfinfo"
)

// ErrInjected is returned by operations configured to fail.
var ErrInjected = errors.New("injected failure")

// Node describes one entry of a fake DIE tree.
type Node struct {
	Offset   dwarf.Offset
	Tag      dwarf.Tag
	Fields   []dwarf.Field
	Children []*Node
}

// Die creates a node.
func Die(off dwarf.Offset, tag dwarf.Tag, fields ...dwarf.Field) *Node {
	return &Node{Offset: off, Tag: tag, Fields: fields}
}

// With appends children to n and returns n.
func (n *Node) With(children ...*Node) *Node {
	n.Children = append(n.Children, children...)
	return n
}

// Provider is an in-memory dwarfinfo.Provider.
type Provider struct {
	units    []dwarfinfo.Unit
	entries  map[dwarf.Offset]*dwarf.Entry
	first    map[dwarf.Offset]*dwarf.Entry
	next     map[dwarf.Offset]*dwarf.Entry
	lines    map[dwarf.Offset][]dwarfinfo.LineRow
	ranges   map[dwarf.Offset][]dwarfinfo.Range
	rootErr  map[dwarf.Offset]bool
	lineErr  map[dwarf.Offset]bool
	unitsErr error

	// Closed reports whether Close was called.
	Closed bool
	// Lookups counts EntryAt calls.
	Lookups int
}

var _ dwarfinfo.Provider = (*Provider)(nil)

// New creates an empty provider.
func New() *Provider {
	return &Provider{
		entries: make(map[dwarf.Offset]*dwarf.Entry),
		first:   make(map[dwarf.Offset]*dwarf.Entry),
		next:    make(map[dwarf.Offset]*dwarf.Entry),
		lines:   make(map[dwarf.Offset][]dwarfinfo.LineRow),
		ranges:  make(map[dwarf.Offset][]dwarfinfo.Range),
		rootErr: make(map[dwarf.Offset]bool),
		lineErr: make(map[dwarf.Offset]bool),
	}
}

// AddUnit registers a compilation unit rooted at root.
func (p *Provider) AddUnit(root *Node) *Provider {
	p.units = append(p.units, dwarfinfo.Unit{Offset: root.Offset, Version: 4, AddrSize: 8})
	p.index(root)
	return p
}

// SetLines sets the decoded line rows of a unit.
func (p *Provider) SetLines(unit dwarf.Offset, rows ...dwarfinfo.LineRow) *Provider {
	p.lines[unit] = rows
	return p
}

// SetRanges sets the range list returned for an entry.
func (p *Provider) SetRanges(off dwarf.Offset, ranges ...dwarfinfo.Range) *Provider {
	p.ranges[off] = ranges
	return p
}

// FailRoot makes Root fail for the given unit.
func (p *Provider) FailRoot(unit dwarf.Offset) *Provider {
	p.rootErr[unit] = true
	return p
}

// FailLines makes LineRows fail for the given unit.
func (p *Provider) FailLines(unit dwarf.Offset) *Provider {
	p.lineErr[unit] = true
	return p
}

// FailUnits makes Units return err together with the units registered so far.
func (p *Provider) FailUnits(err error) *Provider {
	p.unitsErr = err
	return p
}

func (p *Provider) index(n *Node) *dwarf.Entry {
	e := &dwarf.Entry{
		Offset:   n.Offset,
		Tag:      n.Tag,
		Children: len(n.Children) > 0,
		Field:    n.Fields,
	}
	p.entries[n.Offset] = e

	var prev *dwarf.Entry
	for _, child := range n.Children {
		ce := p.index(child)
		if prev == nil {
			p.first[n.Offset] = ce
		} else {
			p.next[prev.Offset] = ce
		}
		prev = ce
	}
	return e
}

// Units implements dwarfinfo.Provider.
func (p *Provider) Units() ([]dwarfinfo.Unit, error) {
	return p.units, p.unitsErr
}

// Root implements dwarfinfo.Provider.
func (p *Provider) Root(u dwarfinfo.Unit) (*dwarf.Entry, error) {
	if p.rootErr[u.Offset] {
		return nil, fmt.Errorf("root of unit 0x%x: %w", u.Offset, ErrInjected)
	}
	e, ok := p.entries[u.Offset]
	if !ok {
		return nil, fmt.Errorf("%w: 0x%x", dwarfinfo.ErrUnresolved, u.Offset)
	}
	return e, nil
}

// FirstChild implements dwarfinfo.Provider.
func (p *Provider) FirstChild(e *dwarf.Entry) *dwarf.Entry {
	if e == nil {
		return nil
	}
	return p.first[e.Offset]
}

// NextSibling implements dwarfinfo.Provider.
func (p *Provider) NextSibling(e *dwarf.Entry) *dwarf.Entry {
	if e == nil {
		return nil
	}
	return p.next[e.Offset]
}

// EntryAt implements dwarfinfo.Provider.
func (p *Provider) EntryAt(off dwarf.Offset) (*dwarf.Entry, error) {
	p.Lookups++
	e, ok := p.entries[off]
	if !ok {
		return nil, fmt.Errorf("%w: 0x%x", dwarfinfo.ErrUnresolved, off)
	}
	return e, nil
}

// LineRows implements dwarfinfo.Provider.
func (p *Provider) LineRows(root *dwarf.Entry) ([]dwarfinfo.LineRow, error) {
	if p.lineErr[root.Offset] {
		return nil, fmt.Errorf("line program of 0x%x: %w", root.Offset, ErrInjected)
	}
	return p.lines[root.Offset], nil
}

// Ranges implements dwarfinfo.Provider.
func (p *Provider) Ranges(e *dwarf.Entry) ([]dwarfinfo.Range, error) {
	return p.ranges[e.Offset], nil
}

// Close implements dwarfinfo.Provider.
func (p *Provider) Close() error {
	p.Closed = true
	return nil
}
