package extract

import (
	"debug/dwarf"

	"github.com/coral-mesh/dwarfsql/internal/dwarfinfo"
)

// VisitFunc is called for every entry of a walked subtree. The root is
// visited at the depth passed to Walk.
type VisitFunc func(e *dwarf.Entry, depth int)

// Walk visits e and its descendants depth-first in pre-order.
func Walk(p dwarfinfo.Provider, e *dwarf.Entry, depth int, visit VisitFunc) {
	WalkPath(p, e, depth, func(e *dwarf.Entry, depth int, _ *Path) {
		visit(e, depth)
	})
}

// PathVisitFunc is a VisitFunc that also receives the ancestors of the
// visited entry.
type PathVisitFunc func(e *dwarf.Entry, depth int, path *Path)

// WalkPath is Walk with an ancestor stack. The path passed to visit holds
// the ancestors of e, root first, and does not include e itself.
func WalkPath(p dwarfinfo.Provider, e *dwarf.Entry, depth int, visit PathVisitFunc) {
	if e == nil {
		return
	}
	path := &Path{}
	walk(p, e, depth, path, visit)
}

func walk(p dwarfinfo.Provider, e *dwarf.Entry, depth int, path *Path, visit PathVisitFunc) {
	visit(e, depth, path)
	if !e.Children {
		return
	}

	path.push(e)
	for c := p.FirstChild(e); c != nil; c = p.NextSibling(c) {
		walk(p, c, depth+1, path, visit)
	}
	path.pop()
}

// Path is the stack of entries enclosing the entry being visited.
type Path struct {
	entries []*dwarf.Entry
}

func (p *Path) push(e *dwarf.Entry) {
	p.entries = append(p.entries, e)
}

func (p *Path) pop() {
	p.entries = p.entries[:len(p.entries)-1]
}

// Len returns the number of ancestors.
func (p *Path) Len() int {
	return len(p.entries)
}

// Parent returns the direct parent, or nil at the root.
func (p *Path) Parent() *dwarf.Entry {
	if len(p.entries) == 0 {
		return nil
	}
	return p.entries[len(p.entries)-1]
}

// Nearest returns the innermost ancestor carrying one of tags, or nil.
func (p *Path) Nearest(tags ...dwarf.Tag) *dwarf.Entry {
	for i := len(p.entries) - 1; i >= 0; i-- {
		for _, t := range tags {
			if p.entries[i].Tag == t {
				return p.entries[i]
			}
		}
	}
	return nil
}
