package dwarfinfo

import (
	"debug/dwarf"
)

// subtree indexes the parent/child/sibling links of one loaded entry and
// all its descendants.
type subtree struct {
	first map[dwarf.Offset]*dwarf.Entry
	next  map[dwarf.Offset]*dwarf.Entry
	seen  map[dwarf.Offset]struct{}
}

func (t *subtree) contains(off dwarf.Offset) bool {
	_, ok := t.seen[off]
	return ok
}

// load reads root and its descendants. A decode error truncates the subtree
// at the failing entry.
func (f *File) load(root *dwarf.Entry) *subtree {
	t := &subtree{
		first: make(map[dwarf.Offset]*dwarf.Entry),
		next:  make(map[dwarf.Offset]*dwarf.Entry),
		seen:  map[dwarf.Offset]struct{}{root.Offset: {}},
	}
	if !root.Children {
		return t
	}

	r := f.data.Reader()
	r.Seek(root.Offset)
	if _, err := r.Next(); err != nil {
		f.logger.Debug().Err(err).Uint32("offset", uint32(root.Offset)).Msg("Failed to read subtree root")
		return t
	}

	type level struct {
		parent dwarf.Offset
		last   *dwarf.Entry
	}
	stack := []level{{parent: root.Offset}}

	for len(stack) > 0 {
		e, err := r.Next()
		if err != nil {
			f.logger.Debug().Err(err).Uint32("root", uint32(root.Offset)).Msg("Subtree truncated by decode error")
			return t
		}
		if e == nil {
			return t
		}

		top := &stack[len(stack)-1]
		if e.Tag == 0 {
			stack = stack[:len(stack)-1]
			continue
		}

		t.seen[e.Offset] = struct{}{}
		if top.last == nil {
			t.first[top.parent] = e
		} else {
			t.next[top.last.Offset] = e
		}
		top.last = e

		if e.Children {
			stack = append(stack, level{parent: e.Offset})
		}
	}

	return t
}
