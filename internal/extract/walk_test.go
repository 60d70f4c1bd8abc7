package extract

import (
	"debug/dwarf"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dt "github.com/coral-mesh/dwarfsql/internal/dwarfinfo/dwarfinfotest"
)

func walkTree() (*dt.Provider, *dwarf.Entry) {
	p := dt.New().AddUnit(dt.Die(0x0b, dwarf.TagCompileUnit).With(
		dt.Die(0x10, dwarf.TagNamespace).With(
			dt.Die(0x11, dwarf.TagSubprogram).With(
				dt.Die(0x12, dwarf.TagFormalParameter),
				dt.Die(0x13, dwarf.TagLexDwarfBlock).With(
					dt.Die(0x14, dwarf.TagVariable),
				),
			),
		),
		dt.Die(0x20, dwarf.TagVariable),
	))
	root, _ := p.EntryAt(0x0b)
	return p, root
}

func TestWalk_PreOrder(t *testing.T) {
	p, root := walkTree()

	var offsets []dwarf.Offset
	var depths []int
	Walk(p, root, 0, func(e *dwarf.Entry, depth int) {
		offsets = append(offsets, e.Offset)
		depths = append(depths, depth)
	})

	assert.Equal(t, []dwarf.Offset{0x0b, 0x10, 0x11, 0x12, 0x13, 0x14, 0x20}, offsets)
	assert.Equal(t, []int{0, 1, 2, 3, 3, 4, 1}, depths)
}

func TestWalk_StartDepth(t *testing.T) {
	p, _ := walkTree()
	sub, err := p.EntryAt(0x13)
	require.NoError(t, err)

	var depths []int
	Walk(p, sub, 5, func(_ *dwarf.Entry, depth int) {
		depths = append(depths, depth)
	})
	assert.Equal(t, []int{5, 6}, depths)
}

func TestWalk_Nil(t *testing.T) {
	p, _ := walkTree()
	called := false
	Walk(p, nil, 0, func(*dwarf.Entry, int) { called = true })
	assert.False(t, called)
}

func TestWalkPath_Ancestors(t *testing.T) {
	p, root := walkTree()

	parents := make(map[dwarf.Offset]dwarf.Offset)
	lens := make(map[dwarf.Offset]int)
	WalkPath(p, root, 0, func(e *dwarf.Entry, depth int, path *Path) {
		assert.Equal(t, depth, path.Len(), "path length matches depth for 0x%x", e.Offset)
		lens[e.Offset] = path.Len()
		if parent := path.Parent(); parent != nil {
			parents[e.Offset] = parent.Offset
		}
	})

	assert.Equal(t, map[dwarf.Offset]dwarf.Offset{
		0x10: 0x0b,
		0x11: 0x10,
		0x12: 0x11,
		0x13: 0x11,
		0x14: 0x13,
		0x20: 0x0b,
	}, parents)
	assert.Equal(t, 0, lens[0x0b])
	assert.Equal(t, 1, lens[0x20], "leaving a subtree pops its entries")
}

func TestPath_Nearest(t *testing.T) {
	p, root := walkTree()

	var atVar *Path
	WalkPath(p, root, 0, func(e *dwarf.Entry, _ int, path *Path) {
		if e.Offset != 0x14 {
			return
		}
		assert.Equal(t, dwarf.Offset(0x13), path.Nearest(dwarf.TagLexDwarfBlock, dwarf.TagSubprogram).Offset)
		assert.Equal(t, dwarf.Offset(0x11), path.Nearest(dwarf.TagSubprogram).Offset)
		assert.Equal(t, dwarf.Offset(0x10), path.Nearest(dwarf.TagNamespace).Offset)
		assert.Nil(t, path.Nearest(dwarf.TagStructType))
		atVar = path
	})
	require.NotNil(t, atVar)
	assert.Zero(t, atVar.Len(), "path is empty once the walk returns")
	assert.Nil(t, atVar.Parent())
}
