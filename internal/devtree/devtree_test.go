package devtree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewChildRejectsDuplicateIdentity(t *testing.T) {
	tree := New()
	_, err := tree.Root().NewChildAddr("serial", 0x3f8)
	require.NoError(t, err)

	_, err = tree.Root().NewChildAddr("serial", 0x3f8)
	require.ErrorIs(t, err, ErrDuplicateNode)

	// Same name at a different unit address is a distinct identity.
	_, err = tree.Root().NewChildAddr("serial", 0x2f8)
	require.NoError(t, err)
	assert.Len(t, tree.Root().Children(), 2)
}

func TestNodeBudgetExhaustion(t *testing.T) {
	tree := NewWithLimit(2) // root plus one child
	n, err := tree.Root().NewChild("lpc")
	require.NoError(t, err)

	_, err = n.NewChild("serial@i3f8")
	require.ErrorIs(t, err, ErrNoSpace)
	assert.Empty(t, n.Children())
	assert.Equal(t, 2, tree.NodeCount())
}

func TestPropertyReplaceKeepsOrder(t *testing.T) {
	tree := New()
	n, err := tree.Root().NewChild("uart")
	require.NoError(t, err)

	n.SetCells("reg", 1, 0x3f8, 8)
	n.SetStrings("compatible", "ns16550")
	n.SetCells("reg", 1, 0x2f8, 8)

	props := n.Properties()
	require.Len(t, props, 2)
	assert.Equal(t, "reg", props[0].Name)
	assert.Equal(t, []uint32{1, 0x2f8, 8}, props[0].Cells)
	assert.Equal(t, "compatible", props[1].Name)
}

func TestFindCompatibleDocumentOrder(t *testing.T) {
	tree := New()
	bus, err := tree.Root().NewChild("lpc@0")
	require.NoError(t, err)
	first, err := bus.NewChild("a")
	require.NoError(t, err)
	first.SetStrings("compatible", "ns16550", "pnpPNP,501")
	second, err := tree.Root().NewChild("b")
	require.NoError(t, err)
	second.SetStrings("compatible", "ns16550")

	// Depth-first: the node under the bus precedes the root-level sibling.
	assert.Same(t, first, tree.Root().FindCompatible("ns16550"))
	assert.Same(t, second, second.FindCompatible("ns16550"))
	assert.Nil(t, tree.Root().FindCompatible("ipmi-bt"))
}

func TestWalkCompatibleStopsEarly(t *testing.T) {
	tree := New()
	for _, name := range []string{"a", "b", "c"} {
		n, err := tree.Root().NewChild(name)
		require.NoError(t, err)
		n.SetStrings("compatible", "widget")
	}

	var seen []string
	tree.Root().WalkCompatible("widget", func(n *Node) bool {
		seen = append(seen, n.Name())
		return len(seen) < 2
	})
	assert.Equal(t, []string{"a", "b"}, seen)
}

func TestCloneIsDeep(t *testing.T) {
	tree := New()
	bus, err := tree.Root().NewChild("lpc@0")
	require.NoError(t, err)
	bus.SetStrings("compatible", "ibm,power8-lpc")

	clone := tree.Clone()
	require.Equal(t, tree.NodeCount(), clone.NodeCount())

	bus.SetStrings("compatible", "changed")
	_, err = bus.NewChild("extra")
	require.NoError(t, err)

	cloned := clone.Root().Children()[0]
	assert.True(t, cloned.IsCompatible("ibm,power8-lpc"))
	assert.Empty(t, cloned.Children())
}
