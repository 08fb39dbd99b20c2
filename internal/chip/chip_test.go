package chip

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/bringup/internal/devtree"
)

func TestDirectoryOrderIsRegistrationOrder(t *testing.T) {
	tree := devtree.New()
	d := NewDirectory()
	for _, id := range []uint32{8, 0, 4} {
		n, err := tree.Root().NewChildAddr("xscom", uint64(id))
		require.NoError(t, err)
		d.Add(id, n)
	}

	var ids []uint32
	for _, c := range d.All() {
		ids = append(ids, c.ID)
	}
	assert.Equal(t, []uint32{8, 0, 4}, ids)
	assert.Equal(t, uint32(8), d.First().ID)
}

func TestFirstOnEmptyDirectory(t *testing.T) {
	assert.Nil(t, NewDirectory().First())
}

func TestOwnerOfWalksTowardRoot(t *testing.T) {
	tree := devtree.New()
	anchor, err := tree.Root().NewChildAddr("xscom", 0)
	require.NoError(t, err)

	d := NewDirectory()
	d.Add(3, anchor)

	bus, err := anchor.NewChildAddr("lpc", 0)
	require.NoError(t, err)
	dev, err := bus.NewChildAddr("serial", 0x3f8)
	require.NoError(t, err)

	id, ok := d.OwnerOf(dev)
	require.True(t, ok)
	assert.Equal(t, uint32(3), id)

	orphan, err := tree.Root().NewChild("floating")
	require.NoError(t, err)
	_, ok = d.OwnerOf(orphan)
	assert.False(t, ok)
}
