package fixup

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/bringup/internal/chip"
	"github.com/vk/bringup/internal/devtree"
	"github.com/vk/bringup/internal/platform"
	"github.com/vk/bringup/internal/testutil"
)

func TestInjectInventoryBusSynthesizesFullSubtree(t *testing.T) {
	tree, chips, _ := newWorld(t)
	j := &Injector{Config: platform.Defaults(), Chips: chips}

	require.NoError(t, j.InjectInventoryBus(testutil.Context(t), tree))

	anchor := chips.First().Node
	var controller *devtree.Node
	for _, c := range anchor.Children() {
		if c.IsCompatible("ibm,power8-i2cm") {
			controller = c
		}
	}
	require.NotNil(t, controller)
	// base 0xa0000 + engine 1 * stride 0x20
	assert.Equal(t, "i2cm@a0020", controller.Name())
	reg, ok := controller.Property("reg")
	require.True(t, ok)
	assert.Equal(t, []uint32{0xa0020, 0x20}, reg.Cells)
	engine, ok := controller.Property("chip-engine#")
	require.True(t, ok)
	assert.Equal(t, []uint32{1}, engine.Cells)

	buses := controller.Children()
	require.Len(t, buses, 2)
	assert.Equal(t, "i2c-bus@0", buses[0].Name())
	assert.Equal(t, "i2c-bus@2", buses[1].Name())
	for _, bus := range buses {
		assert.True(t, bus.IsCompatible("ibm,power8-i2c-port"))
		assert.True(t, bus.IsCompatible("ibm,opal-i2c"))
	}
	name, ok := buses[1].Property("ibm,port-name")
	require.True(t, ok)
	assert.Equal(t, []string{"p8_00000000_e1p2"}, name.Strings)

	// The EEPROM hangs off the last bus port.
	assert.Empty(t, buses[0].Children())
	require.Len(t, buses[1].Children(), 1)
	dev := buses[1].Children()[0]
	assert.Equal(t, "eeprom@50", dev.Name())
	assert.True(t, dev.IsCompatible("atmel,24c64"))
	label, ok := dev.Property("label")
	require.True(t, ok)
	assert.Equal(t, []string{"system-vpd"}, label.Strings)
	status, ok := dev.Property("status")
	require.True(t, ok)
	assert.Equal(t, []string{"ok"}, status.Strings)
}

func TestInjectInventoryBusGlobalSkip(t *testing.T) {
	tree, chips, _ := newWorld(t)

	// An existing controller anywhere in the tree, even outside the primary
	// bus subtree, suppresses injection entirely.
	elsewhere, err := tree.Root().NewChild("other")
	require.NoError(t, err)
	existing, err := elsewhere.NewChildAddr("i2cm", 0xa0040)
	require.NoError(t, err)
	existing.SetStrings("compatible", "ibm,power8-i2cm")

	before := render(t, tree)
	j := &Injector{Config: platform.Defaults(), Chips: chips}
	require.NoError(t, j.InjectInventoryBus(testutil.Context(t), tree))
	assert.Equal(t, before, render(t, tree))
}

func TestInjectInventoryBusIsIdempotent(t *testing.T) {
	tree, chips, _ := newWorld(t)
	j := &Injector{Config: platform.Defaults(), Chips: chips}
	ctx := testutil.Context(t)

	require.NoError(t, j.InjectInventoryBus(ctx, tree))
	once := render(t, tree)
	require.NoError(t, j.InjectInventoryBus(ctx, tree))
	assert.Equal(t, once, render(t, tree))
}

func TestInjectInventoryBusCreationFailureIsFatal(t *testing.T) {
	tree := devtree.NewWithLimit(3) // root, anchor, controller — no room for buses
	chips := chip.NewDirectory()
	anchor, err := tree.Root().NewChildAddr("xscom", 0)
	require.NoError(t, err)
	chips.Add(0, anchor)

	j := &Injector{Config: platform.Defaults(), Chips: chips}
	err = j.InjectInventoryBus(testutil.Context(t), tree)
	require.ErrorIs(t, err, devtree.ErrNoSpace)
}

func TestInjectInventoryBusRequiresChips(t *testing.T) {
	tree := devtree.New()
	j := &Injector{Config: platform.Defaults(), Chips: chip.NewDirectory()}
	require.Error(t, j.InjectInventoryBus(testutil.Context(t), tree))
}
