package platform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/bringup/internal/testutil"
)

func TestLoadAppliesOverrides(t *testing.T) {
	path := testutil.WriteFile(t, "variant.hcl", `
bus_class = "ibm,power9-lpcm"

uart {
  io_base = "0x2f8"
  irq     = 3
}

base_address {
  register = "0x5012900"
  value    = "0x6030203000001"
}

inventory {
  bus_ports = [1, "0x3"]
}
`)

	cfg, err := Load(testutil.Context(t), path)
	require.NoError(t, err)

	assert.Equal(t, "ibm,power9-lpcm", cfg.BusClass)
	assert.Equal(t, uint32(0x2f8), cfg.UART.IOBase)
	assert.Equal(t, uint32(3), cfg.UART.IRQ)
	assert.Equal(t, uint32(0x5012900), uint32(cfg.BaseAddress.Register))
	assert.Equal(t, uint64(0x6030203000001), cfg.BaseAddress.Value)
	assert.Equal(t, []uint32{1, 3}, cfg.Inventory.BusPorts)

	// Untouched attributes keep their defaults.
	def := Defaults()
	assert.Equal(t, def.UART.IOLen, cfg.UART.IOLen)
	assert.Equal(t, def.UART.ClockHz, cfg.UART.ClockHz)
	assert.Equal(t, def.CommandChannel, cfg.CommandChannel)
	assert.Equal(t, def.BaseAddress.EnableBit, cfg.BaseAddress.EnableBit)
	assert.Equal(t, def.Inventory.DeviceLabel, cfg.Inventory.DeviceLabel)
}

func TestLoadRejectsBadInput(t *testing.T) {
	testCases := []struct {
		name    string
		content string
	}{
		{
			name:    "unknown attribute",
			content: "uart {\n  io_bass = 4\n}\n",
		},
		{
			name:    "non-integer number",
			content: "uart {\n  irq = 4.5\n}\n",
		},
		{
			name:    "malformed hex string",
			content: "uart {\n  io_base = \"0xzz\"\n}\n",
		},
		{
			name:    "value too wide",
			content: "uart {\n  io_base = \"0x1ffffffff\"\n}\n",
		},
		{
			name:    "wrong type",
			content: "bus_class = 7\n",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			path := testutil.WriteFile(t, "bad.hcl", tc.content)
			_, err := Load(testutil.Context(t), path)
			require.Error(t, err)
		})
	}
}

func TestDefaultsAreInternallyConsistent(t *testing.T) {
	cfg := Defaults()
	assert.NotEmpty(t, cfg.BusClass)
	assert.NotZero(t, cfg.UART.IOBase)
	assert.NotZero(t, cfg.CommandChannel.IOBase)
	assert.NotEmpty(t, cfg.Inventory.BusPorts)
	// The fixed base-address value already carries the enable bit.
	assert.NotZero(t, cfg.BaseAddress.Value&cfg.BaseAddress.EnableBit)
}
