// Package platform holds the platform-specific hard facts the bring-up
// sequence programs into the tree and the hardware: I/O bases, interrupt
// lines, clock rates, the base-address register and its mandated value.
// These are facts, not derived quantities; the compiled-in defaults describe
// the reference platform and an HCL file can override them for variants.
package platform

import "github.com/vk/bringup/internal/scom"

// UART describes the serial console device on the low-speed peripheral bus.
type UART struct {
	IOBase  uint32
	IOLen   uint32
	IRQ     uint32
	ClockHz uint32
	Baud    uint32
}

// CommandChannel describes the management-controller command interface on
// the same bus.
type CommandChannel struct {
	IOBase uint32
	IOLen  uint32
	IRQ    uint32
}

// Inventory describes the synthesized inventory bus: one controller engine,
// its bus ports, and the identification EEPROM.
type Inventory struct {
	ControllerClass  string
	ControllerBase   uint32
	ControllerStride uint32
	Engine           uint32
	ClockHz          uint32
	BusClasses       []string
	BusPorts         []uint32
	BusHz            uint32
	DeviceAddr       uint32
	DeviceName       string
	DeviceClass      string
	DeviceLabel      string
}

// BaseAddress describes the chip control register that gates the internal
// communication path, and the value to program when firmware left it unset.
type BaseAddress struct {
	Register  scom.RegisterID
	Value     uint64
	EnableBit uint64
}

// Config is the full platform fact set consumed by the fixup and bring-up
// layers.
type Config struct {
	BusClass       string
	UART           UART
	CommandChannel CommandChannel
	Inventory      Inventory
	BaseAddress    BaseAddress
}

// Defaults returns the reference platform configuration.
func Defaults() Config {
	return Config{
		BusClass: "ibm,power8-lpc",
		UART: UART{
			IOBase:  0x3f8,
			IOLen:   8,
			IRQ:     4,
			ClockHz: 1843200,
			Baud:    115200,
		},
		CommandChannel: CommandChannel{
			IOBase: 0xe4,
			IOLen:  3,
			IRQ:    10,
		},
		Inventory: Inventory{
			ControllerClass:  "ibm,power8-i2cm",
			BusClasses:       []string{"ibm,power8-i2c-port", "ibm,opal-i2c"},
			ControllerBase:   0xa0000,
			ControllerStride: 0x20,
			Engine:           1,
			ClockHz:          50000000,
			BusPorts:         []uint32{0, 2},
			BusHz:            400000,
			DeviceAddr:       0x50,
			DeviceName:       "eeprom",
			DeviceClass:      "atmel,24c64",
			DeviceLabel:      "system-vpd",
		},
		BaseAddress: BaseAddress{
			Register:  0x201090a,
			Value:     0x3fffe80000001,
			EnableBit: 0x1,
		},
	}
}
