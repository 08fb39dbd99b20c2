package fixup

import (
	"fmt"

	"github.com/vk/bringup/internal/devtree"
	"github.com/vk/bringup/internal/platform"
)

// IRQChipHintProperty names the interrupt-routing hint attached to
// synthesized devices: it records which physical chip the device interrupt
// is wired to, in lieu of a full interrupt map the earlier boot stage does
// not know how to produce.
const IRQChipHintProperty = "ibm,irq-chip-id"

// ioSpaceCell is the first reg cell of a legacy bus device, marking the
// address as I/O space rather than memory space.
const ioSpaceCell = 1

// DeviceSpec is the compile-time template for one synthesizable device
// class: the canonical node identity and property set the class must carry
// when this layer has to describe it on the earlier stage's behalf.
type DeviceSpec struct {
	// Class is the compatible entry used for the presence check: a device
	// of this class counts as already described iff some child of the bus
	// carries it.
	Class string

	Name       string
	Compatible []string
	Reg        []uint32

	// Extra holds class-specific properties beyond reg and compatible, in
	// the order they must appear.
	Extra []devtree.Property

	// Reserved marks the node "status = reserved" so the owning OS does not
	// also claim the resource.
	Reserved bool
}

// consoleSpec is the serial console template. The unit address carries the
// conventional "i" prefix for I/O-space legacy bus devices.
func consoleSpec(cfg platform.Config) DeviceSpec {
	u := cfg.UART
	return DeviceSpec{
		Class:      "ns16550",
		Name:       fmt.Sprintf("serial@i%x", u.IOBase),
		Compatible: []string{"ns16550", "pnpPNP,501"},
		Reg:        []uint32{ioSpaceCell, u.IOBase, u.IOLen},
		Extra: []devtree.Property{
			{Name: "clock-frequency", Cells: []uint32{u.ClockHz}},
			{Name: "current-speed", Cells: []uint32{u.Baud}},
			// Some OS serial probes still require an explicit device_type.
			{Name: "device_type", Strings: []string{"serial"}},
		},
	}
}

// commandChannelSpec is the management-controller command interface
// template. It is marked reserved: the firmware stack owns this interface
// and the OS must not claim it.
func commandChannelSpec(cfg platform.Config) DeviceSpec {
	c := cfg.CommandChannel
	return DeviceSpec{
		Class:      "ipmi-bt",
		Name:       fmt.Sprintf("ipmi-bt@i%x", c.IOBase),
		Compatible: []string{"ipmi-bt"},
		Reg:        []uint32{ioSpaceCell, c.IOBase, c.IOLen},
		Reserved:   true,
	}
}

// requiredDevices returns the device classes Reconcile must guarantee, in
// the fixed order they are checked and synthesized.
func requiredDevices(cfg platform.Config) []DeviceSpec {
	return []DeviceSpec{consoleSpec(cfg), commandChannelSpec(cfg)}
}
