// Package sim provides in-memory stand-ins for the hardware the bring-up
// sequence drives: the side-channel register bus, the management
// controller's I/O decoding, the interrupt controller, the host bridge and
// the console. Every stand-in records what was done to it, so tests and the
// simulator CLI can assert on sequencing and wiring instead of side effects.
package sim

import (
	"fmt"

	"github.com/vk/bringup/internal/bringup"
	"github.com/vk/bringup/internal/scom"
)

type regKey struct {
	chip uint32
	reg  scom.RegisterID
}

// WriteRecord is one observed register write.
type WriteRecord struct {
	Chip  uint32
	Reg   scom.RegisterID
	Value uint64
}

// Bus is an in-memory scom.Transport with per-register fault injection.
type Bus struct {
	values   map[regKey]uint64
	readErr  map[regKey]error
	writeLog []WriteRecord
}

// NewBus returns an empty register bus. Unseeded registers read as zero.
func NewBus() *Bus {
	return &Bus{
		values:  make(map[regKey]uint64),
		readErr: make(map[regKey]error),
	}
}

// Seed sets a register's current value.
func (b *Bus) Seed(chipID uint32, reg scom.RegisterID, value uint64) {
	b.values[regKey{chipID, reg}] = value
}

// FailRead makes every read of the register return err.
func (b *Bus) FailRead(chipID uint32, reg scom.RegisterID, err error) {
	b.readErr[regKey{chipID, reg}] = err
}

// Read implements scom.Transport.
func (b *Bus) Read(chipID uint32, reg scom.RegisterID) (uint64, error) {
	k := regKey{chipID, reg}
	if err := b.readErr[k]; err != nil {
		return 0, err
	}
	return b.values[k], nil
}

// Write implements scom.Transport.
func (b *Bus) Write(chipID uint32, reg scom.RegisterID, value uint64) error {
	k := regKey{chipID, reg}
	b.values[k] = value
	b.writeLog = append(b.writeLog, WriteRecord{Chip: chipID, Reg: reg, Value: value})
	return nil
}

// Writes returns every write in the order it happened.
func (b *Bus) Writes() []WriteRecord {
	return b.writeLog
}

// Value returns a register's current value.
func (b *Bus) Value(chipID uint32, reg scom.RegisterID) uint64 {
	return b.values[regKey{chipID, reg}]
}

// Wiring is one programmed address/interrupt pair.
type Wiring struct {
	IOBase uint32
	IRQ    uint32
}

// Management models the management controller's I/O decoding. The VUART
// field is the read-only firmware configuration flag the UART decision is
// driven by.
type Management struct {
	VUART bool

	SIODisabled    bool
	VUARTWiring    *Wiring
	SIOWiring      *Wiring
	CommandChannel *Wiring
	Calls          []string
}

// VUARTEnabled implements bringup.ManagementIO.
func (m *Management) VUARTEnabled() bool {
	m.Calls = append(m.Calls, "vuart-enabled?")
	return m.VUART
}

// DisableSIOUART implements bringup.ManagementIO.
func (m *Management) DisableSIOUART() {
	m.Calls = append(m.Calls, "disable-sio")
	m.SIODisabled = true
}

// SetupVUART implements bringup.ManagementIO.
func (m *Management) SetupVUART(ioBase, irq uint32) {
	m.Calls = append(m.Calls, fmt.Sprintf("setup-vuart %#x irq %d", ioBase, irq))
	m.VUARTWiring = &Wiring{IOBase: ioBase, IRQ: irq}
}

// SetupSIOUART implements bringup.ManagementIO.
func (m *Management) SetupSIOUART(ioBase, irq uint32) {
	m.Calls = append(m.Calls, fmt.Sprintf("setup-sio %#x irq %d", ioBase, irq))
	m.SIOWiring = &Wiring{IOBase: ioBase, IRQ: irq}
}

// SetupCommandChannel implements bringup.ManagementIO.
func (m *Management) SetupCommandChannel(ioBase, irq uint32) {
	m.Calls = append(m.Calls, fmt.Sprintf("setup-command-channel %#x irq %d", ioBase, irq))
	m.CommandChannel = &Wiring{IOBase: ioBase, IRQ: irq}
}

// ActiveUART reports which UART path ended up programmed: "vuart", "sio",
// "both" or "none".
func (m *Management) ActiveUART() string {
	switch {
	case m.VUARTWiring != nil && m.SIOWiring != nil:
		return "both"
	case m.VUARTWiring != nil:
		return "vuart"
	case m.SIOWiring != nil:
		return "sio"
	default:
		return "none"
	}
}

// InterruptController records the delivery policies it was asked to apply.
type InterruptController struct {
	Err      error
	Policies []bringup.IRQPolicy
}

// SetExternalPolicy implements bringup.InterruptController.
func (ic *InterruptController) SetExternalPolicy(policy bringup.IRQPolicy) error {
	if ic.Err != nil {
		return ic.Err
	}
	ic.Policies = append(ic.Policies, policy)
	return nil
}

// Bridge records whether the management bridge was initialized.
type Bridge struct {
	Err    error
	Inited bool
}

// Init implements bringup.HostBridge.
func (b *Bridge) Init() error {
	if b.Err != nil {
		return b.Err
	}
	b.Inited = true
	return nil
}

// Console records the hand-off from the sequencer.
type Console struct {
	Err            error
	Started        bool
	WithInterrupts bool
}

// Start implements bringup.Console.
func (c *Console) Start(withInterrupts bool) error {
	if c.Err != nil {
		return c.Err
	}
	c.Started = true
	c.WithInterrupts = withInterrupts
	return nil
}
