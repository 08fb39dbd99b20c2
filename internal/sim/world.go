package sim

import (
	"fmt"

	"github.com/vk/bringup/internal/bringup"
	"github.com/vk/bringup/internal/chip"
	"github.com/vk/bringup/internal/devtree"
	"github.com/vk/bringup/internal/platform"
)

// Options shapes the synthetic platform a World models.
type Options struct {
	// Chips is the number of processing chips; 0 means 1.
	Chips int

	// VUARTEnabled is the firmware flag the UART path decision reads.
	VUARTEnabled bool

	// BaseAddressConfigured seeds the base-address register with a value
	// whose enable bit is already set.
	BaseAddressConfigured bool

	// FailBaseAddressRead injects a transport error on the base-address
	// register read.
	FailBaseAddressRead bool

	// ExistingConsole pre-populates a console node on the primary bus, as a
	// fully described earlier boot stage would.
	ExistingConsole bool

	// ExistingInventory pre-populates an inventory controller node.
	ExistingInventory bool

	// TreeLimit caps the tree's node budget; 0 means unlimited.
	TreeLimit int
}

// World is a complete synthetic platform: the post-boot-stage description
// tree, the chip directory, and recording stand-ins for every collaborator
// the sequencer drives.
type World struct {
	Config     platform.Config
	Tree       *devtree.Tree
	Chips      *chip.Directory
	Bus        *Bus
	Interrupts *InterruptController
	Bridge     *Bridge
	Management *Management
	Console    *Console
}

// NewWorld builds the synthetic platform. The tree mirrors what the earlier
// boot stage hands over: one anchor node per chip, the primary bus under the
// first chip, and optionally the devices that stage sometimes describes.
func NewWorld(cfg platform.Config, opts Options) (*World, error) {
	nChips := opts.Chips
	if nChips == 0 {
		nChips = 1
	}

	tree := devtree.NewWithLimit(opts.TreeLimit)
	chips := chip.NewDirectory()

	var firstAnchor *devtree.Node
	for i := 0; i < nChips; i++ {
		anchor, err := tree.Root().NewChildAddr("xscom", uint64(i))
		if err != nil {
			return nil, fmt.Errorf("build world: %w", err)
		}
		chips.Add(uint32(i), anchor)
		if firstAnchor == nil {
			firstAnchor = anchor
		}
	}

	bus, err := firstAnchor.NewChildAddr("lpc", 0)
	if err != nil {
		return nil, fmt.Errorf("build world: %w", err)
	}
	bus.SetStrings("compatible", cfg.BusClass)
	bus.SetCells("#address-cells", 2)
	bus.SetCells("#size-cells", 1)

	if opts.ExistingConsole {
		console, err := bus.NewChild(fmt.Sprintf("serial@i%x", cfg.UART.IOBase))
		if err != nil {
			return nil, fmt.Errorf("build world: %w", err)
		}
		console.SetCells("reg", 1, cfg.UART.IOBase, cfg.UART.IOLen)
		console.SetStrings("compatible", "ns16550", "pnpPNP,501")
	}

	if opts.ExistingInventory {
		inv := cfg.Inventory
		ctrl, err := firstAnchor.NewChildAddr("i2cm", uint64(inv.ControllerBase))
		if err != nil {
			return nil, fmt.Errorf("build world: %w", err)
		}
		ctrl.SetStrings("compatible", inv.ControllerClass)
	}

	simBus := NewBus()
	first := chips.First()
	if opts.BaseAddressConfigured {
		simBus.Seed(first.ID, cfg.BaseAddress.Register, cfg.BaseAddress.Value)
	}
	if opts.FailBaseAddressRead {
		simBus.FailRead(first.ID, cfg.BaseAddress.Register, fmt.Errorf("side-channel bus timeout"))
	}

	return &World{
		Config:     cfg,
		Tree:       tree,
		Chips:      chips,
		Bus:        simBus,
		Interrupts: &InterruptController{},
		Bridge:     &Bridge{},
		Management: &Management{VUART: opts.VUARTEnabled},
		Console:    &Console{},
	}, nil
}

// Sequencer returns a bring-up sequencer wired to this world. Each call
// returns a fresh sequencer; a World can therefore also exercise the
// single-invocation guard.
func (w *World) Sequencer() *bringup.Sequencer {
	return &bringup.Sequencer{
		Tree:       w.Tree,
		Chips:      w.Chips,
		Config:     w.Config,
		Registers:  w.Bus,
		Interrupts: w.Interrupts,
		Bridge:     w.Bridge,
		Management: w.Management,
		Console:    w.Console,
	}
}
