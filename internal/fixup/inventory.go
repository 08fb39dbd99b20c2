package fixup

import (
	"context"
	"errors"
	"fmt"

	"github.com/vk/bringup/internal/chip"
	"github.com/vk/bringup/internal/ctxlog"
	"github.com/vk/bringup/internal/devtree"
	"github.com/vk/bringup/internal/platform"
)

// Injector synthesizes the inventory bus subtree (controller, bus ports,
// identification EEPROM) when the earlier boot stage produced none at all.
type Injector struct {
	Config platform.Config
	Chips  *chip.Directory
}

// InjectInventoryBus adds the inventory subtree under the first chip in the
// directory. The presence check is global: if any controller of the target
// class exists anywhere in the tree, the earlier stage is assumed to have
// populated the whole subtree and nothing is touched. Topology is only ever
// synthesized wholesale — merging synthesized siblings into a partially real
// subtree would leave an inconsistent mixture that is worse than either.
//
// Every creation step must succeed; a half-built topology is not safely
// recoverable at this point of boot, so any failure is fatal.
func (j *Injector) InjectInventoryBus(ctx context.Context, tree *devtree.Tree) error {
	logger := ctxlog.FromContext(ctx)
	inv := j.Config.Inventory

	if existing := tree.Root().FindCompatible(inv.ControllerClass); existing != nil {
		logger.Debug("Inventory controller already described, skipping injection.", "node", existing.Name())
		return nil
	}

	c := j.Chips.First()
	if c == nil {
		return errors.New("inject inventory bus: chip directory is empty")
	}
	if c.Node == nil {
		return fmt.Errorf("inject inventory bus: chip %d has no tree node", c.ID)
	}

	controller, err := j.createController(c.Node)
	if err != nil {
		return err
	}

	var bus *devtree.Node
	for _, port := range inv.BusPorts {
		bus, err = j.createBus(controller, c.ID, port)
		if err != nil {
			return err
		}
	}
	if bus == nil {
		return errors.New("inject inventory bus: no bus ports configured")
	}

	if _, err := j.createDevice(bus); err != nil {
		return err
	}

	logger.Info("Inventory bus synthesized.", "chip", c.ID, "controller", controller.Name())
	return nil
}

func (j *Injector) createController(parent *devtree.Node) (*devtree.Node, error) {
	inv := j.Config.Inventory
	addr := inv.ControllerBase + inv.Engine*inv.ControllerStride

	n, err := parent.NewChildAddr("i2cm", uint64(addr))
	if err != nil {
		return nil, fmt.Errorf("create inventory controller: %w", err)
	}
	n.SetStrings("compatible", inv.ControllerClass)
	n.SetCells("reg", addr, inv.ControllerStride)
	n.SetCells("clock-frequency", inv.ClockHz)
	n.SetCells("chip-engine#", inv.Engine)
	n.SetCells("#address-cells", 1)
	n.SetCells("#size-cells", 0)
	return n, nil
}

func (j *Injector) createBus(controller *devtree.Node, chipID, port uint32) (*devtree.Node, error) {
	inv := j.Config.Inventory

	n, err := controller.NewChildAddr("i2c-bus", uint64(port))
	if err != nil {
		return nil, fmt.Errorf("create inventory bus port %d: %w", port, err)
	}
	n.SetStrings("compatible", inv.BusClasses...)
	// Port names embed chip, engine and port so they are unique across the
	// whole tree, not just under this controller.
	n.SetStrings("ibm,port-name", fmt.Sprintf("p8_%08x_e%dp%d", chipID, inv.Engine, port))
	n.SetCells("reg", port)
	n.SetCells("bus-frequency", inv.BusHz)
	n.SetCells("#address-cells", 1)
	n.SetCells("#size-cells", 0)
	return n, nil
}

func (j *Injector) createDevice(bus *devtree.Node) (*devtree.Node, error) {
	inv := j.Config.Inventory

	n, err := bus.NewChildAddr(inv.DeviceName, uint64(inv.DeviceAddr))
	if err != nil {
		return nil, fmt.Errorf("create inventory device: %w", err)
	}
	n.SetStrings("compatible", inv.DeviceClass)
	n.SetStrings("label", inv.DeviceLabel)
	n.SetCells("reg", inv.DeviceAddr)
	n.SetStrings("status", "ok")
	return n, nil
}
