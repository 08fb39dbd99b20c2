package fixup

import (
	"context"
	"fmt"

	"github.com/vk/bringup/internal/chip"
	"github.com/vk/bringup/internal/ctxlog"
	"github.com/vk/bringup/internal/devtree"
	"github.com/vk/bringup/internal/platform"
)

// Reconciler guarantees that the primary bus carries a console and a
// command-channel node, synthesizing whichever the earlier boot stage failed
// to describe.
type Reconciler struct {
	Config platform.Config
	Chips  *chip.Directory
}

// Reconcile locates the primary bus and ensures each required device class
// is present under it, in fixed order. When no bus of the platform class
// exists the call is a no-op: there is nothing to attach devices to.
//
// Node-creation failure is fatal. Downstream drivers assume a device exists
// once this returns, so a partially described bus must abort the boot.
func (r *Reconciler) Reconcile(ctx context.Context, tree *devtree.Tree) error {
	logger := ctxlog.FromContext(ctx)

	bus := r.primaryBus(tree)
	if bus == nil {
		logger.Debug("No primary bus node found, nothing to reconcile.", "class", r.Config.BusClass)
		return nil
	}
	logger.Debug("Primary bus located.", "node", bus.Name())

	for _, spec := range requiredDevices(r.Config) {
		if err := r.ensureDevice(ctx, bus, spec); err != nil {
			return err
		}
	}
	return nil
}

// primaryBus picks the bus node devices attach to. Among all nodes of the
// platform bus class, in document order: a node flagged "primary" wins over
// anything seen before it, and the scan stops at the first node carrying
// "#address-cells" — address-cell metadata means the earlier stage described
// that bus fully, and the quirks of that stage make it the one to trust.
// This precedence is inherited behavior, preserved bit for bit.
func (r *Reconciler) primaryBus(tree *devtree.Tree) *devtree.Node {
	var primary *devtree.Node
	tree.Root().WalkCompatible(r.Config.BusClass, func(n *devtree.Node) bool {
		if primary == nil || n.HasProperty("primary") {
			primary = n
		}
		return !n.HasProperty("#address-cells")
	})
	return primary
}

// ensureDevice checks the bus children for the class and synthesizes the
// canonical node when absent. Presence of any compatible child, whatever its
// shape, means the class is already described and must not be touched.
func (r *Reconciler) ensureDevice(ctx context.Context, bus *devtree.Node, spec DeviceSpec) error {
	logger := ctxlog.FromContext(ctx)

	for _, child := range bus.Children() {
		if child.IsCompatible(spec.Class) {
			logger.Debug("Device already described, skipping.", "class", spec.Class, "node", child.Name())
			return nil
		}
	}

	node, err := bus.NewChild(spec.Name)
	if err != nil {
		return fmt.Errorf("synthesize %s node: %w", spec.Class, err)
	}

	node.SetCells("reg", spec.Reg...)
	node.SetStrings("compatible", spec.Compatible...)
	for _, p := range spec.Extra {
		if p.Strings != nil {
			node.SetStrings(p.Name, p.Strings...)
		} else {
			node.SetCells(p.Name, p.Cells...)
		}
	}
	if spec.Reserved {
		node.SetStrings("status", "reserved")
	}

	// The interrupt is wired to the chip owning the bus; record that as the
	// routing hint since the earlier stage's numbering is unknown here.
	if id, ok := r.Chips.OwnerOf(bus); ok {
		node.SetCells(IRQChipHintProperty, id)
	} else {
		logger.Warn("Bus has no owning chip, interrupt hint omitted.", "node", node.Name())
	}

	logger.Info("Synthesized missing device node.", "class", spec.Class, "node", node.Name())
	return nil
}
