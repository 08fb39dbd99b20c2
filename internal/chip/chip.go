// Package chip is the directory of known processing chips. Enumeration
// order is registration order, and that order is a documented contract:
// the fixup layer's "first chip" selections depend on it.
package chip

import (
	"github.com/vk/bringup/internal/devtree"
)

// IdentityProperty names the tree property that records which chip a device
// subtree belongs to.
const IdentityProperty = "ibm,chip-id"

// Chip identifies one physical processing chip and its anchor node in the
// hardware description tree.
type Chip struct {
	ID   uint32
	Node *devtree.Node
}

// Directory enumerates the chips discovered by the earlier boot stage, in
// discovery order.
type Directory struct {
	chips []*Chip
}

// NewDirectory returns an empty chip directory.
func NewDirectory() *Directory {
	return &Directory{}
}

// Add registers a chip with its anchor node. The identity property is
// stamped onto the node so that OwnerOf can resolve devices underneath it.
func (d *Directory) Add(id uint32, node *devtree.Node) *Chip {
	if node != nil {
		node.SetCells(IdentityProperty, id)
	}
	c := &Chip{ID: id, Node: node}
	d.chips = append(d.chips, c)
	return c
}

// First returns the first registered chip, or nil when the directory is
// empty. Chip-scoped corrections that only need one representative chip use
// this accessor.
func (d *Directory) First() *Chip {
	if len(d.chips) == 0 {
		return nil
	}
	return d.chips[0]
}

// All returns every registered chip in registration order. The returned
// slice is shared; callers must not modify it.
func (d *Directory) All() []*Chip {
	return d.chips
}

// OwnerOf resolves the chip a tree node belongs to by walking toward the
// root until a node carrying the identity property is found.
func (d *Directory) OwnerOf(n *devtree.Node) (uint32, bool) {
	for ; n != nil; n = n.Parent() {
		if p, ok := n.Property(IdentityProperty); ok && len(p.Cells) > 0 {
			return p.Cells[0], true
		}
	}
	return 0, false
}
