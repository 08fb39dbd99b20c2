// Package devtree implements the hardware description tree handed over by
// the earlier boot stage: named nodes with unit addresses, ordered children
// and typed properties.
//
// Child order and property order are insertion order, and both are part of
// the package contract: the fixup layer's "first matching node" heuristics
// depend on deterministic document order, so iteration must never be backed
// by an unordered container.
//
// The tree is not safe for concurrent use. It is only ever touched during
// the single-threaded bring-up window, before secondary processors or
// drivers are started, and the absence of locking is deliberate.
package devtree

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateNode is returned when a child with the same name and unit
	// address already exists under the parent.
	ErrDuplicateNode = errors.New("duplicate node identity")

	// ErrNoSpace is returned when the tree's node budget is exhausted.
	ErrNoSpace = errors.New("node budget exhausted")
)

// Property is a single named, typed node property. Exactly one of Cells or
// Strings is populated.
type Property struct {
	Name    string
	Cells   []uint32
	Strings []string
}

// Node is one device description. Its identity is the full name including
// the unit address suffix, e.g. "serial@i3f8". A parent exclusively owns its
// children; nodes are created once and never deleted.
type Node struct {
	name     string
	tree     *Tree
	parent   *Node
	children []*Node
	props    []Property
}

// Tree owns the root node and the node budget.
type Tree struct {
	root  *Node
	limit int
	count int
}

// New returns an empty tree with no node budget.
func New() *Tree {
	return NewWithLimit(0)
}

// NewWithLimit returns an empty tree that refuses to grow beyond limit
// nodes (root included). A limit of 0 means unlimited. The limit models the
// fixed node pool of the boot stage that produced the tree.
func NewWithLimit(limit int) *Tree {
	t := &Tree{limit: limit}
	t.root = &Node{name: "/", tree: t}
	t.count = 1
	return t
}

// Root returns the root node.
func (t *Tree) Root() *Node {
	return t.root
}

// NodeCount returns the number of nodes in the tree, root included.
func (t *Tree) NodeCount() int {
	return t.count
}

// Name returns the node's full identity, unit address included.
func (n *Node) Name() string {
	return n.name
}

// Parent returns the node's parent, or nil for the root.
func (n *Node) Parent() *Node {
	return n.parent
}

// Children returns the node's children in insertion order. The returned
// slice is shared; callers must not modify it.
func (n *Node) Children() []*Node {
	return n.children
}

// NewChild creates a child node with the given full name. It fails with
// ErrDuplicateNode if a sibling already carries that identity, and with
// ErrNoSpace if the tree's node budget is exhausted.
func (n *Node) NewChild(name string) (*Node, error) {
	for _, c := range n.children {
		if c.name == name {
			return nil, fmt.Errorf("child %q of %q: %w", name, n.name, ErrDuplicateNode)
		}
	}
	if n.tree.limit > 0 && n.tree.count >= n.tree.limit {
		return nil, fmt.Errorf("child %q of %q: %w", name, n.name, ErrNoSpace)
	}
	child := &Node{name: name, tree: n.tree, parent: n}
	n.children = append(n.children, child)
	n.tree.count++
	return child, nil
}

// NewChildAddr creates a child node named name@addr with the address in
// lower-case hex, the conventional unit-address form.
func (n *Node) NewChildAddr(name string, addr uint64) (*Node, error) {
	return n.NewChild(fmt.Sprintf("%s@%x", name, addr))
}

// SetCells sets an integer-list property, replacing any previous value.
func (n *Node) SetCells(name string, cells ...uint32) {
	n.setProperty(Property{Name: name, Cells: cells})
}

// SetStrings sets a string-list property, replacing any previous value.
func (n *Node) SetStrings(name string, values ...string) {
	n.setProperty(Property{Name: name, Strings: values})
}

func (n *Node) setProperty(p Property) {
	for i, existing := range n.props {
		if existing.Name == p.Name {
			n.props[i] = p
			return
		}
	}
	n.props = append(n.props, p)
}

// Property returns the named property and whether it exists.
func (n *Node) Property(name string) (Property, bool) {
	for _, p := range n.props {
		if p.Name == name {
			return p, true
		}
	}
	return Property{}, false
}

// HasProperty reports whether the node carries the named property.
func (n *Node) HasProperty(name string) bool {
	_, ok := n.Property(name)
	return ok
}

// Properties returns the node's properties in insertion order. The returned
// slice is shared; callers must not modify it.
func (n *Node) Properties() []Property {
	return n.props
}

// IsCompatible reports whether class appears in the node's "compatible"
// property.
func (n *Node) IsCompatible(class string) bool {
	p, ok := n.Property("compatible")
	if !ok {
		return false
	}
	for _, s := range p.Strings {
		if s == class {
			return true
		}
	}
	return false
}

// FindCompatible returns the first node in the subtree rooted at n (self
// included) whose "compatible" property contains class, in document order.
// It returns nil when no such node exists.
func (n *Node) FindCompatible(class string) *Node {
	var found *Node
	n.WalkCompatible(class, func(m *Node) bool {
		found = m
		return false
	})
	return found
}

// WalkCompatible visits, in document order, every node in the subtree rooted
// at n (self included) whose "compatible" property contains class. The walk
// stops early when fn returns false.
func (n *Node) WalkCompatible(class string, fn func(*Node) bool) {
	n.walk(func(m *Node) bool {
		if m.IsCompatible(class) {
			return fn(m)
		}
		return true
	})
}

func (n *Node) walk(fn func(*Node) bool) bool {
	if !fn(n) {
		return false
	}
	for _, c := range n.children {
		if !c.walk(fn) {
			return false
		}
	}
	return true
}

// Clone returns a deep copy of the tree. The copy carries the same node
// budget accounting as the original.
func (t *Tree) Clone() *Tree {
	clone := &Tree{limit: t.limit, count: t.count}
	clone.root = t.root.cloneInto(clone, nil)
	return clone
}

func (n *Node) cloneInto(tree *Tree, parent *Node) *Node {
	c := &Node{name: n.name, tree: tree, parent: parent}
	if len(n.props) > 0 {
		c.props = make([]Property, len(n.props))
		for i, p := range n.props {
			cp := Property{Name: p.Name}
			if p.Cells != nil {
				cp.Cells = append([]uint32(nil), p.Cells...)
			}
			if p.Strings != nil {
				cp.Strings = append([]string(nil), p.Strings...)
			}
			c.props[i] = cp
		}
	}
	for _, child := range n.children {
		c.children = append(c.children, child.cloneInto(tree, c))
	}
	return c
}
