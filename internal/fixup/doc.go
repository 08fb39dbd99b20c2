// Package fixup repairs the hardware description tree and one control
// register that the earlier boot stage is known to leave incomplete: the
// serial console and command-channel nodes on the primary bus, the inventory
// bus subtree, and the unset base-address register.
//
// All operations here run in the single-threaded bring-up window before any
// other processor or driver touches the tree or the registers, and every
// mutation is idempotent: repairing an already-repaired system changes
// nothing.
package fixup
