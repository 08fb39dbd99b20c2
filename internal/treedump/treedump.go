// Package treedump renders a hardware description tree as YAML and diffs
// two renderings. The rendering is deterministic — document order in, same
// text out — so equal trees render byte-identically, which is what the
// idempotence checks compare.
package treedump

import (
	"fmt"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/vk/bringup/internal/devtree"
)

// Render returns the tree as a YAML document. Properties come first in
// insertion order, then child nodes in insertion order; integer cells are
// rendered as hex strings, the form addresses are read in.
func Render(t *devtree.Tree) (string, error) {
	out, err := yaml.Marshal(nodeDoc(t.Root()))
	if err != nil {
		return "", fmt.Errorf("render tree: %w", err)
	}
	return string(out), nil
}

func nodeDoc(n *devtree.Node) yaml.MapSlice {
	doc := yaml.MapSlice{}
	for _, p := range n.Properties() {
		if p.Strings != nil {
			doc = append(doc, yaml.MapItem{Key: p.Name, Value: p.Strings})
			continue
		}
		cells := make([]string, len(p.Cells))
		for i, c := range p.Cells {
			cells[i] = fmt.Sprintf("%#x", c)
		}
		doc = append(doc, yaml.MapItem{Key: p.Name, Value: cells})
	}
	for _, child := range n.Children() {
		doc = append(doc, yaml.MapItem{Key: child.Name(), Value: nodeDoc(child)})
	}
	return doc
}

// Diff returns a human-readable diff of two renderings, or the empty string
// when they are identical.
func Diff(before, after string) string {
	if before == after {
		return ""
	}
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(before, after, false)
	dmp.DiffCleanupSemantic(diffs)

	var sb strings.Builder
	for _, d := range diffs {
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			sb.WriteString("+" + d.Text)
		case diffmatchpatch.DiffDelete:
			sb.WriteString("-" + d.Text)
		default:
			sb.WriteString(d.Text)
		}
	}
	return sb.String()
}
