package headless

import (
	"io"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/delaneyj/recompose/compose"
)

// NodeSnapshot is the structure of one entity without ids, so trees built by
// different runtimes or different passes compare equal when they look the
// same.
type NodeSnapshot struct {
	Kind      string
	Text      string
	Size      float32
	Scoped    bool
	Clickable bool
	Children  []NodeSnapshot
}

// Snapshot returns the structure of every root in spawn order.
func (w *World) Snapshot() []NodeSnapshot {
	nodes := make([]NodeSnapshot, 0, len(w.roots))
	for _, root := range w.roots {
		nodes = append(nodes, w.snapshot(root))
	}
	return nodes
}

func (w *World) snapshot(id compose.EntityID) NodeSnapshot {
	ent := w.entities[id]
	var n NodeSnapshot
	switch {
	case hasComponent(ent, compose.Node{}):
		node := ent.components[typeOf(compose.Node{})].(compose.Node)
		n.Kind = node.Kind.String()
		n.Size = node.Size
	case hasComponent(ent, compose.Label{}):
		n.Kind = "text"
	default:
		n.Kind = "entity"
	}
	if label, ok := ent.components[typeOf(compose.Label{})]; ok {
		n.Text = label.(compose.Label).Text
	}
	n.Scoped = hasComponent(ent, compose.ScopeMarker{})
	n.Clickable = hasComponent(ent, compose.Clickable{})
	if len(ent.children) > 0 {
		n.Children = make([]NodeSnapshot, 0, len(ent.children))
		for _, child := range ent.children {
			n.Children = append(n.Children, w.snapshot(child))
		}
	}
	return n
}

// Fingerprint hashes the snapshot. Equal trees have equal fingerprints.
func (w *World) Fingerprint() uint64 {
	d := xxhash.New()
	for _, n := range w.Snapshot() {
		hashNode(d, n)
	}
	return d.Sum64()
}

func hashNode(d *xxhash.Digest, n NodeSnapshot) {
	d.WriteString(n.Kind)
	d.WriteString("\x00")
	d.WriteString(n.Text)
	d.WriteString("\x00")
	d.WriteString(strconv.FormatFloat(float64(n.Size), 'g', -1, 32))
	flags := []byte{'0', '0', '('}
	if n.Scoped {
		flags[0] = '1'
	}
	if n.Clickable {
		flags[1] = '1'
	}
	d.Write(flags)
	for _, child := range n.Children {
		hashNode(d, child)
	}
	d.WriteString(")")
}

// Dump writes an indented outline of the tree to out.
func (w *World) Dump(out io.Writer) {
	WriteTree(out, w.Snapshot())
}

// String renders the tree outline.
func (w *World) String() string {
	return Tree(w.Snapshot())
}

func indent(depth int) string {
	return strings.Repeat("  ", depth)
}
