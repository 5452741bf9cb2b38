package graph

import (
	"errors"
	"fmt"
	"slices"

	"github.com/gyaneshwarpardhi/scenenodes/internal/source"
)

// Hooks are the topology notifications a Graph delivers while it is being
// mutated. A nil hook is skipped. Errors returned by hooks are non-fatal:
// the mutation has already happened and the error is handed to the caller.
type Hooks struct {
	// InputChanged fires after the link set of an input socket changed.
	InputChanged func(g *Graph, n *Node, s *Socket) error
	// NodeRemoved fires after a node and its links left the graph.
	NodeRemoved func(g *Graph, n *Node) error
	// NodeCopied fires after Duplicate attached an unlinked copy of orig.
	NodeCopied func(g *Graph, copy, orig *Node) error
}

// Graph holds nodes, their sockets and the links between them.
// It is single-threaded: every mutation runs to completion on the caller's
// goroutine, hooks included.
type Graph struct {
	nodes []*Node
	links []*Link
	index *Registry
	hooks Hooks
}

// NewGraph allocates an empty Graph.
func NewGraph() *Graph {
	return &Graph{index: NewRegistry()}
}

// SetHooks replaces the notification hooks.
func (g *Graph) SetHooks(h Hooks) {
	g.hooks = h
}

// Nodes returns all nodes in insertion order.
func (g *Graph) Nodes() []*Node {
	return slices.Clone(g.nodes)
}

// Links returns all links in creation order.
func (g *Graph) Links() []*Link {
	return slices.Clone(g.links)
}

// NodeCount returns the total number of attached nodes.
func (g *Graph) NodeCount() int {
	return len(g.nodes)
}

// CountKind returns the number of attached nodes of one kind.
func (g *Graph) CountKind(k Kind) int {
	n := 0
	for _, node := range g.nodes {
		if node.Kind == k {
			n++
		}
	}
	return n
}

// Registry exposes the identity index.
func (g *Graph) Registry() *Registry {
	return g.index
}

// Lookup returns the node registered for an entity, or nil.
func (g *Graph) Lookup(kind Kind, key source.ID) *Node {
	n, _ := g.index.Lookup(kind, key)
	return n
}

// Contains reports whether n is attached to g.
func (g *Graph) Contains(n *Node) bool {
	return n != nil && n.graph == g
}

// AddNode attaches n without registering its identity.
func (g *Graph) AddNode(n *Node) {
	n.graph = g
	g.nodes = append(g.nodes, n)
}

// Link connects an output socket to an input socket of another node.
// Linking the same pair twice returns the existing link. When a limited
// input is full its oldest link is replaced.
func (g *Graph) Link(from, to *Socket) (*Link, error) {
	if from == nil || to == nil {
		return nil, fmt.Errorf("%w: missing socket", ErrInvalidLink)
	}
	if from.Dir != Output || to.Dir != Input {
		return nil, fmt.Errorf("%w: %s %q cannot feed %s %q", ErrInvalidLink, from.Dir, from.Name, to.Dir, to.Name)
	}
	if !g.Contains(from.node) || !g.Contains(to.node) {
		return nil, fmt.Errorf("%w: socket belongs to a detached node", ErrInvalidLink)
	}
	if from.node == to.node {
		return nil, fmt.Errorf("%w: %s cannot link to itself", ErrInvalidLink, from.node)
	}
	for _, l := range to.links {
		if l.From == from {
			return l, nil
		}
	}
	if to.Limit > 0 {
		for len(to.links) >= to.Limit {
			g.detach(to.links[0])
		}
	}
	l := &Link{From: from, To: to}
	from.links = append(from.links, l)
	to.links = append(to.links, l)
	g.links = append(g.links, l)
	return l, g.inputChanged(to)
}

// Unlink removes one link.
func (g *Graph) Unlink(l *Link) error {
	if !g.detach(l) {
		return nil
	}
	return g.inputChanged(l.To)
}

// UnlinkAll removes every link of a socket.
func (g *Graph) UnlinkAll(s *Socket) error {
	if !s.IsLinked() {
		return nil
	}
	var touched []*Socket
	for _, l := range slices.Clone(s.links) {
		g.detach(l)
		if !slices.Contains(touched, l.To) {
			touched = append(touched, l.To)
		}
	}
	var errs []error
	for _, in := range touched {
		errs = append(errs, g.inputChanged(in))
	}
	return errors.Join(errs...)
}

// RemoveNode detaches n and its links, unregisters its identity, then
// notifies the nodes whose inputs lost links and finally NodeRemoved.
func (g *Graph) RemoveNode(n *Node) error {
	if !g.Contains(n) {
		return fmt.Errorf("remove %s: %w", n, ErrNodeNotFound)
	}
	g.nodes = slices.DeleteFunc(g.nodes, func(x *Node) bool { return x == n })
	n.graph = nil
	g.index.Unregister(n)

	var touched []*Socket
	for _, s := range n.Inputs {
		for _, l := range slices.Clone(s.links) {
			g.detach(l)
		}
	}
	for _, s := range n.Outputs {
		for _, l := range slices.Clone(s.links) {
			g.detach(l)
			if !slices.Contains(touched, l.To) {
				touched = append(touched, l.To)
			}
		}
	}

	var errs []error
	for _, in := range touched {
		errs = append(errs, g.inputChanged(in))
	}
	if g.hooks.NodeRemoved != nil {
		errs = append(errs, g.hooks.NodeRemoved(g, n))
	}
	return errors.Join(errs...)
}

// Clear removes every node through RemoveNode, last first.
func (g *Graph) Clear() error {
	var errs []error
	for len(g.nodes) > 0 {
		errs = append(errs, g.RemoveNode(g.nodes[len(g.nodes)-1]))
	}
	g.index.Reset()
	return errors.Join(errs...)
}

// Duplicate attaches an unlinked, unregistered copy of n and fires NodeCopied.
func (g *Graph) Duplicate(n *Node) (*Node, error) {
	if !g.Contains(n) {
		return nil, fmt.Errorf("duplicate %s: %w", n, ErrNodeNotFound)
	}
	c := n.clone()
	g.AddNode(c)
	if g.hooks.NodeCopied == nil {
		return c, nil
	}
	return c, g.hooks.NodeCopied(g, c, n)
}

func (g *Graph) detach(l *Link) bool {
	idx := slices.Index(g.links, l)
	if idx < 0 {
		return false
	}
	g.links = slices.Delete(g.links, idx, idx+1)
	l.From.links = slices.DeleteFunc(l.From.links, func(x *Link) bool { return x == l })
	l.To.links = slices.DeleteFunc(l.To.links, func(x *Link) bool { return x == l })
	return true
}

func (g *Graph) inputChanged(s *Socket) error {
	if g.hooks.InputChanged == nil || !g.Contains(s.node) {
		return nil
	}
	return g.hooks.InputChanged(g, s.node, s)
}
