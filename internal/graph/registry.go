package graph

import (
	"fmt"

	"github.com/gyaneshwarpardhi/scenenodes/internal/source"
)

type ident struct {
	kind Kind
	key  source.ID
}

// Registry maps a source entity to the one node representing it.
// It is the single place that decides whether a shared entity (a material
// referenced by many objects) already has a node.
type Registry struct {
	nodes map[ident]*Node
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{nodes: make(map[ident]*Node)}
}

// Lookup returns the node registered for (kind, key).
func (r *Registry) Lookup(kind Kind, key source.ID) (*Node, bool) {
	n, ok := r.nodes[ident{kind, key}]
	return n, ok
}

// Register binds n under its current kind and key. It fails if another
// node already holds that identity.
func (r *Registry) Register(n *Node) error {
	id := ident{n.Kind, n.Key}
	if prev, ok := r.nodes[id]; ok && prev != n {
		return fmt.Errorf("registry: %s %s already bound to %s", n.Kind, n.Key, prev)
	}
	r.nodes[id] = n
	return nil
}

// Unregister drops n's identity if n is the node bound to it.
func (r *Registry) Unregister(n *Node) {
	id := ident{n.Kind, n.Key}
	if r.nodes[id] == n {
		delete(r.nodes, id)
	}
}

// Rebind moves n to a new identity key.
func (r *Registry) Rebind(n *Node, key source.ID) error {
	if prev, ok := r.Lookup(n.Kind, key); ok && prev != n {
		return fmt.Errorf("registry: rebind %s to %s: already bound to %s", n, key, prev)
	}
	r.Unregister(n)
	n.Key = key
	if n.Kind == KindScene {
		n.Scene = key
	}
	return r.Register(n)
}

// Len returns the number of registered identities.
func (r *Registry) Len() int {
	return len(r.nodes)
}

// Reset forgets every identity.
func (r *Registry) Reset() {
	clear(r.nodes)
}

// GetOrCreate returns the node registered for (kind, key). If there is
// none, the node built by create is attached, registered and returned with
// created set.
func (g *Graph) GetOrCreate(kind Kind, key source.ID, create func() *Node) (n *Node, created bool, err error) {
	if n, ok := g.index.Lookup(kind, key); ok {
		return n, false, nil
	}
	n = create()
	if n.Kind != kind || n.Key != key {
		return nil, false, fmt.Errorf("registry: create for %s %s built %s", kind, key, n)
	}
	g.AddNode(n)
	if err := g.index.Register(n); err != nil {
		return nil, false, err
	}
	return n, true, nil
}
