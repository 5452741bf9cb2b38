package graph

import (
	"fmt"
	"slices"

	"github.com/gyaneshwarpardhi/scenenodes/internal/source"
)

// Snapshot is the persisted form of a graph: nodes with their identity keys
// and positions, and links addressed by node index and socket name.
type Snapshot struct {
	Nodes []NodeState `json:"nodes"`
	Links []LinkState `json:"links"`
}

type NodeState struct {
	Kind        Kind              `json:"kind"`
	Key         source.ID         `json:"key"`
	Scene       source.ID         `json:"scene,omitempty"`
	ObjectType  source.ObjectType `json:"object_type,omitempty"`
	Label       string            `json:"label"`
	Location    Vec2              `json:"location"`
	Width       float64           `json:"width"`
	Height      float64           `json:"height,omitempty"`
	Color       Color             `json:"color"`
	CustomColor bool              `json:"custom_color"`
	Inputs      []SocketState     `json:"inputs,omitempty"`
	Outputs     []SocketState     `json:"outputs,omitempty"`
	Warnings    []string          `json:"warnings,omitempty"`
}

type SocketState struct {
	Name  string `json:"name"`
	Limit int    `json:"limit,omitempty"`
}

type LinkState struct {
	From       int    `json:"from"`
	FromSocket string `json:"from_socket"`
	To         int    `json:"to"`
	ToSocket   string `json:"to_socket"`
}

// Snapshot captures g.
func (g *Graph) Snapshot() *Snapshot {
	index := make(map[*Node]int, len(g.nodes))
	snap := &Snapshot{
		Nodes: make([]NodeState, 0, len(g.nodes)),
		Links: make([]LinkState, 0, len(g.links)),
	}
	for i, n := range g.nodes {
		index[n] = i
		snap.Nodes = append(snap.Nodes, n.State())
	}
	for _, l := range g.links {
		snap.Links = append(snap.Links, LinkState{
			From:       index[l.FromNode()],
			FromSocket: l.From.Name,
			To:         index[l.ToNode()],
			ToSocket:   l.To.Name,
		})
	}
	return snap
}

// State returns the persisted form of n.
func (n *Node) State() NodeState {
	ns := NodeState{
		Kind:        n.Kind,
		Key:         n.Key,
		Scene:       n.Scene,
		ObjectType:  n.ObjectType,
		Label:       n.Label,
		Location:    n.Location,
		Width:       n.Width,
		Height:      n.Height,
		Color:       n.Color,
		CustomColor: n.CustomColor,
	}
	if len(n.Warnings) > 0 {
		ns.Warnings = append([]string(nil), n.Warnings...)
	}
	for _, s := range n.Inputs {
		ns.Inputs = append(ns.Inputs, SocketState{Name: s.Name, Limit: s.Limit})
	}
	for _, s := range n.Outputs {
		ns.Outputs = append(ns.Outputs, SocketState{Name: s.Name})
	}
	return ns
}

// Restore rebuilds a graph from a snapshot. The result has no hooks, so
// restoring links does not write anything back into a source model.
func Restore(snap *Snapshot) (*Graph, error) {
	g := NewGraph()
	nodes := make([]*Node, 0, len(snap.Nodes))
	for i, ns := range snap.Nodes {
		if _, err := ParseKind(string(ns.Kind)); err != nil {
			return nil, fmt.Errorf("snapshot node %d: %w", i, err)
		}
		n := &Node{
			Kind:        ns.Kind,
			Key:         ns.Key,
			Scene:       ns.Scene,
			ObjectType:  ns.ObjectType,
			Label:       ns.Label,
			Location:    ns.Location,
			Width:       ns.Width,
			Height:      ns.Height,
			Color:       ns.Color,
			CustomColor: ns.CustomColor,
		}
		if len(ns.Warnings) > 0 {
			n.Warnings = append([]string(nil), ns.Warnings...)
		}
		for _, s := range ns.Inputs {
			n.addInput(s.Name, s.Limit)
		}
		for _, s := range ns.Outputs {
			n.addOutput(s.Name)
		}
		g.AddNode(n)
		if err := g.index.Register(n); err != nil {
			return nil, fmt.Errorf("snapshot node %d: %w", i, err)
		}
		nodes = append(nodes, n)
	}
	for i, ls := range snap.Links {
		if ls.From < 0 || ls.From >= len(nodes) || ls.To < 0 || ls.To >= len(nodes) {
			return nil, fmt.Errorf("snapshot link %d: node index out of range", i)
		}
		from := nodes[ls.From].Output(ls.FromSocket)
		to := nodes[ls.To].Input(ls.ToSocket)
		if _, err := g.Link(from, to); err != nil {
			return nil, fmt.Errorf("snapshot link %d: %w", i, err)
		}
	}
	return g, nil
}

// topology lists the nodes and links of g by identity, leaving out
// positions and colors.
func topology(g *Graph) []string {
	out := make([]string, 0, len(g.nodes)+len(g.links))
	for _, n := range g.nodes {
		out = append(out, fmt.Sprintf("%s %s %q %s", n.Kind, n.Key, n.Label, n.ObjectType))
	}
	for _, l := range g.links {
		from, to := l.FromNode(), l.ToNode()
		out = append(out, fmt.Sprintf("link %s %s.%s -> %s %s.%s",
			from.Kind, from.Key, l.From.Name, to.Kind, to.Key, l.To.Name))
	}
	slices.Sort(out)
	return out
}

// topologyDiff describes the first difference between want and got, or
// returns "" when they hold the same nodes and links.
func topologyDiff(want, got *Graph) string {
	w, g := topology(want), topology(got)
	for _, e := range w {
		if _, found := slices.BinarySearch(g, e); !found {
			return "missing " + e
		}
	}
	for _, e := range g {
		if _, found := slices.BinarySearch(w, e); !found {
			return "unexpected " + e
		}
	}
	return ""
}
