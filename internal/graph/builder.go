package graph

import (
	"fmt"
	"log/slog"

	"github.com/gyaneshwarpardhi/scenenodes/internal/config"
	"github.com/gyaneshwarpardhi/scenenodes/internal/source"
)

// Report summarizes one rebuild.
type Report struct {
	Scenes    int    `json:"scenes"`
	Objects   int    `json:"objects"`
	Materials int    `json:"materials"`
	Links     int    `json:"links"`
	Skipped   []Skip `json:"skipped,omitempty"`
}

// Skip records an entity left out of the graph and why.
type Skip struct {
	Kind   Kind      `json:"kind"`
	Key    source.ID `json:"key"`
	Label  string    `json:"label,omitempty"`
	Reason string    `json:"reason"`
	Err    error     `json:"-"`
}

func (r *Report) skip(log *slog.Logger, kind Kind, key source.ID, label string, err error) {
	log.Warn("rebuild skipped entity", "kind", kind, "key", key, "label", label, "err", err)
	r.Skipped = append(r.Skipped, Skip{Kind: kind, Key: key, Label: label, Reason: err.Error(), Err: err})
}

// Builder performs full rebuilds of a graph from a source model.
type Builder struct {
	layout Layout
	guard  *Guard
	log    *slog.Logger
}

// NewBuilder creates a Builder sharing guard with the graph's controllers.
func NewBuilder(layout Layout, guard *Guard, log *slog.Logger) *Builder {
	if log == nil {
		log = slog.Default()
	}
	return &Builder{layout: layout, guard: guard, log: log}
}

// Rebuild clears g and reconstructs it from model. The guard is held for
// the whole pass, so clearing does not cascade into the source and the
// builder's own wiring is not written back. Entities that cannot be placed
// are skipped and reported; they never abort the rebuild.
func (b *Builder) Rebuild(g *Graph, model source.Model, filter config.FilterConf) (*Report, error) {
	release, err := b.guard.Enter("rebuild")
	if err != nil {
		return nil, err
	}
	defer release()

	if err := g.Clear(); err != nil {
		return nil, fmt.Errorf("clear graph: %w", err)
	}

	rep := &Report{}
	for i, sc := range model.Scenes() {
		if err := b.buildScene(g, model, filter, i, sc, rep); err != nil {
			return rep, fmt.Errorf("scene %q: %w", sc.Name, err)
		}
	}
	rep.Links = len(g.links)
	return rep, nil
}

func (b *Builder) buildScene(g *Graph, model source.Model, filter config.FilterConf, index int, sc source.Scene, rep *Report) error {
	sn, created, err := g.GetOrCreate(KindScene, sc.ID, func() *Node { return NewSceneNode(sc) })
	if err != nil {
		return err
	}
	if !created {
		return fmt.Errorf("scene %s listed twice", sc.ID)
	}
	b.layout.Size(sn)
	sn.Location = b.layout.Scene(index)
	rep.Scenes++

	plan := b.plan(sc, model.Objects(sc.ID), filter, rep)
	roots := 0
	for _, p := range plan {
		if p.anchor == "" {
			roots++
		}
	}

	rootIdx := 0
	for _, p := range plan {
		obj := p.obj
		on, created, err := g.GetOrCreate(KindObject, obj.ID, func() *Node { return NewObjectNode(obj) })
		if err != nil {
			return err
		}
		if !created {
			return fmt.Errorf("object %q listed twice", obj.Name)
		}
		b.layout.Size(on)

		var out *Socket
		if p.anchor == "" {
			on.Location = b.layout.Root(sn, rootIdx, roots)
			rootIdx++
			out = sn.Output(SocketScene)
		} else {
			pn := g.Lookup(KindObject, p.anchor)
			out = pn.Output(SocketChild)
			on.Location = b.layout.Child(pn, out)
		}
		if _, err := g.Link(out, on.Input(SocketParent)); err != nil {
			return fmt.Errorf("object %q: %w", obj.Name, err)
		}
		rep.Objects++

		if filter.ShowsMaterials() {
			if err := b.linkMaterials(g, model, on, obj, rep); err != nil {
				return fmt.Errorf("object %q: %w", obj.Name, err)
			}
		}
	}
	return nil
}

// linkMaterials resolves or creates the material node of every filled slot
// and links the object's "Material" output to it.
func (b *Builder) linkMaterials(g *Graph, model source.Model, on *Node, obj source.Object, rep *Report) error {
	out := on.Output(SocketMaterial)
	if out == nil {
		return nil
	}
	for _, mid := range obj.Materials {
		if mid == "" {
			continue
		}
		m, ok := model.Material(mid)
		if !ok {
			rep.skip(b.log, KindMaterial, mid, "", fmt.Errorf("%w: material slot of %q", ErrStaleIdentity, obj.Name))
			continue
		}
		mn, created, err := g.GetOrCreate(KindMaterial, m.ID, func() *Node { return NewMaterialNode(m) })
		if err != nil {
			return err
		}
		if created {
			b.layout.Size(mn)
			mn.Location = b.layout.Material(on)
			rep.Materials++
		}
		if _, err := g.Link(out, mn.Input(SocketObject)); err != nil {
			return err
		}
	}
	return nil
}

// placement is a visible object and the object it hangs from in the graph
// (its nearest visible ancestor; empty for the scene).
type placement struct {
	obj    source.Object
	anchor source.ID
}

// plan walks the scene hierarchy in pre-order from its roots. Hidden objects
// are walked through so their visible descendants attach to the nearest
// visible ancestor. Visible objects not reachable from a root are reported.
func (b *Builder) plan(sc source.Scene, objs []source.Object, filter config.FilterConf, rep *Report) []placement {
	byID := make(map[source.ID]int, len(objs))
	for i, o := range objs {
		byID[o.ID] = i
	}
	children := make(map[source.ID][]int)
	var roots []int
	for i, o := range objs {
		if o.Parent == "" {
			roots = append(roots, i)
			continue
		}
		children[o.Parent] = append(children[o.Parent], i)
	}

	visited := make([]bool, len(objs))
	var out []placement
	var visit func(i int, anchor source.ID)
	visit = func(i int, anchor source.ID) {
		if visited[i] {
			return
		}
		visited[i] = true
		o := objs[i]
		next := anchor
		if filter.ShowsType(o.Type) {
			out = append(out, placement{obj: o, anchor: anchor})
			next = o.ID
		}
		for _, c := range children[o.ID] {
			visit(c, next)
		}
	}
	for _, r := range roots {
		visit(r, "")
	}

	for i, o := range objs {
		if visited[i] || !filter.ShowsType(o.Type) {
			continue
		}
		rep.skip(b.log, KindObject, o.ID, o.Name, orphanReason(sc, objs, byID, o))
	}
	return out
}

// orphanReason explains why o is unreachable: its ancestor chain either
// leaves the scene or loops.
func orphanReason(sc source.Scene, objs []source.Object, byID map[source.ID]int, o source.Object) error {
	seen := map[source.ID]bool{o.ID: true}
	for p := o.Parent; p != ""; {
		i, ok := byID[p]
		if !ok {
			return fmt.Errorf("%w: ancestor %s of %q is not in scene %q", ErrStaleIdentity, p, o.Name, sc.Name)
		}
		if seen[p] {
			break
		}
		seen[p] = true
		p = objs[i].Parent
	}
	return fmt.Errorf("%w: %q hangs from a parent loop in scene %q", ErrCycleRisk, o.Name, sc.Name)
}
