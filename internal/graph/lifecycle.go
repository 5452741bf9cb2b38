package graph

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/gyaneshwarpardhi/scenenodes/internal/source"
)

// Lifecycle mirrors node duplication and removal into the source model.
type Lifecycle struct {
	model      source.Model
	guard      *Guard
	duplicable []source.ObjectType
	log        *slog.Logger
}

// NewLifecycle creates a Lifecycle. Object nodes can only be duplicated when
// their type is in duplicable.
func NewLifecycle(model source.Model, guard *Guard, duplicable []source.ObjectType, log *slog.Logger) *Lifecycle {
	if log == nil {
		log = slog.Default()
	}
	return &Lifecycle{model: model, guard: guard, duplicable: duplicable, log: log}
}

// NodeCopied is the Hooks.NodeCopied handler. It gives the copy a backing
// entity of its own; when that is not possible the copy is dropped again
// and the original node carries the warning.
func (m *Lifecycle) NodeCopied(g *Graph, c, orig *Node) error {
	release, err := m.guard.Enter("duplicate")
	if err != nil {
		m.drop(g, c)
		return err
	}
	defer release()

	switch c.Kind {
	case KindObject:
		err = m.duplicateObject(g, c, orig)
	case KindScene:
		err = m.duplicateScene(g, c, orig)
	default:
		err = fmt.Errorf("%w: %s", ErrNotDuplicable, orig)
	}
	if err != nil {
		m.drop(g, c)
		orig.Warn(err)
		m.log.Warn("node duplication rejected", "node", orig.Label, "err", err)
		return err
	}
	m.log.Info("node duplicated", "kind", c.Kind, "from", orig.Label, "to", c.Label)
	return nil
}

// drop removes an unbound copy. Callers hold the guard, so nothing cascades.
func (m *Lifecycle) drop(g *Graph, c *Node) {
	if g.Contains(c) {
		_ = g.RemoveNode(c)
	}
}

func (m *Lifecycle) duplicateObject(g *Graph, c, orig *Node) error {
	obj, ok := m.model.Object(orig.Key)
	if !ok {
		return fmt.Errorf("%w: object node %q", ErrStaleIdentity, orig.Label)
	}
	if !slices.Contains(m.duplicable, obj.Type) {
		return fmt.Errorf("%w: %s objects cannot be duplicated", ErrNotDuplicable, obj.Type)
	}
	dup, err := m.model.DuplicateObject(obj.ID)
	if err != nil {
		return fmt.Errorf("duplicate %q: %w", obj.Name, err)
	}
	if err := g.Registry().Rebind(c, dup.ID); err != nil {
		return errors.Join(err, m.model.DeleteObject(dup.ID))
	}
	c.Label = dup.Name

	// The copy hangs from the same output as the original.
	if in := orig.Input(SocketParent); in.IsLinked() {
		if _, err := g.Link(in.Links()[0].From, c.Input(SocketParent)); err != nil {
			return err
		}
	}
	if out, cout := orig.Output(SocketMaterial), c.Output(SocketMaterial); out != nil && cout != nil {
		for _, l := range out.Links() {
			if _, err := g.Link(cout, l.To); err != nil {
				return err
			}
		}
	}
	return nil
}

func (m *Lifecycle) duplicateScene(g *Graph, c, orig *Node) error {
	sc, ok := m.model.Scene(orig.Key)
	if !ok {
		return fmt.Errorf("%w: scene node %q", ErrStaleIdentity, orig.Label)
	}
	dup, err := m.model.NewScene(sc.Name)
	if err != nil {
		return fmt.Errorf("duplicate scene %q: %w", sc.Name, err)
	}
	if err := g.Registry().Rebind(c, dup.ID); err != nil {
		return errors.Join(err, m.model.DeleteScene(dup.ID))
	}
	c.Label = dup.Name
	return nil
}

// NodeRemoved is the Hooks.NodeRemoved handler. Outside a rebuild it deletes
// the backing entity and reindexes the affected scene; while the guard is
// held (rebuild clear, dropped copies) removal stays graph-only.
func (m *Lifecycle) NodeRemoved(g *Graph, n *Node) error {
	if m.guard.Active() {
		m.log.Debug("node removal not cascaded", "node", n.Label, "op", m.guard.Op())
		return nil
	}
	release, err := m.guard.Enter("remove")
	if err != nil {
		return err
	}
	defer release()

	switch n.Kind {
	case KindObject:
		if _, ok := m.model.Object(n.Key); !ok {
			return fmt.Errorf("%w: object node %q", ErrStaleIdentity, n.Label)
		}
		if err := m.model.DeleteObject(n.Key); err != nil {
			return fmt.Errorf("delete object %q: %w", n.Label, err)
		}
		m.log.Info("object deleted", "object", n.Label, "key", n.Key)
		_, err := m.Reindex(g, n.Scene)
		return err

	case KindScene:
		if _, ok := m.model.Scene(n.Key); !ok {
			return fmt.Errorf("%w: scene node %q", ErrStaleIdentity, n.Label)
		}
		if err := m.model.DeleteScene(n.Key); err != nil {
			return fmt.Errorf("delete scene %q: %w", n.Label, err)
		}
		m.log.Info("scene deleted", "scene", n.Label, "key", n.Key)
		// Its objects went with it; their nodes follow without cascading.
		var errs []error
		for _, on := range g.Nodes() {
			if on.Kind == KindObject && on.Scene == n.Key {
				errs = append(errs, g.RemoveNode(on))
			}
		}
		return errors.Join(errs...)

	default:
		m.log.Info("material node removed", "material", n.Label)
		return nil
	}
}

// Reindex re-resolves the identity key of every object node of a scene.
// Live keys only refresh the label. A dead key is rebound to the live,
// unbound object of the same display name; failing that the node is
// marked stale. It returns the number of rebound nodes.
func (m *Lifecycle) Reindex(g *Graph, scene source.ID) (int, error) {
	var stale []*Node
	for _, n := range g.Nodes() {
		if n.Kind != KindObject || n.Scene != scene {
			continue
		}
		if obj, ok := m.model.Object(n.Key); ok && obj.Scene == scene {
			n.Label = obj.Name
			continue
		}
		stale = append(stale, n)
	}

	rebound := 0
	var errs []error
	live := m.model.Objects(scene)
	for _, n := range stale {
		idx := slices.IndexFunc(live, func(o source.Object) bool {
			return o.Name == n.Label && g.Lookup(KindObject, o.ID) == nil
		})
		if idx < 0 {
			err := fmt.Errorf("%w: object node %q", ErrStaleIdentity, n.Label)
			n.Warn(err)
			errs = append(errs, err)
			continue
		}
		if err := g.Registry().Rebind(n, live[idx].ID); err != nil {
			errs = append(errs, err)
			continue
		}
		rebound++
		m.log.Info("node reindexed", "node", n.Label, "key", n.Key)
	}
	return rebound, errors.Join(errs...)
}
