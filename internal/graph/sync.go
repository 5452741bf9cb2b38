package graph

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/gyaneshwarpardhi/scenenodes/internal/source"
)

// SyncController writes link edits on an object node's "Parent" input back
// into the source model, keeping graph topology and source parents in step.
type SyncController struct {
	model source.Model
	guard *Guard
	log   *slog.Logger
}

// NewSyncController creates a controller sharing guard with the builder.
func NewSyncController(model source.Model, guard *Guard, log *slog.Logger) *SyncController {
	if log == nil {
		log = slog.Default()
	}
	return &SyncController{model: model, guard: guard, log: log}
}

// InputChanged is the Hooks.InputChanged handler. It ignores everything but
// object "Parent" inputs, and does nothing while the guard is held, which
// covers the builder's own wiring and the controller's repairs.
func (c *SyncController) InputChanged(g *Graph, n *Node, s *Socket) error {
	if n.Kind != KindObject || s.Name != SocketParent {
		return nil
	}
	if c.guard.Active() {
		c.log.Debug("parent sync suppressed", "node", n.Label, "op", c.guard.Op())
		return nil
	}
	release, err := c.guard.Enter("sync")
	if err != nil {
		return err
	}
	defer release()

	if err := c.reconcile(g, n, s); err != nil {
		n.Warn(err)
		c.log.Warn("parent sync rejected", "node", n.Label, "key", n.Key, "err", err)
		return err
	}
	return nil
}

func (c *SyncController) reconcile(g *Graph, n *Node, s *Socket) error {
	obj, ok := c.model.Object(n.Key)
	if !ok {
		return fmt.Errorf("%w: object node %q", ErrStaleIdentity, n.Label)
	}

	links := s.Links()
	if len(links) != 1 {
		// Unlinked or ambiguous: fall back to "no parent" and show it.
		if err := c.model.SetParent(obj.ID, ""); err != nil {
			return fmt.Errorf("clear parent of %q: %w", obj.Name, err)
		}
		if g.Lookup(KindScene, n.Scene) == nil {
			// The scene node is being removed and takes this node with it.
			return nil
		}
		return c.attachToScene(g, n, s)
	}

	src := links[0].FromNode()
	switch src.Kind {
	case KindScene:
		if src.Key != n.Scene {
			return c.restore(g, s, obj, fmt.Errorf("%w: %q cannot move to scene %q", ErrInvalidLink, obj.Name, src.Label))
		}
		if err := c.model.SetParent(obj.ID, ""); err != nil {
			return c.restore(g, s, obj, err)
		}
		c.log.Info("object unparented", "object", obj.Name)
		return nil

	case KindObject:
		if src.Scene != n.Scene {
			return c.restore(g, s, obj, fmt.Errorf("%w: %q and %q live in different scenes", ErrInvalidLink, obj.Name, src.Label))
		}
		if c.isAncestorOrSelf(obj.ID, src.Key) {
			return c.restore(g, s, obj, fmt.Errorf("%w: %q under %q", ErrCycleRisk, obj.Name, src.Label))
		}
		if err := c.model.SetParent(obj.ID, src.Key); err != nil {
			return c.restore(g, s, obj, err)
		}
		c.log.Info("object reparented", "object", obj.Name, "parent", src.Label)
		return nil

	default:
		return c.restore(g, s, obj, fmt.Errorf("%w: %s cannot be a parent", ErrInvalidLink, src))
	}
}

// isAncestorOrSelf reports whether obj is candidate or one of candidate's
// ancestors in the source model.
func (c *SyncController) isAncestorOrSelf(obj, candidate source.ID) bool {
	seen := make(map[source.ID]bool)
	for id := candidate; id != "" && !seen[id]; {
		if id == obj {
			return true
		}
		seen[id] = true
		o, ok := c.model.Object(id)
		if !ok {
			return false
		}
		id = o.Parent
	}
	return false
}

func (c *SyncController) attachToScene(g *Graph, n *Node, s *Socket) error {
	sn := g.Lookup(KindScene, n.Scene)
	if sn == nil {
		return fmt.Errorf("%w: scene %s of %q has no node", ErrStaleIdentity, n.Scene, n.Label)
	}
	return relink(g, sn.Output(SocketScene), s)
}

// restore puts the input back on the node that represents obj's current
// source parent and returns cause.
func (c *SyncController) restore(g *Graph, s *Socket, obj source.Object, cause error) error {
	out := anchorSocket(g, c.model, obj)
	if out == nil {
		return errors.Join(cause, fmt.Errorf("%w: scene %s of %q has no node", ErrStaleIdentity, obj.Scene, obj.Name))
	}
	if err := relink(g, out, s); err != nil {
		return errors.Join(cause, err)
	}
	return cause
}

// relink makes out the only link of the input in.
func relink(g *Graph, out, in *Socket) error {
	if links := in.Links(); len(links) == 1 && links[0].From == out {
		return nil
	}
	if err := g.UnlinkAll(in); err != nil {
		return err
	}
	_, err := g.Link(out, in)
	return err
}

// anchorSocket finds the output an object's "Parent" input should hang
// from: the "Child" output of its nearest ancestor that has a node, else
// its scene's output. Nil if the scene has no node either.
func anchorSocket(g *Graph, model source.Model, obj source.Object) *Socket {
	seen := map[source.ID]bool{obj.ID: true}
	for p := obj.Parent; p != "" && !seen[p]; {
		seen[p] = true
		if pn := g.Lookup(KindObject, p); pn != nil {
			return pn.Output(SocketChild)
		}
		po, ok := model.Object(p)
		if !ok {
			break
		}
		p = po.Parent
	}
	if sn := g.Lookup(KindScene, obj.Scene); sn != nil {
		return sn.Output(SocketScene)
	}
	return nil
}
