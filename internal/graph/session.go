package graph

import (
	"fmt"
	"log/slog"

	"github.com/gyaneshwarpardhi/scenenodes/internal/config"
	"github.com/gyaneshwarpardhi/scenenodes/internal/source"
)

// Options configures a Session.
type Options struct {
	Layout          config.LayoutConf
	DuplicableTypes []source.ObjectType
	Logger          *slog.Logger
}

// Session binds one graph to one source model. It owns the guard shared by
// the builder and both controllers and is the entry point for host events.
// A Session is single-threaded; the engine serializes calls into it.
type Session struct {
	graph   *Graph
	model   source.Model
	guard   Guard
	builder *Builder
	sync    *SyncController
	life    *Lifecycle
	log     *slog.Logger
}

// NewSession creates a Session with an empty graph.
func NewSession(model source.Model, opts Options) *Session {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	s := &Session{model: model, log: log}
	s.sync = NewSyncController(model, &s.guard, log)
	s.configure(opts)
	s.attach(NewGraph())
	return s
}

// Configure swaps the layout constants and duplicable types. They apply
// from the next rebuild or duplication on.
func (s *Session) Configure(opts Options) error {
	if err := s.idle("configure"); err != nil {
		return err
	}
	s.configure(opts)
	s.attach(s.graph)
	return nil
}

func (s *Session) configure(opts Options) {
	if opts.Layout == (config.LayoutConf{}) {
		opts.Layout = config.DefaultLayout()
	}
	s.builder = NewBuilder(NewLayout(opts.Layout), &s.guard, s.log)
	s.life = NewLifecycle(s.model, &s.guard, opts.DuplicableTypes, s.log)
}

func (s *Session) attach(g *Graph) {
	g.SetHooks(Hooks{
		InputChanged: s.sync.InputChanged,
		NodeRemoved:  s.life.NodeRemoved,
		NodeCopied:   s.life.NodeCopied,
	})
	s.graph = g
}

// Graph returns the session's graph.
func (s *Session) Graph() *Graph { return s.graph }

// Model returns the session's source model.
func (s *Session) Model() source.Model { return s.model }

// Guard exposes the session guard.
func (s *Session) Guard() *Guard { return &s.guard }

// Rebuild reconstructs the graph from the source model.
func (s *Session) Rebuild(filter config.FilterConf) (*Report, error) {
	return s.builder.Rebuild(s.graph, s.model, filter)
}

// Relink points an object node's "Parent" input at another object node, or
// at its scene node when parent is empty, as a user dragging a link would.
func (s *Session) Relink(object, parent source.ID) error {
	if err := s.idle("relink"); err != nil {
		return err
	}
	n, err := s.node(KindObject, object)
	if err != nil {
		return err
	}
	var out *Socket
	if parent == "" {
		sn, err := s.node(KindScene, n.Scene)
		if err != nil {
			return err
		}
		out = sn.Output(SocketScene)
	} else {
		pn, err := s.node(KindObject, parent)
		if err != nil {
			return err
		}
		out = pn.Output(SocketChild)
	}
	_, err = s.graph.Link(out, n.Input(SocketParent))
	return err
}

// Unlink removes every link of an object node's "Parent" input.
func (s *Session) Unlink(object source.ID) error {
	if err := s.idle("unlink"); err != nil {
		return err
	}
	n, err := s.node(KindObject, object)
	if err != nil {
		return err
	}
	return s.graph.UnlinkAll(n.Input(SocketParent))
}

// Remove deletes a node, cascading into the source model.
func (s *Session) Remove(kind Kind, key source.ID) error {
	if err := s.idle("remove"); err != nil {
		return err
	}
	n, err := s.node(kind, key)
	if err != nil {
		return err
	}
	return s.graph.RemoveNode(n)
}

// Duplicate copies a node together with its backing entity.
func (s *Session) Duplicate(kind Kind, key source.ID) (*Node, error) {
	if err := s.idle("duplicate"); err != nil {
		return nil, err
	}
	n, err := s.node(kind, key)
	if err != nil {
		return nil, err
	}
	c, err := s.graph.Duplicate(n)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Reindex refreshes the identity keys of a scene's object nodes.
func (s *Session) Reindex(scene source.ID) (int, error) {
	release, err := s.guard.Enter("reindex")
	if err != nil {
		return 0, err
	}
	defer release()
	return s.life.Reindex(s.graph, scene)
}

// Snapshot captures the graph for persistence.
func (s *Session) Snapshot() *Snapshot {
	return s.graph.Snapshot()
}

// Restore replaces the graph with a persisted one. The snapshot is only
// taken when it holds exactly the nodes and links a rebuild with filter
// would produce now; otherwise ErrStaleSnapshot is returned and the graph
// is left alone.
func (s *Session) Restore(snap *Snapshot, filter config.FilterConf) error {
	if err := s.idle("restore"); err != nil {
		return err
	}
	g, err := Restore(snap)
	if err != nil {
		return err
	}
	want := NewGraph()
	if _, err := s.builder.Rebuild(want, s.model, filter); err != nil {
		return fmt.Errorf("check snapshot: %w", err)
	}
	if diff := topologyDiff(want, g); diff != "" {
		return fmt.Errorf("%w: %s", ErrStaleSnapshot, diff)
	}
	s.attach(g)
	return nil
}

func (s *Session) idle(op string) error {
	if s.guard.Active() {
		return fmt.Errorf("%w: %s is running, cannot %s", ErrRebuildInProgress, s.guard.Op(), op)
	}
	return nil
}

func (s *Session) node(kind Kind, key source.ID) (*Node, error) {
	n := s.graph.Lookup(kind, key)
	if n == nil {
		return nil, fmt.Errorf("%s %s: %w", kind, key, ErrNodeNotFound)
	}
	return n, nil
}
