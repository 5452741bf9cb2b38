package graph_test

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gyaneshwarpardhi/scenenodes/internal/config"
	"github.com/gyaneshwarpardhi/scenenodes/internal/graph"
	"github.com/gyaneshwarpardhi/scenenodes/internal/source"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

// fixture builds a source store by display name.
type fixture struct {
	t         *testing.T
	store     *source.Store
	scenes    map[string]source.ID
	objects   map[string]source.ID
	materials map[string]source.ID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return &fixture{
		t:         t,
		store:     source.NewStore(),
		scenes:    make(map[string]source.ID),
		objects:   make(map[string]source.ID),
		materials: make(map[string]source.ID),
	}
}

func (f *fixture) scene(name string) source.ID {
	f.t.Helper()
	sc, err := f.store.AddScene("", name)
	require.NoError(f.t, err)
	f.scenes[name] = sc.ID
	return sc.ID
}

func (f *fixture) object(scene, name string, typ source.ObjectType, parent string) source.ID {
	f.t.Helper()
	var pid source.ID
	if parent != "" {
		pid = f.objects[parent]
		require.NotEmpty(f.t, pid, "unknown parent %q", parent)
	}
	obj, err := f.store.AddObject("", f.scenes[scene], name, typ, pid)
	require.NoError(f.t, err)
	f.objects[name] = obj.ID
	return obj.ID
}

func (f *fixture) material(name string) source.ID {
	f.t.Helper()
	m, err := f.store.AddMaterial("", name)
	require.NoError(f.t, err)
	f.materials[name] = m.ID
	return m.ID
}

func (f *fixture) assign(object, material string) {
	f.t.Helper()
	require.NoError(f.t, f.store.AssignMaterial(f.objects[object], f.materials[material]))
}

func (f *fixture) session() *graph.Session {
	return graph.NewSession(f.store, graph.Options{
		Layout:          config.DefaultLayout(),
		DuplicableTypes: []source.ObjectType{source.TypeCamera},
		Logger:          quiet,
	})
}

// built returns a session whose graph was rebuilt with filtering disabled.
func (f *fixture) built() *graph.Session {
	f.t.Helper()
	s := f.session()
	_, err := s.Rebuild(config.FilterConf{})
	require.NoError(f.t, err)
	return s
}

func (f *fixture) node(s *graph.Session, name string) *graph.Node {
	f.t.Helper()
	if id, ok := f.objects[name]; ok {
		if n := s.Graph().Lookup(graph.KindObject, id); n != nil {
			return n
		}
	}
	if id, ok := f.scenes[name]; ok {
		if n := s.Graph().Lookup(graph.KindScene, id); n != nil {
			return n
		}
	}
	if id, ok := f.materials[name]; ok {
		if n := s.Graph().Lookup(graph.KindMaterial, id); n != nil {
			return n
		}
	}
	f.t.Fatalf("no node for %q", name)
	return nil
}

func (f *fixture) parentOf(name string) source.ID {
	f.t.Helper()
	obj, ok := f.store.Object(f.objects[name])
	require.True(f.t, ok, "object %q", name)
	return obj.Parent
}

// linkedFrom returns the node feeding n's "Parent" input.
func linkedFrom(t *testing.T, n *graph.Node) *graph.Node {
	t.Helper()
	links := n.Input(graph.SocketParent).Links()
	require.Len(t, links, 1, "parent links of %s", n)
	return links[0].FromNode()
}
