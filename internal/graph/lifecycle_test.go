package graph_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gyaneshwarpardhi/scenenodes/internal/config"
	"github.com/gyaneshwarpardhi/scenenodes/internal/graph"
	"github.com/gyaneshwarpardhi/scenenodes/internal/source"
)

func TestLifecycle_DuplicateCamera(t *testing.T) {
	f := newFixture(t)
	f.scene("Main")
	f.object("Main", "Rig", source.TypeEmpty, "")
	f.object("Main", "Camera", source.TypeCamera, "Rig")
	s := f.built()
	before := s.Graph().NodeCount()

	c, err := s.Duplicate(graph.KindObject, f.objects["Camera"])
	require.NoError(t, err)
	require.NotNil(t, c)

	assert.Equal(t, before+1, s.Graph().NodeCount())
	assert.NotEqual(t, f.objects["Camera"], c.Key)
	assert.Equal(t, "Camera.001", c.Label)
	assert.Same(t, c, s.Graph().Lookup(graph.KindObject, c.Key))
	assert.Same(t, f.node(s, "Rig"), linkedFrom(t, c))

	dup, ok := f.store.Object(c.Key)
	require.True(t, ok)
	assert.Equal(t, f.objects["Rig"], dup.Parent)
	assert.Equal(t, source.TypeCamera, dup.Type)
	assert.Len(t, f.store.Objects(f.scenes["Main"]), 3)
}

func TestLifecycle_DuplicateCarriesMaterials(t *testing.T) {
	f := newFixture(t)
	f.scene("Main")
	f.object("Main", "Body", source.TypeMesh, "")
	f.material("Paint")
	f.assign("Body", "Paint")
	s := graph.NewSession(f.store, graph.Options{
		DuplicableTypes: []source.ObjectType{source.TypeMesh},
		Logger:          quiet,
	})
	_, err := s.Rebuild(config.FilterConf{})
	require.NoError(t, err)

	c, err := s.Duplicate(graph.KindObject, f.objects["Body"])
	require.NoError(t, err)
	assert.Len(t, f.node(s, "Paint").Input(graph.SocketObject).Links(), 2)
	assert.Len(t, c.Output(graph.SocketMaterial).Links(), 1)

	dup, ok := f.store.Object(c.Key)
	require.True(t, ok)
	assert.Equal(t, []source.ID{f.materials["Paint"]}, dup.Materials)
}

func TestLifecycle_DuplicateRejectsType(t *testing.T) {
	f := newFixture(t)
	f.scene("Main")
	f.object("Main", "Cube", source.TypeMesh, "")
	s := f.built()
	before := s.Graph().NodeCount()

	_, err := s.Duplicate(graph.KindObject, f.objects["Cube"])
	require.ErrorIs(t, err, graph.ErrNotDuplicable)

	assert.Equal(t, before, s.Graph().NodeCount(), "rejected copy is dropped")
	assert.Len(t, f.store.Objects(f.scenes["Main"]), 1)
	assert.NotEmpty(t, f.node(s, "Cube").Warnings)
}

func TestLifecycle_DuplicateScene(t *testing.T) {
	f := newFixture(t)
	f.scene("Main")
	s := f.built()

	c, err := s.Duplicate(graph.KindScene, f.scenes["Main"])
	require.NoError(t, err)
	assert.Equal(t, "Main.001", c.Label)
	assert.Equal(t, c.Key, c.Scene)
	assert.Len(t, f.store.Scenes(), 2)
	assert.Same(t, c, s.Graph().Lookup(graph.KindScene, c.Key))
}

func TestLifecycle_DuplicateMaterialRejected(t *testing.T) {
	f := newFixture(t)
	f.scene("Main")
	f.object("Main", "Body", source.TypeMesh, "")
	f.material("Paint")
	f.assign("Body", "Paint")
	s := f.built()
	before := s.Graph().NodeCount()

	_, err := s.Duplicate(graph.KindMaterial, f.materials["Paint"])
	require.ErrorIs(t, err, graph.ErrNotDuplicable)
	assert.Equal(t, before, s.Graph().NodeCount())
	assert.Len(t, f.store.Materials(), 1)
}

func TestLifecycle_RemoveObject(t *testing.T) {
	f := newFixture(t)
	f.scene("Main")
	f.object("Main", "A", source.TypeEmpty, "")
	f.object("Main", "B", source.TypeEmpty, "A")
	s := f.built()

	require.NoError(t, s.Remove(graph.KindObject, f.objects["A"]))

	_, ok := f.store.Object(f.objects["A"])
	assert.False(t, ok)
	assert.Nil(t, s.Graph().Lookup(graph.KindObject, f.objects["A"]))
	assert.Empty(t, f.parentOf("B"))
	assert.Same(t, f.node(s, "Main"), linkedFrom(t, f.node(s, "B")))
}

func TestLifecycle_RemoveScene(t *testing.T) {
	f := newFixture(t)
	f.scene("One")
	f.scene("Two")
	f.object("One", "A", source.TypeEmpty, "")
	f.object("One", "B", source.TypeEmpty, "A")
	f.object("Two", "C", source.TypeEmpty, "")
	s := f.built()

	require.NoError(t, s.Remove(graph.KindScene, f.scenes["One"]))

	assert.Len(t, f.store.Scenes(), 1)
	_, ok := f.store.Object(f.objects["A"])
	assert.False(t, ok)
	assert.Equal(t, 2, s.Graph().NodeCount(), "scene Two and C remain")
	assert.Same(t, f.node(s, "Two"), linkedFrom(t, f.node(s, "C")))
}

func TestLifecycle_RemoveMaterialKeepsSource(t *testing.T) {
	f := newFixture(t)
	f.scene("Main")
	f.object("Main", "Body", source.TypeMesh, "")
	f.material("Paint")
	f.assign("Body", "Paint")
	s := f.built()

	require.NoError(t, s.Remove(graph.KindMaterial, f.materials["Paint"]))
	assert.Len(t, f.store.Materials(), 1)
	obj, _ := f.store.Object(f.objects["Body"])
	assert.Equal(t, []source.ID{f.materials["Paint"]}, obj.Materials)
}

func TestLifecycle_ReindexRebindsByName(t *testing.T) {
	f := newFixture(t)
	f.scene("Main")
	f.object("Main", "A", source.TypeEmpty, "")
	f.object("Main", "B", source.TypeEmpty, "")
	s := f.built()
	n := f.node(s, "A")
	old := n.Key

	// The host recreated "A" under a new identity.
	require.NoError(t, f.store.DeleteObject(old))
	replacement, err := f.store.AddObject("", f.scenes["Main"], "A", source.TypeEmpty, "")
	require.NoError(t, err)

	rebound, err := s.Reindex(f.scenes["Main"])
	require.NoError(t, err)
	assert.Equal(t, 1, rebound)
	assert.Equal(t, replacement.ID, n.Key)
	assert.Same(t, n, s.Graph().Lookup(graph.KindObject, replacement.ID))
	assert.Nil(t, s.Graph().Lookup(graph.KindObject, old))
}

func TestLifecycle_ReindexMarksStale(t *testing.T) {
	f := newFixture(t)
	f.scene("Main")
	f.object("Main", "A", source.TypeEmpty, "")
	s := f.built()
	require.NoError(t, f.store.DeleteObject(f.objects["A"]))

	rebound, err := s.Reindex(f.scenes["Main"])
	require.ErrorIs(t, err, graph.ErrStaleIdentity)
	assert.Zero(t, rebound)
	assert.NotEmpty(t, f.node(s, "A").Warnings)
	assert.False(t, s.Guard().Active())
}

func TestLifecycle_ReindexRefreshesLabels(t *testing.T) {
	f := newFixture(t)
	f.scene("Main")
	f.object("Main", "A", source.TypeEmpty, "")
	s := f.built()
	require.NoError(t, f.store.Rename(f.objects["A"], "Renamed"))

	rebound, err := s.Reindex(f.scenes["Main"])
	require.NoError(t, err)
	assert.Zero(t, rebound)
	assert.Equal(t, "Renamed", f.node(s, "A").Label)
}
