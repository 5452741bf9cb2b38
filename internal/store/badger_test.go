package store_test

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gyaneshwarpardhi/scenenodes/internal/config"
	"github.com/gyaneshwarpardhi/scenenodes/internal/graph"
	"github.com/gyaneshwarpardhi/scenenodes/internal/store"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func sampleSnapshot() *graph.Snapshot {
	return &graph.Snapshot{
		Nodes: []graph.NodeState{
			{
				Kind: graph.KindScene, Key: "s1", Scene: "s1", Label: "Main",
				Width: 140, Height: 100,
				Outputs: []graph.SocketState{{Name: graph.SocketScene}},
			},
			{
				Kind: graph.KindObject, Key: "o1", Scene: "s1", ObjectType: "empty", Label: "Rig",
				Location: graph.Vec2{X: 220, Y: 67}, Width: 140,
				Inputs:  []graph.SocketState{{Name: graph.SocketParent, Limit: 1}},
				Outputs: []graph.SocketState{{Name: graph.SocketChild}},
			},
		},
		Links: []graph.LinkState{{From: 0, FromSocket: graph.SocketScene, To: 1, ToSocket: graph.SocketParent}},
	}
}

func openMemory(t *testing.T) *store.GraphStore {
	t.Helper()
	s, err := store.Open(config.StoreConf{}, quiet)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestGraphStore_SaveLoad(t *testing.T) {
	s := openMemory(t)
	snap := sampleSnapshot()

	require.NoError(t, s.Save("scenes.yaml", snap))
	rec, err := s.Load("scenes.yaml")
	require.NoError(t, err)
	assert.Equal(t, "scenes.yaml", rec.Document)
	assert.False(t, rec.SavedAt.IsZero())
	assert.Equal(t, snap, rec.Snapshot)

	g, err := graph.Restore(rec.Snapshot)
	require.NoError(t, err)
	assert.Equal(t, 2, g.NodeCount())
}

func TestGraphStore_Missing(t *testing.T) {
	s := openMemory(t)
	_, err := s.Load("nothing.yaml")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestGraphStore_OverwriteAndDelete(t *testing.T) {
	s := openMemory(t)
	require.NoError(t, s.Save("a", sampleSnapshot()))
	require.NoError(t, s.Save("b", sampleSnapshot()))

	empty := &graph.Snapshot{Nodes: []graph.NodeState{}, Links: []graph.LinkState{}}
	require.NoError(t, s.Save("a", empty))
	rec, err := s.Load("a")
	require.NoError(t, err)
	assert.Empty(t, rec.Snapshot.Nodes)

	require.NoError(t, s.Delete("a"))
	require.NoError(t, s.Delete("a"))
	_, err = s.Load("a")
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = s.Load("b")
	assert.NoError(t, err, "other documents are untouched")
}

func TestGraphStore_PersistsAcrossReopen(t *testing.T) {
	conf := config.StoreConf{Path: t.TempDir(), SyncWrites: true}

	s, err := store.Open(conf, quiet)
	require.NoError(t, err)
	require.NoError(t, s.Save("doc", sampleSnapshot()))
	require.NoError(t, s.Close())

	s, err = store.Open(conf, quiet)
	require.NoError(t, err)
	defer s.Close()
	rec, err := s.Load("doc")
	require.NoError(t, err)
	assert.Equal(t, sampleSnapshot(), rec.Snapshot)
}
