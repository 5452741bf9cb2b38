package graph_test

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gyaneshwarpardhi/scenenodes/internal/config"
	"github.com/gyaneshwarpardhi/scenenodes/internal/graph"
	"github.com/gyaneshwarpardhi/scenenodes/internal/source"
)

func TestRebuild_ParentChild(t *testing.T) {
	f := newFixture(t)
	f.scene("Main")
	f.object("Main", "A", source.TypeEmpty, "")
	f.object("Main", "B", source.TypeEmpty, "A")

	s := f.built()
	g := s.Graph()
	assert.Equal(t, 3, g.NodeCount())
	assert.Len(t, g.Links(), 2)

	main, a, b := f.node(s, "Main"), f.node(s, "A"), f.node(s, "B")
	assert.Same(t, main, linkedFrom(t, a))
	assert.Same(t, a, linkedFrom(t, b))
	assert.Equal(t, graph.SocketChild, b.Input(graph.SocketParent).Links()[0].From.Name)

	// Successive columns; single root centered; first child on the parent's row.
	assert.Equal(t, graph.Vec2{X: 0, Y: 0}, main.Location)
	assert.Equal(t, graph.Vec2{X: 220, Y: 67}, a.Location)
	assert.Equal(t, graph.Vec2{X: 480, Y: 67}, b.Location)
}

func TestRebuild_SharedMaterial(t *testing.T) {
	f := newFixture(t)
	f.scene("Main")
	f.object("Main", "A", source.TypeMesh, "")
	f.object("Main", "B", source.TypeMesh, "")
	f.material("Red")
	f.assign("A", "Red")
	f.assign("B", "Red")
	f.assign("B", "Red") // second slot, same material

	s := f.built()
	g := s.Graph()
	require.Equal(t, 1, g.CountKind(graph.KindMaterial))

	red := f.node(s, "Red")
	in := red.Input(graph.SocketObject)
	require.Len(t, in.Links(), 2)
	assert.Same(t, f.node(s, "A"), in.Links()[0].FromNode())
	assert.Same(t, f.node(s, "B"), in.Links()[1].FromNode())
	assert.Equal(t, graph.SocketMaterial, in.Links()[0].From.Name)

	// Placed next to the first object that referenced it.
	a := f.node(s, "A")
	assert.Equal(t, graph.Vec2{X: 220, Y: 122}, a.Location)
	assert.Equal(t, graph.Vec2{X: 480, Y: 122}, red.Location)
	assert.Equal(t, graph.MaterialColor, red.Color)
}

func TestRebuild_SiblingsStack(t *testing.T) {
	f := newFixture(t)
	f.scene("Main")
	f.object("Main", "A", source.TypeEmpty, "")
	f.object("Main", "B", source.TypeEmpty, "A")
	f.object("Main", "C", source.TypeEmpty, "A")
	f.object("Main", "D", source.TypeEmpty, "A")
	f.object("Main", "E", source.TypeEmpty, "C")

	s := f.built()
	a := f.node(s, "A")
	b, c, d, e := f.node(s, "B"), f.node(s, "C"), f.node(s, "D"), f.node(s, "E")

	assert.Equal(t, a.Location.Y, b.Location.Y)
	assert.Equal(t, b.Location.Y-140, c.Location.Y)
	assert.Equal(t, c.Location.Y-140, d.Location.Y)
	assert.Equal(t, c.Location.Y, e.Location.Y)
	assert.Equal(t, c.Location.X+140+120, e.Location.X)
}

func TestRebuild_ChildListedBeforeParent(t *testing.T) {
	f := newFixture(t)
	f.scene("Main")
	b := f.object("Main", "B", source.TypeEmpty, "")
	a := f.object("Main", "A", source.TypeEmpty, "")
	require.NoError(t, f.store.SetParent(b, a))

	s := f.built()
	assert.Same(t, f.node(s, "A"), linkedFrom(t, f.node(s, "B")))
}

func TestRebuild_ScenesStacked(t *testing.T) {
	f := newFixture(t)
	f.scene("One")
	f.scene("Two")
	f.object("Two", "Cube", source.TypeMesh, "")

	s := f.built()
	one, two := f.node(s, "One"), f.node(s, "Two")
	assert.Equal(t, 0.0, one.Location.Y)
	assert.Equal(t, -100.0, two.Location.Y)
	assert.Equal(t, 140.0, two.Width)
	assert.Same(t, two, linkedFrom(t, f.node(s, "Cube")))
}

func TestRebuild_Colors(t *testing.T) {
	f := newFixture(t)
	f.scene("Main")
	for _, typ := range source.ObjectTypes {
		f.object("Main", string(typ), typ, "")
	}
	s := f.built()
	for _, typ := range source.ObjectTypes {
		n := f.node(s, string(typ))
		assert.Equal(t, graph.ObjectColor(typ), n.Color, "type %s", typ)
		assert.True(t, n.CustomColor)
		assert.Equal(t, typ.HasMaterials(), n.Output(graph.SocketMaterial) != nil, "type %s", typ)
	}
	assert.Equal(t, graph.Color{R: 1.0, G: 0.792, B: 0.553}, graph.ObjectColor(source.TypeMesh))
	assert.Equal(t, graph.Color{R: 0.0, G: 0.631, B: 0.543}, graph.ObjectColor(source.TypeSpeaker))
}

func TestRebuild_Filter(t *testing.T) {
	f := newFixture(t)
	f.scene("Main")
	f.object("Main", "A", source.TypeMesh, "")
	f.object("Main", "Cam", source.TypeCamera, "A")
	f.object("Main", "C", source.TypeMesh, "Cam")
	f.object("Main", "Lamp", source.TypeLamp, "")
	f.material("Red")
	f.assign("A", "Red")

	off := false
	filter := config.FilterConf{
		FilteringEnabled: true,
		Visible:          map[source.ObjectType]bool{source.TypeCamera: false, source.TypeLamp: false},
		MaterialsEnabled: &off,
	}
	s := f.session()
	rep, err := s.Rebuild(filter)
	require.NoError(t, err)
	assert.Equal(t, 2, rep.Objects)
	assert.Equal(t, 0, rep.Materials)
	assert.Empty(t, rep.Skipped)

	g := s.Graph()
	assert.Nil(t, g.Lookup(graph.KindObject, f.objects["Cam"]))
	assert.Nil(t, g.Lookup(graph.KindObject, f.objects["Lamp"]))
	assert.Equal(t, 0, g.CountKind(graph.KindMaterial))
	// C hangs from its nearest visible ancestor.
	assert.Same(t, f.node(s, "A"), linkedFrom(t, f.node(s, "C")))
	// Only one visible root: centered as a single row.
	assert.Equal(t, 67.0, f.node(s, "A").Location.Y)

	// Toggles are ignored once filtering is switched off.
	filter.FilteringEnabled = false
	rep, err = s.Rebuild(filter)
	require.NoError(t, err)
	assert.Equal(t, 4, rep.Objects)
	assert.Equal(t, 1, rep.Materials)
}

func TestRebuild_Idempotent(t *testing.T) {
	f := newFixture(t)
	f.scene("Main")
	f.scene("Side")
	f.object("Main", "A", source.TypeMesh, "")
	f.object("Main", "B", source.TypeArmature, "A")
	f.object("Main", "C", source.TypeCurve, "B")
	f.object("Main", "D", source.TypeFont, "A")
	f.object("Side", "E", source.TypeMesh, "")
	f.material("Red")
	f.material("Blue")
	f.assign("A", "Red")
	f.assign("C", "Blue")
	f.assign("E", "Red")

	s := f.session()
	first, err := s.Rebuild(config.FilterConf{})
	require.NoError(t, err)
	snap := s.Snapshot()

	second, err := s.Rebuild(config.FilterConf{})
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, snap, s.Snapshot())

	// Clearing during a rebuild never cascades into the source.
	assert.Len(t, f.store.Objects(f.scenes["Main"]), 4)
	assert.Len(t, f.store.Scenes(), 2)
}

func TestRebuild_SkipsOrphans(t *testing.T) {
	f := newFixture(t)
	f.scene("Main")
	f.object("Main", "Root", source.TypeMesh, "")
	x := f.object("Main", "X", source.TypeEmpty, "")
	y := f.object("Main", "Y", source.TypeEmpty, "")
	f.object("Main", "Z", source.TypeEmpty, "Y")
	require.NoError(t, f.store.SetParent(x, y))
	require.NoError(t, f.store.SetParent(y, x))
	f.material("Gone")
	f.assign("Root", "Gone")
	require.NoError(t, f.store.DeleteMaterial(f.materials["Gone"]))

	s := f.session()
	rep, err := s.Rebuild(config.FilterConf{})
	require.NoError(t, err, "orphans are skipped, not fatal")
	assert.Equal(t, 1, rep.Objects)
	require.Len(t, rep.Skipped, 4)

	reasons := map[source.ID]error{}
	for _, sk := range rep.Skipped {
		reasons[sk.Key] = sk.Err
	}
	assert.ErrorIs(t, reasons[x], graph.ErrCycleRisk)
	assert.ErrorIs(t, reasons[y], graph.ErrCycleRisk)
	assert.ErrorIs(t, reasons[f.objects["Z"]], graph.ErrCycleRisk)
	assert.ErrorIs(t, reasons[f.materials["Gone"]], graph.ErrStaleIdentity)
}

// panicModel fails halfway through a rebuild.
type panicModel struct{ source.Model }

func (panicModel) Objects(source.ID) []source.Object { panic("source went away") }

func TestRebuild_GuardReleasedOnPanic(t *testing.T) {
	f := newFixture(t)
	f.scene("Main")

	guard := &graph.Guard{}
	b := graph.NewBuilder(graph.NewLayout(config.DefaultLayout()), guard, quiet)
	g := graph.NewGraph()

	func() {
		defer func() { require.NotNil(t, recover()) }()
		_, _ = b.Rebuild(g, panicModel{f.store}, config.FilterConf{})
	}()
	assert.False(t, guard.Active(), "guard must be released on every exit path")

	_, err := b.Rebuild(g, f.store, config.FilterConf{})
	assert.NoError(t, err)
}

func TestRebuild_RejectsReentry(t *testing.T) {
	f := newFixture(t)
	f.scene("Main")
	s := f.session()

	release, err := s.Guard().Enter("test")
	require.NoError(t, err)
	_, err = s.Rebuild(config.FilterConf{})
	assert.ErrorIs(t, err, graph.ErrRebuildInProgress)
	release()

	_, err = s.Rebuild(config.FilterConf{})
	assert.NoError(t, err)
}

// For random hierarchies: one node per entity, one parent link per object,
// and material fan-in equal to the number of referencing objects.
func TestRebuild_RandomHierarchies(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for round := 0; round < 25; round++ {
		f := newFixture(t)
		nScenes := 1 + rng.Intn(3)
		for i := 0; i < 3; i++ {
			f.material(fmt.Sprintf("M%d", i))
		}
		var names []string
		refs := map[string]map[string]bool{}
		for si := 0; si < nScenes; si++ {
			scene := fmt.Sprintf("S%d", si)
			f.scene(scene)
			var local []string
			nObjects := rng.Intn(12)
			for oi := 0; oi < nObjects; oi++ {
				name := fmt.Sprintf("%s.O%d", scene, oi)
				parent := ""
				if len(local) > 0 && rng.Intn(3) > 0 {
					parent = local[rng.Intn(len(local))]
				}
				f.object(scene, name, source.ObjectTypes[rng.Intn(len(source.ObjectTypes))], parent)
				local = append(local, name)
				names = append(names, name)
				for k := rng.Intn(3); k > 0; k-- {
					m := fmt.Sprintf("M%d", rng.Intn(3))
					f.assign(name, m)
				}
			}
		}
		for _, name := range names {
			obj, _ := f.store.Object(f.objects[name])
			if !obj.Type.HasMaterials() {
				continue
			}
			for _, mid := range obj.Materials {
				for mname, id := range f.materials {
					if id == mid {
						if refs[mname] == nil {
							refs[mname] = map[string]bool{}
						}
						refs[mname][name] = true
					}
				}
			}
		}

		s := f.built()
		g := s.Graph()
		require.Equal(t, nScenes, g.CountKind(graph.KindScene))
		require.Equal(t, len(names), g.CountKind(graph.KindObject))
		require.Equal(t, len(refs), g.CountKind(graph.KindMaterial))

		for _, name := range names {
			n := f.node(s, name)
			from := linkedFrom(t, n)
			if p := f.parentOf(name); p == "" {
				assert.Equal(t, graph.KindScene, from.Kind)
			} else {
				assert.Equal(t, p, from.Key)
			}
		}
		for mname, users := range refs {
			assert.Len(t, f.node(s, mname).Input(graph.SocketObject).Links(), len(users), "fan-in of %s", mname)
		}
	}
}
