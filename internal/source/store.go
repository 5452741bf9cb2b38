package source

import (
	"errors"
	"fmt"
	"slices"
)

var (
	// ErrNotFound is returned when an ID does not resolve to a live entity.
	ErrNotFound = errors.New("entity not found")

	// ErrAmbiguousName means a by-name reference matches more than one entity.
	ErrAmbiguousName = errors.New("ambiguous name")
)

// Store is the in-memory Model implementation.
// It is not safe for concurrent use; callers serialize access.
type Store struct {
	scenes        []*Scene
	objects       map[ID]*Object
	materials     map[ID]*Material
	materialOrder []ID
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{
		objects:   make(map[ID]*Object),
		materials: make(map[ID]*Material),
	}
}

// AddScene appends a scene. An empty id is replaced by a fresh one.
func (s *Store) AddScene(id ID, name string) (Scene, error) {
	if id == "" {
		id = NewID()
	}
	if _, ok := s.scene(id); ok {
		return Scene{}, fmt.Errorf("scene %s: duplicate id", id)
	}
	sc := &Scene{ID: id, Name: name}
	s.scenes = append(s.scenes, sc)
	return cloneScene(sc), nil
}

// AddObject appends an object to a scene. parent may be empty.
func (s *Store) AddObject(id, scene ID, name string, typ ObjectType, parent ID) (Object, error) {
	if !typ.Valid() {
		return Object{}, fmt.Errorf("object %q: unknown type %q", name, typ)
	}
	sc, ok := s.scene(scene)
	if !ok {
		return Object{}, fmt.Errorf("object %q: scene %s: %w", name, scene, ErrNotFound)
	}
	if id == "" {
		id = NewID()
	}
	if _, dup := s.objects[id]; dup {
		return Object{}, fmt.Errorf("object %s: duplicate id", id)
	}
	obj := &Object{ID: id, Name: name, Type: typ, Scene: scene}
	s.objects[id] = obj
	sc.Objects = append(sc.Objects, id)
	if parent != "" {
		if err := s.SetParent(id, parent); err != nil {
			return Object{}, err
		}
	}
	return cloneObject(obj), nil
}

// AddMaterial registers a material.
func (s *Store) AddMaterial(id ID, name string) (Material, error) {
	if id == "" {
		id = NewID()
	}
	if _, dup := s.materials[id]; dup {
		return Material{}, fmt.Errorf("material %s: duplicate id", id)
	}
	m := &Material{ID: id, Name: name}
	s.materials[id] = m
	s.materialOrder = append(s.materialOrder, id)
	return *m, nil
}

// AssignMaterial appends a material slot to an object. An empty material
// ID appends an empty slot.
func (s *Store) AssignMaterial(object, material ID) error {
	obj, ok := s.objects[object]
	if !ok {
		return fmt.Errorf("object %s: %w", object, ErrNotFound)
	}
	if material != "" {
		if _, ok := s.materials[material]; !ok {
			return fmt.Errorf("material %s: %w", material, ErrNotFound)
		}
	}
	obj.Materials = append(obj.Materials, material)
	return nil
}

// DeleteMaterial removes a material. Slots referencing it are left dangling,
// the same way a host may drop a data block without touching its users.
func (s *Store) DeleteMaterial(id ID) error {
	if _, ok := s.materials[id]; !ok {
		return fmt.Errorf("material %s: %w", id, ErrNotFound)
	}
	delete(s.materials, id)
	s.materialOrder = slices.DeleteFunc(s.materialOrder, func(m ID) bool { return m == id })
	return nil
}

// Rename changes the display name of any entity. Identity is unaffected.
func (s *Store) Rename(id ID, name string) error {
	if sc, ok := s.scene(id); ok {
		sc.Name = name
		return nil
	}
	if obj, ok := s.objects[id]; ok {
		obj.Name = name
		return nil
	}
	if m, ok := s.materials[id]; ok {
		m.Name = name
		return nil
	}
	return fmt.Errorf("rename %s: %w", id, ErrNotFound)
}

// Materials returns every material in registration order.
func (s *Store) Materials() []Material {
	out := make([]Material, 0, len(s.materialOrder))
	for _, id := range s.materialOrder {
		out = append(out, *s.materials[id])
	}
	return out
}

func (s *Store) Scenes() []Scene {
	out := make([]Scene, 0, len(s.scenes))
	for _, sc := range s.scenes {
		out = append(out, cloneScene(sc))
	}
	return out
}

func (s *Store) Scene(id ID) (Scene, bool) {
	sc, ok := s.scene(id)
	if !ok {
		return Scene{}, false
	}
	return cloneScene(sc), true
}

func (s *Store) Objects(scene ID) []Object {
	sc, ok := s.scene(scene)
	if !ok {
		return nil
	}
	out := make([]Object, 0, len(sc.Objects))
	for _, id := range sc.Objects {
		out = append(out, cloneObject(s.objects[id]))
	}
	return out
}

func (s *Store) Object(id ID) (Object, bool) {
	obj, ok := s.objects[id]
	if !ok {
		return Object{}, false
	}
	return cloneObject(obj), true
}

func (s *Store) Material(id ID) (Material, bool) {
	m, ok := s.materials[id]
	if !ok {
		return Material{}, false
	}
	return *m, true
}

// SetParent sets or clears (parent == "") the parent of an object.
// Both objects must belong to the same scene. Cycles are not checked here.
func (s *Store) SetParent(object, parent ID) error {
	obj, ok := s.objects[object]
	if !ok {
		return fmt.Errorf("set parent of %s: %w", object, ErrNotFound)
	}
	if parent == "" {
		obj.Parent = ""
		return nil
	}
	p, ok := s.objects[parent]
	if !ok {
		return fmt.Errorf("set parent of %s to %s: %w", object, parent, ErrNotFound)
	}
	if p.Scene != obj.Scene {
		return fmt.Errorf("set parent of %s: parent %s lives in another scene", object, parent)
	}
	obj.Parent = parent
	return nil
}

// DeleteObject removes an object from its scene and unparents its children.
func (s *Store) DeleteObject(id ID) error {
	obj, ok := s.objects[id]
	if !ok {
		return fmt.Errorf("delete object %s: %w", id, ErrNotFound)
	}
	if sc, ok := s.scene(obj.Scene); ok {
		sc.Objects = slices.DeleteFunc(sc.Objects, func(o ID) bool { return o == id })
	}
	delete(s.objects, id)
	for _, other := range s.objects {
		if other.Parent == id {
			other.Parent = ""
		}
	}
	return nil
}

// DuplicateObject creates a linked copy with a fresh identity and a
// uniquified name, appended to the owning scene.
func (s *Store) DuplicateObject(id ID) (Object, error) {
	obj, ok := s.objects[id]
	if !ok {
		return Object{}, fmt.Errorf("duplicate object %s: %w", id, ErrNotFound)
	}
	sc, ok := s.scene(obj.Scene)
	if !ok {
		return Object{}, fmt.Errorf("duplicate object %s: scene %s: %w", id, obj.Scene, ErrNotFound)
	}
	dup := cloneObject(obj)
	dup.ID = NewID()
	dup.Name = uniqueName(obj.Name, func(name string) bool {
		for _, o := range s.objects {
			if o.Name == name {
				return true
			}
		}
		return false
	})
	s.objects[dup.ID] = &dup
	sc.Objects = append(sc.Objects, dup.ID)
	return cloneObject(&dup), nil
}

// NewScene appends an empty scene with a uniquified name.
func (s *Store) NewScene(name string) (Scene, error) {
	name = uniqueName(name, func(n string) bool {
		for _, sc := range s.scenes {
			if sc.Name == n {
				return true
			}
		}
		return false
	})
	return s.AddScene("", name)
}

// DeleteScene removes a scene together with its objects.
func (s *Store) DeleteScene(id ID) error {
	sc, ok := s.scene(id)
	if !ok {
		return fmt.Errorf("delete scene %s: %w", id, ErrNotFound)
	}
	for _, obj := range sc.Objects {
		delete(s.objects, obj)
	}
	s.scenes = slices.DeleteFunc(s.scenes, func(x *Scene) bool { return x.ID == id })
	return nil
}

func (s *Store) scene(id ID) (*Scene, bool) {
	for _, sc := range s.scenes {
		if sc.ID == id {
			return sc, true
		}
	}
	return nil, false
}

// uniqueName returns base if free, otherwise base.001, base.002, …
func uniqueName(base string, taken func(string) bool) string {
	if !taken(base) {
		return base
	}
	for i := 1; ; i++ {
		name := fmt.Sprintf("%s.%03d", base, i)
		if !taken(name) {
			return name
		}
	}
}

func cloneScene(sc *Scene) Scene {
	out := *sc
	out.Objects = slices.Clone(sc.Objects)
	return out
}

func cloneObject(obj *Object) Object {
	out := *obj
	out.Materials = slices.Clone(obj.Materials)
	return out
}
