package source

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ID is the stable, opaque identity of a source entity.
// It never changes for the lifetime of the entity, unlike its display name.
type ID string

// NewID returns a fresh random identity.
func NewID() ID {
	return ID(uuid.NewString())
}

// ObjectType is the fixed enumeration of object kinds.
type ObjectType string

const (
	TypeMesh     ObjectType = "mesh"
	TypeCamera   ObjectType = "camera"
	TypeLamp     ObjectType = "lamp"
	TypeArmature ObjectType = "armature"
	TypeCurve    ObjectType = "curve"
	TypeLattice  ObjectType = "lattice"
	TypeMeta     ObjectType = "meta"
	TypeEmpty    ObjectType = "empty"
	TypeSurface  ObjectType = "surface"
	TypeFont     ObjectType = "font"
	TypeSpeaker  ObjectType = "speaker"
)

// ObjectTypes lists every object type in display order.
var ObjectTypes = []ObjectType{
	TypeMesh, TypeCamera, TypeLamp, TypeArmature, TypeCurve, TypeLattice,
	TypeMeta, TypeEmpty, TypeSurface, TypeFont, TypeSpeaker,
}

// ParseObjectType accepts any casing ("MESH", "Mesh", "mesh").
func ParseObjectType(s string) (ObjectType, error) {
	t := ObjectType(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", fmt.Errorf("unknown object type %q", s)
	}
	return t, nil
}

// Valid reports whether t is one of ObjectTypes.
func (t ObjectType) Valid() bool {
	for _, known := range ObjectTypes {
		if t == known {
			return true
		}
	}
	return false
}

// HasMaterials reports whether objects of this type carry material slots.
func (t ObjectType) HasMaterials() bool {
	switch t {
	case TypeMesh, TypeCurve, TypeSurface, TypeFont, TypeMeta:
		return true
	}
	return false
}

// Scene is an ordered set of objects.
type Scene struct {
	ID      ID
	Name    string
	Objects []ID
}

// Object is a member of exactly one scene.
// Parent is a non-owning back-reference; the empty ID means no parent.
type Object struct {
	ID        ID
	Name      string
	Type      ObjectType
	Scene     ID
	Parent    ID
	Materials []ID // one entry per slot; empty ID is an empty slot
}

// Material may be shared by many objects.
type Material struct {
	ID   ID
	Name string
}

// Model is the accessor/mutator surface the graph core uses to reach the
// hierarchical object store. Accessors return copies.
type Model interface {
	Scenes() []Scene
	Scene(id ID) (Scene, bool)
	// Objects returns the objects of a scene in scene order.
	Objects(scene ID) []Object
	Object(id ID) (Object, bool)
	Material(id ID) (Material, bool)

	SetParent(object, parent ID) error
	DeleteObject(id ID) error
	DuplicateObject(id ID) (Object, error)
	NewScene(name string) (Scene, error)
	DeleteScene(id ID) error
}
