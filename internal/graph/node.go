package graph

import (
	"fmt"

	"github.com/gyaneshwarpardhi/scenenodes/internal/source"
)

// Kind discriminates the three node variants.
type Kind string

const (
	KindScene    Kind = "scene"
	KindObject   Kind = "object"
	KindMaterial Kind = "material"
)

// ParseKind validates a kind name.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case KindScene, KindObject, KindMaterial:
		return k, nil
	}
	return "", fmt.Errorf("unknown node kind %q", s)
}

// Socket names.
const (
	SocketScene    = "Scene"
	SocketParent   = "Parent"
	SocketChild    = "Child"
	SocketMaterial = "Material"
	SocketObject   = "Object"
)

// Vec2 is a node-editor location.
type Vec2 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Direction tells inputs from outputs.
type Direction int

const (
	Input Direction = iota
	Output
)

func (d Direction) String() string {
	if d == Input {
		return "input"
	}
	return "output"
}

// Socket is a typed connection point on a node.
type Socket struct {
	Name  string
	Dir   Direction
	Limit int // maximum links; 0 = unlimited

	node  *Node
	links []*Link
}

// Node returns the owning node.
func (s *Socket) Node() *Node { return s.node }

// Links returns the socket's links, oldest first.
func (s *Socket) Links() []*Link { return s.links }

// IsLinked reports whether the socket has at least one link.
func (s *Socket) IsLinked() bool { return len(s.links) > 0 }

// Link connects an output socket to an input socket.
type Link struct {
	From *Socket
	To   *Socket
}

func (l *Link) FromNode() *Node { return l.From.node }
func (l *Link) ToNode() *Node   { return l.To.node }

// Node is the graph-side representation of one source entity. Kind is the
// variant tag; ObjectType and Scene are meaningful for object nodes only
// (Scene is also set on scene nodes, to their own key).
type Node struct {
	Kind       Kind
	Key        source.ID
	Scene      source.ID
	ObjectType source.ObjectType
	Label      string

	Location Vec2
	Width    float64
	Height   float64
	Color    Color
	// CustomColor is false for nodes left to the host's default styling.
	CustomColor bool

	Inputs   []*Socket
	Outputs  []*Socket
	Warnings []string

	graph *Graph
}

// Input returns the input socket called name, or nil.
func (n *Node) Input(name string) *Socket {
	for _, s := range n.Inputs {
		if s.Name == name {
			return s
		}
	}
	return nil
}

// Output returns the output socket called name, or nil.
func (n *Node) Output(name string) *Socket {
	for _, s := range n.Outputs {
		if s.Name == name {
			return s
		}
	}
	return nil
}

// Warn attaches a non-fatal warning to the node.
func (n *Node) Warn(err error) {
	n.Warnings = append(n.Warnings, err.Error())
}

func (n *Node) String() string {
	return fmt.Sprintf("%s %q (%s)", n.Kind, n.Label, n.Key)
}

func (n *Node) addInput(name string, limit int) {
	n.Inputs = append(n.Inputs, &Socket{Name: name, Dir: Input, Limit: limit, node: n})
}

func (n *Node) addOutput(name string) {
	n.Outputs = append(n.Outputs, &Socket{Name: name, Dir: Output, node: n})
}

// -----------------------------------------------------------------------
// Constructors
// -----------------------------------------------------------------------

// NewSceneNode creates an unattached scene node with its "Scene" output.
func NewSceneNode(sc source.Scene) *Node {
	n := &Node{Kind: KindScene, Key: sc.ID, Scene: sc.ID, Label: sc.Name}
	n.addOutput(SocketScene)
	return n
}

// NewObjectNode creates an unattached object node. The "Material" output
// only exists for types that carry materials.
func NewObjectNode(obj source.Object) *Node {
	n := &Node{
		Kind:        KindObject,
		Key:         obj.ID,
		Scene:       obj.Scene,
		ObjectType:  obj.Type,
		Label:       obj.Name,
		Color:       ObjectColor(obj.Type),
		CustomColor: true,
	}
	n.addInput(SocketParent, 1)
	n.addOutput(SocketChild)
	if obj.Type.HasMaterials() {
		n.addOutput(SocketMaterial)
	}
	return n
}

// NewMaterialNode creates an unattached material node whose "Object" input
// accepts any number of links.
func NewMaterialNode(m source.Material) *Node {
	n := &Node{
		Kind:        KindMaterial,
		Key:         m.ID,
		Label:       m.Name,
		Color:       MaterialColor,
		CustomColor: true,
	}
	n.addInput(SocketObject, 0)
	return n
}

// clone copies n without links, warnings or graph membership.
func (n *Node) clone() *Node {
	c := &Node{
		Kind:        n.Kind,
		Key:         n.Key,
		Scene:       n.Scene,
		ObjectType:  n.ObjectType,
		Label:       n.Label,
		Location:    n.Location,
		Width:       n.Width,
		Height:      n.Height,
		Color:       n.Color,
		CustomColor: n.CustomColor,
	}
	for _, s := range n.Inputs {
		c.addInput(s.Name, s.Limit)
	}
	for _, s := range n.Outputs {
		c.addOutput(s.Name)
	}
	return c
}
