package graph

import "github.com/gyaneshwarpardhi/scenenodes/internal/config"

// Layout places nodes in per-depth columns. Every method is a pure function
// of the hierarchy position, so a rebuild of an unchanged source reproduces
// the same coordinates.
type Layout struct {
	conf config.LayoutConf
}

// NewLayout wraps the configured constants.
func NewLayout(conf config.LayoutConf) Layout {
	return Layout{conf: conf}
}

// Size applies the configured dimensions to a freshly built node.
func (l Layout) Size(n *Node) {
	n.Width = l.conf.NodeWidth
	if n.Kind == KindScene {
		n.Height = l.conf.SceneHeight
	}
}

// Scene stacks scenes in one column, one fixed slot each.
func (l Layout) Scene(index int) Vec2 {
	return Vec2{X: 0, Y: float64(index) * -l.conf.SceneHeight}
}

// Root centers the i-th of n root objects as a block in the column right
// of the scene node.
func (l Layout) Root(scene *Node, i, n int) Vec2 {
	total := float64(n) * -l.conf.CenterRowHeight
	return Vec2{
		X: scene.Location.X + scene.Width + l.conf.RootMargin,
		Y: float64(i)*-l.conf.RowHeight - total/2 + l.conf.VerticalNudge,
	}
}

// Child places a new child of parent, given the parent's "Child" output
// before the child is linked: first child shares the parent's row, later
// ones stack one row below the most recently added sibling.
func (l Layout) Child(parent *Node, children *Socket) Vec2 {
	pos := Vec2{X: parent.Location.X + parent.Width + l.conf.ColumnMargin, Y: parent.Location.Y}
	if links := children.Links(); len(links) > 0 {
		last := links[len(links)-1].ToNode()
		pos.Y = last.Location.Y - l.conf.RowHeight
	}
	return pos
}

// Material places a material node one column right of obj, on its row.
func (l Layout) Material(obj *Node) Vec2 {
	return Vec2{X: obj.Location.X + obj.Width + l.conf.ColumnMargin, Y: obj.Location.Y}
}
