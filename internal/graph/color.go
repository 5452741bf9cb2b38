package graph

import "github.com/gyaneshwarpardhi/scenenodes/internal/source"

// Color is a linear RGB triple in [0, 1].
type Color struct {
	R float64 `json:"r"`
	G float64 `json:"g"`
	B float64 `json:"b"`
}

var objectColors = map[source.ObjectType]Color{
	source.TypeMesh:     {1.0, 0.792, 0.553},
	source.TypeLamp:     {1.0, 0.936, 0.395},
	source.TypeCamera:   {0.560, 0.560, 0.560},
	source.TypeArmature: {1.0, 0.541, 0.541},
	source.TypeCurve:    {0.613, 0.538, 1.0},
	source.TypeLattice:  {0.437, 0.950, 1.0},
	source.TypeMeta:     {0.782, 0.529, 1.0},
	source.TypeEmpty:    {1.0, 1.0, 1.0},
	source.TypeSurface:  {0.172, 1.0, 0.543},
	source.TypeFont:     {0.437, 0.642, 1.0},
	source.TypeSpeaker:  {0.0, 0.631, 0.543},
}

// MaterialColor is shared by every material node.
var MaterialColor = Color{1.0, 0.608, 0.994}

// ObjectColor returns the fixed color for an object type.
func ObjectColor(t source.ObjectType) Color {
	return objectColors[t]
}
