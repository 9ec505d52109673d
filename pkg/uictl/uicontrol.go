// Package uictl defines read-only controls the TUI polls while rendering.
package uictl

import "golang.org/x/exp/constraints"

type Number interface {
	constraints.Integer | constraints.Float
}

// Dial is a control that can read some value.
type Dial[N Number] interface {
	Read() N
}

// Levels is a control that can read a window of recent values.
type Levels[N Number] interface {
	Read() []N
}

// DialFunc adapts a plain function to a Dial.
type DialFunc[N Number] func() N

// Read calls f.
func (f DialFunc[N]) Read() N {
	return f()
}

// LevelsFunc adapts a plain function to Levels.
type LevelsFunc[N Number] func() []N

// Read calls f.
func (f LevelsFunc[N]) Read() []N {
	return f()
}
