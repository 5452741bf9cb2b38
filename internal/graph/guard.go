package graph

import "fmt"

// Guard is the non-reentrant latch shared by the builder and the controllers
// of one graph. While it is held, topology callbacks do not write back into
// the source model and host operations are rejected.
type Guard struct {
	op string
}

// Enter takes the guard for op. The returned release is idempotent and must
// be deferred so the guard is freed on every exit path, panics included.
func (g *Guard) Enter(op string) (release func(), err error) {
	if g.op != "" {
		return nil, fmt.Errorf("%w: %s is running, cannot start %s", ErrRebuildInProgress, g.op, op)
	}
	g.op = op
	released := false
	return func() {
		if !released {
			released = true
			g.op = ""
		}
	}, nil
}

// Active reports whether the guard is held.
func (g *Guard) Active() bool { return g.op != "" }

// Op names the operation holding the guard.
func (g *Guard) Op() string { return g.op }
