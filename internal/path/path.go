// Package path holds waypoint paths with a traversal cursor and the per-unit
// stack of main route and detours.
package path

import (
	"errors"

	"github.com/Garsondee/Unit-Commander/internal/vmath"
)

// ErrEmpty is returned when constructing a path with no waypoints.
var ErrEmpty = errors.New("path: no waypoints")

// Path is an immutable sequence of waypoints and a cursor pointing at the
// next waypoint to reach. The cursor never moves backwards.
type Path struct {
	nodes []vmath.Vec3
	next  int
}

// New copies nodes into a fresh path with the cursor at the first waypoint.
func New(nodes []vmath.Vec3) (*Path, error) {
	if len(nodes) == 0 {
		return nil, ErrEmpty
	}
	cp := make([]vmath.Vec3, len(nodes))
	copy(cp, nodes)
	return &Path{nodes: cp}, nil
}

// Must is New for static waypoint lists; it panics on an empty list.
func Must(nodes ...vmath.Vec3) *Path {
	p, err := New(nodes)
	if err != nil {
		panic(err)
	}
	return p
}

// Increment advances the cursor by one. It has no effect once the path is
// traversed.
func (p *Path) Increment() {
	if p.next < len(p.nodes) {
		p.next++
	}
}

// Traversed reports whether every waypoint has been reached.
func (p *Path) Traversed() bool { return p.next >= len(p.nodes) }

// NextIndex is the cursor position, len(nodes) once traversed.
func (p *Path) NextIndex() int { return p.next }

// NextNode is the waypoint the cursor points at, clamped to the last one.
func (p *Path) NextNode() vmath.Vec3 {
	if p.next >= len(p.nodes) {
		return p.nodes[len(p.nodes)-1]
	}
	return p.nodes[p.next]
}

// PreviousNode is the waypoint reached most recently. ok is false before
// the first waypoint is reached.
func (p *Path) PreviousNode() (vmath.Vec3, bool) {
	if p.next == 0 {
		return vmath.Vec3{}, false
	}
	return p.nodes[p.next-1], true
}

// IsLastNode reports whether the cursor points at the final waypoint.
func (p *Path) IsLastNode() bool { return p.next == len(p.nodes)-1 }

// Len is the number of waypoints.
func (p *Path) Len() int { return len(p.nodes) }

// Nodes returns a copy of the waypoints.
func (p *Path) Nodes() []vmath.Vec3 {
	cp := make([]vmath.Vec3, len(p.nodes))
	copy(cp, p.nodes)
	return cp
}

// Last is the final waypoint.
func (p *Path) Last() vmath.Vec3 { return p.nodes[len(p.nodes)-1] }

// Translate returns a fresh path with every waypoint shifted by offset.
func (p *Path) Translate(offset vmath.Vec3) *Path {
	out := make([]vmath.Vec3, len(p.nodes))
	for i, n := range p.nodes {
		out[i] = n.Add(offset)
	}
	return &Path{nodes: out}
}

// Reversed returns a fresh path visiting the waypoints in reverse order.
func (p *Path) Reversed() *Path {
	n := len(p.nodes)
	out := make([]vmath.Vec3, n)
	for i, v := range p.nodes {
		out[n-1-i] = v
	}
	return &Path{nodes: out}
}
