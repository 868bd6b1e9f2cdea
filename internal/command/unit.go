package command

import (
	"math"

	"github.com/Garsondee/Unit-Commander/internal/path"
	"github.com/Garsondee/Unit-Commander/internal/vmath"
)

// Status is the set of progress flags a CommandUnit reports for one tick.
type Status uint8

const (
	// StatusNoPath: the unit has nothing to follow.
	StatusNoPath Status = 1 << iota
	// StatusTraversingPath: a path remains on the stack.
	StatusTraversingPath
	// StatusNewPathNode: a waypoint was reached and the cursor advanced.
	StatusNewPathNode
	// StatusNewPath: a path was finished and the one beneath resumed.
	StatusNewPath
	// StatusAllPathsTraversed: the last path was finished this tick.
	StatusAllPathsTraversed
)

// Has reports whether every flag in f is set.
func (s Status) Has(f Status) bool { return s&f == f }

func (s Status) String() string {
	names := []struct {
		f Status
		n string
	}{
		{StatusNoPath, "no_path"},
		{StatusTraversingPath, "traversing"},
		{StatusNewPathNode, "new_node"},
		{StatusNewPath, "new_path"},
		{StatusAllPathsTraversed, "all_traversed"},
	}
	out := ""
	for _, e := range names {
		if s.Has(e.f) {
			if out != "" {
				out += "|"
			}
			out += e.n
		}
	}
	if out == "" {
		return "none"
	}
	return out
}

// Tolerance configures when a waypoint counts as reached. A node is reached
// when the horizontal squared distance is below ReachXZSq and the vertical
// offset below Vertical, or when the unit would cover the horizontal
// distance within one tick. Intermediate, when positive, also accepts any
// node but the very last one within that horizontal distance.
type Tolerance struct {
	ReachXZSq    float64
	Vertical     float64
	Intermediate float64
}

// DefaultTolerance is the tight two-part rule with no intermediate slack.
func DefaultTolerance() Tolerance {
	return Tolerance{ReachXZSq: 0.01, Vertical: 1}
}

// CommandUnit is one unit's membership in a group: its path stack, the
// status reported by the last update and its fixed offset from the group
// centroid.
type CommandUnit struct {
	unit   Unit
	paths  path.Stack
	main   *path.Path
	status Status
	remove bool
	offset vmath.Vec3
}

// NewCommandUnit wraps u with an empty path stack.
func NewCommandUnit(u Unit) *CommandUnit {
	return &CommandUnit{unit: u, status: StatusNoPath}
}

// Unit returns the wrapped unit.
func (cu *CommandUnit) Unit() Unit { return cu.unit }

// Paths returns the unit's path stack. Detour logic pushes onto it.
func (cu *CommandUnit) Paths() *path.Stack { return &cu.paths }

// MainPath is the route most recently assigned by the group.
func (cu *CommandUnit) MainPath() *path.Path { return cu.main }

// Status is the result of the last Update.
func (cu *CommandUnit) Status() Status { return cu.status }

// Offset is the unit's offset from the group centroid at formation time.
func (cu *CommandUnit) Offset() vmath.Vec3 { return cu.offset }

// MarkForRemoval asks the owning group to drop the unit on its next update.
func (cu *CommandUnit) MarkForRemoval() { cu.remove = true }

// MarkedForRemoval reports whether MarkForRemoval was called.
func (cu *CommandUnit) MarkedForRemoval() bool { return cu.remove }

// CurrentPath is the path being followed, nil when idle.
func (cu *CommandUnit) CurrentPath() *path.Path { return cu.paths.Current() }

// NextNode is the waypoint the unit is heading for. ok is false when idle.
func (cu *CommandUnit) NextNode() (vmath.Vec3, bool) {
	p := cu.paths.Current()
	if p == nil {
		return vmath.Vec3{}, false
	}
	return p.NextNode(), true
}

// AssignPath replaces the whole stack with p as the new main path.
func (cu *CommandUnit) AssignPath(p *path.Path) {
	cu.paths.Reset(p)
	cu.main = p
}

// Update advances the unit along its current path by at most one waypoint
// and returns the resulting status flags. dt is the tick duration in seconds.
func (cu *CommandUnit) Update(dt float64, tol Tolerance) Status {
	cu.paths.ClearRecent()

	// Paths finished outside Update (a detour planner skipping a node) are
	// dropped first.
	if cu.popTraversed() && cu.paths.Empty() {
		cu.status = StatusAllPathsTraversed
		return cu.status
	}

	cur := cu.paths.Current()
	if cur == nil {
		cu.status = StatusNoPath
		return cu.status
	}

	if !cu.reached(cur, dt, tol) {
		cu.status = StatusTraversingPath
		return cu.status
	}

	cur.Increment()
	if !cur.Traversed() {
		cu.status = StatusTraversingPath | StatusNewPathNode
		return cu.status
	}
	cu.popTraversed()
	if cu.paths.Empty() {
		cu.status = StatusAllPathsTraversed
		return cu.status
	}
	cu.status = StatusTraversingPath | StatusNewPath
	return cu.status
}

func (cu *CommandUnit) reached(cur *path.Path, dt float64, tol Tolerance) bool {
	d := cur.NextNode().Sub(cu.unit.Position())
	xz := d.LenXZSq()
	if xz < tol.ReachXZSq && math.Abs(d.Y) < tol.Vertical {
		return true
	}
	step := cu.unit.Speed() * dt
	if xz < step*step {
		return true
	}
	if tol.Intermediate > 0 && !(cu.paths.IsFinal() && cur.IsLastNode()) {
		return xz < tol.Intermediate*tol.Intermediate
	}
	return false
}

// popTraversed pops every traversed path on top of the stack and reports
// whether anything was popped.
func (cu *CommandUnit) popTraversed() bool {
	popped := false
	for {
		cur := cu.paths.Current()
		if cur == nil || !cur.Traversed() {
			return popped
		}
		if err := cu.paths.Pop(); err != nil {
			return popped
		}
		popped = true
	}
}
