package spatial

import "math"

// EdgeTraverser walks a 2D segment across a unit grid (supercover DDA) and
// yields the parameter span the segment spends in each cell it crosses.
// Spans are contiguous and cover [0, 1]. When the segment crosses a column
// line and a row line at the same parameter the column step is taken first,
// which leaves a zero-length span for the diagonal neighbour; callers drop
// those.
type EdgeTraverser struct {
	cx, cz       int
	stepX, stepZ int

	tMaxX, tMaxZ     float64
	tDeltaX, tDeltaZ float64

	t    float64
	done bool
}

// NewEdgeTraverser creates a traverser from (x1, z1) to (x2, z2).
func NewEdgeTraverser(x1, z1, x2, z2 float64) EdgeTraverser {
	t := EdgeTraverser{
		cx: int(math.Floor(x1)),
		cz: int(math.Floor(z1)),
	}
	t.stepX, t.tMaxX, t.tDeltaX = axisSetup(x1, x2-x1)
	t.stepZ, t.tMaxZ, t.tDeltaZ = axisSetup(z1, z2-z1)
	return t
}

// axisSetup returns the step direction, the parameter of the first line
// crossing, and the parameter distance between crossings on one axis.
func axisSetup(p, d float64) (step int, tMax, tDelta float64) {
	switch {
	case d > 0:
		tDelta = 1 / d
		return 1, (math.Floor(p) + 1 - p) * tDelta, tDelta
	case d < 0:
		tDelta = -1 / d
		return -1, (p - math.Floor(p)) * tDelta, tDelta
	default:
		return 0, math.Inf(1), math.Inf(1)
	}
}

// Next returns the cell the traverser is in and the span [t0, t1] of the
// segment inside it. ok is false once the whole segment has been walked.
func (t *EdgeTraverser) Next() (cx, cz int, t0, t1 float64, ok bool) {
	if t.done {
		return 0, 0, 0, 0, false
	}
	cx, cz, t0 = t.cx, t.cz, t.t

	// Moving in the negative direction, a start point exactly on a line
	// belongs to the lower cell, so the first crossing has t == 0.
	if t.tMaxX <= t.tMaxZ {
		t1 = t.tMaxX
		t.cx += t.stepX
		t.tMaxX += t.tDeltaX
	} else {
		t1 = t.tMaxZ
		t.cz += t.stepZ
		t.tMaxZ += t.tDeltaZ
	}
	if t1 >= 1 {
		t1 = 1
		t.done = true
	}
	t.t = t1
	return cx, cz, t0, t1, true
}
