package command

import (
	"math"

	"github.com/Garsondee/Unit-Commander/internal/vmath"
)

// FormationType identifies the shape of a group formation.
type FormationType int

const (
	FormationNone    FormationType = iota // keep the offsets the units had when ordered
	FormationLine                         // side-by-side perpendicular to heading
	FormationWedge                        // V-shape, commander at point
	FormationColumn                       // single file behind commander
	FormationEchelon                      // diagonal line offset to one flank
)

// DefaultSlotSpacing is the world-unit gap between adjacent formation slots.
const DefaultSlotSpacing = 1.5

func (ft FormationType) String() string {
	switch ft {
	case FormationLine:
		return "line"
	case FormationWedge:
		return "wedge"
	case FormationColumn:
		return "column"
	case FormationEchelon:
		return "echelon"
	}
	return "none"
}

// ParseFormation maps a formation name to its type. Unknown names give
// FormationNone.
func ParseFormation(s string) FormationType {
	for _, ft := range []FormationType{FormationLine, FormationWedge, FormationColumn, FormationEchelon} {
		if ft.String() == s {
			return ft
		}
	}
	return FormationNone
}

// formationOffsets returns the local (forward, right) offsets for each slot
// in a formation of `count` members (slot 0 is the commander).
// Forward is along the movement direction; right is perpendicular to it.
func formationOffsets(ft FormationType, count int, spacing float64) [][2]float64 {
	offsets := make([][2]float64, count)
	if count == 0 {
		return offsets
	}

	switch ft {
	case FormationLine:
		// Spread symmetrically: ...-2,-1,0,+1,+2,...
		for i := 1; i < count; i++ {
			side := float64((i+1)/2) * spacing
			if i%2 == 1 {
				side = -side
			}
			offsets[i] = [2]float64{0, side}
		}

	case FormationWedge:
		for i := 1; i < count; i++ {
			depth := float64((i+1)/2) * spacing
			side := depth
			if i%2 == 1 {
				side = -side
			}
			offsets[i] = [2]float64{-depth, side}
		}

	case FormationColumn:
		for i := 1; i < count; i++ {
			offsets[i] = [2]float64{-float64(i) * spacing, 0}
		}

	case FormationEchelon:
		for i := 1; i < count; i++ {
			offsets[i] = [2]float64{-float64(i) * spacing * 0.7, float64(i) * spacing * 0.7}
		}
	}
	return offsets
}

// slotOffset converts a local (forward, right) offset into a world-space
// XZ offset for a formation facing heading.
func slotOffset(heading, fwd, right float64) vmath.Vec3 {
	fx, fz := math.Cos(heading), math.Sin(heading)
	rx, rz := -fz, fx
	return vmath.Vec3{X: fx*fwd + rx*right, Z: fz*fwd + rz*right}
}
