package path

import (
	"errors"

	"github.com/Garsondee/Unit-Commander/internal/vmath"
)

var (
	// ErrEmptyStack is returned when popping a stack with no paths.
	ErrEmptyStack = errors.New("path: stack is empty")
	// ErrNotTraversed is returned when popping a path that still has
	// waypoints left.
	ErrNotTraversed = errors.New("path: current path not traversed")
)

// Stack is a unit's main route with detours pushed on top of it. The last
// path is the one being followed.
type Stack struct {
	paths  []*Path
	recent []*Path
}

// Push puts p on top of the stack.
func (s *Stack) Push(p *Path) { s.paths = append(s.paths, p) }

// PushNodes builds a detour from nodes and pushes it. An empty node list is
// rejected.
func (s *Stack) PushNodes(nodes []vmath.Vec3) error {
	p, err := New(nodes)
	if err != nil {
		return err
	}
	s.Push(p)
	return nil
}

// Pop removes the current path, which must be traversed. The popped path
// is kept in Recent until ClearRecent.
func (s *Stack) Pop() error {
	n := len(s.paths)
	if n == 0 {
		return ErrEmptyStack
	}
	top := s.paths[n-1]
	if !top.Traversed() {
		return ErrNotTraversed
	}
	s.paths[n-1] = nil
	s.paths = s.paths[:n-1]
	s.recent = append(s.recent, top)
	return nil
}

// Clear drops every path. Dropped paths are kept in Recent.
func (s *Stack) Clear() {
	s.recent = append(s.recent, s.paths...)
	clear(s.paths)
	s.paths = s.paths[:0]
}

// Reset replaces every path with main.
func (s *Stack) Reset(main *Path) {
	s.Clear()
	s.Push(main)
}

// Current is the path being followed, nil if the stack is empty.
func (s *Stack) Current() *Path {
	if len(s.paths) == 0 {
		return nil
	}
	return s.paths[len(s.paths)-1]
}

// Main is the bottom path, nil if the stack is empty.
func (s *Stack) Main() *Path {
	if len(s.paths) == 0 {
		return nil
	}
	return s.paths[0]
}

// IsMain reports whether the current path is the bottom one.
func (s *Stack) IsMain() bool { return len(s.paths) == 1 }

// IsFinal reports whether every path beneath the current one is traversed,
// so the current path ends the whole route.
func (s *Stack) IsFinal() bool {
	for i := len(s.paths) - 2; i >= 0; i-- {
		if !s.paths[i].Traversed() {
			return false
		}
	}
	return true
}

// Len is the number of stacked paths.
func (s *Stack) Len() int { return len(s.paths) }

// Empty reports whether there is nothing to follow.
func (s *Stack) Empty() bool { return len(s.paths) == 0 }

// Recent returns a copy of the paths popped or cleared since the last
// ClearRecent.
func (s *Stack) Recent() []*Path {
	if len(s.recent) == 0 {
		return nil
	}
	out := make([]*Path, len(s.recent))
	copy(out, s.recent)
	return out
}

// ClearRecent forgets popped paths.
func (s *Stack) ClearRecent() {
	clear(s.recent)
	s.recent = s.recent[:0]
}
