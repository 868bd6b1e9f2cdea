package command

import (
	"sync"

	"github.com/Garsondee/Unit-Commander/internal/vmath"
)

// EventKind identifies a group event.
type EventKind int

const (
	// EventNewPathNode: a member reached a waypoint; Node is that waypoint.
	EventNewPathNode EventKind = iota
	// EventNewPath: a member finished a detour and resumed the path beneath;
	// Node is the last waypoint of the finished path.
	EventNewPath
	// EventPathsTraversed: a member finished its last path.
	EventPathsTraversed
	// EventRouteAssigned: the commander route was recomputed and every
	// member received a fresh main path.
	EventRouteAssigned
	// EventRouteIncomplete: the router could not produce a route this tick.
	EventRouteIncomplete
	// EventUnitRemoving: a member is about to leave the group.
	EventUnitRemoving
	// EventTargetLost: a Follow or Attack target disappeared.
	EventTargetLost
	// EventGroupFinished: the last member left the group.
	EventGroupFinished
)

func (k EventKind) String() string {
	switch k {
	case EventNewPathNode:
		return "new_path_node"
	case EventNewPath:
		return "new_path"
	case EventPathsTraversed:
		return "paths_traversed"
	case EventRouteAssigned:
		return "route_assigned"
	case EventRouteIncomplete:
		return "route_incomplete"
	case EventUnitRemoving:
		return "unit_removing"
	case EventTargetLost:
		return "target_lost"
	case EventGroupFinished:
		return "group_finished"
	}
	return "unknown"
}

// RemovalReason says why a member left its group.
type RemovalReason int

const (
	ReasonNone RemovalReason = iota
	// ReasonReassigned: the unit's group id points elsewhere.
	ReasonReassigned
	// ReasonInvalid: the unit no longer exists.
	ReasonInvalid
	// ReasonMarked: MarkForRemoval was called.
	ReasonMarked
	// ReasonArrived: a GoTo member reached the destination.
	ReasonArrived
	// ReasonDisbanded: the group was torn down.
	ReasonDisbanded
)

func (r RemovalReason) String() string {
	switch r {
	case ReasonReassigned:
		return "reassigned"
	case ReasonInvalid:
		return "invalid"
	case ReasonMarked:
		return "marked"
	case ReasonArrived:
		return "arrived"
	case ReasonDisbanded:
		return "disbanded"
	}
	return "none"
}

// Event is one notification from a group. Member is nil for group-wide
// events.
type Event struct {
	Kind   EventKind
	Group  *Group
	Member *CommandUnit
	Node   vmath.Vec3
	Reason RemovalReason
}

// Listener receives group events synchronously on the tick goroutine.
type Listener func(Event)

// listeners is a subscriber list. Subscription may happen from any
// goroutine; dispatch always runs on the caller of emit.
type listeners struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]Listener
	order  []int
}

func (l *listeners) add(fn Listener) func() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.subs == nil {
		l.subs = make(map[int]Listener)
	}
	id := l.nextID
	l.nextID++
	l.subs[id] = fn
	l.order = append(l.order, id)
	return func() { l.remove(id) }
}

func (l *listeners) remove(id int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.subs[id]; !ok {
		return
	}
	delete(l.subs, id)
	for i, o := range l.order {
		if o == id {
			l.order = append(l.order[:i], l.order[i+1:]...)
			break
		}
	}
}

// snapshot returns the current subscribers in subscription order.
func (l *listeners) snapshot() []Listener {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Listener, 0, len(l.order))
	for _, id := range l.order {
		out = append(out, l.subs[id])
	}
	return out
}
