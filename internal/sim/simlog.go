package sim

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/Garsondee/Unit-Commander/internal/command"
)

// SimLog categories.
const (
	CatOrder  = "order"
	CatGroup  = "group"
	CatPath   = "path"
	CatRoute  = "route"
	CatDetour = "detour"
	CatUnit   = "unit"
	CatMove   = "move"
)

// SimLogEntry is one recorded simulation event.
type SimLogEntry struct {
	Tick     int
	Unit     string  // agent label, or "--" for group-level events
	Team     string  // "red", "blue", or "--"
	Group    string  // short group id, or "--"
	Category string  // order, group, path, route, detour, unit, move
	Key      string  // event name within the category
	Value    string  // human-readable detail
	NumVal   float64 // optional numeric value for threshold checks
}

// String formats the entry as a fixed-width log line.
//
//	[T=042] R0   path      new_node         (12.0, 0.0, 4.5)
func (e SimLogEntry) String() string {
	return fmt.Sprintf("[T=%03d] %-4s %-9s %-16s %s",
		e.Tick, e.Unit, e.Category, e.Key, e.Value)
}

// SimLog collects structured events in tick order. It is unbounded and
// machine-readable, unlike the viewer's ring buffer.
type SimLog struct {
	entries []SimLogEntry
	verbose bool
	sink    func(SimLogEntry)
}

// NewSimLog creates a SimLog. Verbose also records per-tick movement.
func NewSimLog(verbose bool) *SimLog {
	return &SimLog{verbose: verbose}
}

// SetSink registers fn to receive every entry as it is added.
func (sl *SimLog) SetSink(fn func(SimLogEntry)) { sl.sink = fn }

// Add records a new entry.
func (sl *SimLog) Add(e SimLogEntry) {
	sl.entries = append(sl.entries, e)
	if sl.sink != nil {
		sl.sink(e)
	}
}

// AddVerbose records an entry only when verbose mode is on.
func (sl *SimLog) AddVerbose(e SimLogEntry) {
	if !sl.verbose {
		return
	}
	sl.Add(e)
}

// Entries returns all recorded entries.
func (sl *SimLog) Entries() []SimLogEntry { return sl.entries }

// Len is the number of recorded entries.
func (sl *SimLog) Len() int { return len(sl.entries) }

// Filter returns entries matching the given category and/or key.
// Pass "" to match any value for that field.
func (sl *SimLog) Filter(category, key string) []SimLogEntry {
	var out []SimLogEntry
	for _, e := range sl.entries {
		if category != "" && e.Category != category {
			continue
		}
		if key != "" && e.Key != key {
			continue
		}
		out = append(out, e)
	}
	return out
}

// FilterUnit returns entries for one agent label.
func (sl *SimLog) FilterUnit(label string) []SimLogEntry {
	var out []SimLogEntry
	for _, e := range sl.entries {
		if e.Unit == label {
			out = append(out, e)
		}
	}
	return out
}

// FilterTickRange returns entries within [fromTick, toTick].
func (sl *SimLog) FilterTickRange(fromTick, toTick int) []SimLogEntry {
	var out []SimLogEntry
	for _, e := range sl.entries {
		if e.Tick >= fromTick && e.Tick <= toTick {
			out = append(out, e)
		}
	}
	return out
}

// CountCategory returns how many entries match category and key.
func (sl *SimLog) CountCategory(category, key string) int {
	return len(sl.Filter(category, key))
}

// LastOf returns the most recent entry matching category and key.
func (sl *SimLog) LastOf(category, key string) (SimLogEntry, bool) {
	for i := len(sl.entries) - 1; i >= 0; i-- {
		e := sl.entries[i]
		if (category == "" || e.Category == category) && (key == "" || e.Key == key) {
			return e, true
		}
	}
	return SimLogEntry{}, false
}

// HasEntry reports whether an entry matches category, key and a value substring.
func (sl *SimLog) HasEntry(category, key, valueSubstr string) bool {
	for _, e := range sl.entries {
		if category != "" && e.Category != category {
			continue
		}
		if key != "" && e.Key != key {
			continue
		}
		if valueSubstr != "" && !strings.Contains(e.Value, valueSubstr) {
			continue
		}
		return true
	}
	return false
}

// Format returns the full log, one line per entry.
func (sl *SimLog) Format() string {
	return formatEntries(sl.entries)
}

// FormatRange returns the log restricted to a tick range.
func (sl *SimLog) FormatRange(fromTick, toTick int) string {
	return formatEntries(sl.FilterTickRange(fromTick, toTick))
}

func formatEntries(es []SimLogEntry) string {
	var sb strings.Builder
	for _, e := range es {
		sb.WriteString(e.String())
		sb.WriteByte('\n')
	}
	return sb.String()
}

// Summary returns a short human-readable account of the world state.
func (sl *SimLog) Summary(tick int, agents []*Agent, groups []*command.Group) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "--- Summary at T=%03d ---\n", tick)

	kinds := map[command.Kind]int{}
	for _, g := range groups {
		kinds[g.Kind()]++
	}
	sb.WriteString("Groups: ")
	if len(groups) == 0 {
		sb.WriteString("none")
	}
	for _, k := range []command.Kind{command.KindGoTo, command.KindPatrol, command.KindFollow, command.KindAttack} {
		if n := kinds[k]; n > 0 {
			fmt.Fprintf(&sb, "%s=%d  ", k, n)
		}
	}
	sb.WriteByte('\n')

	for _, g := range groups {
		cmd := "--"
		if c := g.Commander(); c != nil {
			if a, ok := c.Unit().(*Agent); ok {
				cmd = a.label
			}
		}
		fmt.Fprintf(&sb, "%s %s: members=%d commander=%s spread=%.1f\n",
			shortID(g.ID()), g.Kind(), g.Len(), cmd, groupSpread(g))
	}

	alive := map[Team]int{}
	idle := 0
	for _, a := range agents {
		if a.alive {
			alive[a.team]++
		}
		if a.groupID == "" && a.alive {
			idle++
		}
	}
	teams := make([]string, 0, len(alive))
	for t := range alive {
		teams = append(teams, string(t))
	}
	sort.Strings(teams)
	sb.WriteString("Alive:")
	for _, t := range teams {
		fmt.Fprintf(&sb, " %s=%d", t, alive[Team(t)])
	}
	fmt.Fprintf(&sb, "  idle=%d\n", idle)

	fmt.Fprintf(&sb, "Arrivals: %d  Detours: %d  Incomplete routes: %d\n",
		sl.CountCategory(CatUnit, "arrived"),
		sl.CountCategory(CatDetour, "pushed"),
		sl.CountCategory(CatRoute, "incomplete"))
	return sb.String()
}

// groupSpread is the largest member distance from the group centroid.
func groupSpread(g *command.Group) float64 {
	members := g.Members()
	if len(members) == 0 {
		return 0
	}
	var cx, cz float64
	for _, m := range members {
		p := m.Unit().Position()
		cx += p.X
		cz += p.Z
	}
	n := float64(len(members))
	cx, cz = cx/n, cz/n
	var spread float64
	for _, m := range members {
		p := m.Unit().Position()
		dx, dz := p.X-cx, p.Z-cz
		if d := dx*dx + dz*dz; d > spread {
			spread = d
		}
	}
	return math.Sqrt(spread)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
