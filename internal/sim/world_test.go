package sim

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/Garsondee/Unit-Commander/internal/command"
	"github.com/Garsondee/Unit-Commander/internal/config"
	"github.com/Garsondee/Unit-Commander/internal/vmath"
)

// dumpLog prints the SimLog so it shows up in `go test -v` output.
func dumpLog(t *testing.T, w *World) {
	t.Helper()
	if w.SimLog().Len() == 0 {
		t.Log("(no log entries)")
		return
	}
	t.Log("\n" + w.SimLog().Format())
}

func mustWorld(t *testing.T, opts ...Option) *World {
	t.Helper()
	w, err := New(opts...)
	if err != nil {
		t.Fatalf("building world: %v", err)
	}
	t.Cleanup(w.Close)
	return w
}

func mustAgent(t *testing.T, w *World, label string) *Agent {
	t.Helper()
	a, ok := w.Agent(label)
	if !ok {
		t.Fatalf("no agent %q", label)
	}
	return a
}

func noGroups(w *World) bool { return len(w.Groups()) == 0 }

func TestWorld_GoToOpenField(t *testing.T) {
	w := mustWorld(t,
		WithMapSize(64, 32),
		WithSeed(42),
		WithAgent(AgentSpec{Label: "A", Team: TeamRed, Pos: vmath.V3(10, 0, 10), Speed: 5}),
		WithAgent(AgentSpec{Label: "B", Team: TeamRed, Pos: vmath.V3(12, 0, 10), Speed: 5}),
		WithGoTo(vmath.V3(50, 0, 10), "A", "B"),
	)

	if w.RunUntil(noGroups, 60*20) < 0 {
		dumpLog(t, w)
		t.Fatal("GoTo group should finish")
	}
	a, b := mustAgent(t, w, "A"), mustAgent(t, w, "B")
	if a.Position().DistXZ(vmath.V3(49, 0, 10)) > 0.2 || b.Position().DistXZ(vmath.V3(51, 0, 10)) > 0.2 {
		dumpLog(t, w)
		t.Fatalf("members should keep their centroid offsets, got A=%v B=%v", a.Position(), b.Position())
	}
	if a.GroupID() != "" || b.GroupID() != "" {
		t.Fatal("arrived members should be released")
	}
	if n := w.SimLog().CountCategory(CatUnit, "arrived"); n != 2 {
		t.Fatalf("expected 2 arrivals, got %d", n)
	}
	if !w.SimLog().HasEntry(CatGroup, "finished", "") {
		t.Fatal("group completion should be logged")
	}
}

func TestWorld_GoToRoutesAroundObstacle(t *testing.T) {
	wall := [4]float64{20, 0, 22, 30}
	w := mustWorld(t,
		WithMapSize(64, 40),
		WithObstacle(wall[0], wall[1], wall[2], wall[3]),
		WithAgent(AgentSpec{Label: "A", Pos: vmath.V3(10, 0, 10), Speed: 5}),
		WithGoTo(vmath.V3(30, 0, 10), "A"),
	)
	a := mustAgent(t, w, "A")

	for tick := 0; tick < 60*30 && !noGroups(w); tick++ {
		w.Step()
		p := a.Position()
		if p.X > wall[0] && p.X < wall[2] && p.Z > wall[1] && p.Z < wall[3] {
			dumpLog(t, w)
			t.Fatalf("tick %d: agent inside obstacle at %v", w.Tick(), p)
		}
	}
	if !noGroups(w) {
		dumpLog(t, w)
		t.Fatal("agent should reach the far side of the wall")
	}
	if a.Position().DistXZ(vmath.V3(30, 0, 10)) > 0.2 {
		t.Fatalf("agent should stop at the objective, got %v", a.Position())
	}
	if e, ok := w.SimLog().LastOf(CatRoute, "assigned"); !ok || e.NumVal < 3 {
		t.Fatalf("route should bend around the wall, got %+v", e)
	}
}

func TestWorld_DetourIsLoggedFromPushToRejoin(t *testing.T) {
	w := mustWorld(t,
		WithMapSize(64, 40),
		WithObstacle(20, 0, 22, 30),
		WithGroupOptions(command.WithRouter(command.StraightRouter)),
		WithAgent(AgentSpec{Label: "A", Pos: vmath.V3(10, 0, 10), Speed: 5}),
		WithGoTo(vmath.V3(30, 0, 10), "A"),
	)
	if w.RunUntil(noGroups, 60*30) < 0 {
		dumpLog(t, w)
		t.Fatal("agent should arrive after the detour")
	}
	if !w.SimLog().HasEntry(CatDetour, "pushed", "") {
		dumpLog(t, w)
		t.Fatal("a straight route through the wall should push a detour")
	}
	if e, ok := w.SimLog().LastOf(CatDetour, "rejoined"); !ok || e.Unit != "A" {
		dumpLog(t, w)
		t.Fatalf("the finished detour should be logged, got %+v", e)
	}
}

func TestWorld_UnroutableWaypointIsNotAnArrival(t *testing.T) {
	w := mustWorld(t,
		WithMapSize(64, 40),
		WithObstacle(20, 0, 22, 40),
		WithGroupOptions(command.WithRouter(command.StraightRouter)),
		WithAgent(AgentSpec{Label: "A", Pos: vmath.V3(10, 0, 10), Speed: 5}),
		WithGoTo(vmath.V3(30, 0, 10), "A"),
	)
	w.RunTicks(30)
	if n := w.SimLog().CountCategory(CatUnit, "arrived"); n != 0 {
		dumpLog(t, w)
		t.Fatalf("agent beyond a full-depth wall reported %d arrivals at %v", n, mustAgent(t, w, "A").Position())
	}
	if !w.SimLog().HasEntry(CatDetour, "skipped", "") {
		dumpLog(t, w)
		t.Fatal("the unroutable waypoint should be logged")
	}
	if len(w.Groups()) != 1 {
		t.Fatal("the GoTo group should still be running")
	}
}

func TestWorld_PatrolOscillates(t *testing.T) {
	w := mustWorld(t,
		WithMapSize(40, 20),
		WithAgent(AgentSpec{Label: "P", Pos: vmath.V3(10, 0, 10), Speed: 5}),
		WithPatrol(vmath.V3(20, 0, 10), "P"),
	)
	p := mustAgent(t, w, "P")

	maxX, returned := 0.0, false
	for i := 0; i < 60*6; i++ {
		w.Step()
		x := p.Position().X
		maxX = math.Max(maxX, x)
		if maxX > 19.9 && x < 10.1 {
			returned = true
		}
	}
	if maxX < 19.9 || !returned {
		dumpLog(t, w)
		t.Fatalf("patrol should reach the far end and come back, maxX=%.2f returned=%v", maxX, returned)
	}
	if len(w.Groups()) != 1 {
		t.Fatal("patrol group never finishes on its own")
	}
}

func TestWorld_FollowTrailsLeader(t *testing.T) {
	w := mustWorld(t,
		WithMapSize(64, 20),
		WithAgent(AgentSpec{Label: "L", Team: TeamBlue, Pos: vmath.V3(10, 0, 10), Speed: 3}),
		WithAgent(AgentSpec{Label: "F", Team: TeamBlue, Pos: vmath.V3(5, 0, 10), Speed: 5}),
		WithGoTo(vmath.V3(40, 0, 10), "L"),
		WithFollow("L", "F"),
	)
	leader, follower := mustAgent(t, w, "L"), mustAgent(t, w, "F")

	w.RunTicks(60 * 14)
	if leader.Position().DistXZ(vmath.V3(40, 0, 10)) > 0.2 {
		t.Fatalf("leader should have arrived, got %v", leader.Position())
	}
	if d := follower.Position().DistXZ(leader.Position()); d > 2.5 {
		dumpLog(t, w)
		t.Fatalf("follower should close to within follow distance, got %.2f", d)
	}
	if follower.GroupID() == "" {
		t.Fatal("follow group stays active while the leader exists")
	}
	if n := w.SimLog().CountCategory(CatRoute, "assigned"); n < 10 {
		t.Fatalf("moving leader should trigger repeated reroutes, got %d", n)
	}
}

func TestWorld_AttackKillsTargetAndDisbands(t *testing.T) {
	w := mustWorld(t,
		WithMapSize(64, 20),
		WithAgent(AgentSpec{Label: "A", Team: TeamRed, Pos: vmath.V3(10, 0, 10), Speed: 5, AttackRange: 2}),
		WithAgent(AgentSpec{Label: "T", Team: TeamBlue, Pos: vmath.V3(30, 0, 10), Speed: 1, Health: 50}),
		WithAttack("T", "A"),
	)
	attacker, target := mustAgent(t, w, "A"), mustAgent(t, w, "T")
	if attacker.AttackTarget() != target {
		t.Fatal("attack order should set the attacker's target")
	}

	if w.RunUntil(func(*World) bool { return !target.Alive() }, 60*20) < 0 {
		dumpLog(t, w)
		t.Fatal("target should die")
	}
	if d := attacker.Position().DistXZ(target.Position()); d > 2+1e-9 {
		t.Fatalf("attacker must be inside engagement range, got %.2f", d)
	}
	w.Step()

	if target.Valid() || w.Grid().Contains(target) {
		t.Fatal("dead agent should be removed from the world and the grid")
	}
	if !noGroups(w) {
		t.Fatal("attack group should be removed when its target dies")
	}
	if attacker.AttackTarget() != nil || attacker.GroupID() != "" {
		t.Fatal("attacker should be released with its target cleared")
	}
	if !w.SimLog().HasEntry(CatUnit, "killed", "by A") || !w.SimLog().HasEntry(CatGroup, "target_lost", "") {
		dumpLog(t, w)
		t.Fatal("kill and target loss should be logged")
	}
}

func TestWorld_ReassignmentMovesUnitBetweenGroups(t *testing.T) {
	w := mustWorld(t,
		WithAgent(AgentSpec{Label: "A", Pos: vmath.V3(10, 0, 10), Speed: 4}),
		WithAgent(AgentSpec{Label: "B", Pos: vmath.V3(12, 0, 10), Speed: 4}),
		WithGoTo(vmath.V3(60, 0, 10), "A", "B"),
	)
	w.RunTicks(10)
	first := w.Groups()[0]
	a := mustAgent(t, w, "A")

	patrol, err := w.CommandPatrol([]*Agent{a}, vmath.V3(10, 0, 40))
	if err != nil {
		t.Fatal(err)
	}
	w.Step()

	if first.Member(a) != nil || first.Len() != 1 {
		t.Fatal("old group should drop the reassigned agent")
	}
	if a.GroupID() != patrol.ID() || w.Member(a) != patrol.Member(a) {
		t.Fatal("agent should now be driven by the patrol group")
	}
	if !w.SimLog().HasEntry(CatUnit, "left", "reassigned") {
		dumpLog(t, w)
		t.Fatal("reassignment should be logged")
	}
}

func TestWorld_SeparationPushesOverlappingMembers(t *testing.T) {
	w := mustWorld(t,
		WithAgent(AgentSpec{Label: "A", Pos: vmath.V3(10, 0, 10), Speed: 3}),
		WithAgent(AgentSpec{Label: "B", Pos: vmath.V3(10.3, 0, 10), Speed: 3}),
		WithGoTo(vmath.V3(10.15, 0, 60), "A", "B"),
	)
	w.RunTicks(30)
	a, b := mustAgent(t, w, "A"), mustAgent(t, w, "B")
	if d := a.Position().DistXZ(b.Position()); d < 0.4 {
		t.Fatalf("overlapping members should be pushed apart, distance %.2f", d)
	}
}

func TestWorld_FormationFromConfig(t *testing.T) {
	cfg := config.Default().Sim
	cfg.Formation = "line"
	w := mustWorld(t,
		WithConfig(cfg),
		WithSeed(7),
		WithAgent(AgentSpec{Label: "A", Pos: vmath.V3(10, 0, 10), Speed: 5}),
		WithAgent(AgentSpec{Label: "B", Pos: vmath.V3(10, 0, 14), Speed: 5}),
		WithAgent(AgentSpec{Label: "C", Pos: vmath.V3(10, 0, 18), Speed: 5}),
		WithGoTo(vmath.V3(40, 0, 14), "A", "B", "C"),
	)
	cmd := w.Groups()[0].Commander().Unit().(*Agent)

	if w.RunUntil(noGroups, 60*20) < 0 {
		dumpLog(t, w)
		t.Fatal("formation group should finish")
	}
	if cmd.Position().DistXZ(vmath.V3(40, 0, 14)) > 0.2 {
		t.Fatalf("commander holds the formation anchor and should end on the objective, got %v", cmd.Position())
	}
}

func TestWorld_GroupOptionsApplyToOrders(t *testing.T) {
	w := mustWorld(t,
		WithGroupOptions(command.WithID("fixed-id"), command.WithCommanderPolicy(command.FirstCommander)),
		WithAgent(AgentSpec{Label: "A", Pos: vmath.V3(1, 0, 1), Speed: 1}),
		WithGoTo(vmath.V3(5, 0, 1), "A"),
	)
	if g := w.Groups()[0]; g.ID() != "fixed-id" {
		t.Fatalf("group option should reach the order, got id %q", g.ID())
	}
}

func TestNew_Errors(t *testing.T) {
	_, err := New(WithAgent(AgentSpec{Label: "A"}), WithGoTo(vmath.V3(1, 0, 1), "Z"))
	if !errors.Is(err, ErrUnknownAgent) {
		t.Fatalf("expected ErrUnknownAgent, got %v", err)
	}
	_, err = New(WithTickRate(0))
	if !errors.Is(err, config.ErrInvalid) {
		t.Fatalf("expected ErrInvalid, got %v", err)
	}
	_, err = New(WithAgent(AgentSpec{Label: "A"}), WithAgent(AgentSpec{Label: "A"}))
	if err == nil || !strings.Contains(err.Error(), "duplicate") {
		t.Fatalf("expected duplicate label error, got %v", err)
	}
	_, err = New(WithAgent(AgentSpec{Label: "A"}), WithFollow("A", "A"))
	if !errors.Is(err, command.ErrNoUnits) {
		t.Fatalf("agent cannot follow itself, got %v", err)
	}
}

func TestWorld_Summary(t *testing.T) {
	w := mustWorld(t,
		WithAgent(AgentSpec{Label: "R0", Team: TeamRed, Pos: vmath.V3(1, 0, 1), Speed: 1}),
		WithAgent(AgentSpec{Label: "B0", Team: TeamBlue, Pos: vmath.V3(9, 0, 9), Speed: 1}),
		WithPatrol(vmath.V3(5, 0, 1), "R0"),
	)
	w.RunTicks(5)
	s := w.Summary()
	for _, want := range []string{"T=005", "patrol=1", "commander=R0", "red=1", "blue=1", "idle=1"} {
		if !strings.Contains(s, want) {
			t.Fatalf("summary missing %q:\n%s", want, s)
		}
	}
}
