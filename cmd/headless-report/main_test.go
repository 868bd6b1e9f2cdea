package main

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/Garsondee/Unit-Commander/internal/report"
	"github.com/Garsondee/Unit-Commander/internal/scenario"
	"github.com/Garsondee/Unit-Commander/internal/sim"
	"github.com/Garsondee/Unit-Commander/internal/vmath"
)

func TestTeamSurvivalCounts(t *testing.T) {
	w, err := sim.New(
		sim.WithAgent(sim.AgentSpec{Label: "R0", Team: sim.TeamRed, Pos: vmath.V3(1, 0, 1), Speed: 1}),
		sim.WithAgent(sim.AgentSpec{Label: "R1", Team: sim.TeamRed, Pos: vmath.V3(3, 0, 1), Speed: 1}),
		sim.WithAgent(sim.AgentSpec{Label: "B0", Team: sim.TeamBlue, Pos: vmath.V3(5, 0, 1), Speed: 1}),
		sim.WithAgent(sim.AgentSpec{Label: "B1", Team: sim.TeamBlue, Pos: vmath.V3(7, 0, 1), Speed: 1}),
	)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()
	r1, _ := w.Agent("R1")
	r1.Kill()

	redTotal, blueTotal, redSurvivors, blueSurvivors := teamSurvivalCounts(w.Agents())
	if redTotal != 2 || blueTotal != 2 {
		t.Fatalf("expected totals red=2 blue=2, got red=%d blue=%d", redTotal, blueTotal)
	}
	if redSurvivors != 1 || blueSurvivors != 2 {
		t.Fatalf("expected survivors red=1 blue=2, got red=%d blue=%d", redSurvivors, blueSurvivors)
	}
}

func TestDetectGridlock_TrueWhenGoalUnreachable(t *testing.T) {
	rs := runStats{orders: 2, arrivals: 3, incomplete: 1}

	gridlock, reason := detectGridlock(rs)
	if !gridlock {
		t.Fatalf("expected gridlock=true, got false (reason=%s)", reason)
	}
	if !strings.Contains(reason, "unreachable_goals=1") {
		t.Fatalf("expected reason to mention unreachable_goals, got: %s", reason)
	}
}

func TestDetectGridlock_TrueOnDetourChurn(t *testing.T) {
	rs := runStats{orders: 2, arrivals: 1, detours: 60, skipped: 10}

	gridlock, reason := detectGridlock(rs)
	if !gridlock || !strings.Contains(reason, "detour_churn") {
		t.Fatalf("expected detour churn, got gridlock=%v reason=%s", gridlock, reason)
	}
}

func TestDetectGridlock_FalseWhenProgressing(t *testing.T) {
	rs := runStats{orders: 2, arrivals: 4, detours: 60, skipped: 10}

	gridlock, reason := detectGridlock(rs)
	if gridlock {
		t.Fatalf("expected gridlock=false when every order arrived (reason=%s)", reason)
	}
}

func TestRunTrace(t *testing.T) {
	cases := []struct {
		path      string
		run, runs int
		want      string
	}{
		{"", 1, 3, ""},
		{"out/t.jsonl.zst", 1, 1, "out/t.jsonl.zst"},
		{"out/t.jsonl.zst", 2, 3, "out/t-2.jsonl.zst"},
		{"out/t.zst", 3, 3, "out/t-3.zst"},
	}
	for _, c := range cases {
		if got := runTrace(c.path, c.run, c.runs); got != c.want {
			t.Errorf("runTrace(%q, %d, %d) = %q, want %q", c.path, c.run, c.runs, got, c.want)
		}
	}
}

func TestRunOnce_CrossingScenario(t *testing.T) {
	sc, err := scenario.Load(filepath.Join("..", "..", "scenarios", "crossing.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	sc.Ticks = 900

	dir := t.TempDir()
	store, err := report.OpenStore("", zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	trace := filepath.Join(dir, "run.jsonl.zst")
	rs, err := runOnce(sc, 1, 7, 0, trace, store, nil)
	if err != nil {
		t.Fatal(err)
	}
	if rs.ticks != 900 || rs.seed != 7 {
		t.Errorf("ran %d ticks with seed %d", rs.ticks, rs.seed)
	}
	if rs.orders < 3 || rs.routes == 0 {
		t.Errorf("expected orders and routes, got orders=%d routes=%d", rs.orders, rs.routes)
	}
	if rs.redTotal == 0 || rs.blueTotal == 0 {
		t.Errorf("team totals red=%d blue=%d", rs.redTotal, rs.blueTotal)
	}

	recs, err := report.ReadTrace(trace)
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) == 0 {
		t.Error("trace is empty")
	}
	runs, err := store.Runs()
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 || runs[0].Seed != 7 {
		t.Errorf("stored runs %+v", runs)
	}
}
