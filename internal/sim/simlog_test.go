package sim

import (
	"strings"
	"testing"
)

func TestSimLog_FilterAndLastOf(t *testing.T) {
	sl := NewSimLog(false)
	sl.Add(SimLogEntry{Tick: 1, Unit: "R0", Category: CatPath, Key: "new_node", Value: "(1.0, 0.0, 0.0)"})
	sl.Add(SimLogEntry{Tick: 2, Unit: "R1", Category: CatPath, Key: "new_node", Value: "(2.0, 0.0, 0.0)"})
	sl.Add(SimLogEntry{Tick: 3, Unit: "R0", Category: CatUnit, Key: "arrived"})
	sl.AddVerbose(SimLogEntry{Tick: 3, Unit: "R0", Category: CatMove, Key: "position"})

	if sl.Len() != 3 {
		t.Fatalf("verbose entries must be dropped when verbose is off, got %d", sl.Len())
	}
	if n := sl.CountCategory(CatPath, ""); n != 2 {
		t.Fatalf("expected 2 path entries, got %d", n)
	}
	if n := len(sl.FilterUnit("R0")); n != 2 {
		t.Fatalf("expected 2 entries for R0, got %d", n)
	}
	e, ok := sl.LastOf(CatPath, "new_node")
	if !ok || e.Unit != "R1" {
		t.Fatalf("LastOf should return the latest match, got %+v", e)
	}
	if _, ok := sl.LastOf(CatRoute, ""); ok {
		t.Fatal("LastOf on an absent category should report false")
	}
	if !sl.HasEntry(CatPath, "", "2.0") || sl.HasEntry(CatPath, "", "9.0") {
		t.Fatal("HasEntry should match on value substrings")
	}
	if got := strings.Count(sl.FormatRange(2, 3), "\n"); got != 2 {
		t.Fatalf("FormatRange should include ticks 2..3, got %d lines", got)
	}
}

func TestSimLog_SinkSeesEveryEntry(t *testing.T) {
	sl := NewSimLog(true)
	var seen []string
	sl.SetSink(func(e SimLogEntry) { seen = append(seen, e.Key) })
	sl.Add(SimLogEntry{Key: "a"})
	sl.AddVerbose(SimLogEntry{Key: "b"})
	if strings.Join(seen, ",") != "a,b" {
		t.Fatalf("sink should receive entries in order, got %v", seen)
	}
}

func TestSimLogEntry_String(t *testing.T) {
	e := SimLogEntry{Tick: 42, Unit: "R0", Category: "path", Key: "new_node", Value: "(12.0, 0.0, 4.5)"}
	want := "[T=042] R0   path      new_node         (12.0, 0.0, 4.5)"
	if e.String() != want {
		t.Fatalf("got %q, want %q", e.String(), want)
	}
}
