package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/Garsondee/Unit-Commander/internal/config"
	"github.com/Garsondee/Unit-Commander/internal/report"
	"github.com/Garsondee/Unit-Commander/internal/scenario"
	"github.com/Garsondee/Unit-Commander/internal/sim"
)

type runStats struct {
	runIndex int
	seed     int64
	ticks    int

	firstArrivalTick    int
	firstDetourTick     int
	firstIncompleteTick int
	firstKillTick       int
	lastFinishTick      int

	orders      int
	routes      int
	arrivals    int
	detours     int
	skipped     int
	incomplete  int
	kills       int
	targetsLost int
	leftBy      map[string]int

	redTotal, blueTotal         int
	redSurvivors, blueSurvivors int

	summary string
}

func main() {
	var runs int
	var ticks int
	var seedBase int64
	var seedStep int64
	var scenarioPath string
	var configDir string
	var tracePath string
	var dbPath string
	var verbose bool

	flag.IntVar(&runs, "runs", 5, "number of headless simulation runs")
	flag.IntVar(&ticks, "ticks", 3600, "ticks per run when the scenario sets none")
	flag.Int64Var(&seedBase, "seed-base", 0, "base RNG seed for run 1 (0 uses the scenario seed)")
	flag.Int64Var(&seedStep, "seed-step", 1, "seed increment between runs")
	flag.StringVar(&scenarioPath, "scenario", "scenarios/crossing.yaml", "scenario file")
	flag.StringVar(&configDir, "config", ".", "directory holding unitcommander.yaml")
	flag.StringVar(&tracePath, "trace", "", "write a zstd JSONL trace per run (overrides report.tracePath)")
	flag.StringVar(&dbPath, "db", "", "store run summaries in this SQLite file (overrides report.dbPath)")
	flag.BoolVar(&verbose, "v", false, "log per-tick movement")
	flag.Parse()

	if runs <= 0 {
		fmt.Println("error: -runs must be > 0")
		return
	}
	if ticks <= 0 {
		fmt.Println("error: -ticks must be > 0")
		return
	}

	cfg, err := config.Load(configDir)
	if err != nil {
		fmt.Printf("error: %v\n", err)
		os.Exit(1)
	}
	log := newLogger(cfg.LogLevel)
	if tracePath == "" {
		tracePath = cfg.Report.TracePath
	}
	if dbPath == "" {
		dbPath = cfg.Report.DBPath
	}

	sc, err := scenario.Load(scenarioPath)
	if err != nil {
		log.Fatal().Err(err).Str("scenario", scenarioPath).Msg("failed to load scenario")
	}
	if seedBase == 0 {
		seedBase = sc.Seed
	}

	var store *report.Store
	if dbPath != "" {
		store, err = report.OpenStore(dbPath, log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to open run store")
		}
		defer store.Close()
	}

	fmt.Printf("=== Headless Command Report ===\n")
	fmt.Printf("scenario=%s runs=%d ticks=%d seed_base=%d seed_step=%d\n\n", sc.Name, runs, ticks, seedBase, seedStep)

	all := make([]runStats, 0, runs)
	for i := 0; i < runs; i++ {
		seed := seedBase + int64(i)*seedStep
		opts := []sim.Option{
			sim.WithConfig(cfg.Sim),
			sim.WithLogger(log),
			sim.WithVerbose(verbose),
		}
		rs, err := runOnce(sc, i+1, seed, ticks, runTrace(tracePath, i+1, runs), store, opts)
		if err != nil {
			log.Error().Err(err).Int("run", i+1).Int64("seed", seed).Msg("run failed")
			continue
		}
		all = append(all, rs)
		printRun(rs)
	}

	printAggregate(all)
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}).
		Level(lvl).With().Timestamp().Logger()
}

// runTrace numbers the trace file per run when more than one run is made.
func runTrace(path string, run, runs int) string {
	if path == "" || runs == 1 {
		return path
	}
	ext := filepath.Ext(path)
	base := strings.TrimSuffix(path, ext)
	if inner := filepath.Ext(base); inner == ".jsonl" {
		ext = inner + ext
		base = strings.TrimSuffix(base, inner)
	}
	return fmt.Sprintf("%s-%d%s", base, run, ext)
}

func runOnce(sc *scenario.Scenario, runIndex int, seed int64, ticks int, tracePath string, store *report.Store, opts []sim.Option) (runStats, error) {
	seeded := *sc
	seeded.Seed = seed
	w, err := seeded.Build(opts...)
	if err != nil {
		return runStats{}, err
	}
	defer w.Close()

	var tw *report.TraceWriter
	if tracePath != "" {
		if tw, err = report.NewTraceWriter(tracePath); err != nil {
			return runStats{}, err
		}
		w.SimLog().SetSink(tw.WriteEntry)
	}

	n := sc.Ticks
	if n <= 0 {
		n = ticks
	}
	for i := 0; i < n; i++ {
		w.Step()
		if err := seeded.Apply(w); err != nil {
			return runStats{}, err
		}
	}

	if tw != nil {
		if err := tw.Close(); err != nil {
			return runStats{}, fmt.Errorf("closing trace: %w", err)
		}
	}
	if store != nil {
		if _, err := store.SaveRun(w, sc.Name, seed); err != nil {
			return runStats{}, err
		}
	}
	return collectStats(runIndex, seed, w), nil
}

func collectStats(runIndex int, seed int64, w *sim.World) runStats {
	sl := w.SimLog()
	entries := sl.Entries()
	rs := runStats{
		runIndex:            runIndex,
		seed:                seed,
		ticks:               w.Tick(),
		firstArrivalTick:    firstTick(entries, sim.CatUnit, "arrived", ""),
		firstDetourTick:     firstTick(entries, sim.CatDetour, "pushed", ""),
		firstIncompleteTick: firstTick(entries, sim.CatRoute, "incomplete", ""),
		firstKillTick:       firstTick(entries, sim.CatUnit, "killed", ""),
		lastFinishTick:      -1,
		routes:              sl.CountCategory(sim.CatRoute, "assigned"),
		arrivals:            sl.CountCategory(sim.CatUnit, "arrived"),
		detours:             sl.CountCategory(sim.CatDetour, "pushed"),
		skipped:             sl.CountCategory(sim.CatDetour, "skipped"),
		incomplete:          sl.CountCategory(sim.CatRoute, "incomplete"),
		kills:               sl.CountCategory(sim.CatUnit, "killed"),
		targetsLost:         sl.CountCategory(sim.CatGroup, "target_lost"),
		leftBy:              map[string]int{},
		summary:             w.Summary(),
	}
	if e, ok := sl.LastOf(sim.CatGroup, "finished"); ok {
		rs.lastFinishTick = e.Tick
	}
	for _, e := range entries {
		switch {
		case e.Category == sim.CatOrder:
			rs.orders++
		case e.Category == sim.CatUnit && e.Key == "left":
			rs.leftBy[e.Value]++
		}
	}
	rs.redTotal, rs.blueTotal, rs.redSurvivors, rs.blueSurvivors = teamSurvivalCounts(w.Agents())
	return rs
}

func firstTick(entries []sim.SimLogEntry, category, key, contains string) int {
	for _, e := range entries {
		if e.Category != category || e.Key != key {
			continue
		}
		if contains == "" || strings.Contains(e.Value, contains) {
			return e.Tick
		}
	}
	return -1
}

func teamSurvivalCounts(agents []*sim.Agent) (redTotal, blueTotal, redSurvivors, blueSurvivors int) {
	for _, a := range agents {
		switch a.Team() {
		case sim.TeamRed:
			redTotal++
			if a.Alive() {
				redSurvivors++
			}
		case sim.TeamBlue:
			blueTotal++
			if a.Alive() {
				blueSurvivors++
			}
		}
	}
	return
}

// detectGridlock flags runs where groups spent the run re-routing instead
// of making progress.
func detectGridlock(rs runStats) (bool, string) {
	var reasons []string
	if rs.incomplete > 0 {
		reasons = append(reasons, fmt.Sprintf("unreachable_goals=%d", rs.incomplete))
	}
	if rs.orders > 0 && rs.detours >= 20*rs.orders && rs.arrivals < rs.orders {
		reasons = append(reasons, fmt.Sprintf("detour_churn=%d/%d_orders", rs.detours, rs.orders))
	}
	if rs.skipped > rs.detours && rs.detours > 0 {
		reasons = append(reasons, "detours_mostly_skipped")
	}
	if len(reasons) == 0 {
		return false, "progressing"
	}
	return true, strings.Join(reasons, ",")
}

func printRun(rs runStats) {
	fmt.Printf("--- Run %d (seed=%d ticks=%d) ---\n", rs.runIndex, rs.seed, rs.ticks)
	fmt.Printf("phase_markers: first_arrival=%d first_detour=%d first_incomplete=%d first_kill=%d last_finish=%d\n",
		rs.firstArrivalTick, rs.firstDetourTick, rs.firstIncompleteTick, rs.firstKillTick, rs.lastFinishTick)
	fmt.Printf("event_totals: orders=%d routes=%d arrivals=%d detours=%d skipped=%d incomplete=%d kills=%d target_lost=%d\n",
		rs.orders, rs.routes, rs.arrivals, rs.detours, rs.skipped, rs.incomplete, rs.kills, rs.targetsLost)
	fmt.Printf("departures: %s\n", joinCounts(rs.leftBy))
	fmt.Printf("survival: red=%d/%d blue=%d/%d\n", rs.redSurvivors, rs.redTotal, rs.blueSurvivors, rs.blueTotal)
	gridlock, reason := detectGridlock(rs)
	fmt.Printf("gridlock=%v (%s)\n", gridlock, reason)
	fmt.Print(rs.summary)
	fmt.Println()
}

func printAggregate(all []runStats) {
	if len(all) == 0 {
		fmt.Println("no completed runs")
		return
	}
	var totalArrivals, totalDetours, totalIncomplete, totalKills, totalRoutes int
	var redSurv, redTotal, blueSurv, blueTotal int
	arrivalTicks := make([]int, 0, len(all))
	killTicks := make([]int, 0, len(all))
	finishTicks := make([]int, 0, len(all))
	gridlocked := 0
	departures := map[string]int{}

	for _, rs := range all {
		totalArrivals += rs.arrivals
		totalDetours += rs.detours
		totalIncomplete += rs.incomplete
		totalKills += rs.kills
		totalRoutes += rs.routes
		redSurv += rs.redSurvivors
		redTotal += rs.redTotal
		blueSurv += rs.blueSurvivors
		blueTotal += rs.blueTotal
		if rs.firstArrivalTick >= 0 {
			arrivalTicks = append(arrivalTicks, rs.firstArrivalTick)
		}
		if rs.firstKillTick >= 0 {
			killTicks = append(killTicks, rs.firstKillTick)
		}
		if rs.lastFinishTick >= 0 {
			finishTicks = append(finishTicks, rs.lastFinishTick)
		}
		if g, _ := detectGridlock(rs); g {
			gridlocked++
		}
		for k, v := range rs.leftBy {
			departures[k] += v
		}
	}

	n := len(all)
	fmt.Println("=== Aggregate ===")
	fmt.Printf("runs=%d gridlocked=%d\n", n, gridlocked)
	fmt.Printf("avg_events_per_run: routes=%.1f arrivals=%.1f detours=%.1f incomplete=%.1f kills=%.1f\n",
		avg(totalRoutes, n), avg(totalArrivals, n), avg(totalDetours, n), avg(totalIncomplete, n), avg(totalKills, n))
	fmt.Printf("phase_marker_avg_ticks: first_arrival=%s first_kill=%s last_finish=%s\n",
		avgTickString(arrivalTicks), avgTickString(killTicks), avgTickString(finishTicks))
	fmt.Printf("survival_rate: red=%.0f%% blue=%.0f%%\n", pct(redSurv, redTotal), pct(blueSurv, blueTotal))
	fmt.Printf("departures: %s\n", joinCounts(departures))
}

func avg(sum int, n int) float64 {
	if n <= 0 {
		return 0
	}
	return float64(sum) / float64(n)
}

func pct(part, whole int) float64 { return avg(part*100, whole) }

func avgTickString(vals []int) string {
	if len(vals) == 0 {
		return "n/a"
	}
	sum := 0
	for _, v := range vals {
		sum += v
	}
	return fmt.Sprintf("%.1f", float64(sum)/float64(len(vals)))
}

func joinCounts(m map[string]int) string {
	if len(m) == 0 {
		return "none"
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%d", k, m[k])
	}
	return strings.Join(parts, " ")
}
