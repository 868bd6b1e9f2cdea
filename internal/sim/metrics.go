package sim

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/Garsondee/Unit-Commander/internal/command"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/Garsondee/Unit-Commander/internal/sim"

// metrics are recorded against the global OTel meter provider, which is a
// no-op until one is installed.
type metrics struct {
	ticks        metric.Int64Counter
	incomplete   metric.Int64Counter
	detours      metric.Int64Counter
	arrivals     metric.Int64Counter
	tickDuration metric.Float64Histogram
	activeGroups metric.Int64ObservableGauge
	reg          metric.Registration

	// active holds the group count per command.Kind as of the last Step.
	active [4]atomic.Int64
}

func newMetrics() (*metrics, error) {
	m := otel.Meter(meterName)
	out := &metrics{}
	var err error

	out.ticks, err = m.Int64Counter("sim.ticks",
		metric.WithDescription("Simulation ticks executed"))
	if err != nil {
		return nil, fmt.Errorf("creating ticks counter: %w", err)
	}
	out.incomplete, err = m.Int64Counter("sim.routes.incomplete",
		metric.WithDescription("Group routes that could not reach the objective"))
	if err != nil {
		return nil, fmt.Errorf("creating incomplete route counter: %w", err)
	}
	out.detours, err = m.Int64Counter("sim.detours",
		metric.WithDescription("Detours pushed around obstructions"))
	if err != nil {
		return nil, fmt.Errorf("creating detour counter: %w", err)
	}
	out.arrivals, err = m.Int64Counter("sim.arrivals",
		metric.WithDescription("Units that reached a GoTo objective"))
	if err != nil {
		return nil, fmt.Errorf("creating arrival counter: %w", err)
	}
	out.tickDuration, err = m.Float64Histogram("sim.tick.duration",
		metric.WithDescription("Wall time spent in one Step"),
		metric.WithUnit("ms"))
	if err != nil {
		return nil, fmt.Errorf("creating tick histogram: %w", err)
	}
	out.activeGroups, err = m.Int64ObservableGauge("sim.groups.active",
		metric.WithDescription("Groups currently commanding units"))
	if err != nil {
		return nil, fmt.Errorf("creating active group gauge: %w", err)
	}
	out.reg, err = m.RegisterCallback(
		func(_ context.Context, o metric.Observer) error {
			for k := range out.active {
				o.ObserveInt64(out.activeGroups, out.active[k].Load(),
					metric.WithAttributes(attribute.String("kind", command.Kind(k).String())))
			}
			return nil
		},
		out.activeGroups,
	)
	if err != nil {
		return nil, fmt.Errorf("registering group callback: %w", err)
	}
	return out, nil
}

func (m *metrics) observeGroups(groups []*command.Group) {
	var counts [4]int64
	for _, g := range groups {
		if k := int(g.Kind()); k >= 0 && k < len(counts) {
			counts[k]++
		}
	}
	for k := range counts {
		m.active[k].Store(counts[k])
	}
}

func kindAttr(k string) metric.AddOption {
	return metric.WithAttributes(attribute.String("kind", k))
}

func (m *metrics) close() {
	if m.reg != nil {
		_ = m.reg.Unregister()
	}
}
