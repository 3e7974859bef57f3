package sim

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/foodfactory/cookstage/sim/metrics"
	"github.com/foodfactory/cookstage/sim/trace"
)

// fixedPolicy produces the same item at the same interval, forever.
type fixedPolicy struct {
	size     float64
	cook     time.Duration
	interval time.Duration
}

func (p fixedPolicy) NextItem(*rand.Rand) (float64, time.Duration) { return p.size, p.cook }
func (p fixedPolicy) NextInterval(*rand.Rand) time.Duration        { return p.interval }

// testKitchen wires a Kitchen over fresh units and buffers without starting any goroutine.
// Lines added through addLine are fed by hand with Line.Produce.
type testKitchen struct {
	*Kitchen
	registry *Registry
	trace    *trace.SimulationTrace
}

func newTestKitchen(t *testing.T, units, buffers []float64, ordering OrderingMode, m *metrics.Collectors) *testKitchen {
	t.Helper()
	us, bs, err := BuildHolders(KitchenConfig{UnitCapacities: units, BufferCapacities: buffers, Ordering: ordering})
	if err != nil {
		t.Fatalf("BuildHolders: %v", err)
	}
	tk := &testKitchen{trace: trace.NewSimulationTrace(trace.TraceConfig{Level: trace.TraceLevelDecisions})}
	tk.registry = NewRegistry(ordering, func() { tk.Wake() })
	tk.Kitchen = NewKitchen(us, bs, tk.registry, time.Millisecond, tk.trace, m)
	return tk
}

func (tk *testKitchen) addLine() *Line {
	return tk.registry.Add(fixedPolicy{size: 1, cook: time.Hour, interval: time.Hour}, nil)
}

// runCompletions fires completions in the background until the test ends.
func (tk *testKitchen) runCompletions(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = tk.Cooker().Completions().Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
}

// cycles runs n scheduling cycles.
func (tk *testKitchen) cycles(n int) {
	for i := 0; i < n; i++ {
		tk.Cycle()
	}
}

func seqs(items []Item) []int64 {
	out := make([]int64, len(items))
	for i, it := range items {
		out[i] = it.Seq
	}
	return out
}
