package system

import (
	"testing"

	ecsruntime "github.com/TheBitDrifter/ecsruntime"
)

func TestSchedulerRunsInStageOrder(t *testing.T) {
	w := ecsruntime.NewWorld()
	s := NewScheduler(w)

	var ran []string
	s.AddSystem(Def{
		Name:  "render",
		Stage: Render,
		Execute: func(ctx *Context, q *ecsruntime.Query) {
			ran = append(ran, "render")
		},
	})
	s.AddSystem(Def{
		Name:  "update",
		Stage: Update,
		Execute: func(ctx *Context, q *ecsruntime.Query) {
			ran = append(ran, "update")
		},
	})

	if err := s.Update(0.016); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if len(ran) != 2 || ran[0] != "update" || ran[1] != "render" {
		t.Fatalf("execution order = %v, want [update render]", ran)
	}
}

func TestSchedulerPriorityWithinStage(t *testing.T) {
	w := ecsruntime.NewWorld()
	s := NewScheduler(w)

	var ran []string
	s.AddSystem(Def{
		Name: "b", Stage: Update, Priority: 5,
		Execute: func(ctx *Context, q *ecsruntime.Query) { ran = append(ran, "b") },
	})
	s.AddSystem(Def{
		Name: "a", Stage: Update, Priority: 1,
		Execute: func(ctx *Context, q *ecsruntime.Query) { ran = append(ran, "a") },
	})

	if err := s.Update(0.016); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if len(ran) != 2 || ran[0] != "a" || ran[1] != "b" {
		t.Fatalf("execution order = %v, want [a b]", ran)
	}
}

func TestSchedulerAfterOverridesPriority(t *testing.T) {
	w := ecsruntime.NewWorld()
	s := NewScheduler(w)

	var ran []string
	s.AddSystem(Def{
		Name: "first", Stage: Update, Priority: 10,
		Execute: func(ctx *Context, q *ecsruntime.Query) { ran = append(ran, "first") },
	})
	s.AddSystem(Def{
		Name: "second", Stage: Update, Priority: 0, After: []string{"first"},
		Execute: func(ctx *Context, q *ecsruntime.Query) { ran = append(ran, "second") },
	})

	if err := s.Update(0.016); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if len(ran) != 2 || ran[0] != "first" || ran[1] != "second" {
		t.Fatalf("execution order = %v, want [first second]", ran)
	}
}

func TestSchedulerDisabledSystemSkipped(t *testing.T) {
	w := ecsruntime.NewWorld()
	s := NewScheduler(w)

	ran := false
	s.AddSystem(Def{
		Name: "sys", Stage: Update,
		Execute: func(ctx *Context, q *ecsruntime.Query) { ran = true },
	})
	s.SetEnabled("sys", false)

	if err := s.Update(0.016); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if ran {
		t.Fatal("expected disabled system not to run")
	}
}

func TestSchedulerRunIfSkipped(t *testing.T) {
	w := ecsruntime.NewWorld()
	s := NewScheduler(w)

	ran := false
	s.AddSystem(Def{
		Name:  "sys",
		Stage: Update,
		RunIf: func(ctx *Context) bool { return false },
		Execute: func(ctx *Context, q *ecsruntime.Query) {
			ran = true
		},
	})

	if err := s.Update(0.016); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if ran {
		t.Fatal("expected run_if=false system not to run")
	}
}

func TestSchedulerErrorPolicyContinue(t *testing.T) {
	w := ecsruntime.NewWorld()
	s := NewScheduler(w)

	ranAfter := false
	s.AddSystem(Def{
		Name:  "boom",
		Stage: Update,
		Execute: func(ctx *Context, q *ecsruntime.Query) {
			panic("boom")
		},
	})
	s.AddSystem(Def{
		Name: "after", Stage: Update, Priority: 10,
		Execute: func(ctx *Context, q *ecsruntime.Query) {
			ranAfter = true
		},
	})

	if err := s.Update(0.016); err != nil {
		t.Fatalf("Update() error = %v, want nil under ErrorPolicyContinue", err)
	}
	if !ranAfter {
		t.Fatal("expected remaining systems in stage to run under ErrorPolicyContinue")
	}
}

func TestSchedulerErrorPolicyDisableAndContinue(t *testing.T) {
	w := ecsruntime.NewWorld()
	s := NewScheduler(w)
	s.SetErrorPolicy(ecsruntime.ErrorPolicyDisableAndContinue)

	calls := 0
	s.AddSystem(Def{
		Name:  "boom",
		Stage: Update,
		Execute: func(ctx *Context, q *ecsruntime.Query) {
			calls++
			panic("boom")
		},
	})

	if err := s.Update(0.016); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if err := s.Update(0.016); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1 (system should be disabled after first failure)", calls)
	}
}

func TestSchedulerErrorPolicyThrow(t *testing.T) {
	w := ecsruntime.NewWorld()
	s := NewScheduler(w)
	s.SetErrorPolicy(ecsruntime.ErrorPolicyThrow)

	s.AddSystem(Def{
		Name:  "boom",
		Stage: Update,
		Execute: func(ctx *Context, q *ecsruntime.Query) {
			panic("boom")
		},
	})

	if err := s.Update(0.016); err == nil {
		t.Fatal("expected error under ErrorPolicyThrow")
	}
}

func TestSchedulerErrorCallbackSuppresses(t *testing.T) {
	w := ecsruntime.NewWorld()
	s := NewScheduler(w)
	s.SetErrorPolicy(ecsruntime.ErrorPolicyThrow)
	s.SetErrorCallback(func(info ErrorInfo) bool {
		return true // suppress default handling
	})

	s.AddSystem(Def{
		Name:  "boom",
		Stage: Update,
		Execute: func(ctx *Context, q *ecsruntime.Query) {
			panic("boom")
		},
	})

	if err := s.Update(0.016); err != nil {
		t.Fatalf("Update() error = %v, want nil (callback suppressed)", err)
	}
}

func TestSchedulerCycleKeepsPriorOrder(t *testing.T) {
	w := ecsruntime.NewWorld()
	s := NewScheduler(w)

	var ran []string
	s.AddSystem(Def{
		Name: "a", Stage: Update,
		Execute: func(ctx *Context, q *ecsruntime.Query) { ran = append(ran, "a") },
	})
	s.AddSystem(Def{
		Name: "b", Stage: Update, After: []string{"a"},
		Execute: func(ctx *Context, q *ecsruntime.Query) { ran = append(ran, "b") },
	})
	if err := s.Update(0.016); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	// Introduce a cycle: a now depends on b, while b still depends on a.
	s.AddSystem(Def{
		Name: "a", Stage: Update, After: []string{"b"},
		Execute: func(ctx *Context, q *ecsruntime.Query) { ran = append(ran, "a") },
	})

	ran = nil
	if err := s.Update(0.016); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if len(ran) != 2 {
		t.Fatalf("ran = %v, want both systems still executed despite cycle", ran)
	}
}

func TestGetOrCreateCachedQueryReusesInstance(t *testing.T) {
	w := ecsruntime.NewWorld()
	s := NewScheduler(w)
	filter := w.NewFilter()

	q1 := s.GetOrCreateCachedQuery("k", filter)
	q2 := s.GetOrCreateCachedQuery("k", filter)
	if q1 != q2 {
		t.Fatal("expected GetOrCreateCachedQuery to return the same instance for the same key")
	}
}

func TestSchedulerAfterChainExactOrder(t *testing.T) {
	w := ecsruntime.NewWorld()
	s := NewScheduler(w)

	var ran []string
	record := func(name string) func(*Context, *ecsruntime.Query) {
		return func(ctx *Context, q *ecsruntime.Query) { ran = append(ran, name) }
	}
	s.AddSystem(Def{Name: "C", Stage: Update, After: []string{"B"}, Execute: record("C")})
	s.AddSystem(Def{Name: "A", Stage: Update, Execute: record("A")})
	s.AddSystem(Def{Name: "B", Stage: Update, After: []string{"A"}, Execute: record("B")})

	if err := s.Update(0.016); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if len(ran) != 3 || ran[0] != "A" || ran[1] != "B" || ran[2] != "C" {
		t.Fatalf("execution log = %v, want [A B C]", ran)
	}
}

func TestSchedulerFrameContext(t *testing.T) {
	w := ecsruntime.NewWorld()
	s := NewScheduler(w)

	var lastFrame uint64
	var lastTotal float64
	s.AddSystem(Def{
		Name: "clock", Stage: Update,
		Execute: func(ctx *Context, q *ecsruntime.Query) {
			lastFrame = ctx.FrameCount
			lastTotal = ctx.TotalTime
		},
	})

	s.Update(0.016)
	s.Update(0.016)
	if lastFrame != 2 {
		t.Fatalf("FrameCount = %d, want 2", lastFrame)
	}
	if lastTotal < 0.031 || lastTotal > 0.033 {
		t.Fatalf("TotalTime = %v, want ~0.032", lastTotal)
	}
}

func TestSchedulerParallelBatches(t *testing.T) {
	w := ecsruntime.NewWorld()
	s := NewScheduler(w)
	noop := func(ctx *Context, q *ecsruntime.Query) {}

	s.AddSystem(Def{Name: "a", Stage: Update, Execute: noop})
	s.AddSystem(Def{Name: "b", Stage: Update, Execute: noop})
	s.AddSystem(Def{Name: "c", Stage: Update, After: []string{"a", "b"}, Execute: noop})

	s.SetParallelExecution(true)
	if !s.IsParallelExecutionEnabled() {
		t.Fatal("parallel execution not enabled")
	}
	if err := s.Update(0.016); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	batches := s.GetParallelBatches(Update)
	if len(batches) != 2 {
		t.Fatalf("batches = %v, want 2 layers", batches)
	}
	if len(batches[0]) != 2 {
		t.Fatalf("first batch = %v, want the two independent systems", batches[0])
	}
	if len(batches[1]) != 1 || batches[1][0] != "c" {
		t.Fatalf("second batch = %v, want [c]", batches[1])
	}
}

func TestSchedulerCachedQueryFollowsSystem(t *testing.T) {
	type Marker struct{ On bool }
	w := ecsruntime.NewWorld()
	s := NewScheduler(w)
	marker := ecsruntime.NewComponent[Marker]()
	filter := w.NewFilter().All(w, marker)

	var counted int
	s.AddSystem(Def{
		Name: "count", Stage: Update, Filter: &filter,
		Execute: func(ctx *Context, q *ecsruntime.Query) {
			counted = q.EntityCount()
		},
	})
	w.CreateEntity(marker)
	s.Update(0.016)
	if counted != 1 {
		t.Fatalf("cached query counted %d, want 1", counted)
	}

	queriesBefore := w.Stats().QueryCount
	if !s.RemoveSystem("count") {
		t.Fatal("RemoveSystem failed")
	}
	if w.Stats().QueryCount != queriesBefore-1 {
		t.Fatal("cached query not deregistered with its system")
	}
}
