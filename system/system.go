// Package system implements the frame scheduler: fixed-stage,
// priority- and DAG-ordered execution of user systems over a World,
// with cooperative parallel-batch hints and a configurable error
// policy. Per-stage ordering rides on dag.Graph.
package system

import (
	"fmt"
	"sort"

	ecsruntime "github.com/TheBitDrifter/ecsruntime"
	"github.com/TheBitDrifter/ecsruntime/dag"
	"github.com/TheBitDrifter/ecsruntime/internal/rlog"
)

// Stage is one of the seven fixed, ordered execution stages. Ordinals
// are stable and safe to export in stats/telemetry.
type Stage int

const (
	FrameStart Stage = iota
	PreUpdate
	Update
	PostUpdate
	PreRender
	Render
	FrameEnd

	stageCount = int(FrameEnd) + 1
)

func (s Stage) String() string {
	switch s {
	case FrameStart:
		return "FrameStart"
	case PreUpdate:
		return "PreUpdate"
	case Update:
		return "Update"
	case PostUpdate:
		return "PostUpdate"
	case PreRender:
		return "PreRender"
	case Render:
		return "Render"
	case FrameEnd:
		return "FrameEnd"
	default:
		return fmt.Sprintf("Stage(%d)", int(s))
	}
}

// Context is passed to every system's Execute function.
type Context struct {
	World      *ecsruntime.World
	DeltaTime  float64
	TotalTime  float64
	FrameCount uint64
}

// GetResource fetches a resource of type T off ctx.World.
func GetResource[T any](ctx *Context) (*T, bool) {
	return ecsruntime.GetResource[T](ctx.World)
}

// Def defines one system: its stage, ordering hints, and its execute
// function. Filter is optional; when set, a cached Query is created and
// passed to Execute.
type Def struct {
	Name     string
	Stage    Stage
	Filter   *ecsruntime.Filter
	Execute  func(ctx *Context, q *ecsruntime.Query)
	Enabled  *bool // nil means default true
	Priority int
	After    []string
	RunIf    func(ctx *Context) bool
}

type registeredSystem struct {
	def      Def
	enabled  bool
	query    *ecsruntime.Query
	disabled bool // set by ErrorPolicyDisableAndContinue
}

// ErrorInfo describes a system failure passed to the error callback.
type ErrorInfo struct {
	SystemName string
	Stage      Stage
	Err        error
	FrameCount uint64
}

// ErrorCallback is invoked on every system failure, regardless of
// policy. Returning true suppresses the policy's default handling.
type ErrorCallback func(ErrorInfo) bool

// Scheduler executes registered systems over a World, one frame per
// Update call.
type Scheduler struct {
	world *ecsruntime.World

	systems map[string]*registeredSystem
	order   []string // insertion order, stable base for stage grouping

	perStageOrder   map[Stage][]string
	perStageBatches map[Stage][][]string
	dirty           bool

	parallel bool

	errCallback ErrorCallback
	errPolicy   ecsruntime.ErrorPolicy

	frameCount uint64
	totalTime  float64

	cachedQueries map[string]*ecsruntime.Query
}

// NewScheduler returns a Scheduler bound to w.
func NewScheduler(w *ecsruntime.World) *Scheduler {
	return &Scheduler{
		world:           w,
		systems:         make(map[string]*registeredSystem),
		perStageOrder:   make(map[Stage][]string),
		perStageBatches: make(map[Stage][][]string),
		errPolicy:       ecsruntime.Config.DefaultErrorPolicy(),
		cachedQueries:   make(map[string]*ecsruntime.Query),
		dirty:           true,
	}
}

// AddSystem registers def, replacing (and removing the cached Query
// of) any prior system under the same name.
func (s *Scheduler) AddSystem(def Def) {
	if existing, ok := s.systems[def.Name]; ok {
		if existing.query != nil {
			s.world.RemoveQuery(existing.query)
		}
		for i, name := range s.order {
			if name == def.Name {
				s.order = append(s.order[:i], s.order[i+1:]...)
				break
			}
		}
	}

	enabled := true
	if def.Enabled != nil {
		enabled = *def.Enabled
	}
	rs := &registeredSystem{def: def, enabled: enabled}
	if def.Filter != nil {
		rs.query = s.world.Query(*def.Filter)
	}
	s.systems[def.Name] = rs
	s.order = append(s.order, def.Name)
	s.dirty = true
}

// RemoveSystem deregisters name and its cached Query, reporting whether
// it existed.
func (s *Scheduler) RemoveSystem(name string) bool {
	rs, ok := s.systems[name]
	if !ok {
		return false
	}
	if rs.query != nil {
		s.world.RemoveQuery(rs.query)
	}
	delete(s.systems, name)
	for i, n := range s.order {
		if n == name {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	s.dirty = true
	return true
}

// SetEnabled toggles whether name executes on future Update calls.
func (s *Scheduler) SetEnabled(name string, enabled bool) {
	if rs, ok := s.systems[name]; ok {
		rs.enabled = enabled
	}
}

// IsEnabled reports whether name is currently enabled.
func (s *Scheduler) IsEnabled(name string) bool {
	rs, ok := s.systems[name]
	return ok && rs.enabled && !rs.disabled
}

// SetParallelExecution toggles per-stage batch computation.
func (s *Scheduler) SetParallelExecution(enabled bool) {
	s.parallel = enabled
	s.dirty = true
}

// IsParallelExecutionEnabled reports the current parallel-execution
// setting.
func (s *Scheduler) IsParallelExecutionEnabled() bool {
	return s.parallel
}

// GetParallelBatches returns the last-computed per-stage dependency
// batches for inspection.
func (s *Scheduler) GetParallelBatches(stage Stage) [][]string {
	return s.perStageBatches[stage]
}

// SetErrorCallback installs cb, invoked on every system failure.
func (s *Scheduler) SetErrorCallback(cb ErrorCallback) {
	s.errCallback = cb
}

// GetErrorCallback returns the currently installed error callback.
func (s *Scheduler) GetErrorCallback() ErrorCallback {
	return s.errCallback
}

// SetErrorPolicy sets how Update reacts to a system execution failure.
func (s *Scheduler) SetErrorPolicy(p ecsruntime.ErrorPolicy) {
	s.errPolicy = p
}

// GetOrCreateCachedQuery returns the Query cached under key, building
// it from filter on first use.
func (s *Scheduler) GetOrCreateCachedQuery(key string, filter ecsruntime.Filter) *ecsruntime.Query {
	if q, ok := s.cachedQueries[key]; ok {
		return q
	}
	q := s.world.Query(filter)
	s.cachedQueries[key] = q
	return q
}

// resort rebuilds per-stage order (priority ascending, then `after`
// DAG topo order) and, if parallel execution is enabled, per-stage
// batches. On a stage's cycle, logs and keeps that stage's prior order.
func (s *Scheduler) resort() {
	byStage := make(map[Stage][]string)
	for _, name := range s.order {
		rs := s.systems[name]
		byStage[rs.def.Stage] = append(byStage[rs.def.Stage], name)
	}

	for stage := Stage(0); int(stage) < stageCount; stage++ {
		names := byStage[stage]
		if len(names) == 0 {
			delete(s.perStageOrder, stage)
			delete(s.perStageBatches, stage)
			continue
		}

		sort.SliceStable(names, func(i, j int) bool {
			return s.systems[names[i]].def.Priority < s.systems[names[j]].def.Priority
		})

		g := dag.NewGraph[string]()
		for _, name := range names {
			g.AddNode(name, name)
		}
		for _, name := range names {
			for _, dep := range s.systems[name].def.After {
				if !g.HasNode(dep) {
					rlog.Default.Warnf("system %q: after dependency %q not found in stage %s", name, dep, stage)
					continue
				}
				g.AddEdge(name, dep)
			}
		}

		sorted, err := g.TopoSort()
		if err != nil {
			rlog.Default.Errorf("system scheduler: stage %s has a dependency cycle, keeping prior order: %v", stage, err)
			if prior, ok := s.perStageOrder[stage]; ok {
				s.perStageOrder[stage] = prior
			} else {
				s.perStageOrder[stage] = names
			}
		} else {
			s.perStageOrder[stage] = sorted
		}

		if s.parallel {
			s.perStageBatches[stage] = g.ParallelBatches()
		} else {
			delete(s.perStageBatches, stage)
		}
	}
}

// Update advances one frame: re-sorting stages if systems changed since
// the last call, building a Context, and executing every enabled,
// runnable system in fixed stage order.
func (s *Scheduler) Update(dt float64) error {
	if s.dirty {
		s.resort()
		s.dirty = false
	}

	s.frameCount++
	s.totalTime += dt
	ctx := &Context{
		World:      s.world,
		DeltaTime:  dt,
		TotalTime:  s.totalTime,
		FrameCount: s.frameCount,
	}

	for stage := Stage(0); int(stage) < stageCount; stage++ {
		for _, name := range s.perStageOrder[stage] {
			rs, ok := s.systems[name]
			if !ok || !rs.enabled || rs.disabled {
				continue
			}
			if rs.def.RunIf != nil && !rs.def.RunIf(ctx) {
				continue
			}
			if err := s.runSystem(rs, ctx); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *Scheduler) runSystem(rs *registeredSystem, ctx *Context) (propagated error) {
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("ecsruntime/system: system %q panicked: %v", rs.def.Name, r)
			propagated = s.handleFailure(rs, ctx, err)
		}
	}()
	rs.def.Execute(ctx, rs.query)
	return nil
}

func (s *Scheduler) handleFailure(rs *registeredSystem, ctx *Context, err error) error {
	suppressed := false
	if s.errCallback != nil {
		suppressed = s.errCallback(ErrorInfo{
			SystemName: rs.def.Name,
			Stage:      rs.def.Stage,
			Err:        err,
			FrameCount: ctx.FrameCount,
		})
	}
	if suppressed {
		return nil
	}
	switch s.errPolicy {
	case ecsruntime.ErrorPolicyDisableAndContinue:
		rs.disabled = true
		rlog.Default.Errorf("system %q disabled after error: %v", rs.def.Name, err)
		return nil
	case ecsruntime.ErrorPolicyThrow:
		return ecsruntime.SystemFailure{SystemName: rs.def.Name, Stage: rs.def.Stage.String(), Err: err, FrameCount: ctx.FrameCount}
	default: // ErrorPolicyContinue
		rlog.Default.Errorf("system %q error: %v", rs.def.Name, err)
		return nil
	}
}
