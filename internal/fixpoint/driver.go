package fixpoint

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pyscope-dev/pyscope/internal/calltarget"
	"github.com/pyscope-dev/pyscope/internal/callgraph"
	"github.com/pyscope-dev/pyscope/internal/sharedmem"
	"github.com/pyscope-dev/pyscope/internal/taint"
)

const (
	defaultMaxIterations      = 100
	defaultChunkSize          = 16
	defaultExpensiveThreshold = 250 * time.Millisecond
)

// Config wires a Driver's dependencies: the call/override graph it expands
// the work list against, the model and result tables the caller created
// and owns, the oracle that knows how to analyze a Function/Method define,
// and the knobs the iteration protocol and its telemetry reduce step need.
type Config[R any] struct {
	Graph       *callgraph.Graph
	Models      ModelsHandle
	Results     *sharedmem.Table[calltarget.Target, R]
	Oracle      Oracle[R]
	QualifierOf func(calltarget.Target) string

	MaxIterations      int
	ChunkSize          int
	ExpensiveThreshold time.Duration
	Logger             *zap.Logger
}

// Driver runs the §4.G work-list protocol to a taint-model fixpoint.
type Driver[R any] struct {
	cfg   Config[R]
	epoch string

	mu     sync.Mutex
	states map[calltarget.Target]*State
}

// New builds a Driver with a fresh epoch (a uuid, per the teacher's own use
// of google/uuid for opaque run identity). Callers seed cfg.Models with
// every target's initial model before calling Run.
func New[R any](cfg Config[R]) *Driver[R] {
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = defaultMaxIterations
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = defaultChunkSize
	}
	if cfg.ExpensiveThreshold <= 0 {
		cfg.ExpensiveThreshold = defaultExpensiveThreshold
	}
	return &Driver[R]{
		cfg:    cfg,
		epoch:  uuid.NewString(),
		states: make(map[calltarget.Target]*State),
	}
}

// Epoch returns the run identifier every State this driver writes is
// tagged with.
func (d *Driver[R]) Epoch() string { return d.epoch }

func (d *Driver[R]) stateFor(t calltarget.Target) *State {
	d.mu.Lock()
	defer d.mu.Unlock()
	s, ok := d.states[t]
	if !ok {
		s = &State{Epoch: d.epoch}
		d.states[t] = s
	}
	return s
}

// Run iterates initial to a fixpoint per §4.G's seven-step protocol.
// Every target reachable from initial (transitively, via the work-list
// expansion in step 5) must already have an entry in cfg.Models before
// Run is called for the first iteration — that's the "initial_model must
// be present... before iteration 0" invariant; Run checks it only for
// initial itself; later entries missing their seed surface as
// MissingInitialModelError from processTarget.
//
// Cancellation: when ctx is done, Run finishes the in-flight chunk (the
// errgroup it's currently waiting on) and returns ctx.Err() without
// starting the next one. Every target processed so far has already had
// its widened model written to cfg.Models, so that partial state survives
// the return by construction — there is no separate "persist" step.
func (d *Driver[R]) Run(ctx context.Context, initial []calltarget.Target) error {
	for _, t := range initial {
		if _, ok := d.cfg.Models.Get(t); !ok {
			return &MissingInitialModelError{Target: t.String()}
		}
	}

	initialSet := make(map[calltarget.Target]bool, len(initial))
	for _, t := range initial {
		initialSet[t] = true
	}

	worklist := append([]calltarget.Target(nil), initial...)
	iteration := 0

	for len(worklist) > 0 {
		d.cfg.Models.OldifyBatch(worklist)
		if d.cfg.Results != nil {
			d.cfg.Results.OldifyBatch(worklist)
		}

		for _, chunk := range chunkTargets(worklist, d.cfg.ChunkSize) {
			if err := ctx.Err(); err != nil {
				return err
			}
			eg, egCtx := errgroup.WithContext(ctx)
			for _, t := range chunk {
				t := t
				eg.Go(func() error {
					return d.processTarget(egCtx, t, iteration)
				})
			}
			if err := eg.Wait(); err != nil {
				return err
			}
		}

		next := d.nextWorklist(worklist, initialSet)

		d.cfg.Models.RemoveOldBatch(worklist)
		if d.cfg.Results != nil {
			d.cfg.Results.RemoveOldBatch(worklist)
		}

		worklist = next
		if len(worklist) == 0 {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		iteration++
		if iteration >= d.cfg.MaxIterations {
			return &NonConvergenceError{MaxIterations: d.cfg.MaxIterations, Oscillating: targetStrings(worklist)}
		}
	}
	return nil
}

// processTarget implements one worker's per-target step 3: fetch previous,
// dispatch to the oracle (Function/Method) or the override combinator
// (Override), widen, and store. An oracle panic (an InvariantViolation,
// per §7) is logged with its iteration and target before re-propagating,
// matching the propagation policy: the batch aborts rather than silently
// dropping the offending target.
func (d *Driver[R]) processTarget(ctx context.Context, t calltarget.Target, iteration int) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if d.cfg.Logger != nil {
				d.cfg.Logger.Error("fixpoint oracle panic",
					zap.Int("iteration", iteration),
					zap.String("target", t.String()),
				)
			}
			panic(r)
		}
	}()

	st := d.stateFor(t)
	if st.Epoch != d.epoch {
		return &InvariantViolation{Iteration: iteration, Target: t.String(), Detail: "stored epoch does not match driver epoch"}
	}

	previous, ok := d.cfg.Models.GetOld(t)
	if !ok {
		return &MissingInitialModelError{Target: t.String()}
	}

	start := time.Now()

	var newModel *taint.Model
	if override, isOverride := t.(calltarget.Override); isOverride {
		newModel = d.combineOverride(override)
	} else {
		qualifier := ""
		if d.cfg.QualifierOf != nil {
			qualifier = d.cfg.QualifierOf(t)
		}
		result, model, oracleErr := d.cfg.Oracle.AnalyzeDefine(ctx, qualifier, t, previous, d.cfg.Models.GetOrOld)
		if oracleErr != nil {
			return oracleErr
		}
		newModel = model
		if d.cfg.Results != nil {
			d.cfg.Results.Add(t, result)
		}
	}

	if elapsed := time.Since(start); elapsed >= d.cfg.ExpensiveThreshold && d.cfg.Logger != nil {
		d.cfg.Logger.Warn("expensive callable",
			zap.String("target", t.String()),
			zap.Int("iteration", iteration),
			zap.Duration("elapsed", elapsed),
		)
	}

	widened := taint.Widen(previous, newModel, iteration)
	st.IsPartial = !taint.LessOrEqual(widened, previous)
	st.Iteration = iteration
	d.cfg.Models.Add(t, widened)
	return nil
}

// combineOverride implements step 3c: join every concrete overrider's
// model with the declaring method's own for_override_model.
func (d *Driver[R]) combineOverride(o calltarget.Override) *taint.Model {
	method := calltarget.Method{Class: o.Class, Name: o.Name, Kind: o.Kind}
	joined := taint.EmptyModel()
	for _, overrider := range d.cfg.Graph.GetOverridingTypes(method) {
		if m, ok := d.cfg.Models.GetOrOld(overrider); ok {
			joined = taint.Join(joined, m)
		}
	}
	own, _ := d.cfg.Models.GetOrOld(method)
	return taint.Join(joined, taint.ForOverrideModel(own))
}

// nextWorklist implements step 5: every target whose state is still
// partial, plus its callers, restricted to the run's original work list —
// targets outside that set are never independently rescheduled, since
// their own model is the caller's responsibility to seed and iterate.
func (d *Driver[R]) nextWorklist(current []calltarget.Target, initialSet map[calltarget.Target]bool) []calltarget.Target {
	seen := make(map[calltarget.Target]bool)
	var next []calltarget.Target
	add := func(t calltarget.Target) {
		if !initialSet[t] || seen[t] {
			return
		}
		seen[t] = true
		next = append(next, t)
	}
	for _, t := range current {
		st := d.stateFor(t)
		if !st.IsPartial {
			continue
		}
		add(t)
		if d.cfg.Graph != nil {
			for _, caller := range d.cfg.Graph.CallersOf(t) {
				add(caller)
			}
		}
	}
	sort.Slice(next, func(i, j int) bool { return next[i].String() < next[j].String() })
	return next
}

func chunkTargets(targets []calltarget.Target, size int) [][]calltarget.Target {
	if size <= 0 || size >= len(targets) {
		return [][]calltarget.Target{targets}
	}
	var chunks [][]calltarget.Target
	for i := 0; i < len(targets); i += size {
		end := i + size
		if end > len(targets) {
			end = len(targets)
		}
		chunks = append(chunks, targets[i:end])
	}
	return chunks
}

func targetStrings(targets []calltarget.Target) []string {
	out := make([]string, len(targets))
	for i, t := range targets {
		out[i] = t.String()
	}
	return out
}
