package engine

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sync"

	"github.com/panjf2000/ants/v2"

	"github.com/roach88/catsim/internal/catalog"
	"github.com/roach88/catsim/internal/ir"
	"github.com/roach88/catsim/internal/queryir"
	"github.com/roach88/catsim/internal/sink"
	"github.com/roach88/catsim/internal/source"
)

// DefaultWorkers is the default number of classes evaluated concurrently.
const DefaultWorkers = 4

// Entry pairs a catalog spec with the sink that receives its output.
type Entry struct {
	Spec *catalog.Spec
	Sink sink.Sink
}

// member is one catalog inside an equivalence class.
type member struct {
	eval *catalog.Evaluator
	sink sink.Sink
}

// class is a set of catalogs sharing one row source key.
type class struct {
	key     ir.RowSourceKey
	query   queryir.Select
	members []member
}

// Coordinator evaluates a compound catalog: many specs, each query run once.
//
// Thread-safety model:
//   - New(): validates and partitions once; the result is immutable
//   - Run(): may be called more than once, but not concurrently with itself
//     (sinks would receive interleaved runs)
//
// INVARIANTS:
//   - classes keep first-appearance order of their keys
//   - members keep entry order within a class
//   - each sink belongs to exactly one entry
type Coordinator struct {
	backend      source.Backend
	classes      []*class
	chunkSize    int
	workers      int
	allOrNothing bool
	metrics      *Metrics
	runIDs       RunIDGenerator
	logger       *slog.Logger
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithChunkSize sets the rows fetched per chunk.
// Default: source.DefaultChunkSize.
func WithChunkSize(n int) Option {
	return func(c *Coordinator) {
		c.chunkSize = n
	}
}

// WithWorkers bounds how many classes run concurrently.
// Default: DefaultWorkers. Use WithWorkers(1) for fully sequential runs.
func WithWorkers(n int) Option {
	return func(c *Coordinator) {
		c.workers = n
	}
}

// WithAllOrNothing makes Run return an error when any class fails.
// Without it, partial success is a valid result reported only in the Report.
func WithAllOrNothing(enabled bool) Option {
	return func(c *Coordinator) {
		c.allOrNothing = enabled
	}
}

// WithMetrics records chunk, row, outcome and open counters.
func WithMetrics(m *Metrics) Option {
	return func(c *Coordinator) {
		c.metrics = m
	}
}

// WithRunIDGenerator sets the run id source. Default: UUIDv7Generator.
func WithRunIDGenerator(g RunIDGenerator) Option {
	return func(c *Coordinator) {
		c.runIDs = g
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *Coordinator) {
		c.logger = l
	}
}

// New creates a Coordinator for the given entries, in output precedence
// order.
//
// Returns *ConfigError if an entry has no spec or sink, if one sink is
// paired with more than one entry, or if an option is out of range.
// No row source is opened.
func New(backend source.Backend, entries []Entry, opts ...Option) (*Coordinator, error) {
	c := &Coordinator{
		backend:   backend,
		chunkSize: source.DefaultChunkSize,
		workers:   DefaultWorkers,
		runIDs:    UUIDv7Generator{},
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}

	if backend == nil {
		return nil, configErrorf("no backend")
	}
	if c.chunkSize <= 0 {
		return nil, configErrorf("chunk size must be positive, got %d", c.chunkSize)
	}
	if c.workers <= 0 {
		return nil, configErrorf("workers must be positive, got %d", c.workers)
	}

	owners := make(map[sink.Sink]string)
	byHash := make(map[string]*class)
	for i, e := range entries {
		if e.Spec == nil {
			return nil, configErrorf("entry %d has no spec", i)
		}
		if e.Sink == nil {
			return nil, configErrorf("catalog %s has no sink", e.Spec.Name())
		}
		if reflect.TypeOf(e.Sink).Comparable() {
			if owner, dup := owners[e.Sink]; dup {
				return nil, configErrorf("catalogs %s and %s share one sink", owner, e.Spec.Name())
			}
			owners[e.Sink] = e.Spec.Name()
		}

		key := e.Spec.Key()
		hash, err := key.Hash()
		if err != nil {
			return nil, configErrorf("catalog %s: %v", e.Spec.Name(), err)
		}
		cl, ok := byHash[hash]
		if !ok {
			cl = &class{key: key, query: e.Spec.Query()}
			byHash[hash] = cl
			c.classes = append(c.classes, cl)
		}
		cl.members = append(cl.members, member{
			eval: catalog.NewEvaluator(e.Spec),
			sink: e.Sink,
		})
	}

	return c, nil
}

// ClassPlan describes one equivalence class before execution.
type ClassPlan struct {
	Key      ir.RowSourceKey
	Catalogs []string
}

// Plan returns the equivalence classes in execution order.
func (c *Coordinator) Plan() []ClassPlan {
	plans := make([]ClassPlan, len(c.classes))
	for i, cl := range c.classes {
		plans[i] = ClassPlan{Key: cl.key, Catalogs: cl.catalogs()}
	}
	return plans
}

// Run evaluates every class to completion and reports per-class outcomes.
//
// The returned error is non-nil only when the run could not start, or when
// WithAllOrNothing is set and at least one class failed (a *RunError). In
// every case the Report, when non-nil, lists all classes.
func (c *Coordinator) Run(ctx context.Context) (*Report, error) {
	report := &Report{
		RunID:   c.runIDs.Generate(),
		Classes: make([]ClassOutcome, len(c.classes)),
	}
	logger := c.logger.With("run_id", report.RunID)
	logger.Info("run starting", "classes", len(c.classes), "chunk_size", c.chunkSize)

	if len(c.classes) == 0 {
		logger.Info("run finished", "ok", 0, "failed", 0, "cancelled", 0)
		return report, nil
	}

	pool, err := ants.NewPool(min(c.workers, len(c.classes)), ants.WithPanicHandler(func(v any) {
		logger.Error("class worker panic", "panic", v)
	}))
	if err != nil {
		return nil, fmt.Errorf("create worker pool: %w", err)
	}
	defer pool.Release()

	var wg sync.WaitGroup
	for i, cl := range c.classes {
		wg.Add(1)
		task := func() {
			defer wg.Done()
			report.Classes[i] = c.runClass(ctx, logger, cl)
		}
		if err := pool.Submit(task); err != nil {
			wg.Done()
			report.Classes[i] = cl.outcome(StatusFailed, fmt.Errorf("schedule class: %w", err))
		}
	}
	wg.Wait()

	for _, oc := range report.Classes {
		c.metrics.outcome(oc.Status)
	}
	logger.Info("run finished",
		"ok", report.Count(StatusOK),
		"failed", report.Count(StatusFailed),
		"cancelled", report.Count(StatusCancelled),
	)

	if c.allOrNothing {
		if err := report.Err(); err != nil {
			return report, err
		}
	}
	return report, nil
}

func (cl *class) catalogs() []string {
	names := make([]string, len(cl.members))
	for i, m := range cl.members {
		names[i] = m.eval.Spec().Name()
	}
	return names
}

func (cl *class) outcome(s Status, err error) ClassOutcome {
	return ClassOutcome{
		Key:      cl.key,
		Catalogs: cl.catalogs(),
		Status:   s,
		Err:      err,
	}
}
