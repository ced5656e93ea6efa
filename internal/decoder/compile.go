package decoder

import (
	"fmt"
	"log/slog"
	"math"
	"slices"
	"strconv"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/roach88/hyperdem/internal/dem"
	"github.com/roach88/hyperdem/internal/herald"
	"github.com/roach88/hyperdem/internal/ir"
	"github.com/roach88/hyperdem/internal/predict"
	"github.com/roach88/hyperdem/internal/refcircuit"
	"github.com/roach88/hyperdem/internal/solver"
	"github.com/roach88/hyperdem/internal/store"
	"github.com/roach88/hyperdem/internal/weight"
)

// Model kinds, also used as the shots metric label.
const (
	KindStatic   = "static"
	KindHeralded = "heralded"
)

// Decoder compiles models and caches them by source.
type Decoder struct {
	cfg      Config
	cache    *lru.Cache[string, *Compiled]
	recorder FailureRecorder
	metrics  *Metrics
	logger   *slog.Logger
}

// Option configures a Decoder.
type Option func(*Decoder)

// WithRecorder stores every solver failure through r.
func WithRecorder(r FailureRecorder) Option {
	return func(d *Decoder) { d.recorder = r }
}

// WithMetrics records shot, failure and latency metrics.
func WithMetrics(m *Metrics) Option {
	return func(d *Decoder) { d.metrics = m }
}

// WithLogger sets the logger for canonicalization and failure diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(d *Decoder) { d.logger = l }
}

// New creates a Decoder. cfg must pass Validate.
func New(cfg Config, opts ...Option) (*Decoder, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid decoder config: %w", err)
	}
	cache, err := lru.New[string, *Compiled](cfg.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("create compile cache: %w", err)
	}
	d := &Decoder{cfg: cfg, cache: cache}
	for _, opt := range opts {
		opt(d)
	}
	if d.logger == nil {
		d.logger = slog.Default()
	}
	return d, nil
}

// Config returns the decoder configuration.
func (d *Decoder) Config() Config {
	return d.cfg
}

// CachedModels returns the number of compiled models held in the cache.
func (d *Decoder) CachedModels() int {
	return d.cache.Len()
}

// compiledModel is the decoding data of a model before solvers exist.
type compiledModel struct {
	kind            string
	init            solver.Initializer
	faults          []predict.Fault
	heraldDetectors []int
	heraldFaults    []herald.FaultMap
	numDetectors    int
	numObservables  int
}

// CompileForErrorModel compiles a native error model for static decoding.
// Edge probabilities are clamped into [floor, 1-floor] so every weight is
// finite.
func (d *Decoder) CompileForErrorModel(m *dem.Model) (*Compiled, error) {
	key, err := ir.SourceKey(ir.Object{
		"kind":              ir.String(KindStatic),
		"text":              ir.String(m.String()),
		"probability_floor": ir.Float(d.cfg.ProbabilityFloor),
	})
	if err != nil {
		return nil, err
	}
	return d.cached(key, func() (*compiledModel, error) {
		ref, err := dem.FromModel(m, nil, dem.WithLogger(d.logger))
		if err != nil {
			return nil, err
		}
		edges, err := ref.Hyperedges()
		if err != nil {
			return nil, err
		}
		return staticModel(edges, ref.NumDetectors(), ref.NumObservables(), d.cfg.ProbabilityFloor), nil
	})
}

func staticModel(edges []dem.Hyperedge, numDetectors, numObservables int, floor float64) *compiledModel {
	cm := &compiledModel{
		kind: KindStatic,
		init: solver.Initializer{
			VertexNum:     numDetectors,
			WeightedEdges: make([]solver.HyperEdge, len(edges)),
		},
		faults:         make([]predict.Fault, len(edges)),
		numDetectors:   numDetectors,
		numObservables: numObservables,
	}
	for i, e := range edges {
		p := math.Min(weight.ClampProbability(e.Probability, floor), 1-floor)
		cm.init.WeightedEdges[i] = solver.HyperEdge{
			Vertices: e.Detectors,
			Weight:   weight.ProbabilityToWeight(p),
		}
		cm.faults[i] = predict.Fault{Probability: e.Probability, ObservableMask: e.ObservableMask()}
	}
	return cm
}

// CompileForCircuit compiles a circuit for heralded decoding. Circuits
// without heralded instructions decode like their error model.
func (d *Decoder) CompileForCircuit(c *refcircuit.Circuit) (*Compiled, error) {
	key, err := ir.SourceKey(ir.Object{
		"kind":                ir.String(KindHeralded),
		"text":                ir.String(c.String()),
		"false_positive_rate": ir.Float(d.cfg.FalsePositiveRate),
		"probability_floor":   ir.Float(d.cfg.ProbabilityFloor),
	})
	if err != nil {
		return nil, err
	}
	return d.cached(key, func() (*compiledModel, error) {
		hm, err := herald.New(c,
			herald.WithFalsePositiveRate(d.cfg.FalsePositiveRate),
			herald.WithProbabilityFloor(d.cfg.ProbabilityFloor),
			herald.WithLogger(d.logger),
		)
		if err != nil {
			return nil, err
		}
		init, err := hm.Initializer()
		if err != nil {
			return nil, err
		}
		edges, err := hm.SkeletonHyperedges()
		if err != nil {
			return nil, err
		}
		faultMaps, err := hm.FaultMap()
		if err != nil {
			return nil, err
		}
		numObservables, err := hm.NumObservables()
		if err != nil {
			return nil, err
		}
		cm := &compiledModel{
			kind:            KindHeralded,
			init:            init,
			faults:          make([]predict.Fault, len(edges)),
			heraldDetectors: hm.HeraldDetectorIndices(),
			heraldFaults:    faultMaps,
			numDetectors:    c.NumDetectors(),
			numObservables:  numObservables,
		}
		for i, e := range edges {
			cm.faults[i] = predict.Fault{Probability: e.Probability, ObservableMask: e.ObservableMask()}
		}
		return cm, nil
	})
}

func (d *Decoder) cached(key string, build func() (*compiledModel, error)) (*Compiled, error) {
	if c, ok := d.cache.Get(key); ok {
		return c, nil
	}
	cm, err := build()
	if err != nil {
		return nil, fmt.Errorf("compile: %w", err)
	}
	c, err := d.finish(cm)
	if err != nil {
		return nil, fmt.Errorf("compile: %w", err)
	}
	d.cache.Add(key, c)
	return c, nil
}

func (d *Decoder) finish(cm *compiledModel) (*Compiled, error) {
	predictor, err := predict.NewHeralded(cm.faults, cm.heraldDetectors, cm.heraldFaults, cm.numDetectors, cm.numObservables)
	if err != nil {
		return nil, err
	}
	fingerprint, err := ir.ModelFingerprint(cm.canonical())
	if err != nil {
		return nil, err
	}
	c := &Compiled{
		kind:        cm.kind,
		fingerprint: fingerprint,
		init:        cm.init,
		predictor:   predictor,
		cfg:         d.cfg,
		factory:     d.cfg.factory(),
		recorder:    d.recorder,
		metrics:     d.metrics,
		logger:      d.logger,
	}
	// Building the first solver validates the initializer.
	s, err := c.factory(c.init, c.cfg.SolverConfig())
	if err != nil {
		return nil, err
	}
	c.release(s)
	return c, nil
}

// canonical covers everything that affects decoding output: the solver
// hypergraph and the predictor's faults.
func (cm *compiledModel) canonical() ir.Object {
	faults := make(ir.Array, len(cm.faults))
	for i, f := range cm.faults {
		faults[i] = faultObject(f)
	}
	heralds := make(ir.Array, len(cm.heraldFaults))
	for h, fm := range cm.heraldFaults {
		edges := make([]int, 0, len(fm))
		for e := range fm {
			edges = append(edges, e)
		}
		slices.Sort(edges)
		entries := make(ir.Array, len(edges))
		for i, e := range edges {
			obj := faultObject(fm[e])
			obj["edge"] = ir.Int(e)
			entries[i] = obj
		}
		heralds[h] = ir.Object{
			"detector": ir.Int(cm.heraldDetectors[h]),
			"faults":   entries,
		}
	}
	return ir.Object{
		"kind":            ir.String(cm.kind),
		"initializer":     cm.init.Canonical(),
		"faults":          faults,
		"heralds":         heralds,
		"num_detectors":   ir.Int(cm.numDetectors),
		"num_observables": ir.Int(cm.numObservables),
	}
}

func faultObject(f predict.Fault) ir.Object {
	return ir.Object{
		"probability":     ir.Float(f.Probability),
		"observable_mask": ir.String(strconv.FormatUint(f.ObservableMask, 10)),
	}
}

// Compiled is a model ready to decode. It is safe for concurrent use:
// every decode call takes its own solver.
type Compiled struct {
	kind        string
	fingerprint string
	init        solver.Initializer
	predictor   *predict.Predictor
	cfg         Config
	factory     solver.Factory
	solvers     sync.Pool
	recorder    FailureRecorder
	metrics     *Metrics
	logger      *slog.Logger
}

// Kind returns KindStatic or KindHeralded.
func (c *Compiled) Kind() string { return c.kind }

// Fingerprint returns the model fingerprint.
func (c *Compiled) Fingerprint() string { return c.fingerprint }

// Initializer returns the solver hypergraph. Callers must not modify it.
func (c *Compiled) Initializer() solver.Initializer { return c.init }

// Predictor returns the model's predictor.
func (c *Compiled) Predictor() *predict.Predictor { return c.predictor }

// NumDetectors returns the number of detectors per shot.
func (c *Compiled) NumDetectors() int { return c.predictor.NumDetectors() }

// NumObservables returns the number of observables per prediction.
func (c *Compiled) NumObservables() int { return c.predictor.NumObservables() }

// ModelRecord returns the model as stored alongside captured failures.
func (c *Compiled) ModelRecord() store.ModelRecord {
	return store.ModelRecord{
		Fingerprint:    c.fingerprint,
		Initializer:    c.init,
		NumDetectors:   c.NumDetectors(),
		NumObservables: c.NumObservables(),
	}
}

func (c *Compiled) acquire() (solver.Solver, error) {
	if s, ok := c.solvers.Get().(solver.Solver); ok {
		return s, nil
	}
	return c.factory(c.init, c.cfg.SolverConfig())
}

func (c *Compiled) release(s solver.Solver) {
	s.Clear()
	c.solvers.Put(s)
}
