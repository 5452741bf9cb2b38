package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/gyaneshwarpardhi/scenenodes/internal/config"
	"github.com/gyaneshwarpardhi/scenenodes/internal/graph"
	"github.com/gyaneshwarpardhi/scenenodes/internal/metrics"
	"github.com/gyaneshwarpardhi/scenenodes/internal/source"
	"github.com/gyaneshwarpardhi/scenenodes/internal/store"
)

const (
	StatusFinished  = "FINISHED"
	StatusCancelled = "CANCELLED"
)

var (
	// ErrQueueFull means the command queue had no room.
	ErrQueueFull = errors.New("command queue full")

	// ErrTimeout means a command was still queued when its caller gave up.
	// It was withdrawn and never runs.
	ErrTimeout = errors.New("command timed out before it ran")
)

// Result is the outcome of one graph command.
type Result struct {
	Op         string           `json:"op"`
	Status     string           `json:"status"`
	Reason     string           `json:"reason,omitempty"`
	DurationMs int64            `json:"duration_ms"`
	Report     *graph.Report    `json:"report,omitempty"`
	Node       *graph.NodeState `json:"node,omitempty"`
	Rebound    int              `json:"rebound,omitempty"`
	Snapshot   *graph.Snapshot  `json:"-"`
}

// Options wires the engine to its surroundings.
type Options struct {
	// Config returns the configuration the engine starts from. Reconfigure
	// replaces its filter, layout and lifecycle settings afterwards.
	Config func() *config.Config
	// Store persists the graph after mutating commands. Optional.
	Store *store.GraphStore
	// Document is the host document path. When set, the source model is
	// saved to it after mutating commands and it keys the stored snapshot.
	Document string
	Logger   *slog.Logger
}

// Engine serializes every command against one graph session onto a single
// worker goroutine.
type Engine struct {
	session *graph.Session
	opts    Options
	conf    config.EngineConf
	filter  config.FilterConf // worker goroutine only
	pool    *workerPool[*command]
	log     *slog.Logger
}

const (
	cmdPending int32 = iota
	cmdRunning
	cmdWithdrawn
)

type command struct {
	op      string
	mutates bool
	run     func(s *graph.Session) (*Result, error)
	resultC chan outcome
	state   atomic.Int32
}

type outcome struct {
	res *Result
	err error
}

// documentSaver is implemented by models that can write themselves back to
// the host document.
type documentSaver interface {
	SaveDocument(path string) error
}

// New creates an Engine around session and starts its worker.
func New(ctx context.Context, session *graph.Session, opts Options) *Engine {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Config == nil {
		def := config.Default()
		opts.Config = func() *config.Config { return def }
	}
	cfg := opts.Config()
	e := &Engine{
		session: session,
		opts:    opts,
		conf:    cfg.Engine,
		filter:  cfg.Filter,
		log:     opts.Logger,
	}
	e.pool = newWorkerPool(ctx, 1, e.conf.QueueDepth, func(ctx context.Context, c *command) {
		if !c.state.CompareAndSwap(cmdPending, cmdRunning) {
			e.log.Debug("withdrawn command skipped", "op", c.op)
			return
		}
		res, err := e.execute(c)
		c.resultC <- outcome{res: res, err: err}
	})
	return e
}

// Rebuild reconstructs the graph from the source model using the last
// applied filter.
func (e *Engine) Rebuild(ctx context.Context) (*Result, error) {
	return e.submit(ctx, "rebuild", true, e.rebuild)
}

// Reconfigure applies the filter, layout and lifecycle settings of cfg, then
// rebuilds. The filter stays in effect for later rebuilds.
func (e *Engine) Reconfigure(ctx context.Context, cfg *config.Config) (*Result, error) {
	return e.submit(ctx, "reconfigure", true, func(s *graph.Session) (*Result, error) {
		err := s.Configure(graph.Options{
			Layout:          cfg.Layout,
			DuplicableTypes: cfg.Lifecycle.DuplicableTypes,
			Logger:          e.log,
		})
		if err != nil {
			return nil, err
		}
		e.filter = cfg.Filter
		return e.rebuild(s)
	})
}

// Relink points an object at a new parent, or at its scene when parent is empty.
func (e *Engine) Relink(ctx context.Context, object, parent source.ID) (*Result, error) {
	return e.submit(ctx, "relink", true, func(s *graph.Session) (*Result, error) {
		err := s.Relink(object, parent)
		syncOutcome("relink", err)
		return e.nodeResult(s, graph.KindObject, object), err
	})
}

// Unlink removes an object's parent link, making it a scene root.
func (e *Engine) Unlink(ctx context.Context, object source.ID) (*Result, error) {
	return e.submit(ctx, "unlink", true, func(s *graph.Session) (*Result, error) {
		err := s.Unlink(object)
		syncOutcome("unlink", err)
		return e.nodeResult(s, graph.KindObject, object), err
	})
}

// Remove deletes a node and its backing entity.
func (e *Engine) Remove(ctx context.Context, kind graph.Kind, key source.ID) (*Result, error) {
	return e.submit(ctx, "remove", true, func(s *graph.Session) (*Result, error) {
		err := s.Remove(kind, key)
		lifecycleOutcome("remove", err)
		return &Result{}, err
	})
}

// Duplicate copies a node together with its backing entity.
func (e *Engine) Duplicate(ctx context.Context, kind graph.Kind, key source.ID) (*Result, error) {
	return e.submit(ctx, "duplicate", true, func(s *graph.Session) (*Result, error) {
		n, err := s.Duplicate(kind, key)
		lifecycleOutcome("duplicate", err)
		res := &Result{}
		if err == nil && n != nil {
			st := n.State()
			res.Node = &st
		}
		return res, err
	})
}

// Reindex re-resolves the identity keys of a scene's object nodes.
func (e *Engine) Reindex(ctx context.Context, scene source.ID) (*Result, error) {
	return e.submit(ctx, "reindex", true, func(s *graph.Session) (*Result, error) {
		n, err := s.Reindex(scene)
		lifecycleOutcome("reindex", err)
		return &Result{Rebound: n}, err
	})
}

// Graph returns a snapshot of the current graph.
func (e *Engine) Graph(ctx context.Context) (*graph.Snapshot, error) {
	res, err := e.submit(ctx, "graph", false, func(s *graph.Session) (*Result, error) {
		return &Result{Snapshot: s.Snapshot()}, nil
	})
	if err != nil {
		return nil, err
	}
	return res.Snapshot, nil
}

// RestoreSaved loads the stored snapshot of the document into the session.
// It reports false when there is no store, nothing was saved yet, or the
// snapshot no longer matches the source model. A stale snapshot is deleted.
// The caller rebuilds whenever false comes back.
func (e *Engine) RestoreSaved(ctx context.Context) (bool, error) {
	if e.opts.Store == nil {
		return false, nil
	}
	rec, err := e.opts.Store.Load(e.docKey())
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	_, err = e.submit(ctx, "restore", false, func(s *graph.Session) (*Result, error) {
		return &Result{}, s.Restore(rec.Snapshot, e.filter)
	})
	if errors.Is(err, graph.ErrStaleSnapshot) {
		e.log.Info("stored snapshot is stale, dropping it", "document", e.docKey(), "saved_at", rec.SavedAt, "err", err)
		if derr := e.opts.Store.Delete(e.docKey()); derr != nil {
			e.log.Warn("drop stale snapshot failed", "document", e.docKey(), "err", derr)
		}
		return false, nil
	}
	if err != nil {
		return false, err
	}
	e.log.Info("graph restored", "document", e.docKey(), "saved_at", rec.SavedAt, "nodes", len(rec.Snapshot.Nodes))
	return true, nil
}

// QueueUtilization returns queue used / capacity (0–1).
func (e *Engine) QueueUtilization() float64 {
	if e.pool.QueueCap() == 0 {
		return 0
	}
	return float64(e.pool.QueueLen()) / float64(e.pool.QueueCap())
}

// Shutdown drains the queue gracefully.
func (e *Engine) Shutdown() {
	e.pool.Drain()
}

func (e *Engine) submit(ctx context.Context, op string, mutates bool, run func(*graph.Session) (*Result, error)) (*Result, error) {
	c := &command{op: op, mutates: mutates, run: run, resultC: make(chan outcome, 1)}
	if !e.pool.Submit(c) {
		metrics.CommandsDropped.Inc()
		return nil, fmt.Errorf("%w (capacity %d)", ErrQueueFull, e.conf.QueueDepth)
	}
	metrics.CommandsEnqueued.Inc()
	metrics.QueueUtilization.Set(e.QueueUtilization())

	timeout := time.Duration(e.conf.CommandTimeoutMs) * time.Millisecond
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	var err error
	select {
	case out := <-c.resultC:
		return out.res, out.err
	case <-timer.C:
		err = fmt.Errorf("%w: %s after %v", ErrTimeout, op, timeout)
	case <-ctx.Done():
		err = ctx.Err()
	}
	if c.state.CompareAndSwap(cmdPending, cmdWithdrawn) {
		metrics.CommandsWithdrawn.Inc()
		return nil, err
	}
	// Already running: its effects land, so wait and report them.
	out := <-c.resultC
	return out.res, out.err
}

// execute runs on the worker goroutine.
func (e *Engine) execute(c *command) (res *Result, err error) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s panicked: %v", c.op, r)
			e.log.Error("command panicked", "op", c.op, "panic", r)
		}
		if res == nil {
			res = &Result{}
		}
		res.Op = c.op
		res.DurationMs = time.Since(start).Milliseconds()
		res.Status = StatusFinished
		if err != nil {
			res.Status = StatusCancelled
			res.Reason = err.Error()
		}
		metrics.QueueUtilization.Set(e.QueueUtilization())
	}()

	res, err = c.run(e.session)
	e.observeGraph()
	if c.mutates {
		if perr := e.persist(); perr != nil {
			e.log.Error("persist failed", "op", c.op, "err", perr)
			err = errors.Join(err, perr)
		}
	}
	return res, err
}

func (e *Engine) rebuild(s *graph.Session) (*Result, error) {
	start := time.Now()
	rep, err := s.Rebuild(e.filter)
	metrics.RebuildDuration.Observe(float64(time.Since(start).Microseconds()) / 1000)
	if err != nil {
		metrics.Rebuilds.WithLabelValues("cancelled").Inc()
		e.log.Warn("rebuild cancelled", "err", err)
		return &Result{Report: rep}, err
	}
	metrics.Rebuilds.WithLabelValues("finished").Inc()
	for _, sk := range rep.Skipped {
		metrics.RebuildSkipped.WithLabelValues(skipReason(sk.Err)).Inc()
	}
	e.log.Info("rebuild finished",
		"scenes", rep.Scenes, "objects", rep.Objects, "materials", rep.Materials,
		"links", rep.Links, "skipped", len(rep.Skipped),
	)
	return &Result{Report: rep}, nil
}

func (e *Engine) nodeResult(s *graph.Session, kind graph.Kind, key source.ID) *Result {
	res := &Result{}
	if n := s.Graph().Lookup(kind, key); n != nil {
		st := n.State()
		res.Node = &st
	}
	return res
}

func (e *Engine) observeGraph() {
	g := e.session.Graph()
	for _, k := range []graph.Kind{graph.KindScene, graph.KindObject, graph.KindMaterial} {
		metrics.GraphNodes.WithLabelValues(string(k)).Set(float64(g.CountKind(k)))
	}
}

// persist stores the snapshot and writes the host document back.
func (e *Engine) persist() error {
	var errs []error
	if e.opts.Store != nil {
		errs = append(errs, e.opts.Store.Save(e.docKey(), e.session.Snapshot()))
	}
	if e.opts.Document != "" {
		if saver, ok := e.session.Model().(documentSaver); ok {
			errs = append(errs, saver.SaveDocument(e.opts.Document))
		}
	}
	return errors.Join(errs...)
}

func (e *Engine) docKey() string {
	if e.opts.Document == "" {
		return "default"
	}
	return e.opts.Document
}

func skipReason(err error) string {
	switch {
	case errors.Is(err, graph.ErrStaleIdentity):
		return "stale_identity"
	case errors.Is(err, graph.ErrCycleRisk):
		return "cycle_risk"
	default:
		return "other"
	}
}

func syncOutcome(op string, err error) {
	result := "applied"
	switch {
	case err == nil:
	case errors.Is(err, graph.ErrCycleRisk), errors.Is(err, graph.ErrInvalidLink):
		result = "rejected"
	case errors.Is(err, graph.ErrStaleIdentity):
		result = "stale"
	default:
		result = "error"
	}
	metrics.SyncEvents.WithLabelValues(op, result).Inc()
}

func lifecycleOutcome(event string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.LifecycleEvents.WithLabelValues(event, status).Inc()
}
