// Package app ties the architecture graph, the path searcher and the latency
// composer into one query facade.
package app

import (
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hsgwa/trace-analysis/pkg/arch"
	"github.com/hsgwa/trace-analysis/pkg/graph"
	"github.com/hsgwa/trace-analysis/pkg/latency"
	"github.com/hsgwa/trace-analysis/pkg/logging"
	"github.com/hsgwa/trace-analysis/pkg/metrics"
	"github.com/hsgwa/trace-analysis/pkg/model"
	"github.com/hsgwa/trace-analysis/pkg/parallel"
	"github.com/hsgwa/trace-analysis/pkg/processor"
	"github.com/hsgwa/trace-analysis/pkg/trace"
)

// Option configures an Application.
type Option func(*Application)

// WithLogger overrides the default logger.
func WithLogger(l logging.Logger) Option {
	return func(a *Application) { a.logger = l }
}

// WithMetrics overrides the default metrics registry.
func WithMetrics(m *metrics.Registry) Option {
	return func(a *Application) { a.metrics = m }
}

// WithWorkers sets the worker count used for the per-node path collections.
func WithWorkers(n int) Option {
	return func(a *Application) { a.workers = n }
}

// Application answers path and latency queries over one architecture. Every
// log line carries the session id so queries over several traces can be told
// apart.
type Application struct {
	logger  logging.Logger
	metrics *metrics.Registry
	workers int

	session  uuid.UUID
	arch     *arch.Architecture
	composer *latency.Composer
	searcher *graph.Searcher

	aliasPaths map[string]*latency.Path
	nodePaths  map[string][]*latency.Path
}

// New builds the searcher over the architecture's edges, binds the trace
// data when given, and precomputes the per-node path collections. A nil
// DataModel yields a structural application: searches work, composition
// reports missing runtime data.
func New(architecture *arch.Architecture, data *model.DataModel, opts ...Option) (*Application, error) {
	a := &Application{
		logger:  logging.DefaultLogger(),
		metrics: metrics.DefaultRegistry(),
		workers: runtime.NumCPU(),
		session: uuid.New(),
		arch:    architecture,
	}
	for _, opt := range opts {
		opt(a)
	}
	a.logger = a.logger.With(
		logging.Component("app"),
		logging.String("session", a.session.String()))

	if data != nil {
		composer, err := latency.NewComposer(data,
			latency.WithLogger(a.logger),
			latency.WithMetrics(a.metrics))
		if err != nil {
			return nil, err
		}
		a.composer = composer
	}

	a.searcher = graph.NewSearcher(edgeBranches(architecture))

	if err := a.buildAliasPaths(); err != nil {
		return nil, err
	}
	if err := a.buildNodePaths(); err != nil {
		return nil, err
	}

	a.logger.Info("application ready",
		logging.Int("nodes", len(architecture.Nodes)),
		logging.Int("aliases", len(a.aliasPaths)))
	return a, nil
}

// FromEvents runs the whole pipeline: process the raw event sequence, derive
// the architecture from the resulting model and bind the model as trace data.
// Architecture options such as aliases or declared dependencies pass through
// to the derivation.
func FromEvents(events []trace.Event, archOpts []arch.Option, opts ...Option) (*Application, error) {
	cfg := &Application{
		logger:  logging.DefaultLogger(),
		metrics: metrics.DefaultRegistry(),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	data, err := processor.New(
		processor.WithLogger(cfg.logger),
		processor.WithMetrics(cfg.metrics),
	).Process(events)
	if err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}

	archOpts = append([]arch.Option{
		arch.WithLogger(cfg.logger),
		arch.WithMetrics(cfg.metrics),
	}, archOpts...)
	architecture, err := arch.FromModel(data, archOpts...)
	if err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}

	return New(architecture, data, opts...)
}

// edgeBranches flattens both edge types into searcher branches keyed by
// callback unique names.
func edgeBranches(a *arch.Architecture) []graph.Branch {
	var branches []graph.Branch
	for _, comm := range a.Communications {
		branches = append(branches, graph.Branch{
			From: comm.Publish.UniqueName(),
			To:   comm.Subscribe.UniqueName(),
		})
	}
	for _, vp := range a.VariablePassings {
		branches = append(branches, graph.Branch{
			From: vp.Write.UniqueName(),
			To:   vp.Read.UniqueName(),
		})
	}
	return branches
}

func (a *Application) buildAliasPaths() error {
	a.aliasPaths = make(map[string]*latency.Path, len(a.arch.Aliases))
	for _, alias := range a.arch.Aliases {
		callbacks := make([]*arch.Callback, 0, len(alias.CallbackNames))
		for _, name := range alias.CallbackNames {
			cb, err := a.arch.FindCallback(name)
			if err != nil {
				return fmt.Errorf("app: alias %q: %w", alias.Name, err)
			}
			callbacks = append(callbacks, cb)
		}
		a.aliasPaths[alias.Name] = latency.NewPath(a.arch, callbacks, a.composer)
	}
	return nil
}

// buildNodePaths collects every path between every ordered callback pair of
// each node, self pairs included. Nodes are independent, so they fan out
// over a worker pool.
func (a *Application) buildNodePaths() error {
	pool, err := parallel.NewWorkerPool(a.workers)
	if err != nil {
		return fmt.Errorf("app: %w", err)
	}

	var mu sync.Mutex
	a.nodePaths = make(map[string][]*latency.Path, len(a.arch.Nodes))

	for _, node := range a.arch.Nodes {
		node := node
		pool.Submit(func() {
			var paths []*latency.Path
			for _, from := range node.Callbacks {
				for _, to := range node.Callbacks {
					found, err := a.SearchPaths(from.UniqueName(), to.UniqueName())
					if err != nil {
						continue
					}
					paths = append(paths, found...)
				}
			}
			mu.Lock()
			a.nodePaths[node.Name] = paths
			mu.Unlock()
		})
	}
	pool.Wait()
	return nil
}

// SearchPaths returns every simple path between two callbacks, each ready
// for composition. Both endpoints must exist; an empty result is a valid
// answer.
func (a *Application) SearchPaths(start, end string) ([]*latency.Path, error) {
	began := time.Now()

	if _, err := a.arch.FindCallback(start); err != nil {
		a.metrics.RecordPathSearch("not_found", time.Since(began))
		return nil, err
	}
	if _, err := a.arch.FindCallback(end); err != nil {
		a.metrics.RecordPathSearch("not_found", time.Since(began))
		return nil, err
	}

	var paths []*latency.Path
	for _, vertices := range a.searcher.Search(start, end) {
		callbacks := make([]*arch.Callback, 0, len(vertices))
		for _, name := range vertices {
			cb, err := a.arch.FindCallback(name)
			if err != nil {
				a.metrics.RecordPathSearch("error", time.Since(began))
				return nil, err
			}
			callbacks = append(callbacks, cb)
		}
		paths = append(paths, latency.NewPath(a.arch, callbacks, a.composer))
	}

	a.metrics.RecordPathSearch("ok", time.Since(began))
	a.logger.Debug("path search finished",
		logging.Callback(start),
		logging.Callback(end),
		logging.Count(len(paths)))
	return paths, nil
}

// PathByAlias returns the precomputed path behind a declared alias.
func (a *Application) PathByAlias(name string) (*latency.Path, bool) {
	p, ok := a.aliasPaths[name]
	return p, ok
}

// NodePaths returns the precomputed path collection of one node: every path
// between every ordered pair of its callbacks, self pairs included.
func (a *Application) NodePaths(nodeName string) []*latency.Path {
	return a.nodePaths[nodeName]
}

// Architecture exposes the underlying graph.
func (a *Application) Architecture() *arch.Architecture {
	return a.arch
}

// Composer exposes the bound latency composer, nil for structural
// applications.
func (a *Application) Composer() *latency.Composer {
	return a.composer
}

// Session returns the id tagged onto this application's log lines.
func (a *Application) Session() uuid.UUID {
	return a.session
}
