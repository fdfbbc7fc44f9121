package app

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/injoyai/logs"

	"github.com/itzana/itzanago/config"
)

type EngineBuilder func(config.Config) (*Engine, error)

// SwapFunc is told about every engine that replaces the current one.
type SwapFunc func(prev, next *Engine)

type Option func(*Runtime)

func WithBuilder(builder EngineBuilder) Option {
	return func(r *Runtime) {
		if builder != nil {
			r.builder = builder
		}
	}
}

// OnSwap registers fn for engine swaps. It is not called for the first
// engine built by NewRuntime.
func OnSwap(fn SwapFunc) Option {
	return func(r *Runtime) {
		if fn != nil {
			r.onSwap = append(r.onSwap, fn)
		}
	}
}

// Runtime keeps the current engine and rebuilds it whenever the config
// file changes. Requests hold the engine they started with, and a config
// that fails to build leaves the previous engine serving.
type Runtime struct {
	cfgMgr  *config.Manager
	builder EngineBuilder
	onSwap  []SwapFunc

	engine   atomic.Pointer[Engine]
	failures atomic.Int64
	cancel   context.CancelFunc
}

func NewRuntime(cfgMgr *config.Manager, opts ...Option) (*Runtime, error) {
	if cfgMgr == nil {
		return nil, fmt.Errorf("config manager is required")
	}
	rt := &Runtime{cfgMgr: cfgMgr}
	for _, opt := range opts {
		opt(rt)
	}
	if rt.builder == nil {
		return nil, fmt.Errorf("engine builder is required")
	}

	first, err := rt.builder(cfgMgr.Get())
	if err != nil {
		return nil, fmt.Errorf("build engine: %w", err)
	}
	rt.engine.Store(first)
	logs.Infof("[Runtime] engine %d ready (provider %s, analyst %s)\n",
		first.Version, first.Config.LLMProvider, first.Config.AnalystLLM)

	ctx, cancel := context.WithCancel(context.Background())
	rt.cancel = cancel
	if err := cfgMgr.Watch(ctx, rt.rebuild); err != nil {
		cancel()
		return nil, err
	}
	return rt, nil
}

func (r *Runtime) Engine() *Engine {
	return r.engine.Load()
}

// Failures counts config changes that did not produce a new engine.
func (r *Runtime) Failures() int64 {
	return r.failures.Load()
}

func (r *Runtime) Close() {
	if r.cancel != nil {
		r.cancel()
	}
}

func (r *Runtime) UpdateConfigJSON(jsonStr string) error {
	return r.cfgMgr.UpdateFromJSON(jsonStr)
}

func (r *Runtime) rebuild(cfg config.Config) {
	prev := r.Engine()
	next, err := r.builder(cfg)
	if err != nil {
		r.failures.Add(1)
		logs.Errf("[Runtime] engine rebuild failed, engine %d keeps serving: %v\n", prev.Version, err)
		return
	}
	r.engine.Store(next)

	changed := config.ChangedKeys(prev.Config, next.Config)
	logs.Infof("[Runtime] engine %d replaced engine %d (%s)\n",
		next.Version, prev.Version, strings.Join(changed, ", "))
	for _, fn := range r.onSwap {
		fn(prev, next)
	}
}
