package app

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/injoyai/logs"
	"github.com/pkg/errors"

	"github.com/itzana/itzanago/config"
	"github.com/itzana/itzanago/internal/agents"
	"github.com/itzana/itzanago/internal/chart"
	"github.com/itzana/itzanago/internal/loader"
	"github.com/itzana/itzanago/internal/service"
	"github.com/itzana/itzanago/internal/storage"
	"github.com/itzana/itzanago/models"
)

type Asker interface {
	Ask(ctx context.Context, question string) (*models.MarkdownResponse, error)
}

type Reloader interface {
	Reload(ctx context.Context) (*models.ReloadResult, error)
}

// Engine is one immutable wiring of the pipeline for a config version.
type Engine struct {
	Config   config.Config
	Asker    Asker
	Reloader Reloader
	BuiltAt  time.Time
	Version  uint64
}

var engineSeq atomic.Uint64

func NewEngine(cfg config.Config, asker Asker, reloader Reloader) *Engine {
	return &Engine{
		Config:   cfg,
		Asker:    asker,
		Reloader: reloader,
		BuiltAt:  time.Now(),
		Version:  engineSeq.Add(1),
	}
}

// unavailableAsker answers every question with the reason the question
// pipeline could not be built.
type unavailableAsker struct {
	err error
}

func (a unavailableAsker) Ask(context.Context, string) (*models.MarkdownResponse, error) {
	return nil, errors.Wrap(a.err, "question pipeline unavailable")
}

// NewEngineBuilder wires agents, chart path and refresher around a shared
// snapshot. The snapshot outlives engines; only the collaborators are rebuilt.
// The refresher needs no model, so a missing API key only disables questions.
func NewEngineBuilder(snap *storage.Snapshot) EngineBuilder {
	return func(cfg config.Config) (*Engine, error) {
		if snap == nil {
			return nil, fmt.Errorf("snapshot is required")
		}
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		refresher := service.NewRefresher(loader.NewXLSXLoader(), snap, cfg.ReservationsFile, cfg.AccountsFile)

		var asker Asker
		orch, err := buildOrchestrator(context.Background(), cfg, snap)
		switch {
		case errors.Is(err, agents.ErrNoAPIKey):
			logs.Errf("[Runtime] %v: /ask disabled, reload still available\n", err)
			asker = unavailableAsker{err: err}
		case err != nil:
			return nil, err
		default:
			asker = orch
		}
		return NewEngine(cfg, asker, refresher), nil
	}
}

func buildOrchestrator(ctx context.Context, cfg config.Config, snap *storage.Snapshot) (*service.Orchestrator, error) {
	analystModel, err := agents.NewChatModel(ctx, &cfg, cfg.AnalystLLM)
	if err != nil {
		return nil, err
	}
	chartModel, err := agents.NewChatModel(ctx, &cfg, cfg.ChartLLM)
	if err != nil {
		return nil, err
	}

	analyst, err := agents.NewAnalyticalAgent(ctx, analystModel, snap, cfg.MaxAgentSteps)
	if err != nil {
		return nil, err
	}
	decider, err := agents.NewChartDecider(ctx, chartModel, chart.SupportedTypes)
	if err != nil {
		return nil, err
	}

	return service.NewOrchestrator(analyst,
		service.WithChart(chart.NewIntentDetector(cfg.ChartKeywords), decider, chart.NewQuickChartRenderer(&cfg)),
		service.WithAgentTimeout(cfg.AgentTimeout.Std()),
	)
}
