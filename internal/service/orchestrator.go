package service

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"github.com/injoyai/logs"
	"github.com/pkg/errors"

	"github.com/itzana/itzanago/internal/report"
	"github.com/itzana/itzanago/models"
)

var ErrEmptyQuestion = errors.New("question is required")

type AnalyticalAgent interface {
	Analyze(ctx context.Context, question string) (*models.AnalyticalResult, error)
}

type ChartDecider interface {
	Decide(ctx context.Context, records []models.Record, question string) (*models.ChartSpec, error)
}

type ChartRenderer interface {
	Render(ctx context.Context, payload models.ChartPayload) (string, error)
}

type IntentDetector interface {
	Wants(question string) bool
}

type ChartStage string

const (
	StageSkipped ChartStage = "skipped"
	StageDecide  ChartStage = "decide"
	StageRender  ChartStage = "render"
	StageDone    ChartStage = "done"
)

// ChartOutcome records what happened on the optional chart path. Err is
// only ever logged.
type ChartOutcome struct {
	Requested bool
	Spec      *models.ChartSpec
	Image     string
	Stage     ChartStage
	Err       error
}

// Answer is the full result of one question.
type Answer struct {
	Markdown string
	Result   *models.AnalyticalResult
	Chart    ChartOutcome
}

type Orchestrator struct {
	analyst      AnalyticalAgent
	decider      ChartDecider
	renderer     ChartRenderer
	intent       IntentDetector
	agentTimeout time.Duration
}

type OrchestratorOption func(*Orchestrator)

// WithChart enables the chart path. Without it every question is answered
// without an image.
func WithChart(intent IntentDetector, decider ChartDecider, renderer ChartRenderer) OrchestratorOption {
	return func(o *Orchestrator) {
		o.intent = intent
		o.decider = decider
		o.renderer = renderer
	}
}

// WithAgentTimeout bounds each agent call. Zero means no bound.
func WithAgentTimeout(d time.Duration) OrchestratorOption {
	return func(o *Orchestrator) {
		o.agentTimeout = d
	}
}

func NewOrchestrator(analyst AnalyticalAgent, opts ...OrchestratorOption) (*Orchestrator, error) {
	if analyst == nil {
		return nil, fmt.Errorf("analytical agent is required")
	}
	o := &Orchestrator{analyst: analyst}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// Ask answers a question as markdown.
func (o *Orchestrator) Ask(ctx context.Context, question string) (*models.MarkdownResponse, error) {
	ans, err := o.Answer(ctx, question)
	if err != nil {
		return nil, err
	}
	return &models.MarkdownResponse{Markdown: ans.Markdown}, nil
}

func (o *Orchestrator) Answer(ctx context.Context, question string) (*Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, ErrEmptyQuestion
	}
	logs.Infof("[Ask] question received: %q\n", question)

	actx, cancel := o.withTimeout(ctx)
	logs.Debugf("[Ask] analytical agent start\n")
	result, err := o.analyst.Analyze(actx, question)
	cancel()
	if err != nil {
		return nil, errors.Wrap(err, "analytical agent")
	}
	if result == nil {
		return nil, errors.New("analytical agent returned no result")
	}
	result.URLImg = nil
	logs.Debugf("[Ask] analytical agent done: %q, %d records\n", result.Title, len(result.ReturnedJSON))
	if raw, err := json.Marshal(result); err == nil {
		logs.Debugf("[Ask] analytical result: %s\n", raw)
	}

	outcome := o.chart(ctx, question, result)
	if outcome.Err != nil {
		logs.Errf("[Chart] failed at %s stage: %+v\n", outcome.Stage, outcome.Err)
	}
	if outcome.Image != "" {
		img := outcome.Image
		result.URLImg = &img
	}

	md, err := report.Assemble(result)
	if err != nil {
		return nil, errors.Wrap(err, "assemble response")
	}
	logs.Infof("[Ask] answered %q (chart: %s)\n", result.Title, outcome.Stage)
	return &Answer{Markdown: md, Result: result, Chart: outcome}, nil
}

// chart runs decide then render. Every error and panic stays inside the
// returned outcome.
func (o *Orchestrator) chart(ctx context.Context, question string, result *models.AnalyticalResult) (out ChartOutcome) {
	out.Stage = StageSkipped
	if o.intent == nil || !o.intent.Wants(question) {
		return out
	}
	out.Requested = true
	out.Stage = StageDecide

	defer func() {
		if r := recover(); r != nil {
			out.Image = ""
			out.Err = errors.Errorf("panic: %v\n%s", r, debug.Stack())
		}
	}()

	if o.decider == nil || o.renderer == nil {
		out.Err = errors.New("chart pipeline is not configured")
		return out
	}
	if len(result.ReturnedJSON) == 0 {
		out.Err = errors.New("no data to chart")
		return out
	}

	logs.Debugf("[Chart] decision agent start\n")
	dctx, cancel := o.withTimeout(ctx)
	spec, err := o.decider.Decide(dctx, result.ReturnedJSON, question)
	cancel()
	if err != nil {
		out.Err = errors.Wrap(err, "chart decision")
		return out
	}
	if spec == nil {
		out.Err = errors.New("chart decision returned no spec")
		return out
	}
	out.Spec = spec
	logs.Debugf("[Chart] decided %s x=%s y=%s\n", spec.ChartType, spec.X, spec.Y)

	out.Stage = StageRender
	ref, err := o.renderer.Render(ctx, models.ChartPayload{
		Records: result.ReturnedJSON,
		Spec:    *spec,
		Title:   result.Title,
	})
	if err != nil {
		out.Err = errors.Wrap(err, "chart render")
		return out
	}
	out.Image = ref
	out.Stage = StageDone
	return out
}

func (o *Orchestrator) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if o.agentTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, o.agentTimeout)
}
