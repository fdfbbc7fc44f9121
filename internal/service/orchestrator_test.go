package service

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/injoyai/logs"

	"github.com/itzana/itzanago/internal/chart"
	"github.com/itzana/itzanago/models"
)

type fakeAnalyst struct {
	result *models.AnalyticalResult
	err    error
	calls  int
}

func (f *fakeAnalyst) Analyze(ctx context.Context, _ string) (*models.AnalyticalResult, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	// hand out a copy so repeated calls see the same input
	r := *f.result
	return &r, nil
}

type fakeDecider struct {
	spec  *models.ChartSpec
	err   error
	panic bool
	calls int
}

func (f *fakeDecider) Decide(context.Context, []models.Record, string) (*models.ChartSpec, error) {
	f.calls++
	if f.panic {
		panic("decider exploded")
	}
	return f.spec, f.err
}

type fakeRenderer struct {
	ref   string
	err   error
	calls int
	got   models.ChartPayload
}

func (f *fakeRenderer) Render(_ context.Context, p models.ChartPayload) (string, error) {
	f.calls++
	f.got = p
	return f.ref, f.err
}

func revenueResult() *models.AnalyticalResult {
	rec := models.NewRecord()
	rec.Set("mes", "2024-01")
	rec.Set("ingresos", 1200.0)
	return &models.AnalyticalResult{
		Title:                 "Ingresos",
		ReturnedJSON:          []models.Record{rec},
		KeyFindings:           "k",
		Methodology:           "m",
		ResultsInterpretation: "i",
		Recommendations:       "r",
		Conclusion:            "c",
	}
}

func newTestOrchestrator(t *testing.T, a AnalyticalAgent, d ChartDecider, r ChartRenderer) *Orchestrator {
	t.Helper()
	o, err := NewOrchestrator(a, WithChart(chart.NewIntentDetector(nil), d, r))
	if err != nil {
		t.Fatalf("NewOrchestrator: %v", err)
	}
	return o
}

func TestAskWithoutChartKeyword(t *testing.T) {
	a := &fakeAnalyst{result: revenueResult()}
	d := &fakeDecider{spec: &models.ChartSpec{ChartType: "bar", X: "mes", Y: "ingresos"}}
	r := &fakeRenderer{ref: "https://img"}
	o := newTestOrchestrator(t, a, d, r)

	ans, err := o.Answer(context.Background(), "¿Cuánto ingresamos en enero?")
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if d.calls != 0 || r.calls != 0 {
		t.Fatalf("chart path ran without a keyword")
	}
	if ans.Chart.Requested || ans.Chart.Stage != StageSkipped {
		t.Fatalf("unexpected outcome %+v", ans.Chart)
	}
	if ans.Result.URLImg != nil || strings.Contains(ans.Markdown, "## Gráfica") {
		t.Fatalf("image attached without a keyword")
	}
}

func TestAskWithChart(t *testing.T) {
	a := &fakeAnalyst{result: revenueResult()}
	spec := &models.ChartSpec{ChartType: "bar", X: "mes", Y: "ingresos"}
	d := &fakeDecider{spec: spec}
	r := &fakeRenderer{ref: "https://quickchart.io/chart/render/x"}
	o := newTestOrchestrator(t, a, d, r)

	resp, err := o.Ask(context.Background(), "Hazme una gráfica de ingresos")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if !strings.HasSuffix(resp.Markdown, "## Gráfica\n\n![Ingresos](https://quickchart.io/chart/render/x)\n") {
		t.Fatalf("chart section missing:\n%s", resp.Markdown)
	}
	if r.got.Spec != *spec || r.got.Title != "Ingresos" || len(r.got.Records) != 1 {
		t.Fatalf("renderer got %+v", r.got)
	}
}

func TestChartFailureLeavesResponseUnchanged(t *testing.T) {
	question := "Visualiza los ingresos"
	plain, err := NewOrchestrator(&fakeAnalyst{result: revenueResult()})
	if err != nil {
		t.Fatalf("NewOrchestrator: %v", err)
	}
	want, err := plain.Ask(context.Background(), question)
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}

	spec := &models.ChartSpec{ChartType: "bar", X: "mes", Y: "ingresos"}
	cases := map[string]struct {
		d     *fakeDecider
		r     *fakeRenderer
		stage ChartStage
	}{
		"decider error":  {&fakeDecider{err: errors.New("bad json")}, &fakeRenderer{ref: "x"}, StageDecide},
		"decider panic":  {&fakeDecider{panic: true}, &fakeRenderer{ref: "x"}, StageDecide},
		"nil spec":       {&fakeDecider{}, &fakeRenderer{ref: "x"}, StageDecide},
		"renderer error": {&fakeDecider{spec: spec}, &fakeRenderer{err: errors.New("502")}, StageRender},
	}
	for name, tc := range cases {
		o := newTestOrchestrator(t, &fakeAnalyst{result: revenueResult()}, tc.d, tc.r)
		ans, err := o.Answer(context.Background(), question)
		if err != nil {
			t.Fatalf("%s: chart failure surfaced: %v", name, err)
		}
		if ans.Markdown != want.Markdown {
			t.Fatalf("%s: markdown differs from the no-chart answer", name)
		}
		if ans.Chart.Err == nil || ans.Chart.Stage != tc.stage || ans.Chart.Image != "" {
			t.Fatalf("%s: unexpected outcome %+v", name, ans.Chart)
		}
	}
}

func TestChartSkippedOnEmptyData(t *testing.T) {
	res := revenueResult()
	res.ReturnedJSON = nil
	d := &fakeDecider{spec: &models.ChartSpec{ChartType: "bar", X: "mes", Y: "ingresos"}}
	o := newTestOrchestrator(t, &fakeAnalyst{result: res}, d, &fakeRenderer{ref: "x"})

	ans, err := o.Answer(context.Background(), "gráfica")
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if d.calls != 0 || ans.Chart.Err == nil {
		t.Fatalf("expected chart path to stop before the decider")
	}
	if !strings.Contains(ans.Markdown, "_Sin datos_") {
		t.Fatalf("expected empty data marker")
	}
}

func TestAnalyticalFailureIsTerminal(t *testing.T) {
	cause := errors.New("model unavailable")
	a := &fakeAnalyst{err: cause}
	d := &fakeDecider{}
	o := newTestOrchestrator(t, a, d, &fakeRenderer{})

	_, err := o.Ask(context.Background(), "gráfica de ingresos")
	if !errors.Is(err, cause) {
		t.Fatalf("expected wrapped cause, got %v", err)
	}
	if a.calls != 1 || d.calls != 0 {
		t.Fatalf("expected one analyst call and no chart work, got %d/%d", a.calls, d.calls)
	}
}

func TestAskRejectsEmptyQuestion(t *testing.T) {
	o := newTestOrchestrator(t, &fakeAnalyst{result: revenueResult()}, nil, nil)
	if _, err := o.Ask(context.Background(), "   "); !errors.Is(err, ErrEmptyQuestion) {
		t.Fatalf("expected ErrEmptyQuestion, got %v", err)
	}
}

type slowAnalyst struct{}

func (slowAnalyst) Analyze(ctx context.Context, _ string) (*models.AnalyticalResult, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestAgentTimeout(t *testing.T) {
	o, err := NewOrchestrator(slowAnalyst{}, WithAgentTimeout(20*time.Millisecond))
	if err != nil {
		t.Fatalf("NewOrchestrator: %v", err)
	}
	if _, err := o.Ask(context.Background(), "q"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestNewOrchestratorRequiresAnalyst(t *testing.T) {
	if _, err := NewOrchestrator(nil); err == nil {
		t.Fatalf("expected error without analyst")
	}
}

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestAnswerLogsAnalyticalResult(t *testing.T) {
	out := &lockedBuffer{}
	logs.SetWriter(out)
	logs.SetLevel(logs.LevelDebug)
	t.Cleanup(func() {
		logs.SetWriter(logs.Stdout)
		logs.SetLevel(logs.LevelAll)
	})

	o := newTestOrchestrator(t, &fakeAnalyst{result: revenueResult()}, &fakeDecider{}, &fakeRenderer{})
	if _, err := o.Answer(context.Background(), "¿Cuánto ingresamos?"); err != nil {
		t.Fatalf("Answer: %v", err)
	}

	logged := out.String()
	for _, want := range []string{`"key_findings":"k"`, `"returned_json":[{"mes":"2024-01","ingresos":1200}]`} {
		if !strings.Contains(logged, want) {
			t.Fatalf("result not logged, missing %s in:\n%s", want, logged)
		}
	}
}
