package chart

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/injoyai/logs"

	"github.com/itzana/itzanago/config"
	"github.com/itzana/itzanago/models"
)

// QuickChartRenderer renders Chart.js configs through a QuickChart server.
// In url mode it returns a hosted short URL; in file mode it writes a PNG
// into the results directory and returns its path.
type QuickChartRenderer struct {
	client    *resty.Client
	mode      string
	width     int
	height    int
	outputDir string
	seq       atomic.Uint64
}

func NewQuickChartRenderer(cfg *config.Config) *QuickChartRenderer {
	timeout := cfg.RenderTimeout.Std()
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	client := resty.New()
	client.SetBaseURL(cfg.QuickChartURL)
	client.SetTimeout(timeout)
	client.SetHeader("Content-Type", "application/json")

	return &QuickChartRenderer{
		client:    client,
		mode:      cfg.ChartOutput,
		width:     cfg.ChartWidth,
		height:    cfg.ChartHeight,
		outputDir: filepath.Join(cfg.ResultsDir, "charts"),
	}
}

type quickChartRequest struct {
	Chart           map[string]any `json:"chart"`
	Width           int            `json:"width,omitempty"`
	Height          int            `json:"height,omitempty"`
	Format          string         `json:"format"`
	BackgroundColor string         `json:"backgroundColor"`
}

type quickChartCreateResponse struct {
	Success bool   `json:"success"`
	URL     string `json:"url"`
}

// Render returns an image reference for the payload.
func (r *QuickChartRenderer) Render(ctx context.Context, p models.ChartPayload) (string, error) {
	chartCfg, err := BuildConfig(p)
	if err != nil {
		return "", err
	}
	body := quickChartRequest{
		Chart:           chartCfg,
		Width:           r.width,
		Height:          r.height,
		Format:          "png",
		BackgroundColor: "white",
	}

	if r.mode == config.ChartOutputFile {
		return r.renderFile(ctx, body)
	}
	return r.renderURL(ctx, body)
}

func (r *QuickChartRenderer) renderURL(ctx context.Context, body quickChartRequest) (string, error) {
	var out quickChartCreateResponse
	resp, err := r.client.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&out).
		Post("/chart/create")
	if err != nil {
		return "", fmt.Errorf("quickchart create: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("quickchart create: status %d: %s", resp.StatusCode(), truncate(resp.String(), 200))
	}
	if !out.Success || out.URL == "" {
		return "", fmt.Errorf("quickchart create: no url returned")
	}
	logs.Debugf("[Chart] created %s\n", out.URL)
	return out.URL, nil
}

func (r *QuickChartRenderer) renderFile(ctx context.Context, body quickChartRequest) (string, error) {
	resp, err := r.client.R().
		SetContext(ctx).
		SetBody(body).
		Post("/chart")
	if err != nil {
		return "", fmt.Errorf("quickchart render: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("quickchart render: status %d: %s", resp.StatusCode(), truncate(resp.String(), 200))
	}
	if len(resp.Body()) == 0 {
		return "", fmt.Errorf("quickchart render: empty image")
	}

	if err := os.MkdirAll(r.outputDir, 0o755); err != nil {
		return "", fmt.Errorf("create chart dir: %w", err)
	}
	name := fmt.Sprintf("chart_%s_%d.png", time.Now().Format("20060102_150405"), r.seq.Add(1))
	path := filepath.Join(r.outputDir, name)
	if err := os.WriteFile(path, resp.Body(), 0o644); err != nil {
		return "", fmt.Errorf("write chart: %w", err)
	}
	logs.Debugf("[Chart] wrote %s\n", path)
	return path, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
