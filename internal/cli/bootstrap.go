package cli

import (
	"fmt"

	"github.com/injoyai/logs"

	"github.com/itzana/itzanago/config"
	"github.com/itzana/itzanago/internal/storage"
	"github.com/itzana/itzanago/pkg/app"
)

// session bundles what every command that touches the pipeline needs.
type session struct {
	cfgMgr   *config.Manager
	snapshot *storage.Snapshot
	runtime  *app.Runtime
}

func newConfigManager(configPath string) (*config.Manager, error) {
	var opts []config.ManagerOption
	if configPath != "" {
		opts = append(opts, config.WithConfigPath(configPath))
	}
	return config.NewManager(opts...)
}

func openSession(configPath string, opts ...app.Option) (*session, error) {
	cfgMgr, err := newConfigManager(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	cfg := cfgMgr.Get()
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to create directories: %w", err)
	}

	applyLogLevel(cfg.Debug)

	snap, err := storage.Open(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	opts = append([]app.Option{
		app.WithBuilder(app.NewEngineBuilder(snap)),
		app.OnSwap(func(_, next *app.Engine) { applyLogLevel(next.Config.Debug) }),
	}, opts...)
	rt, err := app.NewRuntime(cfgMgr, opts...)
	if err != nil {
		_ = snap.Close()
		return nil, err
	}
	return &session{cfgMgr: cfgMgr, snapshot: snap, runtime: rt}, nil
}

// logLevel maps the debug switch onto the logger: stage traces and agent
// callbacks are debug lines.
func logLevel(debug bool) logs.Level {
	if debug {
		return logs.LevelDebug
	}
	return logs.LevelInfo
}

func applyLogLevel(debug bool) {
	logs.SetLevel(logLevel(debug))
}

func (s *session) Close() {
	s.runtime.Close()
	_ = s.snapshot.Close()
}
