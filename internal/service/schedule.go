package service

import (
	"context"
	"strings"
	"sync"

	"github.com/injoyai/logs"
	"github.com/robfig/cron/v3"
)

// Reloader is anything that can rebuild the snapshot on demand.
type Reloader interface {
	Reload(ctx context.Context) error
}

type ReloaderFunc func(ctx context.Context) error

func (f ReloaderFunc) Reload(ctx context.Context) error {
	return f(ctx)
}

// Scheduler periodically reloads the snapshot on a cron spec with seconds.
type Scheduler struct {
	cron *cron.Cron
}

// NewScheduler returns nil when spec is empty.
func NewScheduler(spec string, r Reloader) (*Scheduler, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return nil, nil
	}
	c := cron.New(cron.WithSeconds())
	_, err := c.AddFunc(spec, func() {
		if err := r.Reload(context.Background()); err != nil {
			logs.Errf("[Refresh] scheduled reload failed: %v\n", err)
		}
	})
	if err != nil {
		return nil, err
	}
	return &Scheduler{cron: c}, nil
}

func (s *Scheduler) Start() {
	if s == nil {
		return
	}
	s.cron.Start()
}

// Stop stops the schedule and waits for a running reload to finish.
func (s *Scheduler) Stop() {
	if s == nil {
		return
	}
	<-s.cron.Stop().Done()
}

// ReloadSchedule keeps one Scheduler running for the current reload_cron
// and swaps it when the expression changes.
type ReloadSchedule struct {
	reloader Reloader

	mu      sync.Mutex
	spec    string
	current *Scheduler
}

func NewReloadSchedule(r Reloader) *ReloadSchedule {
	return &ReloadSchedule{reloader: r}
}

// Apply starts the schedule for spec. An empty spec stops it. An invalid
// spec leaves the running schedule untouched.
func (s *ReloadSchedule) Apply(spec string) error {
	spec = strings.TrimSpace(spec)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current != nil && spec == s.spec {
		return nil
	}

	next, err := NewScheduler(spec, s.reloader)
	if err != nil {
		return err
	}
	s.current.Stop()
	s.current, s.spec = next, spec
	s.current.Start()
	if spec != "" {
		logs.Infof("[Refresh] reload schedule set to %q\n", spec)
	}
	return nil
}

func (s *ReloadSchedule) Spec() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.spec
}

func (s *ReloadSchedule) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current.Stop()
	s.current, s.spec = nil, ""
}
