package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/injoyai/logs"
)

const (
	configFileName  = "itzana.json"
	defaultDebounce = 300 * time.Millisecond
)

// Manager owns itzana.json. Edits made through Update are written back to
// disk; edits made by hand are picked up by Watch and handed to the
// subscriber, which rebuilds the engine.
type Manager struct {
	path     string
	debounce time.Duration

	mu       sync.RWMutex
	cfg      Config
	onChange func(Config)
	watching bool

	// set while our own write is landing so the watcher ignores it
	selfWrite atomic.Bool
}

type managerOptions struct {
	configPath    string
	initialConfig *Config
	debounce      time.Duration
}

type ManagerOption func(*managerOptions)

func NewManager(opts ...ManagerOption) (*Manager, error) {
	options := managerOptions{debounce: defaultDebounce}
	for _, opt := range opts {
		opt(&options)
	}

	path := options.configPath
	if path == "" {
		var err error
		if path, err = defaultConfigPath(); err != nil {
			return nil, err
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create config dir: %w", err)
	}

	cfg, err := loadOrCreateConfig(path, options)
	if err != nil {
		return nil, err
	}
	return &Manager{path: path, cfg: cfg, debounce: options.debounce}, nil
}

func (m *Manager) Get() Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg
}

func (m *Manager) Path() string {
	return m.path
}

// UpdateFromJSON merges a partial JSON document over the current config.
func (m *Manager) UpdateFromJSON(jsonStr string) error {
	cfg := m.Get()
	if err := json.Unmarshal([]byte(jsonStr), &cfg); err != nil {
		return fmt.Errorf("parse config json: %w", err)
	}
	return m.Update(cfg)
}

func (m *Manager) Update(next Config) error {
	if err := next.Validate(); err != nil {
		return err
	}
	if len(ChangedKeys(m.Get(), next)) == 0 {
		return nil
	}

	m.selfWrite.Store(true)
	if err := writeConfigFile(m.path, next); err != nil {
		m.selfWrite.Store(false)
		return err
	}
	time.AfterFunc(m.debounce, func() { m.selfWrite.Store(false) })

	m.apply(next)
	return nil
}

// Watch calls onChange after every effective edit of the config file until
// ctx is done. Calling it again only replaces the subscriber.
func (m *Manager) Watch(ctx context.Context, onChange func(Config)) error {
	m.mu.Lock()
	m.onChange = onChange
	if m.watching {
		m.mu.Unlock()
		return nil
	}
	m.watching = true
	m.mu.Unlock()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		m.setWatching(false)
		return fmt.Errorf("create config watcher: %w", err)
	}
	// the directory is watched because editors replace the file on save
	if err := watcher.Add(filepath.Dir(m.path)); err != nil {
		watcher.Close()
		m.setWatching(false)
		return fmt.Errorf("watch config dir: %w", err)
	}

	go m.watchLoop(ctx, watcher)
	return nil
}

func (m *Manager) setWatching(v bool) {
	m.mu.Lock()
	m.watching = v
	m.mu.Unlock()
}

func (m *Manager) watchLoop(ctx context.Context, watcher *fsnotify.Watcher) {
	defer watcher.Close()
	defer m.setWatching(false)

	var pending *time.Timer
	defer func() {
		if pending != nil {
			pending.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			logs.Errf("[Config] watcher error: %v\n", err)
		case evt, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !m.touchesConfig(evt) || m.selfWrite.Load() {
				continue
			}
			if pending != nil {
				pending.Stop()
			}
			pending = time.AfterFunc(m.debounce, m.reloadFromDisk)
		}
	}
}

func (m *Manager) touchesConfig(evt fsnotify.Event) bool {
	if filepath.Clean(evt.Name) != filepath.Clean(m.path) {
		return false
	}
	return evt.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0
}

func (m *Manager) reloadFromDisk() {
	var cfg Config
	err := loadConfigFromFile(m.path, &cfg)
	switch {
	case errors.Is(err, os.ErrNotExist):
		// deleted by hand: put the defaults back
		cfg = *DefaultConfigWithRoot(filepath.Dir(m.path))
		if err := writeConfigFile(m.path, cfg); err != nil {
			logs.Errf("[Config] recreate %s: %v\n", m.path, err)
			return
		}
	case err != nil:
		logs.Errf("[Config] reload %s: %v\n", m.path, err)
		return
	}
	if err := cfg.Validate(); err != nil {
		logs.Errf("[Config] ignoring invalid %s: %v\n", m.path, err)
		return
	}

	changed := ChangedKeys(m.Get(), cfg)
	if len(changed) == 0 {
		return
	}
	logs.Infof("[Config] reloaded %s, changed: %s\n", m.path, strings.Join(changed, ", "))
	for _, key := range changed {
		if key == "db_path" {
			logs.Infof("[Config] db_path takes effect after a restart\n")
		}
	}
	m.apply(cfg)
}

func (m *Manager) apply(cfg Config) {
	m.mu.Lock()
	m.cfg = cfg
	cb := m.onChange
	m.mu.Unlock()

	if cb != nil {
		cb(cfg)
	}
}

// ChangedKeys lists the JSON keys whose values differ between two configs.
// Fields that never reach the file (API keys) are compared too and reported
// by their Go name.
func ChangedKeys(prev, next Config) []string {
	pv, nv := reflect.ValueOf(prev), reflect.ValueOf(next)
	t := pv.Type()

	var keys []string
	for i := 0; i < t.NumField(); i++ {
		if reflect.DeepEqual(pv.Field(i).Interface(), nv.Field(i).Interface()) {
			continue
		}
		f := t.Field(i)
		name := strings.Split(f.Tag.Get("json"), ",")[0]
		if name == "" || name == "-" {
			name = f.Name
		}
		keys = append(keys, name)
	}
	return keys
}

func loadOrCreateConfig(path string, options managerOptions) (Config, error) {
	var cfg Config
	err := loadConfigFromFile(path, &cfg)
	if err == nil {
		return cfg, cfg.Validate()
	}
	if !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load config: %w", err)
	}

	if options.initialConfig != nil {
		cfg = *options.initialConfig
	} else {
		cfg = *DefaultConfigWithRoot(filepath.Dir(path))
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	if err := writeConfigFile(path, cfg); err != nil {
		return Config{}, fmt.Errorf("write initial config: %w", err)
	}
	return cfg, nil
}

func defaultConfigPath() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFileName), nil
}

// loadConfigFromFile starts from the defaults so keys missing from an older
// file keep sane values, then overlays the environment.
func loadConfigFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	base := DefaultConfigWithRoot(filepath.Dir(path))
	if err := json.Unmarshal(data, base); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	base.loadFromEnv()
	*cfg = *base
	return nil
}

// writeConfigFile replaces path atomically so the watcher never reads a
// half-written document.
func writeConfigFile(path string, cfg Config) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), "itzana-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp config: %w", err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	enc := json.NewEncoder(tmp)
	enc.SetIndent("", "  ")
	if err = enc.Encode(&cfg); err != nil {
		tmp.Close()
		return fmt.Errorf("encode config: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("flush config: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close temp config: %w", err)
	}
	return os.Rename(tmp.Name(), path)
}

func WithConfigDir(dir string) ManagerOption {
	return func(o *managerOptions) {
		if dir != "" {
			o.configPath = filepath.Join(dir, configFileName)
		}
	}
}

func WithConfigPath(path string) ManagerOption {
	return func(o *managerOptions) {
		if path != "" {
			o.configPath = path
		}
	}
}

func WithDebounce(d time.Duration) ManagerOption {
	return func(o *managerOptions) {
		if d > 0 {
			o.debounce = d
		}
	}
}

func WithInitialConfig(cfg *Config) ManagerOption {
	return func(o *managerOptions) {
		o.initialConfig = cfg
	}
}
