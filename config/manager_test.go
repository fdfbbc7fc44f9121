package config

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestManagerCreatesAndUpdates(t *testing.T) {
	dir := t.TempDir()
	mgr, err := NewManager(WithConfigDir(dir))
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	path := filepath.Join(dir, configFileName)
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("config file not created: %v", err)
	}

	cfg := mgr.Get()
	cfg.DataDir = filepath.Join(dir, "data")
	cfg.DBPath = filepath.Join(dir, "data", "snapshot.db")
	cfg.ChartKeywords = []string{"chart"}

	data, _ := json.Marshal(cfg)
	if err := mgr.UpdateFromJSON(string(data)); err != nil {
		t.Fatalf("UpdateFromJSON: %v", err)
	}

	updated := mgr.Get()
	if updated.DBPath != cfg.DBPath {
		t.Fatalf("expected db path %s, got %s", cfg.DBPath, updated.DBPath)
	}
	if len(updated.ChartKeywords) != 1 || updated.ChartKeywords[0] != "chart" {
		t.Fatalf("unexpected keywords %v", updated.ChartKeywords)
	}
}

func TestManagerRejectsInvalidConfig(t *testing.T) {
	mgr, err := NewManager(WithConfigDir(t.TempDir()))
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	if err := mgr.UpdateFromJSON(`{"llm_provider":"nope"}`); err == nil {
		t.Fatalf("expected validation error")
	}
	if mgr.Get().LLMProvider == "nope" {
		t.Fatalf("invalid config must not be applied")
	}
}

func TestManagerNeverPersistsSecrets(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test-secret")
	dir := t.TempDir()
	mgr, err := NewManager(WithConfigDir(dir))
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	if mgr.Get().OpenAIAPIKey != "sk-test-secret" {
		t.Fatalf("expected key from environment")
	}
	raw, err := os.ReadFile(mgr.Path())
	if err != nil {
		t.Fatalf("read config: %v", err)
	}
	if strings.Contains(string(raw), "sk-test-secret") {
		t.Fatalf("secret written to %s", mgr.Path())
	}
}

func TestManagerWatchReloads(t *testing.T) {
	dir := t.TempDir()
	mgr, err := NewManager(WithConfigDir(dir))
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reloaded := make(chan Config, 1)
	if err := mgr.Watch(ctx, func(cfg Config) {
		select {
		case reloaded <- cfg:
		default:
		}
	}); err != nil {
		t.Fatalf("Watch: %v", err)
	}

	cfg := mgr.Get()
	cfg.ChartKeywords = []string{"plot"}

	if err := writeConfigFile(mgr.Path(), cfg); err != nil {
		t.Fatalf("writeConfigFile: %v", err)
	}

	select {
	case got := <-reloaded:
		if len(got.ChartKeywords) != 1 || got.ChartKeywords[0] != "plot" {
			t.Fatalf("unexpected keywords after reload: %v", got.ChartKeywords)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("watcher did not fire on config change")
	}
}

func TestDurationJSON(t *testing.T) {
	var d Duration
	if err := json.Unmarshal([]byte(`"1m30s"`), &d); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if d.Std() != 90*time.Second {
		t.Fatalf("got %v", d.Std())
	}
	if err := json.Unmarshal([]byte(`2`), &d); err != nil {
		t.Fatalf("unmarshal number: %v", err)
	}
	if d.Std() != 2*time.Second {
		t.Fatalf("got %v", d.Std())
	}
	out, _ := json.Marshal(Duration(5 * time.Second))
	if string(out) != `"5s"` {
		t.Fatalf("marshal: %s", out)
	}
}

func TestChangedKeys(t *testing.T) {
	prev := *DefaultConfigWithRoot(t.TempDir())
	next := prev
	if keys := ChangedKeys(prev, next); len(keys) != 0 {
		t.Fatalf("expected no changes, got %v", keys)
	}

	next.ChartKeywords = []string{"plot"}
	next.DBPath = "other.db"
	next.OpenAIAPIKey = "sk-other"
	keys := ChangedKeys(prev, next)
	want := []string{"db_path", "chart_keywords", "OpenAIAPIKey"}
	if len(keys) != len(want) {
		t.Fatalf("got %v, want %v", keys, want)
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Fatalf("got %v, want %v", keys, want)
		}
	}
}
