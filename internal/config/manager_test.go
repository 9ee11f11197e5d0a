package config

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

const baseYAML = `subsystem:
  enabled: true
metric-sets:
  - name: wildfly-memory
    metrics:
      - name: heap-used
        attribute: heap-memory-usage#used
        interval: 30s
        units: bytes
resource-type-sets:
  - name: main
    resource-types:
      - name: WildFly Server
        resource-name-template: WildFly Server [%s]
        metric-sets:
          - wildfly-memory
managed-servers:
  - name: local-wildfly
    protocol: dmr
    endpoint: http://127.0.0.1:9990
    resource-type-sets:
      - main
`

// writeConfig writes content to a fresh temp file and returns its path.
func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "agent.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	return path
}

// loadedManager returns a manager with baseYAML loaded.
func loadedManager(t *testing.T) *Manager {
	t.Helper()
	m := NewManager(writeConfig(t, baseYAML))
	if _, err := m.Load(false); err != nil {
		t.Fatalf("Load: %v", err)
	}
	return m
}

func TestManager_LoadAndHas(t *testing.T) {
	m := NewManager(writeConfig(t, baseYAML))

	if m.HasConfiguration() {
		t.Fatal("HasConfiguration before Load: got true")
	}
	cfg, err := m.Load(false)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !m.HasConfiguration() {
		t.Fatal("HasConfiguration after Load: got false")
	}
	if len(cfg.MetricSets) != 1 || cfg.MetricSets[0].Name != "wildfly-memory" {
		t.Errorf("metric-sets: got %+v", cfg.MetricSets)
	}
	if len(cfg.ManagedServers) != 1 || cfg.ManagedServers[0].Endpoint != "http://127.0.0.1:9990" {
		t.Errorf("managed-servers: got %+v", cfg.ManagedServers)
	}
}

func TestManager_Load_NotFound(t *testing.T) {
	m := NewManager(filepath.Join(t.TempDir(), "missing.yaml"))
	_, err := m.Load(false)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Load of missing file: got %v, want ErrNotFound", err)
	}
	if m.HasConfiguration() {
		t.Error("HasConfiguration after failed load: got true")
	}
}

func TestManager_Load_FormatError(t *testing.T) {
	m := NewManager(writeConfig(t, "metric-sets: [broken"))
	_, err := m.Load(false)
	if !errors.Is(err, ErrFormat) {
		t.Fatalf("Load of broken yaml: got %v, want ErrFormat", err)
	}
}

func TestManager_Load_ValidationError(t *testing.T) {
	bad := `metric-sets:
  - metrics:
      - name: m
        attribute: a
managed-servers:
  - name: s
    protocol: dmr
    endpoint: http://127.0.0.1:9990
`
	m := NewManager(writeConfig(t, bad))
	_, err := m.Load(false)
	if err == nil {
		t.Fatal("Load of invalid config: expected error, got nil")
	}
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *ValidationError in chain, got %v", err)
	}
	if verr.Section != "metric-sets[0]" {
		t.Errorf("Section: got %q, want metric-sets[0]", verr.Section)
	}
	if m.HasConfiguration() {
		t.Error("HasConfiguration after failed load: got true")
	}
}

func TestManager_Configuration_NilBeforeLoad(t *testing.T) {
	m := NewManager(writeConfig(t, baseYAML))
	if cfg := m.Configuration(); cfg != nil {
		t.Fatalf("Configuration before Load: got %+v, want nil", cfg)
	}
}

func TestManager_Configuration_ReturnsIndependentCopies(t *testing.T) {
	m := loadedManager(t)

	c1 := m.Configuration()
	c2 := m.Configuration()
	c1.MetricSets[0].Name = "mutated"
	c1.ManagedServers[0].ResourceTypeSets[0] = "mutated"

	if c2.MetricSets[0].Name != "wildfly-memory" {
		t.Error("mutating one snapshot leaked into another")
	}
	c3 := m.Configuration()
	if c3.MetricSets[0].Name != "wildfly-memory" {
		t.Error("mutating a snapshot leaked into the cached tree")
	}
}

func TestManager_Load_CachedVsForced(t *testing.T) {
	m := loadedManager(t)

	// External modification of the backing file.
	updated := baseYAML + `  - name: remote-wildfly
    protocol: dmr
    endpoint: http://10.0.0.2:9990
`
	if err := os.WriteFile(m.Path(), []byte(updated), 0o600); err != nil {
		t.Fatalf("rewrite config: %v", err)
	}

	cfg, err := m.Load(false)
	if err != nil {
		t.Fatalf("Load(false): %v", err)
	}
	if len(cfg.ManagedServers) != 1 {
		t.Errorf("Load(false) after external edit: got %d servers, want cached 1", len(cfg.ManagedServers))
	}

	cfg, err = m.Load(true)
	if err != nil {
		t.Fatalf("Load(true): %v", err)
	}
	if len(cfg.ManagedServers) != 2 {
		t.Errorf("Load(true): got %d servers, want 2", len(cfg.ManagedServers))
	}
}

func TestManager_Load_FailedReloadKeepsCache(t *testing.T) {
	m := loadedManager(t)

	if err := os.WriteFile(m.Path(), []byte("managed-servers: [broken"), 0o600); err != nil {
		t.Fatalf("rewrite config: %v", err)
	}
	if _, err := m.Load(true); err == nil {
		t.Fatal("Load(true) of broken file: expected error, got nil")
	}

	cfg := m.Configuration()
	if cfg == nil || len(cfg.MetricSets) != 1 {
		t.Errorf("cache after failed reload: got %+v, want previous tree", cfg)
	}
}

func TestManager_Update(t *testing.T) {
	m := loadedManager(t)

	cfg := m.Configuration()
	cfg.ManagedServers[0].Endpoint = "http://10.1.2.3:9990"
	if err := m.Update(cfg, false); err != nil {
		t.Fatalf("Update: %v", err)
	}

	// Cache reflects the update.
	if got := m.Configuration().ManagedServers[0].Endpoint; got != "http://10.1.2.3:9990" {
		t.Errorf("cached endpoint: got %q", got)
	}

	// Disk reflects the update.
	data, err := os.ReadFile(m.Path())
	if err != nil {
		t.Fatalf("read back file: %v", err)
	}
	back, err := Unmarshal(data)
	if err != nil {
		t.Fatalf("parse written file: %v", err)
	}
	if got := back.ManagedServers[0].Endpoint; got != "http://10.1.2.3:9990" {
		t.Errorf("persisted endpoint: got %q", got)
	}
}

func TestManager_Update_Nil(t *testing.T) {
	m := loadedManager(t)
	if err := m.Update(nil, false); !errors.Is(err, ErrNilConfig) {
		t.Fatalf("Update(nil): got %v, want ErrNilConfig", err)
	}
}

func TestManager_Update_CreatesMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fresh.yaml")
	m := NewManager(path)

	if err := m.Update(sampleTree(), true); err != nil {
		t.Fatalf("Update to missing file: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("backing file not created: %v", err)
	}
	// No backup should exist; there was nothing to back up.
	if _, err := os.Stat(path + BackupSuffix); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("backup of nonexistent file: stat err %v, want not-exist", err)
	}
}

func TestManager_Update_Backup(t *testing.T) {
	m := loadedManager(t)
	original, err := os.ReadFile(m.Path())
	if err != nil {
		t.Fatalf("read original: %v", err)
	}

	first := m.Configuration()
	first.ManagedServers[0].Endpoint = "http://first:9990"
	if err := m.Update(first, true); err != nil {
		t.Fatalf("first Update: %v", err)
	}

	bak, err := os.ReadFile(m.Path() + BackupSuffix)
	if err != nil {
		t.Fatalf("read backup: %v", err)
	}
	if string(bak) != string(original) {
		t.Errorf("backup content differs from pre-update file:\n%s", bak)
	}

	// A second backup overwrites the first.
	afterFirst, err := os.ReadFile(m.Path())
	if err != nil {
		t.Fatalf("read file after first update: %v", err)
	}
	second := m.Configuration()
	second.ManagedServers[0].Endpoint = "http://second:9990"
	if err := m.Update(second, true); err != nil {
		t.Fatalf("second Update: %v", err)
	}
	bak, err = os.ReadFile(m.Path() + BackupSuffix)
	if err != nil {
		t.Fatalf("read backup after second update: %v", err)
	}
	if string(bak) != string(afterFirst) {
		t.Errorf("second backup was not overwritten with the intermediate file content")
	}
}

func TestManager_Update_NotWritableKeepsCache(t *testing.T) {
	m := loadedManager(t)

	// Replace the backing file with a directory so the write must fail.
	if err := os.Remove(m.Path()); err != nil {
		t.Fatalf("remove config: %v", err)
	}
	if err := os.Mkdir(m.Path(), 0o755); err != nil {
		t.Fatalf("mkdir in place of config: %v", err)
	}

	cfg := m.Configuration()
	cfg.ManagedServers[0].Endpoint = "http://never:9990"
	err := m.Update(cfg, false)
	if !errors.Is(err, ErrNotWritable) {
		t.Fatalf("Update to unwritable path: got %v, want ErrNotWritable", err)
	}

	if got := m.Configuration().ManagedServers[0].Endpoint; got != "http://127.0.0.1:9990" {
		t.Errorf("cache changed after failed update: endpoint %q", got)
	}
}

func TestManager_Update_ValidationErrorKeepsDisk(t *testing.T) {
	m := loadedManager(t)
	before, err := os.ReadFile(m.Path())
	if err != nil {
		t.Fatalf("read file: %v", err)
	}

	cfg := m.Configuration()
	cfg.ManagedServers[0].Endpoint = ""
	if err := m.Update(cfg, false); err == nil {
		t.Fatal("Update of invalid tree: expected error, got nil")
	}

	after, err := os.ReadFile(m.Path())
	if err != nil {
		t.Fatalf("read file: %v", err)
	}
	if string(before) != string(after) {
		t.Error("backing file changed after rejected update")
	}
	if got := m.Configuration().ManagedServers[0].Endpoint; got != "http://127.0.0.1:9990" {
		t.Errorf("cache changed after rejected update: endpoint %q", got)
	}
}

func TestManager_ConcurrentReadersAndWriters(t *testing.T) {
	m := loadedManager(t)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				if !m.HasConfiguration() {
					t.Error("HasConfiguration: got false during concurrent access")
					return
				}
				cfg := m.Configuration()
				if cfg == nil || len(cfg.MetricSets) == 0 {
					t.Error("Configuration: got empty snapshot during concurrent access")
					return
				}
				// Snapshot mutation must stay private to this goroutine.
				cfg.MetricSets[0].Name = "scratch"
			}
		}()
	}
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				cfg := m.Configuration()
				cfg.ManagedServers[0].Endpoint = "http://writer:9990"
				if err := m.Update(cfg, false); err != nil {
					t.Errorf("concurrent Update: %v", err)
					return
				}
			}
		}()
	}
	wg.Wait()

	if got := m.Configuration().MetricSets[0].Name; got != "wildfly-memory" {
		t.Errorf("cached metric set name after concurrent access: got %q", got)
	}
}
