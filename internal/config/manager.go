package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"sync"

	"github.com/quartzstack/quartzstack/internal/metrics"
)

// BackupSuffix is appended to the backing file path when a pre-write
// backup is requested.
const BackupSuffix = ".bak"

// Manager owns the canonical in-memory configuration tree and the file
// it is persisted in. Construct one with NewManager; the zero value is
// not usable.
//
// A single RWMutex guards the cached tree. Readers proceed in parallel;
// writers exclude everyone, and validation plus file I/O happen under
// the write lock so the on-disk state and the cache swap appear atomic
// to readers. Go's sync.RWMutex blocks new readers once a writer is
// waiting, so writers cannot starve under continuous read load.
//
// Callers never see the internal tree: every accessor returns a deep
// copy, and every commit stores a deep copy of the caller's tree.
type Manager struct {
	path string

	mu      sync.RWMutex
	current *Configuration
}

// NewManager creates a manager for the given backing file path. The file
// is not touched; it may not exist yet. Call Load to read it or Update
// to write a first configuration.
func NewManager(path string) *Manager {
	return &Manager{path: path}
}

// Path returns the backing file path the configuration does or will
// live at.
func (m *Manager) Path() string {
	return m.path
}

// HasConfiguration reports whether a configuration has been successfully
// loaded into memory.
func (m *Manager) HasConfiguration() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current != nil
}

// Configuration returns a deep copy of the cached tree, or nil if none
// has been loaded yet.
func (m *Manager) Configuration() *Configuration {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current.Copy()
}

// Load returns a deep copy of the cached tree, reading it from the
// backing file first if the cache is empty or force is true. A reload
// that fails to read, parse, or validate leaves the previously cached
// tree untouched.
func (m *Manager) Load(force bool) (*Configuration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current == nil || force {
		cfg, err := m.read()
		if err != nil {
			metrics.Reloads.WithLabelValues(metrics.ResultError).Inc()
			return nil, err
		}
		if err := cfg.Validate(); err != nil {
			metrics.Reloads.WithLabelValues(metrics.ResultInvalid).Inc()
			return nil, fmt.Errorf("config: validate %s: %w", m.path, err)
		}
		m.current = cfg
		metrics.Reloads.WithLabelValues(metrics.ResultOK).Inc()
		slog.Info("config: loaded",
			"path", m.path,
			"metric_sets", len(cfg.MetricSets),
			"resource_type_sets", len(cfg.ResourceTypeSets),
			"managed_servers", len(cfg.ManagedServers),
		)
	}
	return m.current.Copy(), nil
}

// Update validates cfg, writes it to the backing file, and replaces the
// cached tree with a deep copy of it. With backup true, the existing
// file is first copied to a BackupSuffix sibling; a backup failure is
// logged and does not block the write. If anything fails, neither the
// file nor the cache is changed.
func (m *Manager) Update(cfg *Configuration, backup bool) error {
	if cfg == nil {
		return fmt.Errorf("config: update: %w", ErrNilConfig)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := cfg.Validate(); err != nil {
		metrics.Updates.WithLabelValues(metrics.ResultInvalid).Inc()
		return fmt.Errorf("config: validate: %w", err)
	}
	if err := m.save(cfg, backup); err != nil {
		metrics.Updates.WithLabelValues(metrics.ResultError).Inc()
		return err
	}
	m.current = cfg.Copy()
	metrics.Updates.WithLabelValues(metrics.ResultOK).Inc()
	slog.Info("config: updated", "path", m.path, "backup", backup)
	return nil
}

// Overlay decodes a partial configuration document from r and merges its
// metric-sets and resource-type-sets into a deep copy of the cached
// tree; same-name elements are replaced, new ones appended, and every
// other section is preserved verbatim. The merged tree is validated
// before any side effect, so a failure leaves cache and disk untouched.
// With save true the merged tree is persisted exactly as Update would
// persist it; the cache is replaced either way.
//
// The caller owns r and is responsible for closing it.
func (m *Manager) Overlay(r io.Reader, save, backup bool) error {
	if r == nil {
		return fmt.Errorf("config: overlay: %w", ErrNilSource)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current == nil {
		return fmt.Errorf("config: overlay: %w", ErrNotLoaded)
	}

	overlay, err := Decode(r)
	if err != nil {
		metrics.Overlays.WithLabelValues(metrics.ResultError).Inc()
		return fmt.Errorf("config: overlay: %w", err)
	}

	merged := m.current.Copy()
	merged.overlayMetadata(overlay)

	if err := merged.Validate(); err != nil {
		metrics.Overlays.WithLabelValues(metrics.ResultInvalid).Inc()
		return fmt.Errorf("config: validate overlay result: %w", err)
	}

	if save {
		if err := m.save(merged, backup); err != nil {
			metrics.Overlays.WithLabelValues(metrics.ResultError).Inc()
			return err
		}
	}
	m.current = merged
	metrics.Overlays.WithLabelValues(metrics.ResultOK).Inc()
	slog.Info("config: overlay applied",
		"path", m.path,
		"overlay_metric_sets", len(overlay.MetricSets),
		"overlay_resource_type_sets", len(overlay.ResourceTypeSets),
		"saved", save,
	)
	return nil
}

// read loads and parses the backing file. Callers hold the write lock.
func (m *Manager) read() (*Configuration, error) {
	data, err := os.ReadFile(m.path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s (%v)", ErrNotFound, m.path, err)
	}
	cfg, err := Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", m.path, err)
	}
	return cfg, nil
}

// save persists cfg to the backing file, creating it if missing. Callers
// hold the write lock.
func (m *Manager) save(cfg *Configuration, backup bool) error {
	if backup {
		m.backup()
	}

	data, err := Marshal(cfg)
	if err != nil {
		return err
	}
	f, err := os.OpenFile(m.path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("%w: %s (%v)", ErrNotWritable, m.path, err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("config: write %s: %w", m.path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("config: write %s: %w", m.path, err)
	}
	return nil
}

// backup copies the current backing file to its BackupSuffix sibling,
// overwriting any previous backup. Best effort: failures are logged,
// never returned, and a missing file is simply skipped.
func (m *Manager) backup() {
	data, err := os.ReadFile(m.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			slog.Warn("config: cannot read file for backup", "path", m.path, "err", err)
		}
		return
	}
	dst := m.path + BackupSuffix
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		slog.Warn("config: cannot write backup", "path", dst, "err", err)
	}
}
