package config

import (
	"context"
	"path/filepath"
	"slices"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/leonardotrapani/hyprscribe/internal/logging"
)

// Manager holds the current configuration and reloads it when the file changes.
type Manager struct {
	path   string
	logger zerolog.Logger

	mu       sync.RWMutex
	config   *Config
	onChange []func(*Config)

	watcher *fsnotify.Watcher
	wg      sync.WaitGroup
}

func NewManager() (*Manager, error) {
	config, err := LoadOrCreate()
	if err != nil {
		return nil, err
	}
	path, err := GetConfigPath()
	if err != nil {
		return nil, err
	}
	return newManager(path, config), nil
}

// NewManagerAt manages the config file at path, which must exist.
func NewManagerAt(path string) (*Manager, error) {
	config, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	return newManager(path, config), nil
}

func newManager(path string, config *Config) *Manager {
	m := &Manager{
		path:   path,
		config: config,
		logger: logging.WithComponent("config"),
	}
	if err := config.Validate(); err != nil {
		m.logger.Warn().Err(err).Msg("validation warning")
	}
	return m
}

func (m *Manager) Path() string { return m.path }

func (m *Manager) GetConfig() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()

	configCopy := *m.config
	configCopy.Session.Speakers = append([]string(nil), m.config.Session.Speakers...)
	return &configCopy
}

// OnChange registers fn to run with every successfully reloaded configuration.
func (m *Manager) OnChange(fn func(*Config)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onChange = append(m.onChange, fn)
}

func (m *Manager) StartWatching(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	// watch the directory so editors that replace the file are still seen
	if err := watcher.Add(filepath.Dir(m.path)); err != nil {
		watcher.Close()
		return err
	}
	m.watcher = watcher

	m.wg.Add(1)
	go m.watchLoop(ctx)

	m.logger.Info().Str("path", m.path).Msg("watching for changes")
	return nil
}

func (m *Manager) Stop() {
	if m.watcher != nil {
		m.watcher.Close()
	}
	m.wg.Wait()
}

func (m *Manager) watchLoop(ctx context.Context) {
	defer m.wg.Done()
	configFileName := filepath.Base(m.path)

	for {
		select {
		case event, ok := <-m.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != configFileName {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				m.logger.Info().Str("file", event.Name).Msg("change detected, reloading")
				m.Reload()
			}

		case err, ok := <-m.watcher.Errors:
			if !ok {
				return
			}
			m.logger.Error().Err(err).Msg("watcher error")

		case <-ctx.Done():
			return
		}
	}
}

// Reload re-reads the file. Invalid configurations are rejected and the previous one is kept.
func (m *Manager) Reload() bool {
	newConfig, err := LoadFile(m.path)
	if err != nil {
		m.logger.Error().Err(err).Msg("failed to reload config")
		return false
	}
	if err := newConfig.Validate(); err != nil {
		m.logger.Error().Err(err).Msg("invalid config after reload")
		return false
	}

	m.mu.Lock()
	m.config = newConfig
	listeners := slices.Clone(m.onChange)
	m.mu.Unlock()

	for _, fn := range listeners {
		fn(newConfig)
	}
	m.logger.Info().Msg("configuration reloaded")
	return true
}
