// Copyright (c) 2026 RoadRW. All rights reserved.

/*
Package environment manages the switchable backend API environments.

The console talks to one of several named backends (development,
production). The active selection is persisted across restarts and
switches are announced through a typed subscription — consumers such as
the REST client re-point themselves on notification instead of listening
on an untyped global event bus.
*/
package environment

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Environment is one named backend target.
type Environment struct {
	Name    string `json:"name"`
	BaseURL string `json:"baseUrl"`
}

// Manager owns the environment catalogue and the active selection.
type Manager struct {
	mu        sync.Mutex
	envs      map[string]Environment
	order     []string
	active    string
	statePath string
	subs      map[int]func(Environment)
	nextSubID int
}

// NewManager builds a manager from the configured environments.
//
// statePath, when non-empty, points to a small file holding the persisted
// selection; a valid persisted name overrides defaultActive.
func NewManager(envs []Environment, defaultActive, statePath string) (*Manager, error) {
	if len(envs) == 0 {
		return nil, fmt.Errorf("environment: at least one environment is required")
	}

	manager := &Manager{
		envs:      make(map[string]Environment, len(envs)),
		statePath: statePath,
		subs:      make(map[int]func(Environment)),
	}
	for _, env := range envs {
		if env.Name == "" || env.BaseURL == "" {
			return nil, fmt.Errorf("environment: name and base URL are both required")
		}
		manager.envs[env.Name] = env
		manager.order = append(manager.order, env.Name)
	}

	active := defaultActive
	if persisted := manager.loadState(); persisted != "" {
		if _, known := manager.envs[persisted]; known {
			active = persisted
		}
	}
	if _, known := manager.envs[active]; !known {
		return nil, fmt.Errorf("environment: unknown active environment %q", active)
	}
	manager.active = active

	return manager, nil
}

// Active returns the currently selected environment.
func (m *Manager) Active() Environment {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.envs[m.active]
}

// List returns all environments in configuration order.
func (m *Manager) List() []Environment {
	m.mu.Lock()
	defer m.mu.Unlock()

	list := make([]Environment, 0, len(m.order))
	for _, name := range m.order {
		list = append(list, m.envs[name])
	}
	return list
}

// Switch activates the named environment, persists the choice, and
// notifies subscribers. Switching to the already-active environment is a
// no-op (no notification, no persistence write).
func (m *Manager) Switch(name string) (Environment, error) {
	m.mu.Lock()
	env, known := m.envs[name]
	if !known {
		m.mu.Unlock()
		return Environment{}, fmt.Errorf("environment: unknown environment %q", name)
	}
	if name == m.active {
		m.mu.Unlock()
		return env, nil
	}
	m.active = name
	subs := make([]func(Environment), 0, len(m.subs))
	for _, fn := range m.subs {
		subs = append(subs, fn)
	}
	m.mu.Unlock()

	m.saveState(name)
	for _, fn := range subs {
		fn(env)
	}
	return env, nil
}

// Subscribe registers a switch listener. The returned cancel function
// removes it.
func (m *Manager) Subscribe(fn func(Environment)) func() {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextSubID
	m.nextSubID++
	m.subs[id] = fn

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.subs, id)
	}
}

// loadState reads the persisted selection, empty on any problem.
func (m *Manager) loadState() string {
	if m.statePath == "" {
		return ""
	}
	data, err := os.ReadFile(m.statePath)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

// saveState persists the selection best-effort. A write failure only costs
// stickiness across restarts.
func (m *Manager) saveState(name string) {
	if m.statePath == "" {
		return
	}
	tmp := m.statePath + ".tmp"
	if err := os.WriteFile(tmp, []byte(name+"\n"), 0o644); err != nil {
		return
	}
	_ = os.Rename(tmp, filepath.Clean(m.statePath))
}
