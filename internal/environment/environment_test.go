// Copyright (c) 2026 RoadRW. All rights reserved.

package environment_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roadrw/consolekit/internal/environment"
)

func catalogue() []environment.Environment {
	return []environment.Environment{
		{Name: "development", BaseURL: "http://localhost:3001/api"},
		{Name: "production", BaseURL: "https://api.roadrw.com.br"},
	}
}

/*
TestNewManager_Validation covers construction failure modes.
*/
func TestNewManager_Validation(t *testing.T) {
	_, err := environment.NewManager(nil, "development", "")
	assert.Error(t, err)

	_, err = environment.NewManager([]environment.Environment{{Name: "dev"}}, "dev", "")
	assert.Error(t, err)

	_, err = environment.NewManager(catalogue(), "staging", "")
	assert.Error(t, err)
}

/*
TestSwitch_NotifiesAndPersists verifies the full switch cycle: active
selection changes, subscribers hear about it, and the choice survives a
second manager reading the same state file.
*/
func TestSwitch_NotifiesAndPersists(t *testing.T) {
	statePath := filepath.Join(t.TempDir(), "env-state")

	manager, err := environment.NewManager(catalogue(), "development", statePath)
	require.NoError(t, err)
	assert.Equal(t, "development", manager.Active().Name)

	var notified []string
	cancel := manager.Subscribe(func(env environment.Environment) {
		notified = append(notified, env.Name)
	})
	defer cancel()

	env, err := manager.Switch("production")
	require.NoError(t, err)
	assert.Equal(t, "https://api.roadrw.com.br", env.BaseURL)
	assert.Equal(t, "production", manager.Active().Name)
	assert.Equal(t, []string{"production"}, notified)

	// A new manager picks the persisted selection over the default
	restarted, err := environment.NewManager(catalogue(), "development", statePath)
	require.NoError(t, err)
	assert.Equal(t, "production", restarted.Active().Name)
}

/*
TestSwitch_SameEnvironmentIsNoOp verifies that re-selecting the active
environment neither notifies nor rewrites state.
*/
func TestSwitch_SameEnvironmentIsNoOp(t *testing.T) {
	manager, err := environment.NewManager(catalogue(), "development", "")
	require.NoError(t, err)

	notified := 0
	cancel := manager.Subscribe(func(environment.Environment) { notified++ })
	defer cancel()

	_, err = manager.Switch("development")
	require.NoError(t, err)
	assert.Zero(t, notified)
}

/*
TestSwitch_UnknownEnvironment verifies the failure path leaves the active
selection untouched.
*/
func TestSwitch_UnknownEnvironment(t *testing.T) {
	manager, err := environment.NewManager(catalogue(), "development", "")
	require.NoError(t, err)

	_, err = manager.Switch("staging")
	assert.Error(t, err)
	assert.Equal(t, "development", manager.Active().Name)
}

/*
TestNewManager_IgnoresCorruptState verifies that a state file naming an
unknown environment falls back to the default.
*/
func TestNewManager_IgnoresCorruptState(t *testing.T) {
	statePath := filepath.Join(t.TempDir(), "env-state")
	require.NoError(t, os.WriteFile(statePath, []byte("staging\n"), 0o644))

	manager, err := environment.NewManager(catalogue(), "development", statePath)
	require.NoError(t, err)
	assert.Equal(t, "development", manager.Active().Name)
}

/*
TestList_PreservesConfigurationOrder verifies stable listing order.
*/
func TestList_PreservesConfigurationOrder(t *testing.T) {
	manager, err := environment.NewManager(catalogue(), "production", "")
	require.NoError(t, err)

	list := manager.List()
	require.Len(t, list, 2)
	assert.Equal(t, "development", list[0].Name)
	assert.Equal(t, "production", list[1].Name)
}
