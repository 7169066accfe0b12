package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func clearEnv(t *testing.T) {
	for _, k := range []string{"GEMINI_API_KEY", "STORYWORLD_SAVE_DIR", "STORYWORLD_LANGUAGE", "STORYWORLD_DSN"} {
		t.Setenv(k, "")
	}
}

func TestDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "world.yaml", cfg.Game.WorldFile)
	assert.Equal(t, "en", cfg.Game.Language)
	assert.Equal(t, "Ivy", cfg.Game.Player)
	assert.Equal(t, 50*time.Millisecond, cfg.Game.TickRate)
	assert.Equal(t, "file", cfg.Storage.Driver)
	assert.False(t, cfg.Narrator.Enabled)
}

func TestLoadConfigFile(t *testing.T) {
	clearEnv(t)
	cfg, err := LoadConfig(writeConfig(t, `
[game]
language = "de"
slot = "second"
tick_rate = "100ms"
save_enabled = false

[storage]
driver = "postgres"
max_conns = 8
conn_max_lifetime = "1h"

[logging]
level = "debug"
format = "json"
`))
	require.NoError(t, err)
	assert.Equal(t, "de", cfg.Game.Language)
	assert.Equal(t, "second", cfg.Game.Slot)
	assert.Equal(t, 100*time.Millisecond, cfg.Game.TickRate)
	assert.False(t, cfg.Game.SaveEnabled)
	assert.Equal(t, "postgres", cfg.Storage.Driver)
	assert.Equal(t, 8, cfg.Storage.MaxConns)
	assert.Equal(t, time.Hour, cfg.Storage.ConnMaxLifetime)
	assert.Equal(t, "json", cfg.Logging.Format)
	// untouched keys keep their defaults
	assert.Equal(t, "Ivy", cfg.Game.Player)
	assert.Equal(t, 1, cfg.Storage.MinConns)
}

func TestEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("STORYWORLD_LANGUAGE", "de-AT")
	t.Setenv("STORYWORLD_SAVE_DIR", "/tmp/saves")
	t.Setenv("GEMINI_API_KEY", "secret")
	cfg, err := LoadConfig(writeConfig(t, `
[game]
language = "en"

[narrator]
enabled = true
`))
	require.NoError(t, err)
	assert.Equal(t, "de-AT", cfg.Game.Language)
	assert.Equal(t, "/tmp/saves", cfg.Storage.SaveDir)
	assert.Equal(t, "secret", cfg.Narrator.APIKey)
}

func TestLoadConfigErrors(t *testing.T) {
	clearEnv(t)
	cases := map[string]string{
		"narrator without key": "[narrator]\nenabled = true\n",
		"unknown driver":       "[storage]\ndriver = \"sqlite\"\n",
		"malformed":            "[game\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, body))
			assert.Error(t, err)
		})
	}

	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}
