package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rpggio/sigtrack/internal/config"
	"github.com/rpggio/sigtrack/internal/engine"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sigtrack.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("SIGTRACK_CONFIG_PATH", "")

	cfg, err := config.Load("")
	require.NoError(t, err)
	require.Equal(t, "0.0.0.0", cfg.Server.Host)
	require.Equal(t, 8080, cfg.Server.Port)
	require.Equal(t, "sigtrack.db", cfg.DB.Path)
	require.Equal(t, "info", cfg.Log.Level)
	require.Equal(t, "http", cfg.Transport.Mode)
	require.False(t, cfg.Auth.Enabled)
	require.Equal(t, engine.DefaultConfig().BurstThreshold, cfg.Engine.BurstThreshold)
	require.Empty(t, cfg.Panels)
}

func TestLoad_FileAndPanels(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
engine:
  burst_threshold: 7
  update_interval: 2s
panels:
  - id: rf
    default_window: 5m
  - id: wifi
    max_items: 25
    filters:
      hide_gone: true
`)

	cfg, err := config.Load(path)
	require.NoError(t, err)
	require.Equal(t, 9090, cfg.Server.Port)
	require.Equal(t, "0.0.0.0", cfg.Server.Host)
	require.Equal(t, 7, cfg.Engine.BurstThreshold)
	require.Equal(t, 2*time.Second, cfg.Engine.UpdateInterval)
	require.Equal(t, time.Minute, cfg.Engine.BurstWindow)

	require.Len(t, cfg.Panels, 2)
	require.Equal(t, "rf", cfg.Panels[0].ID)
	require.Equal(t, "5m", cfg.Panels[0].DefaultWindow)
	require.Equal(t, 25, cfg.Panels[1].MaxItems)
	require.True(t, cfg.Panels[1].Filters[engine.FilterHideGone])
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 9090\n")
	t.Setenv("SIGTRACK_CONFIG_PATH", path)
	t.Setenv("SIGTRACK_SERVER_PORT", "7000")
	t.Setenv("SIGTRACK_SERVER_HOST", "127.0.0.1")
	t.Setenv("SIGTRACK_DB_PATH", "/tmp/x.db")
	t.Setenv("SIGTRACK_LOG_LEVEL", "debug")
	t.Setenv("SIGTRACK_TRANSPORT", "stdio")
	t.Setenv("SIGTRACK_AUTH_TOKEN", "secret")

	cfg, err := config.Load("")
	require.NoError(t, err)
	require.Equal(t, 7000, cfg.Server.Port)
	require.Equal(t, "127.0.0.1", cfg.Server.Host)
	require.Equal(t, "/tmp/x.db", cfg.DB.Path)
	require.Equal(t, "debug", cfg.Log.Level)
	require.Equal(t, "stdio", cfg.Transport.Mode)
	require.True(t, cfg.Auth.Enabled)
	require.Equal(t, "secret", cfg.Auth.Token)
}

func TestLoad_AllowedOrigins(t *testing.T) {
	path := writeConfig(t, "server:\n  allowed_origins:\n    - dash.example.com\n")
	t.Setenv("SIGTRACK_CONFIG_PATH", path)

	cfg, err := config.Load("")
	require.NoError(t, err)
	require.Equal(t, []string{"dash.example.com"}, cfg.Server.AllowedOrigins)

	t.Setenv("SIGTRACK_ALLOWED_ORIGINS", " a.example , *.b.example,, ")
	cfg, err = config.Load("")
	require.NoError(t, err)
	require.Equal(t, []string{"a.example", "*.b.example"}, cfg.Server.AllowedOrigins)
}

func TestLoad_Invalid(t *testing.T) {
	t.Setenv("SIGTRACK_CONFIG_PATH", "")

	cases := map[string]string{
		"bad transport":   "transport:\n  mode: carrier-pigeon\n",
		"auth no token":   "auth:\n  enabled: true\n",
		"panel no id":     "panels:\n  - max_items: 3\n",
		"duplicate panel": "panels:\n  - id: a\n  - id: a\n",
		"bad yaml":        "server: [\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := config.Load(writeConfig(t, body))
			require.Error(t, err)
		})
	}

	t.Setenv("SIGTRACK_SERVER_PORT", "eighty")
	_, err := config.Load("")
	require.Error(t, err)
}
