package gateway

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	raw := `
listenAddr: "0.0.0.0:9000"
drainDuration: 2s
requestTimeout: 15s
mastodon:
  serverUrl: https://mastodon.test
  accessToken: secret
transport:
  hashtagPrefix: prod
  maxLinks: 32
  linkSide: creator
postgres:
  enabled: true
  host: db
  port: 5432
  user: gw
  password: pw
  database: links
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, "0.0.0.0:9000", cfg.ListenAddr)
	require.Equal(t, 2*time.Second, cfg.DrainDuration.Std())
	require.Equal(t, "https://mastodon.test", cfg.Mastodon.ServerURL)
	require.Equal(t, 15*time.Second, cfg.Mastodon.Timeout)
	require.Equal(t, "prod", cfg.Transport.HashtagPrefix)
	require.Equal(t, 32, cfg.Transport.MaxLinks)
	require.True(t, cfg.Postgres.Enabled)
	require.Equal(t, "db", cfg.Postgres.Host)

	// Defaults survive a partial file.
	require.Equal(t, 10*time.Second, cfg.GracefulShutdownDuration.Std())
}

func TestLoadConfigRejectsIncomplete(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("listenAddr: :9000\n"), 0o600))

	_, err := LoadConfig(path)
	require.Error(t, err)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}
