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
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, `
mysql:
  host: db
  port: 3306
  user: u
  password: p
  database: chat
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.HTTPPort)
	assert.Equal(t, "debug", cfg.Server.Mode)
	assert.Equal(t, "chatsync:", cfg.Redis.KeyPrefix)
	assert.Equal(t, 168, cfg.JWT.ExpireHours)
	assert.Equal(t, 500, cfg.Feed.SnapshotLimit)
	assert.Equal(t, 20*time.Millisecond, cfg.Feed.ReloadDebounce)
	assert.Equal(t, 15*time.Minute, cfg.Blob.PresignTTL)
	assert.False(t, cfg.Blob.Enabled())
	assert.Equal(t, "u:p@tcp(db:3306)/chat?charset=utf8mb4&parseTime=True&loc=Local", cfg.MySQL.DSN())
	assert.Same(t, cfg, GlobalConfig)
}

func TestLoad_Values(t *testing.T) {
	path := writeConfig(t, `
server:
  http_port: 9000
  mode: release
websocket:
  pong_wait: 45s
feed:
  snapshot_limit: 50
blob:
  bucket: attachments
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.HTTPPort)
	assert.Equal(t, "release", cfg.Server.Mode)
	assert.Equal(t, 45*time.Second, cfg.WebSocket.PongWait)
	assert.Equal(t, 50, cfg.Feed.SnapshotLimit)
	assert.True(t, cfg.Blob.Enabled())
}

func TestLoad_EnvOverride(t *testing.T) {
	path := writeConfig(t, `
jwt:
  secret: from-file
`)
	t.Setenv("CHATSYNC_JWT_SECRET", "from-env")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.JWT.Secret)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
