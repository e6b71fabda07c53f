package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadYAML(t *testing.T) {
	path := writeConfig(t, `
store:
  driver: mongo
mongo:
  uri: mongodb://db:27017
  database: orders
transport:
  driver: nats
nats:
  url: nats://bus:4222
detector:
  interval: 500ms
  announce_existing: true
log:
  level: debug
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "mongo", cfg.Store.Driver)
	require.Equal(t, "mongodb://db:27017", cfg.Mongo.URI)
	require.Equal(t, "nats", cfg.Transport.Driver)
	require.Equal(t, "nats://bus:4222", cfg.NATS.URL)
	require.Equal(t, 500*time.Millisecond, cfg.Detector.Interval)
	require.True(t, cfg.Detector.AnnounceExisting)
	require.Equal(t, 5432, cfg.Database.Port, "defaults survive partial files")
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	require.Equal(t, Default().Transport, cfg.Transport)
}

func TestLoadRejectsUnknownDriver(t *testing.T) {
	path := writeConfig(t, "store:\n  driver: sqlite\n")
	_, err := Load(path)
	require.ErrorContains(t, err, "invalid store driver")
}

func TestEnvOverrides(t *testing.T) {
	env := map[string]string{
		"TABLEORDER_DB_HOST":           "pg.internal",
		"TABLEORDER_DB_PORT":           "6543",
		"TABLEORDER_TRANSPORT_DRIVER":  "memory",
		"TABLEORDER_DETECTOR_INTERVAL": "3s",
	}
	cfg := Default()
	require.NoError(t, cfg.applyEnv(func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}))

	require.Equal(t, "pg.internal", cfg.Database.Host)
	require.Equal(t, 6543, cfg.Database.Port)
	require.Equal(t, "memory", cfg.Transport.Driver)
	require.Equal(t, 3*time.Second, cfg.Detector.Interval)
}

func TestEnvOverrideBadPort(t *testing.T) {
	cfg := Default()
	err := cfg.applyEnv(func(k string) (string, bool) {
		if k == "TABLEORDER_RABBITMQ_PORT" {
			return "amqp", true
		}
		return "", false
	})
	require.Error(t, err)
}
