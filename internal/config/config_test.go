package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileYieldsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "undolog.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	cfg, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_YAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "undolog.yaml")
	content := `
log:
  level: debug
http:
  addr: "127.0.0.1:9090"
journal:
  driver: redis
  addr: "redis:6379"
  db: "2"
  max_len: 50
  lock: true
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format, "unset keys keep their defaults")
	assert.Equal(t, "127.0.0.1:9090", cfg.HTTP.Addr)
	assert.Equal(t, DriverRedis, cfg.Journal.Driver)
	assert.Equal(t, 2, cfg.Journal.DB, "weakly typed input")
	assert.Equal(t, int64(50), cfg.Journal.MaxLen)
	assert.True(t, cfg.Journal.Lock)
	assert.Equal(t, "undolog:journal:", cfg.Journal.Prefix)
}

func TestLoad_JSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "undolog.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"metrics":{"namespace":"demo"},"journal":{"driver":"none"}}`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "demo", cfg.Metrics.Namespace)
	assert.Equal(t, DriverNone, cfg.Journal.Driver)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"UnknownKey", "htpp:\n  addr: x\n"},
		{"UnknownDriver", "journal:\n  driver: sqlite\n"},
		{"LockWithoutRedis", "journal:\n  lock: true\n"},
		{"NegativeMaxLen", "journal:\n  max_len: -1\n"},
		{"Malformed", "log: [unclosed\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.content), false)
			assert.Error(t, err)
		})
	}
}
