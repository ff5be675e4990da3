package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempJSON(t *testing.T, data map[string]any) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cfg.json")
	b, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	want := Config{
		ServerURL:      "http://127.0.0.1:5000/api",
		DBPath:         "thyroscope.db",
		RequestTimeout: 30 * time.Second,
		LogLevel:       "info",
		LogFormat:      "text",
	}
	assert.Empty(t, cmp.Diff(want, c))
}

func TestLoadConfig_NoArgsGivesDefaults(t *testing.T) {
	cfg, err := LoadConfig(nil)
	require.NoError(t, err)

	var def Config
	def.LoadDefaults()
	assert.Empty(t, cmp.Diff(def, *cfg))
}

func TestLoadConfig_FlagsOverrideJSON(t *testing.T) {
	path := writeTempJSON(t, map[string]any{
		"server_url":      "http://json:5000/api",
		"db_path":         "json.db",
		"request_timeout": "10s",
		"log_format":      "json",
	})

	cfg, err := LoadConfig([]string{"-c", path, "-a", "http://flag:9000/api", "-t", "5"})
	require.NoError(t, err)

	assert.Equal(t, "http://flag:9000/api", cfg.ServerURL)
	assert.Equal(t, "json.db", cfg.DBPath)
	assert.Equal(t, 5*time.Second, cfg.RequestTimeout)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestParseJSON(t *testing.T) {
	t.Run("integer nanoseconds", func(t *testing.T) {
		path := writeTempJSON(t, map[string]any{"request_timeout": int64(2 * time.Second)})
		cfg := &Config{}
		require.NoError(t, parseJSON(cfg, []string{"-config=" + path}))
		assert.Equal(t, 2*time.Second, cfg.RequestTimeout)
	})

	t.Run("missing fields keep current values", func(t *testing.T) {
		path := writeTempJSON(t, map[string]any{"log_level": "debug"})
		cfg := &Config{ServerURL: "keep", DBPath: "keep.db"}
		require.NoError(t, parseJSON(cfg, []string{"-c", path}))
		assert.Equal(t, "keep", cfg.ServerURL)
		assert.Equal(t, "keep.db", cfg.DBPath)
		assert.Equal(t, "debug", cfg.LogLevel)
	})

	t.Run("invalid JSON", func(t *testing.T) {
		bad := filepath.Join(t.TempDir(), "bad.json")
		require.NoError(t, os.WriteFile(bad, []byte(`{ nope`), 0o600))
		err := parseJSON(&Config{}, []string{"-c", bad})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "parse config")
	})

	t.Run("bad duration", func(t *testing.T) {
		path := writeTempJSON(t, map[string]any{"request_timeout": "soon"})
		require.Error(t, parseJSON(&Config{}, []string{"-c", path}))
	})

	t.Run("missing file", func(t *testing.T) {
		err := parseJSON(&Config{}, []string{"-c", filepath.Join(t.TempDir(), "absent.json")})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "read config")
	})
}

func TestParseFlags(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    Config
		wantErr bool
	}{
		{
			name: "all flags",
			args: []string{"-a", "http://h:1/api", "-d", "x.db", "-t", "7", "-l", "debug"},
			want: Config{ServerURL: "http://h:1/api", DBPath: "x.db", RequestTimeout: 7 * time.Second, LogLevel: "debug"},
		},
		{
			name: "unrelated flags ignored",
			args: []string{"-z", "1", "-a", "http://h:2/api"},
			want: Config{ServerURL: "http://h:2/api"},
		},
		{
			name:    "bad timeout",
			args:    []string{"-t", "abc"},
			wantErr: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := &Config{}
			err := parseFlags(cfg, tc.args)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Empty(t, cmp.Diff(tc.want, *cfg))
		})
	}
}
