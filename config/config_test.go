package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"f0oster/ntdsinspect/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeEnv(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// clearEnv unsets the variables for this test; godotenv.Load never
// overrides variables that are already set.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{"NTDS_FORMAT", "NTDS_MAX_DEPTH", "NTDS_SD_CACHE_SIZE", "NTDS_PG_DSN", "NTDS_LOG_LEVEL"} {
		t.Setenv(name, "")
		require.NoError(t, os.Unsetenv(name))
	}
}

func TestLoadEnvConfig(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    config.Config
		wantErr bool
	}{
		{
			name: "defaults",
			want: config.Config{Format: "csv", MaxDepth: 4},
		},
		{
			name: "all values",
			content: "NTDS_FORMAT=json-lines\nNTDS_MAX_DEPTH=7\nNTDS_SD_CACHE_SIZE=64\n" +
				"NTDS_PG_DSN=postgres://localhost/ntds\nNTDS_LOG_LEVEL=debug\n",
			want: config.Config{
				Format:      "json-lines",
				MaxDepth:    7,
				SDCacheSize: 64,
				PostgresDSN: "postgres://localhost/ntds",
				LogLevel:    "debug",
			},
		},
		{
			name:    "malformed integer",
			content: "NTDS_MAX_DEPTH=deep\n",
			wantErr: true,
		},
		{
			name:    "negative integer",
			content: "NTDS_SD_CACHE_SIZE=-1\n",
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			cfg, err := config.LoadEnvConfig(writeEnv(t, tt.content))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, cfg)
		})
	}
}

func TestLoadEnvConfigMissingFile(t *testing.T) {
	clearEnv(t)
	cfg, err := config.LoadEnvConfig(filepath.Join(t.TempDir(), "absent.env"))
	require.NoError(t, err)
	assert.Equal(t, "csv", cfg.Format)
}

func TestLoadEnvConfigEnvironmentWins(t *testing.T) {
	clearEnv(t)
	t.Setenv("NTDS_FORMAT", "json")
	cfg, err := config.LoadEnvConfig(writeEnv(t, "NTDS_FORMAT=csv\n"))
	require.NoError(t, err)
	assert.Equal(t, "json", cfg.Format)
}
