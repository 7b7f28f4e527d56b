package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/obaidtambo/doc-struct/internal/hierarchy"
)

func load(t *testing.T, args ...string) Config {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	Flags(fs)
	require.NoError(t, fs.Parse(args))
	cfg, err := Load(fs)
	require.NoError(t, err)
	return cfg
}

func TestDefaults(t *testing.T) {
	cfg := load(t)

	assert.Equal(t, "8000", cfg.Port)
	assert.Equal(t, "docstruct.db", cfg.DBPath)
	assert.Equal(t, "2024-11-30", cfg.AzureAPIVersion)
	assert.Equal(t, "prebuilt-layout", cfg.AzureModel)
	assert.True(t, cfg.CorrectionEnabled)
	assert.Equal(t, "gemini", cfg.OracleProvider)
	assert.Equal(t, 3, cfg.OracleAttempts)
	assert.Equal(t, 5*time.Second, cfg.OracleRetryDelay)
	assert.Equal(t, "default", cfg.PlacementPolicy)
	assert.Equal(t, 4, cfg.WorkerCount)
	assert.Equal(t, 100, cfg.MaxQueueSize)
	assert.Equal(t, int64(52428800), cfg.MaxUploadBytes)
	assert.Equal(t, time.Hour, cfg.JobTTL)
	assert.Equal(t, slog.LevelInfo, cfg.SlogLevel())
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("DOCSTRUCT_PORT", "9100")
	t.Setenv("DOCSTRUCT_WORKER_COUNT", "2")
	t.Setenv("DOCSTRUCT_ORACLE_PROVIDER", "Anthropic")
	t.Setenv("ANTHROPIC_API_KEY", "sk-test")
	t.Setenv("AZURE_ENDPOINT", "https://example.cognitiveservices.azure.com")
	t.Setenv("AZURE_KEY", "azure-secret")

	cfg := load(t)
	assert.Equal(t, "9100", cfg.Port)
	assert.Equal(t, 2, cfg.WorkerCount)
	assert.Equal(t, "anthropic", cfg.OracleProvider)
	assert.Equal(t, "sk-test", cfg.OracleAPIKey)
	assert.Equal(t, "https://example.cognitiveservices.azure.com", cfg.AzureEndpoint)
	assert.Equal(t, "azure-secret", cfg.AzureKey)
	assert.NoError(t, cfg.Validate())
}

func TestFlagsBeatEnvironment(t *testing.T) {
	t.Setenv("DOCSTRUCT_PORT", "9100")
	cfg := load(t, "--port", "7000", "--correction-enabled=false", "--log-level", "DEBUG")
	assert.Equal(t, "7000", cfg.Port)
	assert.False(t, cfg.CorrectionEnabled)
	assert.Equal(t, slog.LevelDebug, cfg.SlogLevel())
}

func TestConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "docstruct.yaml")
	require.NoError(t, os.WriteFile(path, []byte("worker-count: 7\noracle-retry-delay: 250ms\n"), 0o644))

	cfg := load(t, "--config", path)
	assert.Equal(t, 7, cfg.WorkerCount)
	assert.Equal(t, 250*time.Millisecond, cfg.OracleRetryDelay)

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	Flags(fs)
	require.NoError(t, fs.Parse([]string{"--config", filepath.Join(t.TempDir(), "missing.yaml")}))
	_, err := Load(fs)
	assert.Error(t, err)
}

func TestNonPositiveValuesFallBack(t *testing.T) {
	cfg := load(t, "--worker-count", "0", "--max-queue-size", "-1", "--oracle-attempts", "0")
	assert.Equal(t, 4, cfg.WorkerCount)
	assert.Equal(t, 100, cfg.MaxQueueSize)
	assert.Equal(t, 3, cfg.OracleAttempts)
}

func TestValidate(t *testing.T) {
	valid := Config{
		Port:              "8000",
		DBPath:            "x.db",
		LogLevel:          "info",
		AzureEndpoint:     "https://example",
		AzureKey:          "k",
		CorrectionEnabled: true,
		OracleProvider:    "gemini",
		OracleAPIKey:      "g",
	}
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no port", func(c *Config) { c.Port = "" }},
		{"no db", func(c *Config) { c.DBPath = "" }},
		{"bad level", func(c *Config) { c.LogLevel = "chatty" }},
		{"no endpoint", func(c *Config) { c.AzureEndpoint = "" }},
		{"no azure key", func(c *Config) { c.AzureKey = "" }},
		{"no oracle key", func(c *Config) { c.OracleAPIKey = "" }},
		{"unknown provider", func(c *Config) { c.OracleProvider = "mystery" }},
		{"unknown placement policy", func(c *Config) { c.PlacementPolicy = "sideways" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid
			tt.mutate(&c)
			assert.Error(t, c.Validate())
		})
	}

	noOracle := valid
	noOracle.CorrectionEnabled = false
	noOracle.OracleAPIKey = ""
	assert.NoError(t, noOracle.Validate())
}

func TestClientSettings(t *testing.T) {
	cfg := Config{
		AzureEndpoint:  "https://example",
		AzureKey:       "k",
		OracleProvider: "gemini",
		OracleModel:    "gemini-2.5-pro",
		OracleRPS:      2,
	}
	assert.Equal(t, "https://example", cfg.Azure().Endpoint)
	assert.Equal(t, "k", cfg.Azure().APIKey)
	assert.Equal(t, "gemini-2.5-pro", cfg.Oracle().Model)
	assert.Equal(t, 2.0, cfg.Oracle().RequestsPerSecond)
}

func TestPlacementPolicy(t *testing.T) {
	cfg := load(t, "--placement-policy", "Adjacent")
	p, err := cfg.Policy()
	require.NoError(t, err)
	assert.Equal(t, hierarchy.AdjacentPolicy{}, p)

	p, err = Config{}.Policy()
	require.NoError(t, err)
	assert.Equal(t, hierarchy.DefaultPolicy{}, p)
}
