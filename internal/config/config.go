package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/obaidtambo/doc-struct/internal/hierarchy"
	"github.com/obaidtambo/doc-struct/internal/judge"
	"github.com/obaidtambo/doc-struct/internal/ocr"
)

// EnvPrefix is prepended to every environment variable name.
const EnvPrefix = "DOCSTRUCT"

type Config struct {
	Port   string
	DBPath string

	// Working directories
	InputDir  string
	CacheDir  string
	OutputDir string

	// Azure Document Intelligence
	AzureEndpoint    string
	AzureKey         string
	AzureAPIVersion  string
	AzureModel       string
	OCRPollInterval  time.Duration
	OCRPollTimeout   time.Duration
	OCRCacheDisabled bool

	// Hierarchy oracle
	CorrectionEnabled bool
	OracleProvider    string
	OracleModel       string
	OracleAPIKey      string
	OracleBaseURL     string
	OracleTimeout     time.Duration
	OracleAttempts    int
	OracleRetryDelay  time.Duration
	OracleRPS         float64
	PlacementPolicy   string

	// Worker pool
	WorkerCount  int
	MaxQueueSize int

	// Upload limits
	MaxUploadBytes int64

	// Job state
	JobTTL time.Duration

	LogLevel string
}

// Flags registers every setting on fs with its default.
func Flags(fs *pflag.FlagSet) {
	fs.String("config", "", "Optional config file (yaml, json or toml)")
	fs.String("port", "8000", "HTTP listen port")
	fs.String("db-path", "docstruct.db", "SQLite database path")
	fs.String("input-dir", "PDFs", "Directory for uploaded PDFs")
	fs.String("cache-dir", "Azure_Dump", "Directory for cached OCR responses")
	fs.String("output-dir", "Output_Directory", "Directory for stage artifacts")

	fs.String("azure-endpoint", "", "Document Intelligence endpoint")
	fs.String("azure-key", "", "Document Intelligence key")
	fs.String("azure-api-version", ocr.DefaultAzureAPIVersion, "Document Intelligence API version")
	fs.String("azure-model", ocr.DefaultAzureModel, "Document Intelligence model id")
	fs.Duration("ocr-poll-interval", ocr.DefaultPollInterval, "Delay between analyze status polls")
	fs.Duration("ocr-poll-timeout", ocr.DefaultPollTimeout, "Give up on an analyze operation after this long")
	fs.Bool("ocr-cache-disabled", false, "Always call the OCR provider")

	fs.Bool("correction-enabled", true, "Run LLM hierarchy correction")
	fs.String("oracle-provider", "gemini", "Hierarchy oracle provider (gemini or anthropic)")
	fs.String("oracle-model", "", "Oracle model; provider default when empty")
	fs.String("oracle-api-key", "", "Oracle API key")
	fs.String("oracle-base-url", "", "Oracle base URL override")
	fs.Duration("oracle-timeout", 60*time.Second, "Per-request oracle timeout")
	fs.Int("oracle-attempts", 3, "Attempts per oracle judgment")
	fs.Duration("oracle-retry-delay", 5*time.Second, "Fixed delay between oracle attempts")
	fs.Float64("oracle-rps", 0, "Oracle requests per second across all documents (0 = unpaced)")
	fs.String("placement-policy", hierarchy.PolicyDefault, "Where promoted sections land (default or adjacent)")

	fs.Int("worker-count", 4, "Concurrent document pipelines")
	fs.Int("max-queue-size", 100, "Pending uploads before new ones are rejected")
	fs.Int64("max-upload-bytes", 52428800, "Maximum upload size in bytes") // 50MB
	fs.Duration("job-ttl", time.Hour, "How long finished jobs stay in memory")
	fs.String("log-level", "info", "Log level (debug, info, warn, error)")
}

// Load resolves settings from flags, DOCSTRUCT_* environment variables and
// an optional config file, in that order of precedence. fs must have been
// set up with Flags and parsed.
func Load(fs *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(fs); err != nil {
		return Config{}, fmt.Errorf("bind flags: %w", err)
	}
	// Unprefixed names used by existing deployments.
	_ = v.BindEnv("azure-endpoint", EnvPrefix+"_AZURE_ENDPOINT", "AZURE_ENDPOINT")
	_ = v.BindEnv("azure-key", EnvPrefix+"_AZURE_KEY", "AZURE_KEY")

	if path := v.GetString("config"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg := Config{
		Port:   v.GetString("port"),
		DBPath: v.GetString("db-path"),

		InputDir:  v.GetString("input-dir"),
		CacheDir:  v.GetString("cache-dir"),
		OutputDir: v.GetString("output-dir"),

		AzureEndpoint:    v.GetString("azure-endpoint"),
		AzureKey:         v.GetString("azure-key"),
		AzureAPIVersion:  v.GetString("azure-api-version"),
		AzureModel:       v.GetString("azure-model"),
		OCRPollInterval:  v.GetDuration("ocr-poll-interval"),
		OCRPollTimeout:   v.GetDuration("ocr-poll-timeout"),
		OCRCacheDisabled: v.GetBool("ocr-cache-disabled"),

		CorrectionEnabled: v.GetBool("correction-enabled"),
		OracleProvider:    strings.ToLower(v.GetString("oracle-provider")),
		OracleModel:       v.GetString("oracle-model"),
		OracleAPIKey:      v.GetString("oracle-api-key"),
		OracleBaseURL:     v.GetString("oracle-base-url"),
		OracleTimeout:     v.GetDuration("oracle-timeout"),
		OracleAttempts:    v.GetInt("oracle-attempts"),
		OracleRetryDelay:  v.GetDuration("oracle-retry-delay"),
		OracleRPS:         v.GetFloat64("oracle-rps"),
		PlacementPolicy:   strings.ToLower(v.GetString("placement-policy")),

		WorkerCount:    v.GetInt("worker-count"),
		MaxQueueSize:   v.GetInt("max-queue-size"),
		MaxUploadBytes: v.GetInt64("max-upload-bytes"),
		JobTTL:         v.GetDuration("job-ttl"),
		LogLevel:       strings.ToLower(v.GetString("log-level")),
	}

	if cfg.OracleAPIKey == "" {
		cfg.OracleAPIKey = providerKeyFromEnv(cfg.OracleProvider)
	}

	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 4
	}
	if cfg.MaxQueueSize <= 0 {
		cfg.MaxQueueSize = 100
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 52428800
	}
	if cfg.JobTTL <= 0 {
		cfg.JobTTL = 1 * time.Hour
	}
	if cfg.OracleAttempts <= 0 {
		cfg.OracleAttempts = 3
	}

	return cfg, nil
}

func providerKeyFromEnv(provider string) string {
	switch provider {
	case "gemini":
		return os.Getenv("GEMINI_API_KEY")
	case "anthropic", "claude":
		return os.Getenv("ANTHROPIC_API_KEY")
	}
	return ""
}

// Validate checks everything the HTTP service needs.
func (c Config) Validate() error {
	if c.Port == "" {
		return errors.New("port is required")
	}
	if c.DBPath == "" {
		return errors.New("db-path is required")
	}
	if _, err := c.parseLevel(); err != nil {
		return err
	}
	if err := c.RequireOCR(); err != nil {
		return err
	}
	if c.CorrectionEnabled {
		return c.RequireOracle()
	}
	return nil
}

// RequireOCR reports whether the OCR provider is configured.
func (c Config) RequireOCR() error {
	if c.AzureEndpoint == "" {
		return errors.New("azure-endpoint is required (DOCSTRUCT_AZURE_ENDPOINT or AZURE_ENDPOINT)")
	}
	if c.AzureKey == "" {
		return errors.New("azure-key is required (DOCSTRUCT_AZURE_KEY or AZURE_KEY)")
	}
	return nil
}

// RequireOracle reports whether the hierarchy oracle is configured.
func (c Config) RequireOracle() error {
	if _, err := c.Policy(); err != nil {
		return err
	}
	switch c.OracleProvider {
	case "gemini", "anthropic", "claude":
	default:
		return fmt.Errorf("unknown oracle-provider %q", c.OracleProvider)
	}
	if c.OracleAPIKey == "" {
		return fmt.Errorf("oracle-api-key is required for provider %s", c.OracleProvider)
	}
	return nil
}

// SlogLevel returns the configured log level, defaulting to info.
func (c Config) SlogLevel() slog.Level {
	l, err := c.parseLevel()
	if err != nil {
		return slog.LevelInfo
	}
	return l
}

func (c Config) parseLevel() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log-level %q", c.LogLevel)
	}
	return l, nil
}

// Azure returns the OCR client settings.
func (c Config) Azure() ocr.AzureConfig {
	return ocr.AzureConfig{
		Endpoint:     c.AzureEndpoint,
		APIKey:       c.AzureKey,
		APIVersion:   c.AzureAPIVersion,
		Model:        c.AzureModel,
		PollInterval: c.OCRPollInterval,
		PollTimeout:  c.OCRPollTimeout,
	}
}

// Policy returns the configured placement policy for corrected sections.
func (c Config) Policy() (hierarchy.Policy, error) {
	return hierarchy.PolicyByName(c.PlacementPolicy)
}

// Oracle returns the hierarchy oracle client settings.
func (c Config) Oracle() judge.Config {
	return judge.Config{
		Provider:          c.OracleProvider,
		Model:             c.OracleModel,
		APIKey:            c.OracleAPIKey,
		BaseURL:           c.OracleBaseURL,
		Timeout:           c.OracleTimeout,
		RequestsPerSecond: c.OracleRPS,
	}
}
