// internal/common/config/loader.go
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	DefaultModel                = "gemini-2.5-pro"
	DefaultTemperature          = 0.2
	DefaultTopP                 = 0.95
	DefaultMaxContextCharacters = 800000

	DefaultUnknownAnswer    = "Your request is unknown, associated information is not available. Please try again!"
	DefaultNotAllowedAnswer = "Sorry, your task is not allowed. Please try again!"
	DefaultTokenLimitAnswer = "Your request exceeds the maximum context size. Please reduce the documents and try again!"
	DefaultNoReasonGiven    = "no reason given"
)

// DefaultSupportedFileTypes lists the document extensions the processor can read.
var DefaultSupportedFileTypes = []string{".pdf", ".docx", ".txt", ".xlsx"}

// Load reads .env, configs/config.yaml and the environment overlay
// config.<APP_ENVIRONMENT>.yaml. A missing config file is not an error.
func Load() (*Config, error) {
	LoadEnvFile()

	v := newViper()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath("../../configs")
	v.AddConfigPath(".")

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	v.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = v.MergeInConfig()

	return finish(v)
}

// LoadFromFile loads configuration from a specific file path
func LoadFromFile(path string) (*Config, error) {
	LoadEnvFile()

	v := newViper()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	return finish(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

func finish(v *viper.Viper) (*Config, error) {
	expandEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	overrideEmptyConfig(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// LoadEnvFile loads the first .env found walking up from the working
// directory and returns its path, or "" when none exists.
func LoadEnvFile() string {
	possiblePaths := []string{
		".env",
		"../.env",
		"../../.env",
		"../../../.env",
	}

	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return path
			}
		}
	}
	return ""
}

// findProjectRoot walks up directories looking for go.mod.
func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}

func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		strVal, ok := v.Get(key).(string)
		if !ok {
			continue
		}
		if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
			expanded := os.ExpandEnv(strVal)
			if expanded != strVal && expanded != "" {
				v.Set(key, expanded)
			}
		}
	}
}

// overrideEmptyConfig fills secrets that are commonly injected as bare env vars.
func overrideEmptyConfig(cfg *Config) {
	overrides := []struct {
		target *string
		env    string
	}{
		{&cfg.LLM.APIKey, "LLM_API_KEY"},
		{&cfg.Database.Postgres.User, "DB_USER"},
		{&cfg.Database.Postgres.Password, "DB_PASSWORD"},
		{&cfg.Database.Redis.Password, "REDIS_PASSWORD"},
		{&cfg.Database.Elasticsearch.Password, "ELASTICSEARCH_PASSWORD"},
	}
	for _, o := range overrides {
		if *o.target == "" {
			if val := os.Getenv(o.env); val != "" {
				*o.target = val
			}
		}
	}
}

// applyDefaults sets default values for optional configuration fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "doc-investigator"
	}

	// Server defaults
	if cfg.Server.Address == "" {
		cfg.Server.Address = ":8080"
	}
	if cfg.Server.UploadDir == "" {
		cfg.Server.UploadDir = os.TempDir()
	}
	if cfg.Server.MaxUploadMB == 0 {
		cfg.Server.MaxUploadMB = 64
	}

	// LLM defaults
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = DefaultModel
	}
	if cfg.LLM.Timeout == 0 {
		cfg.LLM.Timeout = 120000
	}
	if cfg.LLM.MaxRetries == 0 {
		cfg.LLM.MaxRetries = 2
	}
	if cfg.LLM.DefaultTemperature == 0 {
		cfg.LLM.DefaultTemperature = DefaultTemperature
	}
	if cfg.LLM.DefaultTopP == 0 {
		cfg.LLM.DefaultTopP = DefaultTopP
	}
	if cfg.LLM.BreakerFailures == 0 {
		cfg.LLM.BreakerFailures = 5
	}
	if cfg.LLM.BreakerTimeout == 0 {
		cfg.LLM.BreakerTimeout = 30000
	}

	// Investigation defaults
	inv := &cfg.Investigation
	if inv.MaxContextCharacters == 0 {
		inv.MaxContextCharacters = DefaultMaxContextCharacters
	}
	if len(inv.SupportedFileTypes) == 0 {
		inv.SupportedFileTypes = append([]string(nil), DefaultSupportedFileTypes...)
	}
	if inv.UnknownAnswer == "" {
		inv.UnknownAnswer = DefaultUnknownAnswer
	}
	if inv.NotAllowedAnswer == "" {
		inv.NotAllowedAnswer = DefaultNotAllowedAnswer
	}
	if inv.TokenLimitAnswer == "" {
		inv.TokenLimitAnswer = DefaultTokenLimitAnswer
	}
	if inv.NoReasonGiven == "" {
		inv.NoReasonGiven = DefaultNoReasonGiven
	}
	if inv.PdftotextPath == "" {
		inv.PdftotextPath = "pdftotext"
	}

	// Storage defaults
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = "sqlite"
	}
	if cfg.Storage.CacheBackend == "" {
		cfg.Storage.CacheBackend = cfg.Storage.Backend
	}
	if cfg.Storage.SessionBackend == "" {
		cfg.Storage.SessionBackend = "memory"
	}

	// Database defaults
	if cfg.Database.SQLite.Path == "" {
		cfg.Database.SQLite.Path = "doc_investigator.db"
	}
	if cfg.Database.Postgres.Port == 0 {
		cfg.Database.Postgres.Port = 5432
	}
	if cfg.Database.Postgres.MaxConnections == 0 {
		cfg.Database.Postgres.MaxConnections = 25
	}
	if cfg.Database.Postgres.MaxIdle == 0 {
		cfg.Database.Postgres.MaxIdle = 5
	}
	if cfg.Database.Postgres.SSLMode == "" {
		cfg.Database.Postgres.SSLMode = "disable"
	}
	if cfg.Database.Elasticsearch.Index == "" {
		cfg.Database.Elasticsearch.Index = "interactions"
	}

	// Camunda defaults
	if cfg.Camunda.MaxJobsActive == 0 {
		cfg.Camunda.MaxJobsActive = 10
	}
	if cfg.Camunda.Timeout == 0 {
		cfg.Camunda.Timeout = 30000
	}
	if cfg.Camunda.RequestTimeout == 0 {
		cfg.Camunda.RequestTimeout = 30000
	}

	// Logging defaults
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}

	if cfg.Observability.ServiceName == "" {
		cfg.Observability.ServiceName = cfg.App.Name
	}

	for key, worker := range cfg.Workers {
		if worker.MaxJobsActive == 0 {
			worker.MaxJobsActive = 5
		}
		if worker.Timeout == 0 {
			worker.Timeout = 300000
		}
		if worker.MaxRetries == 0 {
			worker.MaxRetries = 3
		}
		cfg.Workers[key] = worker
	}
}

// validateConfig validates critical configuration fields
func validateConfig(cfg *Config) error {
	switch cfg.Storage.Backend {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("storage.backend must be sqlite or postgres, got %q", cfg.Storage.Backend)
	}

	switch cfg.Storage.CacheBackend {
	case "sqlite", "postgres", "redis", "memory":
	default:
		return fmt.Errorf("storage.cache_backend must be sqlite, postgres, redis or memory, got %q", cfg.Storage.CacheBackend)
	}

	switch cfg.Storage.SessionBackend {
	case "memory", "redis":
	default:
		return fmt.Errorf("storage.session_backend must be memory or redis, got %q", cfg.Storage.SessionBackend)
	}

	if usesPostgres(cfg) {
		if cfg.Database.Postgres.Host == "" {
			return fmt.Errorf("database.postgres.host is required")
		}
		if cfg.Database.Postgres.Database == "" {
			return fmt.Errorf("database.postgres.database is required")
		}
		if cfg.Database.Postgres.User == "" {
			return fmt.Errorf("database.postgres.user is required")
		}
	}

	if UsesRedis(cfg) && cfg.Database.Redis.Address == "" {
		return fmt.Errorf("database.redis.address is required")
	}

	if cfg.Storage.MirrorToElasticsearch && len(cfg.Database.Elasticsearch.Addresses) == 0 {
		return fmt.Errorf("database.elasticsearch.addresses is required when mirroring is enabled")
	}

	if cfg.Camunda.Enabled && cfg.Camunda.BrokerAddress == "" {
		return fmt.Errorf("camunda.broker_address is required")
	}

	if cfg.LLM.DefaultTemperature < 0 || cfg.LLM.DefaultTemperature > 1 {
		return fmt.Errorf("llm.default_temperature must be within [0, 1]")
	}
	if cfg.LLM.DefaultTopP < 0 || cfg.LLM.DefaultTopP > 1 {
		return fmt.Errorf("llm.default_top_p must be within [0, 1]")
	}

	if cfg.Investigation.MaxContextCharacters < 0 {
		return fmt.Errorf("investigation.max_context_characters must not be negative")
	}

	return nil
}

func usesPostgres(cfg *Config) bool {
	return cfg.Storage.Backend == "postgres" || cfg.Storage.CacheBackend == "postgres"
}

// UsesRedis reports whether any store is configured on Redis.
func UsesRedis(cfg *Config) bool {
	return cfg.Storage.CacheBackend == "redis" || cfg.Storage.SessionBackend == "redis"
}

// GetDuration converts milliseconds from config to time.Duration
func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}

// GetWorkerConfig retrieves worker-specific configuration with fallback to defaults
func GetWorkerConfig(cfg *Config, workerName string) WorkerConfig {
	if worker, exists := cfg.Workers[workerName]; exists {
		return worker
	}

	return WorkerConfig{
		Enabled:       true,
		MaxJobsActive: 5,
		Timeout:       300000,
		MaxRetries:    3,
	}
}

// IsWorkerEnabled checks if a specific worker is enabled
func IsWorkerEnabled(cfg *Config, workerName string) bool {
	if worker, exists := cfg.Workers[workerName]; exists {
		return worker.Enabled
	}
	return true
}
