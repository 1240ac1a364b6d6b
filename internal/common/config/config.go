// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App           AppConfig               `mapstructure:"app"`
	Server        ServerConfig            `mapstructure:"server"`
	LLM           LLMConfig               `mapstructure:"llm"`
	Investigation InvestigationConfig     `mapstructure:"investigation"`
	Storage       StorageConfig           `mapstructure:"storage"`
	Database      DatabaseConfig          `mapstructure:"database"`
	Camunda       CamundaConfig           `mapstructure:"camunda"`
	Workers       map[string]WorkerConfig `mapstructure:"workers"`
	Logging       LoggingConfig           `mapstructure:"logging"`
	Observability ObservabilityConfig     `mapstructure:"observability"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type ServerConfig struct {
	Address     string `mapstructure:"address"`
	UploadDir   string `mapstructure:"upload_dir"`
	MaxUploadMB int    `mapstructure:"max_upload_mb"`
}

type CamundaConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	BrokerAddress  string `mapstructure:"broker_address"`
	MaxJobsActive  int    `mapstructure:"max_jobs_active"`
	Timeout        int    `mapstructure:"timeout"`         // milliseconds
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
}

type DatabaseConfig struct {
	SQLite        SQLiteConfig        `mapstructure:"sqlite"`
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

type SQLiteConfig struct {
	Path string `mapstructure:"path"`
}

// GetDSN returns the modernc sqlite DSN with WAL journaling and a 5s busy timeout.
func (s SQLiteConfig) GetDSN() string {
	return fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", s.Path)
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type ElasticsearchConfig struct {
	Addresses []string `mapstructure:"addresses"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
	Index     string   `mapstructure:"index"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// WorkerConfig holds the core settings applicable to every Zeebe worker.
type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Timeout       int  `mapstructure:"timeout"`     // milliseconds
	MaxRetries    int  `mapstructure:"max_retries"` // For error handling
}

// --- Investigation Configuration ---

// LLMConfig configures the OpenAI-compatible chat completions endpoint.
type LLMConfig struct {
	BaseURL            string  `mapstructure:"base_url"`
	APIKey             string  `mapstructure:"api_key"`
	Model              string  `mapstructure:"model"`
	Timeout            int     `mapstructure:"timeout"` // milliseconds
	MaxRetries         int     `mapstructure:"max_retries"`
	DefaultTemperature float64 `mapstructure:"default_temperature"`
	DefaultTopP        float64 `mapstructure:"default_top_p"`
	BreakerFailures    int     `mapstructure:"breaker_failures"`
	BreakerTimeout     int     `mapstructure:"breaker_timeout"` // milliseconds
}

type InvestigationConfig struct {
	MaxContextCharacters int      `mapstructure:"max_context_characters"`
	SupportedFileTypes   []string `mapstructure:"supported_file_types"`
	UnknownAnswer        string   `mapstructure:"unknown_answer"`
	NotAllowedAnswer     string   `mapstructure:"not_allowed_answer"`
	TokenLimitAnswer     string   `mapstructure:"token_limit_answer"`
	ExtraSentinels       []string `mapstructure:"extra_sentinels"`
	NoReasonGiven        string   `mapstructure:"no_reason_given"`
	PdftotextPath        string   `mapstructure:"pdftotext_path"`
}

// Sentinels returns the full set of canned answers the classifier treats as predefined.
func (c InvestigationConfig) Sentinels() []string {
	out := []string{c.UnknownAnswer, c.NotAllowedAnswer, c.TokenLimitAnswer}
	return append(out, c.ExtraSentinels...)
}

// StorageConfig selects the backends behind each store.
type StorageConfig struct {
	Backend               string `mapstructure:"backend"`       // sqlite | postgres
	CacheBackend          string `mapstructure:"cache_backend"` // sqlite | postgres | redis | memory
	L1CacheBytes          int64  `mapstructure:"l1_cache_bytes"`
	SessionBackend        string `mapstructure:"session_backend"` // memory | redis
	SessionTTL            int    `mapstructure:"session_ttl"`     // milliseconds, 0 = never expires
	MirrorToElasticsearch bool   `mapstructure:"mirror_to_elasticsearch"`
}

// --- Logging & Observability ---
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

type ObservabilityConfig struct {
	ServiceName    string `mapstructure:"service_name"`
	JaegerEndpoint string `mapstructure:"jaeger_endpoint"`
}
