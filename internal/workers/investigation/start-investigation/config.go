// internal/workers/investigation/start-investigation/config.go
package startinvestigation

import (
	"time"

	"doc-investigator/internal/common/config"
)

type Config struct {
	Timeout    time.Duration
	MaxRetries int
}

func LoadConfig(wcfg config.WorkerConfig) *Config {
	cfg := &Config{
		Timeout:    config.GetDuration(wcfg.Timeout),
		MaxRetries: wcfg.MaxRetries,
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 300 * time.Second
	}
	return cfg
}
