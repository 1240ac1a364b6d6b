// internal/workers/investigation/process-evaluation/config.go
package processevaluation

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
		cfg.Timeout = 30 * time.Second
	}
	return cfg
}
