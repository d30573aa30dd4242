// internal/workers/ranking/recompute-rankings/config.go
package recomputerankings

import (
	"time"

	"supplier-ranking/internal/common/config"
)

type Config struct {
	Timeout time.Duration
}

// LoadConfig reads the job timeout from the worker section. A run scores
// every supplier, so the default is generous.
func LoadConfig(wc config.WorkerConfig) *Config {
	timeout := 15 * time.Minute
	if wc.Timeout > 0 {
		timeout = config.GetDuration(wc.Timeout)
	}
	return &Config{Timeout: timeout}
}
