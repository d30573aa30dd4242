// internal/workers/ranking/get-current-rankings/config.go
package getcurrentrankings

import (
	"time"

	"supplier-ranking/internal/common/config"
)

type Config struct {
	Timeout time.Duration
}

func LoadConfig(wc config.WorkerConfig) *Config {
	timeout := 10 * time.Second
	if wc.Timeout > 0 {
		timeout = config.GetDuration(wc.Timeout)
	}
	return &Config{Timeout: timeout}
}
