package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const baseYAML = `
app:
  name: supplier-ranking
camunda:
  broker_address: localhost:26500
database:
  postgres:
    host: localhost
    database: procurement
    user: ranking
    password: ${TEST_RANKING_DB_PASSWORD}
  redis:
    address: localhost:6379
  elasticsearch:
    addresses:
      - http://localhost:9200
workers:
  recompute-supplier-rankings:
    enabled: true
    timeout: 600000
  get-current-rankings:
    enabled: false
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadFromFile_Defaults(t *testing.T) {
	t.Setenv("TEST_RANKING_DB_PASSWORD", "s3cret")

	cfg, err := LoadFromFile(writeConfig(t, baseYAML))
	require.NoError(t, err)

	assert.Equal(t, "s3cret", cfg.Database.Postgres.Password)
	assert.Equal(t, 5432, cfg.Database.Postgres.Port)
	assert.Equal(t, "disable", cfg.Database.Postgres.SSLMode)

	r := cfg.Ranking
	assert.True(t, r.Enabled)
	assert.Equal(t, 9, r.PriceCutoffHour)
	assert.Equal(t, "Asia/Kolkata", r.Timezone)
	assert.Equal(t, 23*time.Hour, r.GuardWindow())
	assert.Equal(t, 7, r.TrendWindowDays)
	assert.Equal(t, 90, r.ReliabilityLookbackDays)
	assert.Equal(t, "price:0.4,consistency:0.25,reliability:0.25,fill:0.1", r.DefaultWeights)
	assert.Equal(t, 30, r.DefaultWindowDays)
	assert.Equal(t, 5, r.DefaultMinSubmissions)

	loc, err := r.Location()
	require.NoError(t, err)
	assert.Equal(t, "Asia/Kolkata", loc.String())
}

func TestLoadFromFile_WorkerDefaults(t *testing.T) {
	cfg, err := LoadFromFile(writeConfig(t, baseYAML))
	require.NoError(t, err)

	recompute := GetWorkerConfig(cfg, "recompute-supplier-rankings")
	assert.True(t, recompute.Enabled)
	assert.Equal(t, 600000, recompute.Timeout)
	assert.Equal(t, 5, recompute.MaxJobsActive)
	assert.Equal(t, 3, recompute.MaxRetries)

	assert.False(t, IsWorkerEnabled(cfg, "get-current-rankings"))
	assert.True(t, IsWorkerEnabled(cfg, "get-supplier-trend"))
}

func TestLoadFromFile_EnvOverrides(t *testing.T) {
	t.Setenv("RANKING_PRICE_CUTOFF_HOUR", "7")
	t.Setenv("RANKING_WEIGHTS", "price:0.5,consistency:0.2,reliability:0.2,fill:0.1")
	t.Setenv("FEATURE_RANKING", "false")

	cfg, err := LoadFromFile(writeConfig(t, baseYAML))
	require.NoError(t, err)

	assert.Equal(t, 7, cfg.Ranking.PriceCutoffHour)
	assert.Equal(t, "price:0.5,consistency:0.2,reliability:0.2,fill:0.1", cfg.Ranking.DefaultWeights)
	assert.False(t, cfg.Ranking.Enabled)
}

func TestLoadFromFile_Validation(t *testing.T) {
	tests := []struct {
		name    string
		extra   string
		wantErr string
	}{
		{
			name:    "cutoff hour out of range",
			extra:   "ranking:\n  price_cutoff_hour: 24\n",
			wantErr: "price_cutoff_hour",
		},
		{
			name:    "unknown timezone",
			extra:   "ranking:\n  timezone: Mars/Olympus\n",
			wantErr: "ranking.timezone",
		},
		{
			name:    "negative parallelism",
			extra:   "ranking:\n  parallelism: -1\n",
			wantErr: "parallelism",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFromFile(writeConfig(t, baseYAML+tt.extra))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadFromFile_PublishNeedsElasticsearch(t *testing.T) {
	body := `
database:
  postgres:
    host: localhost
    database: procurement
    user: ranking
  redis:
    address: localhost:6379
`
	_, err := LoadFromFile(writeConfig(t, body))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "elasticsearch")

	cfg, err := LoadFromFile(writeConfig(t, body+"ranking:\n  publish_enabled: false\n"))
	require.NoError(t, err)
	assert.False(t, cfg.Ranking.PublishEnabled)
}

func TestGetDuration(t *testing.T) {
	assert.Equal(t, 1500*time.Millisecond, GetDuration(1500))
}

func TestDefaults_SkipsConnectionChecks(t *testing.T) {
	t.Setenv("RANKING_TREND_WINDOW_DAYS", "14")

	cfg, err := Defaults()
	require.NoError(t, err)
	assert.Empty(t, cfg.Database.Postgres.Host)
	assert.True(t, cfg.Ranking.Enabled)
	assert.Equal(t, 9, cfg.Ranking.PriceCutoffHour)
	assert.Equal(t, 14, cfg.Ranking.TrendWindowDays)
	assert.Equal(t, "price:0.4,consistency:0.25,reliability:0.25,fill:0.1", cfg.Ranking.DefaultWeights)
	assert.Equal(t, 23*time.Hour, cfg.Ranking.GuardWindow())
}
