package config

import (
	"fmt"
	"time"
)

// Config is the main application configuration struct.
type Config struct {
	App           AppConfig               `mapstructure:"app"`
	Camunda       CamundaConfig           `mapstructure:"camunda"`
	Database      DatabaseConfig          `mapstructure:"database"`
	Workers       map[string]WorkerConfig `mapstructure:"workers"`
	Ranking       RankingConfig           `mapstructure:"ranking"`
	Logging       LoggingConfig           `mapstructure:"logging"`
	Observability ObservabilityConfig     `mapstructure:"observability"`
}

type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type CamundaConfig struct {
	BrokerAddress  string `mapstructure:"broker_address"`
	Plaintext      bool   `mapstructure:"plaintext"`
	MaxJobsActive  int    `mapstructure:"max_jobs_active"`
	Timeout        int    `mapstructure:"timeout"`         // milliseconds
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
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
	URL       string   `mapstructure:"url"`
}

// GetAddresses returns the configured node list, falling back to URL.
func (e ElasticsearchConfig) GetAddresses() []string {
	if len(e.Addresses) > 0 {
		return e.Addresses
	}
	if e.URL != "" {
		return []string{e.URL}
	}
	return nil
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// WorkerConfig holds the core settings applicable to every job worker.
type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Timeout       int  `mapstructure:"timeout"` // milliseconds
	MaxRetries    int  `mapstructure:"max_retries"`
}

// RankingConfig tunes the scoring engine and the recompute run.
type RankingConfig struct {
	Enabled                 bool   `mapstructure:"enabled"`
	PriceCutoffHour         int    `mapstructure:"price_cutoff_hour"`
	Timezone                string `mapstructure:"timezone"`
	GuardWindowHours        int    `mapstructure:"guard_window_hours"`
	TrendWindowDays         int    `mapstructure:"trend_window_days"`
	ReliabilityLookbackDays int    `mapstructure:"reliability_lookback_days"`
	Parallelism             int    `mapstructure:"parallelism"`
	CacheTTL                int    `mapstructure:"cache_ttl"` // milliseconds
	CacheKeyPrefix          string `mapstructure:"cache_key_prefix"`
	SearchIndex             string `mapstructure:"search_index"`
	PublishEnabled          bool   `mapstructure:"publish_enabled"`
	DefaultWeights          string `mapstructure:"default_weights"`
	DefaultWindowDays       int    `mapstructure:"default_window_days"`
	DefaultMinSubmissions   int    `mapstructure:"default_min_submissions"`
}

// Location resolves the timezone submission hours are evaluated in.
func (r RankingConfig) Location() (*time.Location, error) {
	return time.LoadLocation(r.Timezone)
}

func (r RankingConfig) GuardWindow() time.Duration {
	return time.Duration(r.GuardWindowHours) * time.Hour
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

type ObservabilityConfig struct {
	ServiceName      string  `mapstructure:"service_name"`
	MetricsAddress   string  `mapstructure:"metrics_address"`
	JaegerEndpoint   string  `mapstructure:"jaeger_endpoint"`
	TraceSampleRatio float64 `mapstructure:"trace_sample_ratio"`
}
