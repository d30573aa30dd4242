package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Load reads configs/config.yaml, merges configs/config.<APP_ENVIRONMENT>.yaml
// and applies environment overrides (ranking.price_cutoff_hour is
// RANKING_PRICE_CUTOFF_HOUR).
func Load() (*Config, error) {
	loadEnvFile()

	v := newViper()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath("../../configs")
	v.AddConfigPath(".")
	if root := findProjectRoot(); root != "" {
		v.AddConfigPath(filepath.Join(root, "configs"))
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}
	v.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = v.MergeInConfig()

	return build(v)
}

// LoadFromFile reads a single config file, still honouring env overrides.
func LoadFromFile(path string) (*Config, error) {
	loadEnvFile()

	v := newViper()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	return build(v)
}

// Defaults builds a configuration from built-in defaults and environment
// overrides only. Connection settings are not validated.
func Defaults() (*Config, error) {
	v := newViper()
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	applyDefaults(&cfg)
	return &cfg, nil
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	return v
}

func build(v *viper.Viper) (*Config, error) {
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

// setDefaults registers keys with viper so AutomaticEnv can override them
// even when no config file mentions them.
func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "supplier-ranking")
	v.SetDefault("app.environment", "development")

	v.SetDefault("camunda.plaintext", true)

	v.SetDefault("database.postgres.port", 5432)
	v.SetDefault("database.redis.db", 0)

	v.SetDefault("ranking.enabled", true)
	v.SetDefault("ranking.price_cutoff_hour", 9)
	v.SetDefault("ranking.timezone", "Asia/Kolkata")
	v.SetDefault("ranking.guard_window_hours", 23)
	v.SetDefault("ranking.trend_window_days", 7)
	v.SetDefault("ranking.reliability_lookback_days", 90)
	v.SetDefault("ranking.parallelism", 8)
	v.SetDefault("ranking.cache_ttl", 600000)
	v.SetDefault("ranking.cache_key_prefix", "supplier-ranking")
	v.SetDefault("ranking.search_index", "supplier-rankings")
	v.SetDefault("ranking.publish_enabled", true)
	v.SetDefault("ranking.default_weights", "price:0.4,consistency:0.25,reliability:0.25,fill:0.1")
	v.SetDefault("ranking.default_window_days", 30)
	v.SetDefault("ranking.default_min_submissions", 5)

	v.SetDefault("observability.service_name", "supplier-ranking")
	v.SetDefault("observability.metrics_address", ":8080")
	v.SetDefault("observability.trace_sample_ratio", 1.0)
}

func loadEnvFile() {
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
				return
			}
		}
	}
}

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
			return ""
		}
		dir = parent
	}
}

// expandEnvVars resolves ${VAR} placeholders left in string values.
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

func overrideEmptyConfig(cfg *Config) {
	if cfg.Database.Postgres.User == "" {
		if val := os.Getenv("DB_USER"); val != "" {
			cfg.Database.Postgres.User = val
		}
	}
	if cfg.Database.Postgres.Password == "" {
		if val := os.Getenv("DB_PASSWORD"); val != "" {
			cfg.Database.Postgres.Password = val
		}
	}
	// Legacy variable names used by the operations scripts.
	if val := os.Getenv("RANKING_WEIGHTS"); val != "" {
		cfg.Ranking.DefaultWeights = val
	}
	if val := os.Getenv("PRICE_CUTOFF_HOUR"); val != "" {
		var hour int
		if _, err := fmt.Sscanf(val, "%d", &hour); err == nil {
			cfg.Ranking.PriceCutoffHour = hour
		}
	}
	if val := os.Getenv("FEATURE_RANKING"); val != "" {
		cfg.Ranking.Enabled = strings.EqualFold(val, "true") || val == "1"
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Camunda.MaxJobsActive == 0 {
		cfg.Camunda.MaxJobsActive = 10
	}
	if cfg.Camunda.Timeout == 0 {
		cfg.Camunda.Timeout = 30000
	}
	if cfg.Camunda.RequestTimeout == 0 {
		cfg.Camunda.RequestTimeout = 30000
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

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}

	if cfg.Workers == nil {
		cfg.Workers = map[string]WorkerConfig{}
	}
	for key, worker := range cfg.Workers {
		if worker.MaxJobsActive == 0 {
			worker.MaxJobsActive = 5
		}
		if worker.Timeout == 0 {
			worker.Timeout = 30000
		}
		if worker.MaxRetries == 0 {
			worker.MaxRetries = 3
		}
		cfg.Workers[key] = worker
	}
}

func validateConfig(cfg *Config) error {
	if cfg.Database.Postgres.Host == "" {
		return fmt.Errorf("database.postgres.host is required")
	}
	if cfg.Database.Postgres.Database == "" {
		return fmt.Errorf("database.postgres.database is required")
	}
	if cfg.Database.Postgres.User == "" {
		return fmt.Errorf("database.postgres.user is required")
	}
	if cfg.Database.Redis.Address == "" {
		return fmt.Errorf("database.redis.address is required")
	}

	r := cfg.Ranking
	if r.PriceCutoffHour < 0 || r.PriceCutoffHour > 23 {
		return fmt.Errorf("ranking.price_cutoff_hour must be within 0-23, got %d", r.PriceCutoffHour)
	}
	if _, err := r.Location(); err != nil {
		return fmt.Errorf("ranking.timezone: %w", err)
	}
	if r.GuardWindowHours <= 0 {
		return fmt.Errorf("ranking.guard_window_hours must be positive")
	}
	if r.ReliabilityLookbackDays <= 0 {
		return fmt.Errorf("ranking.reliability_lookback_days must be positive")
	}
	if r.Parallelism <= 0 {
		return fmt.Errorf("ranking.parallelism must be positive")
	}
	if r.PublishEnabled && len(cfg.Database.Elasticsearch.GetAddresses()) == 0 {
		return fmt.Errorf("database.elasticsearch.addresses is required when ranking.publish_enabled is set")
	}
	return nil
}

func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}

// GetWorkerConfig returns the settings for taskType, or enabled defaults.
func GetWorkerConfig(cfg *Config, taskType string) WorkerConfig {
	if worker, exists := cfg.Workers[taskType]; exists {
		return worker
	}
	return WorkerConfig{
		Enabled:       true,
		MaxJobsActive: 5,
		Timeout:       30000,
		MaxRetries:    3,
	}
}

func IsWorkerEnabled(cfg *Config, taskType string) bool {
	return GetWorkerConfig(cfg, taskType).Enabled
}
