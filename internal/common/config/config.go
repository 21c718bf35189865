// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Steam     SteamConfig     `mapstructure:"steam"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Recommend RecommendConfig `mapstructure:"recommend"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type ServerConfig struct {
	Port            int `mapstructure:"port"`
	ReadTimeout     int `mapstructure:"read_timeout"`     // milliseconds
	WriteTimeout    int `mapstructure:"write_timeout"`    // milliseconds
	ShutdownTimeout int `mapstructure:"shutdown_timeout"` // milliseconds
}

type DatabaseConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
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

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// SteamConfig holds settings for the external catalog provider.
type SteamConfig struct {
	BaseURL       string  `mapstructure:"base_url"`     // storefront host (appdetails)
	APIBaseURL    string  `mapstructure:"api_base_url"` // web API host (app list)
	APIKey        string  `mapstructure:"api_key"`
	Timeout       int     `mapstructure:"timeout"`      // milliseconds, hard per-call timeout
	MaxRetries    int     `mapstructure:"max_retries"`  // retries on RATE_LIMITED / transient failures
	BackoffBase   int     `mapstructure:"backoff_base"` // milliseconds
	BackoffFactor float64 `mapstructure:"backoff_factor"`
	BackoffJitter float64 `mapstructure:"backoff_jitter"` // fraction, e.g. 0.2 for +/-20%
}

// CacheConfig holds settings for the catalog metadata cache.
type CacheConfig struct {
	TTL         int  `mapstructure:"ttl"` // milliseconds
	RedisMirror bool `mapstructure:"redis_mirror"`
}

// RecommendConfig holds settings for the recommendation engine.
type RecommendConfig struct {
	DefaultLimit     int `mapstructure:"default_limit"`
	RequestDeadline  int `mapstructure:"request_deadline"`  // milliseconds
	FetchConcurrency int `mapstructure:"fetch_concurrency"` // parallel candidate fetches

	Weights ScoreWeights `mapstructure:"weights"`
}

// ScoreWeights holds the relative weight of each scoring factor. The defaults
// sum to 1.0 so scores stay in [0, 1].
type ScoreWeights struct {
	Genre    float64 `mapstructure:"genre"`
	Age      float64 `mapstructure:"age"`
	Price    float64 `mapstructure:"price"`
	Platform float64 `mapstructure:"platform"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
