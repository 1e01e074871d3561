// Package config defines all configuration structures for the caselens
// service.  No I/O or parsing logic lives here, only plain data types and
// validation.
package config

import (
	"fmt"
	"math"
	"time"
)

// ─────────────────────────────────────────────────────────────────────────────
// Sub-configuration structs
// ─────────────────────────────────────────────────────────────────────────────

// ServerConfig holds HTTP server tunables.
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig holds PostgreSQL connection parameters for the historical
// case store.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"db_name"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxConns        int           `mapstructure:"max_conns"`
	MinConns        int           `mapstructure:"min_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	MigrationPath   string        `mapstructure:"migration_path"`
}

// RedisConfig holds Redis connection parameters for the result cache.
type RedisConfig struct {
	Addr         string        `mapstructure:"addr"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	DefaultTTL   time.Duration `mapstructure:"default_ttl"`
	KeyPrefix    string        `mapstructure:"key_prefix"`
}

// KafkaConfig holds Kafka producer/consumer parameters.
type KafkaConfig struct {
	Brokers         []string `mapstructure:"brokers"`
	GroupID         string   `mapstructure:"group_id"`
	AutoOffsetReset string   `mapstructure:"auto_offset_reset"` // "earliest" | "latest"
	ProducerRetries int      `mapstructure:"producer_retries"`
}

// MinIOConfig holds object-storage parameters for historical dataset files.
type MinIOConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Bucket    string `mapstructure:"bucket"`
	UseSSL    bool   `mapstructure:"use_ssl"`
}

// LogConfig holds structured-logging parameters.
type LogConfig struct {
	Level  string `mapstructure:"level"`  // "debug" | "info" | "warn" | "error"
	Format string `mapstructure:"format"` // "json" | "console"
}

// WeightsConfig holds the per-field scoring weights.  The weights must sum
// to 1.0; validation is a load-time invariant, never renegotiated per query.
type WeightsConfig struct {
	Location   float64 `mapstructure:"location"`
	Identifier float64 `mapstructure:"identifier"`
	Subject    float64 `mapstructure:"subject"`
	Name       float64 `mapstructure:"name"`
	Phone      float64 `mapstructure:"phone"`
}

// Sum returns the total of all field weights.
func (w WeightsConfig) Sum() float64 {
	return w.Location + w.Identifier + w.Subject + w.Name + w.Phone
}

// EngineConfig holds the similarity engine's fixed scoring parameters.
type EngineConfig struct {
	Weights            WeightsConfig `mapstructure:"weights"`
	DuplicateThreshold float64       `mapstructure:"duplicate_threshold"`
	MinSimilarity      float64       `mapstructure:"min_similarity"`
	FrequentThreshold  int           `mapstructure:"frequent_threshold"`
	DefaultLimit       int           `mapstructure:"default_limit"`
	// RequireNameMatch additionally gates the duplicate flag on the name
	// comparator reaching its match level (0.8).  Off by default; the
	// composite threshold is the sole duplicate criterion.
	RequireNameMatch bool `mapstructure:"require_name_match"`
}

// CorpusConfig names the historical datasets that participate in matching
// and controls periodic refresh.  The live case store is never listed here;
// excluding it is the caller-side precondition that prevents a case from
// matching itself.
type CorpusConfig struct {
	Datasets        []string      `mapstructure:"datasets"`
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`
	RefreshTimeout  time.Duration `mapstructure:"refresh_timeout"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Root Config
// ─────────────────────────────────────────────────────────────────────────────

// Config is the root configuration structure for the service.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	MinIO    MinIOConfig    `mapstructure:"minio"`
	Log      LogConfig      `mapstructure:"log"`
	Engine   EngineConfig   `mapstructure:"engine"`
	Corpus   CorpusConfig   `mapstructure:"corpus"`
}

// weightTolerance is the permitted deviation of the weight sum from 1.0.
const weightTolerance = 1e-9

// Validate performs semantic validation of the fully-populated Config.  It
// returns the first error encountered; callers must treat any error as fatal
// and refuse to start or refresh.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("config: server.port %d is out of range [1, 65535]", c.Server.Port)
	}

	if c.Database.Host == "" {
		return fmt.Errorf("config: database.host is required")
	}
	if c.Database.Port < 1 || c.Database.Port > 65535 {
		return fmt.Errorf("config: database.port %d is out of range [1, 65535]", c.Database.Port)
	}
	if c.Database.User == "" {
		return fmt.Errorf("config: database.user is required")
	}
	if c.Database.DBName == "" {
		return fmt.Errorf("config: database.db_name is required")
	}

	if c.Redis.Addr == "" {
		return fmt.Errorf("config: redis.addr is required")
	}

	if len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("config: kafka.brokers must contain at least one broker address")
	}
	if c.Kafka.GroupID == "" {
		return fmt.Errorf("config: kafka.group_id is required")
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: log.level %q is invalid; expected debug|info|warn|error", c.Log.Level)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("config: log.format %q is invalid; expected json|console", c.Log.Format)
	}

	if err := c.Engine.Validate(); err != nil {
		return err
	}

	if len(c.Corpus.Datasets) == 0 {
		return fmt.Errorf("config: corpus.datasets must name at least one historical dataset")
	}

	return nil
}

// Validate checks the engine's scoring parameters.  Violations are the
// fatal ConfigurationError class: they abort startup or refresh, never a
// single query.
func (e *EngineConfig) Validate() error {
	w := e.Weights
	for _, f := range []struct {
		name  string
		value float64
	}{
		{"location", w.Location},
		{"identifier", w.Identifier},
		{"subject", w.Subject},
		{"name", w.Name},
		{"phone", w.Phone},
	} {
		if f.value < 0 {
			return fmt.Errorf("config: engine.weights.%s must not be negative, got %v", f.name, f.value)
		}
	}
	if math.Abs(w.Sum()-1.0) > weightTolerance {
		return fmt.Errorf("config: engine.weights must sum to 1.0, got %v", w.Sum())
	}
	if e.DuplicateThreshold < 0 || e.DuplicateThreshold > 1 {
		return fmt.Errorf("config: engine.duplicate_threshold %v is out of range [0, 1]", e.DuplicateThreshold)
	}
	if e.MinSimilarity < 0 || e.MinSimilarity > 1 {
		return fmt.Errorf("config: engine.min_similarity %v is out of range [0, 1]", e.MinSimilarity)
	}
	if e.DuplicateThreshold < e.MinSimilarity {
		return fmt.Errorf("config: engine.duplicate_threshold %v must be >= engine.min_similarity %v",
			e.DuplicateThreshold, e.MinSimilarity)
	}
	if e.FrequentThreshold < 1 {
		return fmt.Errorf("config: engine.frequent_threshold must be >= 1, got %d", e.FrequentThreshold)
	}
	if e.DefaultLimit < 1 {
		return fmt.Errorf("config: engine.default_limit must be >= 1, got %d", e.DefaultLimit)
	}
	return nil
}
