// Package config provides configuration loading, defaults, and validation
// for the caselens service.
package config

import "time"

// ─────────────────────────────────────────────────────────────────────────────
// Default value constants
// ─────────────────────────────────────────────────────────────────────────────

const (
	DefaultServerPort = 8080

	DefaultDBHost     = "localhost"
	DefaultDBPort     = 5432
	DefaultDBName     = "caselens"
	DefaultDBMaxConns = 25

	DefaultRedisAddr = "localhost:6379"

	DefaultKafkaBroker  = "localhost:9092"
	DefaultKafkaGroupID = "caselens-group"

	DefaultMinIOEndpoint = "localhost:9000"
	DefaultMinIOBucket   = "caselens-datasets"

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"

	// Scoring defaults.  The weights sum to 1.0 and are a load-time
	// invariant; see EngineConfig.Validate.
	DefaultWeightLocation   = 0.40
	DefaultWeightIdentifier = 0.30
	DefaultWeightSubject    = 0.15
	DefaultWeightName       = 0.10
	DefaultWeightPhone      = 0.05

	DefaultDuplicateThreshold = 0.70
	DefaultMinSimilarity      = 0.30
	DefaultFrequentThreshold  = 3
	DefaultResultLimit        = 10
)

// ApplyDefaults fills zero-value fields in cfg with well-known defaults.
// Call after unmarshalling and before Validate so optional-but-defaulted
// fields are never seen as missing.  Fields already set by the caller are
// left unchanged.
func ApplyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}

	// ── Server ────────────────────────────────────────────────────────────────
	if cfg.Server.Port == 0 {
		cfg.Server.Port = DefaultServerPort
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 15 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 15 * time.Second
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 30 * time.Second
	}

	// ── Database ──────────────────────────────────────────────────────────────
	if cfg.Database.Host == "" {
		cfg.Database.Host = DefaultDBHost
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = DefaultDBPort
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = DefaultDBName
	}
	if cfg.Database.MaxConns == 0 {
		cfg.Database.MaxConns = DefaultDBMaxConns
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 30 * time.Minute
	}
	if cfg.Database.MigrationPath == "" {
		cfg.Database.MigrationPath = "migrations"
	}

	// ── Redis ─────────────────────────────────────────────────────────────────
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = DefaultRedisAddr
	}
	if cfg.Redis.DefaultTTL == 0 {
		cfg.Redis.DefaultTTL = 5 * time.Minute
	}
	if cfg.Redis.KeyPrefix == "" {
		cfg.Redis.KeyPrefix = "caselens"
	}

	// ── Kafka ─────────────────────────────────────────────────────────────────
	if len(cfg.Kafka.Brokers) == 0 {
		cfg.Kafka.Brokers = []string{DefaultKafkaBroker}
	}
	if cfg.Kafka.GroupID == "" {
		cfg.Kafka.GroupID = DefaultKafkaGroupID
	}
	if cfg.Kafka.AutoOffsetReset == "" {
		cfg.Kafka.AutoOffsetReset = "earliest"
	}
	if cfg.Kafka.ProducerRetries == 0 {
		cfg.Kafka.ProducerRetries = 3
	}

	// ── MinIO ─────────────────────────────────────────────────────────────────
	if cfg.MinIO.Endpoint == "" {
		cfg.MinIO.Endpoint = DefaultMinIOEndpoint
	}
	if cfg.MinIO.Bucket == "" {
		cfg.MinIO.Bucket = DefaultMinIOBucket
	}

	// ── Log ───────────────────────────────────────────────────────────────────
	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}

	// ── Engine ────────────────────────────────────────────────────────────────
	if cfg.Engine.Weights == (WeightsConfig{}) {
		cfg.Engine.Weights = WeightsConfig{
			Location:   DefaultWeightLocation,
			Identifier: DefaultWeightIdentifier,
			Subject:    DefaultWeightSubject,
			Name:       DefaultWeightName,
			Phone:      DefaultWeightPhone,
		}
	}
	if cfg.Engine.DuplicateThreshold == 0 {
		cfg.Engine.DuplicateThreshold = DefaultDuplicateThreshold
	}
	if cfg.Engine.MinSimilarity == 0 {
		cfg.Engine.MinSimilarity = DefaultMinSimilarity
	}
	if cfg.Engine.FrequentThreshold == 0 {
		cfg.Engine.FrequentThreshold = DefaultFrequentThreshold
	}
	if cfg.Engine.DefaultLimit == 0 {
		cfg.Engine.DefaultLimit = DefaultResultLimit
	}

	// ── Corpus ────────────────────────────────────────────────────────────────
	if cfg.Corpus.RefreshInterval == 0 {
		cfg.Corpus.RefreshInterval = time.Hour
	}
	if cfg.Corpus.RefreshTimeout == 0 {
		cfg.Corpus.RefreshTimeout = 2 * time.Minute
	}
}
