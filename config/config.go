package config

import (
	"fmt"
	"time"

	"github.com/Gobusters/ectoenv"
	"github.com/joho/godotenv"
)

type Config struct {
	AppName                       string   `env:"APP_NAME" env-default:"clover-api"`
	Version                       string   `env:"APP_VERSION" env-default:"dev"`
	Port                          int      `env:"PORT" env-default:"3004"`
	LogLevel                      string   `env:"LOG_LEVEL" env-default:"info"`
	PrettyLogs                    bool     `env:"PRETTY_LOGS" env-default:"false"`
	HttpServerWriteTimeoutSeconds int      `env:"HTTP_SERVER_WRITE_TIMEOUT_SECONDS" env-default:"300"`
	HttpServerReadTimeoutSeconds  int      `env:"HTTP_SERVER_READ_TIMEOUT_SECONDS" env-default:"10"`
	HttpServerIdleTimeoutSeconds  int      `env:"HTTP_SERVER_IDLE_TIMEOUT_SECONDS" env-default:"10"`
	MaxHeaderBytes                int      `env:"HTTP_SERVER_MAX_HEADER_BYTES" env-default:"64000"` // 64KB
	ReadHeaderTimeoutSeconds      int      `env:"HTTP_SERVER_READ_HEADER_TIMEOUT_SECONDS" env-default:"10"`
	AllowOrigins                  []string `env:"HTTP_SERVER_ALLOW_ORIGINS" env-default:"*"`
	StartupMaxAttempts            int      `env:"STARTUP_MAX_ATTEMPTS" env-default:"5"`

	// PostgreSQL (staged sources + unified store)
	DatabaseDriver                string        `env:"DB_DRIVER" env-default:"postgres"`
	DatabaseHost                  string        `env:"DB_HOST" env-default:"localhost"`
	DatabasePort                  string        `env:"DB_PORT" env-default:"5432"`
	DatabaseUserName              string        `env:"DB_USER_NAME" env-default:""`
	DatabasePassword              string        `env:"DB_PASSWORD" env-default:""`
	DatabaseName                  string        `env:"DB_NAME" env-default:"clover"`
	DatabaseSSLMode               string        `env:"DB_SSL_MODE" env-default:"disable"`
	DatabaseMaxOpenConns          int           `env:"DB_MAX_OPEN_CONNS" env-default:"25"`
	DatabaseMaxIdleConns          int           `env:"DB_MAX_IDLE_CONNS" env-default:"10"`
	DatabaseConnMaxLifetime       time.Duration `env:"DB_CONN_MAX_LIFETIME" env-default:"10s"`
	DatabaseMigrationFolderPath   string        `env:"DB_MIGRATION_FOLDER_PATH" env-default:"db/pg"`
	DatabaseMigrationVersion      int           `env:"DB_MIGRATION_VERSION" env-default:"0"`
	DatabaseMigrationForce        int           `env:"DB_MIGRATION_FORCE" env-default:"0"`
	DatabaseMigrationAutoRollback bool          `env:"DB_MIGRATION_AUTO_ROLLBACK" env-default:"true"`

	// Redis (adjudication cache)
	RedisEnabled  bool          `env:"REDIS_ENABLED" env-default:"false"`
	RedisHost     string        `env:"REDIS_HOST" env-default:"localhost"`
	RedisPort     int           `env:"REDIS_PORT" env-default:"6379"`
	RedisPassword string        `env:"REDIS_PASSWORD" env-default:""`
	RedisDB       int           `env:"REDIS_DB" env-default:"0"`
	DecisionTTL   time.Duration `env:"ADJUDICATOR_CACHE_TTL" env-default:"168h"`

	// Kafka Producer settings
	KafkaEnabled      bool     `env:"KAFKA_ENABLED" env-default:"false"`
	KafkaBrokers      []string `env:"KAFKA_BROKERS" env-default:"localhost:9092"`
	KafkaOutputTopic  string   `env:"KAFKA_OUTPUT_TOPIC" env-default:"company-events"`
	KafkaBatchSize    int      `env:"KAFKA_BATCH_SIZE" env-default:"100"`
	KafkaBatchTimeout int      `env:"KAFKA_BATCH_TIMEOUT_MS" env-default:"100"`
	KafkaRequiredAcks int      `env:"KAFKA_REQUIRED_ACKS" env-default:"1"`
	KafkaCompression  string   `env:"KAFKA_COMPRESSION" env-default:"snappy"`

	// Tracing
	TracingExporter    string        `env:"TRACING_EXPORTER" env-default:"none"` // none, console, otlp
	TracingEndpoint    string        `env:"TRACING_ENDPOINT" env-default:"localhost:4317"`
	TracingProtocol    string        `env:"TRACING_PROTOCOL" env-default:"grpc"`
	TracingInsecure    bool          `env:"TRACING_INSECURE" env-default:"true"`
	TracingTimeout     time.Duration `env:"TRACING_TIMEOUT" env-default:"10s"`
	TracingSampleRatio float64       `env:"TRACING_SAMPLE_RATIO" env-default:"1"`

	// Blocking
	BlockStrategy     string `env:"BLOCK_STRATEGY" env-default:"prefix"` // prefix, soundex, metaphone, ngram
	BlockPrefixLength int    `env:"BLOCK_PREFIX_LENGTH" env-default:"3"`
	BlockSentinel     string `env:"BLOCK_SENTINEL" env-default:"zzz"`

	// Candidate generation
	MatchFloor   float64 `env:"MATCH_FLOOR" env-default:"87"`
	MatchTopK    int     `env:"MATCH_TOP_K" env-default:"3"`
	MatchWorkers int     `env:"MATCH_WORKERS" env-default:"8"`
	MatchMetric  string  `env:"MATCH_METRIC" env-default:"token_sort"` // token_sort, ratio, jaro_winkler, levenshtein

	// Adjudication
	AdjudicatorProvider           string        `env:"ADJUDICATOR_PROVIDER" env-default:"huggingface"` // huggingface, anthropic
	AdjudicatorAPIKey             string        `env:"ADJUDICATOR_API_KEY" env-default:""`
	AdjudicatorEndpoint           string        `env:"ADJUDICATOR_ENDPOINT" env-default:"https://api-inference.huggingface.co/models/mistralai/Mistral-7B-Instruct-v0.2"`
	AdjudicatorModel              string        `env:"ADJUDICATOR_MODEL" env-default:"claude-3-5-haiku-latest"`
	AdjudicatorMaxTokens          int           `env:"ADJUDICATOR_MAX_TOKENS" env-default:"256"`
	AdjudicatorTimeout            time.Duration `env:"ADJUDICATOR_TIMEOUT" env-default:"30s"`
	AdjudicatorConcurrency        int           `env:"ADJUDICATOR_CONCURRENCY" env-default:"8"`
	AdjudicatorRequestsPerSecond  float64       `env:"ADJUDICATOR_RPS" env-default:"0"` // 0 disables the limiter
	AdjudicatorFallbackConfidence int           `env:"ADJUDICATOR_FALLBACK_CONFIDENCE" env-default:"80"`

	// Unification + persistence
	MatchCeiling     int `env:"MATCH_CEILING" env-default:"90"`
	PersistChunkSize int `env:"PERSIST_CHUNK_SIZE" env-default:"5000"`
	PersistWorkers   int `env:"PERSIST_WORKERS" env-default:"4"`

	// Run control
	MatchRunTimeout time.Duration `env:"MATCH_RUN_TIMEOUT" env-default:"0s"` // 0 lets a run take as long as it needs
	MatchRunLockTTL time.Duration `env:"MATCH_RUN_LOCK_TTL" env-default:"2h"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" env-default:"30s"`
}

// Load reads an optional .env file and binds the environment onto a Config.
func Load() (*Config, error) {
	// .env is optional outside local development
	_ = godotenv.Load()

	cfg := &Config{}
	if err := ectoenv.BindEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to bind environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// MaxPersistChunkSize keeps a multi-row upsert under the Postgres limit of
// 65535 bind parameters.
const MaxPersistChunkSize = 5000

// Validate rejects knob combinations the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.MatchFloor < 0 || c.MatchFloor > 100 {
		return fmt.Errorf("MATCH_FLOOR must be within 0..100, got %v", c.MatchFloor)
	}
	if c.MatchCeiling < 0 || c.MatchCeiling > 100 {
		return fmt.Errorf("MATCH_CEILING must be within 0..100, got %d", c.MatchCeiling)
	}
	if c.AdjudicatorFallbackConfidence < 0 || c.AdjudicatorFallbackConfidence > 100 {
		return fmt.Errorf("ADJUDICATOR_FALLBACK_CONFIDENCE must be within 0..100, got %d", c.AdjudicatorFallbackConfidence)
	}
	if c.MatchTopK < 1 {
		return fmt.Errorf("MATCH_TOP_K must be at least 1, got %d", c.MatchTopK)
	}
	if c.BlockPrefixLength < 1 {
		return fmt.Errorf("BLOCK_PREFIX_LENGTH must be at least 1, got %d", c.BlockPrefixLength)
	}
	if c.PersistChunkSize < 1 || c.PersistChunkSize > MaxPersistChunkSize {
		return fmt.Errorf("PERSIST_CHUNK_SIZE must be within 1..%d, got %d", MaxPersistChunkSize, c.PersistChunkSize)
	}
	switch c.AdjudicatorProvider {
	case "huggingface", "anthropic":
	default:
		return fmt.Errorf("unsupported ADJUDICATOR_PROVIDER %q (use 'huggingface' or 'anthropic')", c.AdjudicatorProvider)
	}
	return nil
}

// DatabaseURL builds the lib/pq connection string.
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.DatabaseUserName, c.DatabasePassword, c.DatabaseHost, c.DatabasePort, c.DatabaseName, c.DatabaseSSLMode)
}
