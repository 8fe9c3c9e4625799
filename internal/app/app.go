// Package app wires configuration into the running service: external
// dependencies, repositories and the matching pipeline.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/clover/config"
	"github.com/Ramsey-B/clover/internal/repositories/crawlrecord"
	"github.com/Ramsey-B/clover/internal/repositories/matchdecision"
	"github.com/Ramsey-B/clover/internal/repositories/registryrecord"
	"github.com/Ramsey-B/clover/internal/repositories/unifiedcompany"
	"github.com/Ramsey-B/clover/pkg/adjudication"
	"github.com/Ramsey-B/clover/pkg/blocking"
	"github.com/Ramsey-B/clover/pkg/database"
	"github.com/Ramsey-B/clover/pkg/fixtures"
	"github.com/Ramsey-B/clover/pkg/httpclient"
	"github.com/Ramsey-B/clover/pkg/kafka"
	"github.com/Ramsey-B/clover/pkg/matching"
	"github.com/Ramsey-B/clover/pkg/merging"
	"github.com/Ramsey-B/clover/pkg/pipeline"
	"github.com/Ramsey-B/clover/pkg/redis"
	"github.com/Ramsey-B/clover/pkg/routes/health"
	"github.com/Ramsey-B/clover/pkg/startup"
	"github.com/Ramsey-B/clover/pkg/tracing"
	"github.com/Ramsey-B/clover/pkg/tracing/exporters"
)

const (
	dependencyPostgres = "postgres"
	dependencyRedis    = "redis"
	dependencyKafka    = "kafka"
)

type App struct {
	Config *config.Config
	Logger ectologger.Logger

	DB       *database.DatabaseInstance
	Redis    *redis.Client
	Producer *kafka.Producer

	startup         *startup.Startup
	shutdownTracing func(context.Context) error
}

// New installs tracing and starts every enabled dependency. Optional
// dependencies (Redis, Kafka) are only registered when their feature flag is on.
func New(ctx context.Context, cfg *config.Config, logger ectologger.Logger) (*App, error) {
	shutdownTracing, err := tracing.Setup(ctx, tracing.Config{
		ServiceName: cfg.AppName,
		Exporter:    cfg.TracingExporter,
		SampleRatio: cfg.TracingSampleRatio,
		OTLP: exporters.OTLPConfig{
			Endpoint: cfg.TracingEndpoint,
			Protocol: cfg.TracingProtocol,
			Insecure: cfg.TracingInsecure,
			Timeout:  cfg.TracingTimeout,
		},
	})
	if err != nil {
		return nil, err
	}

	a := &App{
		Config:          cfg,
		Logger:          logger,
		startup:         startup.NewStartup(logger, cfg.StartupMaxAttempts),
		shutdownTracing: shutdownTracing,
	}
	a.registerDependencies()

	if err := a.startup.Start(ctx); err != nil {
		_ = shutdownTracing(context.Background())
		return nil, err
	}
	return a, nil
}

func (a *App) registerDependencies() {
	cfg := a.Config

	a.startup.AddDependency(&startup.Dependency{
		Name: dependencyPostgres,
		StartFn: func(ctx context.Context) error {
			db, err := database.Connect(ctx, cfg.DatabaseURL(), database.PoolConfig{
				MaxOpenConns:    cfg.DatabaseMaxOpenConns,
				MaxIdleConns:    cfg.DatabaseMaxIdleConns,
				ConnMaxLifetime: cfg.DatabaseConnMaxLifetime,
			}, a.Logger)
			if err != nil {
				return err
			}
			a.DB = db
			return nil
		},
		StopFn: func(context.Context) error {
			if a.DB == nil {
				return nil
			}
			return a.DB.Close()
		},
	})

	if cfg.RedisEnabled {
		a.startup.AddDependency(&startup.Dependency{
			Name: dependencyRedis,
			StartFn: func(ctx context.Context) error {
				client, err := redis.NewClient(ctx, redis.Config{
					Host:     cfg.RedisHost,
					Port:     cfg.RedisPort,
					Password: cfg.RedisPassword,
					DB:       cfg.RedisDB,
				}, a.Logger)
				if err != nil {
					return err
				}
				a.Redis = client
				return nil
			},
			StopFn: func(context.Context) error {
				if a.Redis == nil {
					return nil
				}
				return a.Redis.Close()
			},
		})
	}

	if cfg.KafkaEnabled {
		a.startup.AddDependency(&startup.Dependency{
			Name: dependencyKafka,
			StartFn: func(context.Context) error {
				a.Producer = kafka.NewProducer(producerConfig(cfg), a.Logger)
				return nil
			},
			StopFn: func(context.Context) error {
				if a.Producer == nil {
					return nil
				}
				return a.Producer.Close()
			},
		})
	}
}

func producerConfig(cfg *config.Config) kafka.ProducerConfig {
	return kafka.ProducerConfig{
		Brokers:      cfg.KafkaBrokers,
		Topic:        cfg.KafkaOutputTopic,
		BatchSize:    cfg.KafkaBatchSize,
		BatchTimeout: time.Duration(cfg.KafkaBatchTimeout) * time.Millisecond,
		RequiredAcks: cfg.KafkaRequiredAcks,
		Compression:  cfg.KafkaCompression,
	}
}

// Migrate applies the schema migrations to the connected database
func (a *App) Migrate(ctx context.Context) error {
	cfg := a.Config
	migrations := database.NewMigrationService(a.Logger, &database.MigrationConfig{
		MigrationFolderPath: cfg.DatabaseMigrationFolderPath,
		Version:             uint(max(cfg.DatabaseMigrationVersion, 0)),
		Force:               cfg.DatabaseMigrationForce,
		AutoRollback:        cfg.DatabaseMigrationAutoRollback,
	})
	return migrations.Migrate(ctx, a.DB, cfg.DatabaseName)
}

// Seed stages fixture batches into the source tables
func (a *App) Seed(ctx context.Context, f *fixtures.Fixtures) error {
	if a.DB == nil {
		return errors.New("database is not connected")
	}
	if err := crawlrecord.NewRepository(a.DB, a.Logger).InsertBatch(ctx, f.Crawl); err != nil {
		return err
	}
	if err := registryrecord.NewRepository(a.DB, a.Logger).InsertBatch(ctx, f.Registry); err != nil {
		return err
	}

	a.Logger.WithContext(ctx).WithFields(map[string]any{
		"crawl_records":    len(f.Crawl),
		"registry_records": len(f.Registry),
	}).Info("Staged source batches")
	return nil
}

// Pipeline builds a pipeline over the started dependencies
func (a *App) Pipeline() (*pipeline.Pipeline, error) {
	if a.DB == nil {
		return nil, errors.New("database is not connected")
	}
	cfg := a.Config

	index, generator, unifier, err := NewMatchers(cfg, a.Logger)
	if err != nil {
		return nil, err
	}

	var cache adjudication.DecisionCache
	if a.Redis != nil {
		cache = adjudication.NewRedisDecisionCache(a.Redis, cfg.DecisionTTL)
	}

	deps := pipeline.Dependencies{
		Crawl:       crawlrecord.NewRepository(a.DB, a.Logger),
		Registry:    registryrecord.NewRepository(a.DB, a.Logger),
		Adjudicator: adjudication.NewService(a.Logger, adjudicationConfig(cfg), NewJudge(cfg, a.Logger), cache),
		Store: unifiedcompany.NewRepository(a.DB, a.Logger, unifiedcompany.Config{
			ChunkSize: cfg.PersistChunkSize,
			Workers:   cfg.PersistWorkers,
		}),
		Recorder: matchdecision.NewRepository(a.DB, a.Logger),
	}
	if a.Producer != nil {
		deps.Publisher = a.Producer
	}

	return pipeline.New(a.Logger, deps, index, generator, unifier)
}

// RunLock is shared through Redis when it is enabled, otherwise it is local to the process
func (a *App) RunLock() pipeline.RunLock {
	if a.Redis != nil {
		return pipeline.NewRedisRunLock(redis.NewLocker(a.Redis, ""), a.Config.MatchRunLockTTL, a.Logger)
	}
	return pipeline.NewLocalRunLock()
}

// RegisterHealthChecks adds a probe for every started dependency
func (a *App) RegisterHealthChecks(checker *health.Checker) {
	if a.DB != nil {
		checker.AddCheck(dependencyPostgres, a.DB.PingContext)
	}
	if a.Redis != nil {
		checker.AddCheck(dependencyRedis, a.Redis.Ping)
	}
}

// Close stops dependencies in reverse start order and flushes spans
func (a *App) Close(ctx context.Context) error {
	stopErr := a.startup.Stop(ctx)
	traceErr := a.shutdownTracing(ctx)
	if stopErr != nil {
		return stopErr
	}
	if traceErr != nil {
		return fmt.Errorf("failed to shut down tracing: %w", traceErr)
	}
	return nil
}

// NewMatchers builds the blocking index, candidate generator and unifier
func NewMatchers(cfg *config.Config, logger ectologger.Logger) (*blocking.Index, *matching.Generator, *merging.Unifier, error) {
	keyer, err := blocking.NewKeyer(cfg.BlockStrategy, cfg.BlockPrefixLength, cfg.BlockSentinel)
	if err != nil {
		return nil, nil, nil, err
	}

	generator := matching.NewGenerator(logger, matching.GeneratorConfig{
		TopK:    cfg.MatchTopK,
		Floor:   cfg.MatchFloor,
		Workers: cfg.MatchWorkers,
	}, matching.NewScorer().Metric(cfg.MatchMetric))

	return blocking.NewIndex(keyer), generator, merging.NewUnifier(cfg.MatchCeiling), nil
}

// NewJudge returns nil when no credential is configured so the service
// answers every pair with the fallback confidence.
func NewJudge(cfg *config.Config, logger ectologger.Logger) adjudication.Judge {
	if cfg.AdjudicatorAPIKey == "" {
		return nil
	}

	switch cfg.AdjudicatorProvider {
	case "anthropic":
		return adjudication.NewAnthropicJudge(cfg.AdjudicatorAPIKey, cfg.AdjudicatorModel, "", cfg.AdjudicatorMaxTokens)
	default:
		client := httpclient.NewClient(httpclient.Config{
			Timeout:         cfg.AdjudicatorTimeout,
			MaxIdleConns:    cfg.AdjudicatorConcurrency,
			IdleConnTimeout: 90 * time.Second,
		}, logger)
		return adjudication.NewHuggingFaceJudge(client, cfg.AdjudicatorEndpoint, cfg.AdjudicatorAPIKey, cfg.AdjudicatorMaxTokens)
	}
}

func adjudicationConfig(cfg *config.Config) adjudication.Config {
	return adjudication.Config{
		Timeout:            cfg.AdjudicatorTimeout,
		Concurrency:        cfg.AdjudicatorConcurrency,
		RequestsPerSecond:  cfg.AdjudicatorRequestsPerSecond,
		FallbackConfidence: cfg.AdjudicatorFallbackConfidence,
	}
}
