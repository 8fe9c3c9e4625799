package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/clover/config"
	"github.com/Ramsey-B/clover/pkg/adjudication"
	"github.com/Ramsey-B/clover/pkg/fixtures"
	"github.com/Ramsey-B/clover/pkg/logging"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/pipeline"
)

func testConfig() *config.Config {
	return &config.Config{
		AppName:                       "clover-test",
		TracingExporter:               "none",
		StartupMaxAttempts:            1,
		BlockStrategy:                 "prefix",
		BlockPrefixLength:             3,
		BlockSentinel:                 "zzz",
		MatchFloor:                    87,
		MatchTopK:                     3,
		MatchWorkers:                  2,
		MatchMetric:                   "token_sort",
		MatchCeiling:                  90,
		AdjudicatorProvider:           "huggingface",
		AdjudicatorEndpoint:           "http://localhost:0/models/test",
		AdjudicatorModel:              "test-model",
		AdjudicatorMaxTokens:          64,
		AdjudicatorTimeout:            time.Second,
		AdjudicatorConcurrency:        2,
		AdjudicatorFallbackConfidence: 80,
		KafkaBrokers:                  []string{"localhost:9092"},
		KafkaOutputTopic:              "company-events",
		KafkaBatchTimeout:             250,
		MatchRunLockTTL:               time.Minute,
	}
}

func TestNewJudge(t *testing.T) {
	logger := logging.Silent()

	t.Run("no credential", func(t *testing.T) {
		assert.Nil(t, NewJudge(testConfig(), logger))
	})

	t.Run("huggingface", func(t *testing.T) {
		cfg := testConfig()
		cfg.AdjudicatorAPIKey = "hf_test"
		judge := NewJudge(cfg, logger)
		require.NotNil(t, judge)
		assert.IsType(t, &adjudication.HuggingFaceJudge{}, judge)
		assert.Equal(t, "huggingface", judge.Name())
	})

	t.Run("anthropic", func(t *testing.T) {
		cfg := testConfig()
		cfg.AdjudicatorProvider = "anthropic"
		cfg.AdjudicatorAPIKey = "sk-test"
		judge := NewJudge(cfg, logger)
		require.NotNil(t, judge)
		assert.Equal(t, "anthropic", judge.Name())
	})
}

func TestNewMatchers(t *testing.T) {
	index, generator, unifier, err := NewMatchers(testConfig(), logging.Silent())
	require.NoError(t, err)
	assert.NotNil(t, index)
	assert.NotNil(t, generator)
	assert.Equal(t, 90, unifier.Ceiling)
	assert.Equal(t, "exa", index.Key("example"))
}

func TestNewMatchers_UnknownStrategy(t *testing.T) {
	cfg := testConfig()
	cfg.BlockStrategy = "bogus"
	_, _, _, err := NewMatchers(cfg, logging.Silent())
	assert.Error(t, err)
}

func TestProducerConfig(t *testing.T) {
	got := producerConfig(testConfig())
	assert.Equal(t, 250*time.Millisecond, got.BatchTimeout)
	assert.Equal(t, "company-events", got.Topic)
}

func TestAdjudicationConfig(t *testing.T) {
	got := adjudicationConfig(testConfig())
	assert.Equal(t, 80, got.FallbackConfidence)
	assert.Equal(t, time.Second, got.Timeout)
	assert.Equal(t, 2, got.Concurrency)
}

func TestApp_PipelineRequiresDatabase(t *testing.T) {
	a := &App{Config: testConfig(), Logger: logging.Silent()}
	_, err := a.Pipeline()
	assert.Error(t, err)
}

func TestApp_SeedRequiresDatabase(t *testing.T) {
	a := &App{Config: testConfig(), Logger: logging.Silent()}
	assert.Error(t, a.Seed(context.Background(), &fixtures.Fixtures{}))
}

func TestApp_RunLockIsLocalWithoutRedis(t *testing.T) {
	a := &App{Config: testConfig(), Logger: logging.Silent()}
	lock := a.RunLock()
	assert.IsType(t, &pipeline.LocalRunLock{}, lock)

	release, err := lock.Acquire(context.Background())
	require.NoError(t, err)
	_, err = lock.Acquire(context.Background())
	assert.ErrorIs(t, err, pipeline.ErrRunInProgress)
	require.NoError(t, release(context.Background()))
}

func TestNoCredentialJudgeFallsBack(t *testing.T) {
	cfg := testConfig()
	service := adjudication.NewService(logging.Silent(), adjudicationConfig(cfg), NewJudge(cfg, logging.Silent()), nil)

	decision := service.Adjudicate(context.Background(), models.CandidatePair{
		Crawl:    models.CrawlRecord{ID: "c1", Name: models.StringPtr("Example Pty Ltd")},
		Registry: models.RegistryRecord{ID: "r1", BusinessNumber: "12345678901", Name: models.StringPtr("EXAMPLE")},
	})
	assert.Equal(t, 80, decision.Confidence)
	assert.Equal(t, models.DecisionSourceFallback, decision.Source)
}
