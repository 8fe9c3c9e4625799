package matching

import (
	"context"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/clover/pkg/blocking"
	"github.com/Ramsey-B/clover/pkg/models"
)

func silentLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

func crawlRecords(names ...string) []models.CrawlRecord {
	records := make([]models.CrawlRecord, len(names))
	for i, name := range names {
		records[i] = models.CrawlRecord{ID: name, Name: models.StringPtr(name)}
	}
	return records
}

func registryRecords(names ...string) []models.RegistryRecord {
	records := make([]models.RegistryRecord, len(names))
	for i, name := range names {
		records[i] = models.RegistryRecord{BusinessNumber: name, Name: models.StringPtr(name)}
	}
	return records
}

func block(key string, crawl []models.CrawlRecord, registry []models.RegistryRecord) blocking.Block {
	b := blocking.Block{Key: key}
	for i, c := range crawl {
		b.Crawl = append(b.Crawl, models.NormalizedRecord{Source: models.SourceCrawl, Index: i, MatchName: *c.Name, BlockKey: key})
	}
	for i, r := range registry {
		b.Registry = append(b.Registry, models.NormalizedRecord{Source: models.SourceRegistry, Index: i, MatchName: *r.Name, BlockKey: key})
	}
	return b
}

// fixedScores looks up a score by registry match name
func fixedScores(scores map[string]float64) SimilarityFunc {
	return func(_, b string) float64 {
		return scores[b]
	}
}

func TestGenerator_RespectsFloor(t *testing.T) {
	crawl := crawlRecords("a")
	registry := registryRecords("eighty-six", "eighty-seven", "eighty-eight")

	gen := NewGenerator(silentLogger(), DefaultConfig(), fixedScores(map[string]float64{
		"eighty-six":   86,
		"eighty-seven": 87,
		"eighty-eight": 88,
	}))

	pairs, err := gen.Generate(context.Background(), []blocking.Block{block("k", crawl, registry)}, crawl, registry)
	require.NoError(t, err)

	require.Len(t, pairs, 1)
	assert.Equal(t, "eighty-eight", pairs[0].Registry.BusinessNumber)
	assert.Equal(t, 88.0, pairs[0].Similarity)
	assert.Equal(t, "k", pairs[0].BlockKey)
	assert.Equal(t, 1, pairs[0].Rank)
}

func TestGenerator_TopK(t *testing.T) {
	crawl := crawlRecords("a")
	registry := registryRecords("r1", "r2", "r3", "r4", "r5")

	gen := NewGenerator(silentLogger(), GeneratorConfig{TopK: 3, Floor: 87, Workers: 2}, fixedScores(map[string]float64{
		"r1": 90,
		"r2": 99,
		"r3": 95,
		"r4": 95,
		"r5": 98,
	}))

	pairs, err := gen.Generate(context.Background(), []blocking.Block{block("k", crawl, registry)}, crawl, registry)
	require.NoError(t, err)

	require.Len(t, pairs, 3)
	assert.Equal(t, "r2", pairs[0].Registry.BusinessNumber)
	assert.Equal(t, "r5", pairs[1].Registry.BusinessNumber)
	// ties keep registry order
	assert.Equal(t, "r3", pairs[2].Registry.BusinessNumber)
	assert.Equal(t, []int{1, 2, 3}, []int{pairs[0].Rank, pairs[1].Rank, pairs[2].Rank})
}

func TestGenerator_TopKAppliedBeforeFloor(t *testing.T) {
	crawl := crawlRecords("a")
	registry := registryRecords("r1", "r2", "r3", "r4")

	gen := NewGenerator(silentLogger(), GeneratorConfig{TopK: 2, Floor: 87}, fixedScores(map[string]float64{
		"r1": 95,
		"r2": 50,
		"r3": 96,
		"r4": 40,
	}))

	pairs, err := gen.Generate(context.Background(), []blocking.Block{block("k", crawl, registry)}, crawl, registry)
	require.NoError(t, err)
	require.Len(t, pairs, 2)
	assert.Equal(t, "r3", pairs[0].Registry.BusinessNumber)
	assert.Equal(t, "r1", pairs[1].Registry.BusinessNumber)
}

func TestGenerator_DeterministicAcrossBlocks(t *testing.T) {
	crawlA := crawlRecords("acme", "acme corp")
	registryA := registryRecords("acme", "corp acme")

	blocks := []blocking.Block{
		block("acm", crawlA, registryA),
		block("acm2", crawlA, registryA),
		block("acm3", crawlA, registryA),
	}

	gen := NewGenerator(silentLogger(), GeneratorConfig{TopK: 3, Floor: 87, Workers: 3}, nil)

	first, err := gen.Generate(context.Background(), blocks, crawlA, registryA)
	require.NoError(t, err)
	second, err := gen.Generate(context.Background(), blocks, crawlA, registryA)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	require.NotEmpty(t, first)
	assert.Equal(t, "acm", first[0].BlockKey)
	assert.Equal(t, "acm3", first[len(first)-1].BlockKey)
}

func TestGenerator_TokenOrderInsensitive(t *testing.T) {
	crawl := crawlRecords("acme corp")
	registry := registryRecords("corp acme")

	gen := NewGenerator(silentLogger(), DefaultConfig(), nil)
	pairs, err := gen.Generate(context.Background(), []blocking.Block{block("acm", crawl, registry)}, crawl, registry)
	require.NoError(t, err)

	require.Len(t, pairs, 1)
	assert.Equal(t, 100.0, pairs[0].Similarity)
}

func TestGenerator_Cancelled(t *testing.T) {
	crawl := crawlRecords("acme")
	registry := registryRecords("acme")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	gen := NewGenerator(silentLogger(), DefaultConfig(), nil)
	_, err := gen.Generate(ctx, []blocking.Block{block("acm", crawl, registry)}, crawl, registry)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestGenerator_EmptyNamesNeverMatch(t *testing.T) {
	crawl := crawlRecords("")
	registry := registryRecords("")

	gen := NewGenerator(silentLogger(), GeneratorConfig{TopK: 3, Floor: 0, Workers: 1}, NewScorer().TokenSortRatio)

	pairs, err := gen.Generate(context.Background(), []blocking.Block{block("zzz", crawl, registry)}, crawl, registry)
	require.NoError(t, err)
	assert.Empty(t, pairs)
}
