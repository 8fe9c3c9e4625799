// Package matching scores blocked records and proposes candidate pairs for adjudication
package matching

import (
	"context"
	"sort"

	"github.com/Gobusters/ectologger"
	"golang.org/x/sync/errgroup"

	"github.com/Ramsey-B/clover/pkg/blocking"
	"github.com/Ramsey-B/clover/pkg/metrics"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

// GeneratorConfig contains configuration for candidate generation
type GeneratorConfig struct {
	TopK    int     // Best registry matches kept per crawl record (default: 3)
	Floor   float64 // Candidates scoring at or below this are discarded (default: 87)
	Workers int     // Blocks scored in parallel (default: 8)
}

// DefaultConfig returns default generator configuration
func DefaultConfig() GeneratorConfig {
	return GeneratorConfig{
		TopK:    3,
		Floor:   87,
		Workers: 8,
	}
}

// Generator turns blocks into scored candidate pairs
type Generator struct {
	logger     ectologger.Logger
	config     GeneratorConfig
	similarity SimilarityFunc
}

// NewGenerator creates a generator. A nil similarity uses token sort ratio.
func NewGenerator(logger ectologger.Logger, config GeneratorConfig, similarity SimilarityFunc) *Generator {
	if similarity == nil {
		similarity = NewScorer().TokenSortRatio
	}
	if config.TopK < 1 {
		config.TopK = 1
	}
	if config.Workers < 1 {
		config.Workers = 1
	}
	return &Generator{
		logger:     logger,
		config:     config,
		similarity: similarity,
	}
}

// Generate scores every crawl record against the registry records of its block.
// Blocks are scored in parallel; the result is ordered by block, then crawl
// record, then rank so runs over the same input produce the same pairs.
func (g *Generator) Generate(ctx context.Context, blocks []blocking.Block, crawl []models.CrawlRecord, registry []models.RegistryRecord) ([]models.CandidatePair, error) {
	ctx, span := tracing.StartSpan(ctx, "matching.Generator.Generate")
	defer span.End()

	results := make([][]models.CandidatePair, len(blocks))

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(g.config.Workers)

	for i := range blocks {
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			results[i] = g.scoreBlock(blocks[i], crawl, registry)
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}

	var pairs []models.CandidatePair
	for _, blockPairs := range results {
		pairs = append(pairs, blockPairs...)
	}

	g.logger.WithContext(ctx).WithFields(map[string]any{
		"blocks":     len(blocks),
		"candidates": len(pairs),
		"floor":      g.config.Floor,
		"top_k":      g.config.TopK,
	}).Info("Generated candidate pairs")

	return pairs, nil
}

type scored struct {
	registry models.NormalizedRecord
	score    float64
}

// scoreBlock keeps, per crawl record, the top-K registry records whose score exceeds the floor
func (g *Generator) scoreBlock(block blocking.Block, crawl []models.CrawlRecord, registry []models.RegistryRecord) []models.CandidatePair {
	var pairs []models.CandidatePair

	for _, c := range block.Crawl {
		scores := make([]scored, 0, len(block.Registry))
		for _, r := range block.Registry {
			scores = append(scores, scored{registry: r, score: g.similarity(c.MatchName, r.MatchName)})
		}

		// stable so ties keep registry order
		sort.SliceStable(scores, func(a, b int) bool {
			return scores[a].score > scores[b].score
		})
		if len(scores) > g.config.TopK {
			scores = scores[:g.config.TopK]
		}

		for rank, s := range scores {
			metrics.SimilarityScores.Observe(s.score)
			if s.score <= g.config.Floor {
				metrics.CandidatesDiscarded.Inc()
				continue
			}
			pairs = append(pairs, models.CandidatePair{
				Crawl:      crawl[c.Index],
				Registry:   registry[s.registry.Index],
				BlockKey:   block.Key,
				Similarity: s.score,
				Rank:       rank + 1,
			})
		}
	}

	return pairs
}
