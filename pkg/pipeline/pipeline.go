// Package pipeline runs one matching pass: load both source batches, block,
// score, adjudicate, unify and persist.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	pkgerrors "github.com/pkg/errors"

	"github.com/Ramsey-B/clover/pkg/blocking"
	appctx "github.com/Ramsey-B/clover/pkg/context"
	"github.com/Ramsey-B/clover/pkg/matching"
	"github.com/Ramsey-B/clover/pkg/merging"
	"github.com/Ramsey-B/clover/pkg/metrics"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

var (
	// ErrFatal is matched by every error that aborts a run
	ErrFatal = errors.New("fatal pipeline error")

	ErrMissingInputBatch = fmt.Errorf("%w: required input batch is empty", ErrFatal)
	ErrStoreUnavailable  = fmt.Errorf("%w: store unavailable", ErrFatal)
)

type CrawlSource interface {
	List(ctx context.Context) ([]models.CrawlRecord, error)
}

type RegistrySource interface {
	List(ctx context.Context) ([]models.RegistryRecord, error)
}

type Adjudicator interface {
	AdjudicateAll(ctx context.Context, pairs []models.CandidatePair) ([]models.MatchDecision, error)
}

type UnifiedStore interface {
	UpsertBatch(ctx context.Context, companies []models.UnifiedCompany) (int, error)
}

type DecisionRecorder interface {
	RecordBatch(ctx context.Context, runID string, decisions []models.MatchDecision, ceiling int) error
}

type Publisher interface {
	PublishUnifiedCompanies(ctx context.Context, runID string, companies []models.UnifiedCompany) (int, error)
}

// Dependencies are the collaborators of a run. Recorder and Publisher are optional.
type Dependencies struct {
	Crawl       CrawlSource
	Registry    RegistrySource
	Adjudicator Adjudicator
	Store       UnifiedStore
	Recorder    DecisionRecorder
	Publisher   Publisher
}

type Pipeline struct {
	logger    ectologger.Logger
	deps      Dependencies
	index     *blocking.Index
	generator *matching.Generator
	unifier   *merging.Unifier
	validate  *validator.Validate
	now       func() time.Time
}

func New(logger ectologger.Logger, deps Dependencies, index *blocking.Index, generator *matching.Generator, unifier *merging.Unifier) (*Pipeline, error) {
	switch {
	case deps.Crawl == nil:
		return nil, errors.New("pipeline requires a crawl source")
	case deps.Registry == nil:
		return nil, errors.New("pipeline requires a registry source")
	case deps.Adjudicator == nil:
		return nil, errors.New("pipeline requires an adjudicator")
	case deps.Store == nil:
		return nil, errors.New("pipeline requires a unified store")
	case index == nil || generator == nil || unifier == nil:
		return nil, errors.New("pipeline requires an index, a generator and a unifier")
	}

	return &Pipeline{
		logger:    logger,
		deps:      deps,
		index:     index,
		generator: generator,
		unifier:   unifier,
		validate:  validator.New(),
		now:       time.Now,
	}, nil
}

// Run executes one pass. The summary is returned even when the run fails;
// fatal errors satisfy errors.Is(err, ErrFatal).
func (p *Pipeline) Run(ctx context.Context) (*models.RunSummary, error) {
	runID := uuid.New().String()
	ctx = appctx.SetRunID(ctx, runID)

	ctx, span := tracing.StartSpan(ctx, "pipeline.Pipeline.Run")
	defer span.End()

	summary := &models.RunSummary{
		RunID:     runID,
		StartedAt: p.now().UTC(),
	}

	err := p.run(ctx, summary)

	summary.FinishedAt = p.now().UTC()
	summary.Duration = summary.FinishedAt.Sub(summary.StartedAt)
	summary.Status = models.RunStatusSucceeded
	switch {
	case err == nil:
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		summary.Status = models.RunStatusCancelled
	default:
		summary.Status = models.RunStatusFailed
	}
	if err != nil {
		summary.Error = err.Error()
		span.RecordError(err)
	}

	metrics.RunsTotal.WithLabelValues(string(summary.Status)).Inc()
	metrics.RunDuration.Observe(summary.Duration.Seconds())

	log := p.logger.WithContext(ctx).WithFields(map[string]any{
		"run_id":            runID,
		"status":            summary.Status,
		"duration":          summary.Duration.String(),
		"crawl_records":     summary.CrawlRecords,
		"registry_records":  summary.RegistryRecords,
		"skipped_records":   summary.SkippedRecords,
		"candidates":        summary.Candidates,
		"decisions":         summary.Decisions,
		"accepted":          summary.Accepted,
		"unified_companies": summary.UnifiedCompanies,
	})
	if err != nil {
		log.WithError(err).Error("Match run did not complete")
	} else {
		log.Info("Match run completed")
	}

	return summary, err
}

func (p *Pipeline) run(ctx context.Context, summary *models.RunSummary) error {
	log := p.logger.WithContext(ctx).WithField("run_id", summary.RunID)

	crawl, registry, err := p.load(ctx)
	if err != nil {
		return err
	}
	summary.CrawlRecords = len(crawl)
	summary.RegistryRecords = len(registry)

	crawl, skippedCrawl := validRecords(ctx, p, models.SourceCrawl, crawl)
	registry, skippedRegistry := validRecords(ctx, p, models.SourceRegistry, registry)
	summary.SkippedRecords = skippedCrawl + skippedRegistry

	blocks := p.index.Build(
		normalizeCrawl(p.index, crawl),
		normalizeRegistry(p.index, registry),
	)
	summary.Blocks = len(blocks)

	pairs, err := p.generator.Generate(ctx, blocks, crawl, registry)
	if err != nil {
		return err
	}
	summary.Candidates = len(pairs)

	decisions, adjErr := p.deps.Adjudicator.AdjudicateAll(ctx, pairs)
	summary.Decisions = len(decisions)
	for _, d := range decisions {
		if d.Source == models.DecisionSourceExternal {
			summary.ExternalDecisions++
		} else {
			summary.FallbackDecisions++
		}
	}
	if adjErr != nil {
		return adjErr
	}

	accepted := p.unifier.Accept(decisions)
	summary.Accepted = len(accepted)

	companies := p.unifier.Unify(accepted)
	summary.UnifiedCompanies = len(companies)

	written, err := p.deps.Store.UpsertBatch(ctx, companies)
	summary.PersistedCompanies = written
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return pkgerrors.Wrapf(ErrStoreUnavailable, "persist unified companies: %v", err)
	}

	if p.deps.Recorder != nil {
		if err := p.deps.Recorder.RecordBatch(ctx, summary.RunID, decisions, p.unifier.Ceiling); err != nil {
			log.WithError(err).Warn("Failed to record match decisions")
		}
	}

	if p.deps.Publisher != nil && len(companies) > 0 {
		published, err := p.deps.Publisher.PublishUnifiedCompanies(ctx, summary.RunID, companies)
		summary.PublishedEvents = published
		if err != nil {
			log.WithError(err).Warn("Failed to publish unified company events")
		}
	}

	return nil
}

func (p *Pipeline) load(ctx context.Context) ([]models.CrawlRecord, []models.RegistryRecord, error) {
	crawl, err := p.deps.Crawl.List(ctx)
	if err != nil {
		return nil, nil, pkgerrors.Wrapf(ErrStoreUnavailable, "load crawl batch: %v", err)
	}
	if len(crawl) == 0 {
		return nil, nil, pkgerrors.Wrap(ErrMissingInputBatch, "crawl batch")
	}

	registry, err := p.deps.Registry.List(ctx)
	if err != nil {
		return nil, nil, pkgerrors.Wrapf(ErrStoreUnavailable, "load registry batch: %v", err)
	}
	if len(registry) == 0 {
		return nil, nil, pkgerrors.Wrap(ErrMissingInputBatch, "registry batch")
	}

	return crawl, registry, nil
}

// validRecords drops records that fail struct validation, logging each one
func validRecords[T any](ctx context.Context, p *Pipeline, source models.Source, records []T) ([]T, int) {
	valid := make([]T, 0, len(records))
	skipped := 0
	for i, rec := range records {
		if err := p.validate.StructCtx(ctx, rec); err != nil {
			skipped++
			metrics.RecordsSkipped.WithLabelValues(string(source)).Inc()
			p.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
				"source":   source,
				"position": i,
			}).Warn("Skipping malformed source record")
			continue
		}
		valid = append(valid, rec)
	}
	return valid, skipped
}
